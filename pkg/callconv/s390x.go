package callconv

import (
	"github.com/raymyers/ralph-abi/pkg/ctypes"
)

// s390x ELF ABI. Integers use r2-r6 and floats f0, f2, f4, f6; everything
// else takes 8-byte stack slots. Aggregates of 1, 2, 4 or 8 bytes are
// passed like integers of that size, or in a float register if they wrap
// a single float or double; all others are passed by reference. Variadic
// arguments follow the same rules.
func classifyS390x(plan *Plan) {
	d := plan.Descriptor
	picker := newPicker(s390xIntArgs, s390xFloatArgs)

	if d.Return != nil {
		size := d.Return.Size()
		switch {
		case ctypes.IsFloat(d.Return):
			plan.Return = &Assignment{Type: d.Return, Class: FloatReg, Slots: []Slot{{Class: FloatReg, Reg: "f0", Size: size}}}
		case !ctypes.IsAggregate(d.Return):
			plan.Return = &Assignment{Type: d.Return, Class: IntReg, Slots: []Slot{{Class: IntReg, Reg: "r2", Size: size}}}
		default:
			ptr := picker.takeInt(0, eightbyte)
			plan.ReturnByRef = true
			plan.ResultPointer = &ptr
			plan.Return = inMemory(d.Return)
		}
	}

	for i, arg := range d.Args {
		a := s390xArg(picker, arg)
		a.Variadic = d.IsVariadic(i)
		plan.Args = append(plan.Args, a)
	}

	plan.StackSize = picker.stack
	plan.IntRegs = picker.nextInt
	plan.FloatRegs = picker.nextFloat
}

func s390xArg(picker *regPicker, t ctypes.Type) Assignment {
	size := t.Size()
	stack := func(n int64) Slot {
		return picker.takeStack(0, n, eightbyte, eightbyte)
	}

	if ctypes.IsFloat(t) || s390xFloatWrapper(t) {
		if picker.freeFloat() > 0 {
			return newAssignment(t, []Slot{picker.takeFloat(0, size)}, false, false)
		}
		return newAssignment(t, []Slot{stack(size)}, false, false)
	}

	byRef := ctypes.IsAggregate(t) && !fitsScalarSlot(size)
	if byRef {
		size = eightbyte
	}
	if picker.freeInt() > 0 {
		return newAssignment(t, []Slot{picker.takeInt(0, size)}, byRef, false)
	}
	return newAssignment(t, []Slot{stack(size)}, byRef, false)
}

// s390xFloatWrapper reports whether t is an aggregate consisting of
// exactly one float or double with no padding
func s390xFloatWrapper(t ctypes.Type) bool {
	if !ctypes.IsAggregate(t) || t.Size() > eightbyte {
		return false
	}
	leaves := ctypes.Flatten(t)
	return len(leaves) == 1 && leaves[0].Layout.Float && leaves[0].Layout.ByteSize == t.Size()
}
