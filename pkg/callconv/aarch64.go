package callconv

import (
	"github.com/raymyers/ralph-abi/pkg/cabi"
	"github.com/raymyers/ralph-abi/pkg/ctypes"
)

const (
	aarch64MaxHFA       = 4
	aarch64MaxByValue   = 16 // larger non-HFA composites are passed by reference
	aarch64ResultReg    = "x8"
	aarch64ResultRegNum = 8
)

// AAPCS64, section 6.8.2 "Parameter passing rules", with the Apple and
// Windows variadic deviations.
//
// Integer and float registers are separate files: exhausting one never
// moves values of the other kind to the stack. A composite that does not
// fit the remaining registers of its file goes wholly to the stack and
// closes that file for the rest of the call.
func classifyAArch64(plan *Plan) {
	d := plan.Descriptor
	conv := plan.Convention
	picker := newPicker(aarch64IntArgs, aarch64FloatArgs)

	if d.Return != nil {
		plan.Return = aarch64Return(plan, d.Return)
	}

	for i, arg := range d.Args {
		variadic := d.IsVariadic(i)
		var a Assignment
		switch {
		case variadic && conv == cabi.MacOSAArch64:
			a = appleVariadicArg(picker, arg)
		case variadic && conv == cabi.WindowsAArch64:
			a = windowsVariadicArg(picker, arg)
		default:
			a = aarch64Arg(picker, arg, conv == cabi.MacOSAArch64)
		}
		a.Variadic = variadic
		plan.Args = append(plan.Args, a)
	}

	plan.StackSize = ctypes.AlignUp(picker.stack, 2*eightbyte)
	plan.IntRegs = picker.nextInt
	plan.FloatRegs = picker.nextFloat
}

func aarch64Arg(picker *regPicker, t ctypes.Type, apple bool) Assignment {
	size := t.Size()

	// stackArg places t on the stack. Apple packs scalars at their natural
	// size and alignment; AAPCS64 rounds everything to 8 bytes.
	stackArg := func() Assignment {
		var slot Slot
		if apple && !ctypes.IsAggregate(t) {
			slot = picker.takeStack(0, size, t.Align(), 1)
		} else {
			slot = picker.takeStack(0, size, maxAlign(eightbyte, t.Align()), eightbyte)
		}
		return newAssignment(t, []Slot{slot}, false, false)
	}

	if l, ok := t.(ctypes.Layout); ok {
		if l.Float {
			if picker.freeFloat() > 0 {
				return newAssignment(t, []Slot{picker.takeFloat(0, size)}, false, false)
			}
			return stackArg()
		}
		if picker.freeInt() > 0 {
			return newAssignment(t, []Slot{picker.takeInt(0, size)}, false, false)
		}
		return stackArg()
	}

	if base, n, ok := HFA(t, aarch64MaxHFA); ok {
		if picker.freeFloat() >= n {
			slots := make([]Slot, n)
			for i := range slots {
				slots[i] = picker.takeFloat(int64(i)*base.ByteSize, base.ByteSize)
			}
			return newAssignment(t, slots, false, false)
		}
		picker.exhaustFloat()
		return stackArg()
	}

	if size > aarch64MaxByValue {
		return aarch64ByRef(picker, t)
	}

	if picker.freeInt() >= numEightbytes(size) {
		return newAssignment(t, picker.intChunks(size), false, false)
	}
	picker.exhaustInt()
	return stackArg()
}

// aarch64ByRef passes a pointer to a copy of t like an integer argument
func aarch64ByRef(picker *regPicker, t ctypes.Type) Assignment {
	if picker.freeInt() > 0 {
		return newAssignment(t, []Slot{picker.takeInt(0, eightbyte)}, true, false)
	}
	return newAssignment(t, []Slot{picker.takeStack(0, eightbyte, eightbyte, eightbyte)}, true, false)
}

// appleVariadicArg: on Apple platforms every variadic argument is passed
// on the stack in 8-byte aligned slots.
func appleVariadicArg(picker *regPicker, t ctypes.Type) Assignment {
	if ctypes.IsAggregate(t) && t.Size() > aarch64MaxByValue {
		if _, _, hfa := HFA(t, aarch64MaxHFA); !hfa {
			return newAssignment(t, []Slot{picker.takeStack(0, eightbyte, eightbyte, eightbyte)}, true, false)
		}
	}
	slot := picker.takeStack(0, t.Size(), maxAlign(eightbyte, t.Align()), eightbyte)
	return newAssignment(t, []Slot{slot}, false, false)
}

// windowsVariadicArg: Windows passes variadic arguments in integer
// registers only, floats included, and HFAs are plain composites. A
// composite may be split between x7 and the stack.
func windowsVariadicArg(picker *regPicker, t ctypes.Type) Assignment {
	size := t.Size()
	if ctypes.IsAggregate(t) && size > aarch64MaxByValue {
		return aarch64ByRef(picker, t)
	}

	var slots []Slot
	for off := int64(0); off < size; off += eightbyte {
		n := min(eightbyte, size-off)
		if picker.freeInt() > 0 {
			slots = append(slots, picker.takeInt(off, n))
		} else {
			slots = append(slots, picker.takeStack(off, n, eightbyte, eightbyte))
		}
	}
	return newAssignment(t, slots, false, false)
}

func aarch64Return(plan *Plan, t ctypes.Type) *Assignment {
	size := t.Size()
	if l, ok := t.(ctypes.Layout); ok {
		if l.Float {
			return &Assignment{Type: t, Class: FloatReg, Slots: []Slot{{Class: FloatReg, Reg: "v0", Size: size}}}
		}
		return &Assignment{Type: t, Class: IntReg, Slots: []Slot{{Class: IntReg, Reg: "x0", Size: size}}}
	}

	if base, n, ok := HFA(t, aarch64MaxHFA); ok {
		ret := newPicker(nil, aarch64FloatArgs)
		slots := make([]Slot, n)
		for i := range slots {
			slots[i] = ret.takeFloat(int64(i)*base.ByteSize, base.ByteSize)
		}
		a := newAssignment(t, slots, false, false)
		return &a
	}

	if size > aarch64MaxByValue {
		plan.ReturnByRef = true
		plan.ResultPointer = &Slot{Class: IntReg, Index: aarch64ResultRegNum, Reg: aarch64ResultReg, Size: eightbyte}
		return inMemory(t)
	}

	ret := newPicker(aarch64IntArgs, nil)
	a := newAssignment(t, ret.intChunks(size), false, false)
	return &a
}
