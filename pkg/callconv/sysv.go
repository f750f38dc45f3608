package callconv

import (
	"github.com/raymyers/ralph-abi/pkg/ctypes"
)

// x86-64 System V. See 3.2.3 Parameter Passing in
// https://gitlab.com/x86-psABIs/x86-64-ABI
//
// Each eightbyte of a value is classified INTEGER or SSE; values larger
// than two eightbytes are MEMORY. A value goes in registers only if every
// eightbyte gets one, otherwise the whole value goes on the stack.
func classifySysV(plan *Plan) {
	d := plan.Descriptor
	picker := newPicker(sysvIntArgs, sysvFloatArgs)

	if d.Return != nil {
		classes, memory := SysVClasses(d.Return)
		if memory {
			// The hidden result pointer is the first integer argument and
			// comes back in rax.
			ptr := picker.takeInt(0, eightbyte)
			plan.ReturnByRef = true
			plan.ResultPointer = &ptr
			plan.Return = inMemory(d.Return)
		} else {
			plan.Return = sysvReturn(d.Return, classes)
		}
	}

	for i, arg := range d.Args {
		plan.Args = append(plan.Args, sysvArg(picker, arg, d.IsVariadic(i)))
	}

	plan.StackSize = ctypes.AlignUp(picker.stack, 2*eightbyte)
	plan.IntRegs = picker.nextInt
	plan.FloatRegs = picker.nextFloat
}

func sysvArg(picker *regPicker, t ctypes.Type, variadic bool) Assignment {
	classes, memory := SysVClasses(t)
	if !memory {
		ints, floats := countClasses(classes)
		if picker.freeInt() >= ints && picker.freeFloat() >= floats {
			size := t.Size()
			slots := make([]Slot, len(classes))
			for i, c := range classes {
				off := int64(i) * eightbyte
				n := min(eightbyte, size-off)
				if c == FloatReg {
					slots[i] = picker.takeFloat(off, n)
				} else {
					slots[i] = picker.takeInt(off, n)
				}
			}
			return newAssignment(t, slots, false, variadic)
		}
	}
	slot := picker.takeStack(0, t.Size(), maxAlign(eightbyte, t.Align()), eightbyte)
	return newAssignment(t, []Slot{slot}, false, variadic)
}

func sysvReturn(t ctypes.Type, classes []Class) *Assignment {
	var nextInt, nextFloat int
	size := t.Size()
	slots := make([]Slot, len(classes))
	for i, c := range classes {
		off := int64(i) * eightbyte
		n := min(eightbyte, size-off)
		if c == FloatReg {
			slots[i] = Slot{Class: FloatReg, Index: nextFloat, Reg: sysvFloatRet[nextFloat], Offset: off, Size: n}
			nextFloat++
		} else {
			slots[i] = Slot{Class: IntReg, Index: nextInt, Reg: sysvIntRet[nextInt], Offset: off, Size: n}
			nextInt++
		}
	}
	a := newAssignment(t, slots, false, false)
	return &a
}
