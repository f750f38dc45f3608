package callconv

import (
	"github.com/raymyers/ralph-abi/pkg/ctypes"
)

const riscvMaxByValue = 2 * eightbyte

// RISC-V LP64D, "Integer Calling Convention" and "Hardware Floating-point
// Calling Convention" of the psABI.
//
// Integer scalars and small aggregates go in a0-a7; floats in fa0-fa7
// while free and then follow the integer rules. A two-register value that finds only a7
// free is split between a7 and the stack. Variadic arguments always use the
// integer rules.
func classifyRISCV64(plan *Plan) {
	d := plan.Descriptor
	picker := newPicker(riscvIntArgs, riscvFloatArgs)

	if d.Return != nil {
		plan.Return = riscvReturn(plan, picker, d.Return)
	}

	for i, arg := range d.Args {
		variadic := d.IsVariadic(i)
		a := riscvArg(picker, arg, variadic)
		a.Variadic = variadic
		plan.Args = append(plan.Args, a)
	}

	plan.StackSize = ctypes.AlignUp(picker.stack, 2*eightbyte)
	plan.IntRegs = picker.nextInt
	plan.FloatRegs = picker.nextFloat
}

func riscvArg(picker *regPicker, t ctypes.Type, variadic bool) Assignment {
	if !variadic {
		if ctypes.IsFloat(t) && picker.freeFloat() > 0 {
			return newAssignment(t, []Slot{picker.takeFloat(0, t.Size())}, false, false)
		}
		if ctypes.IsAggregate(t) {
			if shape, ok := riscvFlatten(t); ok && picker.freeFloat() >= shape.floats && picker.freeInt() >= shape.ints {
				slots := make([]Slot, len(shape.leaves))
				for i, l := range shape.leaves {
					if l.Layout.Float {
						slots[i] = picker.takeFloat(l.Offset, l.Layout.ByteSize)
					} else {
						slots[i] = picker.takeInt(l.Offset, l.Layout.ByteSize)
					}
				}
				return newAssignment(t, slots, false, false)
			}
		}
	}
	return riscvIntegerArg(picker, t)
}

// riscvIntegerArg applies the integer calling convention
func riscvIntegerArg(picker *regPicker, t ctypes.Type) Assignment {
	size := t.Size()
	if size > riscvMaxByValue {
		if picker.freeInt() > 0 {
			return newAssignment(t, []Slot{picker.takeInt(0, eightbyte)}, true, false)
		}
		return newAssignment(t, []Slot{picker.takeStack(0, eightbyte, eightbyte, eightbyte)}, true, false)
	}

	n := numEightbytes(size)
	switch {
	case picker.freeInt() >= n:
		return newAssignment(t, picker.intChunks(size), false, false)
	case picker.freeInt() == 1 && n == 2:
		low := picker.takeInt(0, eightbyte)
		high := picker.takeStack(eightbyte, size-eightbyte, eightbyte, eightbyte)
		return newAssignment(t, []Slot{low, high}, false, false)
	}
	slot := picker.takeStack(0, size, maxAlign(eightbyte, t.Align()), eightbyte)
	return newAssignment(t, []Slot{slot}, false, false)
}

func riscvReturn(plan *Plan, args *regPicker, t ctypes.Type) *Assignment {
	size := t.Size()
	ret := newPicker(riscvIntArgs[:2], riscvFloatArgs[:2])

	if ctypes.IsFloat(t) {
		a := newAssignment(t, []Slot{ret.takeFloat(0, size)}, false, false)
		return &a
	}
	if ctypes.IsAggregate(t) {
		if shape, ok := riscvFlatten(t); ok {
			slots := make([]Slot, len(shape.leaves))
			for i, l := range shape.leaves {
				if l.Layout.Float {
					slots[i] = ret.takeFloat(l.Offset, l.Layout.ByteSize)
				} else {
					slots[i] = ret.takeInt(l.Offset, l.Layout.ByteSize)
				}
			}
			a := newAssignment(t, slots, false, false)
			return &a
		}
	}
	if size > riscvMaxByValue {
		// The result address is passed in a0 like a first argument
		ptr := args.takeInt(0, eightbyte)
		plan.ReturnByRef = true
		plan.ResultPointer = &ptr
		return inMemory(t)
	}
	a := newAssignment(t, ret.intChunks(size), false, false)
	return &a
}
