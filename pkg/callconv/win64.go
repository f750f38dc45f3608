package callconv

import (
	"github.com/raymyers/ralph-abi/pkg/ctypes"
)

const win64ShadowSpace = 32

// fitsScalarSlot reports whether an aggregate of size bytes can travel like
// an integer of the same size. Anything else is passed as a pointer to a
// caller-made copy.
func fitsScalarSlot(size int64) bool {
	return size == 1 || size == 2 || size == 4 || size == 8
}

// Microsoft x64. Arguments take positional slots: slot k uses the k-th
// integer or float register for k < 4, otherwise the stack above the
// 32-byte shadow area. Variadic floats are duplicated into the integer
// register of their slot.
func classifyWin64(plan *Plan) {
	d := plan.Descriptor
	pos := 0

	slotFor := func(isFloat bool, offset, size int64) Slot {
		defer func() { pos++ }()
		if pos < len(win64IntArgs) {
			if isFloat {
				return Slot{Class: FloatReg, Index: pos, Reg: win64FloatArgs[pos], Offset: offset, Size: size}
			}
			return Slot{Class: IntReg, Index: pos, Reg: win64IntArgs[pos], Offset: offset, Size: size}
		}
		return Slot{Class: Stack, Index: win64ShadowSpace + (pos-len(win64IntArgs))*eightbyte, Offset: offset, Size: size}
	}

	if d.Return != nil {
		switch {
		case ctypes.IsFloat(d.Return):
			plan.Return = &Assignment{Type: d.Return, Class: FloatReg,
				Slots: []Slot{{Class: FloatReg, Reg: "xmm0", Size: d.Return.Size()}}}
		case !ctypes.IsAggregate(d.Return) || fitsScalarSlot(d.Return.Size()):
			plan.Return = &Assignment{Type: d.Return, Class: IntReg,
				Slots: []Slot{{Class: IntReg, Reg: "rax", Size: d.Return.Size()}}}
		default:
			ptr := slotFor(false, 0, eightbyte)
			plan.ReturnByRef = true
			plan.ResultPointer = &ptr
			plan.Return = inMemory(d.Return)
		}
	}

	for i, arg := range d.Args {
		variadic := d.IsVariadic(i)
		switch {
		case ctypes.IsFloat(arg):
			p := pos
			slot := slotFor(true, 0, arg.Size())
			slots := []Slot{slot}
			if variadic && slot.Class == FloatReg {
				slots = append(slots, Slot{Class: IntReg, Index: p, Reg: win64IntArgs[p], Size: arg.Size(), Shadow: true})
			}
			plan.Args = append(plan.Args, newAssignment(arg, slots, false, variadic))
		case ctypes.IsAggregate(arg) && !fitsScalarSlot(arg.Size()):
			plan.Args = append(plan.Args, newAssignment(arg, []Slot{slotFor(false, 0, eightbyte)}, true, variadic))
		default:
			plan.Args = append(plan.Args, newAssignment(arg, []Slot{slotFor(false, 0, arg.Size())}, false, variadic))
		}
	}

	for _, a := range plan.Args {
		for _, s := range a.Slots {
			if s.Shadow {
				continue
			}
			switch s.Class {
			case IntReg:
				plan.IntRegs++
			case FloatReg:
				plan.FloatRegs++
			}
		}
	}
	if plan.ResultPointer != nil && plan.ResultPointer.Class == IntReg {
		plan.IntRegs++
	}
	stackSlots := max(0, pos-len(win64IntArgs))
	plan.StackSize = ctypes.AlignUp(int64(win64ShadowSpace+stackSlots*eightbyte), 2*eightbyte)
}
