package callconv

import (
	"github.com/raymyers/ralph-abi/pkg/cabi"
	"github.com/raymyers/ralph-abi/pkg/ctypes"
)

const (
	ppcMaxHFA       = 8
	ppcMaxByValue   = 16 // ELFv2 returns larger aggregates through r3
	ppcGPRArgs      = 8
	ppcMinSaveArea  = 8 * eightbyte
	ppcResultReg    = "r3"
	ppcFloatRetRegs = 8
)

// 64-bit PowerPC, ELFv2 (Linux little-endian) and the AIX ABI.
//
// Arguments are laid out in a parameter save area of doublewords. The
// first eight doublewords travel in r3-r10 instead of memory; a value
// whose doublewords straddle that boundary is split. Non-variadic floats
// and (ELFv2 only) homogeneous float aggregates use f1-f13 but still
// consume their doublewords. Variadic arguments only ever use the
// doubleword image.
func classifyPPC64(plan *Plan) {
	d := plan.Descriptor
	aix := plan.Convention == cabi.AIXPPC64
	dw := 0
	fprs := newPicker(nil, ppcFloatArgs)

	// word returns the location of doubleword dw and advances it
	word := func(offset, size int64) Slot {
		defer func() { dw++ }()
		if dw < ppcGPRArgs {
			return Slot{Class: IntReg, Index: dw, Reg: ppcIntArgs[dw], Offset: offset, Size: size}
		}
		return Slot{Class: Stack, Index: dw * eightbyte, Offset: offset, Size: size}
	}
	// memory places size bytes in the save area without using any register
	memory := func(size int64) Slot {
		s := Slot{Class: Stack, Index: dw * eightbyte, Size: size}
		dw += numEightbytes(size)
		return s
	}

	if d.Return != nil {
		plan.Return = ppcReturn(plan, d.Return, aix)
		if plan.ReturnByRef {
			ptr := word(0, eightbyte)
			plan.ResultPointer = &ptr
		}
	}

	for i, arg := range d.Args {
		variadic := d.IsVariadic(i)
		size := arg.Size()
		var a Assignment

		switch {
		case ctypes.IsFloat(arg) && !variadic:
			if fprs.freeFloat() > 0 {
				slot := fprs.takeFloat(0, size)
				dw++
				a = newAssignment(arg, []Slot{slot}, false, false)
			} else {
				a = newAssignment(arg, []Slot{memory(size)}, false, false)
			}
		case !ctypes.IsAggregate(arg):
			a = newAssignment(arg, []Slot{word(0, size)}, false, false)
		default:
			if !aix && !variadic {
				if base, n, ok := HFA(arg, ppcMaxHFA); ok {
					if fprs.freeFloat() >= n {
						slots := make([]Slot, n)
						for j := range slots {
							slots[j] = fprs.takeFloat(int64(j)*base.ByteSize, base.ByteSize)
						}
						dw += numEightbytes(size)
						a = newAssignment(arg, slots, false, false)
					} else {
						a = newAssignment(arg, []Slot{memory(size)}, false, false)
					}
					break
				}
			}
			var slots []Slot
			for off := int64(0); off < size; off += eightbyte {
				slots = append(slots, word(off, min(eightbyte, size-off)))
			}
			a = newAssignment(arg, ppcMerge(slots), false, false)
		}
		a.Variadic = variadic
		plan.Args = append(plan.Args, a)
	}

	for _, a := range plan.Args {
		for _, s := range a.Slots {
			if s.Class == IntReg {
				plan.IntRegs++
			}
		}
	}
	if plan.ResultPointer != nil {
		plan.IntRegs++
	}
	plan.FloatRegs = fprs.nextFloat

	// ELFv2 only requires a save area when something lives in memory or
	// the callee is variadic; AIX always reserves one.
	if aix || dw > ppcGPRArgs || d.Variadic {
		plan.StackSize = max(ppcMinSaveArea, int64(dw)*eightbyte)
	}
}

// ppcMerge folds consecutive stack doublewords of one value into a single
// stack slot.
func ppcMerge(slots []Slot) []Slot {
	var out []Slot
	for _, s := range slots {
		if n := len(out); n > 0 && s.Class == Stack && out[n-1].Class == Stack {
			out[n-1].Size += s.Size
			continue
		}
		out = append(out, s)
	}
	return out
}

func ppcReturn(plan *Plan, t ctypes.Type, aix bool) *Assignment {
	size := t.Size()
	if ctypes.IsFloat(t) {
		return &Assignment{Type: t, Class: FloatReg, Slots: []Slot{{Class: FloatReg, Reg: "f1", Size: size}}}
	}
	if !ctypes.IsAggregate(t) {
		return &Assignment{Type: t, Class: IntReg, Slots: []Slot{{Class: IntReg, Reg: ppcResultReg, Size: size}}}
	}

	if !aix {
		if base, n, ok := HFA(t, ppcFloatRetRegs); ok {
			ret := newPicker(nil, ppcFloatArgs)
			slots := make([]Slot, n)
			for i := range slots {
				slots[i] = ret.takeFloat(int64(i)*base.ByteSize, base.ByteSize)
			}
			a := newAssignment(t, slots, false, false)
			return &a
		}
		if size <= ppcMaxByValue {
			ret := newPicker(ppcIntArgs[:2], nil)
			a := newAssignment(t, ret.intChunks(size), false, false)
			return &a
		}
	}

	// The caller passes the result address as a hidden first argument
	plan.ReturnByRef = true
	return inMemory(t)
}
