package callconv

import (
	"github.com/samber/lo"

	"github.com/raymyers/ralph-abi/pkg/ctypes"
)

// HFA reports whether t is a homogeneous floating-point aggregate of at
// most maxMembers members: a struct or array whose primitive leaves are all
// the same floating-point type. It returns the member layout and count.
func HFA(t ctypes.Type, maxMembers int) (ctypes.Layout, int, bool) {
	// No member is wider than a double
	if !ctypes.IsAggregate(t) || t.Size() > int64(maxMembers)*eightbyte {
		return ctypes.Layout{}, 0, false
	}
	leaves := ctypes.Flatten(t)
	if len(leaves) == 0 || len(leaves) > maxMembers {
		return ctypes.Layout{}, 0, false
	}
	base := leaves[0].Layout
	if !base.Float {
		return ctypes.Layout{}, 0, false
	}
	same := lo.EveryBy(leaves, func(l ctypes.Leaf) bool {
		return l.Layout.Kind == base.Kind
	})
	// Padding between members disqualifies the aggregate
	if !same || int64(len(leaves))*base.ByteSize != t.Size() {
		return ctypes.Layout{}, 0, false
	}
	return base, len(leaves), true
}

// SysVClasses returns the register class of each eightbyte of t under the
// x86-64 System V rules, or memory=true if t is passed in memory.
func SysVClasses(t ctypes.Type) (classes []Class, memory bool) {
	if l, ok := t.(ctypes.Layout); ok {
		if l.Float {
			return []Class{FloatReg}, false
		}
		return []Class{IntReg}, false
	}
	size := t.Size()
	if size > 2*eightbyte {
		return nil, true
	}
	leaves := ctypes.Flatten(t)
	for i := 0; i < numEightbytes(size); i++ {
		in := ctypes.LeavesIn(leaves, int64(i)*eightbyte, int64(i+1)*eightbyte)
		// An eightbyte is SSE only if everything in it is floating-point
		allFloat := len(in) > 0 && lo.EveryBy(in, func(l ctypes.Leaf) bool {
			return l.Layout.Float
		})
		if allFloat {
			classes = append(classes, FloatReg)
		} else {
			classes = append(classes, IntReg)
		}
	}
	return classes, false
}

// countClasses returns how many integer and float registers classes need
func countClasses(classes []Class) (ints, floats int) {
	for _, c := range classes {
		if c == FloatReg {
			floats++
		} else {
			ints++
		}
	}
	return ints, floats
}

// riscvFPShape describes an aggregate eligible for the RISC-V hard-float
// struct rule: one or two float members, or one float and one integer.
type riscvFPShape struct {
	leaves []ctypes.Leaf
	floats int
	ints   int
}

func riscvFlatten(t ctypes.Type) (riscvFPShape, bool) {
	if t.Size() > 2*eightbyte {
		return riscvFPShape{}, false
	}
	leaves := ctypes.Flatten(t)
	if len(leaves) == 0 || len(leaves) > 2 {
		return riscvFPShape{}, false
	}
	floats := lo.CountBy(leaves, func(l ctypes.Leaf) bool { return l.Layout.Float })
	ints := len(leaves) - floats
	if floats == 0 {
		return riscvFPShape{}, false
	}
	for _, l := range leaves {
		if l.Layout.ByteSize > eightbyte {
			return riscvFPShape{}, false
		}
	}
	return riscvFPShape{leaves: leaves, floats: floats, ints: ints}, true
}
