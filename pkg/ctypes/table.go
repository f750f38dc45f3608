package ctypes

import (
	"github.com/raymyers/ralph-abi/pkg/cabi"
)

func scalar(k Kind, size, align int64) Layout {
	return Layout{Kind: k, ByteSize: size, ByteAlign: align, Float: k.IsFloat()}
}

// The layouts shared by every supported convention. Conventions differ
// only in long and double.
var (
	boolLayout     = scalar(Bool, 1, 1)
	charLayout     = scalar(Char, 1, 1)
	shortLayout    = scalar(Short, 2, 2)
	intLayout      = scalar(Int, 4, 4)
	longLongLayout = scalar(LongLong, 8, 8)
	floatLayout    = scalar(Float, 4, 4)
	pointerLayout  = scalar(Pointer, 8, 8)
	vaListLayout   = scalar(VaList, 8, 8)

	long64   = scalar(Long, 8, 8)
	long32   = scalar(Long, 4, 4)
	double64 = scalar(Double, 8, 8)

	// AIX aligns double to a word inside aggregates.
	doubleAIX = scalar(Double, 8, 4)
)

var tables = buildTables()

func buildTables() [][numKinds]Layout {
	t := make([][numKinds]Layout, len(cabi.All))
	for _, c := range cabi.All {
		row := [numKinds]Layout{
			Bool:     boolLayout,
			Char:     charLayout,
			Short:    shortLayout,
			Int:      intLayout,
			Long:     long64,
			LongLong: longLongLayout,
			Float:    floatLayout,
			Double:   double64,
			Pointer:  pointerLayout,
			VaList:   vaListLayout,
		}
		switch c {
		case cabi.Win64:
			row[Long] = long32
		case cabi.AIXPPC64:
			row[Long] = long32
			row[Double] = doubleAIX
		}
		t[c] = row
	}
	return t
}

// LayoutOf returns the layout of kind k under convention c.
// It panics if c or k is outside its enumeration.
func LayoutOf(c cabi.Convention, k Kind) Layout {
	if !c.Valid() || !k.Valid() {
		panic("ctypes: no layout for " + k.String() + " under " + c.String())
	}
	return tables[c][k]
}

// Table returns every primitive layout of convention c in kind order.
func Table(c cabi.Convention) []Layout {
	out := make([]Layout, 0, numKinds)
	for _, k := range Kinds {
		out = append(out, LayoutOf(c, k))
	}
	return out
}

// Sizes binds the layout table of one convention, so callers can write
// sz.Int() instead of LayoutOf(c, Int).
type Sizes struct {
	Conv cabi.Convention
}

// For returns the layout table of convention c.
func For(c cabi.Convention) Sizes { return Sizes{Conv: c} }

func (s Sizes) Bool() Layout     { return LayoutOf(s.Conv, Bool) }
func (s Sizes) Char() Layout     { return LayoutOf(s.Conv, Char) }
func (s Sizes) Short() Layout    { return LayoutOf(s.Conv, Short) }
func (s Sizes) Int() Layout      { return LayoutOf(s.Conv, Int) }
func (s Sizes) Long() Layout     { return LayoutOf(s.Conv, Long) }
func (s Sizes) LongLong() Layout { return LayoutOf(s.Conv, LongLong) }
func (s Sizes) Float() Layout    { return LayoutOf(s.Conv, Float) }
func (s Sizes) Double() Layout   { return LayoutOf(s.Conv, Double) }
func (s Sizes) Pointer() Layout  { return LayoutOf(s.Conv, Pointer) }
func (s Sizes) VaList() Layout   { return LayoutOf(s.Conv, VaList) }
