package ctypes

import (
	"fmt"
	"math"

	"github.com/samber/lo"
)

// Leaf is a primitive member of an aggregate at an absolute byte offset
type Leaf struct {
	Offset int64
	Layout Layout
}

// Flatten lists the primitive leaves of t in memory order, descending into
// nested structs and arrays. A primitive flattens to itself at offset 0.
func Flatten(t Type) []Leaf {
	return flatten(t, 0)
}

func flatten(t Type, base int64) []Leaf {
	switch tt := t.(type) {
	case Layout:
		return []Leaf{{Offset: base, Layout: tt}}
	case *Struct:
		return lo.FlatMap(tt.Fields, func(f Field, _ int) []Leaf {
			return flatten(f.Type, base+f.Offset)
		})
	case Array:
		return lo.FlatMap(lo.Range(int(tt.Len)), func(i int, _ int) []Leaf {
			return flatten(tt.Elem, base+int64(i)*tt.Elem.Size())
		})
	}
	return nil
}

// LeavesIn returns the leaves that start within [from, to)
func LeavesIn(leaves []Leaf, from, to int64) []Leaf {
	return lo.Filter(leaves, func(l Leaf, _ int) bool {
		return l.Offset >= from && l.Offset < to
	})
}

// Check reports structural problems that make t unusable across a call:
// unknown primitive kinds, empty aggregates and empty arrays, and sizes
// that overflow int64.
func Check(t Type) error {
	switch tt := t.(type) {
	case nil:
		return fmt.Errorf("missing type")
	case Layout:
		if !tt.Kind.Valid() {
			return fmt.Errorf("unknown primitive kind %d", int(tt.Kind))
		}
		if tt.ByteSize <= 0 || tt.ByteAlign <= 0 {
			return fmt.Errorf("%s: invalid layout %d/%d", tt.Kind, tt.ByteSize, tt.ByteAlign)
		}
	case *Struct:
		if tt == nil || len(tt.Fields) == 0 || tt.size == 0 {
			return fmt.Errorf("zero-length aggregate")
		}
		for _, f := range tt.Fields {
			if err := Check(f.Type); err != nil {
				return fmt.Errorf("field %s: %w", f.Name, err)
			}
			// A wrapped offset or size leaves a member ending outside the struct
			end := f.Offset + f.Type.Size()
			if f.Offset < 0 || end < f.Offset || end > tt.size {
				return fmt.Errorf("field %s: struct size overflows", f.Name)
			}
		}
	case Array:
		if tt.Len <= 0 {
			return fmt.Errorf("zero-length array")
		}
		if err := Check(tt.Elem); err != nil {
			return fmt.Errorf("array element: %w", err)
		}
		if tt.Elem.Size() > math.MaxInt64/tt.Len {
			return fmt.Errorf("array size overflows")
		}
	default:
		return fmt.Errorf("unsupported type %T", t)
	}
	return nil
}
