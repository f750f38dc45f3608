// Package callconv assigns the arguments and return value of a native call
// to registers and stack slots according to a calling convention.
package callconv

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/raymyers/ralph-abi/pkg/ctypes"
)

// ErrInvalidCallShape is returned for descriptors that cannot describe a
// native call: unknown kinds, empty aggregates, a bad variadic index.
var ErrInvalidCallShape = errors.New("invalid call shape")

// Descriptor describes the shape of one native call: the return type
// (nil for void) and the ordered argument types. When Variadic is set,
// arguments from FirstVariadic on are passed through the "..." parameter.
type Descriptor struct {
	Return        ctypes.Type
	Args          []ctypes.Type
	Variadic      bool
	FirstVariadic int
}

// Func returns the descriptor of a prototyped, non-variadic function
func Func(ret ctypes.Type, args ...ctypes.Type) Descriptor {
	return Descriptor{Return: ret, Args: args}
}

// VarFunc returns the descriptor of a variadic function whose first
// fixed arguments are named and the rest are passed through "...".
func VarFunc(ret ctypes.Type, fixed int, args ...ctypes.Type) Descriptor {
	return Descriptor{Return: ret, Args: args, Variadic: true, FirstVariadic: fixed}
}

// IsVariadic reports whether argument i is passed through "..."
func (d Descriptor) IsVariadic(i int) bool {
	return d.Variadic && i >= d.FirstVariadic
}

// Validate checks the structural preconditions of the descriptor
func (d Descriptor) Validate() error {
	if d.Return != nil {
		if err := ctypes.Check(d.Return); err != nil {
			return fmt.Errorf("%w: return: %v", ErrInvalidCallShape, err)
		}
	}
	for i, a := range d.Args {
		if err := ctypes.Check(a); err != nil {
			return fmt.Errorf("%w: argument %d: %v", ErrInvalidCallShape, i, err)
		}
	}
	if d.Variadic && (d.FirstVariadic < 0 || d.FirstVariadic > len(d.Args)) {
		return fmt.Errorf("%w: variadic index %d out of range [0, %d]",
			ErrInvalidCallShape, d.FirstVariadic, len(d.Args))
	}
	return nil
}

// Key returns a canonical encoding of the descriptor's shape. Structurally
// identical descriptors have equal keys.
func (d Descriptor) Key() string {
	var b strings.Builder
	b.WriteString(ctypes.Shape(d.Return))
	b.WriteString("(")
	for i, a := range d.Args {
		if i > 0 {
			b.WriteString(",")
		}
		if d.Variadic && i == d.FirstVariadic {
			b.WriteString("...")
		}
		b.WriteString(ctypes.Shape(a))
	}
	if d.Variadic && d.FirstVariadic == len(d.Args) {
		b.WriteString("...")
	}
	b.WriteString(")")
	return b.String()
}

// String renders the descriptor in C declaration syntax, e.g.
// "int(void*, ...int, double)".
func (d Descriptor) String() string {
	var b strings.Builder
	if d.Return == nil {
		b.WriteString("void")
	} else {
		b.WriteString(d.Return.String())
	}
	b.WriteString("(")
	for i, a := range d.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		if d.Variadic && i == d.FirstVariadic {
			b.WriteString("...")
		}
		b.WriteString(a.String())
	}
	if d.Variadic && d.FirstVariadic == len(d.Args) {
		if len(d.Args) > 0 {
			b.WriteString(", ")
		}
		b.WriteString("...")
	}
	b.WriteString(")")
	return b.String()
}

// argName labels argument i in printed plans
func argName(i int) string {
	return "arg" + strconv.Itoa(i)
}
