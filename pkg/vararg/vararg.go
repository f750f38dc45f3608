// Package vararg builds and reads the native representation of variadic
// arguments (a C va_list) for each calling convention.
//
// Values use canonical Go types: bool for Bool, int8 for Char, int16 for
// Short, int32 for Int, int64 for Long and LongLong, float32 for Float,
// float64 for Double, uint64 for Pointer and VaList, and a []byte memory
// image of exactly the type's size for structs and arrays.
package vararg

import (
	"encoding/binary"
	"fmt"

	"github.com/raymyers/ralph-abi/pkg/cabi"
	"github.com/raymyers/ralph-abi/pkg/ctypes"
)

// representation is the convention-specific shape of a va_list
type representation interface {
	// headerSize is the size of the va_list object itself
	headerSize() int64
	// build lays out args in s and returns the initial header
	build(s *Scope, order binary.ByteOrder, args []arg) ([]byte, error)
	// next reads the image of the next t and advances header in place
	next(s *Scope, order binary.ByteOrder, header []byte, t ctypes.Type) ([]byte, error)
}

func representationFor(conv cabi.Convention) representation {
	switch conv {
	case cabi.SysV:
		return sysvList{}
	case cabi.LinuxAArch64:
		return aapcsList{}
	case cabi.SysVS390x:
		return s390xList{}
	case cabi.Win64, cabi.MacOSAArch64, cabi.WindowsAArch64,
		cabi.LinuxRISCV64, cabi.SysVPPC64LE, cabi.AIXPPC64:
		return flatList{conv: conv}
	}
	panic("vararg: unhandled convention " + conv.String())
}

type arg struct {
	typ ctypes.Type
	img []byte
}

// Builder collects the arguments of one variadic call
type Builder struct {
	conv  cabi.Convention
	order binary.ByteOrder
	scope *Scope
	args  []arg
}

// NewBuilder starts a va_list for conv whose memory lives in scope
func NewBuilder(conv cabi.Convention, scope *Scope) *Builder {
	if !conv.Valid() {
		panic(fmt.Sprintf("vararg: invalid convention %v", conv))
	}
	return &Builder{conv: conv, order: conv.ByteOrder(), scope: scope}
}

// Add appends a value of type t. The value must have the canonical Go type
// for t; anything else is a programming error and panics.
func (b *Builder) Add(t ctypes.Type, v any) *Builder {
	if err := ctypes.Check(t); err != nil {
		panic("vararg: " + err.Error())
	}
	b.args = append(b.args, arg{typ: t, img: image(b.order, t, v)})
	return b
}

// Len returns the number of values added so far
func (b *Builder) Len() int {
	return len(b.args)
}

// Build lays out the collected values in the builder's scope
func (b *Builder) Build() (*List, error) {
	repr := representationFor(b.conv)
	header, err := repr.build(b.scope, b.order, b.args)
	if err != nil {
		return nil, err
	}
	return newList(b.conv, b.scope, repr, header)
}

// List is a built va_list. Reading advances it, as va_arg does; use Copy
// to read the remaining values more than once.
type List struct {
	conv  cabi.Convention
	scope *Scope
	repr  representation
	addr  uint64
}

func newList(conv cabi.Convention, scope *Scope, repr representation, header []byte) (*List, error) {
	addr, mem, err := scope.Alloc(repr.headerSize(), slotSize)
	if err != nil {
		return nil, err
	}
	copy(mem, header)
	return &List{conv: conv, scope: scope, repr: repr, addr: addr}, nil
}

// Convention returns the convention the list was built for
func (l *List) Convention() cabi.Convention { return l.conv }

// Address returns the address of the va_list object in its scope. This is
// the value passed to a callee taking a va_list.
func (l *List) Address() uint64 { return l.addr }

// Header returns a copy of the current va_list object
func (l *List) Header() ([]byte, error) {
	return l.scope.Read(l.addr, l.repr.headerSize())
}

// Copy returns an independent list positioned where l is, like va_copy.
// Both lists share the argument areas.
func (l *List) Copy() (*List, error) {
	header, err := l.Header()
	if err != nil {
		return nil, err
	}
	return newList(l.conv, l.scope, l.repr, header)
}

// Reader returns a reader that consumes l
func (l *List) Reader() *Reader {
	return &Reader{list: l}
}

// Reader reads values back out of a List
type Reader struct {
	list *List
}

// Next reads the next value, which must have been added as type t
func (r *Reader) Next(t ctypes.Type) (any, error) {
	l := r.list
	header, err := l.scope.Bytes(l.addr, l.repr.headerSize())
	if err != nil {
		return nil, err
	}
	order := l.conv.ByteOrder()
	img, err := l.repr.next(l.scope, order, header, t)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", t, err)
	}
	return value(order, t, img), nil
}

// Skip advances past values of the given types
func (r *Reader) Skip(types ...ctypes.Type) error {
	for _, t := range types {
		if _, err := r.Next(t); err != nil {
			return err
		}
	}
	return nil
}
