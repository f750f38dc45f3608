// Package ctypes defines the C types that cross a native call boundary:
// primitive layouts, fixed arrays and structs.
package ctypes

import (
	"strconv"
	"strings"
)

// Type is the interface for all C types with a concrete layout
type Type interface {
	implType()
	String() string
	Size() int64
	Align() int64
}

// Kind enumerates the primitive C types
type Kind int

const (
	Bool Kind = iota
	Char
	Short
	Int
	Long
	LongLong
	Float
	Double
	Pointer
	VaList

	numKinds
)

// Kinds lists every primitive kind in declaration order
var Kinds = []Kind{Bool, Char, Short, Int, Long, LongLong, Float, Double, Pointer, VaList}

var kindNames = []string{"bool", "char", "short", "int", "long", "long long", "float", "double", "void*", "va_list"}

func (k Kind) String() string {
	if k >= 0 && k < numKinds {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Valid reports whether k is one of the enumerated kinds
func (k Kind) Valid() bool {
	return k >= 0 && k < numKinds
}

// IsFloat reports whether values of kind k are floating-point
func (k Kind) IsFloat() bool {
	return k == Float || k == Double
}

// Layout is the layout of a primitive C type under some convention
type Layout struct {
	Kind      Kind
	ByteSize  int64
	ByteAlign int64
	Float     bool
}

// Field is a struct member. Offset is filled in by NewStruct.
type Field struct {
	Name   string
	Type   Type
	Offset int64
}

// Struct is a C struct with naturally aligned members
type Struct struct {
	Name   string
	Fields []Field

	size  int64
	align int64
}

// Array is a fixed-length C array
type Array struct {
	Elem Type
	Len  int64
}

// Marker methods for Type interface
func (Layout) implType()  {}
func (*Struct) implType() {}
func (Array) implType()   {}

func (l Layout) Size() int64  { return l.ByteSize }
func (l Layout) Align() int64 { return l.ByteAlign }

// BitAlignment returns the alignment in bits
func (l Layout) BitAlignment() int64 { return l.ByteAlign * 8 }

func (l Layout) String() string { return l.Kind.String() }

func (s *Struct) Size() int64  { return s.size }
func (s *Struct) Align() int64 { return s.align }

func (s *Struct) String() string {
	if s.Name != "" {
		return "struct " + s.Name
	}
	var b strings.Builder
	b.WriteString("struct {")
	for i, f := range s.Fields {
		if i > 0 {
			b.WriteString(";")
		}
		b.WriteString(" ")
		b.WriteString(f.Type.String())
		if f.Name != "" {
			b.WriteString(" ")
			b.WriteString(f.Name)
		}
	}
	b.WriteString(" }")
	return b.String()
}

func (a Array) Size() int64  { return a.Elem.Size() * a.Len }
func (a Array) Align() int64 { return a.Elem.Align() }

// String renders the array in C order, outermost dimension first:
// two arrays of three ints is "int[2][3]".
func (a Array) String() string {
	var dims strings.Builder
	var t Type = a
	for {
		arr, ok := t.(Array)
		if !ok {
			break
		}
		dims.WriteString("[" + strconv.FormatInt(arr.Len, 10) + "]")
		t = arr.Elem
	}
	if t == nil {
		return "?" + dims.String()
	}
	return t.String() + dims.String()
}

// F returns a field to be placed by NewStruct
func F(name string, t Type) Field {
	return Field{Name: name, Type: t}
}

// NewStruct lays out the given fields in order. Each field is placed at the
// next offset that is a multiple of its alignment; the struct is aligned to
// its most aligned member and its size is rounded up to that alignment.
func NewStruct(name string, fields ...Field) *Struct {
	s := &Struct{Name: name, Fields: make([]Field, len(fields)), align: 1}
	var off int64
	for i, f := range fields {
		a := f.Type.Align()
		off = AlignUp(off, a)
		s.Fields[i] = Field{Name: f.Name, Type: f.Type, Offset: off}
		off += f.Type.Size()
		if a > s.align {
			s.align = a
		}
	}
	s.size = AlignUp(off, s.align)
	return s
}

// StructOf lays out an anonymous struct of unnamed members
func StructOf(types ...Type) *Struct {
	fields := make([]Field, len(types))
	for i, t := range types {
		fields[i] = Field{Name: "f" + strconv.Itoa(i), Type: t}
	}
	return NewStruct("", fields...)
}

// ArrayOf returns an n-element array of elem
func ArrayOf(elem Type, n int64) Array {
	return Array{Elem: elem, Len: n}
}

// FieldByName returns the named member
func (s *Struct) FieldByName(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// AlignUp rounds n up to the nearest multiple of align
func AlignUp(n, align int64) int64 {
	if align == 0 {
		return n
	}
	return ((n + align - 1) / align) * align
}

// IsAggregate reports whether t is a struct or array
func IsAggregate(t Type) bool {
	switch t.(type) {
	case *Struct, Array:
		return true
	}
	return false
}

// IsFloat reports whether t is a floating-point primitive
func IsFloat(t Type) bool {
	l, ok := t.(Layout)
	return ok && l.Float
}

// Equal reports whether two types have identical shape: the same primitive
// layouts at the same offsets. Struct and field names are ignored.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return Shape(a) == Shape(b)
}

// Shape returns a canonical encoding of t's layout, suitable as a map key.
func Shape(t Type) string {
	var b strings.Builder
	writeShape(&b, t)
	return b.String()
}

func writeShape(b *strings.Builder, t Type) {
	switch tt := t.(type) {
	case nil:
		b.WriteString("v")
	case Layout:
		b.WriteString(strconv.Itoa(int(tt.Kind)))
		b.WriteString(":")
		b.WriteString(strconv.FormatInt(tt.ByteSize, 10))
		b.WriteString("/")
		b.WriteString(strconv.FormatInt(tt.ByteAlign, 10))
	case *Struct:
		b.WriteString("{")
		for i, f := range tt.Fields {
			if i > 0 {
				b.WriteString(",")
			}
			writeShape(b, f.Type)
			b.WriteString("@")
			b.WriteString(strconv.FormatInt(f.Offset, 10))
		}
		b.WriteString("}")
		b.WriteString(strconv.FormatInt(tt.size, 10))
	case Array:
		b.WriteString("[")
		b.WriteString(strconv.FormatInt(tt.Len, 10))
		b.WriteString("]")
		writeShape(b, tt.Elem)
	default:
		b.WriteString("?")
	}
}
