package callconv

import (
	"github.com/raymyers/ralph-abi/pkg/cabi"
	"github.com/raymyers/ralph-abi/pkg/ctypes"
)

// Class tags where a value, or one piece of it, is passed
type Class int

const (
	IntReg   Class = iota // general-purpose register
	FloatReg              // floating-point / vector register
	Stack                 // outgoing argument area
	Split                 // registers followed by stack
	Mixed                 // both register files, no stack
)

func (c Class) String() string {
	switch c {
	case IntReg:
		return "INTEGER"
	case FloatReg:
		return "FLOAT"
	case Stack:
		return "STACK"
	case Split:
		return "SPLIT"
	case Mixed:
		return "MIXED"
	}
	return "?"
}

// Slot is one register or stack location carrying bytes of a value
type Slot struct {
	Class Class // IntReg, FloatReg or Stack

	// Register ordinal within its register file, or byte offset within the
	// outgoing argument area for stack slots.
	Index int
	Reg   string // empty for stack slots

	Offset int64 // first byte of the value carried
	Size   int64 // number of bytes carried

	// Shadow slots duplicate another slot of the same argument (Win64
	// variadic floats) and do not count towards the argument's class.
	Shadow bool
}

// Assignment is where a single argument or return value is passed
type Assignment struct {
	Type  ctypes.Type
	Class Class
	Slots []Slot

	// ByRef is set when the caller passes a pointer to a copy of the value;
	// Slots then carry the pointer.
	ByRef    bool
	Variadic bool
}

// Plan is the register/stack assignment of a whole call.
// Plans may be shared between callers and must be treated as read-only.
type Plan struct {
	Convention cabi.Convention
	Descriptor Descriptor

	Args   []Assignment
	Return *Assignment // nil for void

	// ReturnByRef is set when the result is written to caller memory whose
	// address is passed in ResultPointer.
	ReturnByRef   bool
	ResultPointer *Slot

	// StackSize is the number of bytes of outgoing argument area the call
	// needs, including any area reserved by the convention.
	StackSize int64

	// Registers consumed by arguments. On SysV FloatRegs is the value placed
	// in %al before a variadic call.
	IntRegs   int
	FloatRegs int
}

// StackSlots returns the number of argument slots assigned to the stack
func (p *Plan) StackSlots() int {
	n := 0
	for _, a := range p.Args {
		for _, s := range a.Slots {
			if s.Class == Stack {
				n++
			}
		}
	}
	return n
}

// classOf derives an assignment's class from its slots
func classOf(slots []Slot) Class {
	var hasInt, hasFloat, hasStack bool
	for _, s := range slots {
		if s.Shadow {
			continue
		}
		switch s.Class {
		case IntReg:
			hasInt = true
		case FloatReg:
			hasFloat = true
		case Stack:
			hasStack = true
		}
	}
	switch {
	case hasStack && (hasInt || hasFloat):
		return Split
	case hasStack || len(slots) == 0:
		return Stack
	case hasInt && hasFloat:
		return Mixed
	case hasFloat:
		return FloatReg
	}
	return IntReg
}

func newAssignment(t ctypes.Type, slots []Slot, byRef, variadic bool) Assignment {
	return Assignment{
		Type:     t,
		Class:    classOf(slots),
		Slots:    slots,
		ByRef:    byRef,
		Variadic: variadic,
	}
}

// inMemory is the return assignment of a value written through a hidden
// result pointer
func inMemory(t ctypes.Type) *Assignment {
	return &Assignment{Type: t, Class: Stack, ByRef: true}
}
