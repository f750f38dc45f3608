package callconv

import (
	"github.com/raymyers/ralph-abi/pkg/ctypes"
)

// Argument registers of each convention, in assignment order.
var (
	sysvIntArgs   = []string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}
	sysvFloatArgs = []string{"xmm0", "xmm1", "xmm2", "xmm3", "xmm4", "xmm5", "xmm6", "xmm7"}
	sysvIntRet    = []string{"rax", "rdx"}
	sysvFloatRet  = []string{"xmm0", "xmm1"}

	win64IntArgs   = []string{"rcx", "rdx", "r8", "r9"}
	win64FloatArgs = []string{"xmm0", "xmm1", "xmm2", "xmm3"}

	// AAPCS64: x8 carries the indirect result address
	aarch64IntArgs   = []string{"x0", "x1", "x2", "x3", "x4", "x5", "x6", "x7"}
	aarch64FloatArgs = []string{"v0", "v1", "v2", "v3", "v4", "v5", "v6", "v7"}

	riscvIntArgs   = []string{"a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7"}
	riscvFloatArgs = []string{"fa0", "fa1", "fa2", "fa3", "fa4", "fa5", "fa6", "fa7"}

	ppcIntArgs   = []string{"r3", "r4", "r5", "r6", "r7", "r8", "r9", "r10"}
	ppcFloatArgs = []string{"f1", "f2", "f3", "f4", "f5", "f6", "f7", "f8", "f9", "f10", "f11", "f12", "f13"}

	s390xIntArgs   = []string{"r2", "r3", "r4", "r5", "r6"}
	s390xFloatArgs = []string{"f0", "f2", "f4", "f6"}
)

const eightbyte = 8

// regPicker hands out argument registers and stack space in order. It
// mirrors the NGRN / NSRN / NSAA counters of the AAPCS64 and the
// equivalent bookkeeping of the other conventions.
type regPicker struct {
	intRegs   []string
	floatRegs []string

	nextInt   int
	nextFloat int
	stack     int64
}

func newPicker(intRegs, floatRegs []string) *regPicker {
	return &regPicker{intRegs: intRegs, floatRegs: floatRegs}
}

func (p *regPicker) freeInt() int   { return len(p.intRegs) - p.nextInt }
func (p *regPicker) freeFloat() int { return len(p.floatRegs) - p.nextFloat }

// exhaustInt marks every integer register used, so later arguments go to
// the stack rather than back-filling registers.
func (p *regPicker) exhaustInt()   { p.nextInt = len(p.intRegs) }
func (p *regPicker) exhaustFloat() { p.nextFloat = len(p.floatRegs) }

func (p *regPicker) takeInt(offset, size int64) Slot {
	s := Slot{Class: IntReg, Index: p.nextInt, Reg: p.intRegs[p.nextInt], Offset: offset, Size: size}
	p.nextInt++
	return s
}

func (p *regPicker) takeFloat(offset, size int64) Slot {
	s := Slot{Class: FloatReg, Index: p.nextFloat, Reg: p.floatRegs[p.nextFloat], Offset: offset, Size: size}
	p.nextFloat++
	return s
}

// takeStack reserves size bytes at the given alignment, rounding the
// reserved space up to a multiple of slot.
func (p *regPicker) takeStack(offset, size, align, slot int64) Slot {
	p.stack = ctypes.AlignUp(p.stack, align)
	s := Slot{Class: Stack, Index: int(p.stack), Offset: offset, Size: size}
	p.stack += ctypes.AlignUp(size, slot)
	return s
}

// intChunks splits size bytes into eightbyte-sized integer register slots
func (p *regPicker) intChunks(size int64) []Slot {
	var slots []Slot
	for off := int64(0); off < size; off += eightbyte {
		slots = append(slots, p.takeInt(off, min(eightbyte, size-off)))
	}
	return slots
}

func numEightbytes(size int64) int {
	return int((size + eightbyte - 1) / eightbyte)
}

func maxAlign(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
