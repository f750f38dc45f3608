package vararg

import (
	"encoding/binary"

	"github.com/samber/lo"

	"github.com/raymyers/ralph-abi/pkg/callconv"
	"github.com/raymyers/ralph-abi/pkg/ctypes"
)

// x86-64 System V va_list:
//
//	typedef struct {
//		unsigned int gp_offset;     // 0
//		unsigned int fp_offset;     // 4
//		void *overflow_arg_area;    // 8
//		void *reg_save_area;        // 16
//	} va_list[1];
//
// The register save area holds rdi..r9 in its first 48 bytes followed by
// xmm0..xmm7 in 16-byte slots.
const (
	sysvHeaderSize = 24
	sysvGPSize     = 6 * 8
	sysvSaveSize   = sysvGPSize + 8*16
	sysvFPSlot     = 16
)

type sysvList struct{}

func (sysvList) headerSize() int64 { return sysvHeaderSize }

// sysvRegs reports whether t comes from the register save area at the
// current offsets and returns the class of each of its eightbytes.
func sysvRegs(t ctypes.Type, gp, fp uint32) (classes []callconv.Class, ok bool) {
	classes, memory := callconv.SysVClasses(t)
	if memory {
		return nil, false
	}
	floats := lo.Count(classes, callconv.FloatReg)
	ints := len(classes) - floats
	if gp+uint32(ints)*8 > sysvGPSize || fp+uint32(floats)*sysvFPSlot > sysvSaveSize {
		return nil, false
	}
	return classes, true
}

func (sysvList) build(s *Scope, order binary.ByteOrder, args []arg) ([]byte, error) {
	save := make([]byte, sysvSaveSize)
	var overflow []byte
	gp, fp := uint32(0), uint32(sysvGPSize)

	for _, a := range args {
		classes, ok := sysvRegs(a.typ, gp, fp)
		if !ok {
			overflow, _ = appendSlots(overflow, a.img, a.typ.Align())
			continue
		}
		for i, c := range classes {
			chunk := a.img[i*8 : min((i+1)*8, len(a.img))]
			if c == callconv.FloatReg {
				copy(save[fp:], chunk)
				fp += sysvFPSlot
			} else {
				copy(save[gp:], chunk)
				gp += 8
			}
		}
	}

	saveAddr, mem, err := s.Alloc(sysvSaveSize, segmentAlign)
	if err != nil {
		return nil, err
	}
	copy(mem, save)
	overflowAddr, mem, err := s.Alloc(int64(len(overflow)), segmentAlign)
	if err != nil {
		return nil, err
	}
	copy(mem, overflow)

	header := make([]byte, sysvHeaderSize)
	order.PutUint32(header[0:], 0)
	order.PutUint32(header[4:], sysvGPSize)
	order.PutUint64(header[8:], overflowAddr)
	order.PutUint64(header[16:], saveAddr)
	return header, nil
}

func (sysvList) next(s *Scope, order binary.ByteOrder, header []byte, t ctypes.Type) ([]byte, error) {
	gp := order.Uint32(header[0:])
	fp := order.Uint32(header[4:])
	size := imageSize(t)
	img := make([]byte, size)

	if classes, ok := sysvRegs(t, gp, fp); ok {
		save, err := s.Bytes(order.Uint64(header[16:]), sysvSaveSize)
		if err != nil {
			return nil, err
		}
		for i, c := range classes {
			off := int64(i) * 8
			n := min(8, size-off)
			if c == callconv.FloatReg {
				copy(img[off:off+n], save[fp:])
				fp += sysvFPSlot
			} else {
				copy(img[off:off+n], save[gp:])
				gp += 8
			}
		}
		order.PutUint32(header[0:], gp)
		order.PutUint32(header[4:], fp)
		return img, nil
	}

	addr := uint64(ctypes.AlignUp(int64(order.Uint64(header[8:])), max(t.Align(), slotSize)))
	b, err := s.Bytes(addr, size)
	if err != nil {
		return nil, err
	}
	copy(img, b)
	order.PutUint64(header[8:], addr+uint64(ctypes.AlignUp(size, slotSize)))
	return img, nil
}
