package vararg

import (
	"encoding/binary"

	"github.com/raymyers/ralph-abi/pkg/cabi"
	"github.com/raymyers/ralph-abi/pkg/callconv"
	"github.com/raymyers/ralph-abi/pkg/ctypes"
)

const flatHeaderSize = slotSize

// flatList is a va_list that is a plain char* walking an array of 8-byte
// slots: Win64, Apple and Windows AArch64, RISC-V and both PowerPC ABIs.
// Aggregates are stored inline, rounded up to whole slots, unless the
// convention passes them by reference.
type flatList struct {
	conv cabi.Convention
}

func (flatList) headerSize() int64 { return flatHeaderSize }

func (f flatList) byRef(t ctypes.Type) bool {
	if !ctypes.IsAggregate(t) {
		return false
	}
	size := t.Size()
	switch f.conv {
	case cabi.Win64:
		return size != 1 && size != 2 && size != 4 && size != 8
	case cabi.MacOSAArch64:
		_, _, hfa := callconv.HFA(t, aapcsMaxHFA)
		return size > aapcsMaxByValue && !hfa
	case cabi.WindowsAArch64, cabi.LinuxRISCV64:
		return size > 2*slotSize
	}
	return false
}

func (f flatList) build(s *Scope, order binary.ByteOrder, args []arg) ([]byte, error) {
	var slots []byte
	for _, a := range args {
		img := a.img
		if f.byRef(a.typ) {
			addr, mem, err := s.Alloc(int64(len(img)), a.typ.Align())
			if err != nil {
				return nil, err
			}
			copy(mem, img)
			img = pointerImage(order, addr)
		}
		slots, _ = appendSlots(slots, img, slotSize)
	}

	addr, mem, err := s.Alloc(int64(len(slots)), segmentAlign)
	if err != nil {
		return nil, err
	}
	copy(mem, slots)
	return pointerImage(order, addr), nil
}

func (f flatList) next(s *Scope, order binary.ByteOrder, header []byte, t ctypes.Type) ([]byte, error) {
	size := imageSize(t)
	byRef := f.byRef(t)
	n := size
	if byRef {
		n = slotSize
	}
	cur := order.Uint64(header)
	img, err := s.Read(cur, n)
	if err != nil {
		return nil, err
	}
	order.PutUint64(header, cur+uint64(ctypes.AlignUp(n, slotSize)))
	if byRef {
		return s.Read(order.Uint64(img), size)
	}
	return img, nil
}
