package vararg

import (
	"encoding/binary"

	"github.com/raymyers/ralph-abi/pkg/ctypes"
)

// s390x va_list:
//
//	typedef struct {
//		long __gpr;                 // 0: general registers consumed
//		long __fpr;                 // 8: float registers consumed
//		void *__overflow_arg_area;  // 16
//		void *__reg_save_area;      // 24
//	} va_list[1];
//
// The 160-byte register save area keeps r2..r6 at offset 16 and f0, f2,
// f4, f6 at offset 128, 8 bytes each. Integers shorter than 8 bytes are
// right-justified in their slot; a short float aggregate sits at the start
// of its float register but is right-justified on the stack.
const (
	s390xHeaderSize = 32
	s390xSaveSize   = 160
	s390xGPROffset  = 16
	s390xFPROffset  = 128
	s390xGPRs       = 5
	s390xFPRs       = 4
)

type s390xList struct{}

func (s390xList) headerSize() int64 { return s390xHeaderSize }

// s390xFloat reports whether t travels in a float register: a float or
// double, or an aggregate wrapping exactly one of them.
func s390xFloat(t ctypes.Type) bool {
	if ctypes.IsFloat(t) {
		return true
	}
	if !ctypes.IsAggregate(t) || t.Size() > slotSize {
		return false
	}
	leaves := ctypes.Flatten(t)
	return len(leaves) == 1 && leaves[0].Layout.Float && leaves[0].Layout.ByteSize == t.Size()
}

func s390xByRef(t ctypes.Type) bool {
	if !ctypes.IsAggregate(t) || s390xFloat(t) {
		return false
	}
	switch t.Size() {
	case 1, 2, 4, 8:
		return false
	}
	return true
}

func (s390xList) build(s *Scope, order binary.ByteOrder, args []arg) ([]byte, error) {
	save := make([]byte, s390xSaveSize)
	var overflow []byte
	var gpr, fpr int64

	for _, a := range args {
		img := a.img
		if s390xFloat(a.typ) {
			if fpr < s390xFPRs {
				copy(save[s390xFPROffset+fpr*slotSize:], img)
				fpr++
				continue
			}
		} else {
			if s390xByRef(a.typ) {
				addr, mem, err := s.Alloc(int64(len(img)), a.typ.Align())
				if err != nil {
					return nil, err
				}
				copy(mem, img)
				img = pointerImage(order, addr)
			}
			if gpr < s390xGPRs {
				copy(save[s390xGPROffset+gpr*slotSize+slotSize-int64(len(img)):], img)
				gpr++
				continue
			}
		}
		slot := make([]byte, slotSize)
		copy(slot[slotSize-len(img):], img)
		overflow = append(overflow, slot...)
	}

	saveAddr, mem, err := s.Alloc(s390xSaveSize, segmentAlign)
	if err != nil {
		return nil, err
	}
	copy(mem, save)
	overflowAddr, mem, err := s.Alloc(int64(len(overflow)), segmentAlign)
	if err != nil {
		return nil, err
	}
	copy(mem, overflow)

	header := make([]byte, s390xHeaderSize)
	order.PutUint64(header[16:], overflowAddr)
	order.PutUint64(header[24:], saveAddr)
	return header, nil
}

func (s390xList) next(s *Scope, order binary.ByteOrder, header []byte, t ctypes.Type) ([]byte, error) {
	size := imageSize(t)
	gpr := int64(order.Uint64(header[0:]))
	fpr := int64(order.Uint64(header[8:]))
	save := order.Uint64(header[24:])

	var img []byte
	var err error
	float := s390xFloat(t)
	byRef := s390xByRef(t)
	n := size
	if byRef {
		n = slotSize
	}

	switch {
	case float && fpr < s390xFPRs:
		img, err = s.Read(save+uint64(s390xFPROffset+fpr*slotSize), n)
		order.PutUint64(header[8:], uint64(fpr+1))
	case !float && gpr < s390xGPRs:
		img, err = s.Read(save+uint64(s390xGPROffset+gpr*slotSize+slotSize-n), n)
		order.PutUint64(header[0:], uint64(gpr+1))
	default:
		overflow := order.Uint64(header[16:])
		img, err = s.Read(overflow+uint64(slotSize-n), n)
		order.PutUint64(header[16:], overflow+slotSize)
	}
	if err != nil || !byRef {
		return img, err
	}
	return s.Read(order.Uint64(img), size)
}
