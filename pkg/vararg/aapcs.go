package vararg

import (
	"encoding/binary"

	"github.com/raymyers/ralph-abi/pkg/callconv"
	"github.com/raymyers/ralph-abi/pkg/ctypes"
)

// AAPCS64 va_list (Linux):
//
//	typedef struct {
//		void *__stack;    // 0: next stacked argument
//		void *__gr_top;   // 8: end of the general register save area
//		void *__vr_top;   // 16: end of the vector register save area
//		int   __gr_offs;  // 24: negative offset of the next x register
//		int   __vr_offs;  // 28: negative offset of the next v register
//	} va_list;
//
// Saved x registers take 8 bytes each and v registers 16 bytes each.
const (
	aapcsHeaderSize = 32
	aapcsGRSize     = 8 * 8
	aapcsVRSize     = 8 * 16
	aapcsVRSlot     = 16
	aapcsMaxHFA     = 4
	aapcsMaxByValue = 16
)

type aapcsList struct{}

func (aapcsList) headerSize() int64 { return aapcsHeaderSize }

// aapcsTake claims n bytes of a register save area whose next free
// offset is *offs. Once an argument does not fit, the offset goes positive
// and every later argument of that class is read from the stack.
func aapcsTake(offs *int32, n int32) (int32, bool) {
	old := *offs
	if old >= 0 {
		return 0, false
	}
	*offs = old + n
	if *offs > 0 {
		return 0, false
	}
	return old, true
}

// aapcsShape describes how t travels through a va_list
type aapcsShape struct {
	vector bool          // float or HFA, read from the v registers
	member ctypes.Layout // HFA member
	count  int           // number of HFA members
	byRef  bool          // passed as a pointer to a copy
}

func aapcsShapeOf(t ctypes.Type) aapcsShape {
	if ctypes.IsFloat(t) {
		return aapcsShape{vector: true, member: t.(ctypes.Layout), count: 1}
	}
	if base, n, ok := callconv.HFA(t, aapcsMaxHFA); ok {
		return aapcsShape{vector: true, member: base, count: n}
	}
	return aapcsShape{byRef: ctypes.IsAggregate(t) && t.Size() > aapcsMaxByValue}
}

func (aapcsList) build(s *Scope, order binary.ByteOrder, args []arg) ([]byte, error) {
	gr := make([]byte, aapcsGRSize)
	vr := make([]byte, aapcsVRSize)
	var stack []byte
	grOffs, vrOffs := int32(-aapcsGRSize), int32(-aapcsVRSize)

	for _, a := range args {
		shape := aapcsShapeOf(a.typ)
		img := a.img

		if shape.vector {
			if off, ok := aapcsTake(&vrOffs, int32(shape.count)*aapcsVRSlot); ok {
				if ctypes.IsFloat(a.typ) {
					copy(vr[aapcsVRSize+off:], img)
					continue
				}
				m := shape.member.ByteSize
				for i := 0; i < shape.count; i++ {
					copy(vr[aapcsVRSize+off+int32(i)*aapcsVRSlot:], img[int64(i)*m:int64(i+1)*m])
				}
				continue
			}
			stack, _ = appendSlots(stack, img, a.typ.Align())
			continue
		}

		if shape.byRef {
			addr, mem, err := s.Alloc(int64(len(img)), a.typ.Align())
			if err != nil {
				return nil, err
			}
			copy(mem, img)
			img = pointerImage(order, addr)
		}
		n := ctypes.AlignUp(int64(len(img)), slotSize)
		if off, ok := aapcsTake(&grOffs, int32(n)); ok {
			copy(gr[aapcsGRSize+off:], img)
			continue
		}
		stack, _ = appendSlots(stack, img, a.typ.Align())
	}

	grAddr, mem, err := s.Alloc(aapcsGRSize, segmentAlign)
	if err != nil {
		return nil, err
	}
	copy(mem, gr)
	vrAddr, mem, err := s.Alloc(aapcsVRSize, segmentAlign)
	if err != nil {
		return nil, err
	}
	copy(mem, vr)
	stackAddr, mem, err := s.Alloc(int64(len(stack)), segmentAlign)
	if err != nil {
		return nil, err
	}
	copy(mem, stack)

	header := make([]byte, aapcsHeaderSize)
	order.PutUint64(header[0:], stackAddr)
	order.PutUint64(header[8:], grAddr+aapcsGRSize)
	order.PutUint64(header[16:], vrAddr+aapcsVRSize)
	putInt32(order, header[24:], -aapcsGRSize)
	putInt32(order, header[28:], -aapcsVRSize)
	return header, nil
}

func (aapcsList) next(s *Scope, order binary.ByteOrder, header []byte, t ctypes.Type) ([]byte, error) {
	shape := aapcsShapeOf(t)
	size := imageSize(t)
	grOffs := int32(order.Uint32(header[24:]))
	vrOffs := int32(order.Uint32(header[28:]))

	// fromStack reads n bytes of the stacked argument area
	fromStack := func(n, align int64) ([]byte, error) {
		addr := uint64(ctypes.AlignUp(int64(order.Uint64(header[0:])), max(align, slotSize)))
		b, err := s.Read(addr, n)
		if err != nil {
			return nil, err
		}
		order.PutUint64(header[0:], addr+uint64(ctypes.AlignUp(n, slotSize)))
		return b, nil
	}

	if shape.vector {
		off, ok := aapcsTake(&vrOffs, int32(shape.count)*aapcsVRSlot)
		putInt32(order, header[28:], vrOffs)
		if !ok {
			return fromStack(size, t.Align())
		}
		base := order.Uint64(header[16:]) + uint64(int64(off))
		if ctypes.IsFloat(t) {
			return s.Read(base, size)
		}
		img := make([]byte, 0, size)
		m := shape.member.ByteSize
		for i := 0; i < shape.count; i++ {
			b, err := s.Bytes(base+uint64(i*aapcsVRSlot), m)
			if err != nil {
				return nil, err
			}
			img = append(img, b...)
		}
		return img, nil
	}

	n := size
	if shape.byRef {
		n = slotSize
	}
	off, ok := aapcsTake(&grOffs, int32(ctypes.AlignUp(n, slotSize)))
	putInt32(order, header[24:], grOffs)
	var img []byte
	var err error
	if ok {
		img, err = s.Read(order.Uint64(header[8:])+uint64(int64(off)), n)
	} else {
		img, err = fromStack(n, t.Align())
	}
	if err != nil || !shape.byRef {
		return img, err
	}
	return s.Read(order.Uint64(img), size)
}

func putInt32(order binary.ByteOrder, b []byte, v int32) {
	order.PutUint32(b, uint32(v))
}
