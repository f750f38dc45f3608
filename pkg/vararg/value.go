package vararg

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/raymyers/ralph-abi/pkg/ctypes"
)

const slotSize = 8

// promote encodes a primitive value the way a variadic call passes it: in
// a full 8-byte slot, integers sign-extended from their C width and float
// widened to double.
func promote(order binary.ByteOrder, l ctypes.Layout, v any) []byte {
	var raw uint64
	switch l.Kind {
	case ctypes.Bool:
		if want[bool](l, v) {
			raw = 1
		}
	case ctypes.Char:
		raw = uint64(int64(want[int8](l, v)))
	case ctypes.Short:
		raw = uint64(int64(want[int16](l, v)))
	case ctypes.Int:
		raw = uint64(int64(want[int32](l, v)))
	case ctypes.Long, ctypes.LongLong:
		raw = signExtend(uint64(want[int64](l, v)), l.ByteSize)
	case ctypes.Float:
		raw = math.Float64bits(float64(want[float32](l, v)))
	case ctypes.Double:
		raw = math.Float64bits(want[float64](l, v))
	case ctypes.Pointer, ctypes.VaList:
		raw = want[uint64](l, v)
	default:
		panic(fmt.Sprintf("vararg: unknown kind %d", int(l.Kind)))
	}
	b := make([]byte, slotSize)
	order.PutUint64(b, raw)
	return b
}

// demote decodes an 8-byte promoted slot back to the canonical value of
// l. The whole slot is read from its base address, so a promoted float is
// narrowed from the double stored there on either byte order.
func demote(order binary.ByteOrder, l ctypes.Layout, b []byte) any {
	raw := order.Uint64(b[:slotSize])
	switch l.Kind {
	case ctypes.Bool:
		return raw != 0
	case ctypes.Char:
		return int8(raw)
	case ctypes.Short:
		return int16(raw)
	case ctypes.Int:
		return int32(raw)
	case ctypes.Long, ctypes.LongLong:
		return int64(signExtend(raw, l.ByteSize))
	case ctypes.Float:
		return float32(math.Float64frombits(raw))
	case ctypes.Double:
		return math.Float64frombits(raw)
	case ctypes.Pointer, ctypes.VaList:
		return raw
	}
	panic(fmt.Sprintf("vararg: unknown kind %d", int(l.Kind)))
}

// signExtend truncates v to size bytes and sign-extends it back to 64 bits
func signExtend(v uint64, size int64) uint64 {
	if size >= 8 {
		return v
	}
	shift := 64 - 8*size
	return uint64(int64(v<<shift) >> shift)
}

func want[T any](l ctypes.Layout, v any) T {
	x, ok := v.(T)
	if !ok {
		var zero T
		panic(fmt.Sprintf("vararg: %s wants a %T value, got %T", l.Kind, zero, v))
	}
	return x
}

// image returns the bytes a value occupies in a variadic representation:
// a promoted slot for primitives, the raw memory image for aggregates.
func image(order binary.ByteOrder, t ctypes.Type, v any) []byte {
	if l, ok := t.(ctypes.Layout); ok {
		return promote(order, l, v)
	}
	b, ok := v.([]byte)
	if !ok || int64(len(b)) != t.Size() {
		panic(fmt.Sprintf("vararg: %s wants a %d-byte image, got %T", t, t.Size(), v))
	}
	return append([]byte(nil), b...)
}

// imageSize is the number of bytes image returns for t
func imageSize(t ctypes.Type) int64 {
	if ctypes.IsAggregate(t) {
		return t.Size()
	}
	return slotSize
}

// value converts an image read back from memory into the canonical value
func value(order binary.ByteOrder, t ctypes.Type, b []byte) any {
	if l, ok := t.(ctypes.Layout); ok {
		return demote(order, l, b)
	}
	return append([]byte(nil), b...)
}

// appendSlots aligns buf to align and appends img padded to whole 8-byte
// slots. It returns the grown buffer and the offset img was placed at.
func appendSlots(buf, img []byte, align int64) ([]byte, int64) {
	off := ctypes.AlignUp(int64(len(buf)), max(align, slotSize))
	buf = append(buf, make([]byte, off-int64(len(buf)))...)
	buf = append(buf, img...)
	end := ctypes.AlignUp(int64(len(buf)), slotSize)
	return append(buf, make([]byte, end-int64(len(buf)))...), off
}

// pointerImage encodes an address as an 8-byte slot
func pointerImage(order binary.ByteOrder, addr uint64) []byte {
	b := make([]byte, slotSize)
	order.PutUint64(b, addr)
	return b
}
