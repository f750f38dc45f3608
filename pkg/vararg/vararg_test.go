package vararg

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/raymyers/ralph-abi/pkg/cabi"
	"github.com/raymyers/ralph-abi/pkg/ctypes"
)

func sample(k ctypes.Kind, i int) any {
	n := i + 1
	switch k {
	case ctypes.Bool:
		return i%2 == 0
	case ctypes.Char:
		return int8(-n)
	case ctypes.Short:
		return int16(-300 * n)
	case ctypes.Int:
		return int32(-70000 * n)
	case ctypes.Long:
		return int64(-100000 * n)
	case ctypes.LongLong:
		return int64(-1) << 40 * int64(n)
	case ctypes.Float:
		return float32(1.25) * float32(n)
	case ctypes.Double:
		return 3.5e100 * float64(n)
	case ctypes.Pointer, ctypes.VaList:
		return uint64(0xdead0000 + n)
	}
	panic("no sample")
}

// pattern returns a recognizable memory image of n bytes
func pattern(n int64, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i)
	}
	return b
}

type entry struct {
	typ ctypes.Type
	val any
}

func roundTrip(t *testing.T, conv cabi.Convention, entries []entry) {
	t.Helper()
	scope := NewScope()
	defer scope.Close()

	b := NewBuilder(conv, scope)
	for _, e := range entries {
		b.Add(e.typ, e.val)
	}
	list, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	r := list.Reader()
	for i, e := range entries {
		got, err := r.Next(e.typ)
		if err != nil {
			t.Fatalf("value %d (%s): %v", i, e.typ, err)
		}
		if img, ok := e.val.([]byte); ok {
			if !bytes.Equal(got.([]byte), img) {
				t.Errorf("value %d (%s) = %x, want %x", i, e.typ, got, img)
			}
			continue
		}
		if got != e.val {
			t.Errorf("value %d (%s) = %v (%T), want %v (%T)", i, e.typ, got, got, e.val, e.val)
		}
	}
}

func TestRoundTripPrimitives(t *testing.T) {
	for _, conv := range cabi.All {
		t.Run(conv.String(), func(t *testing.T) {
			for _, k := range ctypes.Kinds {
				l := ctypes.LayoutOf(conv, k)
				roundTrip(t, conv, []entry{{l, sample(k, 0)}})
			}

			// Enough of everything to overflow every register save area
			var all []entry
			for i := 0; i < 12; i++ {
				for _, k := range ctypes.Kinds {
					all = append(all, entry{ctypes.LayoutOf(conv, k), sample(k, i)})
				}
			}
			roundTrip(t, conv, all)
		})
	}
}

func TestRoundTripStructs(t *testing.T) {
	for _, conv := range cabi.All {
		t.Run(conv.String(), func(t *testing.T) {
			s := ctypes.For(conv)
			floats4 := ctypes.StructOf(s.Float(), s.Float(), s.Float(), s.Float())
			doubles2 := ctypes.StructOf(s.Double(), s.Double())
			ints2 := ctypes.StructOf(s.Int(), s.Int())
			longs3 := ctypes.StructOf(s.LongLong(), s.LongLong(), s.LongLong())
			chars3 := ctypes.StructOf(s.Char(), s.Char(), s.Char())
			wrapped := ctypes.StructOf(s.Float())
			mixed := ctypes.StructOf(s.Double(), s.Int())

			entries := []entry{
				{s.Pointer(), uint64(0x1000)},
				{floats4, pattern(16, 0x10)},
				{s.Int(), int32(7)},
				{doubles2, pattern(16, 0x20)},
				{s.Int(), int32(8)},
				{s.LongLong(), int64(9)},
				{ints2, pattern(8, 0x30)},
				{longs3, pattern(24, 0x40)},
				{chars3, pattern(3, 0x50)},
				{wrapped, pattern(4, 0x60)},
				{mixed, pattern(mixed.Size(), 0x70)},
				{s.Double(), 2.5},
			}
			// AIX doubles are only 4-byte aligned, so no tail padding
			if conv == cabi.AIXPPC64 && mixed.Size() != 12 {
				t.Errorf("AIX struct { double; int } is %d bytes, want 12", mixed.Size())
			}
			roundTrip(t, conv, entries)

			// The same again with the registers already taken
			var pre []entry
			for i := 0; i < 9; i++ {
				pre = append(pre, entry{s.Long(), int64(i)}, entry{s.Double(), float64(i)})
			}
			roundTrip(t, conv, append(pre, entries...))
		})
	}
}

func TestCopy(t *testing.T) {
	for _, conv := range cabi.All {
		t.Run(conv.String(), func(t *testing.T) {
			s := ctypes.For(conv)
			scope := NewScope()
			defer scope.Close()

			list, err := NewBuilder(conv, scope).
				Add(s.Int(), int32(1)).
				Add(s.Double(), 2.0).
				Add(s.Int(), int32(3)).
				Build()
			if err != nil {
				t.Fatal(err)
			}
			if err := list.Reader().Skip(s.Int()); err != nil {
				t.Fatal(err)
			}

			cp, err := list.Copy()
			if err != nil {
				t.Fatal(err)
			}
			if cp.Address() == list.Address() {
				t.Error("copy shares the va_list object")
			}
			cr := cp.Reader()
			if v, _ := cr.Next(s.Double()); v != 2.0 {
				t.Errorf("copy: got %v, want 2", v)
			}
			if v, _ := cr.Next(s.Int()); v != int32(3) {
				t.Errorf("copy: got %v, want 3", v)
			}

			// The original is still positioned after the first value
			if v, _ := list.Reader().Next(s.Double()); v != 2.0 {
				t.Errorf("original: got %v, want 2", v)
			}
		})
	}
}

func TestClosedScope(t *testing.T) {
	s := ctypes.For(cabi.SysV)
	scope := NewScope()
	list, err := NewBuilder(cabi.SysV, scope).Add(s.Int(), int32(1)).Build()
	if err != nil {
		t.Fatal(err)
	}
	scope.Close()

	if _, err := list.Reader().Next(s.Int()); !errors.Is(err, ErrScopeClosed) {
		t.Errorf("Next after Close: err = %v, want ErrScopeClosed", err)
	}
	if _, err := list.Header(); !errors.Is(err, ErrScopeClosed) {
		t.Errorf("Header after Close: err = %v, want ErrScopeClosed", err)
	}
	if _, err := NewBuilder(cabi.SysV, scope).Add(s.Int(), int32(1)).Build(); !errors.Is(err, ErrScopeClosed) {
		t.Errorf("Build in closed scope: err = %v, want ErrScopeClosed", err)
	}
}

func TestReadPastEnd(t *testing.T) {
	s := ctypes.For(cabi.Win64)
	scope := NewScope()
	defer scope.Close()
	list, err := NewBuilder(cabi.Win64, scope).Add(s.Int(), int32(1)).Build()
	if err != nil {
		t.Fatal(err)
	}
	r := list.Reader()
	if err := r.Skip(s.Int()); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Next(s.Int()); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("err = %v, want ErrOutOfBounds", err)
	}
}

// A float is stored as the double it promotes to, and must be read back
// from the start of its 8-byte slot even on big-endian targets.
func TestFloatPromotionBigEndian(t *testing.T) {
	const f = float32(1.5)
	for _, conv := range []cabi.Convention{cabi.AIXPPC64, cabi.SysVPPC64LE, cabi.Win64} {
		t.Run(conv.String(), func(t *testing.T) {
			order := conv.ByteOrder()
			scope := NewScope()
			defer scope.Close()

			list, err := NewBuilder(conv, scope).Add(ctypes.LayoutOf(conv, ctypes.Float), f).Build()
			if err != nil {
				t.Fatal(err)
			}
			header, _ := list.Header()
			slot, err := scope.Read(order.Uint64(header), 8)
			if err != nil {
				t.Fatal(err)
			}
			if got := math.Float64frombits(order.Uint64(slot)); got != 1.5 {
				t.Errorf("slot holds %v, want the promoted double 1.5", got)
			}
			if conv.BigEndian() {
				if got := math.Float32frombits(order.Uint32(slot)); got == f {
					t.Error("first four bytes should not alias the float")
				}
			}
			v, err := list.Reader().Next(ctypes.LayoutOf(conv, ctypes.Float))
			if err != nil || v != f {
				t.Errorf("Next = %v, %v; want %v", v, err, f)
			}
		})
	}
}

func TestSysVHeader(t *testing.T) {
	s := ctypes.For(cabi.SysV)
	scope := NewScope()
	defer scope.Close()

	b := NewBuilder(cabi.SysV, scope)
	for i := 0; i < 7; i++ {
		b.Add(s.Int(), int32(i))
	}
	b.Add(s.Float(), float32(0.5))
	list, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}

	header, _ := list.Header()
	if len(header) != 24 {
		t.Fatalf("header is %d bytes, want 24", len(header))
	}
	if gp, fp := binary.LittleEndian.Uint32(header), binary.LittleEndian.Uint32(header[4:]); gp != 0 || fp != 48 {
		t.Errorf("gp_offset, fp_offset = %d, %d; want 0, 48", gp, fp)
	}
	overflow := binary.LittleEndian.Uint64(header[8:])

	r := list.Reader()
	for i := 0; i < 6; i++ {
		r.Next(s.Int())
	}
	header, _ = list.Header()
	if gp := binary.LittleEndian.Uint32(header); gp != 48 {
		t.Errorf("gp_offset = %d after six ints, want 48", gp)
	}
	if v, _ := r.Next(s.Int()); v != int32(6) {
		t.Errorf("seventh int = %v, want 6", v)
	}
	header, _ = list.Header()
	if got := binary.LittleEndian.Uint64(header[8:]); got != overflow+8 {
		t.Errorf("overflow_arg_area = %#x, want %#x", got, overflow+8)
	}

	// The float went to xmm0's slot as a double
	save, _ := scope.Read(binary.LittleEndian.Uint64(header[16:])+48, 8)
	if got := math.Float64frombits(binary.LittleEndian.Uint64(save)); got != 0.5 {
		t.Errorf("xmm0 slot = %v, want 0.5", got)
	}
}

func TestAAPCSHeader(t *testing.T) {
	s := ctypes.For(cabi.LinuxAArch64)
	scope := NewScope()
	defer scope.Close()

	hfa := ctypes.StructOf(s.Float(), s.Float())
	img := make([]byte, 8)
	binary.LittleEndian.PutUint32(img, math.Float32bits(1))
	binary.LittleEndian.PutUint32(img[4:], math.Float32bits(2))

	list, err := NewBuilder(cabi.LinuxAArch64, scope).Add(hfa, img).Add(s.Int(), int32(5)).Build()
	if err != nil {
		t.Fatal(err)
	}
	header, _ := list.Header()
	if len(header) != 32 {
		t.Fatalf("header is %d bytes, want 32", len(header))
	}
	grOffs := int32(binary.LittleEndian.Uint32(header[24:]))
	vrOffs := int32(binary.LittleEndian.Uint32(header[28:]))
	if grOffs != -64 || vrOffs != -128 {
		t.Errorf("offsets = %d, %d; want -64, -128", grOffs, vrOffs)
	}

	// Each HFA member has its own 16-byte vector register slot
	vrTop := binary.LittleEndian.Uint64(header[16:])
	second, _ := scope.Read(vrTop-128+16, 4)
	if got := math.Float32frombits(binary.LittleEndian.Uint32(second)); got != 2 {
		t.Errorf("v1 = %v, want 2", got)
	}

	r := list.Reader()
	r.Skip(hfa)
	header, _ = list.Header()
	if vrOffs := int32(binary.LittleEndian.Uint32(header[28:])); vrOffs != -96 {
		t.Errorf("__vr_offs = %d after HFA, want -96", vrOffs)
	}
}

func TestS390xLayout(t *testing.T) {
	s := ctypes.For(cabi.SysVS390x)
	scope := NewScope()
	defer scope.Close()

	list, err := NewBuilder(cabi.SysVS390x, scope).
		Add(s.Int(), int32(-2)).
		Add(s.Float(), float32(0.25)).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	header, _ := list.Header()
	save := binary.BigEndian.Uint64(header[24:])

	r2, _ := scope.Read(save+16, 8)
	if got := int64(binary.BigEndian.Uint64(r2)); got != -2 {
		t.Errorf("r2 slot = %d, want -2", got)
	}
	f0, _ := scope.Read(save+128, 8)
	if got := math.Float64frombits(binary.BigEndian.Uint64(f0)); got != 0.25 {
		t.Errorf("f0 slot = %v, want 0.25", got)
	}

	list.Reader().Skip(s.Int())
	header, _ = list.Header()
	if gpr := binary.BigEndian.Uint64(header); gpr != 1 {
		t.Errorf("__gpr = %d, want 1", gpr)
	}
}

func TestAddWrongType(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for an int passed as double")
		}
	}()
	NewBuilder(cabi.SysV, NewScope()).Add(ctypes.LayoutOf(cabi.SysV, ctypes.Double), 1)
}

func TestScopeAddresses(t *testing.T) {
	scope := NewScope()
	a, _, _ := scope.Alloc(3, 1)
	b, _, _ := scope.Alloc(8, 8)
	if a%16 != 0 || b%16 != 0 {
		t.Errorf("addresses %#x, %#x not 16-aligned", a, b)
	}
	if b <= a+3 {
		t.Errorf("segments overlap or touch: %#x, %#x", a, b)
	}
	if _, err := scope.Bytes(a+2, 2); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("read across a segment end: err = %v", err)
	}
	other := NewScope()
	c, _, _ := other.Alloc(8, 8)
	if _, err := scope.Bytes(c, 8); !errors.Is(err, ErrOutOfBounds) {
		t.Error("address of another scope resolved")
	}
}

func TestLargeAggregateShape(t *testing.T) {
	s := ctypes.For(cabi.SysVS390x)
	buf := ctypes.StructOf(ctypes.ArrayOf(s.Char(), 1<<24))

	var float, byRef bool
	var shape aapcsShape
	allocs := testing.AllocsPerRun(2, func() {
		float = s390xFloat(buf)
		byRef = s390xByRef(buf)
		shape = aapcsShapeOf(buf)
	})
	if allocs != 0 {
		t.Errorf("shape checks on a 16 MiB struct allocated %v times", allocs)
	}
	if float || !byRef {
		t.Errorf("s390x: float=%v byRef=%v, want a by-reference integer", float, byRef)
	}
	if shape.vector || !shape.byRef {
		t.Errorf("aarch64: shape = %+v, want by reference", shape)
	}
}
