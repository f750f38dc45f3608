package vararg

import (
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/raymyers/ralph-abi/pkg/ctypes"
)

var (
	// ErrScopeClosed is returned when memory of a closed scope is used
	ErrScopeClosed = errors.New("scope closed")
	// ErrOutOfBounds is returned for addresses outside every segment
	ErrOutOfBounds = errors.New("address out of bounds")
)

const (
	scopeBase    = 0x10000
	scopeStride  = 0x1000000
	segmentAlign = 16
)

var scopeCount atomic.Uint64

// Segment is one allocation of a scope
type Segment struct {
	Addr uint64
	Data []byte
}

// Scope is the memory of a single call. Addresses are simulated: each scope
// hands out increasing addresses from its own range, and nothing it owns
// may be used after Close. A scope belongs to one goroutine.
type Scope struct {
	segments []Segment
	next     uint64
	closed   bool
}

// NewScope opens a new, empty scope
func NewScope() *Scope {
	n := scopeCount.Add(1) - 1
	return &Scope{next: scopeBase + n*scopeStride}
}

// Alloc reserves size zeroed bytes aligned to align (at least 16) and
// returns their address and a live view of them.
func (s *Scope) Alloc(size, align int64) (uint64, []byte, error) {
	if s.closed {
		return 0, nil, ErrScopeClosed
	}
	addr := uint64(ctypes.AlignUp(int64(s.next), max(align, segmentAlign)))
	data := make([]byte, size)
	s.segments = append(s.segments, Segment{Addr: addr, Data: data})
	// Keep an unused gap so adjacent segments never look contiguous
	s.next = addr + uint64(max(size, 1)) + segmentAlign
	return addr, data, nil
}

// Bytes returns a live view of size bytes at addr
func (s *Scope) Bytes(addr uint64, size int64) ([]byte, error) {
	if s.closed {
		return nil, ErrScopeClosed
	}
	i := sort.Search(len(s.segments), func(i int) bool {
		seg := s.segments[i]
		return seg.Addr+uint64(len(seg.Data)) > addr
	})
	if i < len(s.segments) {
		seg := s.segments[i]
		end := seg.Addr + uint64(len(seg.Data))
		if addr >= seg.Addr && size >= 0 && addr+uint64(size) <= end {
			off := addr - seg.Addr
			return seg.Data[off : off+uint64(size)], nil
		}
	}
	return nil, fmt.Errorf("%w: %d bytes at %#x", ErrOutOfBounds, size, addr)
}

// Read returns a copy of size bytes at addr
func (s *Scope) Read(addr uint64, size int64) ([]byte, error) {
	b, err := s.Bytes(addr, size)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

// Segments lists the allocations of the scope in address order
func (s *Scope) Segments() []Segment {
	return s.segments
}

// Close releases the scope. Every later access fails with ErrScopeClosed.
func (s *Scope) Close() {
	s.closed = true
	s.segments = nil
}

// Closed reports whether Close was called
func (s *Scope) Closed() bool {
	return s.closed
}
