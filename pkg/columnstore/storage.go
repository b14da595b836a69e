package columnstore

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	mmap "github.com/edsrzf/mmap-go"

	"fastprop/pkg/errs"
)

// Numeric is the set of fixed-width scalar kinds a Storage can back either
// with a heap slice or with a memory-mapped file, per §4.1 and the "one
// variant per storage kind, uniform read view" guidance in §9.
type Numeric interface{ ~float64 | ~int64 }

// Storage is the uniform read/write view over a column's backing memory,
// regardless of whether it is heap-allocated or memory-mapped.
type Storage[T Numeric] interface {
	Get(i int) T
	Set(i int, v T) error
	Len() int
	NBytes() uint64
	Close() error
}

// heapStorage is the in-memory backing used when no Pool is supplied to New.
type heapStorage[T Numeric] struct {
	data []T
}

func newHeapStorage[T Numeric](length int) *heapStorage[T] {
	return &heapStorage[T]{data: make([]T, length)}
}

func (s *heapStorage[T]) Get(i int) T  { return s.data[i] }
func (s *heapStorage[T]) Len() int     { return len(s.data) }
func (s *heapStorage[T]) NBytes() uint64 {
	var zero T
	return uint64(len(s.data)) * uint64(sizeOf(zero))
}
func (s *heapStorage[T]) Close() error { return nil }

func (s *heapStorage[T]) Set(i int, v T) error {
	if i < 0 || i >= len(s.data) {
		return errs.New(errs.Internal, "INDEX_OUT_OF_RANGE", fmt.Sprintf("index %d out of range [0,%d)", i, len(s.data)))
	}
	s.data[i] = v
	return nil
}

func sizeOf[T Numeric](T) int { return 8 }

// Pool names the scratch directory used for memory-mapped columns. Passing a
// non-nil Pool to New selects the memory-mapped backing variant.
type Pool struct {
	Dir string
}

// mmapStorage is the file-backed variant. It reinterprets a byte-level mmap
// as a fixed-width numeric array using encoding/binary, matching the layout
// cockroachdb's colserde package uses edsrzf/mmap-go for.
type mmapStorage[T Numeric] struct {
	file   *os.File
	region mmap.MMap
	length int
}

func newMmapStorage[T Numeric](pool *Pool, length int) (*mmapStorage[T], error) {
	f, err := os.CreateTemp(pool.Dir, "fastprop-col-*.dat")
	if err != nil {
		return nil, errs.Wrap(errs.Capacity, "MMAP_CREATE_FAILED", err)
	}
	nbytes := int64(length) * 8
	if nbytes == 0 {
		nbytes = 8 // mmap requires a non-empty file
	}
	if err := f.Truncate(nbytes); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, errs.Wrap(errs.Capacity, "MMAP_TRUNCATE_FAILED", err)
	}
	region, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, errs.Wrap(errs.Capacity, "MMAP_MAP_FAILED", err)
	}
	return &mmapStorage[T]{file: f, region: region, length: length}, nil
}

func (s *mmapStorage[T]) Get(i int) T {
	bits := binary.LittleEndian.Uint64(s.region[i*8 : i*8+8])
	var zero T
	switch any(zero).(type) {
	case float64:
		return any(math.Float64frombits(bits)).(T)
	default:
		return any(int64(bits)).(T)
	}
}

func (s *mmapStorage[T]) Set(i int, v T) error {
	if i < 0 || i >= s.length {
		return errs.New(errs.Internal, "INDEX_OUT_OF_RANGE", fmt.Sprintf("index %d out of range [0,%d)", i, s.length))
	}
	var bits uint64
	switch val := any(v).(type) {
	case float64:
		bits = math.Float64bits(val)
	case int64:
		bits = uint64(val)
	}
	binary.LittleEndian.PutUint64(s.region[i*8:i*8+8], bits)
	return nil
}

func (s *mmapStorage[T]) Len() int       { return s.length }
func (s *mmapStorage[T]) NBytes() uint64 { return uint64(s.length) * 8 }

func (s *mmapStorage[T]) Close() error {
	if err := s.region.Unmap(); err != nil {
		return errs.Wrap(errs.Capacity, "MMAP_UNMAP_FAILED", err)
	}
	name := s.file.Name()
	if err := s.file.Close(); err != nil {
		return errs.Wrap(errs.Capacity, "MMAP_CLOSE_FAILED", err)
	}
	return os.Remove(name)
}
