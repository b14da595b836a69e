package columnstore

import (
	"iter"

	"fastprop/pkg/errs"
)

// Column is a named, unit- and subrole-tagged sequence of scalars of one
// Numeric kind (Float or Int), backed by either heap or memory-mapped
// storage. Reads are lock-free; writes require the caller to hold exclusive
// access (enforced one level up, by DataFrame's frozen flag) per §4.1.
type Column[T Numeric] struct {
	name     string
	unit     string
	subroles map[string]struct{}
	storage  Storage[T]
	frozen   bool
}

// New allocates a Column<T> of the given length. Pool nil selects heap
// storage; a non-nil Pool selects a memory-mapped file under Pool.Dir.
func New[T Numeric](name string, length int, pool *Pool) (*Column[T], error) {
	if length < 0 {
		return nil, errs.New(errs.UserInput, "NEGATIVE_LENGTH", "column length must be >= 0")
	}
	var storage Storage[T]
	var err error
	if pool == nil {
		storage = newHeapStorage[T](length)
	} else {
		storage, err = newMmapStorage[T](pool, length)
		if err != nil {
			return nil, err
		}
	}
	return &Column[T]{name: name, subroles: map[string]struct{}{}, storage: storage}, nil
}

// FromSlice wraps an existing heap slice without copying, matching the
// "shared ownership" storage rule in §3 (the caller must not mutate data
// concurrently with readers once the column is shared).
func FromSlice[T Numeric](name string, data []T) *Column[T] {
	return &Column[T]{name: name, subroles: map[string]struct{}{}, storage: &heapStorage[T]{data: data}}
}

func (c *Column[T]) Name() string { return c.name }
func (c *Column[T]) Unit() string { return c.unit }
func (c *Column[T]) Len() int     { return c.storage.Len() }
func (c *Column[T]) NBytes() uint64 { return c.storage.NBytes() }

func (c *Column[T]) HasSubrole(s string) bool {
	_, ok := c.subroles[s]
	return ok
}

// WithSubroles returns a column that shares this column's storage but
// carries an extended subrole set (a lightweight, non-copying view).
func (c *Column[T]) WithSubroles(subroles ...string) *Column[T] {
	next := map[string]struct{}{}
	for k := range c.subroles {
		next[k] = struct{}{}
	}
	for _, s := range subroles {
		next[s] = struct{}{}
	}
	return &Column[T]{name: c.name, unit: c.unit, subroles: next, storage: c.storage, frozen: c.frozen}
}

// WithUnit returns a column sharing storage but carrying a new unit tag.
// Same-units matching in §4.4/§4.5.1 keys off this field.
func (c *Column[T]) WithUnit(unit string) *Column[T] {
	return &Column[T]{name: c.name, unit: unit, subroles: c.subroles, storage: c.storage, frozen: c.frozen}
}

func (c *Column[T]) Get(i int) T { return c.storage.Get(i) }

func (c *Column[T]) Set(i int, v T) error {
	if c.frozen {
		return errs.FrameFrozen(c.name)
	}
	return c.storage.Set(i, v)
}

// Freeze marks the column read-only. DataFrame calls this when it itself
// freezes, matching the "frozen ⇒ mutations fail" invariant of §3.
func (c *Column[T]) Freeze() { c.frozen = true }

// Iter yields values in index order via Go's range-over-func iterators.
func (c *Column[T]) Iter() iter.Seq[T] {
	return func(yield func(T) bool) {
		for i := 0; i < c.storage.Len(); i++ {
			if !yield(c.storage.Get(i)) {
				return
			}
		}
	}
}

// Close releases the column's backing storage (a no-op for heap storage, an
// unmap+remove for memory-mapped storage).
func (c *Column[T]) Close() error { return c.storage.Close() }

// StringColumn holds nullable string values; strings are never
// memory-mapped (variable width), matching the "one variant per storage
// kind" rule applied to fixed-width numerics only.
type StringColumn struct {
	name     string
	subroles map[string]struct{}
	values   []string
	null     []bool
	frozen   bool
}

func NewStringColumn(name string, length int) *StringColumn {
	return &StringColumn{name: name, subroles: map[string]struct{}{}, values: make([]string, length), null: make([]bool, length)}
}

func StringColumnFromSlice(name string, values []string) *StringColumn {
	return &StringColumn{name: name, subroles: map[string]struct{}{}, values: values, null: make([]bool, len(values))}
}

func (c *StringColumn) Name() string  { return c.name }
func (c *StringColumn) Len() int      { return len(c.values) }
func (c *StringColumn) NBytes() uint64 {
	var n uint64
	for _, v := range c.values {
		n += uint64(len(v))
	}
	return n
}

func (c *StringColumn) HasSubrole(s string) bool { _, ok := c.subroles[s]; return ok }

func (c *StringColumn) WithSubroles(subroles ...string) *StringColumn {
	next := map[string]struct{}{}
	for k := range c.subroles {
		next[k] = struct{}{}
	}
	for _, s := range subroles {
		next[s] = struct{}{}
	}
	return &StringColumn{name: c.name, subroles: next, values: c.values, null: c.null, frozen: c.frozen}
}

func (c *StringColumn) Get(i int) (string, bool) { return c.values[i], c.null[i] }

func (c *StringColumn) Set(i int, v string, isNull bool) error {
	if c.frozen {
		return errs.FrameFrozen(c.name)
	}
	c.values[i] = v
	c.null[i] = isNull
	return nil
}

func (c *StringColumn) Freeze() { c.frozen = true }

func (c *StringColumn) Iter() iter.Seq2[string, bool] {
	return func(yield func(string, bool) bool) {
		for i := range c.values {
			if !yield(c.values[i], c.null[i]) {
				return
			}
		}
	}
}

// BoolColumn holds non-nullable boolean values (§3 defines null semantics
// only for Float/Int/String).
type BoolColumn struct {
	name     string
	subroles map[string]struct{}
	values   []bool
	frozen   bool
}

func NewBoolColumn(name string, length int) *BoolColumn {
	return &BoolColumn{name: name, subroles: map[string]struct{}{}, values: make([]bool, length)}
}

func BoolColumnFromSlice(name string, values []bool) *BoolColumn {
	return &BoolColumn{name: name, subroles: map[string]struct{}{}, values: values}
}

func (c *BoolColumn) Name() string   { return c.name }
func (c *BoolColumn) Len() int       { return len(c.values) }
func (c *BoolColumn) NBytes() uint64 { return uint64(len(c.values)) }
func (c *BoolColumn) Get(i int) bool { return c.values[i] }

func (c *BoolColumn) Set(i int, v bool) error {
	if c.frozen {
		return errs.FrameFrozen(c.name)
	}
	c.values[i] = v
	return nil
}

func (c *BoolColumn) Freeze() { c.frozen = true }
