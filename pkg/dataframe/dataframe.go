package dataframe

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"fastprop/pkg/columnstore"
	"fastprop/pkg/encoding"
	"fastprop/pkg/errs"
)

// NumColumn backs numerical, target, unused-float, and time-stamp roles —
// all fixed-width float64 columns that can be heap- or mmap-backed
// interchangeably (§4.1).
type NumColumn = *columnstore.Column[float64]

// CatColumn backs categorical and join-key roles: an int64 id column plus
// the name of the shared Encoding domain it was interned against.
type CatColumn struct {
	*columnstore.Column[int64]
	Domain string
}

// StrColumn backs text and unused-string roles.
type StrColumn = *columnstore.StringColumn

// KeyRange is a contiguous row-index range within a join-key-sorted
// DataFrame, matching a single join-key id (§4.2/§4.3).
type KeyRange struct {
	Start, End int // half-open [Start, End)
}

// DataFrame is a role-partitioned, named bundle of columns (§3). It is
// mutable during staging/preprocessing and is frozen before feature
// generation; every mutating method checks the frozen flag first.
type DataFrame struct {
	mu sync.RWMutex

	name       string
	nrows      int
	frozen     bool
	lastChange time.Time

	categorical  map[string]*CatColumn
	joinKey      map[string]*CatColumn
	numerical    map[string]NumColumn
	target       map[string]NumColumn
	text         map[string]StrColumn
	timeStamp    map[string]NumColumn
	unusedFloat  map[string]NumColumn
	unusedString map[string]StrColumn

	order []ColumnInfo // never written or read; Schema() is built from the role maps

	joinKeyEnc *encoding.Encoding
	catEnc     func(domain string) *encoding.Encoding

	// index[joinKeyColumnName][keyID] = row range, built by CreateIndices.
	index map[string]map[int64]KeyRange
}

// New creates an empty, unfrozen DataFrame with nrows rows already declared
// (columns are added with AddXxx and must all agree on nrows).
func New(name string, nrows int, joinKeyEnc *encoding.Encoding, catEnc func(domain string) *encoding.Encoding) *DataFrame {
	return &DataFrame{
		name: name, nrows: nrows, lastChange: time.Now(),
		categorical: map[string]*CatColumn{}, joinKey: map[string]*CatColumn{},
		numerical: map[string]NumColumn{}, target: map[string]NumColumn{},
		text: map[string]StrColumn{}, timeStamp: map[string]NumColumn{},
		unusedFloat: map[string]NumColumn{}, unusedString: map[string]StrColumn{},
		joinKeyEnc: joinKeyEnc, catEnc: catEnc,
		index: map[string]map[int64]KeyRange{},
	}
}

// CatEncoding resolves the shared Encoding for a categorical domain, the
// same one AddCategorical-ed columns for that domain must be interned
// against. Preprocessors that derive new categorical columns (Seasonal,
// EmailDomain, Substring, §4.4) use this rather than reaching into the
// registry directly, keeping the encoding-sharing rule (§3) enforced in one
// place.
func (df *DataFrame) CatEncoding(domain string) *encoding.Encoding { return df.catEnc(domain) }

func (df *DataFrame) Name() string        { return df.name }
func (df *DataFrame) NRows() int          { return df.nrows }
func (df *DataFrame) Frozen() bool        { return df.frozen }
func (df *DataFrame) LastChange() time.Time { return df.lastChange }

func (df *DataFrame) touch() { df.lastChange = time.Now() }

func (df *DataFrame) checkLen(name string, n int) error {
	if n != df.nrows {
		return errs.New(errs.UserInput, "SCHEMA_LENGTH_MISMATCH",
			fmt.Sprintf("column %q has %d rows, frame %q has %d", name, n, df.name, df.nrows))
	}
	return nil
}

func (df *DataFrame) mutationGuard(name string) error {
	if df.frozen {
		return errs.FrameFrozen(df.name).WithColumn(df.name, name, "")
	}
	return nil
}

// --- add / get, one triple per role ---

func (df *DataFrame) AddNumerical(name string, col NumColumn) error {
	return df.addNum(&df.numerical, name, col)
}
func (df *DataFrame) AddTarget(name string, col NumColumn) error {
	return df.addNum(&df.target, name, col)
}
func (df *DataFrame) AddTimeStamp(name string, col NumColumn) error {
	return df.addNum(&df.timeStamp, name, col)
}
func (df *DataFrame) AddUnusedFloat(name string, col NumColumn) error {
	return df.addNum(&df.unusedFloat, name, col)
}

func (df *DataFrame) addNum(bucket *map[string]NumColumn, name string, col NumColumn) error {
	df.mu.Lock()
	defer df.mu.Unlock()
	if err := df.mutationGuard(name); err != nil {
		return err
	}
	if err := df.checkLen(name, col.Len()); err != nil {
		return err
	}
	(*bucket)[name] = col
	df.touch()
	return nil
}

func (df *DataFrame) AddCategorical(name string, col *CatColumn) error {
	return df.addCat(&df.categorical, name, col)
}
func (df *DataFrame) AddJoinKey(name string, col *CatColumn) error {
	return df.addCat(&df.joinKey, name, col)
}

func (df *DataFrame) addCat(bucket *map[string]*CatColumn, name string, col *CatColumn) error {
	df.mu.Lock()
	defer df.mu.Unlock()
	if err := df.mutationGuard(name); err != nil {
		return err
	}
	if err := df.checkLen(name, col.Len()); err != nil {
		return err
	}
	(*bucket)[name] = col
	df.touch()
	return nil
}

func (df *DataFrame) AddText(name string, col StrColumn) error {
	return df.addStr(&df.text, name, col)
}
func (df *DataFrame) AddUnusedString(name string, col StrColumn) error {
	return df.addStr(&df.unusedString, name, col)
}

func (df *DataFrame) addStr(bucket *map[string]StrColumn, name string, col StrColumn) error {
	df.mu.Lock()
	defer df.mu.Unlock()
	if err := df.mutationGuard(name); err != nil {
		return err
	}
	if err := df.checkLen(name, col.Len()); err != nil {
		return err
	}
	(*bucket)[name] = col
	df.touch()
	return nil
}

// Numerical, Categorical, JoinKey, Target, Text, TimeStamp getters return
// (column, ok) and never panic on a missing name — callers that need the
// structured ColumnNotFound error should use MustXxx.

func (df *DataFrame) Numerical(name string) (NumColumn, bool)   { df.mu.RLock(); defer df.mu.RUnlock(); c, ok := df.numerical[name]; return c, ok }
func (df *DataFrame) Target(name string) (NumColumn, bool)      { df.mu.RLock(); defer df.mu.RUnlock(); c, ok := df.target[name]; return c, ok }
func (df *DataFrame) TimeStamp(name string) (NumColumn, bool)   { df.mu.RLock(); defer df.mu.RUnlock(); c, ok := df.timeStamp[name]; return c, ok }
func (df *DataFrame) UnusedFloat(name string) (NumColumn, bool) { df.mu.RLock(); defer df.mu.RUnlock(); c, ok := df.unusedFloat[name]; return c, ok }
func (df *DataFrame) Categorical(name string) (*CatColumn, bool) { df.mu.RLock(); defer df.mu.RUnlock(); c, ok := df.categorical[name]; return c, ok }
func (df *DataFrame) JoinKey(name string) (*CatColumn, bool)    { df.mu.RLock(); defer df.mu.RUnlock(); c, ok := df.joinKey[name]; return c, ok }
func (df *DataFrame) Text(name string) (StrColumn, bool)        { df.mu.RLock(); defer df.mu.RUnlock(); c, ok := df.text[name]; return c, ok }
func (df *DataFrame) UnusedString(name string) (StrColumn, bool) { df.mu.RLock(); defer df.mu.RUnlock(); c, ok := df.unusedString[name]; return c, ok }

// MustNumerical resolves a numerical column by name or returns the
// structured ColumnNotFound error carrying the staging-friendly table name
// (§4.2). Only the numerical role is searched.
func (df *DataFrame) MustNumerical(name string) (NumColumn, error) {
	if c, ok := df.Numerical(name); ok {
		return c, nil
	}
	return nil, errs.ColumnNotFound(df.name, name, RoleNumerical.String())
}

func (df *DataFrame) NRowsOf(name string) (int, bool) {
	if c, ok := df.Numerical(name); ok {
		return c.Len(), true
	}
	return 0, false
}

// NCols returns the total number of declared columns across all roles.
func (df *DataFrame) NCols() int {
	df.mu.RLock()
	defer df.mu.RUnlock()
	return len(df.categorical) + len(df.joinKey) + len(df.numerical) + len(df.target) +
		len(df.text) + len(df.timeStamp) + len(df.unusedFloat) + len(df.unusedString)
}

// NBytes sums the backing-storage footprint of every column.
func (df *DataFrame) NBytes() uint64 {
	df.mu.RLock()
	defer df.mu.RUnlock()
	var n uint64
	for _, c := range df.numerical {
		n += c.NBytes()
	}
	for _, c := range df.target {
		n += c.NBytes()
	}
	for _, c := range df.timeStamp {
		n += c.NBytes()
	}
	for _, c := range df.unusedFloat {
		n += c.NBytes()
	}
	for _, c := range df.categorical {
		n += c.NBytes()
	}
	for _, c := range df.joinKey {
		n += c.NBytes()
	}
	for _, c := range df.text {
		n += c.NBytes()
	}
	for _, c := range df.unusedString {
		n += c.NBytes()
	}
	return n
}

// Schema returns the stable name/role/unit declaration for this frame.
func (df *DataFrame) Schema() *Schema {
	df.mu.RLock()
	defer df.mu.RUnlock()
	s := &Schema{TableName: df.name}
	add := func(role Role, names map[string]struct{}, unit func(string) string) {
		sorted := make([]string, 0, len(names))
		for n := range names {
			sorted = append(sorted, n)
		}
		sort.Strings(sorted)
		for _, n := range sorted {
			s.Columns = append(s.Columns, ColumnInfo{Name: n, Role: role, Unit: unit(n)})
		}
	}
	toSet := func(m any) map[string]struct{} {
		out := map[string]struct{}{}
		switch v := m.(type) {
		case map[string]NumColumn:
			for k := range v {
				out[k] = struct{}{}
			}
		case map[string]*CatColumn:
			for k := range v {
				out[k] = struct{}{}
			}
		case map[string]StrColumn:
			for k := range v {
				out[k] = struct{}{}
			}
		}
		return out
	}
	add(RoleCategorical, toSet(df.categorical), func(n string) string { return "" })
	add(RoleJoinKey, toSet(df.joinKey), func(n string) string { return "" })
	add(RoleNumerical, toSet(df.numerical), func(n string) string { return df.numerical[n].Unit() })
	add(RoleTarget, toSet(df.target), func(n string) string { return df.target[n].Unit() })
	add(RoleText, toSet(df.text), func(n string) string { return "" })
	add(RoleTimeStamp, toSet(df.timeStamp), func(n string) string { return df.timeStamp[n].Unit() })
	add(RoleUnusedFloat, toSet(df.unusedFloat), func(n string) string { return "" })
	add(RoleUnusedString, toSet(df.unusedString), func(n string) string { return "" })
	return s
}

// Freeze marks the DataFrame (and every column it holds) read-only. Once
// frozen, every mutating method fails with FrameFrozen (§3, §4.2).
func (df *DataFrame) Freeze() {
	df.mu.Lock()
	defer df.mu.Unlock()
	if df.frozen {
		return
	}
	df.frozen = true
	for _, c := range df.numerical {
		c.Freeze()
	}
	for _, c := range df.target {
		c.Freeze()
	}
	for _, c := range df.timeStamp {
		c.Freeze()
	}
	for _, c := range df.unusedFloat {
		c.Freeze()
	}
	for _, c := range df.categorical {
		c.Freeze()
	}
	for _, c := range df.joinKey {
		c.Freeze()
	}
	for _, c := range df.text {
		c.Freeze()
	}
	for _, c := range df.unusedString {
		c.Freeze()
	}
}

// CreateIndices builds the per-join-key hash index once, mapping each
// distinct id in joinKeyCol to the contiguous row range it occupies. It
// assumes SortByKey(joinKeyCol) has already been called so that rows
// sharing a join-key id are contiguous; if the frame was never sorted, the
// index will still be correct as long as equal ids are already adjacent.
func (df *DataFrame) CreateIndices(joinKeyCol string) error {
	df.mu.Lock()
	defer df.mu.Unlock()
	jk, ok := df.joinKey[joinKeyCol]
	if !ok {
		return errs.ColumnNotFound(df.name, joinKeyCol, RoleJoinKey.String())
	}
	idx := map[int64]KeyRange{}
	n := jk.Len()
	i := 0
	for i < n {
		id := jk.Get(i)
		j := i + 1
		for j < n && jk.Get(j) == id {
			j++
		}
		idx[id] = KeyRange{Start: i, End: j}
		i = j
	}
	df.index[joinKeyCol] = idx
	return nil
}

// LookupKeyRange returns the row range for a join-key id, built by the most
// recent CreateIndices call.
func (df *DataFrame) LookupKeyRange(joinKeyCol string, id int64) (KeyRange, bool) {
	df.mu.RLock()
	defer df.mu.RUnlock()
	idx, ok := df.index[joinKeyCol]
	if !ok {
		return KeyRange{}, false
	}
	r, ok := idx[id]
	return r, ok
}

// SortByKey stably reorders every column's rows by the ascending id of the
// named join-key column, and — when tsCol is non-empty — secondarily by
// ascending time stamp within each join-key bucket, which is what lets
// Matchmaker binary-search a bucket's time-stamp band (§4.3). A frame whose
// rows are already in that order is left as it is, LastChange included.
func (df *DataFrame) SortByKey(joinKeyCol, tsCol string) error {
	df.mu.Lock()
	defer df.mu.Unlock()
	if err := df.mutationGuard(joinKeyCol); err != nil {
		return err
	}
	jk, ok := df.joinKey[joinKeyCol]
	if !ok {
		return errs.ColumnNotFound(df.name, joinKeyCol, RoleJoinKey.String())
	}
	var ts NumColumn
	if tsCol != "" {
		ts, ok = df.timeStamp[tsCol]
		if !ok {
			return errs.ColumnNotFound(df.name, tsCol, RoleTimeStamp.String())
		}
	}

	perm := make([]int, df.nrows)
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		ia, ib := perm[a], perm[b]
		ka, kb := jk.Get(ia), jk.Get(ib)
		if ka != kb {
			return ka < kb
		}
		if ts != nil {
			return ts.Get(ia) < ts.Get(ib)
		}
		return false
	})

	inOrder := true
	for i, ix := range perm {
		if ix != i {
			inOrder = false
			break
		}
	}
	if inOrder {
		return nil
	}

	df.permuteAll(perm)
	df.touch()
	return nil
}

func (df *DataFrame) permuteAll(perm []int) {
	permuteNum := func(m map[string]NumColumn) {
		for _, c := range m {
			applyPermFloat(c, perm)
		}
	}
	permuteNum(df.numerical)
	permuteNum(df.target)
	permuteNum(df.timeStamp)
	permuteNum(df.unusedFloat)
	for _, c := range df.categorical {
		applyPermInt(c.Column, perm)
	}
	for _, c := range df.joinKey {
		applyPermInt(c.Column, perm)
	}
	for _, c := range df.text {
		applyPermStr(c, perm)
	}
	for _, c := range df.unusedString {
		applyPermStr(c, perm)
	}
}

func applyPermFloat(c NumColumn, perm []int) {
	tmp := make([]float64, len(perm))
	for newIdx, oldIdx := range perm {
		tmp[newIdx] = c.Get(oldIdx)
	}
	for i, v := range tmp {
		c.Set(i, v)
	}
}

func applyPermInt(c *columnstore.Column[int64], perm []int) {
	tmp := make([]int64, len(perm))
	for newIdx, oldIdx := range perm {
		tmp[newIdx] = c.Get(oldIdx)
	}
	for i, v := range tmp {
		c.Set(i, v)
	}
}

func applyPermStr(c StrColumn, perm []int) {
	type sv struct {
		v string
		n bool
	}
	tmp := make([]sv, len(perm))
	for newIdx, oldIdx := range perm {
		v, n := c.Get(oldIdx)
		tmp[newIdx] = sv{v, n}
	}
	for i, x := range tmp {
		c.Set(i, x.v, x.n)
	}
}

// Clone produces a new logical frame under newName sharing this frame's
// column storage (copy-on-write per §9's shared-ownership guidance);
// preprocessors use this to avoid mutating the input frame's last_change.
func (df *DataFrame) Clone(newName string) *DataFrame {
	df.mu.RLock()
	defer df.mu.RUnlock()
	out := New(newName, df.nrows, df.joinKeyEnc, df.catEnc)
	for k, v := range df.numerical {
		out.numerical[k] = v
	}
	for k, v := range df.target {
		out.target[k] = v
	}
	for k, v := range df.timeStamp {
		out.timeStamp[k] = v
	}
	for k, v := range df.unusedFloat {
		out.unusedFloat[k] = v
	}
	for k, v := range df.categorical {
		out.categorical[k] = v
	}
	for k, v := range df.joinKey {
		out.joinKey[k] = v
	}
	for k, v := range df.text {
		out.text[k] = v
	}
	for k, v := range df.unusedString {
		out.unusedString[k] = v
	}
	return out
}
