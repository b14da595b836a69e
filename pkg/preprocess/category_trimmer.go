package preprocess

import (
	"encoding/binary"
	"fmt"
	"sort"

	"fastprop/pkg/cache"
	"fastprop/pkg/columnstore"
	"fastprop/pkg/dataframe"
	"fastprop/pkg/encoding"
	"fastprop/pkg/sqltranspiler"

	"github.com/goccy/go-json"
)

// CategoryTrimmer keeps the `max_num_categories` most frequent values of
// each categorical column whose count is >= `min_freq`, mapping all others
// to encoding.Trimmed (§4.4).
type CategoryTrimmer struct {
	MaxNumCategories int
	MinFreq          int

	// kept[column] is the set of ids retained after fitting, one entry per
	// (marker, table, column) — marker distinguishes multiple trimmers on
	// the same table/column across a pipeline, but a single-stage stack
	// keys by column name alone.
	kept map[string]map[int64]struct{}
}

func NewCategoryTrimmer(maxNumCategories, minFreq int) *CategoryTrimmer {
	return &CategoryTrimmer{MaxNumCategories: maxNumCategories, MinFreq: minFreq, kept: map[string]map[int64]struct{}{}}
}

func (c *CategoryTrimmer) Name() string { return "CategoryTrimmer" }

func (c *CategoryTrimmer) Fingerprint(input cache.Fingerprint) cache.Fingerprint {
	payload := make([]byte, 8)
	binary.LittleEndian.PutUint32(payload[0:4], uint32(c.MaxNumCategories))
	binary.LittleEndian.PutUint32(payload[4:8], uint32(c.MinFreq))
	return cache.New("preprocess.CategoryTrimmer", payload, input)
}

func (c *CategoryTrimmer) FitTransform(in *dataframe.DataFrame) (*dataframe.DataFrame, []cache.Warning, error) {
	out := in.Clone(in.Name())
	var warnings []cache.Warning
	for _, ci := range in.Schema().ByRole(dataframe.RoleCategorical) {
		col, ok := in.Categorical(ci.Name)
		if !ok || skip(col, "category_trimmer") {
			continue
		}
		counts := map[int64]int{}
		for i := 0; i < col.Len(); i++ {
			counts[col.Get(i)]++
		}
		keep := topByFrequency(counts, c.MaxNumCategories, c.MinFreq)
		if len(keep) == len(counts) && len(counts) <= c.MaxNumCategories {
			warnings = append(warnings, cache.Warning{
				Code: "CATEGORY_TRIMMER_NOOP", Table: in.Name(), Column: ci.Name,
				Message: "column has fewer distinct categories than max_num_categories; nothing trimmed",
			})
		}
		c.kept[ci.Name] = keep
		rewritten := rewriteColumn(col, keep)
		if err := out.AddCategorical(ci.Name, rewritten); err != nil {
			return nil, nil, err
		}
	}
	return out, warnings, nil
}

func (c *CategoryTrimmer) Transform(in *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	out := in.Clone(in.Name())
	for name, keep := range c.kept {
		col, ok := in.Categorical(name)
		if !ok {
			continue
		}
		if err := out.AddCategorical(name, rewriteColumn(col, keep)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func rewriteColumn(col *dataframe.CatColumn, keep map[int64]struct{}) *dataframe.CatColumn {
	ids := make([]int64, col.Len())
	for i := 0; i < col.Len(); i++ {
		id := col.Get(i)
		if _, ok := keep[id]; ok {
			ids[i] = id
		} else {
			ids[i] = int64(encoding.Trimmed)
		}
	}
	return &dataframe.CatColumn{Column: columnstore.FromSlice(col.Name(), ids), Domain: col.Domain}
}

func topByFrequency(counts map[int64]int, maxN, minFreq int) map[int64]struct{} {
	ids := make([]int64, 0, len(counts))
	for id, n := range counts {
		if n >= minFreq {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		if counts[ids[i]] != counts[ids[j]] {
			return counts[ids[i]] > counts[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > maxN {
		ids = ids[:maxN]
	}
	keep := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}
	return keep
}

func (c *CategoryTrimmer) ToSQL(d sqltranspiler.Dialect) string {
	var sql string
	names := make([]string, 0, len(c.kept))
	for name := range c.kept {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		keep := c.kept[name]
		values := make([]string, 0, len(keep))
		for id := range keep {
			values = append(values, fmt.Sprintf("%d", id))
		}
		sort.Strings(values)
		m := sqltranspiler.TrimmingMapping{Table: "staging", Column: name, Kept: values}
		sql += sqltranspiler.TrimmingHeader(d, m) + sqltranspiler.TrimmingInsertInto(d, m)
	}
	return sql
}

// categoryTrimmerSnapshot is the JSON-serialisable form of kept, since
// map[int64]struct{} has no natural JSON representation.
type categoryTrimmerSnapshot struct {
	MaxNumCategories int
	MinFreq          int
	Kept             map[string][]int64
}

func (c *CategoryTrimmer) Save() ([]byte, error) {
	snap := categoryTrimmerSnapshot{MaxNumCategories: c.MaxNumCategories, MinFreq: c.MinFreq, Kept: map[string][]int64{}}
	for name, ids := range c.kept {
		list := make([]int64, 0, len(ids))
		for id := range ids {
			list = append(list, id)
		}
		sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
		snap.Kept[name] = list
	}
	return json.Marshal(snap)
}

func (c *CategoryTrimmer) Load(data []byte) error {
	var snap categoryTrimmerSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	c.MaxNumCategories, c.MinFreq = snap.MaxNumCategories, snap.MinFreq
	c.kept = map[string]map[int64]struct{}{}
	for name, ids := range snap.Kept {
		set := make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		c.kept[name] = set
	}
	return nil
}

func (c *CategoryTrimmer) Clone() Preprocessor {
	clone := &CategoryTrimmer{MaxNumCategories: c.MaxNumCategories, MinFreq: c.MinFreq, kept: map[string]map[int64]struct{}{}}
	for k, v := range c.kept {
		cp := make(map[int64]struct{}, len(v))
		for id := range v {
			cp[id] = struct{}{}
		}
		clone.kept[k] = cp
	}
	return clone
}
