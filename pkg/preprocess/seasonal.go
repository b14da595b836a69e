package preprocess

import (
	"fmt"
	"math"
	"sort"
	"time"

	"fastprop/pkg/cache"
	"fastprop/pkg/columnstore"
	"fastprop/pkg/dataframe"
	"fastprop/pkg/sqltranspiler"

	"github.com/goccy/go-json"
)

// Seasonal extracts categorical hour/minute/month/weekday and a numerical
// year from every non-generated time-stamp column, skipping any categorical
// component whose derived column would be constant; year is always
// produced (§4.4). Time stamps are the
// `seconds_since_epoch` convention used across the wire protocol (§6).
type Seasonal struct {
	AddZero bool // recorded and fingerprinted only: hour, minute and month are always two-digit zero-padded, weekday is one digit

	// derived[tsColumn] lists which component suffixes were actually
	// produced (a subset of {hour, minute, month, weekday, year}) — a
	// component missing here was dropped as constant during fit and must
	// not be recomputed at transform time.
	derived map[string][]string
}

func NewSeasonal(addZero bool) *Seasonal {
	return &Seasonal{AddZero: addZero, derived: map[string][]string{}}
}

func (s *Seasonal) Name() string { return "Seasonal" }

func (s *Seasonal) Fingerprint(input cache.Fingerprint) cache.Fingerprint {
	payload := []byte{0}
	if s.AddZero {
		payload[0] = 1
	}
	return cache.New("preprocess.Seasonal", payload, input)
}

type seasonalComponent struct {
	suffix string
	fn     func(time.Time) string
}

var seasonalCategoricalComponents = []seasonalComponent{
	{"hour", func(t time.Time) string { return t.Format("15") }},
	{"minute", func(t time.Time) string { return t.Format("04") }},
	{"month", func(t time.Time) string { return t.Format("01") }},
	{"weekday", func(t time.Time) string { return fmt.Sprintf("%d", int(t.Weekday())) }},
}

func (s *Seasonal) FitTransform(in *dataframe.DataFrame) (*dataframe.DataFrame, []cache.Warning, error) {
	out := in.Clone(in.Name())
	var warnings []cache.Warning
	for _, ci := range in.Schema().ByRole(dataframe.RoleTimeStamp) {
		col, ok := in.TimeStamp(ci.Name)
		if !ok || col.HasSubrole("generated") || skip(col, "seasonal") {
			continue
		}
		var kept []string
		for _, comp := range seasonalCategoricalComponents {
			values := make([]string, col.Len())
			distinct := map[string]struct{}{}
			for i := 0; i < col.Len(); i++ {
				v := col.Get(i)
				if math.IsNaN(v) {
					values[i] = ""
					continue
				}
				t := time.Unix(int64(v), 0).UTC()
				values[i] = comp.fn(t)
				distinct[values[i]] = struct{}{}
			}
			if len(distinct) <= 1 {
				warnings = append(warnings, cache.Warning{
					Code: "SEASONAL_CONSTANT", Table: in.Name(), Column: ci.Name,
					Message: fmt.Sprintf("%s component is constant across all rows; no column produced", comp.suffix),
				})
				continue
			}
			name := ci.Name + "_" + comp.suffix
			enc := out.CatEncoding(name)
			ids := make([]int64, len(values))
			for i, v := range values {
				ids[i] = int64(enc.Intern(v))
			}
			cc := &dataframe.CatColumn{Column: columnstore.FromSlice(name, ids), Domain: name}
			if err := out.AddCategorical(name, cc); err != nil {
				return nil, nil, err
			}
			kept = append(kept, comp.suffix)
		}

		// year: numerical, never dropped as constant (a single-year window
		// is still meaningful once combined with month/weekday).
		years := make([]float64, col.Len())
		for i := 0; i < col.Len(); i++ {
			v := col.Get(i)
			if math.IsNaN(v) {
				years[i] = math.NaN()
				continue
			}
			years[i] = float64(time.Unix(int64(v), 0).UTC().Year())
		}
		yearName := ci.Name + "_year"
		if err := out.AddNumerical(yearName, columnstore.FromSlice(yearName, years)); err != nil {
			return nil, nil, err
		}
		kept = append(kept, "year")
		s.derived[ci.Name] = kept
	}
	return out, warnings, nil
}

func (s *Seasonal) Transform(in *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	out := in.Clone(in.Name())
	names := make([]string, 0, len(s.derived))
	for name := range s.derived {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, tsName := range names {
		col, ok := in.TimeStamp(tsName)
		if !ok {
			continue
		}
		for _, suffix := range s.derived[tsName] {
			if suffix == "year" {
				years := make([]float64, col.Len())
				for i := 0; i < col.Len(); i++ {
					v := col.Get(i)
					if math.IsNaN(v) {
						years[i] = math.NaN()
						continue
					}
					years[i] = float64(time.Unix(int64(v), 0).UTC().Year())
				}
				name := tsName + "_year"
				if err := out.AddNumerical(name, columnstore.FromSlice(name, years)); err != nil {
					return nil, err
				}
				continue
			}
			var comp seasonalComponent
			for _, c := range seasonalCategoricalComponents {
				if c.suffix == suffix {
					comp = c
				}
			}
			name := tsName + "_" + suffix
			enc := out.CatEncoding(name)
			ids := make([]int64, col.Len())
			for i := 0; i < col.Len(); i++ {
				v := col.Get(i)
				if math.IsNaN(v) {
					ids[i] = int64(enc.Intern(""))
					continue
				}
				ids[i] = int64(enc.Intern(comp.fn(time.Unix(int64(v), 0).UTC())))
			}
			cc := &dataframe.CatColumn{Column: columnstore.FromSlice(name, ids), Domain: name}
			if err := out.AddCategorical(name, cc); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func (s *Seasonal) ToSQL(d sqltranspiler.Dialect) string {
	var sql string
	names := make([]string, 0, len(s.derived))
	for name := range s.derived {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, tsName := range names {
		for _, suffix := range s.derived[tsName] {
			col := d.Quotechar1(tsName + "_" + suffix)
			switch suffix {
			case "hour":
				sql += fmt.Sprintf("ALTER TABLE staging ADD COLUMN %s TEXT GENERATED ALWAYS AS (strftime('%%H', %s, 'unixepoch')) STORED;\n", col, d.Quotechar1(tsName))
			case "minute":
				sql += fmt.Sprintf("ALTER TABLE staging ADD COLUMN %s TEXT GENERATED ALWAYS AS (strftime('%%M', %s, 'unixepoch')) STORED;\n", col, d.Quotechar1(tsName))
			case "month":
				sql += fmt.Sprintf("ALTER TABLE staging ADD COLUMN %s TEXT GENERATED ALWAYS AS (strftime('%%m', %s, 'unixepoch')) STORED;\n", col, d.Quotechar1(tsName))
			case "weekday":
				sql += fmt.Sprintf("ALTER TABLE staging ADD COLUMN %s TEXT GENERATED ALWAYS AS (strftime('%%w', %s, 'unixepoch')) STORED;\n", col, d.Quotechar1(tsName))
			case "year":
				sql += fmt.Sprintf("ALTER TABLE staging ADD COLUMN %s DOUBLE PRECISION GENERATED ALWAYS AS (CAST(strftime('%%Y', %s, 'unixepoch') AS INTEGER)) STORED;\n", d.Quotechar1(tsName+"_year"), d.Quotechar1(tsName))
			}
		}
	}
	return sql
}

type seasonalSnapshot struct {
	AddZero bool
	Derived map[string][]string
}

func (s *Seasonal) Save() ([]byte, error) {
	return json.Marshal(seasonalSnapshot{AddZero: s.AddZero, Derived: s.derived})
}

func (s *Seasonal) Load(data []byte) error {
	var snap seasonalSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	s.AddZero, s.derived = snap.AddZero, snap.Derived
	if s.derived == nil {
		s.derived = map[string][]string{}
	}
	return nil
}

func (s *Seasonal) Clone() Preprocessor {
	clone := &Seasonal{AddZero: s.AddZero, derived: map[string][]string{}}
	for k, v := range s.derived {
		cp := make([]string, len(v))
		copy(cp, v)
		clone.derived[k] = cp
	}
	return clone
}
