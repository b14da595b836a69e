package preprocess

import (
	"sort"
	"strconv"
	"strings"

	"fastprop/pkg/cache"
	"fastprop/pkg/columnstore"
	"fastprop/pkg/dataframe"
	"fastprop/pkg/sqltranspiler"

	"github.com/goccy/go-json"
)

// EmailDomain adds a derived categorical column holding the domain part of
// each value in a string column carrying the `email_only` subrole (§4.4).
// Rows whose value has no '@' or is null are mapped to the empty domain.
type EmailDomain struct {
	// columns lists the source string columns processed, so Transform can
	// rederive without re-scanning subroles at predict time against a
	// frame that might not carry the same subrole tags.
	columns []string
}

func NewEmailDomain() *EmailDomain { return &EmailDomain{} }

func (e *EmailDomain) Name() string { return "EmailDomain" }

func (e *EmailDomain) Fingerprint(input cache.Fingerprint) cache.Fingerprint {
	return cache.New("preprocess.EmailDomain", nil, input)
}

func emailDomainOf(v string) string {
	if i := strings.IndexByte(v, '@'); i >= 0 {
		return v[i+1:]
	}
	return ""
}

func (e *EmailDomain) deriveColumn(out, in *dataframe.DataFrame, name string) error {
	col, ok := in.Text(name)
	if !ok {
		col, ok = in.UnusedString(name)
	}
	if !ok {
		return nil
	}
	derivedName := name + "_domain"
	enc := out.CatEncoding(derivedName)
	ids := make([]int64, col.Len())
	for i := 0; i < col.Len(); i++ {
		v, isNull := col.Get(i)
		domain := ""
		if !isNull {
			domain = emailDomainOf(v)
		}
		ids[i] = int64(enc.Intern(domain))
	}
	return out.AddCategorical(derivedName, &dataframe.CatColumn{Column: columnstore.FromSlice(derivedName, ids), Domain: derivedName})
}

func (e *EmailDomain) FitTransform(in *dataframe.DataFrame) (*dataframe.DataFrame, []cache.Warning, error) {
	out := in.Clone(in.Name())
	for _, ci := range in.Schema().ByRole(dataframe.RoleText) {
		col, ok := in.Text(ci.Name)
		if !ok || !col.HasSubrole("email_only") {
			continue
		}
		if err := e.deriveColumn(out, in, ci.Name); err != nil {
			return nil, nil, err
		}
		e.columns = append(e.columns, ci.Name)
	}
	sort.Strings(e.columns)
	return out, nil, nil
}

func (e *EmailDomain) Transform(in *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	out := in.Clone(in.Name())
	for _, name := range e.columns {
		if err := e.deriveColumn(out, in, name); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (e *EmailDomain) ToSQL(d sqltranspiler.Dialect) string {
	var sql string
	for _, name := range e.columns {
		sql += "ALTER TABLE staging ADD COLUMN " + d.Quotechar1(name+"_domain") +
			" TEXT GENERATED ALWAYS AS (SUBSTR(" + d.Quotechar1(name) + ", INSTR(" + d.Quotechar1(name) + ", '@') + 1)) STORED;\n"
	}
	return sql
}

func (e *EmailDomain) Save() ([]byte, error) { return json.Marshal(e.columns) }

func (e *EmailDomain) Load(data []byte) error { return json.Unmarshal(data, &e.columns) }

func (e *EmailDomain) Clone() Preprocessor {
	cp := make([]string, len(e.columns))
	copy(cp, e.columns)
	return &EmailDomain{columns: cp}
}

// Substring adds a derived categorical column holding the first N
// characters of each value in a string column carrying the
// `substring_only` subrole (§4.4).
type Substring struct {
	Length int

	columns []string
}

func NewSubstring(length int) *Substring { return &Substring{Length: length} }

func (s *Substring) Name() string { return "Substring" }

func (s *Substring) Fingerprint(input cache.Fingerprint) cache.Fingerprint {
	return cache.New("preprocess.Substring", []byte(strconv.Itoa(s.Length)), input)
}

func (s *Substring) deriveColumn(out, in *dataframe.DataFrame, name string) error {
	col, ok := in.Text(name)
	if !ok {
		col, ok = in.UnusedString(name)
	}
	if !ok {
		return nil
	}
	derivedName := name + "_substr"
	enc := out.CatEncoding(derivedName)
	ids := make([]int64, col.Len())
	for i := 0; i < col.Len(); i++ {
		v, isNull := col.Get(i)
		sub := ""
		if !isNull {
			n := s.Length
			if n > len(v) {
				n = len(v)
			}
			sub = v[:n]
		}
		ids[i] = int64(enc.Intern(sub))
	}
	return out.AddCategorical(derivedName, &dataframe.CatColumn{Column: columnstore.FromSlice(derivedName, ids), Domain: derivedName})
}

func (s *Substring) FitTransform(in *dataframe.DataFrame) (*dataframe.DataFrame, []cache.Warning, error) {
	out := in.Clone(in.Name())
	for _, ci := range in.Schema().ByRole(dataframe.RoleText) {
		col, ok := in.Text(ci.Name)
		if !ok || !col.HasSubrole("substring_only") {
			continue
		}
		if err := s.deriveColumn(out, in, ci.Name); err != nil {
			return nil, nil, err
		}
		s.columns = append(s.columns, ci.Name)
	}
	sort.Strings(s.columns)
	return out, nil, nil
}

func (s *Substring) Transform(in *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	out := in.Clone(in.Name())
	for _, name := range s.columns {
		if err := s.deriveColumn(out, in, name); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Substring) ToSQL(d sqltranspiler.Dialect) string {
	var sql string
	for _, name := range s.columns {
		sql += "ALTER TABLE staging ADD COLUMN " + d.Quotechar1(name+"_substr") +
			" TEXT GENERATED ALWAYS AS (SUBSTR(" + d.Quotechar1(name) + ", 1, " + strconv.Itoa(s.Length) + ")) STORED;\n"
	}
	return sql
}

type substringSnapshot struct {
	Length  int
	Columns []string
}

func (s *Substring) Save() ([]byte, error) {
	return json.Marshal(substringSnapshot{Length: s.Length, Columns: s.columns})
}

func (s *Substring) Load(data []byte) error {
	var snap substringSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	s.Length, s.columns = snap.Length, snap.Columns
	return nil
}

func (s *Substring) Clone() Preprocessor {
	cp := make([]string, len(s.columns))
	copy(cp, s.columns)
	return &Substring{Length: s.Length, columns: cp}
}
