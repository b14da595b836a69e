package preprocess

import (
	"sort"

	"fastprop/pkg/cache"
	"fastprop/pkg/columnstore"
	"fastprop/pkg/dataframe"
	"fastprop/pkg/encoding"
	"fastprop/pkg/sqltranspiler"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// TextFieldSplitter explodes each text column into a peripheral table with
// one row per word, joined back to the original by a synthetic row-id
// column, so FastProp's text aggregations (§4.5.1) can treat vocabulary
// membership as an ordinary join (§4.4).
type TextFieldSplitter struct {
	// affected records, per source table/column, the row-id column and
	// exploded peripheral table name emitted — consulted by the SQL
	// transpiler (§4.4's "records affected columns for SQL emission").
	affected map[string]splitResult

	rowIDDomain string
}

type splitResult struct {
	RowIDColumn    string
	PeripheralName string
}

func NewTextFieldSplitter() *TextFieldSplitter {
	return &TextFieldSplitter{affected: map[string]splitResult{}, rowIDDomain: "text_field_row_id"}
}

func (t *TextFieldSplitter) Name() string { return "TextFieldSplitter" }

func (t *TextFieldSplitter) Fingerprint(input cache.Fingerprint) cache.Fingerprint {
	return cache.New("preprocess.TextFieldSplitter", nil, input)
}

// Exploded returns the peripheral DataFrame produced for one source text
// column, and true if that column was processed. The pipeline orchestrator
// registers this frame in the process-wide DataFrame map under
// PeripheralName so FastProp can bind it as an ordinary joined table.
func (t *TextFieldSplitter) Exploded(col string) (splitResult, bool) {
	r, ok := t.affected[col]
	return r, ok
}

func (t *TextFieldSplitter) split(out, in *dataframe.DataFrame, name string) (*dataframe.DataFrame, error) {
	col, ok := in.Text(name)
	if !ok || skip(col, "text_field_splitter") {
		return nil, nil
	}

	rowIDName := name + "_row_id"
	rowIDEnc := out.CatEncoding(t.rowIDDomain)
	rowIDs := make([]int64, col.Len())
	for i := range rowIDs {
		rowIDs[i] = int64(rowIDEnc.Intern(uuid.NewString()))
	}
	if err := out.AddJoinKey(rowIDName, &dataframe.CatColumn{Column: columnstore.FromSlice(rowIDName, rowIDs), Domain: t.rowIDDomain}); err != nil {
		return nil, err
	}

	var words []string
	var wordRowIDs []int64
	for i := 0; i < col.Len(); i++ {
		v, isNull := col.Get(i)
		if isNull {
			continue
		}
		for _, w := range splitWordsPublic(v) {
			words = append(words, w)
			wordRowIDs = append(wordRowIDs, rowIDs[i])
		}
	}

	peripheralName := name + "_exploded"
	periph := dataframe.New(peripheralName, len(words), in.CatEncoding(t.rowIDDomain), out.CatEncoding)
	wordEnc := encoding.New()
	wordIDs := make([]int64, len(words))
	for i, w := range words {
		wordIDs[i] = int64(wordEnc.Intern(w))
	}
	if err := periph.AddJoinKey(rowIDName, &dataframe.CatColumn{Column: columnstore.FromSlice(rowIDName, wordRowIDs), Domain: t.rowIDDomain}); err != nil {
		return nil, err
	}
	wordCol := columnstore.StringColumnFromSlice(name+"_word", words)
	if err := periph.AddText(name+"_word", wordCol); err != nil {
		return nil, err
	}

	t.affected[name] = splitResult{RowIDColumn: rowIDName, PeripheralName: peripheralName}
	return periph, nil
}

// FitTransform explodes every eligible text column and returns the
// (unchanged-shape) input frame plus a synthetic row-id join key per
// column; the exploded peripheral frames themselves are not part of the
// return value — callers retrieve them via Exploded and register them in
// the DataFrame map under their own name, mirroring how staging registers
// synthetic tables (§4.4/§6's persisted-project layout).
func (t *TextFieldSplitter) FitTransform(in *dataframe.DataFrame) (*dataframe.DataFrame, []cache.Warning, error) {
	out := in.Clone(in.Name())
	var warnings []cache.Warning
	for _, ci := range in.Schema().ByRole(dataframe.RoleText) {
		periph, err := t.split(out, in, ci.Name)
		if err != nil {
			return nil, nil, err
		}
		if periph != nil && periph.NRows() == 0 {
			warnings = append(warnings, cache.Warning{
				Code: "TEXT_FIELD_EMPTY_VOCABULARY", Table: in.Name(), Column: ci.Name,
				Message: "text column produced an empty vocabulary after splitting",
			})
		}
	}
	return out, warnings, nil
}

func (t *TextFieldSplitter) Transform(in *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	out := in.Clone(in.Name())
	names := make([]string, 0, len(t.affected))
	for name := range t.affected {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := t.split(out, in, name); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (t *TextFieldSplitter) ToSQL(d sqltranspiler.Dialect) string {
	var sql string
	names := make([]string, 0, len(t.affected))
	for name := range t.affected {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r := t.affected[name]
		sql += d.DropTableIfExists(r.PeripheralName) + "\n"
		sql += "CREATE TABLE " + d.Quotechar1(r.PeripheralName) + " AS\n" +
			"SELECT " + d.Quotechar1(r.RowIDColumn) + ", value AS " + d.Quotechar1(name+"_word") +
			" FROM staging, UNNEST(STRING_TO_ARRAY(" + d.Quotechar1(name) + ", ' ')) AS t(value);\n"
	}
	return sql
}

func (t *TextFieldSplitter) Clone() Preprocessor {
	clone := &TextFieldSplitter{affected: map[string]splitResult{}, rowIDDomain: t.rowIDDomain}
	for k, v := range t.affected {
		clone.affected[k] = v
	}
	return clone
}

type textFieldSplitterSnapshot struct {
	Affected    map[string]splitResult
	RowIDDomain string
}

func (t *TextFieldSplitter) Save() ([]byte, error) {
	return json.Marshal(textFieldSplitterSnapshot{Affected: t.affected, RowIDDomain: t.rowIDDomain})
}

func (t *TextFieldSplitter) Load(data []byte) error {
	var snap textFieldSplitterSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	t.affected, t.rowIDDomain = snap.Affected, snap.RowIDDomain
	if t.affected == nil {
		t.affected = map[string]splitResult{}
	}
	return nil
}

func splitWordsPublic(s string) []string {
	var words []string
	start := -1
	for i, r := range s {
		if r == ' ' || r == '\t' || r == '\n' {
			if start >= 0 {
				words = append(words, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, s[start:])
	}
	return words
}
