package sqltranspiler

import (
	"fmt"
	"strings"
)

// trimmingBatchSize caps how many VALUES rows one INSERT statement carries,
// per §4.4's CategoryTrimmer SQL emission rule.
const trimmingBatchSize = 500

// TrimmingMapping is one CategoryTrimmer's fitted (kept-id) result for one
// column, ready for SQL emission.
type TrimmingMapping struct {
	Table, Column string
	Kept          []string // values kept as-is; anything else maps to "trimmed"
}

// TrimmingHeader emits the CREATE TABLE for a trimming mapping table:
// (original TEXT PRIMARY KEY, mapped TEXT).
func TrimmingHeader(d Dialect, m TrimmingMapping) string {
	name := mappingTableName(m)
	return fmt.Sprintf(
		"%s\nCREATE TABLE %s (\n  %s TEXT PRIMARY KEY,\n  %s TEXT\n);\n",
		d.DropTableIfExists(name), d.Quotechar1(name), d.Quotechar1("original"), d.Quotechar1("mapped"))
}

// TrimmingInsertInto emits the batched INSERT statements populating the
// mapping table: one row per kept value mapping to itself, batched at
// trimmingBatchSize rows per statement (§4.4).
func TrimmingInsertInto(d Dialect, m TrimmingMapping) string {
	name := mappingTableName(m)
	var b strings.Builder
	for start := 0; start < len(m.Kept); start += trimmingBatchSize {
		end := start + trimmingBatchSize
		if end > len(m.Kept) {
			end = len(m.Kept)
		}
		rows := make([]string, 0, end-start)
		for _, v := range m.Kept[start:end] {
			esc := strings.ReplaceAll(v, "'", "''")
			rows = append(rows, fmt.Sprintf("('%s', '%s')", esc, esc))
		}
		b.WriteString(fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES\n  %s;\n",
			d.Quotechar1(name), d.Quotechar1("original"), d.Quotechar1("mapped"), strings.Join(rows, ",\n  ")))
	}
	return b.String()
}

// TrimmingJoin emits the LEFT JOIN clause a downstream SELECT uses to
// rewrite m.Column via the mapping table, falling back to the "trimmed"
// sentinel via COALESCE when no row matches (values not in the kept set).
func TrimmingJoin(d Dialect, m TrimmingMapping, alias string) string {
	name := mappingTableName(m)
	return fmt.Sprintf("LEFT JOIN %s AS %s ON %s.%s = %s.%s",
		d.Quotechar1(name), d.Quotechar1(alias),
		d.Quotechar1(alias), d.Quotechar1("original"),
		d.Quotechar1(m.Table), d.Quotechar1(m.Column))
}

func mappingTableName(m TrimmingMapping) string {
	return fmt.Sprintf("__trimming_%s_%s", m.Table, m.Column)
}
