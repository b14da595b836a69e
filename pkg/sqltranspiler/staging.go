package sqltranspiler

import (
	"fmt"
	"strings"

	"fastprop/pkg/dataframe"
)

// sqlType maps a dataframe.Role to the column type the staging DDL
// declares for it. Categorical/join-key columns are staged as their
// original string domain, not the interned integer id — SQL consumers
// never see Encoding internals.
func sqlType(r dataframe.Role) string {
	switch r {
	case dataframe.RoleNumerical, dataframe.RoleTarget, dataframe.RoleTimeStamp, dataframe.RoleUnusedFloat:
		return "DOUBLE PRECISION"
	default:
		return "TEXT"
	}
}

// MakeStagingTables emits one CREATE TABLE per Schema, columns in the
// order s.Columns lists them, macro-rewriting any synthetic column name
// (generated time stamp, exploded text field) to the dialect's canonical
// staging name so the SQL a user reads never shows internal names (§7's
// "users see the staging-table name they supplied" rule, extended here to
// staging DDL rather than just error messages).
func MakeStagingTables(d Dialect, schemas []*dataframe.Schema, macros map[string]string) string {
	var b strings.Builder
	for _, s := range schemas {
		b.WriteString(d.DropTableIfExists(s.TableName))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("CREATE TABLE %s (\n", d.Quotechar1(s.TableName)))
		cols := make([]string, len(s.Columns))
		for i, c := range s.Columns {
			name := c.Name
			if marker, ok := macros[name]; ok {
				name = marker
			}
			cols[i] = fmt.Sprintf("  %s %s", d.Quotechar1(name), sqlType(c.Role))
		}
		b.WriteString(strings.Join(cols, ",\n"))
		b.WriteString("\n);\n\n")
	}
	return b.String()
}
