// Package sqltranspiler implements the dialect-parametric SQL emission
// described in §4.8: staging DDL, preprocessor effects (trimming tables),
// and one CREATE TABLE per selected feature, with size thresholds and
// identifier quoting delegated to a Dialect.
package sqltranspiler

import "fmt"

// Dialect is the polymorphic object §4.8 names: every method a transpiler
// needs to shape SQL text for one target engine.
type Dialect interface {
	Name() string

	// Quotechar1/Quotechar2 quote a single identifier and a
	// schema-qualified pair respectively.
	Quotechar1(ident string) string
	Quotechar2(schema, ident string) string

	// DropTableIfExists emits the dialect's drop statement.
	DropTableIfExists(table string) string

	// MakeStagingTableColname renders the canonical staging-table column
	// name for a macro-rewritten synthetic column (generated time stamp,
	// exploded text-field row id, ...).
	MakeStagingTableColname(marker, original string) string
}

// ansi is the baseline dialect: double-quoted identifiers, standard DROP
// TABLE IF EXISTS. Postgres and SQLite below only override what differs.
type ansi struct{ name string }

func (a ansi) Name() string { return a.name }

func (a ansi) Quotechar1(ident string) string { return `"` + ident + `"` }

func (a ansi) Quotechar2(schema, ident string) string {
	if schema == "" {
		return a.Quotechar1(ident)
	}
	return a.Quotechar1(schema) + "." + a.Quotechar1(ident)
}

func (a ansi) DropTableIfExists(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;", a.Quotechar1(table))
}

func (a ansi) MakeStagingTableColname(marker, original string) string {
	return fmt.Sprintf("%s__%s", marker, original)
}

// Postgres is the ANSI dialect verbatim; kept as a distinct named type so
// callers can select it explicitly and so future divergence (e.g.
// CASCADE-qualified drops) has somewhere to live.
type Postgres struct{ ansi }

func NewPostgres() Postgres { return Postgres{ansi{name: "postgres"}} }

func (p Postgres) DropTableIfExists(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE;", p.Quotechar1(table))
}

// SQLite uses backtick-free double-quoted identifiers like ANSI but has no
// schema-qualification syntax worth emitting; Quotechar2 collapses to
// Quotechar1.
type SQLite struct{ ansi }

func NewSQLite() SQLite { return SQLite{ansi{name: "sqlite3"}} }

func (s SQLite) Quotechar2(schema, ident string) string { return s.Quotechar1(ident) }

// MySQL swaps double quotes for backticks, the one place ANSI identifier
// quoting is actually wrong for a real dialect in this pack.
type MySQL struct{ ansi }

func NewMySQL() MySQL { return MySQL{ansi{name: "mysql"}} }

func (m MySQL) Quotechar1(ident string) string { return "`" + ident + "`" }

func (m MySQL) Quotechar2(schema, ident string) string {
	if schema == "" {
		return m.Quotechar1(ident)
	}
	return m.Quotechar1(schema) + "." + m.Quotechar1(ident)
}

// ByName resolves a dialect from a configuration string (§4.8, wired to
// internal/config's `dialect` option). Unknown names fall back to ANSI
// rather than failing, since ANSI SQL is a safe default for review/export.
func ByName(name string) Dialect {
	switch name {
	case "postgres", "postgresql":
		return NewPostgres()
	case "sqlite", "sqlite3":
		return NewSQLite()
	case "mysql":
		return NewMySQL()
	default:
		return ansi{name: "ansi"}
	}
}
