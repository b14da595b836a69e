package sqltranspiler

import "testing"

func TestByNameResolvesKnownDialects(t *testing.T) {
	cases := map[string]string{
		"postgres":   "postgres",
		"postgresql": "postgres",
		"sqlite":     "sqlite3",
		"sqlite3":    "sqlite3",
		"mysql":      "mysql",
		"unknown":    "ansi",
		"":           "ansi",
	}
	for input, want := range cases {
		if got := ByName(input).Name(); got != want {
			t.Errorf("ByName(%q).Name() = %q, want %q", input, got, want)
		}
	}
}

func TestMySQLUsesBackticks(t *testing.T) {
	d := NewMySQL()
	if got := d.Quotechar1("col"); got != "`col`" {
		t.Fatalf("expected backtick quoting, got %s", got)
	}
	if got := d.Quotechar2("db", "col"); got != "`db`.`col`" {
		t.Fatalf("expected qualified backtick quoting, got %s", got)
	}
}

func TestAnsiUsesDoubleQuotes(t *testing.T) {
	d := ByName("ansi")
	if got := d.Quotechar1("col"); got != `"col"` {
		t.Fatalf("expected double-quote identifier, got %s", got)
	}
	if got := d.Quotechar2("", "col"); got != `"col"` {
		t.Fatalf("expected unqualified identifier when schema is empty, got %s", got)
	}
}

func TestSQLiteCollapsesSchemaQualification(t *testing.T) {
	d := NewSQLite()
	if got := d.Quotechar2("schema", "col"); got != `"col"` {
		t.Fatalf("expected SQLite to ignore the schema qualifier, got %s", got)
	}
}

func TestPostgresDropAddsCascade(t *testing.T) {
	d := NewPostgres()
	got := d.DropTableIfExists("orders")
	want := `DROP TABLE IF EXISTS "orders" CASCADE;`
	if got != want {
		t.Fatalf("DropTableIfExists() = %q, want %q", got, want)
	}
}

func TestAnsiDropHasNoCascade(t *testing.T) {
	d := ByName("ansi")
	got := d.DropTableIfExists("orders")
	want := `DROP TABLE IF EXISTS "orders";`
	if got != want {
		t.Fatalf("DropTableIfExists() = %q, want %q", got, want)
	}
}
