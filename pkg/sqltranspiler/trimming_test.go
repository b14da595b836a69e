package sqltranspiler

import (
	"strings"
	"testing"
)

func TestTrimmingHeaderNamesMappingTable(t *testing.T) {
	m := TrimmingMapping{Table: "orders", Column: "status"}
	sql := TrimmingHeader(ByName("ansi"), m)
	if !strings.Contains(sql, `"__trimming_orders_status"`) {
		t.Fatalf("expected the mapping table name in the header, got:\n%s", sql)
	}
}

func TestTrimmingInsertIntoBatchesRows(t *testing.T) {
	kept := make([]string, 501)
	for i := range kept {
		kept[i] = "v"
	}
	m := TrimmingMapping{Table: "orders", Column: "status", Kept: kept}
	sql := TrimmingInsertInto(ByName("ansi"), m)
	if got := strings.Count(sql, "INSERT INTO"); got != 2 {
		t.Fatalf("expected 501 rows to split across 2 batched INSERTs, got %d", got)
	}
}

func TestTrimmingInsertIntoEscapesQuotes(t *testing.T) {
	m := TrimmingMapping{Table: "orders", Column: "status", Kept: []string{"o'brien"}}
	sql := TrimmingInsertInto(ByName("ansi"), m)
	if !strings.Contains(sql, "o''brien") {
		t.Fatalf("expected single quotes to be escaped, got:\n%s", sql)
	}
}

func TestTrimmingJoinReferencesMappingTable(t *testing.T) {
	m := TrimmingMapping{Table: "orders", Column: "status"}
	join := TrimmingJoin(ByName("ansi"), m, "sm")
	if !strings.Contains(join, `"orders"."status"`) || !strings.Contains(join, `"sm"."original"`) {
		t.Fatalf("expected the join to reference both the source and mapping columns, got: %s", join)
	}
}
