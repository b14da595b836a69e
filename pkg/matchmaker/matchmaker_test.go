package matchmaker

import (
	"testing"

	"fastprop/pkg/columnstore"
	"fastprop/pkg/dataframe"
	"fastprop/pkg/datamodel"
	"fastprop/pkg/encoding"
)

// buildFrame is a small helper mirroring the seed scenario tables in §8:
// population p(id, ts) and peripheral q(id, ts).
func buildFrame(t *testing.T, reg *encoding.Registry, name string, ids []string, ts []float64) *dataframe.DataFrame {
	t.Helper()
	df := dataframe.New(name, len(ids), reg.JoinKeys(), reg.Categorical)
	jk, _ := columnstore.New[int64]("id", len(ids), nil)
	for i, s := range ids {
		jk.Set(i, int64(reg.JoinKeys().Intern(s)))
	}
	if err := df.AddJoinKey("id", &dataframe.CatColumn{Column: jk, Domain: "join"}); err != nil {
		t.Fatal(err)
	}
	if ts != nil {
		tsCol, _ := columnstore.New[float64]("ts", len(ts), nil)
		for i, v := range ts {
			tsCol.Set(i, v)
		}
		if err := df.AddTimeStamp("ts", tsCol); err != nil {
			t.Fatal(err)
		}
	}
	return df
}

func TestMatchSingleJoinExcludesFutureRows(t *testing.T) {
	reg := encoding.NewRegistry()
	pop := buildFrame(t, reg, "p", []string{"1", "2"}, []float64{100, 200})
	periph := buildFrame(t, reg, "q", []string{"1", "1", "2", "2"}, []float64{90, 80, 180, 250})

	if err := periph.SortByKey("id", "ts"); err != nil {
		t.Fatal(err)
	}
	if err := periph.CreateIndices("id"); err != nil {
		t.Fatal(err)
	}

	mm := New(pop, periph, Columns{PopulationJoinKey: "id", PeripheralJoinKey: "id", PopulationTS: "ts", PeripheralTS: "ts"},
		datamodel.JoinSpec{Memory: 1e18, Horizon: 0})

	m1, err := mm.Match(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(m1.Peripheral) != 2 {
		t.Fatalf("expected 2 matches for population row 0, got %d", len(m1.Peripheral))
	}

	m2, err := mm.Match(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(m2.Peripheral) != 1 {
		t.Fatalf("expected row with ts=250 excluded (future), got %d matches", len(m2.Peripheral))
	}
}

func TestMatchCountOnNoMatch(t *testing.T) {
	reg := encoding.NewRegistry()
	pop := buildFrame(t, reg, "p", []string{"1", "2"}, []float64{100, 200})
	periph := buildFrame(t, reg, "q", []string{"1"}, []float64{90})

	if err := periph.SortByKey("id", "ts"); err != nil {
		t.Fatal(err)
	}
	if err := periph.CreateIndices("id"); err != nil {
		t.Fatal(err)
	}

	mm := New(pop, periph, Columns{PopulationJoinKey: "id", PeripheralJoinKey: "id", PopulationTS: "ts", PeripheralTS: "ts"},
		datamodel.JoinSpec{Memory: 1e18, Horizon: 0})

	m, err := mm.Match(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Peripheral) != 0 {
		t.Fatalf("expected COUNT 0 for id=2 with no peripheral rows, got %d", len(m.Peripheral))
	}
}

func TestMatchWithoutTimeStampsReturnsWholeBucket(t *testing.T) {
	reg := encoding.NewRegistry()
	pop := buildFrame(t, reg, "p", []string{"1"}, nil)
	periph := buildFrame(t, reg, "q", []string{"1", "1", "1"}, nil)

	if err := periph.SortByKey("id", ""); err != nil {
		t.Fatal(err)
	}
	if err := periph.CreateIndices("id"); err != nil {
		t.Fatal(err)
	}

	mm := New(pop, periph, Columns{PopulationJoinKey: "id", PeripheralJoinKey: "id"}, datamodel.JoinSpec{})
	m, err := mm.Match(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Peripheral) != 3 {
		t.Fatalf("expected all 3 rows without time stamps, got %d", len(m.Peripheral))
	}
}
