package scoring

import (
	"sort"

	"fastprop/pkg/datamodel"
	"fastprop/pkg/fastprop"
)

// FeatureWeight pairs one abstract feature's index in a Matrix with the
// absolute contribution a fitted predictor assigned it, before it has been
// distributed back down to the original column it was aggregated from.
type FeatureWeight struct {
	FeatureIndex int
	Weight       float64
}

// ColumnImportance is the final, column-level attribution a client reads
// off Pipeline.ColumnImportances (§4.10).
type ColumnImportance struct {
	Table   string
	Column  string
	Weight  float64
}

// ColumnImportances distributes per-feature weights (typically |coefficient|
// from a fitted linear predictor, or a permutation-importance score from
// any predictor) down to source columns by walking each AbstractFeature's
// InputCol, recursing into the owning FastProp's subfeature children when
// DataUsed is DataSubfeatures (§4.5.4). A text feature is credited to its
// InputCol as written ("column:word"); its weight is not spread across the
// column's vocabulary words.
func ColumnImportances(fp *fastprop.FastProp, weights []FeatureWeight, tableName string) []ColumnImportance {
	byTable := map[string]float64{}
	features := fp.Features()

	for _, w := range weights {
		if w.FeatureIndex < 0 || w.FeatureIndex >= len(features) {
			continue
		}
		attribute(fp, features[w.FeatureIndex], w.Weight, tableName, byTable)
	}

	cols := make([]ColumnImportance, 0, len(byTable))
	for key, weight := range byTable {
		table, column := splitKey(key)
		cols = append(cols, ColumnImportance{Table: table, Column: column, Weight: weight})
	}
	sort.Slice(cols, func(i, j int) bool {
		if cols[i].Weight != cols[j].Weight {
			return cols[i].Weight > cols[j].Weight
		}
		if cols[i].Table != cols[j].Table {
			return cols[i].Table < cols[j].Table
		}
		return cols[i].Column < cols[j].Column
	})
	return cols
}

func attribute(fp *fastprop.FastProp, f datamodel.AbstractFeature, weight float64, tableName string, out map[string]float64) {
	if f.DataUsed == datamodel.DataSubfeatures {
		child := fp.Child(f.PeripheralIx)
		if child == nil {
			return
		}
		childFeatures := child.Features()
		if f.SubfeatureIndex < 0 || f.SubfeatureIndex >= len(childFeatures) {
			return
		}
		attribute(child, childFeatures[f.SubfeatureIndex], weight, f.InputCol, out)
		return
	}
	if f.InputCol == "" {
		return
	}
	out[tableName+"\x00"+f.InputCol] += weight
}

func splitKey(key string) (table, column string) {
	for i := 0; i < len(key); i++ {
		if key[i] == 0 {
			return key[:i], key[i+1:]
		}
	}
	return "", key
}
