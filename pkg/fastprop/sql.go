package fastprop

import (
	"fmt"

	"fastprop/pkg/datamodel"
	"fastprop/pkg/sqltranspiler"
)

// FeatureSQL is one emitted CREATE TABLE statement plus the name it
// declares, in the order §4.5.6 wants them: subfeatures first, under a
// name prefix, then the parent's own features.
type FeatureSQL struct {
	Name string
	SQL  string
}

// ToSQL emits one CREATE TABLE per selected feature (§4.5.6). popTable is
// the name of the DataFrame fp was fitted against; prefix namespaces
// subfeature table names when fp is itself a child FastProp.
func (fp *FastProp) ToSQL(d sqltranspiler.Dialect, popTable, prefix string, sizeThreshold int) []FeatureSQL {
	var out []FeatureSQL
	for j, f := range fp.features {
		if f.DataUsed == datamodel.DataSubfeatures {
			if sub, ok := fp.children[f.PeripheralIx]; ok {
				childName := fp.placeholder.Children[f.PeripheralIx].Name
				out = append(out, sub.ToSQL(d, childName, prefix+childName+"_", sizeThreshold)...)
			}
			continue
		}

		ec := fp.edgeCols[f.PeripheralIx]
		childName := fp.placeholder.Children[f.PeripheralIx].Name
		ctx := sqltranspiler.FeatureContext{
			PopulationTable: popTable, PopulationJoinKey: ec.popJK,
			PeripheralTable: childName, PeripheralJoinKey: ec.periphJK,
			PopulationTS: ec.popTS, PeripheralTS: ec.periphTS,
		}
		name := fmt.Sprintf("%sfeature_%d_%d", prefix, f.PeripheralIx, j)
		out = append(out, FeatureSQL{Name: name, SQL: sqltranspiler.MakeFeatureSQL(d, name, f, ctx, sizeThreshold)})
	}
	return out
}
