package sqltranspiler

import (
	"fmt"
	"strconv"
	"strings"

	"fastprop/pkg/datamodel"
)

// FeatureContext supplies the concrete table/column names a Feature needs
// to render SQL — resolved by the caller (FastProp) from its Placeholder
// edge, since AbstractFeature itself only carries a peripheral index.
type FeatureContext struct {
	PopulationTable  string
	PopulationJoinKey string
	PeripheralTable  string
	PeripheralJoinKey string
	PopulationTS     string
	PeripheralTS     string
}

// aggregateExpr renders the SQL aggregate expression for one Aggregation
// over projExpr (already resolved to a column reference or CASE
// expression). Aggregations with no direct SQL equivalent are approximated:
// TREND becomes REGR_SLOPE, AVG TIME BETWEEN a time span over (count - 1),
// EWMA a plain AVG (noted inline), and KURTOSIS/SKEW emit NULL.
func aggregateExpr(agg datamodel.Aggregation, projExpr string, ctx FeatureContext) string {
	switch agg {
	case datamodel.Count:
		return "COUNT(*)"
	case datamodel.CountDistinct:
		return fmt.Sprintf("COUNT(DISTINCT %s)", projExpr)
	case datamodel.CountMinusCountDistinct:
		return fmt.Sprintf("(COUNT(*) - COUNT(DISTINCT %s))", projExpr)
	case datamodel.Sum:
		return fmt.Sprintf("SUM(%s)", projExpr)
	case datamodel.Avg:
		return fmt.Sprintf("AVG(%s)", projExpr)
	case datamodel.Min, datamodel.NumMin:
		return fmt.Sprintf("MIN(%s)", projExpr)
	case datamodel.Max, datamodel.NumMax:
		return fmt.Sprintf("MAX(%s)", projExpr)
	case datamodel.Stddev:
		return fmt.Sprintf("STDDEV(%s)", projExpr)
	case datamodel.Var:
		return fmt.Sprintf("VARIANCE(%s)", projExpr)
	case datamodel.Median:
		return fmt.Sprintf("PERCENTILE_CONT(0.5) WITHIN GROUP (ORDER BY %s)", projExpr)
	case datamodel.First:
		return fmt.Sprintf("(ARRAY_AGG(%s ORDER BY %s ASC))[1]", projExpr, ctx.PeripheralTS)
	case datamodel.Last:
		return fmt.Sprintf("(ARRAY_AGG(%s ORDER BY %s DESC))[1]", projExpr, ctx.PeripheralTS)
	case datamodel.TimeSinceFirstEvent:
		return fmt.Sprintf("(MAX(%s.%s) - MIN(%s))", ctx.PopulationTable, ctx.PopulationTS, ctx.PeripheralTS)
	case datamodel.TimeSinceLastEvent:
		return fmt.Sprintf("(MAX(%s.%s) - MAX(%s))", ctx.PopulationTable, ctx.PopulationTS, ctx.PeripheralTS)
	case datamodel.AvgTimeBetween:
		return fmt.Sprintf("((MAX(%s) - MIN(%s)) / GREATEST(1, COUNT(*) - 1))", ctx.PeripheralTS, ctx.PeripheralTS)
	case datamodel.Trend:
		return fmt.Sprintf("REGR_SLOPE(%s, %s)", projExpr, ctx.PeripheralTS)
	case datamodel.Kurtosis, datamodel.Skew:
		return fmt.Sprintf("/* %s has no portable SQL equivalent; computed in-engine only */ NULL", agg)
	case datamodel.CountAboveMean:
		return fmt.Sprintf("SUM(CASE WHEN %s > AVG(%s) OVER () THEN 1 ELSE 0 END)", projExpr, projExpr)
	case datamodel.CountBelowMean:
		return fmt.Sprintf("SUM(CASE WHEN %s < AVG(%s) OVER () THEN 1 ELSE 0 END)", projExpr, projExpr)
	default:
		if alpha, ok := datamodel.EWMAAlphas[agg]; ok {
			return fmt.Sprintf("/* EWMA alpha=%v approximated as AVG in SQL export */ AVG(%s)", alpha, projExpr)
		}
		return "NULL"
	}
}

func conditionSQL(d Dialect, c datamodel.Condition, ctx FeatureContext) string {
	switch c.Kind {
	case datamodel.CategoricalEquality:
		return fmt.Sprintf("%s.%s = %s", d.Quotechar1(ctx.PeripheralTable), d.Quotechar1(c.PeripheralColumn), strconv.FormatInt(c.CategoricalValue, 10))
	case datamodel.SameUnitsEquality:
		return fmt.Sprintf("%s.%s = %s.%s",
			d.Quotechar1(ctx.PeripheralTable), d.Quotechar1(c.PeripheralColumn),
			d.Quotechar1(ctx.PopulationTable), d.Quotechar1(c.PopulationColumn))
	case datamodel.LagBand:
		lo := float64(c.LagK) * c.LagDelta
		hi := float64(c.LagK+1) * c.LagDelta
		return fmt.Sprintf("(%s.%s - %s.%s) >= %v AND (%s.%s - %s.%s) < %v",
			d.Quotechar1(ctx.PopulationTable), d.Quotechar1(ctx.PopulationTS),
			d.Quotechar1(ctx.PeripheralTable), d.Quotechar1(ctx.PeripheralTS), lo,
			d.Quotechar1(ctx.PopulationTable), d.Quotechar1(ctx.PopulationTS),
			d.Quotechar1(ctx.PeripheralTable), d.Quotechar1(ctx.PeripheralTS), hi)
	default:
		return "1=1"
	}
}

func projectionSQL(d Dialect, f datamodel.AbstractFeature, ctx FeatureContext) string {
	switch f.DataUsed {
	case datamodel.DataNA, datamodel.DataSubfeatures:
		return "1"
	case datamodel.DataText:
		col, word := "", ""
		if i := strings.LastIndex(f.InputCol, ":"); i >= 0 {
			col, word = f.InputCol[:i], f.InputCol[i+1:]
		} else {
			col = f.InputCol
		}
		return fmt.Sprintf("(CASE WHEN %s.%s LIKE '%%%s%%' THEN 1 ELSE 0 END)",
			d.Quotechar1(ctx.PeripheralTable), d.Quotechar1(col), strings.ReplaceAll(word, "'", "''"))
	default:
		return fmt.Sprintf("%s.%s", d.Quotechar1(ctx.PeripheralTable), d.Quotechar1(f.InputCol))
	}
}

// MakeFeatureSQL emits the CREATE TABLE for one selected feature (§4.5.6):
// `CREATE TABLE feature_<i>_<j> AS SELECT ...` joining the population to
// the peripheral over the join key, grouped by the population's row
// identity, with the feature's AND-combined conditions applied in the
// WHERE clause. tableName is the caller-chosen "feature_<i>_<j>" name.
// When sizeThreshold > 0 and the resulting SQL text would exceed it, a stub
// CREATE TABLE with an explanatory comment replaces the real query.
func MakeFeatureSQL(d Dialect, tableName string, f datamodel.AbstractFeature, ctx FeatureContext, sizeThreshold int) string {
	proj := projectionSQL(d, f, ctx)
	aggExpr := aggregateExpr(f.Aggregation, proj, ctx)

	where := "1=1"
	if len(f.Conditions) > 0 {
		parts := make([]string, len(f.Conditions))
		for i, c := range f.Conditions {
			parts[i] = conditionSQL(d, c, ctx)
		}
		where = strings.Join(parts, " AND ")
	}

	sql := fmt.Sprintf(
		"%s\nCREATE TABLE %s AS\nSELECT %s.%s AS %s,\n       %s AS %s\nFROM %s\nLEFT JOIN %s ON %s.%s = %s.%s\nWHERE %s\nGROUP BY %s.%s;\n",
		d.DropTableIfExists(tableName), d.Quotechar1(tableName),
		d.Quotechar1(ctx.PopulationTable), d.Quotechar1(ctx.PopulationJoinKey), d.Quotechar1("rowid"),
		aggExpr, d.Quotechar1(tableName),
		d.Quotechar1(ctx.PopulationTable),
		d.Quotechar1(ctx.PeripheralTable),
		d.Quotechar1(ctx.PopulationTable), d.Quotechar1(ctx.PopulationJoinKey),
		d.Quotechar1(ctx.PeripheralTable), d.Quotechar1(ctx.PeripheralJoinKey),
		where,
		d.Quotechar1(ctx.PopulationTable), d.Quotechar1(ctx.PopulationJoinKey),
	)

	if sizeThreshold > 0 && len(sql) > sizeThreshold {
		return fmt.Sprintf("%s\nCREATE TABLE %s (%s DOUBLE PRECISION);\n-- feature SQL exceeded size_threshold=%d bytes (%d bytes); stubbed per §4.5.6\n",
			d.DropTableIfExists(tableName), d.Quotechar1(tableName), d.Quotechar1(tableName), sizeThreshold, len(sql))
	}
	return sql
}
