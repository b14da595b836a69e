package wire

import (
	"strings"

	"fastprop/pkg/dataframe"
	"fastprop/pkg/errs"
	"fastprop/pkg/fastprop"
	"fastprop/pkg/pipeline"
	"fastprop/pkg/predictor"
	"fastprop/pkg/preprocess"
	"fastprop/pkg/scoring"
	"fastprop/pkg/sqltranspiler"

	"github.com/goccy/go-json"
)

// dispatchDomain routes every command outside is_alive/shutdown to its
// subdomain handler by the dot-prefixed portion of type_ (§6: "Each
// subdomain has a closed tagged union with the recognised operations
// enumerated").
func (s *Server) dispatchDomain(env Envelope) Response {
	domain, op, ok := strings.Cut(env.Type, ".")
	if !ok {
		return Fail(errs.New(errs.UserInput, "WIRE_UNKNOWN_COMMAND", "unrecognized command type_: "+env.Type))
	}
	switch domain {
	case "Pipeline":
		return s.dispatchPipeline(op, env.Payload)
	case "DataFrame":
		return s.dispatchDataFrame(op, env.Payload)
	case "Column", "Database", "Project", "View":
		return Fail(errs.New(errs.UserInput, "WIRE_UNSUPPORTED_DOMAIN", domain+" commands are not implemented by this build"))
	default:
		return Fail(errs.New(errs.UserInput, "WIRE_UNKNOWN_DOMAIN", "unrecognized command domain: "+domain))
	}
}

func (s *Server) dispatchPipeline(op string, payload []byte) Response {
	cmd, err := ParsePipelineCommand(payload)
	if err != nil {
		return Fail(err)
	}
	cmd.Op = op

	switch op {
	case "create":
		if cmd.Placeholder == nil {
			return Fail(errs.New(errs.UserInput, "PIPELINE_MISSING_PLACEHOLDER", "create requires a placeholder tree"))
		}
		cfg := fastprop.DefaultConfig()
		p := pipeline.New(cmd.Name, cmd.Placeholder, cfg, preprocess.NewChain())
		s.Manager.Put(p)
		return OK()

	case "check":
		p, err := s.Manager.Get(cmd.Name)
		if err != nil {
			return Fail(err)
		}
		warnings, err := pipeline.Check(p.Placeholder, s.Store)
		if err != nil {
			return Fail(err)
		}
		resp, err := Found(warnings)
		if err != nil {
			return Fail(err)
		}
		return resp

	case "fit":
		p, err := s.Manager.Get(cmd.Name)
		if err != nil {
			return Fail(err)
		}
		predictors, err := buildPredictors(cmd)
		if err != nil {
			return Fail(err)
		}
		warnings, err := p.Fit(s.Store, cmd.Targets, predictors, nil)
		if err != nil {
			return Fail(err)
		}
		resp, err := Found(warnings)
		if err != nil {
			return Fail(err)
		}
		return resp

	case "transform":
		p, err := s.Manager.Get(cmd.Name)
		if err != nil {
			return Fail(err)
		}
		population := cmd.Subselection
		if population == "" {
			population = p.Placeholder.Name
		}
		matrix, retrievedFromCache, err := p.Transform(s.Store, population)
		if err != nil {
			return Fail(err)
		}
		return matrixResponse(matrix, retrievedFromCache)

	case "score":
		p, err := s.Manager.Get(cmd.Name)
		if err != nil {
			return Fail(err)
		}
		population := cmd.Subselection
		if population == "" {
			population = p.Placeholder.Name
		}
		scores, err := p.Score(s.Store, population)
		if err != nil {
			return Fail(err)
		}
		resp, err := Found(scores)
		if err != nil {
			return Fail(err)
		}
		return resp

	case "to_sql":
		p, err := s.Manager.Get(cmd.Name)
		if err != nil {
			return Fail(err)
		}
		dialect := sqltranspiler.ByName(cmd.Dialect)
		sql := p.ToSQL(dialect, 1_000_000)
		resp, err := Found(sql)
		if err != nil {
			return Fail(err)
		}
		return resp

	case "refresh":
		scores, err := s.Manager.Refresh(cmd.Name, s.Store)
		if err != nil {
			return Fail(err)
		}
		resp, err := Found(scores)
		if err != nil {
			return Fail(err)
		}
		return resp

	case "refresh_all":
		results := s.Manager.RefreshAll(s.Store, nil)
		resp, err := Found(results)
		if err != nil {
			return Fail(err)
		}
		return resp

	case "deploy":
		if err := s.Manager.Deploy(cmd.Name); err != nil {
			return Fail(err)
		}
		return OK()

	case "roc_curve":
		p, err := s.Manager.Get(cmd.Name)
		if err != nil {
			return Fail(err)
		}
		points, auc, err := p.ROCCurve(s.Store, p.Placeholder.Name, cmd.Target)
		if err != nil {
			return Fail(err)
		}
		resp, err := Found(struct {
			Points []curvePoint `json:"points"`
			AUC    float64      `json:"auc"`
		}{toXY(points), auc})
		if err != nil {
			return Fail(err)
		}
		return resp

	case "precision_recall_curve":
		p, err := s.Manager.Get(cmd.Name)
		if err != nil {
			return Fail(err)
		}
		points, err := p.PrecisionRecallCurve(s.Store, p.Placeholder.Name, cmd.Target)
		if err != nil {
			return Fail(err)
		}
		resp, err := Found(toXY(points))
		if err != nil {
			return Fail(err)
		}
		return resp

	case "lift_curve":
		p, err := s.Manager.Get(cmd.Name)
		if err != nil {
			return Fail(err)
		}
		buckets := cmd.NumBuckets
		if buckets == 0 {
			buckets = 10
		}
		points, err := p.LiftCurve(s.Store, p.Placeholder.Name, cmd.Target, buckets)
		if err != nil {
			return Fail(err)
		}
		resp, err := Found(toXY(points))
		if err != nil {
			return Fail(err)
		}
		return resp

	case "column_importances":
		p, err := s.Manager.Get(cmd.Name)
		if err != nil {
			return Fail(err)
		}
		importances, err := p.ColumnImportances(cmd.Target)
		if err != nil {
			return Fail(err)
		}
		resp, err := Found(importances)
		if err != nil {
			return Fail(err)
		}
		return resp

	case "feature_importances":
		p, err := s.Manager.Get(cmd.Name)
		if err != nil {
			return Fail(err)
		}
		importances, err := p.FeatureImportances(cmd.Target)
		if err != nil {
			return Fail(err)
		}
		resp, err := Found(importances)
		if err != nil {
			return Fail(err)
		}
		return resp

	case "feature_correlations":
		p, err := s.Manager.Get(cmd.Name)
		if err != nil {
			return Fail(err)
		}
		correlations, err := p.FeatureCorrelations(s.Store, p.Placeholder.Name, cmd.Target)
		if err != nil {
			return Fail(err)
		}
		resp, err := Found(correlations)
		if err != nil {
			return Fail(err)
		}
		return resp

	default:
		return Fail(errs.New(errs.UserInput, "WIRE_UNKNOWN_PIPELINE_OP", "unrecognized Pipeline operation: "+op))
	}
}

func buildPredictors(cmd PipelineCommand) (map[string]predictor.Predictor, error) {
	kind, err := ResolvePredictorKind(cmd.PredictorKind)
	if err != nil {
		return nil, err
	}
	registry := pipeline.NewPredictorRegistry()
	predictors := map[string]predictor.Predictor{}
	for _, t := range cmd.Targets {
		p, err := registry.New(kind)
		if err != nil {
			return nil, err
		}
		predictors[t] = p
	}
	return predictors, nil
}

func (s *Server) dispatchDataFrame(op string, payload []byte) Response {
	switch op {
	case "get_column":
		var req struct {
			Frame  string `json:"frame"`
			Column string `json:"column"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return Fail(err)
		}
		df, err := s.Store.Get(req.Frame)
		if err != nil {
			return Fail(err)
		}
		return columnResponse(df, req.Column)
	case "list_columns":
		var req struct {
			Frame string `json:"frame"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return Fail(err)
		}
		df, err := s.Store.Get(req.Frame)
		if err != nil {
			return Fail(err)
		}
		names := make([]string, 0)
		for _, ci := range df.Schema().Columns {
			names = append(names, ci.Name)
		}
		resp, err := Found(names)
		if err != nil {
			return Fail(err)
		}
		return resp
	default:
		return Fail(errs.New(errs.UserInput, "WIRE_UNKNOWN_DATAFRAME_OP", "unrecognized DataFrame operation: "+op))
	}
}

// curvePoint is the JSON shape a scoring.Point serializes to on the wire;
// scoring.Point itself carries no json tags since pkg/scoring has no wire
// dependency.
type curvePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func toXY(points []scoring.Point) []curvePoint {
	out := make([]curvePoint, len(points))
	for i, p := range points {
		out[i] = curvePoint{X: p.X, Y: p.Y}
	}
	return out
}

// matrixPayload is the JSON shape a transformed feature matrix serializes
// to: row-major values plus the dimensions needed to reshape them.
// RetrievedFromCache surfaces §8 scenario 6: a Transform against unchanged
// frames answers from the fingerprint cache instead of recomputing.
type matrixPayload struct {
	Rows               int       `json:"rows"`
	Cols               int       `json:"cols"`
	Data               []float64 `json:"data"`
	RetrievedFromCache bool      `json:"retrieved_from_cache"`
}

func matrixResponse(m *fastprop.Matrix, retrievedFromCache bool) Response {
	body, err := json.Marshal(matrixPayload{Rows: m.Rows, Cols: m.Cols, Data: m.Data, RetrievedFromCache: retrievedFromCache})
	if err != nil {
		return Fail(err)
	}
	return Response{Status: StatusFound, Payload: body}
}

func columnResponse(df *dataframe.DataFrame, column string) Response {
	if col, ok := df.Numerical(column); ok {
		values := make([]float64, col.Len())
		for i := 0; i < col.Len(); i++ {
			values[i] = col.Get(i)
		}
		body, err := EncodeNumericColumn(column, values)
		if err != nil {
			return Fail(err)
		}
		return Response{Status: StatusFound, ArrowPayload: body}
	}
	return Fail(errs.ColumnNotFound(df.Name(), column, "unknown"))
}
