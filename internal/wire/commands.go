package wire

import (
	"strconv"

	"fastprop/pkg/datamodel"
	"fastprop/pkg/errs"
	"fastprop/pkg/predictor"

	"github.com/goccy/go-json"
)

// PipelineCommand is the closed tagged union of pipeline operations (§6):
// create, check, fit, transform, score, to_sql, refresh, refresh_all,
// deploy, lift_curve, roc_curve, precision_recall_curve,
// column_importances, feature_importances, feature_correlations. create
// is not among §6's named examples but is required to get a Pipeline into
// the manager before any of the others can name it.
type PipelineCommand struct {
	Op          string                `json:"type_"`
	Name        string                `json:"name"`
	Target      string                `json:"target,omitempty"`
	Targets     []string              `json:"targets,omitempty"`
	Placeholder *datamodel.Placeholder `json:"placeholder,omitempty"`

	// Subselection resolves the wire protocol's two historical spellings
	// (num_subselection, an older integer count, and subselection, a
	// bound-frame name) into one field, once, here — every downstream
	// consumer sees only Subselection and never has to branch on which
	// spelling a client sent (SPEC_FULL Open Question resolution).
	NumSubselection *int    `json:"num_subselection,omitempty"`
	SubselectionRaw *string `json:"subselection,omitempty"`
	Subselection    string  `json:"-"`

	PredictorKind string `json:"predictor,omitempty"`
	Dialect       string `json:"dialect,omitempty"`
	NumBuckets    int    `json:"num_buckets,omitempty"`
}

// ParsePipelineCommand decodes a Pipeline.* payload and resolves the
// subselection alias.
func ParsePipelineCommand(payload []byte) (PipelineCommand, error) {
	var cmd PipelineCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return PipelineCommand{}, err
	}
	switch {
	case cmd.SubselectionRaw != nil:
		cmd.Subselection = *cmd.SubselectionRaw
	case cmd.NumSubselection != nil:
		// legacy clients sent a row count instead of a frame name; the
		// count is carried through as its decimal string. Handlers resolve
		// Subselection as a frame name like any other, so a numeric value
		// only resolves when a frame of that name is registered; no
		// first-N-rows selection is made.
		cmd.Subselection = strconv.Itoa(*cmd.NumSubselection)
	}
	return cmd, nil
}

// ResolvePredictorKind maps a wire predictor tag to predictor.Kind,
// recognizing the commercial-only kinds so their tagged union still parses,
// then rejecting them with ErrNotSupportedInCommunity (SPEC_FULL Open
// Question resolution).
func ResolvePredictorKind(tag string) (predictor.Kind, error) {
	switch predictor.Kind(tag) {
	case predictor.KindLinear:
		return predictor.KindLinear, nil
	case predictor.KindXGBoost:
		return predictor.KindXGBoost, nil
	case predictor.KindFastBoost, predictor.KindMultirel, predictor.KindRelboost, predictor.KindRelMT:
		return "", errs.NotSupportedInCommunity(tag)
	default:
		return "", errs.New(errs.UserInput, "PREDICTOR_UNKNOWN_TAG", "unrecognized predictor tag: "+tag)
	}
}
