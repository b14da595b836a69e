package wire

import (
	"testing"

	"fastprop/pkg/predictor"
)

func TestParsePipelineCommandResolvesNamedSubselection(t *testing.T) {
	cmd, err := ParsePipelineCommand([]byte(`{"type_":"transform","name":"p","subselection":"holdout"}`))
	if err != nil {
		t.Fatalf("ParsePipelineCommand: %v", err)
	}
	if cmd.Subselection != "holdout" {
		t.Fatalf("expected subselection holdout, got %q", cmd.Subselection)
	}
}

func TestParsePipelineCommandResolvesLegacyNumSubselection(t *testing.T) {
	cmd, err := ParsePipelineCommand([]byte(`{"type_":"transform","name":"p","num_subselection":50}`))
	if err != nil {
		t.Fatalf("ParsePipelineCommand: %v", err)
	}
	if cmd.Subselection != "50" {
		t.Fatalf("expected legacy num_subselection converted to \"50\", got %q", cmd.Subselection)
	}
}

func TestParsePipelineCommandNamedWinsOverLegacy(t *testing.T) {
	cmd, err := ParsePipelineCommand([]byte(`{"type_":"transform","name":"p","subselection":"holdout","num_subselection":50}`))
	if err != nil {
		t.Fatalf("ParsePipelineCommand: %v", err)
	}
	if cmd.Subselection != "holdout" {
		t.Fatalf("expected the named subselection field to take priority, got %q", cmd.Subselection)
	}
}

func TestParsePipelineCommandNoSubselectionIsEmpty(t *testing.T) {
	cmd, err := ParsePipelineCommand([]byte(`{"type_":"fit","name":"p"}`))
	if err != nil {
		t.Fatalf("ParsePipelineCommand: %v", err)
	}
	if cmd.Subselection != "" {
		t.Fatalf("expected an empty subselection when neither field is set, got %q", cmd.Subselection)
	}
}

func TestResolvePredictorKindAcceptsLinear(t *testing.T) {
	kind, err := ResolvePredictorKind("linear")
	if err != nil {
		t.Fatalf("ResolvePredictorKind: %v", err)
	}
	if kind != predictor.KindLinear {
		t.Fatalf("expected KindLinear, got %v", kind)
	}
}

func TestResolvePredictorKindRejectsCommunityRestricted(t *testing.T) {
	for _, tag := range []string{"fastboost", "multirel", "relboost", "relmt"} {
		if _, err := ResolvePredictorKind(tag); err == nil {
			t.Fatalf("expected predictor tag %q to be rejected in the community edition", tag)
		}
	}
}

func TestResolvePredictorKindRejectsUnknownTag(t *testing.T) {
	if _, err := ResolvePredictorKind("not-a-real-predictor"); err == nil {
		t.Fatal("expected an unrecognized predictor tag to error")
	}
}
