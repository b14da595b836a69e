// Package predictor defines the contract concrete predictor algorithms
// (linear regression, gradient boosting, ...) must satisfy to plug into a
// pipeline. Concrete implementations are external collaborators (§1) —
// this package only holds the interface and the registry the pipeline
// orchestrator resolves predictor kinds through, plus the community-edition
// rejection for the algorithms named in the wire protocol but never
// implemented here.
package predictor

import (
	"fastprop/pkg/cache"
	"fastprop/pkg/errs"
	"fastprop/pkg/fastprop"
)

// Predictor is fit against a feature matrix and one or more numerical
// targets, then used to score new rows. Implementations wrap whatever
// underlying model library they choose; fastprop only needs the matrix
// in, predictions out contract.
type Predictor interface {
	// Fingerprint identifies this predictor's hyperparameters plus its
	// input dependency, joining the same fingerprint DAG features do
	// (§4.6).
	Fingerprint(input cache.Fingerprint) cache.Fingerprint

	// Fit trains the predictor against X (NumFeatures columns) and y
	// (one column per target, aligned row-for-row with X).
	Fit(x *fastprop.Matrix, y *fastprop.Matrix, targetNames []string) error

	// Predict scores x and returns one column per target, in the order
	// Fit received them.
	Predict(x *fastprop.Matrix) (*fastprop.Matrix, error)

	// Save/Load round-trip fitted parameters, mirroring the preprocessor
	// stack's persistence contract (§4.4).
	Save() ([]byte, error)
	Load(data []byte) error

	// Kind identifies the predictor algorithm for logging, persistence,
	// and the wire protocol's predictor-selection tag.
	Kind() string
}

// Kind names the predictor algorithms the wire protocol can name. Only
// Linear and XGBoost (an external collaborator, wired through Registry)
// are available; the rest are recognized so a client's tagged union
// parses, then rejected.
type Kind string

const (
	KindLinear   Kind = "linear"
	KindXGBoost  Kind = "xgboost"
	KindFastBoost Kind = "fastboost"
	KindMultirel  Kind = "multirel"
	KindRelboost  Kind = "relboost"
	KindRelMT     Kind = "relmt"
)

// communityRejected lists the predictor kinds recognized by the wire
// protocol's tagged union but not available outside the commercial
// product (SPEC_FULL Open Question resolution).
var communityRejected = map[Kind]bool{
	KindFastBoost: true,
	KindMultirel:  true,
	KindRelboost:  true,
	KindRelMT:     true,
}

// Registry resolves a Kind to a constructor. The pipeline orchestrator
// registers concrete predictor implementations here at startup; fastprop's
// own packages never construct a Predictor directly.
type Registry struct {
	factories map[Kind]func() Predictor
}

func NewRegistry() *Registry {
	return &Registry{factories: map[Kind]func() Predictor{}}
}

// Register adds a constructor for kind, overwriting any prior registration.
func (r *Registry) Register(kind Kind, factory func() Predictor) {
	r.factories[kind] = factory
}

// New constructs a fresh, unfitted Predictor of kind. Kinds without a
// community implementation return errs.NotSupportedInCommunity even if a
// factory happens to be registered under a legacy alias.
func (r *Registry) New(kind Kind) (Predictor, error) {
	if communityRejected[kind] {
		return nil, errs.NotSupportedInCommunity(string(kind))
	}
	factory, ok := r.factories[kind]
	if !ok {
		return nil, errs.New(errs.UserInput, "PREDICTOR_UNKNOWN_KIND", "no predictor registered for kind "+string(kind))
	}
	return factory(), nil
}
