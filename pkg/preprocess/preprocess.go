// Package preprocess implements the ordered, composable preprocessor
// stack of §4.4: category trimming, imputation, seasonal decomposition,
// email/substring splitting, text-field splitting, and target-conditional
// mapping. Every preprocessor fits, transforms, round-trips through
// save/load, and emits a SQL fragment describing its effect (§4.4's shared
// capability set).
package preprocess

import (
	"fastprop/pkg/cache"
	"fastprop/pkg/dataframe"
	"fastprop/pkg/sqltranspiler"
)

// Preprocessor is the polymorphic capability set §4.4 names.
type Preprocessor interface {
	// Fingerprint identifies this preprocessor's hyperparameters plus its
	// input dependency (§4.4's "each preprocessor emits a fingerprint
	// comprising its hyperparameters plus its input dependencies").
	Fingerprint(input cache.Fingerprint) cache.Fingerprint

	// FitTransform fits this preprocessor's parameters against in and
	// returns a new logical frame (§3's lifecycle: preprocessors never
	// mutate last_change of the input, they produce a new frame that may
	// alias the input's columns). Warnings surface recoverable data issues
	// instead of failing the whole fit (§9).
	FitTransform(in *dataframe.DataFrame) (*dataframe.DataFrame, []cache.Warning, error)

	// Transform applies already-fitted parameters to a new frame (predict
	// time; no refitting).
	Transform(in *dataframe.DataFrame) (*dataframe.DataFrame, error)

	// ToSQL emits the SQL fragment reproducing this preprocessor's effect
	// against the staged tables (§4.4/§4.8).
	ToSQL(d sqltranspiler.Dialect) string

	// Save/Load round-trip the fitted parameters through the self-describing
	// binary record format §6 names for persisted projects; preprocessors
	// use JSON (via goccy/go-json, §6's wire codec) as that record's body.
	Save() ([]byte, error)
	Load(data []byte) error

	// Clone returns a deep-enough copy safe to fit independently (used by
	// Chain.Clone so refitting a copy leaves a previously fitted chain as is).
	Clone() Preprocessor

	// Name identifies the preprocessor kind for logging and persistence.
	Name() string
}

// excludeSubroles lists the subroles §4.4's "shared rules" name: a column
// carrying any of these is skipped by every preprocessor unless the
// concrete preprocessor names its own inclusion subrole (email_only,
// substring_only).
var excludeSubroles = []string{"exclude_preprocessors"}

// skip reports whether a column should be skipped by the preprocessor
// stack in general, or by one specific component via its
// exclude_<component> subrole.
func skip(col interface{ HasSubrole(string) bool }, component string) bool {
	for _, s := range excludeSubroles {
		if col.HasSubrole(s) {
			return true
		}
	}
	return col.HasSubrole("exclude_" + component)
}
