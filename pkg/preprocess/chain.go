package preprocess

import (
	"fastprop/pkg/cache"
	"fastprop/pkg/dataframe"
	"fastprop/pkg/sqltranspiler"
)

// Chain runs an ordered sequence of Preprocessors, threading the logical
// frame from one stage to the next (§4.4/§4.7's "preprocessors.fit_transform").
type Chain struct {
	Stages []Preprocessor
}

func NewChain(stages ...Preprocessor) *Chain { return &Chain{Stages: stages} }

// Fingerprint folds every stage's fingerprint over the given input, in
// order — the fingerprint DAG's preprocessor level (§3, §4.6).
func (c *Chain) Fingerprint(input cache.Fingerprint) cache.Fingerprint {
	fp := input
	for _, s := range c.Stages {
		fp = s.Fingerprint(fp)
	}
	return fp
}

// FitTransform runs FitTransform on each stage in order, collecting every
// stage's warnings.
func (c *Chain) FitTransform(in *dataframe.DataFrame) (*dataframe.DataFrame, []cache.Warning, error) {
	frame := in
	var warnings []cache.Warning
	for _, s := range c.Stages {
		out, w, err := s.FitTransform(frame)
		if err != nil {
			return nil, nil, err
		}
		frame = out
		warnings = append(warnings, w...)
	}
	return frame, warnings, nil
}

// Transform runs Transform on each already-fitted stage in order.
func (c *Chain) Transform(in *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	frame := in
	for _, s := range c.Stages {
		out, err := s.Transform(frame)
		if err != nil {
			return nil, err
		}
		frame = out
	}
	return frame, nil
}

// ToSQL concatenates every stage's SQL fragment in fit order.
func (c *Chain) ToSQL(d sqltranspiler.Dialect) string {
	var sql string
	for _, s := range c.Stages {
		sql += s.ToSQL(d)
	}
	return sql
}

// Clone deep-copies every stage, so the copy can be refit without mutating
// this chain.
func (c *Chain) Clone() *Chain {
	stages := make([]Preprocessor, len(c.Stages))
	for i, s := range c.Stages {
		stages[i] = s.Clone()
	}
	return &Chain{Stages: stages}
}
