// Package cache implements the dependency & cache layer of §4.6: canonical
// content-addressable Fingerprints and the trackers built on top of them
// (DataFrameTracker, FETracker, PredTracker, PreprocessorTracker,
// WarningTracker), guaranteeing at most one concurrent build per
// fingerprint and O(1) repeated retrieval.
package cache

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint is a canonical, hashable record identifying an artefact and
// all of its inputs recursively (§3). Fingerprints form a DAG: predictor ->
// feature-selector -> feature-learner -> preprocessor -> data-frame; each
// level's Fingerprint carries the ones it depends on so that
// hash(fingerprint) == hash(fingerprint') implies observational
// equivalence of the artefacts (§3's invariant).
type Fingerprint struct {
	Kind   string
	Digest uint64
	Deps   []Fingerprint
}

// New computes a Fingerprint over a kind tag, a hyperparameter payload
// (typically the artefact's own config serialised deterministically by the
// caller), and zero or more upstream dependencies. Digest composition order
// is deterministic: kind, then payload, then each dependency's digest in
// the order given — callers must pass deps in a stable order (e.g. sorted
// by name) for the fingerprint DAG to be reproducible (§8's determinism
// property).
func New(kind string, payload []byte, deps ...Fingerprint) Fingerprint {
	h := xxhash.New()
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write(payload)
	var buf [8]byte
	for _, d := range deps {
		binary.LittleEndian.PutUint64(buf[:], d.Digest)
		h.Write(buf[:])
	}
	return Fingerprint{Kind: kind, Digest: h.Sum64(), Deps: deps}
}

// Equal reports whether two fingerprints identify observationally
// equivalent artefacts, per §3's invariant. Only Kind and Digest
// participate — Deps is provenance, not identity, since Digest already
// folds every dependency's Digest in.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return f.Kind == other.Kind && f.Digest == other.Digest
}

// key returns the comparable (Kind, Digest) pair identifying f, for use as
// a map key — Fingerprint itself is not comparable because Deps is a slice,
// but identity per Equal only ever depends on Kind and Digest.
func (f Fingerprint) key() fingerprintKey {
	return fingerprintKey{Kind: f.Kind, Digest: f.Digest}
}

type fingerprintKey struct {
	Kind   string
	Digest uint64
}
