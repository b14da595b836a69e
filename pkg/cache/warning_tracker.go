package cache

import "sync"

// Warning is a recoverable data issue surfaced instead of failing a fit
// (§4.4/§7/§9's "exception-for-control-flow" guidance: a preprocessor or
// FastProp fit step that would only produce a degenerate/constant derived
// column returns a Warning rather than erroring the whole command).
type Warning struct {
	Code    string
	Message string
	Table   string
	Column  string
}

// WarningTracker accumulates Warnings per Fingerprint, flowing to both the
// wire client's response and any later `check`/`refresh` re-validation
// (§4.6, SPEC_FULL §4.7.1).
type WarningTracker struct {
	mu      sync.Mutex
	entries map[fingerprintKey][]Warning
}

func NewWarningTracker() *WarningTracker {
	return &WarningTracker{entries: map[fingerprintKey][]Warning{}}
}

func (t *WarningTracker) Add(fp Fingerprint, w Warning) {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := fp.key()
	t.entries[k] = append(t.entries[k], w)
}

func (t *WarningTracker) Get(fp Fingerprint) []Warning {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := fp.key()
	out := make([]Warning, len(t.entries[k]))
	copy(out, t.entries[k])
	return out
}

func (t *WarningTracker) Clear(fp Fingerprint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, fp.key())
}
