package cache

import (
	"sync"
	"time"

	"fastprop/pkg/dataframe"
)

// FrameResolver looks a DataFrame up by name from the process-wide,
// reader-writer-locked map §5 describes. The pipeline orchestrator's
// DataFrame map implements this.
type FrameResolver interface {
	Lookup(name string) (*dataframe.DataFrame, bool)
}

type dfEntry struct {
	name       string
	lastChange time.Time
}

// DataFrameTracker maps Fingerprint -> (frame name, last_change) (§4.6).
// Retrieve recomputes the fingerprint's soundness by checking the named
// frame still exists in the resolver and its LastChange still matches what
// was recorded at Store time — any mutation to the frame moves LastChange
// forward and invalidates the entry (§8's freshness-detection property).
type DataFrameTracker struct {
	mu       sync.RWMutex
	entries  map[fingerprintKey]dfEntry
	resolver FrameResolver
}

func NewDataFrameTracker(resolver FrameResolver) *DataFrameTracker {
	return &DataFrameTracker{entries: map[fingerprintKey]dfEntry{}, resolver: resolver}
}

// Store records that fp currently identifies df.
func (t *DataFrameTracker) Store(fp Fingerprint, df *dataframe.DataFrame) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[fp.key()] = dfEntry{name: df.Name(), lastChange: df.LastChange()}
}

// Retrieve returns the live DataFrame for fp iff its name still resolves
// and its last_change is unchanged since Store; otherwise it reports a
// miss (the caller must recompute and Store again).
func (t *DataFrameTracker) Retrieve(fp Fingerprint) (*dataframe.DataFrame, bool) {
	t.mu.RLock()
	e, ok := t.entries[fp.key()]
	t.mu.RUnlock()
	if !ok {
		return nil, false
	}
	df, ok := t.resolver.Lookup(e.name)
	if !ok || !df.LastChange().Equal(e.lastChange) {
		return nil, false
	}
	return df, true
}

// Invalidate drops the entry for fp.
func (t *DataFrameTracker) Invalidate(fp Fingerprint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, fp.key())
}
