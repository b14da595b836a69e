// Package pipeline is the orchestrator (§4.7): it binds a Placeholder join
// graph, a preprocessor Chain, and a FastProp core to a named process-wide
// slot, walks it through the Unfitted -> Fitted lifecycle, and exposes the
// fit/transform/score/refresh/to_sql/importances operations the wire
// protocol's Pipeline.* command family dispatches to.
package pipeline

import (
	"sync"

	"fastprop/pkg/dataframe"
	"fastprop/pkg/errs"
)

// FrameStore is the process-wide DataFrame map every pipeline's bound
// frames are looked up in, and the cache.FrameResolver the DataFrameTracker
// uses to detect a stale cache entry (§3, §4.6).
type FrameStore struct {
	mu     sync.RWMutex
	frames map[string]*dataframe.DataFrame
}

func NewFrameStore() *FrameStore {
	return &FrameStore{frames: map[string]*dataframe.DataFrame{}}
}

// Lookup implements cache.FrameResolver.
func (s *FrameStore) Lookup(name string) (*dataframe.DataFrame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	df, ok := s.frames[name]
	return df, ok
}

// Put registers or replaces a frame under name.
func (s *FrameStore) Put(name string, df *dataframe.DataFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames[name] = df
}

// Delete removes a frame, e.g. when a client tears down a temporary view.
func (s *FrameStore) Delete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.frames, name)
}

// Get returns the named frame or a ColumnNotFound-flavoured error naming
// the missing table.
func (s *FrameStore) Get(name string) (*dataframe.DataFrame, error) {
	df, ok := s.Lookup(name)
	if !ok {
		return nil, errs.New(errs.UserInput, "FRAME_NOT_FOUND", "no frame registered under this name").WithColumn(name, "", "")
	}
	return df, nil
}

// Names returns every registered frame name, for diagnostics.
func (s *FrameStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.frames))
	for n := range s.frames {
		names = append(names, n)
	}
	return names
}
