package pipeline

import (
	"sync"

	"fastprop/pkg/errs"
	"fastprop/pkg/predictor"

	"go.uber.org/zap"
)

// Manager is the process-wide map of named pipelines the wire protocol's
// Pipeline.* commands address (§4.7). Deploy records a deployed flag for a
// fitted pipeline, readable through IsDeployed; Put and Fit do not consult
// that flag, so a deployed pipeline can still be replaced or refit under
// the same name, and there is no undeploy operation.
type Manager struct {
	mu        sync.RWMutex
	pipelines map[string]*Pipeline
	deployed  map[string]bool
}

func NewManager() *Manager {
	return &Manager{pipelines: map[string]*Pipeline{}, deployed: map[string]bool{}}
}

func (m *Manager) Put(p *Pipeline) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pipelines[p.Name] = p
}

func (m *Manager) Get(name string) (*Pipeline, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pipelines[name]
	if !ok {
		return nil, errs.New(errs.UserInput, "PIPELINE_NOT_FOUND", "no pipeline registered under this name").WithColumn(name, "", "")
	}
	return p, nil
}

func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.pipelines))
	for n := range m.pipelines {
		names = append(names, n)
	}
	return names
}

// Deploy marks a fitted pipeline as deployed, rejecting the call if the
// pipeline hasn't been fit yet.
func (m *Manager) Deploy(name string) error {
	p, err := m.Get(name)
	if err != nil {
		return err
	}
	if p.State() != Fitted {
		return errs.New(errs.Consistency, "DEPLOY_NOT_FITTED", "cannot deploy a pipeline before it has been fit").WithColumn(name, "", "")
	}
	m.mu.Lock()
	m.deployed[name] = true
	m.mu.Unlock()
	return nil
}

func (m *Manager) IsDeployed(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.deployed[name]
}

// Refresh re-runs transform+score against a pipeline's originally bound
// population frame under a fresh fingerprint, per SPEC_FULL §4.7.1. It
// returns nil scores (rather than an error) if the pipeline was never
// fit, so RefreshAll can skip it with a warning instead of aborting.
func (m *Manager) Refresh(name string, store *FrameStore) ([]Score, error) {
	p, err := m.Get(name)
	if err != nil {
		return nil, err
	}
	if p.State() != Fitted {
		return nil, nil
	}
	return p.Score(store, p.populationName)
}

// RefreshResult reports one pipeline's outcome from RefreshAll.
type RefreshResult struct {
	Pipeline string
	Scores   []Score
	Warning  string
}

// RefreshAll runs Refresh for every registered pipeline, skipping (with a
// recorded warning rather than aborting the batch) any whose bound
// population frame has since been deleted from store.
func (m *Manager) RefreshAll(store *FrameStore, logger *zap.Logger) []RefreshResult {
	if logger == nil {
		logger = zap.NewNop()
	}
	names := m.Names()
	results := make([]RefreshResult, 0, len(names))
	for _, name := range names {
		p, err := m.Get(name)
		if err != nil {
			continue
		}
		if p.State() != Fitted {
			continue
		}
		if _, ok := store.Lookup(p.populationName); !ok {
			results = append(results, RefreshResult{Pipeline: name, Warning: "bound population frame no longer registered"})
			logger.Warn("refresh_all skipped pipeline", zap.String("pipeline", name), zap.String("frame", p.populationName))
			continue
		}
		scores, err := m.Refresh(name, store)
		if err != nil {
			results = append(results, RefreshResult{Pipeline: name, Warning: err.Error()})
			continue
		}
		results = append(results, RefreshResult{Pipeline: name, Scores: scores})
	}
	return results
}

// NewPredictorRegistry wires the community-edition predictor set: only
// Linear is constructible. FastBoost, Multirel, Relboost and RelMT are
// rejected with errs.NotSupportedInCommunity (SPEC_FULL's Open Question
// resolution); XGBoost, which has no factory here, fails as an unknown kind.
func NewPredictorRegistry() *predictor.Registry {
	r := predictor.NewRegistry()
	r.Register(predictor.KindLinear, func() predictor.Predictor { return predictor.NewLinear(1e-6) })
	return r
}
