// Package obs is the process-wide structured logging and metrics surface.
// Every subsystem logs through here rather than constructing its own
// *zap.Logger, mirroring the single global logger idiom of the teacher's
// logging package.
package obs

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	logger   *zap.Logger
	loggerMu sync.RWMutex
	isInited bool
	initOnce sync.Once
)

// Config selects the logger's environment profile.
type Config struct {
	Development bool
	Level       string // "debug", "info", "warn", "error"
}

// Init initializes the global logger. Subsequent calls return an error
// until Close is called, preventing accidental double-initialization from
// two config loads racing at startup.
func Init(cfg Config) error {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if isInited {
		return fmt.Errorf("obs: logger already initialized; call Close() first to reinitialize")
	}

	var zapCfg zap.Config
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	if lvl, err := zap.ParseAtomicLevel(cfg.Level); err == nil && cfg.Level != "" {
		zapCfg.Level = lvl
	}

	l, err := zapCfg.Build()
	if err != nil {
		return err
	}

	logger = l
	isInited = true
	return nil
}

// InitDefault initializes a production logger with defaults. Safe to call
// multiple times; only the first call takes effect.
func InitDefault() {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if isInited {
		return
	}
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	logger = l
	isInited = true
}

// Close flushes and releases the global logger. After Close, Init may be
// called again to reinitialize.
func Close() error {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if !isInited {
		return nil
	}
	err := logger.Sync()
	logger = nil
	isInited = false
	initOnce = sync.Once{}
	return err
}

// GetLogger returns the current logger, lazily initializing with defaults
// on first use if Init was never called.
func GetLogger() *zap.Logger {
	loggerMu.RLock()
	if isInited {
		l := logger
		loggerMu.RUnlock()
		return l
	}
	loggerMu.RUnlock()

	initOnce.Do(InitDefault)

	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

// WithRun scopes a logger to a pipeline run (§4.7's fit/transform/score
// invocations), the propositionalization-engine analogue of the teacher's
// WithTx.
func WithRun(runID string) *zap.Logger {
	return GetLogger().With(zap.String("run_id", runID))
}

// WithFrame scopes a logger to a named logical frame (§3).
func WithFrame(name string) *zap.Logger {
	return GetLogger().With(zap.String("frame", name))
}

// WithFeature scopes a logger to one abstract feature's memo key (§4.5.2).
func WithFeature(memoKey string) *zap.Logger {
	return GetLogger().With(zap.String("feature", memoKey))
}

// WithFingerprint scopes a logger to a dependency-graph fingerprint (§4.6).
func WithFingerprint(digest uint64) *zap.Logger {
	return GetLogger().With(zap.Uint64("fingerprint", digest))
}
