// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/okian/checkpoint/internal/adapters/artifact"
	"github.com/okian/checkpoint/internal/adapters/repository"
	"github.com/okian/checkpoint/internal/domain/features"
	"github.com/okian/checkpoint/internal/domain/model"
	"github.com/okian/checkpoint/internal/domain/scoring"
	"github.com/okian/checkpoint/pkg/logger"
	"github.com/okian/checkpoint/pkg/metrics"
)

// Model load outcomes reported to metrics.
const (
	loadLoaded   = "loaded"
	loadMissing  = "missing"
	loadFailed   = "failed"
	loadInjected = "injected"
)

// ErrNotStarted is returned by store operations before Start.
var ErrNotStarted = errors.New("service not started")

// ModelLoader reads a model artifact from path.
type ModelLoader interface {
	Load(ctx context.Context, path string) (*artifact.Loaded, error)
}

// Service implements the API dependencies for the checkpoint scoring system.
type Service struct {
	mu sync.RWMutex

	// Core components
	loader     ModelLoader
	store      repository.Store
	ownsStore  bool
	scorer     scoring.Scorer
	normalizer *scoring.Normalizer

	// Configuration
	modelPath string
	maxEvents int

	// Model state, fixed after Start
	modelName       string
	modelKind       string
	modelCapability string
	loadErr         error

	// State
	started   bool
	startedAt time.Time

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithModelPath sets the artifact path loaded at Start.
func WithModelPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.modelPath = path
		}
	}
}

// WithLoader replaces the artifact loader.
func WithLoader(l ModelLoader) Option {
	return func(s *Service) {
		if l != nil {
			s.loader = l
		}
	}
}

// WithStore replaces the event store. The caller keeps ownership.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithScorer injects a ready scorer and skips artifact loading.
func WithScorer(sc scoring.Scorer) Option {
	return func(s *Service) {
		if sc != nil {
			s.scorer = sc
		}
	}
}

// WithMaxEvents caps the default event store. Ignored with WithStore.
func WithMaxEvents(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxEvents = n
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		modelPath: "models/suspicious_driving_model.yaml",
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start loads the model once and prepares the event store. A model that
// cannot be loaded leaves the service running but not ready; Start only
// fails if the service itself cannot be assembled.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.loader == nil {
		s.loader = artifact.NewLoader(artifact.WithLogger(s.logger.Named("artifact")))
	}

	s.logger.Info(ctx, "starting checkpoint service...")

	if s.store == nil {
		s.store = repository.NewInMemoryStore(ctx,
			repository.WithMaxEvents(s.maxEvents),
			repository.WithMetricsUpdateInterval(metrics.RefreshInterval()),
		)
		s.ownsStore = true
	}

	scorer := s.loadScorer(ctx)
	s.normalizer = scoring.NewNormalizer(scorer, scoring.WithObserver(metricsObserver{}))
	metrics.SetModelReady(s.normalizer.Ready())

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "checkpoint service started",
		logger.Bool("model_ready", s.normalizer.Ready()),
		logger.String("model_path", s.modelPath),
		logger.Int("max_events", s.maxEvents),
	)

	return nil
}

// loadScorer resolves the scorer: injected, else loaded from disk. It returns
// nil when no model is available.
func (s *Service) loadScorer(ctx context.Context) scoring.Scorer {
	if s.scorer != nil {
		s.modelName = "injected"
		s.modelCapability = "score"
		metrics.RecordModelLoad(loadInjected)
		return s.scorer
	}

	loaded, err := s.loader.Load(ctx, s.modelPath)
	if err != nil {
		s.loadErr = err
		result := loadFailed
		if errors.Is(err, artifact.ErrNotFound) {
			result = loadMissing
		}
		metrics.RecordModelLoad(result)
		metrics.RecordErrorByComponent("model", result)
		s.logger.Warn(ctx, "model not loaded; predictions will report not ready",
			logger.String("model_path", s.modelPath),
			logger.Error(err),
		)
		return nil
	}

	s.modelName = loaded.Name
	s.modelKind = loaded.Kind
	s.modelCapability = loaded.Capability
	metrics.RecordModelLoad(loadLoaded)
	s.logger.Info(ctx, "model loaded",
		logger.String("model_path", s.modelPath),
		logger.String("name", loaded.Name),
		logger.String("kind", loaded.Kind),
		logger.String("capability", loaded.Capability),
	)
	return loaded.Scorer
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping checkpoint service...")

	if s.ownsStore {
		if closer, ok := s.store.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
		s.store = nil
		s.ownsStore = false
	}

	s.started = false
	s.logger.Info(context.Background(), "checkpoint service stopped")
}

// Ready reports whether a model was loaded.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.normalizer.Ready()
}

// ModelPath returns the configured artifact path.
func (s *Service) ModelPath() string {
	return s.modelPath
}

// ModelName returns the loaded model's name, or "" when not ready.
func (s *Service) ModelName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modelName
}

// Predict scores a feature mapping. Before Start, or without a model, the
// result is the not-ready triple.
func (s *Service) Predict(ctx context.Context, m features.Mapping) (scoring.Result, error) {
	s.mu.RLock()
	n := s.normalizer
	s.mu.RUnlock()
	return n.Predict(ctx, m)
}

// Record stores a scored event and returns it with its ID.
func (s *Service) Record(ctx context.Context, e model.Event) (model.Event, error) {
	st, err := s.activeStore()
	if err != nil {
		return model.Event{}, err
	}
	saved, err := st.Append(ctx, e)
	if err != nil {
		metrics.RecordErrorByComponent("store", "append")
		return model.Event{}, err
	}
	res := saved.Result()
	s.logger.Debug(ctx, "event recorded",
		logger.Int64("id", saved.ID),
		logger.Int("risk_score", res.RiskScore),
		logger.Bool("suspicious", res.Suspicious()),
	)
	return saved, nil
}

// Events lists stored events, newest first.
func (s *Service) Events(ctx context.Context, f model.Filter) ([]model.Event, error) {
	st, err := s.activeStore()
	if err != nil {
		return nil, err
	}
	return st.List(ctx, f)
}

// EventCount returns the number of stored events, zero before Start.
func (s *Service) EventCount(ctx context.Context) int {
	st, err := s.activeStore()
	if err != nil {
		return 0
	}
	return st.Count(ctx)
}

func (s *Service) activeStore() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started || s.store == nil {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":     s.started,
		"model_ready": s.normalizer.Ready(),
		"model_path":  s.modelPath,
		"max_events":  s.maxEvents,
	}

	if s.started {
		count := s.store.Count(ctx)
		stats["events_cached"] = count
		stats["model_name"] = s.modelName
		stats["model_kind"] = s.modelKind
		stats["model_capability"] = s.modelCapability
		stats["uptime_seconds"] = int64(time.Since(s.startedAt).Seconds())
		if s.loadErr != nil {
			stats["model_error"] = s.loadErr.Error()
		}

		metrics.UpdateEventsStored(count)
	}

	return stats
}
