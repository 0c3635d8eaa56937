// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/stampview/internal/adapters/repository"
	"github.com/okian/stampview/internal/config"
	"github.com/okian/stampview/internal/domain/aggregate"
	"github.com/okian/stampview/internal/domain/filter"
	"github.com/okian/stampview/internal/domain/response"
	"github.com/okian/stampview/internal/domain/table"
	"github.com/okian/stampview/pkg/logger"
	"github.com/okian/stampview/pkg/metrics"
)

// Service implements the API dependencies for the dashboard.
type Service struct {
	mu sync.RWMutex

	// Core components
	store repository.Store

	// Configuration
	dataConfig string
	rowLimit   int

	// State
	started bool

	filterOnce   sync.Once
	filterValues map[string][]any

	queriesShortCircuit atomic.Int64
	queriesNoMatch      atomic.Int64
	queriesMatched      atomic.Int64

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStore injects an already populated store; Start then skips loading.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithDataConfig sets the data-source manifest path.
func WithDataConfig(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dataConfig = path
		}
	}
}

// WithRowLimit caps the rows returned by Query.
func WithRowLimit(limit int) Option {
	return func(s *Service) {
		if limit >= 0 {
			s.rowLimit = limit
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dataConfig: config.DefaultDataConfig,
		rowLimit:   config.DefaultRowLimit,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start loads the datasets, unless a store was injected. A manifest problem
// is returned as *config.ConfigurationError and a file problem as
// *repository.DataLoadError; in both cases the service stays stopped.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting dashboard service...", logger.String("data_config", s.dataConfig))

	if s.store == nil {
		sources, err := config.LoadDataSources(ctx, s.dataConfig)
		if err != nil {
			return err
		}
		store, err := repository.Load(ctx, sources, repository.WithLoadLogger(s.logger.Named("repository")))
		if err != nil {
			return err
		}
		s.store = store
	}

	s.started = true
	counts := s.store.Count(ctx)
	s.logger.Info(ctx, "dashboard service started",
		logger.Int("attributes", counts[config.DatasetAttributes]),
		logger.Int("measurements", counts[config.DatasetMeasurements]),
		logger.Int("reference", counts[config.DatasetReference]),
		logger.Int("rowLimit", s.rowLimit),
	)

	return nil
}

// Stop marks the service stopped. The store is kept; it owns no resources.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.started = false
	s.logger.Info(context.Background(), "dashboard service stopped")
}

func (s *Service) loadedStore() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started || s.store == nil {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// RowLimit returns the configured row cap.
func (s *Service) RowLimit() int { return s.rowLimit }

// Query runs the filter and aggregation pipeline for sel. A selection with
// no active constraint returns an empty payload without touching the data.
func (s *Service) Query(ctx context.Context, sel filter.Selection) (response.Payload, error) {
	if sel.IsEmpty() {
		s.queriesShortCircuit.Add(1)
		metrics.RecordQuery(metrics.OutcomeShortCircuit)
		return response.Empty(), nil
	}

	store, err := s.loadedStore()
	if err != nil {
		return response.Payload{}, err
	}

	start := time.Now()
	attrs := filter.Attributes(store, sel)
	start = observeStage(metrics.StageFilterAttributes, start)

	if attrs.Len() == 0 {
		s.queriesNoMatch.Add(1)
		metrics.RecordQuery(metrics.OutcomeNoMatch)
		metrics.RecordQueryResult(0, 0, 0, 0)
		s.logger.Debug(ctx, "selection matched no attributes", logger.Any("selection", sel.Values()))
		return response.Empty(), nil
	}

	meas := filter.Measurements(store, attrs)
	start = observeStage(metrics.StageFilterMeasurements, start)

	series := aggregate.AverageOverTime(meas)
	start = observeStage(metrics.StageAggregate, start)

	payload := response.Assemble(meas, series, s.rowLimit)
	observeStage(metrics.StageAssemble, start)

	s.queriesMatched.Add(1)
	metrics.RecordQuery(metrics.OutcomeMatched)
	metrics.RecordQueryResult(attrs.Len(), meas.Len(), len(payload.Rows), len(payload.Average))
	s.logger.Debug(ctx, "query served",
		logger.Any("selection", sel.Values()),
		logger.Int("attributes", attrs.Len()),
		logger.Int("measurements", meas.Len()),
		logger.Int("rows", len(payload.Rows)),
		logger.Int("points", len(payload.Average)),
	)
	return payload, nil
}

func observeStage(stage string, since time.Time) time.Time {
	now := time.Now()
	metrics.RecordQueryStage(stage, float64(now.Sub(since).Microseconds())/1000)
	return now
}

// FilterValues returns, for each categorical column, the sorted distinct
// non-null Attributes values. Numeric columns sort numerically. A column the
// Attributes table lacks maps to an empty list. The result is computed once.
func (s *Service) FilterValues(_ context.Context) (map[string][]any, error) {
	store, err := s.loadedStore()
	if err != nil {
		return nil, err
	}
	s.filterOnce.Do(func() {
		s.filterValues = distinctValues(store.Attributes(), filter.Columns)
	})
	return s.filterValues, nil
}

func distinctValues(t *table.Table, columns []string) map[string][]any {
	out := make(map[string][]any, len(columns))
	for _, name := range columns {
		col, _, ok := t.Lookup(name)
		if !ok {
			out[name] = []any{}
			continue
		}
		vals := t.Distinct(col)
		slices.SortFunc(vals, table.Compare)
		list := make([]any, len(vals))
		for i, v := range vals {
			list[i] = v.Interface()
		}
		out[name] = list
	}
	return out
}

// Fingerprint identifies the loaded datasets; zero before Start.
func (s *Service) Fingerprint() uint64 {
	store, err := s.loadedStore()
	if err != nil {
		return 0
	}
	return store.Fingerprint()
}

// Datasets returns row counts per dataset.
func (s *Service) Datasets(ctx context.Context) (map[string]int, error) {
	store, err := s.loadedStore()
	if err != nil {
		return nil, err
	}
	return store.Count(ctx), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":    s.started,
		"rowLimit":   s.rowLimit,
		"dataConfig": s.dataConfig,
		"queries": map[string]int64{
			metrics.OutcomeShortCircuit: s.queriesShortCircuit.Load(),
			metrics.OutcomeNoMatch:      s.queriesNoMatch.Load(),
			metrics.OutcomeMatched:      s.queriesMatched.Load(),
		},
	}

	if s.started && s.store != nil {
		datasets := make(map[string]interface{}, 3)
		for _, name := range []string{config.DatasetAttributes, config.DatasetMeasurements, config.DatasetReference} {
			t, err := s.store.Dataset(name)
			if err != nil {
				continue
			}
			datasets[name] = map[string]int{"rows": t.Len(), "columns": len(t.Columns())}
		}
		stats["datasets"] = datasets
		stats["fingerprint"] = fmt.Sprintf("%016x", s.store.Fingerprint())
		stats["loadedAt"] = s.store.LoadedAt().UTC().Format(time.RFC3339)
	}

	return stats
}
