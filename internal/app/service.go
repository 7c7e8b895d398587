// Package service provides the assessment service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/fraudrisk/internal/domain/features"
	"github.com/okian/fraudrisk/internal/domain/model"
	"github.com/okian/fraudrisk/internal/domain/scoring"
	"github.com/okian/fraudrisk/internal/domain/types"
	"github.com/okian/fraudrisk/pkg/logger"
	"github.com/okian/fraudrisk/pkg/metrics"
	"github.com/okian/fraudrisk/pkg/tracing"
)

// Scorer evaluates one feature vector. *scoring.Scorer satisfies it.
type Scorer interface {
	Score(v model.FeatureVector) scoring.Assessment
}

// Service wraps the pure scoring core with validation, batching,
// observability and counters.
type Service struct {
	mu sync.RWMutex

	scorer       Scorer
	modelVersion string

	batchLimit       int
	batchConcurrency int

	started   bool
	startedAt time.Time

	total      atomic.Int64
	batches    atomic.Int64
	invalid    atomic.Int64
	anomalies  atomic.Int64
	byLevel    [3]atomic.Int64
	scoringDur atomic.Int64 // nanoseconds

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

// WithScorer injects the scorer built from the loaded model bundle.
func WithScorer(sc Scorer) Option {
	return func(s *Service) {
		s.scorer = sc
	}
}

// WithModelVersion records the model bundle version for stats and metrics.
func WithModelVersion(v string) Option {
	return func(s *Service) {
		s.modelVersion = v
	}
}

// WithBatchLimit sets the maximum number of inputs in one batch.
func WithBatchLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchLimit = n
		}
	}
}

// WithBatchConcurrency bounds parallel scoring inside one batch.
func WithBatchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchConcurrency = n
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		batchLimit:       500,
		batchConcurrency: runtime.NumCPU(),
		modelVersion:     "unknown",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start checks that the service can score. A missing scorer is fatal.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.scorer == nil {
		return ErrNoScorer
	}

	metrics.SetModelInfo(s.modelVersion)
	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "assessment service started",
		logger.String("modelVersion", s.modelVersion),
		logger.Int("batchLimit", s.batchLimit),
		logger.Int("batchConcurrency", s.batchConcurrency),
	)
	return nil
}

// Stop marks the service as stopped. In-flight assessments finish normally.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "assessment service stopped",
		logger.Int64("assessments", s.total.Load()),
	)
}

func (s *Service) running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Assess validates one raw input, derives its features and scores it.
// Validation failures are returned as *model.FieldError.
func (s *Service) Assess(ctx context.Context, in model.RawInput) (model.DerivedFeatures, model.RiskResult, error) {
	if !s.running() {
		return model.DerivedFeatures{}, model.RiskResult{}, ErrNotStarted
	}
	if err := s.validate(in); err != nil {
		return model.DerivedFeatures{}, model.RiskResult{}, err
	}
	d, r := s.assess(ctx, in)
	return d, r, nil
}

// AssessBatch scores every input and returns results in input order.
// All inputs are validated before any is scored; the first invalid one is
// reported as a *BatchItemError.
func (s *Service) AssessBatch(ctx context.Context, inputs []model.RawInput) ([]model.RiskResult, error) {
	if !s.running() {
		return nil, ErrNotStarted
	}
	if len(inputs) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(inputs) > s.batchLimit {
		return nil, fmt.Errorf("%w: %d inputs, limit %d", ErrBatchTooLarge, len(inputs), s.batchLimit)
	}
	for i, in := range inputs {
		if err := s.validate(in); err != nil {
			return nil, &BatchItemError{Index: i, Err: err}
		}
	}

	ctx, span := tracing.StartSpan(ctx, "risk.assess_batch", tracing.BatchSize(len(inputs)))
	defer span.End()

	s.batches.Add(1)
	metrics.RecordBatchSize(len(inputs))

	results := make([]model.RiskResult, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchConcurrency)
	for i := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, results[i] = s.assess(gctx, inputs[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) validate(in model.RawInput) error {
	err := in.Validate()
	if err == nil {
		return nil
	}
	s.invalid.Add(1)
	var fe *model.FieldError
	if errors.As(err, &fe) {
		metrics.RecordValidationFailure(fe.Field)
	}
	return err
}

func (s *Service) assess(ctx context.Context, in model.RawInput) (model.DerivedFeatures, model.RiskResult) {
	ctx, span := tracing.StartSpan(ctx, "risk.assess")
	defer span.End()

	start := time.Now()
	derived, vec := features.Build(in)
	a := s.scorer.Score(vec)
	elapsed := time.Since(start)

	r := a.Result
	s.total.Add(1)
	s.scoringDur.Add(int64(elapsed))
	if idx := levelIndex(r.RiskLevel); idx >= 0 {
		s.byLevel[idx].Add(1)
	}

	anomalies := a.SanitizedFeatures
	if anomalies > 0 {
		metrics.RecordNumericAnomaly("normalize", anomalies)
	}
	if a.SanitizedProbability {
		anomalies++
		metrics.RecordNumericAnomaly("predict", 1)
	}
	if anomalies > 0 {
		s.anomalies.Add(int64(anomalies))
		s.logger.Warn(ctx, "non-finite values clamped during scoring",
			logger.Int("features", a.SanitizedFeatures),
			logger.Bool("probability", a.SanitizedProbability),
		)
	}

	metrics.RecordAssessment(r.RiskLevel.String(), r.FraudProbability, r.RiskScore, float64(elapsed.Microseconds())/1000)
	span.SetAttributes(tracing.RiskLevel(r.RiskLevel.String()), tracing.RiskScore(r.RiskScore))

	s.logger.Debug(ctx, "assessed customer",
		logger.Float64("avgInvoiceFrequency", derived.AvgInvoiceFrequency),
		logger.Float64("bulkRatio", derived.BulkRatio),
		logger.Float64("weekendRatio", derived.WeekendRatio),
		logger.Float64("riskScore", r.RiskScore),
		logger.String("riskLevel", r.RiskLevel.String()),
	)
	return derived, r
}

func levelIndex(l types.RiskLevel) int {
	for i, v := range types.RiskLevels {
		if v == l {
			return i
		}
	}
	return -1
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := s.total.Load()
	byLevel := make(map[string]int64, len(types.RiskLevels))
	for i, l := range types.RiskLevels {
		byLevel[l.String()] = s.byLevel[i].Load()
	}

	stats := map[string]interface{}{
		"started":          s.started,
		"modelVersion":     s.modelVersion,
		"batchLimit":       s.batchLimit,
		"batchConcurrency": s.batchConcurrency,
		"assessments":      total,
		"batches":          s.batches.Load(),
		"invalidInputs":    s.invalid.Load(),
		"numericAnomalies": s.anomalies.Load(),
		"riskLevels":       byLevel,
	}
	if total > 0 {
		stats["avgScoringMs"] = float64(s.scoringDur.Load()) / float64(total) / float64(time.Millisecond)
	}
	if s.started {
		stats["uptimeSeconds"] = time.Since(s.startedAt).Seconds()
	}
	return stats
}
