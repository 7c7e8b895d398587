// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/okian/fraudrisk/internal/domain/model"
	"github.com/okian/fraudrisk/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface keeps the
// handler layer loosely coupled to the service implementation.
type Dependencies interface {
	// Assess validates and scores one customer. Validation failures are
	// *model.FieldError values.
	Assess(ctx context.Context, in model.RawInput) (model.DerivedFeatures, model.RiskResult, error)

	// AssessBatch scores many customers, preserving input order.
	AssessBatch(ctx context.Context, inputs []model.RawInput) ([]model.RiskResult, error)
}

// Server wires HTTP routes for the scoring API.
type Server struct {
	predictHandler   *PredictHandler
	statsHandler     *StatsHandler
	healthHandler    *HealthHandler
	dashboardHandler *dashboardHandler

	limiter *rateLimiter
	logger  logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithRateLimit enables a shared token bucket on the scoring routes.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		s.limiter = newRateLimiter(rps, burst)
	}
}

// WithLogger sets the logger used by middleware and handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		limiter: newRateLimiter(0, 0),
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.predictHandler = NewPredictHandler(deps)
	s.statsHandler = NewStatsHandler(statsProvider)
	s.healthHandler = NewHealthHandler()
	s.dashboardHandler = newDashboardHandler(deps, s.logger)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.Handle("/predict", s.wrap("predict", true, s.predictHandler.HandlePredict))
	mux.Handle("/predict/batch", s.wrap("predict_batch", true, s.predictHandler.HandlePredictBatch))
	mux.Handle("/stats", s.wrap("stats", false, s.statsHandler.HandleStats))
	mux.Handle("/healthz", s.wrap("healthz", false, s.healthHandler.HandleHealth))
	mux.Handle("/dashboard", s.wrap("dashboard", false, s.dashboardHandler.HandleDashboard))
	mux.Handle("/dashboard/analyze", s.wrap("dashboard_analyze", true, s.dashboardHandler.HandleAnalyze))
}

// wrap applies the middleware chain. Order, outermost first: recovery,
// request id, tracing, rate limit (scoring routes only), metrics.
func (s *Server) wrap(endpoint string, limited bool, h http.HandlerFunc) http.Handler {
	chain := []Middleware{
		Recovery(s.logger),
		RequestID(),
		Tracing(endpoint),
	}
	if limited {
		chain = append(chain, RateLimit(s.limiter, endpoint, s.logger))
	}
	chain = append(chain, Metrics(endpoint))
	return Chain(chain...)(h)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// allowMethod writes 405 with an Allow header when r.Method is not listed.
func allowMethod(w http.ResponseWriter, r *http.Request, op string, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", NewKind(op, ErrMethodNotAllowed))
	return false
}
