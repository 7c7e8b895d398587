package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/fraudrisk/internal/config"
	"github.com/okian/fraudrisk/internal/domain/model"
	"github.com/okian/fraudrisk/pkg/logger"
	"github.com/okian/fraudrisk/pkg/metrics"
)

const sampleModel = "../models/fraud_model.yaml"

func testConfig() *config.Config {
	cfg := config.New()
	cfg.ModelPath = sampleModel
	cfg.RateLimitRPS = 0
	return cfg
}

func TestNewService(t *testing.T) {
	convey.Convey("Given the sample model bundle", t, func() {
		ctx := context.Background()

		convey.Convey("When building the service", func() {
			svc, err := newService(ctx, testConfig(), logger.Nop())

			convey.Convey("Then it starts with the bundle version", func() {
				convey.So(err, convey.ShouldBeNil)
				defer svc.Stop()
				convey.So(svc.GetStats()["modelVersion"], convey.ShouldEqual, "customer-fraud-2024.1")
			})
		})

		convey.Convey("When the model path does not exist", func() {
			cfg := testConfig()
			cfg.ModelPath = "missing.yaml"
			_, err := newService(ctx, cfg, logger.Nop())

			convey.Convey("Then startup fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "load model")
			})
		})
	})
}

func TestNewMux(t *testing.T) {
	convey.Convey("Given a fully wired mux", t, func() {
		ctx := context.Background()
		cfg := testConfig()
		svc, err := newService(ctx, cfg, logger.Nop())
		convey.So(err, convey.ShouldBeNil)
		defer svc.Stop()
		mux := newMux(ctx, cfg, svc, logger.Nop())

		convey.Convey("Then /predict scores with the real model", func() {
			body := `{"total_transactions": 250, "total_days_active": 20, "total_bulk_orders": 60,
				"weekend_orders": 120, "avg_order_value": 1800, "avg_invoice_hour": 3}`
			req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(body))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			var r model.RiskResult
			convey.So(json.Unmarshal(w.Body.Bytes(), &r), convey.ShouldBeNil)
			convey.So(r.FraudProbability, convey.ShouldBeBetweenOrEqual, 0, 1)
			convey.So(r.RiskLevel.Decision(), convey.ShouldEqual, r.Decision)
		})

		convey.Convey("Then the landing page, docs and dashboard are served", func() {
			for _, path := range []string{"/", "/api-docs", "/openapi.yaml", "/dashboard", "/stats", "/healthz"} {
				req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}
		})
	})
}

func TestRunFailsWithoutModel(t *testing.T) {
	convey.Convey("Given a config pointing at a missing model", t, func() {
		_ = os.Setenv("FRAUDRISK_MODEL_PATH", "does-not-exist.yaml")
		defer func() { _ = os.Unsetenv("FRAUDRISK_MODEL_PATH") }()

		convey.Convey("Then run returns an error instead of serving", func() {
			err := run(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "load model")
		})
	})
}

func TestUpdateSystemMetrics(t *testing.T) {
	convey.Convey("Given the runtime", t, func() {
		convey.So(updateSystemMetrics, convey.ShouldNotPanic)
	})
}

func TestSystemMetricsUpdater(t *testing.T) {
	convey.Convey("Given a short refresh interval on the metrics manager", t, func() {
		prev := metrics.RefreshInterval()
		metrics.SetRefreshInterval(5 * time.Millisecond)
		defer metrics.SetRefreshInterval(prev)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()

		done := make(chan struct{})
		go func() {
			startSystemMetricsUpdater(ctx, metrics.RefreshInterval())
			close(done)
		}()

		convey.Convey("Then the updater runs at that interval and stops with the context", func() {
			convey.So(metrics.RefreshInterval(), convey.ShouldEqual, 5*time.Millisecond)

			stopped := false
			select {
			case <-done:
				stopped = true
			case <-time.After(time.Second):
			}
			convey.So(stopped, convey.ShouldBeTrue)

			families, err := metrics.GetRegistry().Gather()
			convey.So(err, convey.ShouldBeNil)
			var memory float64
			for _, mf := range families {
				if mf.GetName() == "fraudrisk_system_memory_bytes" {
					memory = mf.GetMetric()[0].GetGauge().GetValue()
				}
			}
			convey.So(memory, convey.ShouldBeGreaterThan, 0)
		})
	})
}
