package probe

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/fraudrisk/internal/adapters/artifact"
	"github.com/okian/fraudrisk/internal/adapters/http/api"
	service "github.com/okian/fraudrisk/internal/app"
	"github.com/okian/fraudrisk/internal/domain/model"
	"github.com/okian/fraudrisk/internal/domain/scoring"
	"github.com/okian/fraudrisk/internal/domain/types"
	"github.com/okian/fraudrisk/pkg/logger"
)

func init() {
	_ = logger.Init(logger.WithOutput(io.Discard))
}

// newRiskServer runs the real API backed by the sample model bundle.
func newRiskServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	bundle, err := artifact.Load(ctx, "../../models/fraud_model.yaml")
	if err != nil {
		t.Fatalf("load model: %v", err)
	}
	sc, err := scoring.New(bundle.Normalizer(), bundle.Classifier())
	if err != nil {
		t.Fatalf("scorer: %v", err)
	}
	svc := service.New(service.WithLogger(logger.Nop()), service.WithScorer(sc), service.WithModelVersion(bundle.Version()))
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(ctx, mux)
	return httptest.NewServer(mux)
}

func TestRun(t *testing.T) {
	Convey("Given a running risk service", t, func() {
		srv := newRiskServer(t)
		defer srv.Close()
		out := filepath.Join(t.TempDir(), "probe", "outcomes.json")

		Convey("When probing it", func() {
			stats, err := Run(context.Background(), &Config{
				BaseURL:    srv.URL,
				Requests:   50,
				Workers:    4,
				Timeout:    5 * time.Second,
				OutputFile: out,
				Seed:       99,
			})

			Convey("Then every answer is consistent with the policy", func() {
				So(err, ShouldBeNil)
				So(stats.Submitted, ShouldEqual, 50)
				So(stats.Verified, ShouldEqual, 50)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.ByArchetype[ArchetypeNightOwl], ShouldEqual, 10)
			})

			Convey("And the outcomes are saved", func() {
				data, readErr := os.ReadFile(out)
				So(readErr, ShouldBeNil)
				var saved []Outcome
				So(json.Unmarshal(data, &saved), ShouldBeNil)
				So(len(saved), ShouldEqual, 50)
			})
		})
	})
}

func TestRunDetectsInconsistency(t *testing.T) {
	Convey("Given a service that mislabels every result", t, func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
		mux.HandleFunc("/predict", func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(model.RiskResult{
				FraudProbability: 0.95, RiskScore: 95, RiskLevel: types.RiskLow, Decision: types.DecisionAllow,
			})
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		Convey("Then the probe fails verification", func() {
			stats, err := Run(context.Background(), &Config{BaseURL: srv.URL, Requests: 5, Workers: 2, Timeout: time.Second, Seed: 1})
			So(errors.Is(err, ErrVerification), ShouldBeTrue)
			So(stats.Inconsistent, ShouldEqual, 5)
		})
	})

	Convey("Given a service that is down", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		Convey("Then the health check fails", func() {
			_, err := Run(context.Background(), &Config{BaseURL: url, Requests: 1, Workers: 1, Timeout: time.Second})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "health check")
		})
	})
}

func TestShowHelp(t *testing.T) {
	Convey("Given the help text", t, func() {
		var text strings.Builder
		ShowHelp(&text)

		Convey("Then every flag is documented", func() {
			for _, flag := range []string{"-url", "-requests", "-workers", "-timeout", "-seed", "-output", "-log", "-verbose", "-help"} {
				So(text.String(), ShouldContainSubstring, flag)
			}
		})
	})
}
