package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/fraudrisk/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// ErrVerification is returned when any answered result is inconsistent.
var ErrVerification = errors.New("verification failed")

// Run executes a complete probe: health check, generation, concurrent
// scoring, verification and reporting.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting risk probe",
		logger.String("baseURL", config.BaseURL),
		logger.Int("requests", config.Requests),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Bool("verbose", config.Verbose))

	client := newHTTPClient(config.Timeout)

	if err := checkServiceHealth(ctx, client, config.BaseURL); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	profiles, err := generateProfiles(ctx, config.Requests, config.Seed, stats)
	if err != nil {
		return nil, fmt.Errorf("profile generation failed: %w", err)
	}

	outcomes, err := submitProfiles(ctx, client, config, profiles)
	if err != nil {
		return nil, fmt.Errorf("profile submission failed: %w", err)
	}

	verifyOutcomes(outcomes, stats)
	if config.Verbose {
		for _, o := range outcomes {
			if o.Problem != "" {
				logger.Get().Warn(ctx, "probe outcome problem",
					logger.String("id", o.Profile.ID),
					logger.String("archetype", string(o.Profile.Archetype)),
					logger.String("problem", o.Problem))
			}
		}
	}

	if config.OutputFile != "" {
		if err := saveOutcomes(ctx, config.OutputFile, outcomes); err != nil {
			logger.Get().Warn(ctx, "failed to save outcomes", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if stats.Inconsistent > 0 {
		return stats, fmt.Errorf("%w: %d of %d results inconsistent", ErrVerification, stats.Inconsistent, stats.Submitted)
	}
	return stats, nil
}

// checkServiceHealth verifies the service answers /healthz.
func checkServiceHealth(ctx context.Context, client *HTTPClient, baseURL string) error {
	resp, err := client.Get(ctx, baseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// submitProfiles scores every profile with a bounded number of workers.
// Outcomes keep the profile order.
func submitProfiles(ctx context.Context, client *HTTPClient, config *Config, profiles []Profile) ([]Outcome, error) {
	url := config.BaseURL + "/predict"
	outcomes := make([]Outcome, len(profiles))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(config.Workers, 1))
	for i := range profiles {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = predict(gctx, client, url, profiles[i])
			if n := done.Add(1); config.Verbose && n%100 == 0 {
				logger.Get().Debug(gctx, "probe progress", logger.Int64("done", n), logger.Int("total", len(profiles)))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// saveOutcomes writes the outcomes as a JSON array.
func saveOutcomes(ctx context.Context, filename string, outcomes []Outcome) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(outcomes, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal outcomes: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	logger.Get().Info(ctx, "outcomes saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("verified", stats.Verified),
		logger.Int("inconsistent", stats.Inconsistent),
		logger.Int("failed", stats.Failed),
		logger.Any("riskLevels", stats.ByLevel),
		logger.Any("archetypes", stats.ByArchetype),
		logger.String("avgLatency", stats.AvgLatency.String()),
		logger.String("maxLatency", stats.MaxLatency.String()),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("requestsPerSecond", perSecond))
}
