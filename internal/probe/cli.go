package probe

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/fraudrisk/pkg/logger"
)

// SetupLogging initializes the global logger. A non-empty logFile receives
// a copy of everything written to stdout.
func SetupLogging(logFile string, verbose bool) (io.Closer, error) {
	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, f)
		closer = f
	}
	if err := logger.Init(logger.WithOutput(out)); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// ShowHelp prints usage information for the probe.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `Fraud Risk Probe
================

Generates customer profiles across behavioural archetypes, scores them
against a running service and checks every answer against the static
decision policy.

Usage:
  risk-probe [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:8000")
  -requests int
        Number of profiles to generate and score (default 1000)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 10s)
  -seed uint
        Generator seed, 0 for a random seed (default 0)
  -output string
        Write profiles and results to this JSON file
  -log string
        Also write logs to this file
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  risk-probe -requests 5000 -workers 32
  risk-probe -url http://localhost:9000 -output probe.json -verbose
`)
}
