package probe

import (
	"time"

	"github.com/okian/fraudrisk/internal/domain/model"
)

// Config holds configuration for a probe run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Requests   int           // Number of profiles to generate and score
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for profiles and results
	Seed       uint64        // Generator seed; 0 picks one from the clock
	Verbose    bool          // Enable verbose logging
}

// Profile is one generated customer.
type Profile struct {
	ID        string         `json:"id"`
	Archetype Archetype      `json:"archetype"`
	Input     model.RawInput `json:"input"`
}

// Outcome pairs a profile with what the service answered.
type Outcome struct {
	Profile Profile           `json:"profile"`
	Result  *model.RiskResult `json:"result,omitempty"`
	Status  int               `json:"status"`
	Problem string            `json:"problem,omitempty"`
	Latency time.Duration     `json:"latency"`
}

// Stats holds run statistics.
type Stats struct {
	Generated    int
	Submitted    int
	Verified     int
	Inconsistent int
	Failed       int
	ByLevel      map[string]int
	ByArchetype  map[Archetype]int
	AvgLatency   time.Duration
	MaxLatency   time.Duration
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
}
