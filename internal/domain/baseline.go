package domain

import "time"

// Baseline lifecycle states.
const (
	BaselineCapturing  = "capturing"
	BaselineActive     = "active"
	BaselineSuperseded = "superseded"
)

// ExpectedStats holds the expected performance figures for one endpoint (or
// the whole system) inside a baseline.
type ExpectedStats struct {
	P50Ms            float64 `json:"p50_ms"`
	P95Ms            float64 `json:"p95_ms"`
	P99Ms            float64 `json:"p99_ms"`
	ThroughputPerSec float64 `json:"throughput_per_sec"`
	ErrorRatePercent float64 `json:"error_rate_percent"`
	SampleCount      int     `json:"sample_count"`
}

// Baseline is a versioned snapshot of expected performance. Never mutated in
// place: a capture builds a complete new value and swaps it in as active.
type Baseline struct {
	ID          int64                    `json:"id,string"`
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Version     int64                    `json:"version"`
	Status      string                   `json:"status"`
	CreatedAt   time.Time                `json:"created_at"`
	Endpoints   map[string]ExpectedStats `json:"endpoints"`
	System      ExpectedStats            `json:"system"`
	Metadata    map[string]string        `json:"metadata,omitempty"`
}

// Comparison statuses derived from deviation magnitude.
const (
	CompareNormal   = "NORMAL"
	CompareWarning  = "WARNING"
	CompareCritical = "CRITICAL"
)

// MetricDelta compares one metric of the current window against the baseline.
type MetricDelta struct {
	Expected         float64 `json:"expected"`
	Actual           float64 `json:"actual"`
	DeviationPercent float64 `json:"deviation_percent"`
	Status           string  `json:"status"`
}

// EndpointComparison holds the per-metric deltas for one endpoint; Status is
// the worst status across the metrics.
type EndpointComparison struct {
	Endpoint    string      `json:"endpoint"`
	SampleCount int         `json:"sample_count"`
	Latency     MetricDelta `json:"latency"`
	Throughput  MetricDelta `json:"throughput"`
	ErrorRate   MetricDelta `json:"error_rate"`
	Status      string      `json:"status"`
}

// Comparison is the result of comparing a live window against the active
// baseline.
type Comparison struct {
	BaselineID      int64                `json:"baseline_id,string"`
	BaselineName    string               `json:"baseline_name"`
	BaselineVersion int64                `json:"baseline_version"`
	WindowMillis    int64                `json:"window_millis"`
	GeneratedAt     time.Time            `json:"generated_at"`
	Endpoints       []EndpointComparison `json:"endpoints"`
	System          EndpointComparison   `json:"system"`
}

// ValidationResult summarizes a scheduled baseline validation pass.
type ValidationResult struct {
	Passed        bool        `json:"passed"`
	WarningCount  int         `json:"warning_count"`
	CriticalCount int         `json:"critical_count"`
	Violations    []Violation `json:"violations"`
	ComparedAt    time.Time   `json:"compared_at"`
}
