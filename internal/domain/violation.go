package domain

import "time"

// Violation types.
const (
	ViolationResponseTime = "RESPONSE_TIME"
	ViolationErrorRate    = "ERROR_RATE"
	ViolationMemoryUsage  = "MEMORY_USAGE"
	ViolationThroughput   = "THROUGHPUT"
)

// Violation severities.
const (
	SeverityWarning  = "WARNING"
	SeverityCritical = "CRITICAL"
)

// Violation is a detected breach of a threshold or baseline deviation limit.
// Produced by comparison, consumed by the alert dispatcher; persistence is the
// caller's choice.
type Violation struct {
	Type             string    `json:"type"`
	Scope            string    `json:"scope"` // endpoint path or "system"
	Expected         float64   `json:"expected"`
	Actual           float64   `json:"actual"`
	DeviationPercent float64   `json:"deviation_percent"`
	Severity         string    `json:"severity"`
	DetectedAt       time.Time `json:"detected_at"`
}
