package domain

// AggregateStats is a read-time projection over a sample window. It is never
// persisted; SampleCount == 0 means "no data" and all derived fields are zero.
type AggregateStats struct {
	Endpoint           string        `json:"endpoint"` // empty for system-wide
	WindowMillis       int64         `json:"window_millis"`
	SampleCount        int           `json:"sample_count"`
	AvgMs              float64       `json:"avg_ms"`
	MedianMs           float64       `json:"median_ms"`
	P95Ms              float64       `json:"p95_ms"`
	P99Ms              float64       `json:"p99_ms"`
	MinMs              float64       `json:"min_ms"`
	MaxMs              float64       `json:"max_ms"`
	ErrorRatePercent   float64       `json:"error_rate_percent"`
	ThroughputPerSec   float64       `json:"throughput_per_sec"`
	StatusCodes        map[int]int64 `json:"status_codes"`
	MemoryUsagePercent float64       `json:"memory_usage_percent"`
}

// HasData reports whether the window contained any samples.
func (a AggregateStats) HasData() bool {
	return a.SampleCount > 0
}
