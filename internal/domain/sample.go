package domain

// Sample is one request observation. Immutable once recorded; the recorder
// owns the backing buffer and hands out copies only.
type Sample struct {
	Endpoint           string  `json:"endpoint"`
	Method             string  `json:"method"`
	Timestamp          int64   `json:"timestamp"` // unix millis
	Duration           int64   `json:"duration"`  // millis
	StatusCode         int     `json:"status_code"`
	MemoryUsagePercent float64 `json:"memory_usage_percent"`
	ErrorRateSnapshot  float64 `json:"error_rate_snapshot"`
}

// IsError reports whether the sample counts toward the error rate.
func (s Sample) IsError() bool {
	return s.StatusCode >= 400
}
