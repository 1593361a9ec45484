// Package recorder owns the bounded in-memory time series of request samples.
// Record is the only write path and never fails; readers always get snapshot
// copies so aggregation cannot race with eviction.
package recorder

import (
	"sync"
	"time"

	"github.com/coursehub/perfwatch/internal/domain"
)

const DefaultCapacity = 10000

// Recorder keeps the most recent samples in a FIFO ring buffer bounded on
// count, so worst-case memory is O(capacity) regardless of traffic.
type Recorder struct {
	mu       sync.Mutex
	buf      []domain.Sample
	head     int // index of oldest sample
	size     int
	capacity int
	now      func() time.Time
}

// New creates a recorder holding at most capacity samples.
func New(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Recorder{
		buf:      make([]domain.Sample, capacity),
		capacity: capacity,
		now:      time.Now,
	}
}

// Record appends one sample. Invalid fields are clamped rather than rejected:
// the request path must never observe a recording failure.
func (r *Recorder) Record(s domain.Sample) {
	if s.Duration < 0 {
		s.Duration = 0
	}
	if s.StatusCode < 100 || s.StatusCode > 599 {
		s.StatusCode = 0
	}
	if s.MemoryUsagePercent < 0 {
		s.MemoryUsagePercent = 0
	} else if s.MemoryUsagePercent > 100 {
		s.MemoryUsagePercent = 100
	}
	s.Endpoint = NormalizeEndpoint(s.Endpoint)

	r.mu.Lock()
	defer r.mu.Unlock()
	if s.Timestamp <= 0 {
		s.Timestamp = r.now().UnixMilli()
	}
	if r.size < r.capacity {
		r.buf[(r.head+r.size)%r.capacity] = s
		r.size++
		return
	}
	// full: overwrite the oldest slot
	r.buf[r.head] = s
	r.head = (r.head + 1) % r.capacity
}

// Window returns a snapshot copy of the samples recorded at or after
// sinceMillis, optionally filtered by normalized endpoint. Empty endpoint
// means all endpoints.
func (r *Recorder) Window(endpoint string, sinceMillis int64) []domain.Sample {
	if endpoint != "" {
		endpoint = NormalizeEndpoint(endpoint)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Sample, 0, r.size)
	for i := 0; i < r.size; i++ {
		s := r.buf[(r.head+i)%r.capacity]
		if s.Timestamp < sinceMillis {
			continue
		}
		if endpoint != "" && s.Endpoint != endpoint {
			continue
		}
		out = append(out, s)
	}
	return out
}

// TrimBefore evicts samples older than cutoffMillis and reports how many were
// removed. The count bound already caps memory; trimming keeps Window scans
// proportional to the retention window.
func (r *Recorder) TrimBefore(cutoffMillis int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for r.size > 0 && r.buf[r.head].Timestamp < cutoffMillis {
		r.buf[r.head] = domain.Sample{}
		r.head = (r.head + 1) % r.capacity
		r.size--
		removed++
	}
	return removed
}

// Len returns the current number of retained samples.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Capacity returns the configured bound.
func (r *Recorder) Capacity() int {
	return r.capacity
}
