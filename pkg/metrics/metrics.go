// Package metrics keeps process and system gauges in an embedded time-series
// store under the application workdir. Values here feed the memory-usage
// thresholds and are what an external exporter would scrape.
package metrics

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/nakabonne/tstorage"
	"go.uber.org/zap"
)

var (
	storage tstorage.Storage
	mu      sync.RWMutex
)

// InitMetrics opens the gauge store under workdir/metrics.
func InitMetrics(workdir string) error {
	s, err := tstorage.NewStorage(
		tstorage.WithDataPath(filepath.Join(workdir, "metrics")),
		tstorage.WithTimestampPrecision(tstorage.Seconds),
		tstorage.WithPartitionDuration(time.Hour),
	)
	if err != nil {
		return err
	}
	mu.Lock()
	storage = s
	mu.Unlock()
	return nil
}

// SetGauge records the current value of a named gauge.
func SetGauge(name string, value int64) {
	mu.RLock()
	s := storage
	mu.RUnlock()
	if s == nil {
		return
	}
	err := s.InsertRows([]tstorage.Row{
		{
			Metric:    name,
			DataPoint: tstorage.DataPoint{Timestamp: time.Now().Unix(), Value: float64(value)},
		},
	})
	if err != nil {
		zap.S().Warnf("metrics: insert %s failed: %s", name, err)
	}
}

// GetRange returns the stored points of a gauge between start and end (unix
// seconds). A gauge with no points in range yields an empty slice.
func GetRange(name string, start, end int64) []*tstorage.DataPoint {
	mu.RLock()
	s := storage
	mu.RUnlock()
	if s == nil {
		return nil
	}
	points, err := s.Select(name, nil, start, end)
	if err != nil {
		return nil
	}
	return points
}

// Latest returns the most recent point of a gauge within the last hour.
func Latest(name string) (float64, bool) {
	now := time.Now().Unix()
	points := GetRange(name, now-3600, now+1)
	if len(points) == 0 {
		return 0, false
	}
	return points[len(points)-1].Value, true
}

// Close flushes and closes the gauge store.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if storage == nil {
		return nil
	}
	err := storage.Close()
	storage = nil
	return err
}
