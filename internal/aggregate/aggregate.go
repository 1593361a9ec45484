// Package aggregate computes window statistics over recorded samples.
// Percentiles use the nearest-rank method (index = ceil(p/100*n)-1 on sorted
// durations), medians the standard even/odd midpoint.
package aggregate

import (
	"github.com/coursehub/perfwatch/internal/domain"
	"github.com/montanaflynn/stats"
)

// Aggregate reduces a sample window to AggregateStats. An empty window yields
// the zero-count "no data" value, never an error.
func Aggregate(samples []domain.Sample, windowMillis int64) domain.AggregateStats {
	agg := domain.AggregateStats{
		WindowMillis: windowMillis,
		StatusCodes:  map[int]int64{},
	}
	if len(samples) == 0 {
		return agg
	}

	durations := make(stats.Float64Data, len(samples))
	errorCount := 0
	for i, s := range samples {
		durations[i] = float64(s.Duration)
		agg.StatusCodes[s.StatusCode]++
		if s.IsError() {
			errorCount++
		}
	}

	n := float64(len(samples))
	agg.SampleCount = len(samples)
	agg.AvgMs, _ = stats.Mean(durations)
	agg.MedianMs, _ = stats.Median(durations)
	agg.P95Ms, _ = stats.PercentileNearestRank(durations, 95)
	agg.P99Ms, _ = stats.PercentileNearestRank(durations, 99)
	agg.MinMs, _ = stats.Min(durations)
	agg.MaxMs, _ = stats.Max(durations)
	agg.ErrorRatePercent = float64(errorCount) / n * 100
	if windowMillis > 0 {
		agg.ThroughputPerSec = n / (float64(windowMillis) / 1000)
	}
	return agg
}

// GroupByEndpoint partitions samples by their normalized endpoint key and
// aggregates each group. Samples are already normalized by the recorder.
func GroupByEndpoint(samples []domain.Sample, windowMillis int64) map[string]domain.AggregateStats {
	groups := map[string][]domain.Sample{}
	for _, s := range samples {
		groups[s.Endpoint] = append(groups[s.Endpoint], s)
	}
	out := make(map[string]domain.AggregateStats, len(groups))
	for endpoint, group := range groups {
		agg := Aggregate(group, windowMillis)
		agg.Endpoint = endpoint
		out[endpoint] = agg
	}
	return out
}

// Percentile exposes the nearest-rank percentile used throughout the module.
func Percentile(durations []float64, percent float64) float64 {
	if len(durations) == 0 {
		return 0
	}
	v, err := stats.PercentileNearestRank(stats.Float64Data(durations), percent)
	if err != nil {
		return 0
	}
	return v
}
