package threshold

import (
	"testing"
	"time"

	"github.com/coursehub/perfwatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func aggWith(endpoint string, p95, errorRate, memory float64) domain.AggregateStats {
	return domain.AggregateStats{
		Endpoint:           endpoint,
		SampleCount:        10,
		P95Ms:              p95,
		ErrorRatePercent:   errorRate,
		MemoryUsagePercent: memory,
	}
}

func TestEvaluateWithinLimits(t *testing.T) {
	out := Evaluate(aggWith("/courses", 500, 0.5, 50), DefaultConfig(), time.Now())
	assert.Empty(t, out)
}

func TestEvaluateWarning(t *testing.T) {
	now := time.Now()
	out := Evaluate(aggWith("/courses", 1500, 0, 0), DefaultConfig(), now)

	require.Len(t, out, 1)
	v := out[0]
	assert.Equal(t, domain.ViolationResponseTime, v.Type)
	assert.Equal(t, domain.SeverityWarning, v.Severity)
	assert.Equal(t, "/courses", v.Scope)
	assert.Equal(t, float64(1000), v.Expected)
	assert.Equal(t, float64(1500), v.Actual)
	assert.Equal(t, float64(50), v.DeviationPercent)
	assert.Equal(t, now, v.DetectedAt)
}

func TestEvaluateCriticalShortCircuitsWarning(t *testing.T) {
	// one violation per metric even when both limits are breached
	out := Evaluate(aggWith("/courses", 2500, 0, 0), DefaultConfig(), time.Now())

	require.Len(t, out, 1)
	assert.Equal(t, domain.SeverityCritical, out[0].Severity)
	assert.Equal(t, float64(2000), out[0].Expected)
}

func TestEvaluateMultipleMetrics(t *testing.T) {
	out := Evaluate(aggWith("/courses", 2500, 10, 90), DefaultConfig(), time.Now())
	require.Len(t, out, 3)

	types := map[string]string{}
	for _, v := range out {
		types[v.Type] = v.Severity
	}
	assert.Equal(t, domain.SeverityCritical, types[domain.ViolationResponseTime])
	assert.Equal(t, domain.SeverityCritical, types[domain.ViolationErrorRate])
	assert.Equal(t, domain.SeverityCritical, types[domain.ViolationMemoryUsage])
}

func TestEvaluateExactLimitDoesNotTrip(t *testing.T) {
	out := Evaluate(aggWith("/courses", 1000, 1, 70), DefaultConfig(), time.Now())
	assert.Empty(t, out)
}

func TestEvaluateNoDataSkipsSampleMetrics(t *testing.T) {
	agg := domain.AggregateStats{Endpoint: "/courses", MemoryUsagePercent: 90}
	out := Evaluate(agg, DefaultConfig(), time.Now())

	require.Len(t, out, 1)
	assert.Equal(t, domain.ViolationMemoryUsage, out[0].Type)
}

func TestEvaluateSystemScope(t *testing.T) {
	out := Evaluate(aggWith("", 2500, 0, 0), DefaultConfig(), time.Now())
	require.Len(t, out, 1)
	assert.Equal(t, "system", out[0].Scope)
}

func TestEvaluatorRuntimeOverride(t *testing.T) {
	e := NewEvaluator(DefaultConfig())

	agg := aggWith("/courses", 800, 0, 0)
	assert.Empty(t, e.Evaluate(agg, time.Now()))

	e.SetConfig(Config{ResponseTimeMs: Limits{Warning: 500, Critical: 700}})
	out := e.Evaluate(agg, time.Now())
	require.Len(t, out, 1)
	assert.Equal(t, domain.SeverityCritical, out[0].Severity)

	// zero fields fall back to defaults instead of disabling a metric
	cfg := e.Config()
	assert.Equal(t, float64(1), cfg.ErrorRatePercent.Warning)
	assert.Equal(t, float64(5), cfg.ErrorRatePercent.Critical)
	assert.Equal(t, float64(70), cfg.MemoryPercent.Warning)
}
