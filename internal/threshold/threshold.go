// Package threshold classifies aggregates against two-tier limits. Evaluation
// is a pure function; the Evaluator only adds an atomically swappable config
// so limits can change at runtime without a restart.
package threshold

import (
	"sync/atomic"
	"time"

	"github.com/coursehub/perfwatch/internal/domain"
)

// Limits is one warning/critical pair.
type Limits struct {
	Warning  float64 `json:"warning"`
	Critical float64 `json:"critical"`
}

// Config holds the limits per metric.
type Config struct {
	ResponseTimeMs   Limits `json:"response_time_ms"`
	MemoryPercent    Limits `json:"memory_percent"`
	ErrorRatePercent Limits `json:"error_rate_percent"`
}

// DefaultConfig returns the stock limits.
func DefaultConfig() Config {
	return Config{
		ResponseTimeMs:   Limits{Warning: 1000, Critical: 2000},
		MemoryPercent:    Limits{Warning: 70, Critical: 85},
		ErrorRatePercent: Limits{Warning: 1, Critical: 5},
	}
}

// Evaluate classifies stats against cfg and returns zero or more violations.
// Per metric only the highest-severity breach is emitted: exceeding the
// critical limit short-circuits the warning check.
func Evaluate(agg domain.AggregateStats, cfg Config, now time.Time) []domain.Violation {
	var out []domain.Violation
	scope := agg.Endpoint
	if scope == "" {
		scope = "system"
	}

	if agg.HasData() {
		if v, ok := check(domain.ViolationResponseTime, scope, agg.P95Ms, cfg.ResponseTimeMs, now); ok {
			out = append(out, v)
		}
		if v, ok := check(domain.ViolationErrorRate, scope, agg.ErrorRatePercent, cfg.ErrorRatePercent, now); ok {
			out = append(out, v)
		}
	}
	if agg.MemoryUsagePercent > 0 {
		if v, ok := check(domain.ViolationMemoryUsage, scope, agg.MemoryUsagePercent, cfg.MemoryPercent, now); ok {
			out = append(out, v)
		}
	}
	return out
}

func check(vtype, scope string, actual float64, limits Limits, now time.Time) (domain.Violation, bool) {
	var severity string
	var expected float64
	switch {
	case limits.Critical > 0 && actual > limits.Critical:
		severity, expected = domain.SeverityCritical, limits.Critical
	case limits.Warning > 0 && actual > limits.Warning:
		severity, expected = domain.SeverityWarning, limits.Warning
	default:
		return domain.Violation{}, false
	}
	return domain.Violation{
		Type:             vtype,
		Scope:            scope,
		Expected:         expected,
		Actual:           actual,
		DeviationPercent: (actual - expected) / expected * 100,
		Severity:         severity,
		DetectedAt:       now,
	}, true
}

// Evaluator wraps a Config behind an atomic value for lock-free reads from
// the evaluation job while the admin API swaps new limits in.
type Evaluator struct {
	cfg atomic.Value // Config
}

// NewEvaluator builds an evaluator with the given starting config.
func NewEvaluator(cfg Config) *Evaluator {
	e := &Evaluator{}
	e.cfg.Store(normalize(cfg))
	return e
}

// Config returns the current limits.
func (e *Evaluator) Config() Config {
	return e.cfg.Load().(Config)
}

// SetConfig replaces the limits at runtime. Zero fields fall back to the
// defaults so a partial override never disables a metric by accident.
func (e *Evaluator) SetConfig(cfg Config) {
	e.cfg.Store(normalize(cfg))
}

// Evaluate runs the pure evaluation with the current config.
func (e *Evaluator) Evaluate(agg domain.AggregateStats, now time.Time) []domain.Violation {
	return Evaluate(agg, e.Config(), now)
}

func normalize(cfg Config) Config {
	def := DefaultConfig()
	if cfg.ResponseTimeMs.Warning <= 0 {
		cfg.ResponseTimeMs.Warning = def.ResponseTimeMs.Warning
	}
	if cfg.ResponseTimeMs.Critical <= 0 {
		cfg.ResponseTimeMs.Critical = def.ResponseTimeMs.Critical
	}
	if cfg.MemoryPercent.Warning <= 0 {
		cfg.MemoryPercent.Warning = def.MemoryPercent.Warning
	}
	if cfg.MemoryPercent.Critical <= 0 {
		cfg.MemoryPercent.Critical = def.MemoryPercent.Critical
	}
	if cfg.ErrorRatePercent.Warning <= 0 {
		cfg.ErrorRatePercent.Warning = def.ErrorRatePercent.Warning
	}
	if cfg.ErrorRatePercent.Critical <= 0 {
		cfg.ErrorRatePercent.Critical = def.ErrorRatePercent.Critical
	}
	return cfg
}
