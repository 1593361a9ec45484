// Package baseline manages versioned snapshots of expected performance and
// compares live windows against the active snapshot. The active baseline is
// copy-on-write: captures build a complete new value and swap one pointer, so
// concurrent readers never observe a half-updated snapshot.
package baseline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coursehub/perfwatch/internal/aggregate"
	"github.com/coursehub/perfwatch/internal/domain"
	"github.com/coursehub/perfwatch/pkg/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// SampleSource provides snapshot windows of recorded samples.
type SampleSource interface {
	Window(endpoint string, sinceMillis int64) []domain.Sample
}

// Config controls capture and comparison behavior.
type Config struct {
	// CriticalEndpoints restricts captures to a fixed endpoint list. Empty
	// means every endpoint observed in the capture window.
	CriticalEndpoints []string
	// CaptureWindowMillis is the lookback used when snapshotting a baseline.
	CaptureWindowMillis int64
	// CompareWindowMillis is the default lookback for Validate.
	CompareWindowMillis int64
}

// Manager owns the baseline lifecycle: CAPTURING -> ACTIVE -> SUPERSEDED.
type Manager struct {
	mu     sync.Mutex // serializes capture/auto-update
	store  Store
	source SampleSource
	cfg    Config
	active atomic.Pointer[domain.Baseline]
	now    func() time.Time
}

// NewManager wires a manager to its persistence store and sample source.
func NewManager(store Store, source SampleSource, cfg Config) *Manager {
	if cfg.CaptureWindowMillis <= 0 {
		cfg.CaptureWindowMillis = 3_600_000
	}
	if cfg.CompareWindowMillis <= 0 {
		cfg.CompareWindowMillis = cfg.CaptureWindowMillis
	}
	return &Manager{
		store:  store,
		source: source,
		cfg:    cfg,
		now:    time.Now,
	}
}

// SetClock overrides the time source (tests).
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// LoadActive restores the active baseline from the store at startup. A store
// with no active baseline is a normal empty state.
func (m *Manager) LoadActive(ctx context.Context) error {
	b, err := m.store.LoadLatest(ctx)
	if errors.Is(err, ErrNoBaseline) {
		return nil
	}
	if err != nil {
		return err
	}
	m.active.Store(b)
	return nil
}

// Active returns the current active baseline, or nil.
func (m *Manager) Active() *domain.Baseline {
	return m.active.Load()
}

// History lists all stored baselines, newest first.
func (m *Manager) History(ctx context.Context) ([]*domain.Baseline, error) {
	return m.store.LoadAll(ctx)
}

// Capture snapshots the current aggregates into a new ACTIVE baseline,
// persists it and marks the previous active baseline SUPERSEDED.
func (m *Manager) Capture(ctx context.Context, name, description string) (*domain.Baseline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.captureLocked(ctx, name, description)
}

func (m *Manager) captureLocked(ctx context.Context, name, description string) (*domain.Baseline, error) {
	now := m.now()
	since := now.UnixMilli() - m.cfg.CaptureWindowMillis
	samples := m.source.Window("", since)
	groups := aggregate.GroupByEndpoint(samples, m.cfg.CaptureWindowMillis)

	endpoints := map[string]domain.ExpectedStats{}
	if len(m.cfg.CriticalEndpoints) > 0 {
		for _, ep := range m.cfg.CriticalEndpoints {
			if agg, ok := groups[ep]; ok {
				endpoints[ep] = toExpected(agg)
			}
		}
	} else {
		for ep, agg := range groups {
			endpoints[ep] = toExpected(agg)
		}
	}

	b := &domain.Baseline{
		ID:          common.UUIDint64(),
		Name:        name,
		Description: description,
		Version:     now.UnixMilli(),
		Status:      domain.BaselineActive,
		CreatedAt:   now,
		Endpoints:   endpoints,
		System:      toExpected(aggregate.Aggregate(samples, m.cfg.CaptureWindowMillis)),
	}

	if err := m.store.Save(ctx, b); err != nil {
		return nil, errors.Wrap(err, "persist baseline")
	}

	if old := m.active.Load(); old != nil {
		superseded := *old
		superseded.Status = domain.BaselineSuperseded
		if err := m.store.Save(ctx, &superseded); err != nil {
			zap.L().Warn("failed to mark previous baseline superseded",
				zap.Int64("baseline_id", old.ID), zap.Error(err))
		}
	}

	m.active.Store(b)
	zap.L().Info("baseline captured",
		zap.Int64("baseline_id", b.ID),
		zap.String("name", b.Name),
		zap.Int("endpoints", len(b.Endpoints)))
	return b, nil
}

// Compare measures the live window against the active baseline. Returns
// ErrNoBaseline when nothing is active.
func (m *Manager) Compare(windowMillis int64) (*domain.Comparison, error) {
	active := m.active.Load()
	if active == nil {
		return nil, ErrNoBaseline
	}
	if windowMillis <= 0 {
		windowMillis = m.cfg.CompareWindowMillis
	}

	now := m.now()
	samples := m.source.Window("", now.UnixMilli()-windowMillis)
	groups := aggregate.GroupByEndpoint(samples, windowMillis)

	cmp := &domain.Comparison{
		BaselineID:      active.ID,
		BaselineName:    active.Name,
		BaselineVersion: active.Version,
		WindowMillis:    windowMillis,
		GeneratedAt:     now,
	}

	keys := make([]string, 0, len(active.Endpoints))
	for ep := range active.Endpoints {
		keys = append(keys, ep)
	}
	sort.Strings(keys)
	for _, ep := range keys {
		cmp.Endpoints = append(cmp.Endpoints, compareOne(ep, active.Endpoints[ep], groups[ep]))
	}
	cmp.System = compareOne("system", active.System, aggregate.Aggregate(samples, windowMillis))
	return cmp, nil
}

func compareOne(scope string, expected domain.ExpectedStats, current domain.AggregateStats) domain.EndpointComparison {
	ec := domain.EndpointComparison{
		Endpoint:    scope,
		SampleCount: current.SampleCount,
		Status:      domain.CompareNormal,
	}
	if !current.HasData() {
		// no traffic in the window is a normal empty state, not a regression
		return ec
	}

	latDev := latencyDeviation(expected.P50Ms, current.MedianMs)
	ec.Latency = domain.MetricDelta{
		Expected:         expected.P50Ms,
		Actual:           current.MedianMs,
		DeviationPercent: latDev,
		Status:           statusFor(latDev, latencyWarnDeviation, latencyCritDeviation),
	}

	thrDev := throughputDeviation(expected.ThroughputPerSec, current.ThroughputPerSec)
	ec.Throughput = domain.MetricDelta{
		Expected:         expected.ThroughputPerSec,
		Actual:           current.ThroughputPerSec,
		DeviationPercent: thrDev,
		Status:           statusFor(thrDev, latencyWarnDeviation, latencyCritDeviation),
	}

	errDev := errorRateDeviation(expected.ErrorRatePercent, current.ErrorRatePercent)
	ec.ErrorRate = domain.MetricDelta{
		Expected:         expected.ErrorRatePercent,
		Actual:           current.ErrorRatePercent,
		DeviationPercent: errDev,
		Status:           statusFor(errDev, errorRateWarnDeviation, errorRateCritDeviation),
	}

	ec.Status = worstStatus(ec.Latency.Status, ec.Throughput.Status, ec.ErrorRate.Status)
	return ec
}

// Validate runs Compare and converts every WARNING/CRITICAL result into a
// violation, with a pass/fail summary.
func (m *Manager) Validate() (*domain.ValidationResult, error) {
	cmp, err := m.Compare(m.cfg.CompareWindowMillis)
	if err != nil {
		return nil, err
	}

	result := &domain.ValidationResult{ComparedAt: cmp.GeneratedAt}
	for _, ec := range cmp.Endpoints {
		result.Violations = append(result.Violations, comparisonViolations(ec, cmp.GeneratedAt)...)
	}
	result.Violations = append(result.Violations, comparisonViolations(cmp.System, cmp.GeneratedAt)...)

	for _, v := range result.Violations {
		switch v.Severity {
		case domain.SeverityCritical:
			result.CriticalCount++
		case domain.SeverityWarning:
			result.WarningCount++
		}
	}
	result.Passed = result.CriticalCount == 0 && result.WarningCount == 0
	return result, nil
}

func comparisonViolations(ec domain.EndpointComparison, at time.Time) []domain.Violation {
	var out []domain.Violation
	add := func(vtype string, delta domain.MetricDelta) {
		severity := ""
		switch delta.Status {
		case domain.CompareWarning:
			severity = domain.SeverityWarning
		case domain.CompareCritical:
			severity = domain.SeverityCritical
		default:
			return
		}
		out = append(out, domain.Violation{
			Type:             vtype,
			Scope:            ec.Endpoint,
			Expected:         delta.Expected,
			Actual:           delta.Actual,
			DeviationPercent: delta.DeviationPercent,
			Severity:         severity,
			DetectedAt:       at,
		})
	}
	add(domain.ViolationResponseTime, ec.Latency)
	add(domain.ViolationThroughput, ec.Throughput)
	add(domain.ViolationErrorRate, ec.ErrorRate)
	return out
}

// AutoUpdate promotes a fresh baseline after sustained improvement. It only
// applies when the active baseline is older than minAgeDays; the average
// latency improvement across improved endpoints must exceed
// improvementThresholdPercent, and no tracked endpoint may have regressed
// past the warning deviation, so a mixed window never silently rebaselines.
func (m *Manager) AutoUpdate(ctx context.Context, minAgeDays int, improvementThresholdPercent float64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := m.active.Load()
	if active == nil {
		return false, ErrNoBaseline
	}
	if m.now().Sub(active.CreatedAt) < time.Duration(minAgeDays)*24*time.Hour {
		return false, nil
	}

	cmp, err := m.Compare(m.cfg.CompareWindowMillis)
	if err != nil {
		return false, err
	}

	var improvements []float64
	for _, ec := range cmp.Endpoints {
		if ec.SampleCount == 0 {
			continue
		}
		dev := ec.Latency.DeviationPercent
		if dev > latencyWarnDeviation {
			return false, nil
		}
		if dev < 0 {
			improvements = append(improvements, -dev)
		}
	}
	if len(improvements) == 0 {
		return false, nil
	}

	var sum float64
	for _, imp := range improvements {
		sum += imp
	}
	if sum/float64(len(improvements)) < improvementThresholdPercent {
		return false, nil
	}

	name := fmt.Sprintf("auto-%s-v%d", active.Name, active.Version)
	desc := fmt.Sprintf("auto-promoted after sustained improvement over baseline %d", active.ID)
	if _, err := m.captureLocked(ctx, name, desc); err != nil {
		return false, err
	}
	return true, nil
}

func toExpected(agg domain.AggregateStats) domain.ExpectedStats {
	return domain.ExpectedStats{
		P50Ms:            agg.MedianMs,
		P95Ms:            agg.P95Ms,
		P99Ms:            agg.P99Ms,
		ThroughputPerSec: agg.ThroughputPerSec,
		ErrorRatePercent: agg.ErrorRatePercent,
		SampleCount:      agg.SampleCount,
	}
}
