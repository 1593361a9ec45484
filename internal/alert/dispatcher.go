// Package alert deduplicates, rate-limits and fans out violation alerts to
// the configured delivery channels. Channel failures are isolated per
// dispatch; a dead channel can neither block the others nor cause an alert
// storm once it recovers.
package alert

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/coursehub/perfwatch/internal/domain"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

const (
	defaultDeliverTimeout = 5 * time.Second
	defaultRetention      = 24 * time.Hour
	fanoutPoolSize        = 8
)

// Cooldown holds the minimum interval between repeated alerts per severity.
type Cooldown struct {
	Warning  time.Duration
	Critical time.Duration
}

// Cooldowns maps alert types to their repeat intervals. Different alert types
// have intrinsically different acceptable repeat frequency, so this is not a
// flat rate limiter.
type Cooldowns map[string]Cooldown

// DefaultCooldowns returns the stock per-type intervals.
func DefaultCooldowns() Cooldowns {
	return Cooldowns{
		domain.ViolationResponseTime: {Warning: 5 * time.Minute, Critical: 2 * time.Minute},
		domain.ViolationErrorRate:    {Warning: 10 * time.Minute, Critical: 5 * time.Minute},
		domain.ViolationMemoryUsage:  {Warning: 15 * time.Minute, Critical: 5 * time.Minute},
		domain.ViolationThroughput:   {Warning: 15 * time.Minute, Critical: 10 * time.Minute},
	}
}

// For resolves the cooldown for one alert type and severity.
func (c Cooldowns) For(alertType, severity string) time.Duration {
	cd, ok := c[alertType]
	if !ok {
		cd = Cooldown{Warning: 15 * time.Minute, Critical: 5 * time.Minute}
	}
	if severity == domain.SeverityCritical {
		return cd.Critical
	}
	return cd.Warning
}

// Dispatcher owns the rate-limit table and the channel fan-out pool.
type Dispatcher struct {
	mu       sync.Mutex
	records  map[string]*domain.AlertRecord
	channels []Channel

	pool           *ants.Pool
	cooldowns      Cooldowns
	deliverTimeout time.Duration
	retention      time.Duration
	now            func() time.Time
}

// NewDispatcher builds a dispatcher over the given channels.
func NewDispatcher(channels []Channel, cooldowns Cooldowns) (*Dispatcher, error) {
	if cooldowns == nil {
		cooldowns = DefaultCooldowns()
	}
	pool, err := ants.NewPool(fanoutPoolSize)
	if err != nil {
		return nil, err
	}
	return &Dispatcher{
		records:        map[string]*domain.AlertRecord{},
		channels:       channels,
		pool:           pool,
		cooldowns:      cooldowns,
		deliverTimeout: defaultDeliverTimeout,
		retention:      defaultRetention,
		now:            time.Now,
	}, nil
}

// SetClock overrides the time source (tests).
func (d *Dispatcher) SetClock(now func() time.Time) {
	d.now = now
}

// SetDeliverTimeout overrides the per-channel delivery deadline.
func (d *Dispatcher) SetDeliverTimeout(t time.Duration) {
	if t > 0 {
		d.deliverTimeout = t
	}
}

// Release stops the fan-out pool.
func (d *Dispatcher) Release() {
	d.pool.Release()
}

// AlertKey is the deduplication key: type plus scope, deliberately excluding
// the message text so transient wording changes cannot bypass rate limiting.
func AlertKey(alertType, scope string) string {
	return alertType + "/" + scope
}

// Send dispatches one alert. Within the cooldown window for its key the send
// is suppressed; otherwise the rate-limit record is updated unconditionally
// (even if every channel fails) and the payload fans out to all channels.
func (d *Dispatcher) Send(alertType, scope, severity, title, message string, context map[string]string) domain.DispatchResult {
	key := AlertKey(alertType, scope)
	now := d.now()

	d.mu.Lock()
	rec, seen := d.records[key]
	if seen && now.Sub(rec.LastSentAt) < d.cooldowns.For(alertType, severity) {
		d.mu.Unlock()
		zap.L().Debug("alert suppressed by cooldown",
			zap.String("alert_key", key), zap.String("severity", severity))
		return domain.DispatchResult{AlertKey: key, Suppressed: true}
	}
	if !seen {
		rec = &domain.AlertRecord{AlertKey: key, FirstSeenAt: now}
		d.records[key] = rec
	}
	rec.Severity = severity
	rec.Title = title
	rec.Message = message
	rec.LastSentAt = now
	rec.SendCount++
	d.mu.Unlock()

	return d.fanout(key, Payload{
		Title:     title,
		Message:   message,
		Severity:  severity,
		Timestamp: now,
		Context:   context,
	})
}

// fanout delivers to every channel independently. Zero channels is a no-op
// success.
func (d *Dispatcher) fanout(key string, p Payload) domain.DispatchResult {
	result := domain.DispatchResult{AlertKey: key}
	if len(d.channels) == 0 {
		return result
	}

	var (
		wg       sync.WaitGroup
		resultMu sync.Mutex
	)
	for _, ch := range d.channels {
		ch := ch
		wg.Add(1)
		deliver := func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), d.deliverTimeout)
			defer cancel()
			err := ch.Deliver(ctx, p)
			resultMu.Lock()
			if err != nil {
				result.Failed = append(result.Failed, ch.Name())
			} else {
				result.Sent = append(result.Sent, ch.Name())
			}
			resultMu.Unlock()
			if err != nil {
				zap.L().Warn("alert channel delivery failed",
					zap.String("channel", ch.Name()),
					zap.String("alert_key", key),
					zap.Error(err))
			}
		}
		if err := d.pool.Submit(deliver); err != nil {
			// pool saturated or released: deliver inline rather than drop
			deliver()
		}
	}
	wg.Wait()

	sort.Strings(result.Sent)
	sort.Strings(result.Failed)
	return result
}

// HandleViolation formats and sends an alert for one detected violation. It
// is the EventBus subscriber bridging detection to notification.
func (d *Dispatcher) HandleViolation(v domain.Violation) {
	title := fmt.Sprintf("%s %s on %s", v.Severity, v.Type, v.Scope)
	message := fmt.Sprintf("expected %.2f, observed %.2f (%.1f%% deviation)",
		v.Expected, v.Actual, v.DeviationPercent)
	d.Send(v.Type, v.Scope, v.Severity, title, message, map[string]string{
		"scope":       v.Scope,
		"detected_at": v.DetectedAt.Format(time.RFC3339),
	})
}

// Records returns a snapshot of the rate-limit table, newest first.
func (d *Dispatcher) Records() []domain.AlertRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.AlertRecord, 0, len(d.records))
	for _, rec := range d.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastSentAt.After(out[j].LastSentAt) })
	return out
}

// GC drops records idle past the retention period and reports how many were
// removed.
func (d *Dispatcher) GC() int {
	cutoff := d.now().Add(-d.retention)
	d.mu.Lock()
	defer d.mu.Unlock()
	removed := 0
	for key, rec := range d.records {
		if rec.LastSentAt.Before(cutoff) {
			delete(d.records, key)
			removed++
		}
	}
	return removed
}
