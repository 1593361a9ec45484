package alert

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/coursehub/perfwatch/config"
	"github.com/coursehub/perfwatch/internal/domain"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	mu        sync.Mutex
	name      string
	fail      bool
	delivered []Payload
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) Deliver(_ context.Context, p Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delivered = append(f.delivered, p)
	if f.fail {
		return errors.New("transport down")
	}
	return nil
}

func (f *fakeChannel) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.delivered)
}

func newTestDispatcher(t *testing.T, channels ...Channel) (*Dispatcher, *time.Time) {
	t.Helper()
	d, err := NewDispatcher(channels, Cooldowns{
		domain.ViolationResponseTime: {Warning: 5 * time.Minute, Critical: 5 * time.Minute},
	})
	require.NoError(t, err)
	t.Cleanup(d.Release)

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := &now
	d.SetClock(func() time.Time { return *clock })
	return d, clock
}

func TestSendCooldown(t *testing.T) {
	ch := &fakeChannel{name: "chat"}
	d, clock := newTestDispatcher(t, ch)

	first := d.Send(domain.ViolationResponseTime, "/courses", domain.SeverityWarning, "slow", "p95 high", nil)
	assert.False(t, first.Suppressed)
	assert.Equal(t, []string{"chat"}, first.Sent)

	// a repeat one minute later is inside the 5 minute cooldown
	*clock = clock.Add(time.Minute)
	second := d.Send(domain.ViolationResponseTime, "/courses", domain.SeverityWarning, "slow", "p95 high", nil)
	assert.True(t, second.Suppressed)
	assert.Empty(t, second.Sent)

	// six minutes after the first send the cooldown has elapsed
	*clock = clock.Add(5 * time.Minute)
	third := d.Send(domain.ViolationResponseTime, "/courses", domain.SeverityWarning, "slow", "p95 high", nil)
	assert.False(t, third.Suppressed)

	assert.Equal(t, 2, ch.count())

	records := d.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "RESPONSE_TIME//courses", records[0].AlertKey)
	assert.Equal(t, int64(2), records[0].SendCount)
}

func TestSendDistinctKeysAreIndependent(t *testing.T) {
	ch := &fakeChannel{name: "chat"}
	d, _ := newTestDispatcher(t, ch)

	a := d.Send(domain.ViolationResponseTime, "/courses", domain.SeverityWarning, "slow", "", nil)
	b := d.Send(domain.ViolationResponseTime, "/users/:id", domain.SeverityWarning, "slow", "", nil)
	c := d.Send(domain.ViolationErrorRate, "/courses", domain.SeverityWarning, "errors", "", nil)

	assert.False(t, a.Suppressed)
	assert.False(t, b.Suppressed)
	assert.False(t, c.Suppressed)
	assert.Equal(t, 3, ch.count())
	assert.Len(t, d.Records(), 3)
}

func TestSendChannelFailureIsolation(t *testing.T) {
	good := &fakeChannel{name: "good"}
	bad := &fakeChannel{name: "bad", fail: true}
	d, _ := newTestDispatcher(t, good, bad)

	result := d.Send(domain.ViolationResponseTime, "/courses", domain.SeverityCritical, "slow", "", nil)

	assert.False(t, result.Suppressed)
	assert.Equal(t, []string{"good"}, result.Sent)
	assert.Equal(t, []string{"bad"}, result.Failed)
	assert.Equal(t, 1, good.count())
	assert.Equal(t, 1, bad.count())
}

func TestSendRateLimitAppliesAfterFailedDelivery(t *testing.T) {
	bad := &fakeChannel{name: "bad", fail: true}
	d, clock := newTestDispatcher(t, bad)

	first := d.Send(domain.ViolationResponseTime, "/courses", domain.SeverityWarning, "slow", "", nil)
	assert.Equal(t, []string{"bad"}, first.Failed)

	// the record updates even when every channel fails, so a flapping
	// transport cannot cause an alert storm
	*clock = clock.Add(time.Minute)
	second := d.Send(domain.ViolationResponseTime, "/courses", domain.SeverityWarning, "slow", "", nil)
	assert.True(t, second.Suppressed)
	assert.Equal(t, 1, bad.count())
}

func TestSendNoChannels(t *testing.T) {
	d, _ := newTestDispatcher(t)

	result := d.Send(domain.ViolationResponseTime, "/courses", domain.SeverityWarning, "slow", "", nil)
	assert.False(t, result.Suppressed)
	assert.Empty(t, result.Sent)
	assert.Empty(t, result.Failed)
	require.Len(t, d.Records(), 1)
	assert.Equal(t, int64(1), d.Records()[0].SendCount)
}

func TestHandleViolation(t *testing.T) {
	ch := &fakeChannel{name: "chat"}
	d, _ := newTestDispatcher(t, ch)

	d.HandleViolation(domain.Violation{
		Type:             domain.ViolationResponseTime,
		Scope:            "/courses",
		Expected:         1000,
		Actual:           1500,
		DeviationPercent: 50,
		Severity:         domain.SeverityWarning,
		DetectedAt:       time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	})

	require.Equal(t, 1, ch.count())
	p := ch.delivered[0]
	assert.Equal(t, "WARNING RESPONSE_TIME on /courses", p.Title)
	assert.Contains(t, p.Message, "expected 1000.00")
	assert.Contains(t, p.Message, "observed 1500.00")
	assert.Equal(t, "/courses", p.Context["scope"])
}

func TestRecordsNewestFirst(t *testing.T) {
	d, clock := newTestDispatcher(t)

	d.Send(domain.ViolationResponseTime, "/a", domain.SeverityWarning, "slow", "", nil)
	*clock = clock.Add(time.Minute)
	d.Send(domain.ViolationResponseTime, "/b", domain.SeverityWarning, "slow", "", nil)

	records := d.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "RESPONSE_TIME//b", records[0].AlertKey)
	assert.Equal(t, "RESPONSE_TIME//a", records[1].AlertKey)
}

func TestGCExpiresIdleRecords(t *testing.T) {
	d, clock := newTestDispatcher(t)

	d.Send(domain.ViolationResponseTime, "/old", domain.SeverityWarning, "slow", "", nil)
	*clock = clock.Add(23 * time.Hour)
	d.Send(domain.ViolationResponseTime, "/fresh", domain.SeverityWarning, "slow", "", nil)
	*clock = clock.Add(2 * time.Hour)

	removed := d.GC()
	assert.Equal(t, 1, removed)

	records := d.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "RESPONSE_TIME//fresh", records[0].AlertKey)
}

func TestCooldownFallbackAndSeverity(t *testing.T) {
	c := DefaultCooldowns()
	assert.Equal(t, 2*time.Minute, c.For(domain.ViolationResponseTime, domain.SeverityCritical))
	assert.Equal(t, 5*time.Minute, c.For(domain.ViolationResponseTime, domain.SeverityWarning))
	assert.Equal(t, 15*time.Minute, c.For("UNKNOWN_TYPE", domain.SeverityWarning))
	assert.Equal(t, 5*time.Minute, c.For("UNKNOWN_TYPE", domain.SeverityCritical))
}

func TestBuildChannels(t *testing.T) {
	channels, err := BuildChannels(nil)
	require.NoError(t, err)
	assert.Empty(t, channels)

	channels, err = BuildChannels([]config.ChannelConfig{
		{Type: "chat", Name: "ops", Enabled: true, Settings: map[string]interface{}{
			"webhook_url": "https://chat.example.com/hooks/abc",
		}},
		{Type: "email", Name: "oncall", Enabled: false},
	})
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, "ops", channels[0].Name())

	_, err = BuildChannels([]config.ChannelConfig{{Type: "pager", Enabled: true}})
	assert.Error(t, err)
}
