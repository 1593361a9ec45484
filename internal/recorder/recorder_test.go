package recorder

import (
	"sync"
	"testing"
	"time"

	"github.com/coursehub/perfwatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAt(endpoint string, ts int64, duration int64) domain.Sample {
	return domain.Sample{
		Endpoint:   endpoint,
		Method:     "GET",
		Timestamp:  ts,
		Duration:   duration,
		StatusCode: 200,
	}
}

func TestRecordEviction(t *testing.T) {
	const capacity = 100
	const extra = 25
	r := New(capacity)

	for i := 0; i < capacity+extra; i++ {
		r.Record(sampleAt("/courses", int64(i+1), int64(i)))
	}

	require.Equal(t, capacity, r.Len())

	window := r.Window("", 0)
	require.Len(t, window, capacity)
	// survivors are exactly the most recent `capacity` inserts, oldest first
	assert.Equal(t, int64(extra+1), window[0].Timestamp)
	assert.Equal(t, int64(capacity+extra), window[len(window)-1].Timestamp)
}

func TestRecordClampsInvalidFields(t *testing.T) {
	r := New(10)
	r.Record(domain.Sample{
		Endpoint:           "",
		Duration:           -50,
		StatusCode:         999,
		MemoryUsagePercent: 150,
		Timestamp:          1,
	})

	window := r.Window("", 0)
	require.Len(t, window, 1)
	assert.Equal(t, "/", window[0].Endpoint)
	assert.Equal(t, int64(0), window[0].Duration)
	assert.Equal(t, 0, window[0].StatusCode)
	assert.Equal(t, float64(100), window[0].MemoryUsagePercent)
}

func TestRecordAssignsTimestamp(t *testing.T) {
	r := New(10)
	before := time.Now().UnixMilli()
	r.Record(domain.Sample{Endpoint: "/courses", Duration: 10, StatusCode: 200})

	window := r.Window("", 0)
	require.Len(t, window, 1)
	assert.GreaterOrEqual(t, window[0].Timestamp, before)
}

func TestWindowFilters(t *testing.T) {
	r := New(10)
	r.Record(sampleAt("/courses/42", 100, 10))
	r.Record(sampleAt("/courses/43", 200, 20))
	r.Record(sampleAt("/users/7", 300, 30))

	// endpoint filter matches the normalized key
	courses := r.Window("/courses/99", 0)
	require.Len(t, courses, 2)
	for _, s := range courses {
		assert.Equal(t, "/courses/:id", s.Endpoint)
	}

	// since filter drops older samples
	recent := r.Window("", 250)
	require.Len(t, recent, 1)
	assert.Equal(t, "/users/:id", recent[0].Endpoint)
}

func TestWindowReturnsSnapshotCopy(t *testing.T) {
	r := New(10)
	r.Record(sampleAt("/courses", 100, 10))

	window := r.Window("", 0)
	window[0].Duration = 9999

	again := r.Window("", 0)
	assert.Equal(t, int64(10), again[0].Duration)
}

func TestTrimBefore(t *testing.T) {
	r := New(10)
	for i := 1; i <= 5; i++ {
		r.Record(sampleAt("/courses", int64(i*100), 10))
	}

	removed := r.TrimBefore(300)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 3, r.Len())

	window := r.Window("", 0)
	require.Len(t, window, 3)
	assert.Equal(t, int64(300), window[0].Timestamp)
}

func TestConcurrentRecordAndWindow(t *testing.T) {
	r := New(500)
	var wg sync.WaitGroup

	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				r.Record(sampleAt("/courses", int64(worker*1000+i+1), int64(i)))
				if i%50 == 0 {
					_ = r.Window("", 0)
				}
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 500, r.Len())
}

func TestNormalizeEndpoint(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"/courses", "/courses"},
		{"/courses/42", "/courses/:id"},
		{"/courses/42/lessons/7", "/courses/:id/lessons/:id"},
		{"/users/9f1c2b3a-4d5e-6f70-8a9b-0c1d2e3f4a5b", "/users/:id"},
		{"/users/:uuid", "/users/:id"},
		{"/users/{id}", "/users/:id"},
		{"/files/507f1f77bcf86cd799439011", "/files/:id"},
		{"/courses/42?page=2", "/courses/:id"},
		{"courses/42", "/courses/:id"},
		{"/courses/42/", "/courses/:id"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeEndpoint(tc.in), "input %q", tc.in)
	}
}
