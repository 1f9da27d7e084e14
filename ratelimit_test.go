package tenantvault

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock provides a controllable time source for limiter tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(limits map[OperationClass]Limit) (*RateLimiter, *fakeClock) {
	clock := newFakeClock()
	l := NewRateLimiter(limits)
	l.now = clock.Now
	return l, clock
}

func TestRateLimiterExactCapacity(t *testing.T) {
	l, _ := newTestLimiter(map[OperationClass]Limit{
		OpRead: {Capacity: 5, Rate: 1},
	})

	for i := 0; i < 5; i++ {
		d := l.Acquire("tenant-1", OpRead)
		assert.True(t, d.Allowed, "request %d within capacity must be admitted", i+1)
	}

	d := l.Acquire("tenant-1", OpRead)
	assert.False(t, d.Allowed, "request past capacity must be denied")
	assert.Greater(t, d.RetryAfter, time.Duration(0))
}

func TestRateLimiterWriteCostsDouble(t *testing.T) {
	l, _ := newTestLimiter(map[OperationClass]Limit{
		OpWrite: {Capacity: 4, Rate: 1},
	})

	assert.True(t, l.Acquire("tenant-1", OpWrite).Allowed)
	assert.True(t, l.Acquire("tenant-1", OpWrite).Allowed)
	assert.False(t, l.Acquire("tenant-1", OpWrite).Allowed,
		"writes cost 2 tokens, so capacity 4 admits exactly 2")
}

func TestRateLimiterRefill(t *testing.T) {
	l, clock := newTestLimiter(map[OperationClass]Limit{
		OpRead: {Capacity: 2, Rate: 1}, // 1 token per second
	})

	require.True(t, l.Acquire("tenant-1", OpRead).Allowed)
	require.True(t, l.Acquire("tenant-1", OpRead).Allowed)
	require.False(t, l.Acquire("tenant-1", OpRead).Allowed)

	clock.Advance(1 * time.Second)
	assert.True(t, l.Acquire("tenant-1", OpRead).Allowed, "one token accrues per second")
	assert.False(t, l.Acquire("tenant-1", OpRead).Allowed)

	// Refill caps at capacity regardless of idle time.
	clock.Advance(time.Hour)
	assert.True(t, l.Acquire("tenant-1", OpRead).Allowed)
	assert.True(t, l.Acquire("tenant-1", OpRead).Allowed)
	assert.False(t, l.Acquire("tenant-1", OpRead).Allowed)
}

func TestRateLimiterRetryAfterHint(t *testing.T) {
	l, clock := newTestLimiter(map[OperationClass]Limit{
		OpRead: {Capacity: 1, Rate: 0.5}, // one token per 2 seconds
	})

	require.True(t, l.Acquire("tenant-1", OpRead).Allowed)

	d := l.Acquire("tenant-1", OpRead)
	require.False(t, d.Allowed)
	assert.Equal(t, 2*time.Second, d.RetryAfter)

	clock.Advance(d.RetryAfter)
	assert.True(t, l.Acquire("tenant-1", OpRead).Allowed,
		"waiting the hinted duration must admit the retry")
}

func TestRateLimiterIsolation(t *testing.T) {
	l, _ := newTestLimiter(map[OperationClass]Limit{
		OpRead:  {Capacity: 1, Rate: 1},
		OpLogin: {Capacity: 1, Rate: 1},
	})

	require.True(t, l.Acquire("tenant-1", OpRead).Allowed)
	require.False(t, l.Acquire("tenant-1", OpRead).Allowed)

	// Other tenants and other classes keep their own buckets.
	assert.True(t, l.Acquire("tenant-2", OpRead).Allowed)
	assert.True(t, l.Acquire("tenant-1", OpLogin).Allowed)
}

func TestRateLimiterUnknownClassFallsBackToRead(t *testing.T) {
	l, _ := newTestLimiter(map[OperationClass]Limit{
		OpRead: {Capacity: 1, Rate: 1},
	})

	require.True(t, l.Acquire("origin-1", OpLogin).Allowed)
	assert.False(t, l.Acquire("origin-1", OpLogin).Allowed)
}

func TestRateLimiterNoLimitsAllowsAll(t *testing.T) {
	l, _ := newTestLimiter(nil)

	for i := 0; i < 100; i++ {
		require.True(t, l.Acquire("tenant-1", OpWrite).Allowed)
	}
}

func TestRateLimiterReset(t *testing.T) {
	l, _ := newTestLimiter(map[OperationClass]Limit{
		OpRead: {Capacity: 1, Rate: 0.001},
	})

	require.True(t, l.Acquire("tenant-1", OpRead).Allowed)
	require.False(t, l.Acquire("tenant-1", OpRead).Allowed)

	l.Reset("tenant-1", OpRead)
	assert.True(t, l.Acquire("tenant-1", OpRead).Allowed, "reset restores a full bucket")
}

func TestRateLimiterConcurrentNoOverAdmission(t *testing.T) {
	const capacity = 50
	l, _ := newTestLimiter(map[OperationClass]Limit{
		// Rate 0 with a fixed clock: no refill, admissions bounded by capacity.
		OpRead: {Capacity: capacity, Rate: 0},
	})

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Acquire("tenant-1", OpRead).Allowed {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(capacity), admitted.Load(),
		"concurrent callers must admit exactly the bucket capacity")
}

func TestLimitForRPM(t *testing.T) {
	lim := LimitForRPM(120)
	assert.Equal(t, 240.0, lim.Capacity, "burst capacity is twice the per-minute budget")
	assert.InDelta(t, 2.0, lim.Rate, 1e-9)
}
