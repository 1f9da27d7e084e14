package tenantvault

import (
	"math"
	"sync"
	"time"
)

// OperationClass partitions rate-limited operations. Each (key, class) pair
// gets its own token bucket.
type OperationClass string

const (
	// OpRead covers read-only tenant operations. Cost: 1 token.
	OpRead OperationClass = "read"

	// OpWrite covers mutating tenant operations. Writes consume 2 tokens so a
	// mutation-heavy client throttles at half the read rate.
	OpWrite OperationClass = "write"

	// OpLogin covers authentication attempts, keyed by origin address.
	OpLogin OperationClass = "login"

	// OpSignup covers provisioning-class operations, keyed by origin address.
	OpSignup OperationClass = "signup"
)

// cost returns the token cost of one operation of this class.
func (c OperationClass) cost() float64 {
	if c == OpWrite {
		return 2
	}
	return 1
}

// Limit describes one bucket class: capacity in tokens and continuous refill
// rate in tokens per second.
type Limit struct {
	Capacity float64
	Rate     float64
}

// LimitForRPM builds a Limit from a requests-per-minute budget with a 2x
// burst allowance.
func LimitForRPM(rpm int) Limit {
	return Limit{
		Capacity: float64(rpm) * 2,
		Rate:     float64(rpm) / 60.0,
	}
}

// Decision is the outcome of a rate-limit check. When not allowed,
// RetryAfter is the time until at least one operation of the checked class
// will be admitted.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

type bucketKey struct {
	key   string
	class OperationClass
}

type bucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// RateLimiter is a token-bucket guard shared by all in-flight requests.
// Buckets are created lazily per (key, class) and evicted after a long idle
// period; an evicted bucket resets to full on next use, which is a documented
// relaxation, not a correctness bug.
//
// The refill-then-subtract sequence runs under a per-bucket mutex so
// concurrent callers can neither lose updates nor double-spend a token. The
// outer map lock is held only for bucket lookup, never across the arithmetic,
// so contention on one tenant's bucket does not serialize other tenants.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[bucketKey]*bucket
	limits  map[OperationClass]Limit

	maxIdle   time.Duration
	lastSweep time.Time

	now func() time.Time
}

// NewRateLimiter creates a limiter with the given per-class limits. Classes
// absent from the map fall back to the OpRead limit; if that is also absent,
// checks for the class always allow.
func NewRateLimiter(limits map[OperationClass]Limit) *RateLimiter {
	cp := make(map[OperationClass]Limit, len(limits))
	for class, lim := range limits {
		cp[class] = lim
	}
	return &RateLimiter{
		buckets: make(map[bucketKey]*bucket),
		limits:  cp,
		maxIdle: 30 * time.Minute,
		now:     time.Now,
	}
}

// Acquire attempts to admit one operation of the given class for key. It
// refills the bucket from elapsed wall-clock time, capped at capacity, then
// subtracts the class cost; if the result would go negative the call is
// denied with the time until enough tokens accrue.
func (l *RateLimiter) Acquire(key string, class OperationClass) Decision {
	lim, ok := l.limitFor(class)
	if !ok {
		return Decision{Allowed: true}
	}

	b := l.bucketFor(bucketKey{key: key, class: class}, lim)
	cost := class.cost()

	b.mu.Lock()
	defer b.mu.Unlock()

	now := l.now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens = math.Min(lim.Capacity, b.tokens+elapsed*lim.Rate)
		b.lastRefill = now
	}

	if b.tokens >= cost {
		b.tokens -= cost
		return Decision{Allowed: true}
	}

	needed := cost - b.tokens
	retryAfter := time.Duration(math.Ceil(needed/lim.Rate)) * time.Second
	return Decision{Allowed: false, RetryAfter: retryAfter}
}

// Reset drops the bucket for (key, class), or every bucket when key is empty.
// Intended for tests and administrative unblocking.
func (l *RateLimiter) Reset(key string, class OperationClass) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if key == "" {
		l.buckets = make(map[bucketKey]*bucket)
		return
	}
	delete(l.buckets, bucketKey{key: key, class: class})
}

func (l *RateLimiter) limitFor(class OperationClass) (Limit, bool) {
	if lim, ok := l.limits[class]; ok {
		return lim, true
	}
	lim, ok := l.limits[OpRead]
	return lim, ok
}

func (l *RateLimiter) bucketFor(k bucketKey, lim Limit) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > l.maxIdle {
		l.sweepLocked(now)
		l.lastSweep = now
	}

	b, ok := l.buckets[k]
	if !ok {
		b = &bucket{tokens: lim.Capacity, lastRefill: now}
		l.buckets[k] = b
	}
	return b
}

// sweepLocked evicts buckets idle for longer than maxIdle. Callers hold l.mu.
// A bucket touched concurrently during the sweep is at worst evicted and
// recreated full, which only relaxes the limit for that key.
func (l *RateLimiter) sweepLocked(now time.Time) {
	for k, b := range l.buckets {
		b.mu.Lock()
		idle := now.Sub(b.lastRefill)
		b.mu.Unlock()
		if idle > l.maxIdle {
			delete(l.buckets, k)
		}
	}
}
