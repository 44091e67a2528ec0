package auth

import (
	"sync"
	"time"
)

// RateLimiter counts failed logins per IP+username pair within a window and
// locks the pair out once the limit is reached.
type RateLimiter struct {
	mu              sync.Mutex
	attempts        map[string]*attemptRecord
	maxAttempts     int
	windowDuration  time.Duration
	lockoutDuration time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
	stopCleanup     chan struct{}
	stopOnce        sync.Once
	done            chan struct{}
}

type attemptRecord struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

// RateLimitConfig contains configuration for the rate limiter.
type RateLimitConfig struct {
	MaxAttempts     int           // Maximum failures before lockout (default: 5)
	WindowDuration  time.Duration // Time window for counting failures (default: 15m)
	LockoutDuration time.Duration // How long a pair stays locked (default: 30m)
	CleanupInterval time.Duration // How often expired records are dropped (default: 5m)
}

// DefaultRateLimitConfig returns the defaults used when a field is zero.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxAttempts:     5,
		WindowDuration:  15 * time.Minute,
		LockoutDuration: 30 * time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

// NewRateLimiter creates a rate limiter and starts its cleanup goroutine.
// Call Stop to release it.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	def := DefaultRateLimitConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.WindowDuration <= 0 {
		cfg.WindowDuration = def.WindowDuration
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = def.LockoutDuration
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}

	rl := &RateLimiter{
		attempts:        make(map[string]*attemptRecord),
		maxAttempts:     cfg.MaxAttempts,
		windowDuration:  cfg.WindowDuration,
		lockoutDuration: cfg.LockoutDuration,
		cleanupInterval: cfg.CleanupInterval,
		now:             time.Now,
		stopCleanup:     make(chan struct{}),
		done:            make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop stops the cleanup goroutine and waits for it to exit. Safe to call
// more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCleanup)
	})
	<-rl.done
}

func makeKey(ip, username string) string {
	return ip + "|" + username
}

// Allow reports whether a login attempt may proceed. When it may not,
// retryAfter is the remaining lockout.
func (rl *RateLimiter) Allow(ip, username string) (allowed bool, retryAfter time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	record, exists := rl.attempts[makeKey(ip, username)]
	if !exists {
		return true, 0
	}
	if !record.lockedUntil.IsZero() && now.Before(record.lockedUntil) {
		return false, record.lockedUntil.Sub(now)
	}
	return true, 0
}

// RecordFailure counts a failed attempt. It reports whether the pair is now
// locked and for how long.
func (rl *RateLimiter) RecordFailure(ip, username string) (locked bool, retryAfter time.Duration) {
	key := makeKey(ip, username)
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	record, exists := rl.attempts[key]
	if !exists {
		record = &attemptRecord{firstAttempt: now}
		rl.attempts[key] = record
	}

	// A finished lockout or an elapsed window starts a fresh count.
	lockoutOver := !record.lockedUntil.IsZero() && !now.Before(record.lockedUntil)
	if lockoutOver || now.Sub(record.firstAttempt) > rl.windowDuration {
		record.count = 0
		record.firstAttempt = now
		record.lockedUntil = time.Time{}
	}

	record.count++

	if record.count >= rl.maxAttempts {
		record.lockedUntil = now.Add(rl.lockoutDuration)
		return true, rl.lockoutDuration
	}
	return false, 0
}

// RecordSuccess clears the failure record for the pair.
func (rl *RateLimiter) RecordSuccess(ip, username string) {
	rl.mu.Lock()
	delete(rl.attempts, makeKey(ip, username))
	rl.mu.Unlock()
}

func (rl *RateLimiter) cleanupLoop() {
	defer close(rl.done)

	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanup drops records whose window and lockout have both expired.
func (rl *RateLimiter) cleanup() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, record := range rl.attempts {
		windowExpired := now.Sub(record.firstAttempt) > rl.windowDuration
		lockoutExpired := record.lockedUntil.IsZero() || now.After(record.lockedUntil)
		if windowExpired && lockoutExpired {
			delete(rl.attempts, key)
		}
	}
}

func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.attempts)
}
