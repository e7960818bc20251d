// Package lockout throttles repeated failed sign-in attempts per account, so
// a credential-stuffing run locks the target out long before it can walk a
// password list.
package lockout

import (
	"sync"
	"time"

	dErrors "carehub/pkg/domain-errors"
)

// Config tunes the failure window and the lock it triggers.
type Config struct {
	// MaxFailures within Window trips the lock.
	MaxFailures int
	Window      time.Duration
	LockFor     time.Duration
}

// DefaultConfig is five failures per fifteen minutes, locking for fifteen.
func DefaultConfig() Config {
	return Config{
		MaxFailures: 5,
		Window:      15 * time.Minute,
		LockFor:     15 * time.Minute,
	}
}

type record struct {
	failures    int
	windowStart time.Time
	lockedUntil time.Time
}

// Limiter tracks failures in memory keyed by normalized email. State is
// per-process; a lock here slows an attacker, it is not a distributed quota.
type Limiter struct {
	mu      sync.Mutex
	cfg     Config
	records map[string]*record
}

// New builds a Limiter. Zero-valued config fields take their defaults.
func New(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = def.MaxFailures
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.LockFor <= 0 {
		cfg.LockFor = def.LockFor
	}
	return &Limiter{cfg: cfg, records: make(map[string]*record)}
}

// Check reports whether the key is currently locked out.
func (l *Limiter) Check(key string, now time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[key]
	if !ok {
		return nil
	}
	if now.Before(rec.lockedUntil) {
		return dErrors.New(dErrors.CodeTooManyAttempts,
			"too many failed sign-in attempts, try again later")
	}
	if !rec.lockedUntil.IsZero() && !now.Before(rec.lockedUntil) {
		// The lock expired; start clean.
		delete(l.records, key)
	}
	return nil
}

// RecordFailure counts a failed attempt and trips the lock when the window
// fills up.
func (l *Limiter) RecordFailure(key string, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[key]
	if !ok || now.Sub(rec.windowStart) > l.cfg.Window {
		rec = &record{windowStart: now}
		l.records[key] = rec
	}

	rec.failures++
	if rec.failures >= l.cfg.MaxFailures {
		rec.lockedUntil = now.Add(l.cfg.LockFor)
	}
}

// Reset clears the key after a successful sign-in.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.records, key)
}
