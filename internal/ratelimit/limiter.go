package ratelimit

import (
	"context"
	"errors"
	"math"
	"time"
)

const defaultPrefix = "rl"

// Bucket is the per-key counter. WindowEnd is absolute.
type Bucket struct {
	Count     int
	WindowEnd time.Time
}

// Result is the outcome of one check. Remaining is meaningful when the request
// is admitted, RetryAfterSeconds when it is rejected. ResetAt is the end of
// the bucket's current window either way.
type Result struct {
	Allowed           bool
	Remaining         int
	ResetAt           time.Time
	RetryAfterSeconds int
}

// Store applies the admission rule to a key atomically.
type Store interface {
	Take(ctx context.Context, key string, max int, window time.Duration, now time.Time) (Result, error)
}

type Config struct {
	MaxRequests int
	Window      time.Duration
	Prefix      string
}

type Limiter struct {
	cfg   Config
	store Store
	now   func() time.Time
}

type Option func(*Limiter)

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func New(cfg Config, store Store, opts ...Option) (*Limiter, error) {
	if cfg.MaxRequests < 1 {
		return nil, errors.New("ratelimit: MaxRequests must be at least 1")
	}
	if cfg.Window <= 0 {
		return nil, errors.New("ratelimit: Window must be positive")
	}
	if store == nil {
		return nil, errors.New("ratelimit: nil store")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	l := &Limiter{cfg: cfg, store: store, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *Limiter) Prefix() string { return l.cfg.Prefix }

// Check counts one request from client against its bucket.
func (l *Limiter) Check(ctx context.Context, client string) (Result, error) {
	return l.store.Take(ctx, BucketKey(l.cfg.Prefix, client), l.cfg.MaxRequests, l.cfg.Window, l.now())
}

func BucketKey(prefix, client string) string { return prefix + "-" + client }

// apply is the admission rule shared by the stores. live reports whether b
// was found; the returned bucket must be persisted only when admitted.
func apply(b Bucket, live bool, max int, window time.Duration, now time.Time) (Bucket, Result) {
	if live && !b.WindowEnd.After(now) {
		live = false
	}
	if !live {
		b = Bucket{WindowEnd: now.Add(window)}
	}

	if b.Count >= max {
		return b, Result{
			Allowed:           false,
			ResetAt:           b.WindowEnd,
			RetryAfterSeconds: retryAfter(b.WindowEnd.Sub(now)),
		}
	}

	b.Count++
	return b, Result{
		Allowed:   true,
		Remaining: max - b.Count,
		ResetAt:   b.WindowEnd,
	}
}

func retryAfter(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}
