package domain

import (
	"context"
	"time"
)

// PriceCache stores the last known probability per venue reference so the
// engine can fall back to a stale price during a venue outage.
type PriceCache interface {
	SetPrice(ctx context.Context, venueID string, price float64, ts time.Time) error
	// GetPrice returns ErrNotFound when no price has ever been cached.
	GetPrice(ctx context.Context, venueID string) (float64, time.Time, error)
}

// LockManager provides distributed locks for jobs that must not run
// concurrently across workers, such as pool ingestion.
type LockManager interface {
	// Acquire returns an unlock function on success and ErrLockHeld when the
	// lock is already taken.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// RateLimiter enforces a request budget against the venue API.
type RateLimiter interface {
	// Allow reports whether one more request fits inside the window.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// BlobWriter writes archive objects to cold storage.
type BlobWriter interface {
	Write(ctx context.Context, key string, data []byte, contentType string) error
}
