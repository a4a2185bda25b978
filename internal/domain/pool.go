package domain

import "time"

// Pool is a named, venue-scoped, time-windowed collection of events eligible
// for one pack theme. Pools are created by the seeding/ingestion process and
// are read-only from the game engine's perspective.
type Pool struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Venue       string    `json:"venue"`
	Tag         string    `json:"tag"` // venue-side category filter, e.g. "nba"
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	CreatedAt   time.Time `json:"created_at"`
}

// PoolFilter selects venue markets for ingestion into a pool.
type PoolFilter struct {
	Tag         string
	WindowStart time.Time
	WindowEnd   time.Time
	Limit       int
}
