package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/polydraft/polydraft/internal/domain"
)

// PriceCache implements domain.PriceCache using Redis hashes. It keeps the
// last probability seen per venue market so that the sweep can keep working
// through a venue outage. Entries carry no TTL: a stale price is the whole
// point of the fallback.
//
// Key schema:
//
//	price:{venueID} - hash with fields "prob" and "ts" (Unix nanoseconds)
type PriceCache struct {
	rdb *redis.Client
}

// NewPriceCache creates a PriceCache backed by the given Client.
func NewPriceCache(c *Client) *PriceCache {
	return &PriceCache{rdb: c.Underlying()}
}

func priceKey(venueID string) string {
	return "price:" + venueID
}

// SetPrice stores the latest probability and timestamp for a venue market.
func (pc *PriceCache) SetPrice(ctx context.Context, venueID string, price float64, ts time.Time) error {
	fields := map[string]interface{}{
		"prob": strconv.FormatFloat(price, 'f', -1, 64),
		"ts":   strconv.FormatInt(ts.UnixNano(), 10),
	}
	if err := pc.rdb.HSet(ctx, priceKey(venueID), fields).Err(); err != nil {
		return fmt.Errorf("redis: set price %s: %w", venueID, err)
	}
	return nil
}

// GetPrice retrieves the last known probability and its timestamp. It
// returns domain.ErrNotFound when no price was ever cached.
func (pc *PriceCache) GetPrice(ctx context.Context, venueID string) (float64, time.Time, error) {
	vals, err := pc.rdb.HGetAll(ctx, priceKey(venueID)).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: get price %s: %w", venueID, err)
	}
	if len(vals) == 0 {
		return 0, time.Time{}, domain.ErrNotFound
	}

	probStr, ok := vals["prob"]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	prob, err := strconv.ParseFloat(probStr, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse price %s: %w", venueID, err)
	}

	tsStr, ok := vals["ts"]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse ts %s: %w", venueID, err)
	}

	return prob, time.Unix(0, tsNano), nil
}

// Compile-time interface check.
var _ domain.PriceCache = (*PriceCache)(nil)
