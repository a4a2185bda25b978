package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/polydraft/polydraft/internal/domain"
)

// PoolService manages draft pools and their event listings.
type PoolService struct {
	pools  domain.PoolStore
	events domain.EventStore
	logger *slog.Logger
}

// NewPoolService creates a PoolService.
func NewPoolService(pools domain.PoolStore, events domain.EventStore, logger *slog.Logger) *PoolService {
	return &PoolService{
		pools:  pools,
		events: events,
		logger: logger.With(slog.String("component", "pool_service")),
	}
}

// CreatePoolRequest carries the parameters for a new draft pool.
type CreatePoolRequest struct {
	Name        string    `json:"name"`
	Venue       string    `json:"venue"`
	Tag         string    `json:"tag"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
}

// CreatePool validates and persists a new pool.
func (s *PoolService) CreatePool(ctx context.Context, req CreatePoolRequest) (domain.Pool, error) {
	if req.Name == "" || req.Venue == "" {
		return domain.Pool{}, fmt.Errorf("pool_service: name and venue are required: %w", domain.ErrInvalidPick)
	}
	if !req.WindowEnd.After(req.WindowStart) {
		return domain.Pool{}, fmt.Errorf("pool_service: window end must be after window start: %w", domain.ErrInvalidPick)
	}

	pool := domain.Pool{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Venue:       req.Venue,
		Tag:         req.Tag,
		WindowStart: req.WindowStart,
		WindowEnd:   req.WindowEnd,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.pools.Create(ctx, pool); err != nil {
		return domain.Pool{}, fmt.Errorf("pool_service: create pool: %w", err)
	}

	s.logger.InfoContext(ctx, "pool created",
		slog.String("pool_id", pool.ID),
		slog.String("name", pool.Name),
		slog.String("venue", pool.Venue),
	)
	return pool, nil
}

// GetPool retrieves a pool by ID.
func (s *PoolService) GetPool(ctx context.Context, id string) (domain.Pool, error) {
	pool, err := s.pools.GetByID(ctx, id)
	if err != nil {
		return domain.Pool{}, fmt.Errorf("pool_service: get pool %s: %w", id, err)
	}
	return pool, nil
}

// ListPools returns pools with pagination.
func (s *PoolService) ListPools(ctx context.Context, opts domain.ListOpts) ([]domain.Pool, error) {
	pools, err := s.pools.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("pool_service: list pools: %w", err)
	}
	return pools, nil
}

// ListPoolEvents returns a pool's events, optionally filtered by status.
func (s *PoolService) ListPoolEvents(ctx context.Context, poolID string, statuses []domain.EventStatus) ([]domain.Event, error) {
	if _, err := s.pools.GetByID(ctx, poolID); err != nil {
		return nil, fmt.Errorf("pool_service: pool %s: %w", poolID, err)
	}
	events, err := s.events.ListByPool(ctx, poolID, statuses)
	if err != nil {
		return nil, fmt.Errorf("pool_service: list events for pool %s: %w", poolID, err)
	}
	return events, nil
}
