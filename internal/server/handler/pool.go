package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/polydraft/polydraft/internal/domain"
	"github.com/polydraft/polydraft/internal/service"
)

// PoolService defines the methods that the pool handler requires from the
// service layer. It is declared locally so the handler package does not depend
// on the concrete service implementation.
type PoolService interface {
	CreatePool(ctx context.Context, req service.CreatePoolRequest) (domain.Pool, error)
	GetPool(ctx context.Context, id string) (domain.Pool, error)
	ListPools(ctx context.Context, opts domain.ListOpts) ([]domain.Pool, error)
	ListPoolEvents(ctx context.Context, poolID string, statuses []domain.EventStatus) ([]domain.Event, error)
}

// PoolHandler serves draft pool HTTP endpoints.
type PoolHandler struct {
	pools  PoolService
	logger *slog.Logger
}

// NewPoolHandler creates a PoolHandler with the given service and logger.
func NewPoolHandler(pools PoolService, logger *slog.Logger) *PoolHandler {
	return &PoolHandler{
		pools:  pools,
		logger: logger,
	}
}

// CreatePool creates a new draft pool.
// POST /api/pools
func (h *PoolHandler) CreatePool(w http.ResponseWriter, r *http.Request) {
	var req service.CreatePoolRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pool, err := h.pools.CreatePool(r.Context(), req)
	if err != nil {
		if !isClientError(err) {
			h.logger.ErrorContext(r.Context(), "handler: create pool failed",
				slog.String("error", err.Error()),
			)
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, pool)
}

// listPoolsResponse wraps the list endpoint output with pagination metadata.
type listPoolsResponse struct {
	Pools  []domain.Pool `json:"pools"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// ListPools returns pools with pagination.
// GET /api/pools?limit=50&offset=0
func (h *PoolHandler) ListPools(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	pools, err := h.pools.ListPools(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list pools failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list pools")
		return
	}

	writeJSON(w, http.StatusOK, listPoolsResponse{
		Pools:  pools,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}

// GetPool returns a single pool by its ID.
// GET /api/pools/{id}
func (h *PoolHandler) GetPool(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing pool id")
		return
	}

	pool, err := h.pools.GetPool(r.Context(), id)
	if err != nil {
		if !isClientError(err) {
			h.logger.ErrorContext(r.Context(), "handler: get pool failed",
				slog.String("pool_id", id),
				slog.String("error", err.Error()),
			)
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pool)
}

// ListPoolEvents returns a pool's events, optionally filtered by status.
// GET /api/pools/{id}/events?status=upcoming,active
func (h *PoolHandler) ListPoolEvents(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing pool id")
		return
	}

	statuses, ok := parseEventStatuses(r.URL.Query().Get("status"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid status filter")
		return
	}

	events, err := h.pools.ListPoolEvents(r.Context(), id, statuses)
	if err != nil {
		if !isClientError(err) {
			h.logger.ErrorContext(r.Context(), "handler: list pool events failed",
				slog.String("pool_id", id),
				slog.String("error", err.Error()),
			)
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// parseEventStatuses parses a comma-separated status filter. An empty filter
// means no filtering.
func parseEventStatuses(raw string) ([]domain.EventStatus, bool) {
	if raw == "" {
		return nil, true
	}
	var out []domain.EventStatus
	for _, part := range strings.Split(raw, ",") {
		switch st := domain.EventStatus(strings.TrimSpace(part)); st {
		case domain.EventStatusUpcoming, domain.EventStatusActive,
			domain.EventStatusResolved, domain.EventStatusCancelled:
			out = append(out, st)
		default:
			return nil, false
		}
	}
	return out, true
}
