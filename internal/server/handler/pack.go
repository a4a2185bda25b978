package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/polydraft/polydraft/internal/composer"
	"github.com/polydraft/polydraft/internal/domain"
	"github.com/polydraft/polydraft/internal/service"
)

// PackService defines the methods that the pack handler requires from the
// service layer.
type PackService interface {
	ComposeDraft(ctx context.Context, poolID string) ([]composer.DraftEvent, error)
	SubmitPack(ctx context.Context, req service.SubmitPackRequest) (domain.Pack, error)
	BuyPremiumPack(ctx context.Context, req service.BuyPremiumRequest) (domain.Pack, error)
	RevealNext(ctx context.Context, packID string, position int) (domain.Pick, error)
	GetPackState(ctx context.Context, packID string) (service.PackState, error)
	ListByProfile(ctx context.Context, profileID string, opts domain.ListOpts) ([]domain.Pack, error)
}

// PackHandler serves pack lifecycle HTTP endpoints: drafting, submission,
// premium purchase, reveals, and the pack read model.
type PackHandler struct {
	packs  PackService
	logger *slog.Logger
}

// NewPackHandler creates a PackHandler with the given service and logger.
func NewPackHandler(packs PackService, logger *slog.Logger) *PackHandler {
	return &PackHandler{
		packs:  packs,
		logger: logger,
	}
}

// ComposeDraft rolls a fresh draft slate from the pool's live events.
// POST /api/pools/{id}/draft
func (h *PackHandler) ComposeDraft(w http.ResponseWriter, r *http.Request) {
	poolID := pathParam(r, "id")
	if poolID == "" {
		writeError(w, http.StatusBadRequest, "missing pool id")
		return
	}

	draft, err := h.packs.ComposeDraft(r.Context(), poolID)
	if err != nil {
		if !isClientError(err) {
			h.logger.ErrorContext(r.Context(), "handler: compose draft failed",
				slog.String("pool_id", poolID),
				slog.String("error", err.Error()),
			)
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"draft": draft})
}

// SubmitPack creates a free pack from a client submission. The client-chosen
// pack ID is the idempotency key, so retries return 200 with the original
// pack instead of 201.
// POST /api/packs
func (h *PackHandler) SubmitPack(w http.ResponseWriter, r *http.Request) {
	var req service.SubmitPackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pack, err := h.packs.SubmitPack(r.Context(), req)
	if err != nil {
		if !isClientError(err) {
			h.logger.ErrorContext(r.Context(), "handler: submit pack failed",
				slog.String("pack_id", req.PackID),
				slog.String("error", err.Error()),
			)
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, pack)
}

// BuyPremiumPack verifies an on-chain payment and creates a premium pack.
// POST /api/packs/premium
func (h *PackHandler) BuyPremiumPack(w http.ResponseWriter, r *http.Request) {
	var req service.BuyPremiumRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pack, err := h.packs.BuyPremiumPack(r.Context(), req)
	if err != nil {
		if !isClientError(err) {
			h.logger.ErrorContext(r.Context(), "handler: premium purchase failed",
				slog.String("pack_id", req.PackID),
				slog.String("payment_ref", req.PaymentRef),
				slog.String("error", err.Error()),
			)
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, pack)
}

// GetPackState returns a pack with its picks and derived aggregates.
// GET /api/packs/{id}
func (h *PackHandler) GetPackState(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing pack id")
		return
	}

	state, err := h.packs.GetPackState(r.Context(), id)
	if err != nil {
		if !isClientError(err) {
			h.logger.ErrorContext(r.Context(), "handler: get pack failed",
				slog.String("pack_id", id),
				slog.String("error", err.Error()),
			)
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// RevealNext plays the reveal at the given position. Reveals are strictly
// positional; revealing out of order or replaying a position answers 409.
// POST /api/packs/{id}/reveal/{position}
func (h *PackHandler) RevealNext(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	position, err := strconv.Atoi(pathParam(r, "position"))
	if id == "" || err != nil || position < 1 {
		writeError(w, http.StatusBadRequest, "missing pack id or invalid position")
		return
	}

	pick, err := h.packs.RevealNext(r.Context(), id, position)
	if err != nil {
		if !isClientError(err) {
			h.logger.ErrorContext(r.Context(), "handler: reveal failed",
				slog.String("pack_id", id),
				slog.Int("position", position),
				slog.String("error", err.Error()),
			)
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pick)
}

// listPacksResponse wraps the profile pack listing with pagination metadata.
type listPacksResponse struct {
	Packs  []domain.Pack `json:"packs"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// ListProfilePacks returns a profile's packs, newest first.
// GET /api/profiles/{id}/packs?limit=50&offset=0
func (h *PackHandler) ListProfilePacks(w http.ResponseWriter, r *http.Request) {
	profileID := pathParam(r, "id")
	if profileID == "" {
		writeError(w, http.StatusBadRequest, "missing profile id")
		return
	}
	opts := parseListOpts(r)

	packs, err := h.packs.ListByProfile(r.Context(), profileID, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list profile packs failed",
			slog.String("profile_id", profileID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list packs")
		return
	}

	writeJSON(w, http.StatusOK, listPacksResponse{
		Packs:  packs,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}
