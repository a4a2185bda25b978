package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// SweepHandler serves the sweep trigger endpoint.
type SweepHandler struct {
	logger    *slog.Logger
	triggerCh chan<- struct{} // when non-nil, sending triggers one sweep pass
}

// NewSweepHandler creates a SweepHandler with the given logger.
func NewSweepHandler(logger *slog.Logger) *SweepHandler {
	return &SweepHandler{logger: logger}
}

// WithTriggerChannel sets the channel to send on when a trigger is requested.
// The sweep loop must receive from this channel to run one pass.
func (h *SweepHandler) WithTriggerChannel(ch chan<- struct{}) *SweepHandler {
	h.triggerCh = ch
	return h
}

// TriggerSweep enqueues one resolution sweep pass. If a trigger channel is
// configured, a non-blocking send is performed so the sweep loop runs once
// ahead of its schedule.
// POST /api/sweep/trigger
func (h *SweepHandler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "handler: sweep trigger requested")
	if h.triggerCh != nil {
		select {
		case h.triggerCh <- struct{}{}:
		default:
			// already triggered and not yet consumed
		}
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":       "accepted",
		"message":      "sweep trigger enqueued",
		"requested_at": time.Now().UTC().Format(time.RFC3339),
	})
}
