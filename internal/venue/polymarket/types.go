package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/polydraft/polydraft/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// APIMarket represents a market as returned by the Polymarket Gamma API.
// Outcomes and OutcomePrices arrive as JSON-encoded strings inside the JSON
// payload, e.g. "[\"Yes\",\"No\"]".
type APIMarket struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Slug          string   `json:"slug"`
	Active        flexBool `json:"active"`
	Closed        bool     `json:"closed"`
	Outcomes      string   `json:"outcomes"`
	OutcomePrices string   `json:"outcomePrices"`
	Tokens        []Token  `json:"tokens"`
	Volume        string   `json:"volume"`
	EndDateISO    string   `json:"end_date_iso"`
	GameStartTime string   `json:"game_start_time"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
}

// Token represents a token entry inside the Gamma API market response.
type Token struct {
	TokenID string `json:"token_id"`
	Outcome string `json:"outcome"`
	Winner  bool   `json:"winner"`
}

// outcomePairs decodes the doubly-encoded outcome labels and prices. Markets
// with fewer than two outcomes, or with labels/prices that do not line up,
// yield ok=false and are skipped by the caller.
func (m *APIMarket) outcomePairs() (labels []string, probs []float64, ok bool) {
	if err := json.Unmarshal([]byte(m.Outcomes), &labels); err != nil {
		return nil, nil, false
	}
	var priceStrs []string
	if err := json.Unmarshal([]byte(m.OutcomePrices), &priceStrs); err != nil {
		return nil, nil, false
	}
	if len(labels) < 2 || len(labels) != len(priceStrs) {
		return nil, nil, false
	}
	probs = make([]float64, len(priceStrs))
	for i, ps := range priceStrs {
		p, err := strconv.ParseFloat(ps, 64)
		if err != nil {
			return nil, nil, false
		}
		probs[i] = p
	}
	return labels, probs, true
}

// ToEvent converts a Gamma market to a domain.Event. The event carries the
// venue's market ID; the caller assigns the internal ID. Markets whose
// outcome data cannot be decoded return ok=false.
func (m *APIMarket) ToEvent() (domain.Event, bool) {
	labels, probs, ok := m.outcomePairs()
	if !ok {
		return domain.Event{}, false
	}

	ev := domain.Event{
		VenueID:  m.ID,
		Title:    m.Question,
		OutcomeA: labels[0],
		OutcomeB: labels[1],
		ProbA:    probs[0],
		ProbB:    probs[1],
	}

	// A third outcome is the draw line on sports markets.
	if len(labels) >= 3 {
		ev.DrawOutcome = labels[2]
		ev.DrawProb = probs[2]
	}

	switch {
	case m.Closed:
		ev.Status = domain.EventStatusResolved
		ev.Winner = m.winnerOutcome()
	case bool(m.Active):
		ev.Status = domain.EventStatusActive
	default:
		ev.Status = domain.EventStatusUpcoming
	}

	if t, err := time.Parse(time.RFC3339, m.GameStartTime); err == nil {
		ev.StartAt = t
	}
	if t, err := time.Parse(time.RFC3339, m.EndDateISO); err == nil {
		ev.ResolveBy = t
	}
	if t, err := time.Parse(time.RFC3339, m.CreatedAt); err == nil {
		ev.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, m.UpdatedAt); err == nil {
		ev.UpdatedAt = t
	}

	return ev, true
}

// winnerOutcome returns the outcome label of the winning token, or "" when
// no token is flagged.
func (m *APIMarket) winnerOutcome() string {
	for _, tok := range m.Tokens {
		if tok.Winner {
			return tok.Outcome
		}
	}
	return ""
}
