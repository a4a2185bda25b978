// Package polymarket adapts the Polymarket Gamma API to the domain.MarketVenue
// interface: market discovery for pool ingestion, price refresh for the sweep,
// and resolution checks for settlement.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/polydraft/polydraft/internal/domain"
)

// Venue is the REST client for the Polymarket Gamma API.
type Venue struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Polymarket venue adapter.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
func New(baseURL string) *Venue {
	return &Venue{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ListMarkets returns open markets matching the pool filter as domain events.
// Markets whose outcome payload cannot be decoded are skipped rather than
// failing the whole page.
func (v *Venue) ListMarkets(ctx context.Context, filter domain.PoolFilter) ([]domain.Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("closed", "false")
	if filter.Tag != "" {
		params.Set("tag", filter.Tag)
	}
	if !filter.WindowStart.IsZero() {
		params.Set("end_date_min", filter.WindowStart.UTC().Format(time.RFC3339))
	}
	if !filter.WindowEnd.IsZero() {
		params.Set("end_date_max", filter.WindowEnd.UTC().Format(time.RFC3339))
	}

	body, err := v.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket: list markets: %w", err)
	}

	var apiMarkets []APIMarket
	if err := json.Unmarshal(body, &apiMarkets); err != nil {
		return nil, fmt.Errorf("polymarket: decode markets: %w", err)
	}

	events := make([]domain.Event, 0, len(apiMarkets))
	for i := range apiMarkets {
		ev, ok := apiMarkets[i].ToEvent()
		if !ok {
			continue
		}
		events = append(events, ev)
	}

	return events, nil
}

// FetchPrice returns the current probability of the market's first outcome.
func (v *Venue) FetchPrice(ctx context.Context, venueID string) (float64, error) {
	m, err := v.getMarket(ctx, venueID)
	if err != nil {
		return 0, fmt.Errorf("polymarket: fetch price %s: %w", venueID, err)
	}

	_, probs, ok := m.outcomePairs()
	if !ok {
		return 0, fmt.Errorf("polymarket: fetch price %s: malformed outcome prices", venueID)
	}

	return probs[0], nil
}

// CheckResolution reports whether the venue has settled the market backing
// the given event, and if so which outcome won. A closed market with no
// winning token flagged yet is reported as still unresolved.
func (v *Venue) CheckResolution(ctx context.Context, event domain.Event) (domain.VenueResolution, error) {
	m, err := v.getMarket(ctx, event.VenueID)
	if err != nil {
		return domain.VenueResolution{}, fmt.Errorf("polymarket: check resolution %s: %w", event.VenueID, err)
	}

	if !m.Closed {
		return domain.VenueResolution{}, nil
	}

	winner := m.winnerOutcome()
	if winner == "" {
		return domain.VenueResolution{}, nil
	}
	if !event.HasOutcome(winner) {
		return domain.VenueResolution{}, fmt.Errorf("polymarket: check resolution %s: winner %q not among event outcomes", event.VenueID, winner)
	}

	return domain.VenueResolution{Resolved: true, Winner: winner}, nil
}

func (v *Venue) getMarket(ctx context.Context, id string) (APIMarket, error) {
	body, err := v.doGet(ctx, "/markets/"+url.PathEscape(id))
	if err != nil {
		return APIMarket{}, err
	}

	var m APIMarket
	if err := json.Unmarshal(body, &m); err != nil {
		return APIMarket{}, fmt.Errorf("decode market: %w", err)
	}
	return m, nil
}

// doGet sends an unauthenticated GET request to the Gamma API.
func (v *Venue) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}

// checkHTTPStatus maps HTTP error codes to domain errors where one applies.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}

// Compile-time interface check.
var _ domain.MarketVenue = (*Venue)(nil)
