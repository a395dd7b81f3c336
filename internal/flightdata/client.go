package flightdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/tripwatch/tripwatch/internal/apperr"
)

const (
	requestTimeout = 10 * time.Second
	retryBase      = 500 * time.Millisecond
	retryFactor    = 2
	maxAttempts    = 3
)

// Config configures the outbound provider client.
type Config struct {
	BaseURL string
	APIKey  string
}

// Client queries the flight-data provider with a 5-minute TTL cache, a
// circuit breaker, and bounded exponential-backoff retry on transient
// failures — grounded on the teacher's iaros-core HTTP client shape.
type Client struct {
	cfg     Config
	http    *http.Client
	cache   *Cache
	breaker *gobreaker.CircuitBreaker
	logger  *zap.SugaredLogger
}

func NewClient(cfg Config, logger *zap.SugaredLogger) *Client {
	cbSettings := gobreaker.Settings{
		Name:        "flight-data-provider",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 4
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Warnw("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			}
		},
	}

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: requestTimeout},
		cache:   NewCache(),
		breaker: gobreaker.NewCircuitBreaker(cbSettings),
		logger:  logger,
	}
}

func (c *Client) CacheStats() Stats { return c.cache.Stats() }

// GetFlightStatus returns the canonical snapshot for (flightNumber,
// departureDate), or a *apperr.TripError: NotFound, TransientProvider
// (after retries are exhausted), PermanentProvider (a 4xx other than
// 404, or an unparseable body), or Validation (a malformed
// departureDate). departureDate is "YYYY-MM-DD".
func (c *Client) GetFlightStatus(ctx context.Context, flightNumber, departureDate string) (*FlightSnapshot, error) {
	if snap, cached := c.cache.Get(flightNumber, departureDate); cached {
		if snap == nil {
			return nil, apperr.New(apperr.NotFound, "flightdata.GetFlightStatus", "flight not found for date", nil)
		}
		return snap, nil
	}

	snapshot, notFound, err := c.fetchWithRetry(ctx, flightNumber, departureDate)
	if err != nil {
		return nil, err
	}
	if notFound {
		c.cache.SetNotFound(flightNumber, departureDate)
		return nil, apperr.New(apperr.NotFound, "flightdata.GetFlightStatus", "flight not found for date", nil)
	}
	c.cache.Set(flightNumber, departureDate, snapshot)
	return snapshot, nil
}

func (c *Client) fetchWithRetry(ctx context.Context, flightNumber, departureDate string) (*FlightSnapshot, bool, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := retryBase * time.Duration(1<<uint(attempt-1))
			jittered := time.Duration(rand.Int63n(int64(backoff)))
			select {
			case <-time.After(jittered):
			case <-ctx.Done():
				return nil, false, apperr.New(apperr.TransientProvider, "flightdata.fetchWithRetry", "context cancelled during backoff", ctx.Err())
			}
		}

		result, err := c.breaker.Execute(func() (interface{}, error) {
			return c.doRequest(ctx, flightNumber, departureDate)
		})
		if err == nil {
			r := result.(requestResult)
			return r.snapshot, r.notFound, nil
		}

		if te, ok := err.(*apperr.TripError); ok {
			if te.Kind == apperr.PermanentProvider {
				return nil, false, te
			}
			lastErr = te
			continue
		}
		lastErr = apperr.New(apperr.TransientProvider, "flightdata.fetchWithRetry", "circuit breaker error", err)
	}
	return nil, false, lastErr
}

type requestResult struct {
	snapshot *FlightSnapshot
	notFound bool
}

func (c *Client) doRequest(ctx context.Context, flightNumber, departureDate string) (requestResult, error) {
	depDate, err := time.Parse("2006-01-02", departureDate)
	if err != nil {
		return requestResult{}, apperr.New(apperr.Validation, "flightdata.doRequest", "invalid departure date", err)
	}
	endDate := depDate.Add(24 * time.Hour).Format("2006-01-02")

	reqURL := fmt.Sprintf("%s/flights/%s?%s", c.cfg.BaseURL, url.PathEscape(flightNumber), url.Values{
		"start":     {departureDate},
		"end":       {endDate},
		"max_pages": {"1"},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return requestResult{}, apperr.New(apperr.PermanentProvider, "flightdata.doRequest", "build request", err)
	}
	req.Header.Set("x-apikey", c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return requestResult{}, apperr.New(apperr.TransientProvider, "flightdata.doRequest", "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return requestResult{}, apperr.New(apperr.TransientProvider, "flightdata.doRequest", "read response body", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return requestResult{notFound: true}, nil
	case resp.StatusCode >= 500:
		return requestResult{}, apperr.New(apperr.TransientProvider, "flightdata.doRequest", fmt.Sprintf("provider returned %d", resp.StatusCode), nil)
	case resp.StatusCode >= 400:
		return requestResult{}, apperr.New(apperr.PermanentProvider, "flightdata.doRequest", fmt.Sprintf("provider returned %d", resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		return requestResult{}, apperr.New(apperr.TransientProvider, "flightdata.doRequest", fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	snapshot, err := parseResponse(body, flightNumber)
	if err != nil {
		return requestResult{}, apperr.New(apperr.PermanentProvider, "flightdata.doRequest", "parse response", err)
	}
	if snapshot == nil {
		return requestResult{notFound: true}, nil
	}
	return requestResult{snapshot: snapshot}, nil
}

// providerResponse mirrors the external flight-data provider's wire
// shape (field names kept as documented in spec.md §4.2 and the
// original aeroapi_client.py mapping).
type providerResponse struct {
	Flights []providerFlight `json:"flights"`
}

type providerFlight struct {
	Ident           string          `json:"ident"`
	Status          string          `json:"status"`
	EstimatedOut    *string         `json:"estimated_out"`
	ActualOut       *string         `json:"actual_out"`
	EstimatedOn     *string         `json:"estimated_on"`
	ActualOn        *string         `json:"actual_on"`
	GateOrigin      *string         `json:"gate_origin"`
	GateDestination *string         `json:"gate_destination"`
	DepartureDelay  int             `json:"departure_delay"`
	ArrivalDelay    int             `json:"arrival_delay"`
	Cancelled       bool            `json:"cancelled"`
	Diverted        bool            `json:"diverted"`
	ProgressPercent int             `json:"progress_percent"`
	AircraftType    *string         `json:"aircraft_type"`
	Origin          *providerAirport `json:"origin"`
	Destination     *providerAirport `json:"destination"`
}

type providerAirport struct {
	CodeIATA string `json:"code_iata"`
}

func parseTimePtr(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// parseResponse maps the provider wire format to the canonical
// FlightSnapshot, renaming estimated_on/actual_on to
// estimated_in/actual_in per spec.md §4.2.
func parseResponse(body []byte, flightNumber string) (*FlightSnapshot, error) {
	var resp providerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal provider response: %w", err)
	}
	if len(resp.Flights) == 0 {
		return nil, nil
	}
	f := resp.Flights[0]

	snapshot := &FlightSnapshot{
		FlightIdent:           valueOr(f.Ident, flightNumber),
		Status:                valueOr(f.Status, "Unknown"),
		EstimatedOut:          parseTimePtr(f.EstimatedOut),
		ActualOut:             parseTimePtr(f.ActualOut),
		EstimatedIn:           parseTimePtr(f.EstimatedOn),
		ActualIn:              parseTimePtr(f.ActualOn),
		GateOrigin:            strOrEmpty(f.GateOrigin),
		GateDestination:       strOrEmpty(f.GateDestination),
		DepartureDelayMinutes: f.DepartureDelay,
		ArrivalDelayMinutes:   f.ArrivalDelay,
		Cancelled:             f.Cancelled,
		Diverted:              f.Diverted,
		ProgressPercent:       f.ProgressPercent,
		AircraftType:          strOrEmpty(f.AircraftType),
		RawPayload:            string(body),
	}
	if f.Origin != nil {
		snapshot.OriginIATA = f.Origin.CodeIATA
	}
	if f.Destination != nil {
		snapshot.DestinationIATA = f.Destination.CodeIATA
	}
	return snapshot, nil
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
