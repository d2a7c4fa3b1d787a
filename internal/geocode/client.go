// Package geocode looks up place suggestions for free-text queries using a
// Nominatim-compatible search API.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/firewatch/firewatch/internal/geo"
	"github.com/firewatch/firewatch/internal/provider/resilience"
)

const (
	// ProviderName identifies this geocoding provider.
	ProviderName = "nominatim"

	// DefaultBaseURL is the public Nominatim instance.
	DefaultBaseURL = "https://nominatim.openstreetmap.org"

	// DefaultCountryCodes restricts results to the Philippines.
	DefaultCountryCodes = "ph"

	// DefaultLimit caps suggestions per query.
	DefaultLimit = 5

	// MinQueryLength is the shortest query sent upstream.
	MinQueryLength = 3

	defaultUserAgent = "firewatch-dashboard/1.0"
)

// ErrUpstream indicates the geocoder answered with a non-success status.
var ErrUpstream = errors.New("geocoding provider returned an error")

// Suggestion is a candidate place for a query.
type Suggestion struct {
	PlaceID     int64     `json:"placeId"`
	Point       geo.Point `json:"point"`
	DisplayName string    `json:"displayName"`
}

// Searcher resolves a query to suggestions.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Suggestion, error)
}

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Nominatim client.
type ClientConfig struct {
	BaseURL      string
	CountryCodes string
	Limit        int
	// UserAgent is required by the Nominatim usage policy.
	UserAgent  string
	HTTPClient HTTPDoer
	Timeout    time.Duration
	Registry   *resilience.Registry
	// BreakerEnabled lets the client's circuit breaker open after repeated failures.
	BreakerEnabled bool
	Logger         zerolog.Logger
}

// Client is a Nominatim search client.
type Client struct {
	baseURL      string
	countryCodes string
	limit        int
	userAgent    string
	httpClient   HTTPDoer
	logger       zerolog.Logger
}

// NewClient creates a new Nominatim client.
func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		countryCodes: cfg.CountryCodes,
		limit:        cfg.Limit,
		userAgent:    cfg.UserAgent,
		httpClient:   cfg.HTTPClient,
		logger:       cfg.Logger.With().Str("provider", ProviderName).Logger(),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.countryCodes == "" {
		c.countryCodes = DefaultCountryCodes
	}
	if c.limit <= 0 {
		c.limit = DefaultLimit
	}
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}
	if c.httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		if cfg.Timeout > 0 {
			clientCfg.Timeout = cfg.Timeout
		}
		clientCfg.Registry = cfg.Registry
		if cfg.BreakerEnabled {
			cb := resilience.TrippingBreakerConfig(ProviderName)
			clientCfg.CircuitBreaker = &cb
		}
		c.httpClient = resilience.NewClient(clientCfg)
	}
	return c
}

// nominatimPlace is one entry of the search response. Coordinates arrive as strings.
type nominatimPlace struct {
	PlaceID     int64  `json:"place_id"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Search returns up to the configured limit of suggestions for query.
// Queries shorter than MinQueryLength return an empty list without a request.
func (c *Client) Search(ctx context.Context, query string) ([]Suggestion, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLength {
		return []Suggestion{}, nil
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("countrycodes", c.countryCodes)
	q.Set("limit", strconv.Itoa(c.limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	suggestions := make([]Suggestion, 0, len(places))
	for _, p := range places {
		lat, latErr := strconv.ParseFloat(p.Lat, 64)
		lon, lonErr := strconv.ParseFloat(p.Lon, 64)
		if latErr != nil || lonErr != nil {
			c.logger.Debug().Int64("place_id", p.PlaceID).Msg("skipping place with unparsable coordinates")
			continue
		}
		suggestions = append(suggestions, Suggestion{
			PlaceID:     p.PlaceID,
			Point:       geo.Point{Lat: lat, Lon: lon},
			DisplayName: p.DisplayName,
		})
		if len(suggestions) == c.limit {
			break
		}
	}

	return suggestions, nil
}

var _ Searcher = (*Client)(nil)
