// Package openrouteservice provides a client for the OpenRouteService driving directions API.
package openrouteservice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"

	"github.com/firewatch/firewatch/internal/geo"
	"github.com/firewatch/firewatch/internal/provider/resilience"
	"github.com/firewatch/firewatch/internal/routing"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "openrouteservice"

	// DefaultBaseURL is the OpenRouteService API base URL.
	DefaultBaseURL = "https://api.openrouteservice.org"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	// placeholderKey is the value shipped in sample env files.
	placeholderKey = "YOUR_ORS_API_KEY_HERE"

	// maxErrorBody caps how much of an upstream error body is echoed back.
	maxErrorBody = 512
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the OpenRouteService client.
type ClientConfig struct {
	// APIKey is the ORS API key. A missing key is reported per request, not at startup.
	APIKey string

	// BaseURL is the API base URL (optional, defaults to ORS API).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a single-attempt resilience client.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// BreakerEnabled lets the client's circuit breaker open after repeated failures.
	BreakerEnabled bool

	Logger zerolog.Logger
}

// Client is an OpenRouteService API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new OpenRouteService client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		clientCfg.Registry = cfg.Registry
		if cfg.BreakerEnabled {
			cb := resilience.TrippingBreakerConfig(ProviderName)
			clientCfg.CircuitBreaker = &cb
		}
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger.With().Str("provider", ProviderName).Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Configured reports whether a usable API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.apiKey != placeholderKey
}

// Directions requests a driving route from start to end.
func (c *Client) Directions(ctx context.Context, start, end geo.Point) (*routing.Route, error) {
	if !c.Configured() {
		return nil, &routing.Error{
			Provider:   ProviderName,
			StatusCode: http.StatusInternalServerError,
			Message:    "ORS API key is not configured on the server. Please set ORS_API_KEY in the environment or env file.",
			Err:        routing.ErrMissingAPIKey,
		}
	}
	if err := start.Validate(); err != nil {
		return nil, invalidPoint("start")
	}
	if err := end.Validate(); err != nil {
		return nil, invalidPoint("end")
	}

	// ORS takes "lon,lat" pairs.
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("start", lonLat(start))
	q.Set("end", lonLat(end))
	reqURL := c.baseURL + "/v2/directions/driving-car?" + q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json, application/geo+json")

	c.logger.Debug().
		Float64("start_lat", start.Lat).
		Float64("start_lon", start.Lon).
		Float64("end_lat", end.Lat).
		Float64("end_lon", end.Lon).
		Msg("requesting directions")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn().Err(err).Msg("routing provider unreachable")
		return nil, &routing.Error{
			Provider:   ProviderName,
			StatusCode: http.StatusBadGateway,
			Message:    "failed to reach routing service",
			Err:        routing.ErrProviderUnavailable,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("body", truncate(string(body), maxErrorBody)).
			Msg("routing provider returned an error")
		return nil, upstreamError(resp.StatusCode, body)
	}

	route, err := parseRoute(body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int("points", len(route.Path)).
		Float64("distance_m", route.DistanceMeters).
		Msg("received directions")

	return route, nil
}

// upstreamError maps a non-2xx ORS response to a routing.Error carrying the
// same status. The message comes from the JSON body when it has one.
func upstreamError(status int, body []byte) error {
	var message string

	var orsErr orsErrorResponse
	if err := json.Unmarshal(body, &orsErr); err == nil {
		message = orsErr.message()
		if message == "" {
			message = "Error from routing service: " + http.StatusText(status)
		}
	} else {
		message = "Error from routing service: " + truncate(strings.TrimSpace(string(body)), maxErrorBody)
	}

	return &routing.Error{
		Provider:   ProviderName,
		StatusCode: status,
		Message:    message,
		Err:        routing.ErrUpstream,
	}
}

// parseRoute reads the first feature of a GeoJSON directions response.
func parseRoute(body []byte) (*routing.Route, error) {
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(fc.Features) == 0 {
		return nil, &routing.Error{
			Provider:   ProviderName,
			StatusCode: http.StatusNotFound,
			Message:    "No route found.",
			Err:        routing.ErrNoRouteFound,
		}
	}

	feature := fc.Features[0]
	line, ok := feature.Geometry.(orb.LineString)
	if !ok {
		return nil, fmt.Errorf("decoding response: unexpected geometry %T", feature.Geometry)
	}

	path := make([]geo.Point, len(line))
	for i, p := range line {
		path[i] = geo.FromOrb(p)
	}

	var summary routeSummary
	if raw, ok := feature.Properties["summary"]; ok {
		// Properties are decoded generically; round-trip the member into its struct.
		b, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding summary: %w", err)
		}
		if err := json.Unmarshal(b, &summary); err != nil {
			return nil, fmt.Errorf("decoding summary: %w", err)
		}
	}

	return &routing.Route{
		Path:            path,
		DistanceMeters:  summary.Distance,
		DurationSeconds: summary.Duration,
	}, nil
}

func invalidPoint(which string) error {
	return &routing.Error{
		Provider:   ProviderName,
		StatusCode: http.StatusBadRequest,
		Message:    "invalid " + which + " coordinates",
		Err:        routing.ErrInvalidCoordinates,
	}
}

func lonLat(p geo.Point) string {
	return strconv.FormatFloat(p.Lon, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lat, 'f', -1, 64)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

var _ routing.Provider = (*Client)(nil)
