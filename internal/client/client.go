// Package client talks to a running Firewatch API. It implements the reading,
// routing, geocoding and pin-store interfaces the dashboard consumes, so a
// dashboard session can run against a remote server.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/firewatch/firewatch/internal/api/models"
	"github.com/firewatch/firewatch/internal/geo"
	"github.com/firewatch/firewatch/internal/geocode"
	"github.com/firewatch/firewatch/internal/provider/resilience"
	"github.com/firewatch/firewatch/internal/sensor"
)

// ProviderName identifies the Firewatch API in the resilience registry.
const ProviderName = "firewatch-api"

// ErrUnexpectedStatus indicates the API answered with a status the client
// does not handle.
var ErrUnexpectedStatus = errors.New("unexpected API response")

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds configuration for the API client.
type Config struct {
	BaseURL string
	// HTTPClient serves request/response calls. Default: a single-attempt
	// resilience client.
	HTTPClient HTTPDoer
	// StreamClient serves the location event stream and must not carry a
	// response timeout. Default: an http.Client without timeout.
	StreamClient HTTPDoer
	Timeout      time.Duration
	Registry     *resilience.Registry
	// ReconnectInterval is the first delay before reopening a dropped event
	// stream. Default: 1 second.
	ReconnectInterval time.Duration
	Logger            zerolog.Logger
}

// Client is a Firewatch API client.
type Client struct {
	baseURL           string
	httpClient        HTTPDoer
	streamClient      HTTPDoer
	reconnectInterval time.Duration
	logger            zerolog.Logger
}

// New creates an API client.
func New(cfg Config) *Client {
	c := &Client{
		baseURL:           strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:        cfg.HTTPClient,
		streamClient:      cfg.StreamClient,
		reconnectInterval: cfg.ReconnectInterval,
		logger:            cfg.Logger.With().Str("component", "api_client").Logger(),
	}
	if c.httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		if cfg.Timeout > 0 {
			clientCfg.Timeout = cfg.Timeout
		}
		clientCfg.Registry = cfg.Registry
		c.httpClient = resilience.NewClient(clientCfg)
	}
	if c.streamClient == nil {
		c.streamClient = &http.Client{}
	}
	if c.reconnectInterval <= 0 {
		c.reconnectInterval = time.Second
	}
	return c
}

// LatestReadings fetches the node feed and maps it back to readings.
func (c *Client) LatestReadings(ctx context.Context) ([]sensor.Reading, error) {
	var nodes []models.Node
	if err := c.getJSON(ctx, "/api/nodes", &nodes); err != nil {
		return nil, err
	}

	readings := make([]sensor.Reading, 0, len(nodes))
	for _, n := range nodes {
		readings = append(readings, sensor.Reading{
			NodeID:      n.ID,
			Temperature: n.Temperature,
			Humidity:    n.Humidity,
			Point:       geo.Point{Lat: n.Lat, Lon: n.Lon},
			GatewayID:   n.GatewayID,
			Timestamp:   n.Timestamp.Time(),
		})
	}
	return readings, nil
}

// Search returns place suggestions for query.
func (c *Client) Search(ctx context.Context, query string) ([]geocode.Suggestion, error) {
	var out []models.Suggestion
	if err := c.getJSON(ctx, "/api/geocode?q="+url.QueryEscape(query), &out); err != nil {
		return nil, err
	}

	suggestions := make([]geocode.Suggestion, 0, len(out))
	for _, s := range out {
		suggestions = append(suggestions, geocode.Suggestion{
			PlaceID:     s.PlaceID,
			Point:       geo.Point{Lat: s.Lat, Lon: s.Lon},
			DisplayName: s.DisplayName,
		})
	}
	return suggestions, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	if body == nil {
		body = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != http.NoBody {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return problemError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// problemError turns a problem+json response into an error.
func problemError(resp *http.Response) error {
	var problem models.Problem
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(body, &problem) == nil && problem.Detail != "" {
		return fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, problem.Detail)
	}
	return fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, http.StatusText(resp.StatusCode))
}

var (
	_ sensor.ReadingSource = (*Client)(nil)
	_ geocode.Searcher     = (*Client)(nil)
)
