package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/firewatch/firewatch/internal/api/models"
	"github.com/firewatch/firewatch/internal/geo"
	"github.com/firewatch/firewatch/internal/routing"
)

// Directions asks the API's directions proxy for a route. The proxy answers
// with [lon, lat] pairs which are flipped back into points here.
func (c *Client) Directions(ctx context.Context, start, end geo.Point) (*routing.Route, error) {
	payload, err := json.Marshal(models.RouteRequest{
		StartLat: &start.Lat,
		StartLng: &start.Lon,
		EndLat:   &end.Lat,
		EndLng:   &end.Lon,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding route request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/route", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Message:  "Failed to calculate route.",
			Err:      fmt.Errorf("%w: %w", routing.ErrProviderUnavailable, err),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, &routing.Error{
			Provider:   ProviderName,
			StatusCode: resp.StatusCode,
			Message:    routeErrorMessage(resp.StatusCode, body),
			Err:        routing.ErrUpstream,
		}
	}

	var out models.RouteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding route: %w", err)
	}

	path := make([]geo.Point, len(out.Path))
	for i, pair := range out.Path {
		path[i] = geo.Point{Lat: pair[1], Lon: pair[0]}
	}
	return &routing.Route{
		Path:            path,
		DistanceMeters:  out.Distance,
		DurationSeconds: out.Duration,
	}, nil
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// routeErrorMessage prefers the proxy's {"message"} field, then the raw body,
// then a generic message built from the status.
func routeErrorMessage(status int, body []byte) string {
	var msg models.MessageResponse
	if json.Unmarshal(body, &msg) == nil && msg.Message != "" {
		return msg.Message
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return "Error from routing service: " + http.StatusText(status)
}

var _ routing.Provider = (*Client)(nil)
