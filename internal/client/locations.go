package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/firewatch/firewatch/internal/api/models"
	"github.com/firewatch/firewatch/internal/geo"
	"github.com/firewatch/firewatch/internal/pins"
)

const (
	locationsPath = "/api/locations"
	eventsPath    = "/api/locations/events"
	changeEvent   = "change"
)

// List returns every saved location ordered by name.
func (c *Client) List(ctx context.Context) ([]pins.Location, error) {
	var out models.LocationList
	if err := c.getJSON(ctx, locationsPath, &out); err != nil {
		return nil, err
	}

	locs := make([]pins.Location, 0, len(out.Items))
	for _, item := range out.Items {
		locs = append(locs, fromModel(item))
	}
	return locs, nil
}

// Add saves loc and returns it with its server-assigned id.
func (c *Client) Add(ctx context.Context, loc pins.Location) (pins.Location, error) {
	if err := loc.Validate(); err != nil {
		return pins.Location{}, err
	}

	payload, err := json.Marshal(models.CreateLocationRequest{
		Name:        loc.Name,
		Description: loc.Description,
		Latitude:    &loc.Point.Lat,
		Longitude:   &loc.Point.Lon,
	})
	if err != nil {
		return pins.Location{}, fmt.Errorf("encoding location: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, locationsPath, bytes.NewReader(payload))
	if err != nil {
		return pins.Location{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pins.Location{}, fmt.Errorf("POST %s: %w", locationsPath, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
	case http.StatusBadRequest:
		return pins.Location{}, validationError(resp)
	default:
		return pins.Location{}, problemError(resp)
	}

	var created models.Location
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return pins.Location{}, fmt.Errorf("decoding location: %w", err)
	}
	return fromModel(created), nil
}

// Remove deletes the location with the given id.
func (c *Client) Remove(ctx context.Context, id string) error {
	path := locationsPath + "/" + url.PathEscape(id)
	req, err := c.newRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("DELETE %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK:
		return nil
	case http.StatusNotFound:
		return pins.ErrNotFound
	default:
		return problemError(resp)
	}
}

// Watch subscribes to the location event stream. The returned channel
// receives a value after every change event and after every reconnect, since
// changes may have been missed while disconnected. It is closed when ctx is
// done.
func (c *Client) Watch(ctx context.Context) (<-chan struct{}, error) {
	body, err := c.openStream(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		for {
			err := readEvents(body, func() { signal(out) })
			body.Close()
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn().Err(err).Msg("location event stream interrupted, reconnecting")

			body, err = c.reconnect(ctx)
			if err != nil {
				return
			}
			signal(out)
		}
	}()
	return out, nil
}

func (c *Client) openStream(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+eventsPath, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", eventsPath, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, problemError(resp)
	}
	return resp.Body, nil
}

// reconnect reopens the event stream with exponential backoff until it
// succeeds or ctx is done.
func (c *Client) reconnect(ctx context.Context) (io.ReadCloser, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.reconnectInterval
	bo.MaxInterval = 30 * c.reconnectInterval
	bo.MaxElapsedTime = 0

	var body io.ReadCloser
	err := backoff.RetryNotify(func() error {
		b, err := c.openStream(ctx)
		if err != nil {
			return err
		}
		body = b
		return nil
	}, backoff.WithContext(bo, ctx), func(err error, next time.Duration) {
		c.logger.Debug().Err(err).Dur("retry_in", next).Msg("event stream reconnect failed")
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// readEvents parses a text/event-stream body and calls onChange for every
// dispatched "change" event. Comment lines are ignored.
func readEvents(r io.Reader, onChange func()) error {
	scanner := bufio.NewScanner(r)
	var event string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if event == changeEvent {
				onChange()
			}
			event = ""
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return io.EOF
}

// signal performs a non-blocking send; a pending signal already covers the change.
func signal(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// validationError maps field errors of a 400 response onto pin sentinels.
func validationError(resp *http.Response) error {
	var problem models.Problem
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&problem); err != nil {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	for _, fe := range problem.Errors {
		switch fe.Field {
		case "name":
			return pins.ErrNameRequired
		case "latitude", "longitude":
			return geo.ErrInvalidCoordinates
		}
	}
	return fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, problem.Detail)
}

func fromModel(m models.Location) pins.Location {
	return pins.Location{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Point:       geo.Point{Lat: m.Latitude, Lon: m.Longitude},
		CreatedAt:   m.CreatedAt.Time(),
	}
}

var _ pins.Store = (*Client)(nil)
