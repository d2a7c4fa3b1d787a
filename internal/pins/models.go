// Package pins stores user-saved map locations and notifies watchers when the
// collection changes.
package pins

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/firewatch/firewatch/internal/geo"
)

// Sentinel errors for pin operations.
var (
	ErrNotFound     = errors.New("location not found")
	ErrNameRequired = errors.New("location name is required")
)

// Location is a named point saved by a user.
type Location struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Point       geo.Point `json:"point"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Validate normalizes the name and checks required fields.
func (l *Location) Validate() error {
	l.Name = strings.TrimSpace(l.Name)
	l.Description = strings.TrimSpace(l.Description)
	if l.Name == "" {
		return ErrNameRequired
	}
	return l.Point.Validate()
}

// Store is the remote collection of saved locations.
type Store interface {
	// List returns every location ordered by name.
	List(ctx context.Context) ([]Location, error)
	// Add stores a new location and returns it with its assigned id.
	Add(ctx context.Context, loc Location) (Location, error)
	// Remove deletes a location by id.
	Remove(ctx context.Context, id string) error
	// Watch returns a channel that receives a value after every change to the
	// collection. The channel is closed when ctx is done.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
