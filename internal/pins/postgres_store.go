package pins

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// ChangeChannel is the LISTEN/NOTIFY channel raised by the locations trigger.
const ChangeChannel = "locations_changed"

// PostgresStore is a PostgreSQL implementation of Store. Change notifications
// come from a trigger on the locations table (see migrations).
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresStore creates a new PostgreSQL location store.
func NewPostgresStore(pool *pgxpool.Pool, logger zerolog.Logger) *PostgresStore {
	return &PostgresStore{
		pool:   pool,
		logger: logger.With().Str("component", "pins.postgres").Logger(),
	}
}

// List returns every location ordered by name.
func (s *PostgresStore) List(ctx context.Context) ([]Location, error) {
	query := `
		SELECT id, name, description, latitude, longitude, created_at
		FROM locations
		ORDER BY name, id
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query locations: %w", err)
	}
	defer rows.Close()

	locations := []Location{}
	for rows.Next() {
		var loc Location
		if err := rows.Scan(
			&loc.ID,
			&loc.Name,
			&loc.Description,
			&loc.Point.Lat,
			&loc.Point.Lon,
			&loc.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		locations = append(locations, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate locations: %w", err)
	}
	return locations, nil
}

// Add inserts a location.
func (s *PostgresStore) Add(ctx context.Context, loc Location) (Location, error) {
	if err := loc.Validate(); err != nil {
		return Location{}, err
	}
	loc.ID = uuid.NewString()

	query := `
		INSERT INTO locations (id, name, description, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := s.pool.QueryRow(ctx, query,
		loc.ID, loc.Name, loc.Description, loc.Point.Lat, loc.Point.Lon,
	).Scan(&loc.CreatedAt)
	if err != nil {
		return Location{}, fmt.Errorf("insert location: %w", err)
	}
	return loc, nil
}

// Remove deletes a location.
func (s *PostgresStore) Remove(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM locations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete location: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Watch holds a dedicated connection listening on ChangeChannel until ctx is done.
func (s *PostgresStore) Watch(ctx context.Context) (<-chan struct{}, error) {
	pooled, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listen connection: %w", err)
	}
	conn := pooled.Hijack()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{ChangeChannel}.Sanitize()); err != nil {
		_ = conn.Close(context.Background())
		return nil, fmt.Errorf("listen %s: %w", ChangeChannel, err)
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = conn.Close(closeCtx)
		}()

		for {
			if _, err := conn.WaitForNotification(ctx); err != nil {
				if !errors.Is(ctx.Err(), context.Canceled) && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
					s.logger.Error().Err(err).Msg("location change listener stopped")
				}
				return
			}
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}()

	return ch, nil
}

var _ Store = (*PostgresStore)(nil)
