package sensor

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository reads node readings from the node_data table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL reading repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// LatestReadings returns the most recent row of every node.
func (r *PostgresRepository) LatestReadings(ctx context.Context) ([]Reading, error) {
	query := `
		SELECT DISTINCT ON (node_id)
			node_id, temp, humidity, lat, lon,
			COALESCE(gateway_id, ''), recorded_at
		FROM node_data
		ORDER BY node_id, recorded_at DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query latest readings: %w", err)
	}
	defer rows.Close()

	var readings []Reading
	for rows.Next() {
		var rd Reading
		if err := rows.Scan(
			&rd.NodeID,
			&rd.Temperature,
			&rd.Humidity,
			&rd.Point.Lat,
			&rd.Point.Lon,
			&rd.GatewayID,
			&rd.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		readings = append(readings, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate readings: %w", err)
	}

	return readings, nil
}

// Insert stores a reading.
func (r *PostgresRepository) Insert(ctx context.Context, rd Reading) error {
	query := `
		INSERT INTO node_data (node_id, temp, humidity, lat, lon, gateway_id, recorded_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
	`
	_, err := r.pool.Exec(ctx, query,
		rd.NodeID, rd.Temperature, rd.Humidity, rd.Point.Lat, rd.Point.Lon, rd.GatewayID, rd.Timestamp)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

var _ ReadingSource = (*PostgresRepository)(nil)
