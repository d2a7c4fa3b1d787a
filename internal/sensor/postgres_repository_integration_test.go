package sensor_test

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firewatch/firewatch/internal/geo"
	"github.com/firewatch/firewatch/internal/sensor"
)

func requireTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres integration test")
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	// Temp tables are per connection.
	cfg.MaxConns = 1

	pool, err := pgxpool.NewWithConfig(t.Context(), cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(t.Context(), `
		CREATE TEMP TABLE node_data (
			node_id TEXT NOT NULL,
			temp DOUBLE PRECISION NOT NULL,
			humidity DOUBLE PRECISION NOT NULL,
			lat DOUBLE PRECISION NOT NULL,
			lon DOUBLE PRECISION NOT NULL,
			gateway_id TEXT,
			recorded_at TIMESTAMPTZ NOT NULL
		)`)
	require.NoError(t, err)

	return pool
}

func TestPostgresRepository_LatestReadings(t *testing.T) {
	pool := requireTestPool(t)
	repo := sensor.NewPostgresRepository(pool)

	base := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.Insert(t.Context(), sensor.Reading{NodeID: "7", Temperature: 30, Point: geo.Point{Lat: 16.04, Lon: 120.33}, Timestamp: base.Add(-time.Minute)}))
	require.NoError(t, repo.Insert(t.Context(), sensor.Reading{NodeID: "7", Temperature: 33, Point: geo.Point{Lat: 16.04, Lon: 120.33}, Timestamp: base}))
	require.NoError(t, repo.Insert(t.Context(), sensor.Reading{NodeID: "3", Temperature: 28, GatewayID: "GW-B", Point: geo.Point{Lat: 16.05, Lon: 120.34}, Timestamp: base}))

	readings, err := repo.LatestReadings(t.Context())
	require.NoError(t, err)
	require.Len(t, readings, 2)

	assert.Equal(t, "3", readings[0].NodeID)
	assert.Equal(t, "GW-B", readings[0].GatewayID)
	assert.Equal(t, "7", readings[1].NodeID)
	assert.Equal(t, 33.0, readings[1].Temperature)
	assert.Empty(t, readings[1].GatewayID)
}
