package sensor_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firewatch/firewatch/internal/geo"
	"github.com/firewatch/firewatch/internal/sensor"
)

func TestNearestGateway(t *testing.T) {
	gateways := []sensor.Gateway{
		{ID: "north", Point: geo.Point{Lat: 16.08, Lon: 120.35}},
		{ID: "south", Point: geo.Point{Lat: 16.02, Lon: 120.34}},
		{ID: "west", Point: geo.Point{Lat: 16.05, Lon: 120.30}},
	}

	gw, ok := sensor.NearestGateway(geo.Point{Lat: 16.03, Lon: 120.34}, gateways)
	require.True(t, ok)
	assert.Equal(t, "south", gw.ID)

	gw, ok = sensor.NearestGateway(geo.Point{Lat: 16.05, Lon: 120.29}, gateways)
	require.True(t, ok)
	assert.Equal(t, "west", gw.ID)
}

func TestNearestGateway_TieGoesToFirst(t *testing.T) {
	gateways := []sensor.Gateway{
		{ID: "first", Point: geo.Point{Lat: 16.0, Lon: 120.0}},
		{ID: "second", Point: geo.Point{Lat: 16.2, Lon: 120.0}},
	}

	gw, ok := sensor.NearestGateway(geo.Point{Lat: 16.1, Lon: 120.0}, gateways)
	require.True(t, ok)
	assert.Equal(t, "first", gw.ID)
}

func TestNearestGateway_MinimizesSquaredDistance(t *testing.T) {
	gateways := []sensor.Gateway{
		{ID: "a", Point: geo.Point{Lat: 16.00, Lon: 120.00}},
		{ID: "b", Point: geo.Point{Lat: 16.10, Lon: 120.05}},
		{ID: "c", Point: geo.Point{Lat: 15.95, Lon: 120.40}},
		{ID: "d", Point: geo.Point{Lat: 16.30, Lon: 120.30}},
	}
	targets := []geo.Point{
		{Lat: 16.0, Lon: 120.3}, {Lat: 16.2, Lon: 120.2}, {Lat: 15.9, Lon: 120.0}, {Lat: 16.05, Lon: 120.05},
	}

	for _, target := range targets {
		gw, ok := sensor.NearestGateway(target, gateways)
		require.True(t, ok)
		got := geo.PlanarDistanceSq(target, gw.Point)
		for _, other := range gateways {
			assert.LessOrEqual(t, got, geo.PlanarDistanceSq(target, other.Point))
		}
	}
}

func TestNearestOrigin_EmptyFallsBackToDefault(t *testing.T) {
	origin := sensor.NearestOrigin(geo.Point{Lat: 16.1, Lon: 120.4}, nil)
	assert.Equal(t, sensor.DefaultOrigin, origin)
}

func TestVisibleGateways(t *testing.T) {
	gateways := []sensor.Gateway{
		{ID: "in", Point: geo.Point{Lat: 16.05, Lon: 120.34}},
		{ID: "out", Point: geo.Point{Lat: 15.00, Lon: 120.34}},
	}

	assert.Len(t, sensor.VisibleGateways(gateways, nil), 2)

	bounds := geo.NewBounds(geo.Point{Lat: 16.0, Lon: 120.3}, geo.Point{Lat: 16.1, Lon: 120.4})
	visible := sensor.VisibleGateways(gateways, &bounds)
	require.Len(t, visible, 1)
	assert.Equal(t, "in", visible[0].ID)
}

func TestLoadInventory(t *testing.T) {
	inv, err := sensor.LoadInventory("")
	require.NoError(t, err)
	require.Len(t, inv.Gateways, 1)
	assert.Equal(t, sensor.DefaultGatewayID, inv.Gateways[0].ID)
	assert.Len(t, inv.Incidents, 5)

	path := filepath.Join(t.TempDir(), "network.yaml")
	content := `
gateways:
  - id: GW-DAG
    name: Dagupan Headquarters
    point: {lat: 16.046882, lon: 120.341154}
  - id: GW-BON
    name: Bonuan Substation
    point: {lat: 16.075, lon: 120.357}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	inv, err = sensor.LoadInventory(path)
	require.NoError(t, err)
	require.Len(t, inv.Gateways, 2)
	assert.Equal(t, "Bonuan Substation", inv.Gateways[1].Name)
	assert.InDelta(t, 16.075, inv.Gateways[1].Point.Lat, 1e-9)
	assert.Len(t, inv.Incidents, 5, "incidents keep their defaults")
}

func TestLoadInventory_RejectsBadCoordinates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "network.yaml")
	content := `
gateways:
  - id: GW-X
    name: Broken
    point: {lat: 120.3, lon: 16.0}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := sensor.LoadInventory(path)
	assert.ErrorIs(t, err, geo.ErrInvalidCoordinates)
}
