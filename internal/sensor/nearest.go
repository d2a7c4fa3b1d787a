package sensor

import (
	"github.com/firewatch/firewatch/internal/geo"
)

// NearestGateway returns the gateway closest to target using planar lat/lon
// distance. Ties go to the earliest gateway in the list. The second return
// value is false when gateways is empty.
//
// Planar distance is accurate enough inside a single city. Switch to
// geo.HaversineMeters if gateways ever span a wider region.
func NearestGateway(target geo.Point, gateways []Gateway) (Gateway, bool) {
	if len(gateways) == 0 {
		return Gateway{}, false
	}

	best := 0
	bestDist := geo.PlanarDistanceSq(target, gateways[0].Point)
	for i := 1; i < len(gateways); i++ {
		d := geo.PlanarDistanceSq(target, gateways[i].Point)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return gateways[best], true
}

// NearestOrigin returns the point of the nearest gateway, or DefaultOrigin
// when there are no gateways.
func NearestOrigin(target geo.Point, gateways []Gateway) geo.Point {
	gw, ok := NearestGateway(target, gateways)
	if !ok {
		return DefaultOrigin
	}
	return gw.Point
}
