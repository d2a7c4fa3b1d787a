package geo

import (
	"github.com/paulmach/orb"
)

// Bounds is an axis-aligned latitude/longitude rectangle.
type Bounds struct {
	SouthWest Point `json:"southWest"`
	NorthEast Point `json:"northEast"`
}

// NewBounds builds bounds from two opposite corners in any order.
func NewBounds(a, b Point) Bounds {
	return boundsFromOrb(orb.MultiPoint{a.Orb(), b.Orb()}.Bound())
}

// BoundsOf returns the smallest bounds containing every point.
// The second return value is false when points is empty.
func BoundsOf(points []Point) (Bounds, bool) {
	if len(points) == 0 {
		return Bounds{}, false
	}
	mp := make(orb.MultiPoint, len(points))
	for i, p := range points {
		mp[i] = p.Orb()
	}
	return boundsFromOrb(mp.Bound()), true
}

// Contains reports whether p lies inside the bounds, edges included.
func (b Bounds) Contains(p Point) bool {
	return b.orb().Contains(p.Orb())
}

// Center returns the midpoint of the bounds.
func (b Bounds) Center() Point {
	return FromOrb(b.orb().Center())
}

// Extend returns bounds grown to include p.
func (b Bounds) Extend(p Point) Bounds {
	return boundsFromOrb(b.orb().Extend(p.Orb()))
}

func (b Bounds) orb() orb.Bound {
	return orb.Bound{Min: b.SouthWest.Orb(), Max: b.NorthEast.Orb()}
}

func boundsFromOrb(ob orb.Bound) Bounds {
	return Bounds{SouthWest: FromOrb(ob.Min), NorthEast: FromOrb(ob.Max)}
}
