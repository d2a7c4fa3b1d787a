package dashboard

import (
	"math"
	"sync"

	"github.com/firewatch/firewatch/internal/geo"
)

// Zoom levels used by programmatic camera moves.
const (
	DefaultZoom    = 13
	MinZoom        = 0
	MaxZoom        = 18
	SuggestionZoom = 15
	FocusZoom      = 16

	// RouteFitPadding is the pixel padding kept around a fitted route.
	RouteFitPadding = 50

	tileSize      = 256
	maxMercator   = 85.0511287798
	defaultWidth  = 1024
	defaultHeight = 768
)

// DefaultCenter is the initial map center over Dagupan.
var DefaultCenter = geo.Point{Lat: 16.0471, Lon: 120.3344}

// ViewportState is a snapshot of the viewport.
type ViewportState struct {
	Center geo.Point   `json:"center"`
	Zoom   int         `json:"zoom"`
	Bounds *geo.Bounds `json:"bounds,omitempty"`
}

// Viewport holds the map camera. Any component may move the camera; only the
// map surface reports visible bounds through SetBounds.
type Viewport struct {
	mu     sync.Mutex
	center geo.Point
	zoom   int
	bounds *geo.Bounds
	width  int
	height int
}

// NewViewport creates a viewport of the given pixel size centered on
// DefaultCenter. Non-positive sizes fall back to 1024x768.
func NewViewport(width, height int) *Viewport {
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}
	return &Viewport{
		center: DefaultCenter,
		zoom:   DefaultZoom,
		width:  width,
		height: height,
	}
}

// State returns the current viewport snapshot.
func (v *Viewport) State() ViewportState {
	v.mu.Lock()
	defer v.mu.Unlock()

	s := ViewportState{Center: v.center, Zoom: v.zoom}
	if v.bounds != nil {
		b := *v.bounds
		s.Bounds = &b
	}
	return s
}

// SetCenter moves the camera without changing zoom.
func (v *Viewport) SetCenter(p geo.Point) {
	v.mu.Lock()
	v.center = p
	v.mu.Unlock()
}

// SetZoom changes the zoom level, clamped to [MinZoom, MaxZoom].
func (v *Viewport) SetZoom(z int) {
	v.mu.Lock()
	v.zoom = clampZoom(z)
	v.mu.Unlock()
}

// SetBounds records the bounds currently visible on the map surface.
func (v *Viewport) SetBounds(b geo.Bounds) {
	v.mu.Lock()
	v.bounds = &b
	v.mu.Unlock()
}

// Bounds returns the last reported visible bounds, or nil if none is known yet.
func (v *Viewport) Bounds() *geo.Bounds {
	return v.State().Bounds
}

// FlyTo centers the camera on p at zoom z.
func (v *Viewport) FlyTo(p geo.Point, z int) {
	v.mu.Lock()
	v.center = p
	v.zoom = clampZoom(z)
	v.mu.Unlock()
}

// FitBounds centers the camera on b at the largest zoom where b fits inside
// the viewport minus padding pixels on every side.
func (v *Viewport) FitBounds(b geo.Bounds, padding int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	x1, y1 := project(b.SouthWest)
	x2, y2 := project(b.NorthEast)

	availW := float64(v.width - 2*padding)
	availH := float64(v.height - 2*padding)
	if availW < 1 {
		availW = 1
	}
	if availH < 1 {
		availH = 1
	}

	zoom := MinZoom
	for z := MaxZoom; z >= MinZoom; z-- {
		scale := tileSize * math.Exp2(float64(z))
		if math.Abs(x2-x1)*scale <= availW && math.Abs(y1-y2)*scale <= availH {
			zoom = z
			break
		}
	}

	v.center = unproject((x1+x2)/2, (y1+y2)/2)
	v.zoom = zoom
}

func clampZoom(z int) int {
	if z < MinZoom {
		return MinZoom
	}
	if z > MaxZoom {
		return MaxZoom
	}
	return z
}

// project maps p to Web Mercator world coordinates in [0,1].
func project(p geo.Point) (x, y float64) {
	lat := math.Max(-maxMercator, math.Min(maxMercator, p.Lat))
	phi := lat * math.Pi / 180
	x = (p.Lon + 180) / 360
	y = (1 - math.Log(math.Tan(phi)+1/math.Cos(phi))/math.Pi) / 2
	return x, y
}

func unproject(x, y float64) geo.Point {
	lon := x*360 - 180
	lat := math.Atan(math.Sinh(math.Pi*(1-2*y))) * 180 / math.Pi
	return geo.Point{Lat: lat, Lon: lon}
}
