package sensor

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/firewatch/firewatch/internal/geo"
)

// Inventory is the static part of the network: gateways and known incidents.
type Inventory struct {
	Gateways  []Gateway  `yaml:"gateways"`
	Incidents []Incident `yaml:"incidents"`
}

// DefaultInventory returns the Dagupan deployment.
func DefaultInventory() Inventory {
	return Inventory{
		Gateways: []Gateway{
			{ID: DefaultGatewayID, Name: "Dagupan Headquarters", Point: DefaultOrigin},
		},
		Incidents: []Incident{
			{ID: "INC-001", Name: "A.B. Fernandez Ave", Status: IncidentActive, Barangay: "Pantal", Point: geo.Point{Lat: 16.041, Lon: 120.334}},
			{ID: "INC-002", Name: "Perez Boulevard", Status: IncidentContained, Barangay: "Calmay", Point: geo.Point{Lat: 16.046, Lon: 120.328}},
			{ID: "INC-003", Name: "Tapestry (Bonuan)", Status: IncidentResolved, Barangay: "Bonuan", Point: geo.Point{Lat: 16.077, Lon: 120.354}},
			{ID: "INC-004", Name: "Malued District", Status: IncidentActive, Barangay: "Pantal", Point: geo.Point{Lat: 16.035, Lon: 120.345}},
			{ID: "INC-006", Name: "Bonuan Gueset", Status: IncidentActive, Barangay: "Bonuan", Point: geo.Point{Lat: 16.072, Lon: 120.362}},
		},
	}
}

// LoadInventory reads an inventory from a YAML file. An empty path yields
// DefaultInventory. Sections missing from the file keep their defaults.
func LoadInventory(path string) (Inventory, error) {
	inv := DefaultInventory()
	if path == "" {
		return inv, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Inventory{}, fmt.Errorf("read inventory: %w", err)
	}

	var file Inventory
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Inventory{}, fmt.Errorf("parse inventory: %w", err)
	}
	if file.Gateways != nil {
		inv.Gateways = file.Gateways
	}
	if file.Incidents != nil {
		inv.Incidents = file.Incidents
	}

	if err := inv.Validate(); err != nil {
		return Inventory{}, err
	}
	return inv, nil
}

// Validate checks ids and coordinates.
func (inv Inventory) Validate() error {
	seen := make(map[string]bool, len(inv.Gateways))
	for _, gw := range inv.Gateways {
		if gw.ID == "" {
			return fmt.Errorf("gateway %q: id is required", gw.Name)
		}
		if seen[gw.ID] {
			return fmt.Errorf("gateway %s: duplicate id", gw.ID)
		}
		seen[gw.ID] = true
		if err := gw.Point.Validate(); err != nil {
			return fmt.Errorf("gateway %s: %w", gw.ID, err)
		}
	}
	for _, inc := range inv.Incidents {
		if err := inc.Point.Validate(); err != nil {
			return fmt.Errorf("incident %s: %w", inc.ID, err)
		}
	}
	return nil
}

// VisibleGateways returns the gateways inside bounds. A nil bounds means the
// viewport is not known yet and every gateway is visible.
func VisibleGateways(gateways []Gateway, bounds *geo.Bounds) []Gateway {
	if bounds == nil {
		return gateways
	}
	out := make([]Gateway, 0, len(gateways))
	for _, gw := range gateways {
		if bounds.Contains(gw.Point) {
			out = append(out, gw)
		}
	}
	return out
}
