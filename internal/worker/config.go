// Package worker runs the Firewatch background jobs: the gateway status
// monitor and the Pub/Sub job consumer that drives it.
package worker

import (
	"time"

	"github.com/firewatch/firewatch/internal/sensor"
)

// MonitorConfig holds configuration for the gateway status monitor.
type MonitorConfig struct {
	// Interval between scheduled sweeps.
	// Default: 30 seconds
	Interval time.Duration

	// Timeout bounds a single sweep, including publishing.
	// Default: 20 seconds
	Timeout time.Duration

	// PublishConcurrency is the number of events published in parallel.
	// Default: 4
	PublishConcurrency int

	// Inventory lists the gateways to aggregate. Empty means the default
	// Dagupan deployment.
	Inventory sensor.Inventory

	// DefaultGateway receives nodes whose readings name no gateway.
	// Default: sensor.DefaultGatewayID
	DefaultGateway string
}

// DefaultMonitorConfig returns the default monitor configuration.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:           30 * time.Second,
		Timeout:            20 * time.Second,
		PublishConcurrency: 4,
		Inventory:          sensor.DefaultInventory(),
		DefaultGateway:     sensor.DefaultGatewayID,
	}
}

func (c MonitorConfig) withDefaults() MonitorConfig {
	def := DefaultMonitorConfig()
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.PublishConcurrency <= 0 {
		c.PublishConcurrency = def.PublishConcurrency
	}
	if len(c.Inventory.Gateways) == 0 {
		c.Inventory = def.Inventory
	}
	if c.DefaultGateway == "" {
		c.DefaultGateway = def.DefaultGateway
	}
	return c
}
