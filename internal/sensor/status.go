package sensor

import (
	"fmt"
	"time"
)

// RecencyWindow is how old a node's latest reading may be while still counting as active.
const RecencyWindow = 2 * time.Minute

// StatusAt classifies a reading taken at ts as seen from now.
func StatusAt(ts, now time.Time) Status {
	if now.Sub(ts) <= RecencyWindow {
		return StatusActive
	}
	return StatusInactive
}

// NodeFromReading derives a Node from its latest reading.
// Readings without a gateway are attached to defaultGateway.
func NodeFromReading(r Reading, now time.Time, defaultGateway string) Node {
	gatewayID := r.GatewayID
	if gatewayID == "" {
		gatewayID = defaultGateway
	}
	return Node{
		ID:          r.NodeID,
		Name:        fmt.Sprintf("Node %s", r.NodeID),
		Point:       r.Point,
		Status:      StatusAt(r.Timestamp, now),
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		GatewayID:   gatewayID,
		LastSeen:    r.Timestamp,
	}
}

// NodesFromReadings maps a latest-reading snapshot to nodes, preserving order.
func NodesFromReadings(readings []Reading, now time.Time, defaultGateway string) []Node {
	nodes := make([]Node, 0, len(readings))
	for _, r := range readings {
		nodes = append(nodes, NodeFromReading(r, now, defaultGateway))
	}
	return nodes
}

// AggregateStatus derives a gateway's status from its nodes.
// A gateway with no nodes is Active.
func AggregateStatus(nodes []Node) Status {
	active := 0
	for _, n := range nodes {
		if n.Status == StatusActive {
			active++
		}
	}
	return statusFromCounts(len(nodes), active)
}

func statusFromCounts(total, active int) Status {
	switch {
	case total == 0 || active == total:
		return StatusActive
	case active == 0:
		return StatusInactive
	default:
		return StatusPartial
	}
}

// GatewayStatus is a gateway together with the status derived from its nodes.
type GatewayStatus struct {
	Gateway
	Status      Status `json:"status"`
	NodeCount   int    `json:"nodeCount"`
	ActiveCount int    `json:"activeCount"`
}

// GatewayStatuses aggregates node status per gateway, in gateway order.
// Nodes pointing at unknown gateways are ignored.
func GatewayStatuses(gateways []Gateway, nodes []Node) []GatewayStatus {
	type counts struct{ total, active int }
	byGateway := make(map[string]*counts, len(gateways))
	for _, gw := range gateways {
		byGateway[gw.ID] = &counts{}
	}
	for _, n := range nodes {
		c, ok := byGateway[n.GatewayID]
		if !ok {
			continue
		}
		c.total++
		if n.Status == StatusActive {
			c.active++
		}
	}

	out := make([]GatewayStatus, 0, len(gateways))
	for _, gw := range gateways {
		c := byGateway[gw.ID]
		out = append(out, GatewayStatus{
			Gateway:     gw,
			Status:      statusFromCounts(c.total, c.active),
			NodeCount:   c.total,
			ActiveCount: c.active,
		})
	}
	return out
}
