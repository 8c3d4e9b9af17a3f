// Package observerproto defines the read-only observer wire protocol,
// separate from the robot protocol. Observers see station state; they
// can never mutate it.
package observerproto

import (
	"swarmstation.dev/internal/protocol"
	"swarmstation.dev/internal/sim/grid"
	"swarmstation.dev/internal/sim/resource"
)

const Version = "0.1"

const (
	TypeSubscribe = "SUBSCRIBE"
	TypeState     = "STATE"
)

// Client -> Server. First message on the observer WS connection, and can
// be re-sent to change the cadence.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// Push a STATE frame every N station ticks. Clamped server-side.
	EveryTicks int `json:"every_ticks"`
}

// HTTP response for GET /observer/v1/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string        `json:"protocol_version"`
	StationID       string        `json:"station_id"`
	Tick            uint64        `json:"tick"`
	StationPos      grid.Position `json:"station_pos"`
	WorldParams     WorldParams   `json:"world_params"`
}

type WorldParams struct {
	TickRateHz int   `json:"tick_rate_hz"`
	Width      int   `json:"width"`
	Height     int   `json:"height"`
	Seed       int64 `json:"seed"`
}

// Server -> Client. Periodic station state.
type StateMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id"`

	Tick   uint64          `json:"tick"`
	Stock  resource.Bundle `json:"stock"`
	Robots []string        `json:"robots"`

	Energy   []protocol.ResourceEntry `json:"energy"`
	Minerals []protocol.ResourceEntry `json:"minerals"`
	Science  []protocol.ResourceEntry `json:"science"`

	QueueLen         int    `json:"queue_len"`
	KnownCells       int    `json:"known_cells"`
	KnowledgeVersion uint64 `json:"knowledge_version"`
}
