package protocol

import (
	"swarmstation.dev/internal/sim/grid"
	"swarmstation.dev/internal/sim/resource"
)

// Report is the closed set of robot -> station messages.
type Report interface {
	ReportType() string
}

// Envelope pairs a report with its sender for the shared station inbox.
type Envelope struct {
	RobotID string
	Report  Report
}

// ResourceDiscovered notifies the station of a resource sighting. It is
// fire-and-forget; the station acknowledges it only for observability.
type ResourceDiscovered struct {
	Kind resource.Kind `json:"kind"`
	Pos  grid.Position `json:"pos"`
}

func (ResourceDiscovered) ReportType() string { return TypeResourceDiscovered }

// ResourceConsumed reports that the sender took amount units at pos. The
// robot validates against its cache before sending, but the station's
// ledger is the final arbiter and clamps the amount.
type ResourceConsumed struct {
	Kind   resource.Kind `json:"kind"`
	Pos    grid.Position `json:"pos"`
	Amount uint32        `json:"amount"`
}

func (ResourceConsumed) ReportType() string { return TypeResourceConsumed }

// StateRequest asks for a full resync, used on startup or cache loss.
type StateRequest struct{}

func (StateRequest) ReportType() string { return TypeStateRequest }

// KnowledgeSync ships the sender's explored cells for merging into the
// station's knowledge store.
type KnowledgeSync struct {
	Cells []CellEntry `json:"cells"`
}

func (KnowledgeSync) ReportType() string { return TypeKnowledgeSync }

// CellEntry is one explored cell in transit.
type CellEntry struct {
	Pos      grid.Position `json:"pos"`
	Tile     grid.Tile     `json:"tile"`
	Version  uint64        `json:"version"`
	Explorer string        `json:"explorer,omitempty"`
}
