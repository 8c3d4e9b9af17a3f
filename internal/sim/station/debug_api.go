package station

import (
	"swarmstation.dev/internal/persistence/snapshot"
	"swarmstation.dev/internal/protocol"
	"swarmstation.dev/internal/sim/ledger"
	"swarmstation.dev/internal/sim/resource"
	"swarmstation.dev/internal/sim/robot"
)

// Synchronous entry points for harness tests and offline tooling. They
// bypass the loop and must never be mixed with a running Run.

// StepOnce queues the given reports and advances exactly one tick.
func (s *Station) StepOnce(envs ...protocol.Envelope) {
	for _, env := range envs {
		select {
		case s.inbox <- env:
		default:
		}
	}
	s.step()
}

// AttachEndpoint registers robotID and returns its broadcast channel.
func (s *Station) AttachEndpoint(robotID string) <-chan protocol.Broadcast {
	return s.handleRegister(robotID)
}

// DetachEndpoint removes robotID from the roster.
func (s *Station) DetachEndpoint(robotID string) {
	s.handleUnregister(robotID)
}

// DebugDock credits an inventory as if the robot had docked.
func (s *Station) DebugDock(robotID string, inv resource.Bundle) bool {
	return s.handleDock(robotID, inv)
}

// DebugProduce runs the production gate directly.
func (s *Station) DebugProduce(class robot.Class) error {
	return s.handleProduce(class)
}

// ExportSnapshot captures the full station state synchronously.
func (s *Station) ExportSnapshot() snapshot.SnapshotV1 {
	return s.buildSnapshot()
}

// Stock returns the current bank.
func (s *Station) Stock() resource.Bundle { return s.stock.Bundle }

// Ledger exposes the resource ledger.
func (s *Station) Ledger() *ledger.Ledger { return s.ledger }
