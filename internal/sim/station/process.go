package station

import (
	"fmt"

	"swarmstation.dev/internal/protocol"
	"swarmstation.dev/internal/sim/grid"
	"swarmstation.dev/internal/sim/knowledge"
	"swarmstation.dev/internal/sim/resource"
)

func (s *Station) processEnvelope(env protocol.Envelope) {
	s.reportsThisTick++
	switch msg := env.Report.(type) {
	case protocol.ResourceDiscovered:
		s.handleDiscovered(env.RobotID, msg)
	case protocol.ResourceConsumed:
		s.handleConsumed(env.RobotID, msg)
	case protocol.StateRequest:
		s.handleStateRequest(env.RobotID)
	case protocol.KnowledgeSync:
		s.handleKnowledgeSync(env.RobotID, msg)
	default:
		s.sendTo(env.RobotID, protocol.Ack{
			For:  "UNKNOWN",
			Code: protocol.ErrBadRequest,
			Tick: s.tick.Load(),
		})
	}
}

// handleDiscovered verifies the sighting against the terrain before the
// ledger records it. A stale or fabricated report gets E_NO_RESOURCE and
// leaves the ledger untouched.
func (s *Station) handleDiscovered(robotID string, msg protocol.ResourceDiscovered) {
	kind, amount, ok := s.terrain.ResourceAt(msg.Pos)
	if !ok || kind != msg.Kind {
		s.sendTo(robotID, protocol.Ack{
			For:     protocol.TypeResourceDiscovered,
			Code:    protocol.ErrNoResource,
			Message: fmt.Sprintf("no %s at (%d,%d)", msg.Kind, msg.Pos.X, msg.Pos.Y),
			Tick:    s.tick.Load(),
		})
		return
	}
	s.ledger.Record(kind, msg.Pos, amount)
	s.sendTo(robotID, protocol.Ack{For: protocol.TypeResourceDiscovered, Tick: s.tick.Load()})
}

// handleConsumed applies a consumption to the ledger, mirrors it onto the
// terrain, then tells every robot the new remainder. The ledger clamp is
// authoritative; the sender's optimistic decrement may have been wrong.
func (s *Station) handleConsumed(robotID string, msg protocol.ResourceConsumed) {
	consumed, remaining := s.ledger.Consume(msg.Kind, msg.Pos, msg.Amount)
	if consumed == 0 {
		s.sendTo(robotID, protocol.Ack{
			For:     protocol.TypeResourceConsumed,
			Code:    protocol.ErrNoResource,
			Message: fmt.Sprintf("nothing left at (%d,%d)", msg.Pos.X, msg.Pos.Y),
			Tick:    s.tick.Load(),
		})
		return
	}

	s.terrain.Consume(msg.Kind, msg.Pos, consumed)
	tick := s.tick.Load()
	s.hist.AddCollected(tick, msg.Kind, consumed)
	if s.index != nil {
		s.index.IndexCollection(tick, robotID, msg.Kind, msg.Pos, consumed)
	}

	s.broadcast(protocol.ResourceUpdate{Kind: msg.Kind, Pos: msg.Pos, Remaining: remaining})
	s.sendTo(robotID, protocol.Ack{For: protocol.TypeResourceConsumed, Tick: tick})
}

// handleStateRequest answers with a full snapshot, to the requester only.
func (s *Station) handleStateRequest(robotID string) {
	snap := s.ledger.Snapshot()
	s.sendTo(robotID, protocol.SnapshotFromTables(s.tick.Load(), snap.Energy, snap.Minerals, snap.Science))
}

// handleKnowledgeSync merges a robot's explored cells into the
// authoritative store. Version-stamped last-writer-wins; ties are left
// for explicit resolution and never merged silently.
func (s *Station) handleKnowledgeSync(robotID string, msg protocol.KnowledgeSync) {
	incoming := make(map[grid.Position]knowledge.Cell, len(msg.Cells))
	for _, c := range msg.Cells {
		incoming[c.Pos] = knowledge.Cell{Tile: c.Tile, Version: c.Version, Explorer: c.Explorer}
	}
	updated := s.know.Merge(incoming, robotID)
	if len(updated) > 0 && s.mergeLog != nil {
		rec := s.know.Log[len(s.know.Log)-1]
		_ = s.mergeLog.WriteMerge(MergeLogEntry{
			Tick:      s.tick.Load(),
			Source:    rec.Source,
			Version:   rec.Version,
			Positions: rec.Positions,
			At:        rec.At,
		})
	}
	s.sendTo(robotID, protocol.Ack{
		For:     protocol.TypeKnowledgeSync,
		Message: fmt.Sprintf("%d cells merged", len(updated)),
		Tick:    s.tick.Load(),
	})
}

// sendTo delivers a broadcast to one robot without ever blocking the
// loop. When the robot's channel is full the oldest queued message is
// dropped to make room.
func (s *Station) sendTo(robotID string, b protocol.Broadcast) {
	ep, ok := s.robots[robotID]
	if !ok {
		return
	}
	s.broadcastsThisTick++
	sendLatest(ep.out, b)
}

// broadcast fans a message out to every registered robot.
func (s *Station) broadcast(b protocol.Broadcast) {
	for _, ep := range s.robots {
		s.broadcastsThisTick++
		sendLatest(ep.out, b)
	}
}

func sendLatest(ch chan protocol.Broadcast, b protocol.Broadcast) {
	for {
		select {
		case ch <- b:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

func (s *Station) handleRegister(robotID string) <-chan protocol.Broadcast {
	if ep, ok := s.robots[robotID]; ok {
		return ep.out
	}
	ep := &endpoint{out: make(chan protocol.Broadcast, s.cfg.OutboxSize)}
	s.robots[robotID] = ep
	if s.log != nil {
		s.log.Printf("[station %s] robot registered: %s (%d on roster)", s.cfg.ID, robotID, len(s.robots))
	}
	return ep.out
}

func (s *Station) handleUnregister(robotID string) {
	if _, ok := s.robots[robotID]; !ok {
		return
	}
	delete(s.robots, robotID)
	if s.log != nil {
		s.log.Printf("[station %s] robot left: %s (%d on roster)", s.cfg.ID, robotID, len(s.robots))
	}
}

// handleDock credits a returning robot's cargo to the station bank.
func (s *Station) handleDock(robotID string, inv resource.Bundle) bool {
	if _, ok := s.robots[robotID]; !ok {
		return false
	}
	s.stock.Credit(&inv)
	if s.log != nil {
		s.log.Printf("[station %s] %s docked; bank E=%d M=%d S=%d",
			s.cfg.ID, robotID, s.stock.Energy, s.stock.Minerals, s.stock.Science)
	}
	return true
}

func (s *Station) snapshotState() State {
	robots := make([]string, 0, len(s.robots))
	for id := range s.robots {
		robots = append(robots, id)
	}
	return State{
		ID:               s.cfg.ID,
		Tick:             s.tick.Load(),
		Pos:              s.pos,
		Ledger:           s.ledger.Snapshot(),
		Stock:            s.stock.Bundle,
		Robots:           robots,
		QueueLen:         len(s.queue.items),
		KnownCells:       len(s.know.Cells),
		KnowledgeVersion: s.know.Version,
	}
}
