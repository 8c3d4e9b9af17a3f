package robot

import (
	"swarmstation.dev/internal/protocol"
	"swarmstation.dev/internal/sim/grid"
	"swarmstation.dev/internal/sim/knowledge"
	"swarmstation.dev/internal/sim/resource"
)

// Session is a robot's communication endpoint plus its advisory caches of
// the station ledger. The caches steer decisions; the station stays the
// final arbiter on every consumption.
type Session struct {
	RobotID string

	inbox chan<- protocol.Envelope
	in    <-chan protocol.Broadcast

	energy   map[grid.Position]uint32
	minerals map[grid.Position]uint32
	science  map[grid.Position]uint32

	pending []protocol.ResourceConsumed

	// Know is the robot's own explored-cell store, synced to the station
	// on docking.
	Know *knowledge.Store
}

// NewSession wires a session to the station inbox and the robot's
// broadcast channel.
func NewSession(robotID string, inbox chan<- protocol.Envelope, in <-chan protocol.Broadcast) *Session {
	return &Session{
		RobotID:  robotID,
		inbox:    inbox,
		in:       in,
		energy:   make(map[grid.Position]uint32),
		minerals: make(map[grid.Position]uint32),
		science:  make(map[grid.Position]uint32),
		Know:     knowledge.NewStore(),
	}
}

func (s *Session) cache(kind resource.Kind) map[grid.Position]uint32 {
	switch kind {
	case resource.Energy:
		return s.energy
	case resource.Minerals:
		return s.minerals
	case resource.ScientificData:
		return s.science
	}
	return nil
}

// send queues a report without ever blocking. A full or torn-down inbox
// drops the message; the protocol tolerates loss by design.
func (s *Session) send(r protocol.Report) {
	select {
	case s.inbox <- protocol.Envelope{RobotID: s.RobotID, Report: r}:
	default:
	}
}

// ReportDiscovered notifies the station of a sighting. Fire-and-forget.
func (s *Session) ReportDiscovered(kind resource.Kind, pos grid.Position) {
	s.send(protocol.ResourceDiscovered{Kind: kind, Pos: pos})
}

// RequestState asks for a full ledger resync.
func (s *Session) RequestState() {
	s.send(protocol.StateRequest{})
}

// SyncKnowledge ships the robot's explored cells for merging.
func (s *Session) SyncKnowledge() {
	if len(s.Know.Cells) == 0 {
		return
	}
	cells := make([]protocol.CellEntry, 0, len(s.Know.Cells))
	for pos, cell := range s.Know.Cells {
		cells = append(cells, protocol.CellEntry{
			Pos:      pos,
			Tile:     cell.Tile,
			Version:  cell.Version,
			Explorer: cell.Explorer,
		})
	}
	s.send(protocol.KnowledgeSync{Cells: cells})
}

// RegisterConsumed optimistically applies a local consumption: the cache
// is decremented immediately so the robot's next decision in the same
// tick sees it, and the report is queued for the next Flush.
func (s *Session) RegisterConsumed(kind resource.Kind, pos grid.Position, amount uint32) {
	c := s.cache(kind)
	if kind == resource.ScientificData {
		delete(c, pos)
	} else if current, ok := c[pos]; ok {
		remaining := current - min32(current, amount)
		if remaining == 0 {
			delete(c, pos)
		} else {
			c[pos] = remaining
		}
	}
	s.pending = append(s.pending, protocol.ResourceConsumed{Kind: kind, Pos: pos, Amount: amount})
}

// Flush sends every queued consumption report in order.
func (s *Session) Flush() {
	for _, msg := range s.pending {
		s.send(msg)
	}
	s.pending = s.pending[:0]
}

// PendingConsumed returns how many consumption reports await flushing.
func (s *Session) PendingConsumed() int { return len(s.pending) }

// ProcessBroadcasts drains every queued broadcast without blocking.
func (s *Session) ProcessBroadcasts() {
	for {
		select {
		case b, ok := <-s.in:
			if !ok {
				return
			}
			s.handle(b)
		default:
			return
		}
	}
}

func (s *Session) handle(b protocol.Broadcast) {
	switch msg := b.(type) {
	case protocol.Snapshot:
		s.energy = entriesToTable(msg.Energy)
		s.minerals = entriesToTable(msg.Minerals)
		s.science = entriesToTable(msg.Science)
	case protocol.ResourceUpdate:
		c := s.cache(msg.Kind)
		if msg.Remaining > 0 {
			c[msg.Pos] = msg.Remaining
		} else {
			delete(c, msg.Pos)
		}
	case protocol.Ack:
		// Observability only; nothing waits on acks.
	}
}

func entriesToTable(entries []protocol.ResourceEntry) map[grid.Position]uint32 {
	table := make(map[grid.Position]uint32, len(entries))
	for _, e := range entries {
		table[e.Pos] = e.Amount
	}
	return table
}

// Available reports whether the cache believes (kind, pos) can cover
// required. ScientificData ignores required: any cached entry counts.
func (s *Session) Available(kind resource.Kind, pos grid.Position, required uint32) bool {
	c := s.cache(kind)
	if kind == resource.ScientificData {
		_, ok := c[pos]
		return ok
	}
	amount, ok := c[pos]
	return ok && amount >= required
}

// Cached returns the cached amount at (kind, pos), zero if absent.
func (s *Session) Cached(kind resource.Kind, pos grid.Position) uint32 {
	return s.cache(kind)[pos]
}

// CachedSites returns the number of cached sites for kind.
func (s *Session) CachedSites(kind resource.Kind) int {
	return len(s.cache(kind))
}

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
