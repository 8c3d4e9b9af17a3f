package robot

import (
	"testing"

	"swarmstation.dev/internal/protocol"
	"swarmstation.dev/internal/sim/grid"
	"swarmstation.dev/internal/sim/resource"
)

func newTestSession(t *testing.T) (*Session, chan protocol.Envelope, chan protocol.Broadcast) {
	t.Helper()
	inbox := make(chan protocol.Envelope, 64)
	in := make(chan protocol.Broadcast, 64)
	return NewSession("R0001", inbox, in), inbox, in
}

func TestSessionStartsEmpty(t *testing.T) {
	s, _, _ := newTestSession(t)
	for _, k := range resource.Kinds {
		if s.CachedSites(k) != 0 {
			t.Fatalf("cache for %v not empty", k)
		}
	}
	if s.PendingConsumed() != 0 {
		t.Fatalf("pending queue not empty")
	}
}

func TestReportDiscoveredReachesInbox(t *testing.T) {
	s, inbox, _ := newTestSession(t)
	pos := grid.Position{X: 15, Y: 15}
	s.ReportDiscovered(resource.Energy, pos)

	select {
	case env := <-inbox:
		if env.RobotID != "R0001" {
			t.Fatalf("wrong sender %q", env.RobotID)
		}
		msg, ok := env.Report.(protocol.ResourceDiscovered)
		if !ok {
			t.Fatalf("wrong variant %T", env.Report)
		}
		if msg.Kind != resource.Energy || msg.Pos != pos {
			t.Fatalf("unexpected payload %+v", msg)
		}
	default:
		t.Fatalf("no message queued")
	}
}

func TestRegisterConsumedIsOptimistic(t *testing.T) {
	s, _, _ := newTestSession(t)
	pos := grid.Position{X: 25, Y: 25}
	s.energy[pos] = 500

	s.RegisterConsumed(resource.Energy, pos, 100)

	// The local cache reflects the consumption before any round trip.
	if got := s.Cached(resource.Energy, pos); got != 400 {
		t.Fatalf("cached %d, want 400", got)
	}
	if s.PendingConsumed() != 1 {
		t.Fatalf("pending %d, want 1", s.PendingConsumed())
	}
}

func TestRegisterConsumedRemovesEmptied(t *testing.T) {
	s, _, _ := newTestSession(t)
	pos := grid.Position{X: 2, Y: 2}
	s.energy[pos] = 50
	s.RegisterConsumed(resource.Energy, pos, 80)
	if s.CachedSites(resource.Energy) != 0 {
		t.Fatalf("emptied site should drop from cache")
	}

	sci := grid.Position{X: 3, Y: 3}
	s.science[sci] = 300
	s.RegisterConsumed(resource.ScientificData, sci, 1)
	if s.Available(resource.ScientificData, sci, 1) {
		t.Fatalf("science site should drop on any consumption")
	}
}

func TestFlushSendsPendingInOrder(t *testing.T) {
	s, inbox, _ := newTestSession(t)
	p1 := grid.Position{X: 5, Y: 5}
	p2 := grid.Position{X: 15, Y: 15}
	s.RegisterConsumed(resource.Energy, p1, 50)
	s.RegisterConsumed(resource.Minerals, p2, 30)

	s.Flush()

	if s.PendingConsumed() != 0 {
		t.Fatalf("pending not drained")
	}
	first := (<-inbox).Report.(protocol.ResourceConsumed)
	second := (<-inbox).Report.(protocol.ResourceConsumed)
	if first.Pos != p1 || second.Pos != p2 {
		t.Fatalf("order lost: %+v then %+v", first, second)
	}
}

func TestProcessBroadcastsUpdateAndSnapshot(t *testing.T) {
	s, _, in := newTestSession(t)
	pos := grid.Position{X: 30, Y: 30}

	in <- protocol.ResourceUpdate{Kind: resource.Energy, Pos: pos, Remaining: 800}
	s.ProcessBroadcasts()
	if got := s.Cached(resource.Energy, pos); got != 800 {
		t.Fatalf("cached %d, want 800", got)
	}

	// Zero remaining removes the entry.
	in <- protocol.ResourceUpdate{Kind: resource.Energy, Pos: pos, Remaining: 0}
	s.ProcessBroadcasts()
	if s.Available(resource.Energy, pos, 1) {
		t.Fatalf("depleted site still cached")
	}

	// A snapshot replaces all three caches wholesale.
	s.minerals[grid.Position{X: 1, Y: 1}] = 999
	snap := protocol.SnapshotFromTables(1,
		map[grid.Position]uint32{pos: 750},
		nil, nil,
	)
	in <- snap
	s.ProcessBroadcasts()
	if got := s.Cached(resource.Energy, pos); got != 750 {
		t.Fatalf("cached %d, want 750", got)
	}
	if s.CachedSites(resource.Minerals) != 0 {
		t.Fatalf("stale mineral entry survived snapshot")
	}
}

func TestSnapshotIdempotent(t *testing.T) {
	s, _, in := newTestSession(t)
	snap := protocol.SnapshotFromTables(3,
		map[grid.Position]uint32{{X: 10, Y: 10}: 800},
		map[grid.Position]uint32{{X: 20, Y: 20}: 500},
		nil,
	)

	in <- snap
	s.ProcessBroadcasts()
	e1 := s.Cached(resource.Energy, grid.Position{X: 10, Y: 10})
	m1 := s.Cached(resource.Minerals, grid.Position{X: 20, Y: 20})

	in <- snap
	s.ProcessBroadcasts()
	if s.Cached(resource.Energy, grid.Position{X: 10, Y: 10}) != e1 ||
		s.Cached(resource.Minerals, grid.Position{X: 20, Y: 20}) != m1 {
		t.Fatalf("applying the same snapshot twice changed the cache")
	}
	if s.CachedSites(resource.Energy) != 1 || s.CachedSites(resource.Minerals) != 1 {
		t.Fatalf("duplicate snapshot grew the cache")
	}
}

func TestAvailable(t *testing.T) {
	s, _, _ := newTestSession(t)
	energyPos := grid.Position{X: 40, Y: 40}
	mineralPos := grid.Position{X: 50, Y: 50}
	sciencePos := grid.Position{X: 60, Y: 60}
	s.energy[energyPos] = 200
	s.minerals[mineralPos] = 100
	s.science[sciencePos] = 1

	if !s.Available(resource.Energy, energyPos, 100) {
		t.Fatalf("200 should cover 100")
	}
	if s.Available(resource.Energy, energyPos, 300) {
		t.Fatalf("200 should not cover 300")
	}
	if !s.Available(resource.Minerals, mineralPos, 100) {
		t.Fatalf("minerals should be available")
	}
	// Science ignores the required amount.
	if !s.Available(resource.ScientificData, sciencePos, 9999) {
		t.Fatalf("science presence should satisfy any requirement")
	}
	if s.Available(resource.Energy, grid.Position{X: 999, Y: 999}, 10) {
		t.Fatalf("unknown site should be unavailable")
	}
}

func TestSendNeverBlocksWhenInboxFull(t *testing.T) {
	inbox := make(chan protocol.Envelope, 1)
	in := make(chan protocol.Broadcast, 1)
	s := NewSession("R0009", inbox, in)

	s.ReportDiscovered(resource.Energy, grid.Position{X: 1, Y: 1})
	// Inbox now full; the next send must drop, not block.
	done := make(chan struct{})
	go func() {
		s.ReportDiscovered(resource.Energy, grid.Position{X: 2, Y: 2})
		close(done)
	}()
	select {
	case <-done:
	case <-timeoutC(t):
		t.Fatalf("send blocked on full inbox")
	}
}
