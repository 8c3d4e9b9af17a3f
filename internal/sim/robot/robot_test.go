package robot

import (
	"math/rand"
	"testing"
	"time"

	"swarmstation.dev/internal/protocol"
	"swarmstation.dev/internal/sim/grid"
	"swarmstation.dev/internal/sim/resource"
)

func timeoutC(t *testing.T) <-chan time.Time {
	t.Helper()
	return time.After(2 * time.Second)
}

func TestNewRobotDefaults(t *testing.T) {
	r := New(Spec{ID: "R0001", Class: Explorer, Pos: grid.Position{X: 5, Y: 5}, Modules: ModulesFor(Explorer)})
	if r.Pos() != (grid.Position{X: 5, Y: 5}) {
		t.Fatalf("unexpected position %+v", r.Pos())
	}
	if r.Energy != 100 {
		t.Fatalf("default energy %v", r.Energy)
	}
	if !r.Inventory.IsZero() {
		t.Fatalf("inventory should start empty")
	}
}

func TestModulesForEveryClass(t *testing.T) {
	for _, c := range []Class{Explorer, Harvester, Miner, Scientist} {
		if len(ModulesFor(c)) == 0 {
			t.Fatalf("class %v has no loadout", c)
		}
	}
}

func TestMoveRandomlySurroundedStaysPut(t *testing.T) {
	terr := grid.NewTerrain(3, 3)
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			if x == 1 && y == 1 {
				continue
			}
			terr.SetTile(grid.Position{X: x, Y: y}, grid.Tile{Kind: grid.TileObstacle})
		}
	}
	start := grid.Position{X: 1, Y: 1}
	r := New(Spec{ID: "R0001", Pos: start})
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 10; i++ {
		r.MoveRandomly(terr, rng)
		if r.Pos() != start {
			t.Fatalf("robot escaped a fully blocked cell to %+v", r.Pos())
		}
	}
}

func TestExploreStepReportsAndRecords(t *testing.T) {
	terr := grid.NewTerrain(20, 20)
	pos := grid.Position{X: 10, Y: 10}
	terr.SetTile(pos, grid.Tile{Kind: grid.TileEnergy, Amount: 1000})

	inbox := make(chan protocol.Envelope, 16)
	s := NewSession("R0001", inbox, make(chan protocol.Broadcast, 1))
	r := New(Spec{ID: "R0001", Class: Explorer, Pos: pos})

	r.ExploreStep(terr, s, grid.Position{X: 0, Y: 0}, rand.New(rand.NewSource(2)))

	env := <-inbox
	msg, ok := env.Report.(protocol.ResourceDiscovered)
	if !ok {
		t.Fatalf("expected discovery report, got %T", env.Report)
	}
	if msg.Kind != resource.Energy || msg.Pos != pos {
		t.Fatalf("unexpected report %+v", msg)
	}
	cell, known := s.Know.Cells[pos]
	if !known || cell.Tile.Kind != grid.TileEnergy {
		t.Fatalf("tile not recorded in knowledge store: %+v", cell)
	}
}

func TestMinerCollectsThroughCache(t *testing.T) {
	terr := grid.NewTerrain(20, 20)
	pos := grid.Position{X: 4, Y: 4}
	terr.SetTile(pos, grid.Tile{Kind: grid.TileMineral, Amount: 500})

	inbox := make(chan protocol.Envelope, 16)
	s := NewSession("R0002", inbox, make(chan protocol.Broadcast, 1))
	s.ProcessBroadcasts()
	// Cache primed as if a broadcast had announced the site.
	sIn := protocol.ResourceUpdate{Kind: resource.Minerals, Pos: pos, Remaining: 500}
	s.handle(sIn)

	r := New(Spec{ID: "R0002", Class: Miner, Pos: pos, Modules: ModulesFor(Miner)})
	r.ExploreStep(terr, s, grid.Position{X: 0, Y: 0}, rand.New(rand.NewSource(3)))

	if r.Inventory.Minerals == 0 {
		t.Fatalf("miner collected nothing")
	}
	if s.PendingConsumed() != 1 {
		t.Fatalf("consumption not queued, pending=%d", s.PendingConsumed())
	}
	if got := s.Cached(resource.Minerals, pos); got >= 500 {
		t.Fatalf("cache not optimistically decremented: %d", got)
	}
}

func TestExplorerNeverCollects(t *testing.T) {
	terr := grid.NewTerrain(10, 10)
	pos := grid.Position{X: 2, Y: 2}
	terr.SetTile(pos, grid.Tile{Kind: grid.TileEnergy, Amount: 100})

	s := NewSession("R0003", make(chan protocol.Envelope, 16), make(chan protocol.Broadcast, 1))
	s.handle(protocol.ResourceUpdate{Kind: resource.Energy, Pos: pos, Remaining: 100})

	r := New(Spec{ID: "R0003", Class: Explorer, Pos: pos, Modules: ModulesFor(Explorer)})
	r.ExploreStep(terr, s, grid.Position{X: 0, Y: 0}, rand.New(rand.NewSource(4)))

	if !r.Inventory.IsZero() {
		t.Fatalf("explorer should not collect: %+v", r.Inventory)
	}
}

func TestLowEnergyTriggersReturn(t *testing.T) {
	terr := grid.NewTerrain(10, 10)
	r := New(Spec{ID: "R0004", Class: Explorer, Pos: grid.Position{X: 9, Y: 9}})
	r.Energy = 5

	s := NewSession("R0004", make(chan protocol.Envelope, 1), make(chan protocol.Broadcast, 1))
	r.ExploreStep(terr, s, grid.Position{X: 0, Y: 0}, rand.New(rand.NewSource(5)))

	if !r.Returning() {
		t.Fatalf("robot should head home on low energy")
	}
}

func TestReturnStepWalksHome(t *testing.T) {
	r := New(Spec{ID: "R0005", Pos: grid.Position{X: 3, Y: 3}})
	home := grid.Position{X: 0, Y: 0}
	arrived := false
	for i := 0; i < 10 && !arrived; i++ {
		arrived = r.ReturnStep(home)
	}
	if !arrived || r.Pos() != home {
		t.Fatalf("robot did not reach home: %+v", r.Pos())
	}
}
