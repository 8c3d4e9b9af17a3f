// Package station implements the coordinator: a single goroutine that
// owns the resource ledger, the authoritative knowledge store, the robot
// roster and the production bay. All state is accessed only from the
// station loop; robots talk to it exclusively through channels.
package station

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"swarmstation.dev/internal/persistence/snapshot"
	"swarmstation.dev/internal/protocol"
	"swarmstation.dev/internal/sim/grid"
	"swarmstation.dev/internal/sim/knowledge"
	"swarmstation.dev/internal/sim/ledger"
	"swarmstation.dev/internal/sim/resource"
	"swarmstation.dev/internal/sim/robot"
)

type Config struct {
	ID         string
	TickRateHz int
	MaxRobots  int
	InboxSize  int
	OutboxSize int

	// Station placement.
	PreferredPos grid.Position
	ClearRadius  int

	// Starting bank.
	StartStock resource.Bundle

	// Per-class production tuning.
	Production map[robot.Class]ClassCost
}

// ClassCost is what one robot of a class costs to build.
type ClassCost struct {
	Cost        resource.Bundle
	BuildTicks  uint32
	StartEnergy float64
}

func (c *Config) applyDefaults() {
	if c.ID == "" {
		c.ID = "station_1"
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = 10
	}
	if c.MaxRobots <= 0 {
		c.MaxRobots = 10
	}
	if c.InboxSize <= 0 {
		c.InboxSize = 1024
	}
	if c.OutboxSize <= 0 {
		c.OutboxSize = 64
	}
	if c.ClearRadius <= 0 {
		c.ClearRadius = 3
	}
	if c.Production == nil {
		c.Production = map[robot.Class]ClassCost{
			robot.Explorer:  {Cost: resource.Bundle{Energy: 20, Minerals: 100}, BuildTicks: 50, StartEnergy: 100},
			robot.Harvester: {Cost: resource.Bundle{Energy: 150, Minerals: 150}, BuildTicks: 40, StartEnergy: 100},
			robot.Miner:     {Cost: resource.Bundle{Energy: 150, Minerals: 200}, BuildTicks: 45, StartEnergy: 100},
			robot.Scientist: {Cost: resource.Bundle{Energy: 250, Minerals: 150}, BuildTicks: 60, StartEnergy: 100},
		}
	}
}

// TickLogEntry is one line of the tick event log.
type TickLogEntry struct {
	Tick          int64  `json:"tick"`
	Reports       int    `json:"reports"`
	Broadcasts    int    `json:"broadcasts"`
	EnergySites   int    `json:"energy_sites"`
	MineralSites  int    `json:"mineral_sites"`
	ScienceSites  int    `json:"science_sites"`
	StockEnergy   uint32 `json:"stock_energy"`
	StockMinerals uint32 `json:"stock_minerals"`
	StockScience  uint32 `json:"stock_science"`
}

// MergeLogEntry is one line of the knowledge-merge audit log.
type MergeLogEntry struct {
	Tick      uint64          `json:"tick"`
	Source    string          `json:"source"`
	Version   uint64          `json:"version"`
	Positions []grid.Position `json:"positions"`
	At        time.Time       `json:"at"`
}

// TickLogger receives one entry per station tick. May be nil.
type TickLogger interface {
	WriteTick(TickLogEntry) error
}

// MergeLogger receives one entry per applied knowledge merge. May be nil.
type MergeLogger interface {
	WriteMerge(MergeLogEntry) error
}

// Indexer is the read-model sink (SQLite). Never on the hot path; may be nil.
type Indexer interface {
	IndexTick(TickLogEntry)
	IndexCollection(tick uint64, robotID string, kind resource.Kind, pos grid.Position, amount uint32)
}

var (
	ErrRosterFull        = errors.New("robot roster full")
	ErrInsufficientStock = errors.New("insufficient stockpile")
	ErrUnknownClass      = errors.New("unknown robot class")
	ErrStopped           = errors.New("station stopped")
)

type endpoint struct {
	out chan protocol.Broadcast
}

type registerReq struct {
	robotID string
	resp    chan (<-chan protocol.Broadcast)
}

type dockReq struct {
	robotID   string
	inventory resource.Bundle
	resp      chan bool
}

type produceReq struct {
	class robot.Class
	resp  chan error
}

type stateReq struct {
	resp chan State
}

// State is a read-only view for the observer transport.
type State struct {
	ID     string          `json:"id"`
	Tick   uint64          `json:"tick"`
	Pos    grid.Position   `json:"pos"`
	Ledger ledger.Snapshot `json:"-"`
	Stock  resource.Bundle `json:"stock"`
	Robots []string        `json:"robots"`

	QueueLen         int    `json:"queue_len"`
	KnownCells       int    `json:"known_cells"`
	KnowledgeVersion uint64 `json:"knowledge_version"`
}

type Station struct {
	cfg     Config
	log     *log.Logger
	terrain *grid.Terrain
	pos     grid.Position

	ledger *ledger.Ledger
	know   *knowledge.Store
	stock  resource.Stockpile
	hist   *resource.History

	robots map[string]*endpoint
	queue  productionQueue

	inbox      chan protocol.Envelope
	register   chan registerReq
	unregister chan string
	dock       chan dockReq
	produce    chan produceReq
	stateCh    chan stateReq
	produced   chan robot.Spec
	stop       chan struct{}
	stopOnce   sync.Once

	tick         atomic.Uint64
	nextRobotNum atomic.Uint64

	tickLog  TickLogger
	mergeLog MergeLogger
	index    Indexer

	snapSink  chan<- snapshot.SnapshotV1
	snapEvery uint64

	// Per-tick counters, reset every tick.
	reportsThisTick    int
	broadcastsThisTick int
}

// New settles a station onto the terrain and returns it ready to Run.
func New(cfg Config, terrain *grid.Terrain, logger *log.Logger) *Station {
	cfg.applyDefaults()
	pos := grid.PlaceStation(terrain, cfg.PreferredPos, cfg.ClearRadius)

	s := &Station{
		cfg:     cfg,
		log:     logger,
		terrain: terrain,
		pos:     pos,
		ledger:  ledger.New(),
		know:    knowledge.NewStore(),
		hist:    &resource.History{},
		robots:  make(map[string]*endpoint),

		inbox:      make(chan protocol.Envelope, cfg.InboxSize),
		register:   make(chan registerReq),
		unregister: make(chan string),
		dock:       make(chan dockReq),
		produce:    make(chan produceReq),
		stateCh:    make(chan stateReq),
		produced:   make(chan robot.Spec, cfg.MaxRobots),
		stop:       make(chan struct{}),
	}
	s.stock.Bundle = cfg.StartStock
	return s
}

// SetTickLogger wires the tick event log. Call before Run.
func (s *Station) SetTickLogger(l TickLogger) { s.tickLog = l }

// SetMergeLogger wires the merge audit log. Call before Run.
func (s *Station) SetMergeLogger(l MergeLogger) { s.mergeLog = l }

// SetIndexer wires the telemetry index. Call before Run.
func (s *Station) SetIndexer(ix Indexer) { s.index = ix }

// Pos returns the station's settled position.
func (s *Station) Pos() grid.Position { return s.pos }

// CurrentTick returns the last completed tick.
func (s *Station) CurrentTick() uint64 { return s.tick.Load() }

// Inbox is the shared report channel every robot session sends into.
func (s *Station) Inbox() chan<- protocol.Envelope { return s.inbox }

// Produced delivers specs of finished robots to the sim driver.
func (s *Station) Produced() <-chan robot.Spec { return s.produced }

// NewRobotID mints the next roster id.
func (s *Station) NewRobotID() string {
	return fmt.Sprintf("R%04d", s.nextRobotNum.Add(1))
}

// Register adds a robot endpoint to the roster and returns its broadcast
// channel. Must be called while the loop is running.
func (s *Station) Register(robotID string) (<-chan protocol.Broadcast, error) {
	req := registerReq{robotID: robotID, resp: make(chan (<-chan protocol.Broadcast), 1)}
	select {
	case s.register <- req:
		return <-req.resp, nil
	case <-s.stop:
		return nil, ErrStopped
	}
}

// Unregister removes a robot endpoint. Best effort.
func (s *Station) Unregister(robotID string) {
	select {
	case s.unregister <- robotID:
	case <-s.stop:
	}
}

// Dock credits a returning robot's inventory to the stockpile. It
// reports false when the station has stopped.
func (s *Station) Dock(robotID string, inventory resource.Bundle) bool {
	req := dockReq{robotID: robotID, inventory: inventory, resp: make(chan bool, 1)}
	select {
	case s.dock <- req:
		return <-req.resp
	case <-s.stop:
		return false
	}
}

// RequestProduce asks the production bay to build one robot of class.
// The request is declined, never queued, when the roster is at capacity
// or the stockpile cannot cover the cost.
func (s *Station) RequestProduce(class robot.Class) error {
	req := produceReq{class: class, resp: make(chan error, 1)}
	select {
	case s.produce <- req:
		return <-req.resp
	case <-s.stop:
		return ErrStopped
	}
}

// State returns a deep-copied view for observers.
func (s *Station) State() (State, error) {
	req := stateReq{resp: make(chan State, 1)}
	select {
	case s.stateCh <- req:
		return <-req.resp, nil
	case <-s.stop:
		return State{}, ErrStopped
	}
}

// Knowledge exposes the authoritative store for in-loop callers and
// tests. Not safe to touch while the loop runs.
func (s *Station) Knowledge() *knowledge.Store { return s.know }

// History exposes the collection history. Same ownership caveat.
func (s *Station) History() *resource.History { return s.hist }
