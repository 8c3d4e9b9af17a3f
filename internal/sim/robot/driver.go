package robot

import (
	"context"
	"log"
	"math/rand"
	"time"

	"swarmstation.dev/internal/sim/grid"
	"swarmstation.dev/internal/sim/resource"
)

// StationPort is the non-protocol surface a driver needs from the
// station: where it is, and the docking bay. Everything else travels
// through the message channels.
type StationPort interface {
	Pos() grid.Position
	Dock(robotID string, inventory resource.Bundle) bool
}

// Driver advances one robot at its own pace, independent of the station
// tick. All robot state is confined to this goroutine.
type Driver struct {
	Robot    *Robot
	Session  *Session
	Terrain  *grid.Terrain
	Station  StationPort
	Interval time.Duration
	Log      *log.Logger

	rng *rand.Rand
}

func NewDriver(r *Robot, s *Session, t *grid.Terrain, station StationPort, interval time.Duration, logger *log.Logger, seed int64) *Driver {
	return &Driver{
		Robot:    r,
		Session:  s,
		Terrain:  t,
		Station:  station,
		Interval: interval,
		Log:      logger,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Run steps the robot until the context is cancelled.
func (d *Driver) Run(ctx context.Context) {
	ticker := time.NewTicker(d.Interval)
	defer ticker.Stop()

	d.Session.RequestState()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Step()
		}
	}
}

// Step performs one behavior step: ingest broadcasts, act, flush.
func (d *Driver) Step() {
	d.Session.ProcessBroadcasts()

	if d.Robot.Returning() {
		if d.Robot.ReturnStep(d.Station.Pos()) {
			d.dock()
		}
	} else {
		d.Robot.ExploreStep(d.Terrain, d.Session, d.Station.Pos(), d.rng)
	}

	d.Session.Flush()
}

func (d *Driver) dock() {
	inv := d.Robot.Inventory
	d.Robot.Inventory = resource.Bundle{}
	if !inv.IsZero() {
		if ok := d.Station.Dock(d.Robot.ID, inv); !ok && d.Log != nil {
			d.Log.Printf("robot %s: dock refused, cargo lost", d.Robot.ID)
		}
	}
	d.Session.SyncKnowledge()
	d.Session.Flush()
	d.Session.RequestState()
	d.Robot.Dockside()
}
