package station

import (
	"swarmstation.dev/internal/sim/robot"
)

type queueItem struct {
	class     robot.Class
	remaining uint32
}

// productionQueue builds robots one at a time, head first. Costs are
// already paid by the time an item is queued.
type productionQueue struct {
	items []queueItem
}

func (q *productionQueue) enqueue(class robot.Class, ticks uint32) {
	q.items = append(q.items, queueItem{class: class, remaining: ticks})
}

// advance burns one tick on the head item and pops it when done.
func (q *productionQueue) advance() (robot.Class, bool) {
	if len(q.items) == 0 {
		return 0, false
	}
	head := &q.items[0]
	if head.remaining > 0 {
		head.remaining--
	}
	if head.remaining > 0 {
		return 0, false
	}
	class := head.class
	q.items = q.items[1:]
	return class, true
}

// handleProduce gates a production request. A declined request is never
// queued and costs nothing: the roster (including robots still being
// built) must have room and the bank must cover the full cost up front.
func (s *Station) handleProduce(class robot.Class) error {
	if len(s.robots)+len(s.queue.items) >= s.cfg.MaxRobots {
		return ErrRosterFull
	}
	cc, ok := s.cfg.Production[class]
	if !ok {
		return ErrUnknownClass
	}
	if !s.stock.Spend(cc.Cost) {
		return ErrInsufficientStock
	}
	s.hist.AddSpent(s.tick.Load(), cc.Cost)
	s.queue.enqueue(class, cc.BuildTicks)
	if s.log != nil {
		s.log.Printf("[station %s] building %s (%d queued)", s.cfg.ID, class, len(s.queue.items))
	}
	return nil
}

// advanceProduction runs once per tick from the loop. A finished robot
// rolls off the line next to the station and its spec is handed to the
// sim driver; if nobody is draining Produced the spec is dropped with a
// log line rather than stalling the loop.
func (s *Station) advanceProduction() {
	class, done := s.queue.advance()
	if !done {
		return
	}
	cc := s.cfg.Production[class]
	spec := robot.Spec{
		ID:      s.NewRobotID(),
		Class:   class,
		Pos:     s.terrain.NearestWalkable(s.pos),
		Modules: robot.ModulesFor(class),
		Energy:  cc.StartEnergy,
	}
	select {
	case s.produced <- spec:
		if s.log != nil {
			s.log.Printf("[station %s] %s complete: %s", s.cfg.ID, class, spec.ID)
		}
	default:
		if s.log != nil {
			s.log.Printf("[station %s] produced %s dropped: nobody listening", s.cfg.ID, spec.ID)
		}
	}
}
