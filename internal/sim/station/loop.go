package station

import (
	"context"
	"time"

	"swarmstation.dev/internal/sim/resource"
)

// Run drives the station until ctx is cancelled or Stop is called.
// Everything the station owns is mutated only from this goroutine.
func (s *Station) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(s.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	// Unblocks callers stuck in Dock/Register/State when the loop exits.
	defer s.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return nil
		case req := <-s.register:
			req.resp <- s.handleRegister(req.robotID)
		case id := <-s.unregister:
			s.handleUnregister(id)
		case req := <-s.dock:
			req.resp <- s.handleDock(req.robotID, req.inventory)
		case req := <-s.produce:
			req.resp <- s.handleProduce(req.class)
		case req := <-s.stateCh:
			req.resp <- s.snapshotState()
		case <-ticker.C:
			s.step()
		}
	}
}

// Stop shuts the loop down. Safe to call more than once.
func (s *Station) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// step advances one tick: drain the inbox in arrival order, advance the
// production bay, then log.
func (s *Station) step() {
	tick := s.tick.Add(1)
	s.reportsThisTick = 0
	s.broadcastsThisTick = 0

	s.drainInbox()
	s.advanceProduction()

	if s.snapSink != nil && s.snapEvery > 0 && tick%s.snapEvery == 0 {
		select {
		case s.snapSink <- s.buildSnapshot():
		default:
			if s.log != nil {
				s.log.Printf("[station %s] snapshot sink full, tick %d skipped", s.cfg.ID, tick)
			}
		}
	}

	if s.tickLog == nil && s.index == nil {
		return
	}
	entry := TickLogEntry{
		Tick:          int64(tick),
		Reports:       s.reportsThisTick,
		Broadcasts:    s.broadcastsThisTick,
		EnergySites:   s.ledger.Sites(resource.Energy),
		MineralSites:  s.ledger.Sites(resource.Minerals),
		ScienceSites:  s.ledger.Sites(resource.ScientificData),
		StockEnergy:   s.stock.Energy,
		StockMinerals: s.stock.Minerals,
		StockScience:  s.stock.Science,
	}
	if s.tickLog != nil {
		_ = s.tickLog.WriteTick(entry)
	}
	if s.index != nil {
		s.index.IndexTick(entry)
	}
}

// drainInbox pulls every report queued since the last tick without ever
// blocking, preserving arrival order.
func (s *Station) drainInbox() {
	for {
		select {
		case env := <-s.inbox:
			s.processEnvelope(env)
		default:
			return
		}
	}
}
