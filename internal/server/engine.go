package server

import (
	"context"
	"time"

	"glade/internal/protocol"
)

// tickerFactory builds the tick channel for the scene loop. Tests swap it
// for a hand-fed channel so steps happen on demand.
type tickerFactory func(time.Duration) (<-chan time.Time, func())

type timeSource func() time.Time

func defaultTickerFactory() tickerFactory {
	return func(d time.Duration) (<-chan time.Time, func()) {
		ticker := time.NewTicker(d)
		return ticker.C, ticker.Stop
	}
}

func (s *Server) startLoop(ctx context.Context) {
	s.wg.Add(1)
	go s.runLoop(ctx)
}

// runLoop steps the scene at the configured tick until the context ends.
// Everything that touches the scene happens on this goroutine; other
// goroutines reach it through the commands channel or the input state.
func (s *Server) runLoop(ctx context.Context) {
	defer s.wg.Done()

	tick := s.cfg.Tick()
	tickerC, stop := s.tickFactory(tick)
	defer stop()

	last := s.now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tickerC:
			delta := clampDelta(now.Sub(last), tick)
			last = now
			s.step(delta)
		}
	}
}

// clampDelta keeps a wall clock hiccup from distorting the simulation. A
// stalled or rewound clock yields one nominal tick instead of a catch-up
// burst that would teleport the character.
func clampDelta(delta, tick time.Duration) time.Duration {
	if delta <= 0 || delta > 10*tick {
		return tick
	}
	return delta
}

// step runs one simulation tick: queued commands first, then the scene,
// then the outbound traffic the tick produced.
func (s *Server) step(delta time.Duration) {
drain:
	for {
		select {
		case cmd := <-s.commands:
			cmd()
		default:
			break drain
		}
	}
	events := s.scene.Step(delta)
	for _, ev := range events {
		s.broadcast(protocol.MessageEvent, ev)
	}
	s.ticks++
	if s.ticks%s.snapshotEvery == 0 {
		s.broadcast(protocol.MessageFrame, s.scene.Snapshot())
	}
}
