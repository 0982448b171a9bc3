// Package scheduler ticks every channel of a logic.Bank once per period.
//
// The period timer is one-shot and re-armed from its own callback, so a
// tick that never returns stalls every channel. Tick and Do share one
// mutex: Do is how the request side masks the periodic tick while it
// mutates or reads channel state.
//
// Write ownership per field: the tick side writes the debounce, count,
// on-time, timer and status fields; the request side writes configuration
// fields, counts (Reset), trigger latches and trigger sources. Both only
// ever do so while holding the mutex.
package scheduler

import (
	"sync"
	"time"

	"github.com/sweeney/dio-controller/internal/logic"
)

// DefaultPeriod is the tick period.
const DefaultPeriod = time.Millisecond

// Event reports an input edge committed during a tick.
type Event struct {
	Tick    uint64
	Pin     int
	Edge    logic.Edge
	Level   bool
	Count   uint32
	OnTimeS uint32
}

// Scheduler owns the channel bank and the period timer.
type Scheduler struct {
	mu      sync.Mutex
	bank    *logic.Bank
	period  time.Duration
	timer   *time.Timer
	stopped bool
	ticks   uint64
	events  chan<- Event
	dropped uint64
}

// New creates a stopped scheduler owning bank.
func New(bank *logic.Bank, period time.Duration) *Scheduler {
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Scheduler{bank: bank, period: period, stopped: true}
}

// NotifyEdges delivers input edges to ch. Delivery never blocks the tick:
// events that do not fit are dropped and counted.
func (s *Scheduler) NotifyEdges(ch chan<- Event) {
	s.mu.Lock()
	s.events = ch
	s.mu.Unlock()
}

// Start arms the period timer.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		return
	}
	s.stopped = false
	s.timer = time.AfterFunc(s.period, s.fire)
}

// Stop disarms the period timer. No tick runs after Stop returns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
	}
}

func (s *Scheduler) fire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.tick()
	s.timer.Reset(s.period)
}

// Tick runs one period: running inputs first, then running outputs.
// An output whose trigger source counted an edge this period is
// triggered before it ticks.
func (s *Scheduler) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tick()
}

func (s *Scheduler) tick() {
	s.ticks++
	var counted [logic.NumInputs]int
	n := 0

	b := s.bank
	for i := range b.Inputs {
		in := &b.Inputs[i]
		if !in.Running() {
			continue
		}
		edge := in.Tick()
		if edge == logic.EdgeNone {
			continue
		}
		if edge == logic.EdgeCounted {
			counted[n] = in.Pin()
			n++
		}
		s.emit(Event{
			Tick:    s.ticks,
			Pin:     in.Pin(),
			Edge:    edge,
			Level:   in.Level(),
			Count:   in.Count(),
			OnTimeS: in.OnTimeSeconds(),
		})
	}

	for i := range b.Outputs {
		out := &b.Outputs[i]
		if !out.Running() {
			continue
		}
		if port := out.TriggerPort(); port != logic.NoPort {
			for _, pin := range counted[:n] {
				if pin == port {
					out.Trigger()
				}
			}
		}
		out.Tick()
	}
}

func (s *Scheduler) emit(e Event) {
	if s.events == nil {
		return
	}
	select {
	case s.events <- e:
	default:
		s.dropped++
	}
}

// Do runs fn with the tick masked. fn must not block.
func (s *Scheduler) Do(fn func(b *logic.Bank)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.bank)
}

// Stats reports the number of ticks run and edge events dropped.
func (s *Scheduler) Stats() (ticks, dropped uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks, s.dropped
}

// Period returns the tick period.
func (s *Scheduler) Period() time.Duration {
	return s.period
}
