package scheduler

import (
	"testing"
	"time"

	"github.com/sweeney/dio-controller/internal/gpio"
	"github.com/sweeney/dio-controller/internal/logic"
	"github.com/sweeney/dio-controller/internal/pwm"
)

func newTestScheduler() (*Scheduler, *gpio.FakeReader, *pwm.FakeSink) {
	reader := gpio.NewFakeReader(22, 27)
	sink := pwm.NewFakeSink()
	bank := logic.NewBank([logic.NumInputs]int{22, 27}, [logic.NumOutputs]int{18, 19}, reader, sink)
	return New(bank, time.Millisecond), reader, sink
}

func tickN(s *Scheduler, n int) {
	for i := 0; i < n; i++ {
		s.Tick()
	}
}

func TestTickSkipsStoppedChannels(t *testing.T) {
	s, reader, sink := newTestScheduler()
	reader.Set(22, true)

	tickN(s, 50)

	s.Do(func(b *logic.Bank) {
		if b.Input(22).Count() != 0 || b.Input(22).RawLevel() {
			t.Error("stopped input must not be sampled")
		}
	})
	if len(sink.Writes()) != 0 {
		t.Error("stopped outputs must not write")
	}
	if ticks, _ := s.Stats(); ticks != 50 {
		t.Errorf("expected 50 ticks, got %d", ticks)
	}
}

func TestTickCountsInputs(t *testing.T) {
	s, reader, _ := newTestScheduler()
	s.Do(func(b *logic.Bank) {
		b.Input(22).Configure(logic.InputConfig{CountOnHigh: true, MinPulseWidth: 2, MaxCount: 10})
		b.Input(27).Configure(logic.InputConfig{CountOnHigh: false, MinPulseWidth: 2, MaxCount: 10})
	})

	tickN(s, 10) // both low
	reader.Set(22, true)
	reader.Set(27, true)
	tickN(s, 10)
	reader.Set(22, false)
	reader.Set(27, false)
	tickN(s, 10)

	s.Do(func(b *logic.Bank) {
		if got := b.Input(22).Count(); got != 1 {
			t.Errorf("pin 22: expected 1 rising count, got %d", got)
		}
		if got := b.Input(27).Count(); got != 1 {
			t.Errorf("pin 27: expected 1 falling count, got %d", got)
		}
	})
}

func TestTriggerSource(t *testing.T) {
	s, reader, sink := newTestScheduler()
	s.Do(func(b *logic.Bank) {
		b.Input(22).Configure(logic.InputConfig{CountOnHigh: true, MinPulseWidth: 1, MaxCount: 10})
		if err := b.ConfigureOutput(18, logic.OutputConfig{
			Function:           logic.FunctionSingle,
			DriveState:         true,
			RelationPort:       logic.NoPort,
			DriveCertainEnable: true,
			DriveTime:          5,
		}); err != nil {
			t.Fatalf("configure output: %v", err)
		}
		if err := b.SetTriggerSource(18, 22); err != nil {
			t.Fatalf("set trigger: %v", err)
		}
	})

	tickN(s, 5)
	reader.Set(22, true)
	tickN(s, 2) // edge + one stable tick: not yet settled
	if l, _ := sink.ReadOutput(18); l {
		t.Fatal("output fired before the input settled")
	}

	s.Tick() // input counts, output triggers and acts in the same period
	if l, _ := sink.ReadOutput(18); !l {
		t.Fatal("expected output driven on the counting period")
	}

	tickN(s, 5)
	if l, _ := sink.ReadOutput(18); l {
		t.Error("expected default state after the drive window")
	}
	if l, _ := sink.ReadOutput(19); l {
		t.Error("output without trigger source must not act")
	}
}

func TestEdgeEvents(t *testing.T) {
	s, reader, _ := newTestScheduler()
	events := make(chan Event, 8)
	s.NotifyEdges(events)
	s.Do(func(b *logic.Bank) {
		b.Input(22).Configure(logic.InputConfig{CountOnHigh: true, MinPulseWidth: 0, MaxCount: 10})
	})

	tickN(s, 3)
	reader.Set(22, true)
	tickN(s, 3)

	var got []Event
	for len(events) > 0 {
		got = append(got, <-events)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d: %+v", len(got), got)
	}
	if got[0].Edge != logic.EdgeSettled || got[0].Level {
		t.Errorf("event 0: expected low settle, got %+v", got[0])
	}
	if got[1].Edge != logic.EdgeCounted || !got[1].Level || got[1].Count != 1 || got[1].Pin != 22 {
		t.Errorf("event 1: expected counted high edge, got %+v", got[1])
	}
}

func TestEdgeEventsNeverBlock(t *testing.T) {
	s, reader, _ := newTestScheduler()
	events := make(chan Event) // unbuffered, nobody reading
	s.NotifyEdges(events)
	s.Do(func(b *logic.Bank) {
		b.Input(22).Configure(logic.InputConfig{CountOnHigh: true, MinPulseWidth: 0, MaxCount: 10})
	})

	tickN(s, 3)
	reader.Set(22, true)
	tickN(s, 3)

	if _, dropped := s.Stats(); dropped != 2 {
		t.Errorf("expected 2 dropped events, got %d", dropped)
	}
}

func TestStartStop(t *testing.T) {
	s, _, _ := newTestScheduler()
	s.Start()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if ticks, _ := s.Stats(); ticks >= 5 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timer did not re-arm")
		}
		time.Sleep(time.Millisecond)
	}

	s.Stop()
	time.Sleep(10 * time.Millisecond)
	before, _ := s.Stats()
	time.Sleep(20 * time.Millisecond)
	after, _ := s.Stats()
	if after != before {
		t.Errorf("ticks advanced after Stop: %d -> %d", before, after)
	}
}
