// Package dispatch serves protocol requests against the channel bank.
//
// Every request gets exactly one reply before the next is received.
// Channel lookups and mutations run inside Scheduler.Do so they never
// interleave with a tick.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/sweeney/dio-controller/internal/logic"
	"github.com/sweeney/dio-controller/internal/protocol"
	"github.com/sweeney/dio-controller/internal/pwm"
	"github.com/sweeney/dio-controller/internal/scheduler"
	"github.com/sweeney/dio-controller/internal/transport"
)

// ErrUnknownRequest is reported for request codes with no operation.
var ErrUnknownRequest = errors.New("unknown request code")

// Dispatcher routes requests from a transport to the scheduler's bank.
type Dispatcher struct {
	sched     *scheduler.Scheduler
	transport transport.Transport
	sink      pwm.Sink
	version   string

	requests atomic.Uint64
	failures atomic.Uint64
}

// New creates a dispatcher. sink is used to read back output levels.
func New(sched *scheduler.Scheduler, t transport.Transport, sink pwm.Sink, version string) *Dispatcher {
	return &Dispatcher{
		sched:     sched,
		transport: t,
		sink:      sink,
		version:   version,
	}
}

// Stats returns the number of requests handled and how many got NG.
func (d *Dispatcher) Stats() (requests, failures uint64) {
	return d.requests.Load(), d.failures.Load()
}

// Serve receives and answers requests until ctx is done or the transport
// fails. It returns nil when ctx is cancelled.
func (d *Dispatcher) Serve(ctx context.Context) error {
	for {
		req, err := d.transport.WaitAndReceive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, protocol.ErrMalformed) {
				d.requests.Add(1)
				d.failures.Add(1)
				log.Printf("dispatch: %v", err)
				d.send(protocol.IntResponse(protocol.NG))
				continue
			}
			return fmt.Errorf("receive: %w", err)
		}
		d.send(d.Handle(req))
	}
}

func (d *Dispatcher) send(reply []byte) {
	if err := d.transport.SendBytes(reply); err != nil {
		log.Printf("dispatch: send reply: %v", err)
	}
}

// Handle executes req and returns the encoded reply.
func (d *Dispatcher) Handle(req protocol.Request) []byte {
	d.requests.Add(1)

	switch req.(type) {
	case protocol.ReadLevels:
		return protocol.LevelsResponse(d.levels())
	case protocol.ReadVersion:
		return protocol.VersionResponse(d.version)
	}

	v, err := d.handleInt(req)
	if err != nil {
		d.failures.Add(1)
		log.Printf("dispatch: code %d: %v", uint32(req.Code()), err)
		return protocol.IntResponse(protocol.NG)
	}
	return protocol.IntResponse(v)
}

func (d *Dispatcher) handleInt(req protocol.Request) (v int32, err error) {
	d.sched.Do(func(b *logic.Bank) {
		v, err = apply(b, req)
	})
	return v, err
}

// apply runs inside the scheduler's critical section.
func apply(b *logic.Bank, req protocol.Request) (int32, error) {
	switch r := req.(type) {
	case protocol.ConfigureInput:
		in, err := input(b, r.Pin)
		if err != nil {
			return 0, err
		}
		in.Configure(logic.InputConfig{
			CountOnHigh:   r.CountOnHigh,
			MinPulseWidth: r.MinPulseWidth,
			MaxCount:      r.MaxPulseCount,
		})
		return protocol.OK, nil

	case protocol.ResetCount:
		in, err := input(b, r.Pin)
		if err != nil {
			return 0, err
		}
		in.Reset(r.InitVal)
		return protocol.OK, nil

	case protocol.ReadCount:
		in, err := input(b, r.Pin)
		if err != nil {
			return 0, err
		}
		return int32(in.Count()), nil

	case protocol.ReadDutyTime:
		in, err := input(b, r.Pin)
		if err != nil {
			return 0, err
		}
		return int32(in.OnTimeSeconds()), nil

	case protocol.ReadPinLevel:
		in, err := input(b, r.Pin)
		if err != nil {
			return 0, err
		}
		if in.Level() {
			return 1, nil
		}
		return 0, nil

	case protocol.ConfigureOutput:
		if err := b.ConfigureOutput(int(r.Pin), outputConfig(r)); err != nil {
			return 0, err
		}
		return protocol.OK, nil

	case protocol.SetTrigger:
		if err := b.SetTriggerSource(int(r.Pin), int(r.TriggerPort)); err != nil {
			return 0, err
		}
		return protocol.OK, nil

	case protocol.TriggerNow:
		if r.All {
			for i := range b.Outputs {
				if b.Outputs[i].Running() {
					b.Outputs[i].Trigger()
				}
			}
			return protocol.OK, nil
		}
		out := b.Output(int(r.Pin))
		if out == nil {
			return 0, fmt.Errorf("output %d: %w", r.Pin, logic.ErrTargetNotFound)
		}
		if !out.Running() {
			return 0, fmt.Errorf("output %d is not running", r.Pin)
		}
		out.Trigger()
		return protocol.OK, nil
	}

	return 0, fmt.Errorf("%w: %d", ErrUnknownRequest, uint32(req.Code()))
}

func input(b *logic.Bank, pin uint32) (*logic.PulseInput, error) {
	in := b.Input(int(pin))
	if in == nil {
		return nil, fmt.Errorf("input %d: %w", pin, logic.ErrTargetNotFound)
	}
	return in, nil
}

func outputConfig(r protocol.ConfigureOutput) logic.OutputConfig {
	return logic.OutputConfig{
		Function:           logic.FunctionType(r.FunctionType),
		Relation:           logic.RelationType(r.RelationType),
		RelationPort:       int(r.RelationPort),
		DefaultState:       r.DefaultState,
		DriveState:         r.DriveState,
		DelayEnable:        r.DelayEnable,
		DelayTime:          r.DelayTime,
		DriveCertainEnable: r.DriveCertainEnable,
		DriveTime:          r.DriveTime,
		PulseClock:         pwm.Clock(r.PulseClock),
		PulsePeriod:        r.PulsePeriod,
		PulseEffectiveTime: r.PulseEffectiveTime,
	}
}

// levels reports raw input levels followed by output read-back.
// An output that cannot be read back reports low.
func (d *Dispatcher) levels() [protocol.NumLevels]bool {
	var l [protocol.NumLevels]bool
	d.sched.Do(func(b *logic.Bank) {
		for i := range b.Inputs {
			l[i] = b.Inputs[i].RawLevel()
		}
		for i := range b.Outputs {
			level, err := d.sink.ReadOutput(b.Outputs[i].Pin())
			l[logic.NumInputs+i] = err == nil && level
		}
	})
	return l
}
