package logic

import (
	"fmt"

	"github.com/sweeney/dio-controller/internal/pwm"
)

// Bank owns the fixed set of input and output channels.
// Channels are stored by value, so pointers handed out stay valid
// for the life of the Bank. Bank is not safe for concurrent use.
type Bank struct {
	Inputs  [NumInputs]PulseInput
	Outputs [NumOutputs]OutputController
}

// NewBank creates stopped channels bound to the given pins.
func NewBank(inPins [NumInputs]int, outPins [NumOutputs]int, reader LevelReader, sink pwm.Sink) *Bank {
	b := &Bank{}
	for i, pin := range inPins {
		b.Inputs[i] = NewPulseInput(pin, reader)
	}
	for i, pin := range outPins {
		b.Outputs[i] = NewOutputController(pin, sink)
	}
	return b
}

// Input returns the input bound to pin, or nil.
func (b *Bank) Input(pin int) *PulseInput {
	for i := range b.Inputs {
		if b.Inputs[i].Pin() == pin {
			return &b.Inputs[i]
		}
	}
	return nil
}

// Output returns the output bound to pin, or nil.
func (b *Bank) Output(pin int) *OutputController {
	for i := range b.Outputs {
		if b.Outputs[i].Pin() == pin {
			return &b.Outputs[i]
		}
	}
	return nil
}

// ConfigureOutput resolves cfg.RelationPort and configures the output on pin.
func (b *Bank) ConfigureOutput(pin int, cfg OutputConfig) error {
	out := b.Output(pin)
	if out == nil {
		return fmt.Errorf("output %d: %w", pin, ErrTargetNotFound)
	}
	var relation *PulseInput
	if cfg.RelationPort != NoPort {
		if relation = b.Input(cfg.RelationPort); relation == nil {
			return fmt.Errorf("relation port %d: %w", cfg.RelationPort, ErrTargetNotFound)
		}
	}
	return out.Configure(cfg, relation)
}

// SetTriggerSource makes counted edges of input port trigger the output
// on pin. NoPort clears the source.
func (b *Bank) SetTriggerSource(pin, port int) error {
	out := b.Output(pin)
	if out == nil {
		return fmt.Errorf("output %d: %w", pin, ErrTargetNotFound)
	}
	if port != NoPort && b.Input(port) == nil {
		return fmt.Errorf("trigger port %d: %w", port, ErrTargetNotFound)
	}
	out.triggerPort = port
	return nil
}

// InputSnapshots returns a copy of every input.
func (b *Bank) InputSnapshots() []InputSnapshot {
	out := make([]InputSnapshot, len(b.Inputs))
	for i := range b.Inputs {
		out[i] = b.Inputs[i].Snapshot()
	}
	return out
}

// OutputSnapshots returns a copy of every output.
func (b *Bank) OutputSnapshots() []OutputSnapshot {
	out := make([]OutputSnapshot, len(b.Outputs))
	for i := range b.Outputs {
		out[i] = b.Outputs[i].Snapshot()
	}
	return out
}
