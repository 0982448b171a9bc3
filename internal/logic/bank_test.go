package logic

import (
	"errors"
	"testing"

	"github.com/sweeney/dio-controller/internal/gpio"
	"github.com/sweeney/dio-controller/internal/pwm"
)

func newTestBank() (*Bank, *gpio.FakeReader, *pwm.FakeSink) {
	reader := gpio.NewFakeReader(22, 27)
	sink := pwm.NewFakeSink()
	return NewBank([NumInputs]int{22, 27}, [NumOutputs]int{18, 19}, reader, sink), reader, sink
}

func TestBankLookup(t *testing.T) {
	b, _, _ := newTestBank()

	for _, pin := range []int{22, 27} {
		in := b.Input(pin)
		if in == nil || in.Pin() != pin {
			t.Errorf("input %d not found", pin)
		}
	}
	for _, pin := range []int{18, 19} {
		out := b.Output(pin)
		if out == nil || out.Pin() != pin {
			t.Errorf("output %d not found", pin)
		}
	}

	if b.Input(18) != nil {
		t.Error("output pin must not resolve as input")
	}
	if b.Output(22) != nil {
		t.Error("input pin must not resolve as output")
	}
	if b.Input(99) != nil || b.Output(99) != nil {
		t.Error("unknown pin must not resolve")
	}
}

func TestBankLookupIsStable(t *testing.T) {
	b, _, _ := newTestBank()
	b.Input(27).Configure(InputConfig{CountOnHigh: true, MaxCount: 5})
	if !b.Inputs[1].Running() {
		t.Error("lookup must return the owned channel, not a copy")
	}
}

func TestBankConfigureOutput(t *testing.T) {
	b, _, _ := newTestBank()

	err := b.ConfigureOutput(18, OutputConfig{
		Function:     FunctionRelation,
		Relation:     RelationInterlock,
		RelationPort: 27,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.Output(18).Running() {
		t.Error("expected output running")
	}
}

func TestBankConfigureOutputNotFound(t *testing.T) {
	b, _, _ := newTestBank()

	err := b.ConfigureOutput(5, OutputConfig{Function: FunctionSingle, RelationPort: NoPort})
	if !errors.Is(err, ErrTargetNotFound) {
		t.Errorf("unknown output: expected ErrTargetNotFound, got %v", err)
	}

	err = b.ConfigureOutput(18, OutputConfig{Function: FunctionRelation, Relation: RelationInvert, RelationPort: 19})
	if !errors.Is(err, ErrTargetNotFound) {
		t.Errorf("unknown relation port: expected ErrTargetNotFound, got %v", err)
	}
}

func TestBankTriggerSource(t *testing.T) {
	b, _, _ := newTestBank()

	if err := b.SetTriggerSource(19, 22); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Output(19).TriggerPort() != 22 {
		t.Errorf("expected trigger port 22, got %d", b.Output(19).TriggerPort())
	}

	if err := b.SetTriggerSource(19, NoPort); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Output(19).TriggerPort() != NoPort {
		t.Error("expected trigger port cleared")
	}

	if err := b.SetTriggerSource(19, 5); !errors.Is(err, ErrTargetNotFound) {
		t.Errorf("unknown port: expected ErrTargetNotFound, got %v", err)
	}
	if err := b.SetTriggerSource(5, 22); !errors.Is(err, ErrTargetNotFound) {
		t.Errorf("unknown output: expected ErrTargetNotFound, got %v", err)
	}
}

func TestBankSnapshots(t *testing.T) {
	b, _, _ := newTestBank()
	b.Input(22).Reset(3)

	ins := b.InputSnapshots()
	if len(ins) != NumInputs || ins[0].Pin != 22 || ins[0].Count != 3 {
		t.Errorf("unexpected input snapshots: %+v", ins)
	}
	outs := b.OutputSnapshots()
	if len(outs) != NumOutputs || outs[1].Pin != 19 {
		t.Errorf("unexpected output snapshots: %+v", outs)
	}
}
