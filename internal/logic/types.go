// Package logic contains the per-pin state machines of the controller:
// debounced pulse counting on inputs and trigger/delay/duration driven
// outputs. It performs no I/O of its own; pin levels arrive through
// LevelReader and outputs leave through pwm.Sink. Time is counted in
// ticks, one tick per scheduler period.
package logic

import (
	"errors"
	"fmt"

	"github.com/sweeney/dio-controller/internal/pwm"
)

// Fixed channel counts.
const (
	NumInputs  = 2
	NumOutputs = 2
)

// OnTimeUnit is the number of ticks accumulated per second of on-time.
const OnTimeUnit = 1000

// LevelReader reads the raw instantaneous level of an input pin.
type LevelReader interface {
	Read(pin int) (bool, error)
}

// Edge reports what a PulseInput tick committed.
type Edge int

const (
	EdgeNone    Edge = iota // nothing settled this tick
	EdgeSettled             // a level settled without counting
	EdgeCounted             // a qualifying level settled and was counted
)

func (e Edge) String() string {
	switch e {
	case EdgeSettled:
		return "SETTLED"
	case EdgeCounted:
		return "COUNTED"
	default:
		return "NONE"
	}
}

// FunctionType selects how an output acts when triggered.
type FunctionType uint32

const (
	FunctionNotSelected FunctionType = iota
	FunctionSingle
	FunctionPulse
	FunctionRelation
)

func (f FunctionType) String() string {
	switch f {
	case FunctionNotSelected:
		return "NOT_SELECTED"
	case FunctionSingle:
		return "SINGLE"
	case FunctionPulse:
		return "PULSE"
	case FunctionRelation:
		return "RELATION"
	}
	return fmt.Sprintf("FUNCTION(%d)", uint32(f))
}

func (f FunctionType) valid() bool {
	return f <= FunctionRelation
}

// RelationType selects how a Relation output derives its value.
type RelationType uint32

const (
	RelationNotSelected RelationType = iota
	RelationDrive
	RelationInvert
	RelationInterlock
	RelationInterlockInvert
	RelationSnap
	RelationPulse
	RelationPWM
)

func (r RelationType) String() string {
	switch r {
	case RelationNotSelected:
		return "NOT_SELECTED"
	case RelationDrive:
		return "DRIVE"
	case RelationInvert:
		return "INVERT"
	case RelationInterlock:
		return "INTERLOCK"
	case RelationInterlockInvert:
		return "INTERLOCK_INVERT"
	case RelationSnap:
		return "SNAP"
	case RelationPulse:
		return "PULSE"
	case RelationPWM:
		return "PWM"
	}
	return fmt.Sprintf("RELATION(%d)", uint32(r))
}

func (r RelationType) valid() bool {
	return r <= RelationPWM
}

// needsPort reports whether the relation reads another input.
func (r RelationType) needsPort() bool {
	return r == RelationInvert || r == RelationInterlock || r == RelationInterlockInvert
}

// continuous reports whether the relation keeps mirroring its input after
// the first action of a trigger cycle.
func (r RelationType) continuous() bool {
	return r == RelationInterlock || r == RelationInterlockInvert
}

// FunctionStatus tracks an output's progress through a trigger cycle.
type FunctionStatus uint32

const (
	StatusNone FunctionStatus = iota
	StatusEnable
	StatusStarted
	StatusDisable
)

func (s FunctionStatus) String() string {
	switch s {
	case StatusNone:
		return "NONE"
	case StatusEnable:
		return "ENABLE"
	case StatusStarted:
		return "STARTED"
	case StatusDisable:
		return "DISABLE"
	}
	return fmt.Sprintf("STATUS(%d)", uint32(s))
}

// InputConfig configures a PulseInput.
type InputConfig struct {
	CountOnHigh   bool   // count rising edges (true) or falling edges (false)
	MinPulseWidth uint32 // a level must hold MinPulseWidth+1 ticks to settle
	MaxCount      uint32 // count wraps back to 1 after reaching MaxCount
}

// OutputConfig configures an OutputController.
type OutputConfig struct {
	Function     FunctionType
	Relation     RelationType
	RelationPort int // input pin for Invert/Interlock variants, -1 for none

	DefaultState bool
	DriveState   bool

	DelayEnable bool
	DelayTime   uint32 // ticks

	DriveCertainEnable bool
	DriveTime          uint32 // ticks

	PulseClock         pwm.Clock
	PulsePeriod        uint32 // clock ticks per cycle
	PulseEffectiveTime uint32 // clock ticks high per cycle
}

// NoPort marks an absent relation or trigger port.
const NoPort = -1

var (
	// ErrTargetNotFound is returned when a pin id matches no channel.
	ErrTargetNotFound = errors.New("no channel for pin")

	// ErrInvalidConfig is returned for output configurations the
	// controller cannot run.
	ErrInvalidConfig = errors.New("invalid output configuration")
)
