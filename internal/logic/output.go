package logic

import (
	"fmt"

	"github.com/sweeney/dio-controller/internal/pwm"
)

// OutputController runs one output pin through trigger, optional delay,
// optional bounded drive duration and the configured action.
type OutputController struct {
	pin      int
	sink     pwm.Sink
	cfg      OutputConfig
	relation *PulseInput // not owned; read by Invert/Interlock variants

	triggerActive bool
	pending       bool // delay elapsed with no drive window to carry the action
	flagDelay     bool
	delayElapsed  uint32
	flagDriveTime bool
	driveElapsed  uint32

	status      FunctionStatus
	running     bool
	triggerPort int

	actions     uint32
	writeErrors uint32
	unsupported uint32
}

// OutputSnapshot is a point-in-time copy of an OutputController.
type OutputSnapshot struct {
	Pin           int
	Running       bool
	Config        OutputConfig
	Status        FunctionStatus
	TriggerActive bool
	Delaying      bool
	Driving       bool
	TriggerPort   int
	Actions       uint32
	WriteErrors   uint32
	Unsupported   uint32
}

// NewOutputController creates a stopped, unconfigured output bound to pin.
func NewOutputController(pin int, sink pwm.Sink) OutputController {
	return OutputController{
		pin:         pin,
		sink:        sink,
		cfg:         OutputConfig{RelationPort: NoPort},
		triggerPort: NoPort,
	}
}

// Pin returns the bound pin id.
func (c *OutputController) Pin() int { return c.pin }

// Running reports whether the output is ticked.
func (c *OutputController) Running() bool { return c.running }

// Status returns the trigger cycle status.
func (c *OutputController) Status() FunctionStatus { return c.status }

// Config returns the installed configuration.
func (c *OutputController) Config() OutputConfig { return c.cfg }

// TriggerPort returns the input pin whose counted edges trigger this
// output, or NoPort.
func (c *OutputController) TriggerPort() int { return c.triggerPort }

// Configure validates and installs cfg, clears every timer and drives the
// pin to its default state. relation is the input named by
// cfg.RelationPort, nil if none.
// FunctionNotSelected stops the output.
func (c *OutputController) Configure(cfg OutputConfig, relation *PulseInput) error {
	if err := validateOutput(cfg, relation); err != nil {
		return err
	}

	c.running = false
	c.cfg = cfg
	c.relation = relation
	c.triggerActive = false
	c.pending = false
	c.flagDelay = false
	c.delayElapsed = 0
	c.flagDriveTime = false
	c.driveElapsed = 0

	c.write(cfg.DefaultState)

	if cfg.Function == FunctionNotSelected {
		c.status = StatusDisable
		return nil
	}
	c.status = StatusEnable
	c.running = true
	return nil
}

func validateOutput(cfg OutputConfig, relation *PulseInput) error {
	if !cfg.Function.valid() {
		return fmt.Errorf("%w: function type %d", ErrInvalidConfig, uint32(cfg.Function))
	}
	if !cfg.Relation.valid() {
		return fmt.Errorf("%w: relation type %d", ErrInvalidConfig, uint32(cfg.Relation))
	}

	pulse := cfg.Function == FunctionPulse
	if cfg.Function == FunctionRelation {
		if cfg.Relation == RelationNotSelected {
			return fmt.Errorf("%w: relation function without relation type", ErrInvalidConfig)
		}
		if cfg.Relation.needsPort() && relation == nil {
			return fmt.Errorf("%w: %s relation needs a relation port", ErrInvalidConfig, cfg.Relation)
		}
		pulse = cfg.Relation == RelationPulse || cfg.Relation == RelationPWM
	}

	if pulse {
		if !cfg.PulseClock.Usable() {
			return fmt.Errorf("%w: pulse clock %d", ErrInvalidConfig, uint32(cfg.PulseClock))
		}
		if cfg.PulsePeriod < cfg.PulseEffectiveTime {
			return fmt.Errorf("%w: pulse period %d shorter than effective time %d",
				ErrInvalidConfig, cfg.PulsePeriod, cfg.PulseEffectiveTime)
		}
	}
	return nil
}

// Trigger latches a trigger for the next tick. It restarts the delay and
// drive timers but leaves the status alone: a Started output stays Started
// until it is reconfigured.
func (c *OutputController) Trigger() {
	c.triggerActive = true
}

// Tick advances the trigger/delay/drive state machine by one period.
func (c *OutputController) Tick() {
	if c.triggerActive {
		if c.cfg.DelayEnable {
			c.flagDelay = true
			c.delayElapsed = 0
			c.triggerActive = false
		}
		if c.cfg.DriveCertainEnable {
			c.flagDriveTime = true
			c.driveElapsed = 0
			c.triggerActive = false
		}
	}

	if c.flagDelay {
		if c.delayElapsed >= c.cfg.DelayTime {
			c.flagDelay = false
			if !c.cfg.DriveCertainEnable {
				c.pending = true
			}
		} else {
			c.delayElapsed++
		}
		return
	}

	due := c.triggerActive || c.pending
	if c.cfg.DriveCertainEnable {
		due = c.flagDriveTime
	}
	if !due {
		return
	}
	c.triggerActive = false
	c.pending = false

	if c.status != StatusStarted {
		c.act()
		c.status = StatusStarted
	} else if c.cfg.Function == FunctionRelation && c.cfg.Relation.continuous() {
		c.act()
	}

	if c.flagDriveTime {
		if c.driveElapsed >= c.cfg.DriveTime {
			c.write(c.cfg.DefaultState)
			c.flagDriveTime = false
		} else {
			c.driveElapsed++
		}
	}
}

func (c *OutputController) act() {
	c.actions++
	switch c.cfg.Function {
	case FunctionSingle:
		c.write(c.cfg.DriveState)
	case FunctionPulse:
		c.pulse()
	case FunctionRelation:
		switch c.cfg.Relation {
		case RelationDrive:
			c.write(c.cfg.DriveState)
		case RelationInterlock:
			c.write(c.relation.Level())
		case RelationInvert, RelationInterlockInvert:
			c.write(!c.relation.Level())
		case RelationPulse, RelationPWM:
			c.pulse()
		case RelationSnap:
			// no hardware effect
			c.unsupported++
		}
	}
}

// write and pulse do not report sink failures to the state machine.
func (c *OutputController) write(level bool) {
	if err := c.sink.WriteOutput(c.pin, level); err != nil {
		c.writeErrors++
	}
}

func (c *OutputController) pulse() {
	on := c.cfg.PulseEffectiveTime
	off := c.cfg.PulsePeriod - c.cfg.PulseEffectiveTime
	if err := c.sink.ConfigurePin(c.pin, c.cfg.PulseClock, on, off); err != nil {
		c.writeErrors++
	}
}

// Snapshot returns a copy of the output state.
func (c *OutputController) Snapshot() OutputSnapshot {
	return OutputSnapshot{
		Pin:           c.pin,
		Running:       c.running,
		Config:        c.cfg,
		Status:        c.status,
		TriggerActive: c.triggerActive,
		Delaying:      c.flagDelay,
		Driving:       c.flagDriveTime,
		TriggerPort:   c.triggerPort,
		Actions:       c.actions,
		WriteErrors:   c.writeErrors,
		Unsupported:   c.unsupported,
	}
}
