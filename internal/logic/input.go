package logic

// PulseInput debounces one input pin, counts qualifying edges and
// accumulates the time the pin is held high.
type PulseInput struct {
	pin    int
	reader LevelReader
	cfg    InputConfig

	prevLevel    bool // last sampled level, the debounce baseline
	currentLevel bool // raw level of the most recent sample
	settledLevel bool // level after debounce
	rising       bool // direction of the edge being debounced
	elapsed      uint32
	settled      bool

	count    uint32
	onTimeMs uint32
	onTimeS  uint32

	running    bool
	readErrors uint32
}

// InputSnapshot is a point-in-time copy of a PulseInput.
type InputSnapshot struct {
	Pin        int
	Running    bool
	Config     InputConfig
	Count      uint32
	OnTimeS    uint32
	OnTimeMs   uint32
	Level      bool
	RawLevel   bool
	ReadErrors uint32
}

// NewPulseInput creates a stopped input bound to pin.
func NewPulseInput(pin int, reader LevelReader) PulseInput {
	return PulseInput{pin: pin, reader: reader}
}

// Pin returns the bound pin id.
func (p *PulseInput) Pin() int { return p.pin }

// Count returns the pulse count.
func (p *PulseInput) Count() uint32 { return p.count }

// OnTimeSeconds returns the accumulated high time in whole seconds.
func (p *PulseInput) OnTimeSeconds() uint32 { return p.onTimeS }

// Level returns the debounced level.
func (p *PulseInput) Level() bool { return p.settledLevel }

// RawLevel returns the level of the most recent sample, false before the
// first sample.
func (p *PulseInput) RawLevel() bool { return p.currentLevel }

// Running reports whether the input is ticked.
func (p *PulseInput) Running() bool { return p.running }

// Config returns the installed configuration.
func (p *PulseInput) Config() InputConfig { return p.cfg }

// ReadErrors returns the number of samples lost to read failures.
func (p *PulseInput) ReadErrors() uint32 { return p.readErrors }

// Configure installs cfg and starts the input. The count is kept.
// The baseline is pre-armed with the counting polarity so that a pin
// already sitting at that level is not counted.
func (p *PulseInput) Configure(cfg InputConfig) {
	p.cfg = cfg
	p.prevLevel = cfg.CountOnHigh
	p.rising = !cfg.CountOnHigh
	p.running = true
}

// Reset sets the count to initValue and clears the debounce state
// and the on-time accumulator. The run state is preserved.
func (p *PulseInput) Reset(initValue uint32) {
	wasRunning := p.running
	p.running = false

	p.count = initValue
	p.prevLevel = p.cfg.CountOnHigh
	p.rising = !p.cfg.CountOnHigh
	p.onTimeMs = 0
	p.onTimeS = 0
	p.elapsed = 0
	p.settled = false

	p.running = wasRunning
}

// Tick samples the pin once and advances the debounce state machine.
// A failed read loses the sample.
func (p *PulseInput) Tick() Edge {
	level, err := p.reader.Read(p.pin)
	if err != nil {
		p.readErrors++
		return EdgeNone
	}
	p.currentLevel = level

	if level != p.prevLevel {
		// restart the settle window
		p.elapsed = 0
		p.settled = false
		p.rising = !p.prevLevel
		p.prevLevel = level
		return EdgeNone
	}

	if !p.settled {
		p.elapsed++
		if p.elapsed <= p.cfg.MinPulseWidth {
			return EdgeNone
		}
		p.settledLevel = p.prevLevel
		edge := EdgeSettled
		if p.rising == p.cfg.CountOnHigh {
			if p.count >= p.cfg.MaxCount {
				p.count = 0
			}
			p.count++
			edge = EdgeCounted
		}
		p.elapsed = 0
		p.settled = true
		return edge
	}

	if p.rising {
		p.onTimeMs++
		if p.onTimeMs > OnTimeUnit {
			p.onTimeS += p.onTimeMs / OnTimeUnit
			p.onTimeMs %= OnTimeUnit
		}
	}
	return EdgeNone
}

// Snapshot returns a copy of the input state.
func (p *PulseInput) Snapshot() InputSnapshot {
	return InputSnapshot{
		Pin:        p.pin,
		Running:    p.running,
		Config:     p.cfg,
		Count:      p.count,
		OnTimeS:    p.onTimeS,
		OnTimeMs:   p.onTimeMs,
		Level:      p.settledLevel,
		RawLevel:   p.currentLevel,
		ReadErrors: p.readErrors,
	}
}
