// Package status provides a thread-safe status tracker for the dio-controller daemon.
// It is read by the HTTP handlers and the MQTT heartbeat.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/dio-controller/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	Version     string
	PeriodUs    int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	Transport   string // e.g. "serial:/dev/ttyAMA0" or "unix:/run/dio.sock"
}

// Counters are monotonically increasing daemon counters.
type Counters struct {
	Ticks    uint64
	Dropped  uint64 // edge events not delivered to telemetry
	Requests uint64
	Failures uint64 // requests answered with NG
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Inputs        []logic.InputSnapshot
	Outputs       []logic.OutputSnapshot
	Counters      Counters
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Input returns the input on pin.
func (s Snapshot) Input(pin int) (logic.InputSnapshot, bool) {
	for _, in := range s.Inputs {
		if in.Pin == pin {
			return in, true
		}
	}
	return logic.InputSnapshot{}, false
}

// Output returns the output on pin.
func (s Snapshot) Output(pin int) (logic.OutputSnapshot, bool) {
	for _, out := range s.Outputs {
		if out.Pin == pin {
			return out, true
		}
	}
	return logic.OutputSnapshot{}, false
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update replaces the channel snapshots and counters.
// Called from runLoop on every status refresh.
func (t *Tracker) Update(inputs []logic.InputSnapshot, outputs []logic.OutputSnapshot, counters Counters) {
	t.mu.Lock()
	t.snap.Inputs = inputs
	t.snap.Outputs = outputs
	t.snap.Counters = counters
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Inputs = append([]logic.InputSnapshot(nil), t.snap.Inputs...)
	s.Outputs = append([]logic.OutputSnapshot(nil), t.snap.Outputs...)
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
