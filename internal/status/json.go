package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/dio-controller/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Version       string       `json:"version"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Inputs        []InputJSON  `json:"inputs"`
	Outputs       []OutputJSON `json:"outputs"`
	Counters      CountersJSON `json:"counters"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// InputJSON is the JSON representation of one pulse input.
type InputJSON struct {
	Pin           int    `json:"pin"`
	Running       bool   `json:"running"`
	CountOnHigh   bool   `json:"count_on_high"`
	MinPulseWidth uint32 `json:"min_pulse_width"`
	MaxCount      uint32 `json:"max_count"`
	Count         uint32 `json:"count"`
	OnTimeS       uint32 `json:"on_time_s"`
	Level         bool   `json:"level"`
	RawLevel      bool   `json:"raw_level"`
	ReadErrors    uint32 `json:"read_errors"`
}

// OutputJSON is the JSON representation of one output controller.
type OutputJSON struct {
	Pin          int    `json:"pin"`
	Running      bool   `json:"running"`
	Function     string `json:"function"`
	Relation     string `json:"relation"`
	RelationPort *int   `json:"relation_port,omitempty"`
	TriggerPort  *int   `json:"trigger_port,omitempty"`
	Status       string `json:"status"`
	DefaultState bool   `json:"default_state"`
	DriveState   bool   `json:"drive_state"`
	Delaying     bool   `json:"delaying"`
	Driving      bool   `json:"driving"`
	Actions      uint32 `json:"actions"`
	WriteErrors  uint32 `json:"write_errors"`
	Unsupported  uint32 `json:"unsupported"`
}

// CountersJSON is the JSON representation of daemon counters.
type CountersJSON struct {
	Ticks    uint64 `json:"ticks"`
	Dropped  uint64 `json:"dropped_events"`
	Requests uint64 `json:"requests"`
	Failures uint64 `json:"failures"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PeriodUs    int64  `json:"period_us"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	Transport   string `json:"transport"`
}

// BuildInput converts an input snapshot to its JSON form.
func BuildInput(in logic.InputSnapshot) InputJSON {
	return InputJSON{
		Pin:           in.Pin,
		Running:       in.Running,
		CountOnHigh:   in.Config.CountOnHigh,
		MinPulseWidth: in.Config.MinPulseWidth,
		MaxCount:      in.Config.MaxCount,
		Count:         in.Count,
		OnTimeS:       in.OnTimeS,
		Level:         in.Level,
		RawLevel:      in.RawLevel,
		ReadErrors:    in.ReadErrors,
	}
}

// BuildOutput converts an output snapshot to its JSON form.
func BuildOutput(out logic.OutputSnapshot) OutputJSON {
	return OutputJSON{
		Pin:          out.Pin,
		Running:      out.Running,
		Function:     out.Config.Function.String(),
		Relation:     out.Config.Relation.String(),
		RelationPort: port(out.Config.RelationPort),
		TriggerPort:  port(out.TriggerPort),
		Status:       out.Status.String(),
		DefaultState: out.Config.DefaultState,
		DriveState:   out.Config.DriveState,
		Delaying:     out.Delaying,
		Driving:      out.Driving,
		Actions:      out.Actions,
		WriteErrors:  out.WriteErrors,
		Unsupported:  out.Unsupported,
	}
}

func port(p int) *int {
	if p == logic.NoPort {
		return nil
	}
	return &p
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Version:       snap.Config.Version,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Inputs:        make([]InputJSON, 0, len(snap.Inputs)),
		Outputs:       make([]OutputJSON, 0, len(snap.Outputs)),
		Counters: CountersJSON{
			Ticks:    snap.Counters.Ticks,
			Dropped:  snap.Counters.Dropped,
			Requests: snap.Counters.Requests,
			Failures: snap.Counters.Failures,
		},
		Config: ConfigJSON{
			PeriodUs:    snap.Config.PeriodUs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			Transport:   snap.Config.Transport,
		},
	}
	for _, in := range snap.Inputs {
		inner.Inputs = append(inner.Inputs, BuildInput(in))
	}
	for _, out := range snap.Outputs {
		inner.Outputs = append(inner.Outputs, BuildOutput(out))
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
