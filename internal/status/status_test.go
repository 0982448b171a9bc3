package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/dio-controller/internal/logic"
)

func testInputs() []logic.InputSnapshot {
	return []logic.InputSnapshot{
		{Pin: 22, Running: true, Config: logic.InputConfig{CountOnHigh: true, MinPulseWidth: 5, MaxCount: 10}, Count: 7, OnTimeS: 42, Level: true, RawLevel: true},
		{Pin: 27},
	}
}

func testOutputs() []logic.OutputSnapshot {
	return []logic.OutputSnapshot{
		{
			Pin:     18,
			Running: true,
			Config: logic.OutputConfig{
				Function:     logic.FunctionRelation,
				Relation:     logic.RelationInterlock,
				RelationPort: 22,
				DriveState:   true,
			},
			Status:      logic.StatusStarted,
			TriggerPort: 27,
			Actions:     3,
		},
		{Pin: 19, Config: logic.OutputConfig{RelationPort: logic.NoPort}, TriggerPort: logic.NoPort},
	}
}

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{Version: "ver1.1.0", PeriodUs: 1000, Broker: "tcp://localhost:1883", HTTPAddr: ":80"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.PeriodUs != 1000 {
		t.Errorf("Config.PeriodUs: got %d, want 1000", snap.Config.PeriodUs)
	}
	if snap.Config.HTTPAddr != ":80" {
		t.Errorf("Config.HTTPAddr: got %q, want %q", snap.Config.HTTPAddr, ":80")
	}
	if len(snap.Inputs) != 0 || len(snap.Outputs) != 0 {
		t.Error("expected no channels initially")
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.Update(testInputs(), testOutputs(), Counters{Ticks: 1000, Requests: 4, Failures: 1})

	snap := tr.Snapshot()
	in, ok := snap.Input(22)
	if !ok {
		t.Fatal("input 22 missing")
	}
	if in.Count != 7 {
		t.Errorf("Count: got %d, want 7", in.Count)
	}
	if _, ok := snap.Input(18); ok {
		t.Error("pin 18 is not an input")
	}
	out, ok := snap.Output(18)
	if !ok {
		t.Fatal("output 18 missing")
	}
	if out.Status != logic.StatusStarted {
		t.Errorf("Status: got %v, want Started", out.Status)
	}
	if snap.Counters.Ticks != 1000 || snap.Counters.Failures != 1 {
		t.Errorf("Counters: got %+v", snap.Counters)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Config{})

	before := time.Now()
	snap := tr.Snapshot()
	after := time.Now()

	if snap.Now.Before(before) || snap.Now.After(after) {
		t.Errorf("Now (%v) not between %v and %v", snap.Now, before, after)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	inputs := testInputs()
	tr.Update(inputs, testOutputs(), Counters{})

	snap1 := tr.Snapshot()
	snap1.Inputs[0].Count = 99

	if in, _ := tr.Snapshot().Input(22); in.Count != 7 {
		t.Error("snapshot should be a copy; Count was modified")
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Inputs:        testInputs(),
		Outputs:       testOutputs(),
		Counters:      Counters{Ticks: 900000, Dropped: 2, Requests: 10, Failures: 3},
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{Version: "ver1.1.0", PeriodUs: 1000, HeartbeatMs: 900000, Broker: "tcp://localhost:1883", HTTPAddr: ":80", Transport: "serial:/dev/ttyAMA0"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	s := parsed.Status
	if s.Version != "ver1.1.0" {
		t.Errorf("Version: got %q, want ver1.1.0", s.Version)
	}
	if s.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", s.UptimeSeconds)
	}
	if !s.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if len(s.Inputs) != 2 || s.Inputs[0].Count != 7 || s.Inputs[0].OnTimeS != 42 {
		t.Errorf("Inputs: got %+v", s.Inputs)
	}
	if len(s.Outputs) != 2 {
		t.Fatalf("Outputs: got %d, want 2", len(s.Outputs))
	}
	if s.Outputs[0].Function != "RELATION" || s.Outputs[0].Relation != "INTERLOCK" || s.Outputs[0].Status != "STARTED" {
		t.Errorf("Outputs[0]: got %+v", s.Outputs[0])
	}
	if s.Counters.Dropped != 2 || s.Counters.Failures != 3 {
		t.Errorf("Counters: got %+v", s.Counters)
	}
	if s.Config.Transport != "serial:/dev/ttyAMA0" {
		t.Errorf("Config.Transport: got %q", s.Config.Transport)
	}
	// Event and Reason should be omitted
	if s.Event != "" {
		t.Errorf("expected empty Event for web format, got %q", s.Event)
	}
	if s.Reason != "" {
		t.Errorf("expected empty Reason for web format, got %q", s.Reason)
	}
}

func TestFormatJSONPorts(t *testing.T) {
	snap := Snapshot{
		Outputs:   testOutputs(),
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(FormatJSON(snap), &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	outputs := raw["status"].(map[string]interface{})["outputs"].([]interface{})

	first := outputs[0].(map[string]interface{})
	if first["relation_port"] != float64(22) || first["trigger_port"] != float64(27) {
		t.Errorf("ports: got %v / %v, want 22 / 27", first["relation_port"], first["trigger_port"])
	}
	second := outputs[1].(map[string]interface{})
	if _, exists := second["relation_port"]; exists {
		t.Error("relation_port should be omitted when unset")
	}
	if _, exists := second["trigger_port"]; exists {
		t.Error("trigger_port should be omitted when unset")
	}
}

func TestFormatJSONEmptyChannels(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	var raw map[string]interface{}
	json.Unmarshal(FormatJSON(snap), &raw)
	status := raw["status"].(map[string]interface{})
	if _, ok := status["inputs"].([]interface{}); !ok {
		t.Errorf("inputs: got %v, want empty array", status["inputs"])
	}
}

func TestFormatStatusEvent(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Inputs:        testInputs(),
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "HEARTBEAT", "")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "HEARTBEAT" {
		t.Errorf("Event: got %q, want HEARTBEAT", parsed.Status.Event)
	}
	if parsed.Status.Reason != "" {
		t.Errorf("Reason: got %q, want empty", parsed.Status.Reason)
	}
	if parsed.Status.Inputs[0].Pin != 22 {
		t.Errorf("Inputs[0].Pin: got %d, want 22", parsed.Status.Inputs[0].Pin)
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
}

func TestFormatStatusEventShutdown(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(30 * time.Minute),
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatStatusEvent(snap, "STARTUP", "")

	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", status["event"])
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	// Writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(testInputs(), testOutputs(), Counters{Ticks: uint64(i)})
			tr.SetMQTTConnected(i%2 == 0)
		}
	}()

	// Reader
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
			_ = FormatJSON(snap)
		}
	}()

	wg.Wait()
}
