// Package mqtt publishes input edges and lifecycle events to an MQTT
// broker, with an abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/dio-controller/internal/scheduler"
)

// Topic is the MQTT topic for input edge events.
const Topic = "dio/controller/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "dio/controller/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends an input edge event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event EdgeEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// EdgeEvent is a settled input edge stamped with wall-clock time.
type EdgeEvent struct {
	Timestamp time.Time
	scheduler.Event
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Input InputPayload `json:"input"`
}

// InputPayload contains the edge event details.
type InputPayload struct {
	Timestamp string `json:"timestamp"`
	Pin       int    `json:"pin"`
	Edge      string `json:"edge"`
	Level     bool   `json:"level"`
	Count     uint32 `json:"count"`
	OnTimeS   uint32 `json:"on_time_s"`
	Tick      uint64 `json:"tick"`
}

// FormatPayload creates the JSON payload for an edge event.
func FormatPayload(event EdgeEvent) ([]byte, error) {
	payload := Payload{
		Input: InputPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Pin:       event.Pin,
			Edge:      event.Edge.String(),
			Level:     event.Level,
			Count:     event.Count,
			OnTimeS:   event.OnTimeS,
			Tick:      event.Tick,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (OFFLINE, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{
		Event:  event.Event,
		Reason: event.Reason,
	}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}

// WillPayload is the retained message the broker publishes on TopicSystem
// when the connection drops uncleanly.
func WillPayload() []byte {
	data, _ := FormatSystemPayload(SystemEvent{Event: "OFFLINE", Reason: "connection lost"})
	return data
}
