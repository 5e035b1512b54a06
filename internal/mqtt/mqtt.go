// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/musclemate/internal/workflow"
)

// Topic is the MQTT topic for controller events.
const Topic = "musclemate/controller/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "musclemate/controller/system"

// TimestampFormat is RFC 3339 with millisecond precision.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// System event names.
const (
	EventStartup     = "STARTUP"
	EventShutdown    = "SHUTDOWN"
	EventReconnected = "RECONNECTED"
)

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a controller event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event workflow.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (startup, shutdown, reconnect).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN"
	Reason     string // e.g., "SIGTERM", "RUNTIME", "ERROR" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Controller ControllerPayload `json:"controller"`
}

// ControllerPayload contains one controller snapshot.
type ControllerPayload struct {
	Timestamp      string `json:"timestamp"`
	RunID          string `json:"run_id,omitempty"`
	State          string `json:"state"`
	Intent         string `json:"intent"`
	SelectedBin    int    `json:"selected_bin"`
	DoorOpen       bool   `json:"door_open"`
	LastGripClosed bool   `json:"last_grip_closed"`
}

// FormatPayload creates the JSON payload for a controller event.
func FormatPayload(event workflow.Event, runID string) ([]byte, error) {
	payload := Payload{
		Controller: ControllerPayload{
			Timestamp:      event.Timestamp.UTC().Format(TimestampFormat),
			RunID:          runID,
			State:          string(event.State),
			Intent:         string(event.Intent),
			SelectedBin:    event.SelectedBin,
			DoorOpen:       event.DoorOpen,
			LastGripClosed: event.LastGripClosed,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	RunID     string `json:"run_id,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent, runID string) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(TimestampFormat),
			RunID:     runID,
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
