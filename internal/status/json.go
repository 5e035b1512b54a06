package status

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/sweeney/musclemate/internal/gesture"
	"github.com/sweeney/musclemate/internal/workflow"
)

// TimestampFormat is RFC 3339 with millisecond precision.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event          string         `json:"event,omitempty"`
	Reason         string         `json:"reason,omitempty"`
	RunID          string         `json:"run_id,omitempty"`
	State          string         `json:"state"`
	Intent         string         `json:"intent"`
	SelectedBin    int            `json:"selected_bin"`
	DoorOpen       bool           `json:"door_open"`
	LastGripClosed bool           `json:"last_grip_closed"`
	LastTick       string         `json:"last_tick,omitempty"`
	Channels       []ChannelJSON  `json:"channels"`
	Ticks          int            `json:"ticks"`
	UptimeSeconds  int64          `json:"uptime_seconds"`
	StartTime      string         `json:"start_time"`
	Timestamp      string         `json:"timestamp"`
	MQTT           MQTTStatus     `json:"mqtt"`
	IntentCounts   CountsJSON     `json:"intent_counts"`
	StateEntries   map[string]int `json:"state_entries"`
	Config         ConfigJSON     `json:"config"`
}

// ChannelJSON is one EMG channel. Value is null for NaN or infinite readings.
type ChannelJSON struct {
	Value   *float64 `json:"value"`
	Active  bool     `json:"active"`
	Latched bool     `json:"latched"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of emitted intent counts.
type CountsJSON struct {
	Start    int `json:"start"`
	Grip     int `json:"grip"`
	OpenDoor int `json:"open_door"`
	Abort    int `json:"abort"`
}

// ConfigJSON is the JSON representation of run config.
type ConfigJSON struct {
	LoopHz      float64 `json:"loop_hz"`
	RuntimeMs   int64   `json:"runtime_ms"`
	EMGOn       float64 `json:"emg_on"`
	EMGOff      float64 `json:"emg_off"`
	DebounceMs  int64   `json:"debounce_ms"`
	CooldownMs  int64   `json:"cooldown_ms"`
	LongPressMs int64   `json:"long_press_ms"`
	ArmDriver   string  `json:"arm_driver"`
	Source      string  `json:"source"`
	Broker      string  `json:"broker,omitempty"`
	HTTPAddr    string  `json:"http_addr,omitempty"`
}

// Build converts a snapshot to its JSON representation.
func Build(snap Snapshot) StatusInner {
	entries := make(map[string]int, len(snap.StateEntries))
	for _, s := range workflow.AllStates() {
		entries[string(s)] = snap.StateEntries[s]
	}

	var lastTick string
	if !snap.Event.Timestamp.IsZero() {
		lastTick = snap.Event.Timestamp.UTC().Format(TimestampFormat)
	}

	intent := string(snap.Event.Intent)
	if intent == "" {
		intent = string(gesture.None)
	}

	return StatusInner{
		RunID:          snap.Config.RunID,
		State:          string(snap.Event.State),
		Intent:         intent,
		SelectedBin:    snap.Event.SelectedBin,
		DoorOpen:       snap.Event.DoorOpen,
		LastGripClosed: snap.Event.LastGripClosed,
		LastTick:       lastTick,
		Channels: []ChannelJSON{
			{Value: finite(snap.Ch1), Active: snap.Channels[gesture.Ch1].Active, Latched: snap.Channels[gesture.Ch1].Latched},
			{Value: finite(snap.Ch2), Active: snap.Channels[gesture.Ch2].Active, Latched: snap.Channels[gesture.Ch2].Latched},
		},
		Ticks:         snap.Ticks,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		IntentCounts: CountsJSON{
			Start:    snap.IntentCounts.Start,
			Grip:     snap.IntentCounts.Grip,
			OpenDoor: snap.IntentCounts.OpenDoor,
			Abort:    snap.IntentCounts.Abort,
		},
		StateEntries: entries,
		Config: ConfigJSON{
			LoopHz:      snap.Config.LoopHz,
			RuntimeMs:   snap.Config.RuntimeMs,
			EMGOn:       snap.Config.EMGOn,
			EMGOff:      snap.Config.EMGOff,
			DebounceMs:  snap.Config.DebounceMs,
			CooldownMs:  snap.Config.CooldownMs,
			LongPressMs: snap.Config.LongPressMs,
			ArmDriver:   snap.Config.ArmDriver,
			Source:      snap.Config.Source,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// FormatJSON returns the indented JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(StatusJSON{Status: Build(snap)}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal status: %w", err)
	}
	return data, nil
}

// FormatCompact returns single-line JSON status for streaming.
func FormatCompact(snap Snapshot) ([]byte, error) {
	data, err := json.Marshal(StatusJSON{Status: Build(snap)})
	if err != nil {
		return nil, fmt.Errorf("marshal status: %w", err)
	}
	return data, nil
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) ([]byte, error) {
	inner := Build(snap)
	inner.Event = event
	inner.Reason = reason

	data, err := json.Marshal(StatusJSON{Status: inner})
	if err != nil {
		return nil, fmt.Errorf("marshal %s status: %w", event, err)
	}
	return data, nil
}
