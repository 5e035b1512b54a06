package monitor

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sweeney/musclemate/internal/config"
	"github.com/sweeney/musclemate/internal/control"
	"github.com/sweeney/musclemate/internal/gesture"
	"github.com/sweeney/musclemate/internal/workflow"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newModel() Model {
	return New(NewFeed(8), config.DefaultThresholds())
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	mm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return mm
}

func TestFeedNeverBlocks(t *testing.T) {
	f := NewFeed(1)
	f.Observe(control.Sample{Ch1: 1})
	f.Observe(control.Sample{Ch1: 2}) // dropped
	for i := 0; i < 32; i++ {
		f.Log("line")
	}

	if got := <-f.samples; got.Ch1 != 1 {
		t.Errorf("first sample kept: got %v", got.Ch1)
	}
	if len(f.samples) != 0 {
		t.Error("second sample should have been dropped")
	}
}

func TestSampleUpdatesContext(t *testing.T) {
	m := newModel()
	m = update(t, m, sampleMsg(control.Sample{
		Time:   t0,
		Ch1:    0.9,
		Intent: gesture.Start,
		Event:  workflow.Event{State: workflow.SelectBin, Intent: gesture.Start},
		Counts: gesture.IntentCounts{Start: 1},
	}))
	m = update(t, m, sampleMsg(control.Sample{
		Time:   t0.Add(20 * time.Millisecond),
		Ch1:    0.2,
		Intent: gesture.None,
		Event:  workflow.Event{State: workflow.SelectBin, SelectedBin: 1},
	}))

	if m.ticks != 2 {
		t.Errorf("ticks: got %d, want 2", m.ticks)
	}
	if m.last.SelectedBin != 1 {
		t.Errorf("bin: got %d, want 1", m.last.SelectedBin)
	}
	if len(m.logs) != 2 {
		t.Fatalf("logs: got %v, want intent and transition", m.logs)
	}
	if !strings.Contains(m.logs[0], "START") {
		t.Errorf("log[0] = %q", m.logs[0])
	}
	if !strings.Contains(m.logs[1], "IDLE -> SELECT_BIN") {
		t.Errorf("log[1] = %q", m.logs[1])
	}

	view := m.View()
	for _, want := range []string{"SELECT_BIN", "bin 1", "ch1 0.200"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestSampleWithoutIntentLogsNothing(t *testing.T) {
	tests := []struct {
		name   string
		intent gesture.Intent
	}{
		{"zero value", ""},
		{"none", gesture.None},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newModel()
			m = update(t, m, sampleMsg(control.Sample{
				Time:   t0,
				Intent: tt.intent,
				Event:  workflow.Event{State: workflow.Idle},
			}))
			if len(m.logs) != 0 {
				t.Errorf("logs: got %q, want none", m.logs)
			}
			if m.ticks != 1 {
				t.Errorf("ticks: got %d, want 1", m.ticks)
			}
		})
	}
}

func TestLogsAreBounded(t *testing.T) {
	m := newModel()
	for i := 0; i < maxLogs+3; i++ {
		m = update(t, m, logMsg("line"))
	}
	if len(m.logs) != maxLogs {
		t.Errorf("logs: got %d, want %d", len(m.logs), maxLogs)
	}
}

func TestStopped(t *testing.T) {
	tests := []struct {
		name string
		msg  StoppedMsg
		want string
	}{
		{"runtime", StoppedMsg{Reason: control.StopRuntime}, "stopped: RUNTIME"},
		{"error", StoppedMsg{Reason: control.StopError, Err: errors.New("servo timeout")}, "stopped: servo timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := update(t, newModel(), tt.msg)
			if m.logs[len(m.logs)-1] != tt.want {
				t.Errorf("log: got %q, want %q", m.logs[len(m.logs)-1], tt.want)
			}
			if !strings.Contains(m.View(), string(tt.msg.Reason)) {
				t.Error("view should show the stop reason")
			}
		})
	}
}

func TestQuitKey(t *testing.T) {
	m := newModel()
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
	if view := next.View(); view != "Monitor stopped.\n" {
		t.Errorf("view after quit: %q", view)
	}
}

func TestWindowResize(t *testing.T) {
	m := newModel()
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	w, h := m.chartSize()
	if w != 116 || h != 24 {
		t.Errorf("chart size: got %dx%d, want 116x24", w, h)
	}

	m = update(t, m, tea.WindowSizeMsg{Width: 20, Height: 10})
	w, h = m.chartSize()
	if w != 40 || h != 8 {
		t.Errorf("minimum chart size: got %dx%d, want 40x8", w, h)
	}
}
