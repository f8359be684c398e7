package tray

import (
	"testing"

	"github.com/ayusman/sonogest/internal/control"
)

func TestTitles(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{modeTitle(control.ModeGesture), "● Gesture Mode"},
		{modeTitle(control.ModeAmbient), "○ Ambient Mode"},
		{lastTitle(""), "Last: none"},
		{lastTitle("PITCH (70%)"), "Last: PITCH (70%)"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("title = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestTray_StateBeforeRun(t *testing.T) {
	tr := New(control.ModeAmbient)

	tr.Publish(control.Snapshot{Label: "REVERB"})
	if got := tr.LastGesture(); got != "REVERB" {
		t.Errorf("LastGesture() = %q, want REVERB", got)
	}

	tr.SetMode(control.ModeGesture)
	if tr.Mode() != control.ModeGesture {
		t.Errorf("Mode() = %v, want gesture", tr.Mode())
	}
}

func TestTray_ToggleCallback(t *testing.T) {
	tr := New(control.ModeAmbient)

	// No callback set: the mode stays put.
	tr.handleToggleMode()
	if tr.Mode() != control.ModeAmbient {
		t.Errorf("Mode() = %v without callback, want ambient", tr.Mode())
	}

	tr.OnToggleMode(func() control.Mode { return control.ModeGesture })
	tr.handleToggleMode()
	if tr.Mode() != control.ModeGesture {
		t.Errorf("Mode() = %v after toggle, want gesture", tr.Mode())
	}

	called := false
	tr.OnReset(func() { called = true })
	tr.call(func() func() { return tr.onReset })
	if !called {
		t.Error("reset callback was not called")
	}
}

func TestTray_PublishFollowsMode(t *testing.T) {
	tr := New(control.ModeAmbient)

	tr.Publish(control.Snapshot{Label: "NO GESTURE", Mode: "gesture"})
	if tr.Mode() != control.ModeGesture {
		t.Errorf("Mode() = %v after gesture snapshot, want gesture", tr.Mode())
	}

	tr.Publish(control.Snapshot{Label: "NO GESTURE", Mode: "ambient"})
	if tr.Mode() != control.ModeAmbient {
		t.Errorf("Mode() = %v after ambient snapshot, want ambient", tr.Mode())
	}

	// A snapshot without a mode leaves the display alone.
	tr.Publish(control.Snapshot{Label: "REVERB"})
	if tr.Mode() != control.ModeAmbient {
		t.Errorf("Mode() = %v after empty mode, want ambient", tr.Mode())
	}
}
