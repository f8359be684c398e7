// Package tray provides a system tray interface for sonogest.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/sonogest/internal/control"
)

// Tray shows the current gesture and exposes mode, reset and quit controls.
type Tray struct {
	onToggleMode func() control.Mode
	onReset      func()
	onOpenPanel  func()
	onQuit       func()
	mode         control.Mode
	label        string
	mu           sync.RWMutex

	// Menu items stored for later updates
	menuMode        *systray.MenuItem
	menuLastGesture *systray.MenuItem
}

// New creates a Tray showing mode as the initial mapping mode.
func New(mode control.Mode) *Tray {
	return &Tray{mode: mode}
}

// OnToggleMode sets the callback for the mode menu item. It returns the new mode.
func (t *Tray) OnToggleMode(fn func() control.Mode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggleMode = fn
}

// OnReset sets the callback for the reset menu item.
func (t *Tray) OnReset(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReset = fn
}

// OnOpenPanel sets the callback for the open panel menu item.
func (t *Tray) OnOpenPanel(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpenPanel = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops the tray loop started by Run.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
func (t *Tray) onReady() {
	systray.SetTitle("sonogest")
	systray.SetTooltip("sonogest gesture control")

	t.mu.Lock()
	t.menuMode = systray.AddMenuItem(modeTitle(t.mode), "Switch between gesture and ambient mapping")
	systray.AddSeparator()

	t.menuLastGesture = systray.AddMenuItem(lastTitle(t.label), "Current gesture")
	t.menuLastGesture.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuReset := systray.AddMenuItem("Reset Knobs", "Restore the baseline knob values")
	menuPanel := systray.AddMenuItem("Open Panel...", "Open the control panel in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit sonogest")

	go func() {
		for {
			select {
			case <-t.menuMode.ClickedCh:
				t.handleToggleMode()
			case <-menuReset.ClickedCh:
				t.call(func() func() { return t.onReset })
			case <-menuPanel.ClickedCh:
				t.call(func() func() { return t.onOpenPanel })
			case <-menuQuit.ClickedCh:
				t.call(func() func() { return t.onQuit })
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// handleToggleMode runs the mode callback and shows the mode it returns.
func (t *Tray) handleToggleMode() {
	t.mu.RLock()
	callback := t.onToggleMode
	t.mu.RUnlock()

	if callback == nil {
		return
	}
	t.SetMode(callback())
}

// call runs the callback selected under the read lock.
func (t *Tray) call(pick func() func()) {
	t.mu.RLock()
	callback := pick()
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// SetMode updates the mode menu item.
func (t *Tray) SetMode(m control.Mode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mode = m
	if t.menuMode != nil {
		t.menuMode.SetTitle(modeTitle(m))
	}
}

// SetLastGesture updates the last gesture display in the menu.
func (t *Tray) SetLastGesture(label string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if label == t.label {
		return
	}
	t.label = label
	if t.menuLastGesture != nil {
		t.menuLastGesture.SetTitle(lastTitle(label))
	}
}

// Publish follows state updates. It has the control.Listener signature.
func (t *Tray) Publish(snap control.Snapshot) {
	t.SetLastGesture(snap.Label)
	if m, ok := control.ParseMode(snap.Mode); ok && m != t.Mode() {
		t.SetMode(m)
	}
}

// Mode returns the mode currently shown.
func (t *Tray) Mode() control.Mode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mode
}

// LastGesture returns the label currently shown.
func (t *Tray) LastGesture() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.label
}

func modeTitle(m control.Mode) string {
	if m == control.ModeGesture {
		return "● Gesture Mode"
	}
	return "○ Ambient Mode"
}

func lastTitle(label string) string {
	if label == "" {
		return "Last: none"
	}
	return "Last: " + label
}
