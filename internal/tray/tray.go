// Package tray provides a system tray interface for switching try-on mode.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/footfit/internal/tracking"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle   func(active bool) error
	onSettings func()
	onQuit     func()
	active     bool
	status     tracking.Status
	ready      bool
	quitting   bool
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuStatus *systray.MenuItem
}

// New creates a new Tray with try-on mode off.
func New() *Tray {
	return &Tray{
		status: tracking.SearchingStatus(),
	}
}

// OnToggle sets the callback run when try-on mode is switched from the menu.
// A callback error leaves the previous state in place.
func (t *Tray) OnToggle(fn func(active bool) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
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

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Footfit")
	systray.SetTooltip("Footfit virtual try-on")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.active), "Start or stop try-on mode")
	systray.AddSeparator()

	t.menuStatus = systray.AddMenuItem(statusTitle(t.status), "Tracking status")
	t.menuStatus.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Footfit")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()

	t.mu.Lock()
	t.ready = true
	quit := t.quitting
	t.mu.Unlock()
	if quit {
		systray.Quit()
	}
}

func (t *Tray) onExit() {}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.RLock()
	next := !t.active
	callback := t.onToggle
	t.mu.RUnlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		if err := callback(next); err != nil {
			return
		}
	}

	t.SetActive(next)
}

// handleSettings handles the settings menu item click.
func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// Quit ends the tray event loop started by Run. Called before the menu is ready,
// the loop ends as soon as it starts.
func (t *Tray) Quit() {
	t.mu.Lock()
	ready := t.ready
	t.quitting = true
	t.mu.Unlock()

	if ready {
		systray.Quit()
	}
}

// SetActive updates the toggle to reflect try-on mode changed elsewhere.
func (t *Tray) SetActive(active bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.active = active
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(active))
	}
}

// SetStatus updates the status line in the menu.
func (t *Tray) SetStatus(s tracking.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status = s
	if t.menuStatus != nil {
		t.menuStatus.SetTitle(statusTitle(s))
	}
}

// IsActive returns whether try-on mode is on.
func (t *Tray) IsActive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.active
}

func toggleTitle(active bool) string {
	if active {
		return "● Try-on on"
	}
	return "○ Try-on off"
}

func statusTitle(s tracking.Status) string {
	switch s.State {
	case tracking.FeetLocked:
		return "✓ " + s.Message
	case tracking.Error:
		return "⚠ " + s.Message
	default:
		return "… " + s.Message
	}
}
