// Package tray provides the system tray interface for the Fivesense
// emergency alert daemon.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray is the daemon's system tray presence: a manual panic button, the
// detection toggle and a live status line.
type Tray struct {
	onTrigger func()
	onToggle  func(enabled bool)
	onQuit    func()
	enabled   bool
	mu        sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuStatus *systray.MenuItem
}

// New creates a new Tray instance with detection enabled by default.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnTrigger sets the callback for the manual emergency menu item.
func (t *Tray) OnTrigger(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onTrigger = fn
}

// OnToggle sets the callback function to be called when the enabled state is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
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
	systray.SetTitle("Fivesense")
	systray.SetTooltip("Fivesense Emergency Alerts")

	menuTrigger := systray.AddMenuItem("Trigger Emergency", "Send an emergency alert now")
	systray.AddSeparator()

	t.menuToggle = systray.AddMenuItem("● Detection on", "Toggle gesture detection")
	systray.AddSeparator()

	t.menuStatus = systray.AddMenuItem("Status: idle", "Current trigger status")
	t.menuStatus.Disable()
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Fivesense")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-menuTrigger.ClickedCh:
				t.handleTrigger()
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {
}

// handleTrigger handles the manual emergency menu item click.
func (t *Tray) handleTrigger() {
	t.mu.RLock()
	callback := t.onTrigger
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled

	// Update menu item text based on new state
	if enabled {
		t.menuToggle.SetTitle("● Detection on")
	} else {
		t.menuToggle.SetTitle("○ Detection off")
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
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

// SetStatus updates the status line in the menu.
func (t *Tray) SetStatus(text string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuStatus != nil {
		if text == "" {
			text = "idle"
		}
		t.menuStatus.SetTitle("Status: " + text)
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}
