// Package tray provides a system tray menu for the rfbviz annotation visualizer.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray represents the system tray application.
type Tray struct {
	onOpen              func()
	onToggleAggregation func() (string, error)
	onQuit              func()
	aggregation         string
	mu                  sync.RWMutex

	// Menu items stored for later updates
	menuAggregation *systray.MenuItem
	menuLast        *systray.MenuItem
}

// New creates a new Tray showing the given aggregation.
func New(aggregation string) *Tray {
	return &Tray{
		aggregation: aggregation,
	}
}

// OnOpen sets the callback called when the open menu item is clicked.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnToggleAggregation sets the callback called when the aggregation item is
// clicked. It returns the aggregation now in effect.
func (t *Tray) OnToggleAggregation(fn func() (string, error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggleAggregation = fn
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

// Quit stops a running tray.
func (t *Tray) Quit() {
	systray.Quit()
}

func aggregationTitle(aggregation string) string {
	return "Aggregation: " + aggregation
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("rfbviz")
	systray.SetTooltip("RFB annotation visualizer")

	menuOpen := systray.AddMenuItem("Open Visualizer...", "Open the visualizer in a browser")
	systray.AddSeparator()

	t.mu.Lock()
	t.menuAggregation = systray.AddMenuItem(aggregationTitle(t.aggregation), "Switch between product and average tables")
	t.menuLast = systray.AddMenuItem("Last adjudicated: none", "Most recently adjudicated instance")
	t.menuLast.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit rfbviz")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-t.menuAggregation.ClickedCh:
				t.handleToggleAggregation()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleToggleAggregation runs the toggle callback and shows its result.
// The label is left unchanged when the callback fails.
func (t *Tray) handleToggleAggregation() {
	t.mu.RLock()
	callback := t.onToggleAggregation
	t.mu.RUnlock()

	if callback == nil {
		return
	}

	// Call the callback outside the lock to prevent deadlocks
	aggregation, err := callback()
	if err != nil {
		return
	}
	t.SetAggregation(aggregation)
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetAggregation updates the aggregation shown in the menu.
func (t *Tray) SetAggregation(aggregation string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.aggregation = aggregation
	if t.menuAggregation != nil {
		t.menuAggregation.SetTitle(aggregationTitle(aggregation))
	}
}

// SetLastAdjudicated updates the last adjudicated instance shown in the menu.
func (t *Tray) SetLastAdjudicated(instanceID string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuLast != nil {
		if instanceID == "" {
			t.menuLast.SetTitle("Last adjudicated: none")
		} else {
			t.menuLast.SetTitle("Last adjudicated: " + instanceID)
		}
	}
}

// Aggregation returns the aggregation currently shown.
func (t *Tray) Aggregation() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.aggregation
}
