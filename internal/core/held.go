package core

import (
	"sync"
	"time"
)

// DefaultHold is how long a key counts as held after its last press.
// Terminals and highgui windows report presses and auto-repeat, never
// releases.
const DefaultHold = 250 * time.Millisecond

// HeldKeys turns key presses into held actions. Quit stays set once
// pressed. It is safe for concurrent use.
type HeldKeys struct {
	mu   sync.Mutex
	hold time.Duration
	now  func() time.Time
	last map[Action]time.Time
	quit bool
}

// NewHeldKeys creates a tracker with the given hold window.
func NewHeldKeys(hold time.Duration) *HeldKeys {
	return &HeldKeys{hold: hold, now: time.Now, last: make(map[Action]time.Time)}
}

// Press records a press of a.
func (h *HeldKeys) Press(a Action) {
	if a == ActionNone {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if a == ActionQuit {
		h.quit = true
		return
	}
	h.last[a] = h.now()
}

// Poll returns the actions pressed within the hold window.
func (h *HeldKeys) Poll() InputFrame {
	h.mu.Lock()
	defer h.mu.Unlock()
	f := NewInputFrame()
	if h.quit {
		f.Set(ActionQuit)
	}
	now := h.now()
	for a, at := range h.last {
		if now.Sub(at) <= h.hold {
			f.Set(a)
		}
	}
	return f
}
