package client

import (
	"sync"
	"time"
)

// reorderSuppressor is the armed/disarmed deadline state machine that hides
// a client's own reorder broadcast. Arming sets a deadline one suppress
// window ahead; the flag disarms itself when the deadline passes. The state
// is client-local and never transmitted.
type reorderSuppressor struct {
	mu         sync.Mutex
	window     time.Duration
	clock      func() time.Time
	armedUntil time.Time
}

func newReorderSuppressor(window time.Duration, clock func() time.Time) *reorderSuppressor {
	if clock == nil {
		clock = time.Now
	}
	return &reorderSuppressor{window: window, clock: clock}
}

// Arm starts (or restarts) the suppress window.
func (s *reorderSuppressor) Arm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armedUntil = s.clock().Add(s.window)
}

// Armed reports whether the window is still open.
func (s *reorderSuppressor) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock().Before(s.armedUntil)
}
