package client

import (
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func TestSuppressorStartsDisarmed(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	s := newReorderSuppressor(time.Second, clock.Now)

	if s.Armed() {
		t.Fatal("expected disarmed before Arm")
	}
}

func TestSuppressorArmsForWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	s := newReorderSuppressor(time.Second, clock.Now)

	s.Arm()
	if !s.Armed() {
		t.Fatal("expected armed immediately after Arm")
	}

	// Just inside the window: the client's own broadcast arriving now is
	// still ignored.
	clock.Advance(999 * time.Millisecond)
	if !s.Armed() {
		t.Fatal("expected armed just before expiry")
	}

	// At the deadline the flag disarms itself; a notification arriving now
	// triggers a reload.
	clock.Advance(time.Millisecond)
	if s.Armed() {
		t.Fatal("expected disarmed at expiry")
	}
}

func TestSuppressorRearmExtendsDeadline(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	s := newReorderSuppressor(time.Second, clock.Now)

	s.Arm()
	clock.Advance(900 * time.Millisecond)
	s.Arm()
	clock.Advance(900 * time.Millisecond)
	if !s.Armed() {
		t.Fatal("expected rearm to extend the window")
	}
	clock.Advance(101 * time.Millisecond)
	if s.Armed() {
		t.Fatal("expected disarmed after extended window")
	}
}
