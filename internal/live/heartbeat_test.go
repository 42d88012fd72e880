package live

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func countEvents(events []Event, eventType string) int {
	n := 0
	for _, ev := range events {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

func TestHeartbeatEmitsAndStops(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	sub := &fakeSubscriber{}
	reg.Subscribe("c1", sub)

	s := NewHeartbeatScheduler(reg, 5*time.Millisecond, time.Hour, zap.NewNop())
	s.Start("c1")
	time.Sleep(40 * time.Millisecond)
	s.Stop("c1")

	got := countEvents(sub.received(), EventHeartbeat)
	if got == 0 {
		t.Fatal("expected heartbeat events while running")
	}

	time.Sleep(20 * time.Millisecond)
	after := countEvents(sub.received(), EventHeartbeat)
	time.Sleep(20 * time.Millisecond)
	if final := countEvents(sub.received(), EventHeartbeat); final != after {
		t.Fatalf("heartbeats continued after stop: %d -> %d", after, final)
	}
}

func TestHeartbeatLifetimeForcesStop(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	sub := &fakeSubscriber{}
	reg.Subscribe("c1", sub)

	s := NewHeartbeatScheduler(reg, 5*time.Millisecond, 30*time.Millisecond, zap.NewNop())
	s.Start("c1")

	// Never call Stop: the lifetime timer must kill it on its own.
	time.Sleep(100 * time.Millisecond)
	if s.Running("c1") {
		t.Fatal("heartbeat still running after lifetime elapsed")
	}

	before := countEvents(sub.received(), EventHeartbeat)
	time.Sleep(30 * time.Millisecond)
	if after := countEvents(sub.received(), EventHeartbeat); after != before {
		t.Fatalf("immortal timer: heartbeats continued %d -> %d", before, after)
	}
}

func TestExtendResetsOnlyLifetime(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	sub := &fakeSubscriber{}
	reg.Subscribe("c1", sub)

	s := NewHeartbeatScheduler(reg, 5*time.Millisecond, 60*time.Millisecond, zap.NewNop())
	s.Start("c1")

	time.Sleep(40 * time.Millisecond)
	s.Extend("c1")

	// Without the extend the heartbeat would have died at 60ms.
	time.Sleep(40 * time.Millisecond)
	if !s.Running("c1") {
		t.Fatal("extend did not postpone the lifetime")
	}

	time.Sleep(100 * time.Millisecond)
	if s.Running("c1") {
		t.Fatal("extended heartbeat never expired")
	}
	s.Stop("c1")
}

func TestExtendWhenNotRunningIsNoop(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	s := NewHeartbeatScheduler(reg, 5*time.Millisecond, time.Hour, zap.NewNop())

	s.Extend("c1")
	if s.Running("c1") {
		t.Fatal("extend must not start a heartbeat")
	}
}

func TestStartIsIdempotentRestart(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	s := NewHeartbeatScheduler(reg, 5*time.Millisecond, 50*time.Millisecond, zap.NewNop())

	s.Start("c1")
	time.Sleep(35 * time.Millisecond)
	s.Start("c1")

	// The restart reset the lifetime clock, so it survives past the
	// original deadline.
	time.Sleep(35 * time.Millisecond)
	if !s.Running("c1") {
		t.Fatal("restart did not reset the bounded lifetime")
	}
	s.Stop("c1")
}

func TestStopWhenNotRunningIsSafe(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	s := NewHeartbeatScheduler(reg, time.Second, time.Hour, zap.NewNop())
	s.Stop("never-started")
}
