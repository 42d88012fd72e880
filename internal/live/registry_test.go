package live

import (
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
)

type fakeSubscriber struct {
	mu     sync.Mutex
	events []Event
	fail   bool
}

func (f *fakeSubscriber) Send(ev Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("connection closed")
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeSubscriber) received() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Event, len(f.events))
	copy(out, f.events)
	return out
}

func TestBroadcastDeliversToAllSubscribers(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	a := &fakeSubscriber{}
	b := &fakeSubscriber{}
	reg.Subscribe("c1", a)
	reg.Subscribe("c1", b)

	reg.Broadcast("c1", TextDelta("Hi"))
	reg.Broadcast("c1", TextDelta(" there"))

	for _, sub := range []*fakeSubscriber{a, b} {
		got := sub.received()
		if len(got) != 2 {
			t.Fatalf("expected 2 events, got %d", len(got))
		}
		if got[0].Content != "Hi" || got[1].Content != " there" {
			t.Fatalf("events out of order: %+v", got)
		}
	}
}

func TestBroadcastPrunesFailedSubscribers(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	healthy := &fakeSubscriber{}
	dead := &fakeSubscriber{fail: true}
	reg.Subscribe("c1", healthy)
	reg.Subscribe("c1", dead)

	reg.Broadcast("c1", TextDelta("x"))

	if n := reg.Subscribers("c1"); n != 1 {
		t.Fatalf("expected 1 subscriber after prune, got %d", n)
	}
	if len(healthy.received()) != 1 {
		t.Fatal("healthy subscriber should still receive the event")
	}

	reg.Broadcast("c1", TextDelta("y"))
	if len(healthy.received()) != 2 {
		t.Fatal("healthy subscriber missed event after prune")
	}
}

func TestSubscribeSameChannelTwiceNoDuplicateDelivery(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	sub := &fakeSubscriber{}
	reg.Subscribe("c1", sub)
	reg.Subscribe("c1", sub)

	reg.Broadcast("c1", TextDelta("once"))

	if got := sub.received(); len(got) != 1 {
		t.Fatalf("expected exactly 1 delivery, got %d", len(got))
	}
}

func TestBroadcastUnknownChatIsNoop(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	reg.Broadcast("missing", Heartbeat())
}

func TestUnsubscribeLastFiresIdleHook(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	var idled []string
	reg.OnIdle(func(chatID string) { idled = append(idled, chatID) })

	a := &fakeSubscriber{}
	b := &fakeSubscriber{}
	reg.Subscribe("c1", a)
	reg.Subscribe("c1", b)

	reg.Unsubscribe("c1", a)
	if len(idled) != 0 {
		t.Fatal("idle hook fired while a subscriber remained")
	}

	reg.Unsubscribe("c1", b)
	if len(idled) != 1 || idled[0] != "c1" {
		t.Fatalf("expected idle hook for c1, got %v", idled)
	}
	if n := reg.Subscribers("c1"); n != 0 {
		t.Fatalf("expected empty set to be dropped, got %d", n)
	}
}

func TestSubscribeRacingDropLandsInLiveSet(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	old := &fakeSubscriber{}
	reg.Subscribe("c1", old)

	reg.mu.RLock()
	stale := reg.chats["c1"]
	reg.mu.RUnlock()

	reg.Unsubscribe("c1", old)

	stale.mu.Lock()
	dead := stale.dead
	stale.mu.Unlock()
	if !dead {
		t.Fatal("dropped set not marked dead, a racing Subscribe could still add to it")
	}

	replacement := &fakeSubscriber{}
	reg.Subscribe("c1", replacement)

	reg.Broadcast("c1", TextDelta("after"))
	if got := replacement.received(); len(got) != 1 || got[0].Content != "after" {
		t.Fatalf("subscriber added during drop missed delivery: %+v", got)
	}
}

func TestConcurrentSubscribeUnsubscribeNeverLosesDelivery(t *testing.T) {
	reg := NewRegistry(zap.NewNop())

	for i := 0; i < 500; i++ {
		old := &fakeSubscriber{}
		reg.Subscribe("c1", old)

		incoming := &fakeSubscriber{}
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			reg.Unsubscribe("c1", old)
		}()
		go func() {
			defer wg.Done()
			reg.Subscribe("c1", incoming)
		}()
		wg.Wait()

		reg.Broadcast("c1", TextDelta("x"))
		if len(incoming.received()) != 1 {
			t.Fatalf("iteration %d: new subscriber lost to a concurrent drop", i)
		}
		reg.Unsubscribe("c1", incoming)
	}
}

func TestPruneOfLastSubscriberFiresIdleHook(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	var idled int
	reg.OnIdle(func(string) { idled++ })

	reg.Subscribe("c1", &fakeSubscriber{fail: true})
	reg.Broadcast("c1", TextDelta("x"))

	if idled != 1 {
		t.Fatalf("expected idle hook after pruning last subscriber, got %d", idled)
	}
}
