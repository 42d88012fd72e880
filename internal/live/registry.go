package live

import (
	"sync"

	"go.uber.org/zap"
)

// Subscriber receives events for a chat it subscribed to. Send returns an
// error when the underlying transport is gone; the registry treats that
// subscriber as dead and prunes it.
type Subscriber interface {
	Send(Event) error
}

// Registry fans a chat's live events out to every subscribed connection.
// Subscriber sets are keyed by chat id and guarded per chat so unrelated
// chats never contend on one lock.
type Registry struct {
	mu     sync.RWMutex
	chats  map[string]*chatSubscribers
	onIdle func(chatID string)
	logger *zap.Logger
}

type chatSubscribers struct {
	mu   sync.Mutex
	subs map[Subscriber]struct{}
	// dead marks a set removed from the registry map. A Subscribe that
	// raced the removal must not add to it, or the subscriber would be
	// orphaned where Broadcast never looks.
	dead bool
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		chats:  make(map[string]*chatSubscribers),
		logger: logger.Named("registry"),
	}
}

// OnIdle installs a hook invoked after the last subscriber of a chat is
// removed. Used to stop heartbeats nobody is listening to.
func (r *Registry) OnIdle(fn func(chatID string)) {
	r.onIdle = fn
}

// Subscribe registers sub as a recipient of chatID's events. Subscribing the
// same value twice is a no-op. Retries when the fetched set was concurrently
// emptied and dropped, so the subscriber always lands in a set Broadcast can
// reach.
func (r *Registry) Subscribe(chatID string, sub Subscriber) {
	for {
		r.mu.Lock()
		cs, ok := r.chats[chatID]
		if !ok {
			cs = &chatSubscribers{subs: make(map[Subscriber]struct{})}
			r.chats[chatID] = cs
		}
		r.mu.Unlock()

		cs.mu.Lock()
		if cs.dead {
			cs.mu.Unlock()
			continue
		}
		cs.subs[sub] = struct{}{}
		cs.mu.Unlock()
		break
	}
	r.logger.Debug("subscriber added", zap.String("chat_id", chatID))
}

// Unsubscribe removes sub. When the chat's subscriber set becomes empty the
// set is dropped and the idle hook fires.
func (r *Registry) Unsubscribe(chatID string, sub Subscriber) {
	r.mu.RLock()
	cs, ok := r.chats[chatID]
	r.mu.RUnlock()
	if !ok {
		return
	}

	cs.mu.Lock()
	delete(cs.subs, sub)
	empty := len(cs.subs) == 0
	cs.mu.Unlock()

	if empty {
		r.dropIfEmpty(chatID, cs)
	}
}

// Broadcast delivers ev to every current subscriber of chatID in order.
// Delivery is best effort: a subscriber whose Send fails is logged and
// removed in the same pass, without affecting the others.
func (r *Registry) Broadcast(chatID string, ev Event) {
	r.mu.RLock()
	cs, ok := r.chats[chatID]
	r.mu.RUnlock()
	if !ok {
		return
	}

	cs.mu.Lock()
	var failed []Subscriber
	for sub := range cs.subs {
		if err := sub.Send(ev); err != nil {
			r.logger.Warn("dropping dead subscriber",
				zap.String("chat_id", chatID),
				zap.String("event", ev.Type),
				zap.Error(err))
			failed = append(failed, sub)
		}
	}
	for _, sub := range failed {
		delete(cs.subs, sub)
	}
	empty := len(cs.subs) == 0
	cs.mu.Unlock()

	if empty && len(failed) > 0 {
		r.dropIfEmpty(chatID, cs)
	}
}

// Subscribers reports the current subscriber count for a chat.
func (r *Registry) Subscribers(chatID string) int {
	r.mu.RLock()
	cs, ok := r.chats[chatID]
	r.mu.RUnlock()
	if !ok {
		return 0
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.subs)
}

func (r *Registry) dropIfEmpty(chatID string, cs *chatSubscribers) {
	r.mu.Lock()
	cs.mu.Lock()
	dropped := len(cs.subs) == 0 && r.chats[chatID] == cs
	if dropped {
		cs.dead = true
		delete(r.chats, chatID)
	}
	cs.mu.Unlock()
	r.mu.Unlock()

	if dropped && r.onIdle != nil {
		r.onIdle(chatID)
	}
}
