package live

import (
	"sync"

	"go.uber.org/zap"
)

// UploadTracker marks chats with a file upload in flight and keeps their
// heartbeat running for the duration. Activity is reference counted so a chat
// with two concurrent uploads keeps its heartbeat until the last one
// finishes.
type UploadTracker struct {
	scheduler *HeartbeatScheduler
	logger    *zap.Logger

	mu     sync.Mutex
	active map[string]int
}

// NewUploadTracker returns a tracker driving the given scheduler.
func NewUploadTracker(scheduler *HeartbeatScheduler, logger *zap.Logger) *UploadTracker {
	return &UploadTracker{
		scheduler: scheduler,
		logger:    logger.Named("uploads"),
		active:    make(map[string]int),
	}
}

// MarkStarted records a new upload for chatID and (re)starts its heartbeat.
// Restarting on every upload resets the bounded lifetime, so the 120s cap is
// measured from the most recent activity.
func (t *UploadTracker) MarkStarted(chatID string) {
	t.mu.Lock()
	t.active[chatID]++
	n := t.active[chatID]
	t.mu.Unlock()

	t.scheduler.Start(chatID)
	t.logger.Debug("upload started", zap.String("chat_id", chatID), zap.Int("active", n))
}

// MarkComplete records the end of one upload, success or failure. Callers
// must reach this on every exit path; the heartbeat stops only when the last
// upload for the chat completes.
func (t *UploadTracker) MarkComplete(chatID string) {
	t.mu.Lock()
	n, ok := t.active[chatID]
	if !ok {
		t.mu.Unlock()
		t.scheduler.Stop(chatID)
		return
	}
	if n <= 1 {
		delete(t.active, chatID)
	} else {
		t.active[chatID] = n - 1
	}
	remaining := n - 1
	t.mu.Unlock()

	if remaining <= 0 {
		t.scheduler.Stop(chatID)
	}
	t.logger.Debug("upload complete", zap.String("chat_id", chatID), zap.Int("active", remaining))
}

// Active reports how many uploads are currently in flight for chatID.
func (t *UploadTracker) Active(chatID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active[chatID]
}
