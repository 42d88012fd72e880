package live

import (
	"errors"
	"net/http"
	"sync"

	"github.com/skylinehq/skyline/backend/pkg/utils"
)

var errSubscriberClosed = errors.New("subscriber closed")

// SSESubscriber adapts a streaming HTTP response into a Subscriber. Sends
// are serialized: the heartbeat goroutine and the turn both write here.
type SSESubscriber struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	closed  bool
}

// NewSSESubscriber wraps an SSE response writer.
func NewSSESubscriber(w http.ResponseWriter, flusher http.Flusher) *SSESubscriber {
	return &SSESubscriber{w: w, flusher: flusher}
}

// Send writes one event frame. After the first failure the subscriber stays
// failed so the registry prunes it.
func (s *SSESubscriber) Send(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errSubscriberClosed
	}
	if err := utils.WriteSSE(s.w, s.flusher, ev); err != nil {
		s.closed = true
		return err
	}
	return nil
}
