package live

// Event is one frame delivered to chat subscribers.
type Event struct {
	Type      string `json:"type"`
	Content   string `json:"content,omitempty"`
	Message   string `json:"message,omitempty"`
	HasImages *bool  `json:"hasImages,omitempty"`
}

// Frame types understood by clients.
const (
	EventTextDelta             = "text-delta"
	EventHeartbeat             = "heartbeat"
	EventDocumentContextUpdate = "document-context-update"
	EventError                 = "error"
	EventFinish                = "finish"
)

// TextDelta wraps one streamed model chunk.
func TextDelta(content string) Event {
	return Event{Type: EventTextDelta, Content: content}
}

// Heartbeat keeps idle transports open during background work.
func Heartbeat() Event {
	return Event{Type: EventHeartbeat}
}

// DocumentContextUpdate signals that a document tool changed the chat's context.
func DocumentContextUpdate(hasImages bool) Event {
	return Event{Type: EventDocumentContextUpdate, HasImages: &hasImages}
}

// ErrorEvent carries a user-facing failure notice.
func ErrorEvent(message string) Event {
	return Event{Type: EventError, Message: message}
}

// Finish marks the end of a turn's stream.
func Finish() Event {
	return Event{Type: EventFinish}
}
