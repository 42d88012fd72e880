package chat

// Vote records a thumbs up/down on an assistant message.
type Vote struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
	IsUpvoted bool   `json:"isUpvoted"`
}
