package chat

import "time"

// Document is an artifact created or updated by the document tools.
type Document struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Kind      string    `json:"kind"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Suggestion is a proposed edit against a document.
type Suggestion struct {
	ID            string    `json:"id"`
	DocumentID    string    `json:"documentId"`
	UserID        string    `json:"userId"`
	OriginalText  string    `json:"originalText"`
	SuggestedText string    `json:"suggestedText"`
	Description   string    `json:"description,omitempty"`
	IsResolved    bool      `json:"isResolved"`
	CreatedAt     time.Time `json:"createdAt"`
}
