package store

import (
	"context"
	"errors"
	"time"

	"github.com/skylinehq/skyline/backend/internal/model/chat"
)

var (
	ErrChatNotFound     = errors.New("chat not found")
	ErrDocumentNotFound = errors.New("document not found")
)

// Store is the durable record boundary for chats, messages, votes and
// document artifacts. Reads and deletes are idempotent on retry; creates may
// duplicate on retry, which callers accept (at-least-once persistence).
type Store interface {
	CreateChat(ctx context.Context, c chat.Chat) error
	GetChat(ctx context.Context, id string) (chat.Chat, error)
	UpdateChatVisibility(ctx context.Context, id string, visibility chat.Visibility) error
	DeleteChat(ctx context.Context, id string) error

	CreateMessage(ctx context.Context, m chat.Message) (chat.Message, error)
	GetMessagesByChat(ctx context.Context, chatID string) ([]chat.Message, error)
	DeleteMessagesAfter(ctx context.Context, chatID string, after time.Time) error
	DeleteMessagesByChat(ctx context.Context, chatID string) error

	CreateVote(ctx context.Context, v chat.Vote) error
	GetVotesByChat(ctx context.Context, chatID string) ([]chat.Vote, error)
	DeleteVotesByChat(ctx context.Context, chatID string) error

	SaveDocument(ctx context.Context, d chat.Document) error
	GetDocument(ctx context.Context, id string) (chat.Document, error)
	SaveSuggestions(ctx context.Context, suggestions []chat.Suggestion) error
}
