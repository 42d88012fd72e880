package store

import (
	"context"
	"testing"
	"time"

	"github.com/skylinehq/skyline/backend/internal/model/chat"
)

func TestMemoryChatLifecycle(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	err := s.CreateChat(ctx, chat.Chat{ID: "c1", UserID: "u1", Title: "greetings"})
	if err != nil {
		t.Fatalf("CreateChat err: %v", err)
	}

	got, err := s.GetChat(ctx, "c1")
	if err != nil {
		t.Fatalf("GetChat err: %v", err)
	}
	if got.Visibility != chat.VisibilityPrivate {
		t.Fatalf("expected private default, got %s", got.Visibility)
	}

	if err := s.UpdateChatVisibility(ctx, "c1", chat.VisibilityPublic); err != nil {
		t.Fatalf("UpdateChatVisibility err: %v", err)
	}
	got, _ = s.GetChat(ctx, "c1")
	if got.Visibility != chat.VisibilityPublic {
		t.Fatalf("visibility not updated: %s", got.Visibility)
	}
}

func TestMemoryGetChatNotFound(t *testing.T) {
	s := NewMemory()
	if _, err := s.GetChat(context.Background(), "missing"); err != ErrChatNotFound {
		t.Fatalf("expected ErrChatNotFound, got %v", err)
	}
}

func TestMemoryMessagesOrderedByCreation(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	base := time.Now().UTC()

	for i, content := range []string{"first", "second", "third"} {
		_, err := s.CreateMessage(ctx, chat.Message{
			ChatID:    "c1",
			Role:      chat.RoleUser,
			Content:   content,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("CreateMessage err: %v", err)
		}
	}

	messages, err := s.GetMessagesByChat(ctx, "c1")
	if err != nil {
		t.Fatalf("GetMessagesByChat err: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	for i, want := range []string{"first", "second", "third"} {
		if messages[i].Content != want {
			t.Fatalf("message %d out of order: got %s", i, messages[i].Content)
		}
	}
}

func TestMemoryDeleteMessagesAfter(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 4; i++ {
		s.CreateMessage(ctx, chat.Message{
			ChatID:    "c1",
			Role:      chat.RoleUser,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	if err := s.DeleteMessagesAfter(ctx, "c1", base.Add(time.Minute)); err != nil {
		t.Fatalf("DeleteMessagesAfter err: %v", err)
	}

	messages, _ := s.GetMessagesByChat(ctx, "c1")
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages kept, got %d", len(messages))
	}
}

func TestMemoryDeleteChatRemovesChildren(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	s.CreateChat(ctx, chat.Chat{ID: "c1", UserID: "u1"})
	msg, _ := s.CreateMessage(ctx, chat.Message{ChatID: "c1", Role: chat.RoleAssistant, Content: "hi"})
	s.CreateVote(ctx, chat.Vote{ChatID: "c1", MessageID: msg.ID, IsUpvoted: true})

	// Forward-only cleanup order: votes, then messages, then the chat.
	if err := s.DeleteVotesByChat(ctx, "c1"); err != nil {
		t.Fatalf("DeleteVotesByChat err: %v", err)
	}
	if err := s.DeleteMessagesByChat(ctx, "c1"); err != nil {
		t.Fatalf("DeleteMessagesByChat err: %v", err)
	}
	if err := s.DeleteChat(ctx, "c1"); err != nil {
		t.Fatalf("DeleteChat err: %v", err)
	}

	messages, err := s.GetMessagesByChat(ctx, "c1")
	if err != nil {
		t.Fatalf("GetMessagesByChat err: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("expected no messages for deleted chat, got %d", len(messages))
	}
	votes, _ := s.GetVotesByChat(ctx, "c1")
	if len(votes) != 0 {
		t.Fatalf("expected no votes for deleted chat, got %d", len(votes))
	}
}

func TestMemoryVoteReplacesExisting(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	s.CreateVote(ctx, chat.Vote{ChatID: "c1", MessageID: "m1", IsUpvoted: true})
	s.CreateVote(ctx, chat.Vote{ChatID: "c1", MessageID: "m1", IsUpvoted: false})

	votes, _ := s.GetVotesByChat(ctx, "c1")
	if len(votes) != 1 {
		t.Fatalf("expected 1 vote, got %d", len(votes))
	}
	if votes[0].IsUpvoted {
		t.Fatal("vote not replaced")
	}
}
