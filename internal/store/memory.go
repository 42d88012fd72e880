package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skylinehq/skyline/backend/internal/model/chat"
)

// Memory implements Store with mutex-guarded maps. Used for tests and
// single-node development runs without postgres.
type Memory struct {
	mu          sync.RWMutex
	chats       map[string]chat.Chat
	messages    map[string][]chat.Message
	votes       map[string][]chat.Vote
	documents   map[string]chat.Document
	suggestions map[string][]chat.Suggestion
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		chats:       make(map[string]chat.Chat),
		messages:    make(map[string][]chat.Message),
		votes:       make(map[string][]chat.Vote),
		documents:   make(map[string]chat.Document),
		suggestions: make(map[string][]chat.Suggestion),
	}
}

func (s *Memory) CreateChat(_ context.Context, c chat.Chat) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.Visibility == "" {
		c.Visibility = chat.VisibilityPrivate
	}

	s.mu.Lock()
	s.chats[c.ID] = c
	s.mu.Unlock()
	return nil
}

func (s *Memory) GetChat(_ context.Context, id string) (chat.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chats[id]
	if !ok {
		return chat.Chat{}, ErrChatNotFound
	}
	return c, nil
}

func (s *Memory) UpdateChatVisibility(_ context.Context, id string, visibility chat.Visibility) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[id]
	if !ok {
		return ErrChatNotFound
	}
	c.Visibility = visibility
	s.chats[id] = c
	return nil
}

func (s *Memory) DeleteChat(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[id]; !ok {
		return ErrChatNotFound
	}
	delete(s.chats, id)
	return nil
}

func (s *Memory) CreateMessage(_ context.Context, m chat.Message) (chat.Message, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	s.messages[m.ChatID] = append(s.messages[m.ChatID], m)
	s.mu.Unlock()
	return m, nil
}

func (s *Memory) GetMessagesByChat(_ context.Context, chatID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := s.messages[chatID]
	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	sort.SliceStable(copied, func(i, j int) bool {
		return copied[i].CreatedAt.Before(copied[j].CreatedAt)
	})
	return copied, nil
}

func (s *Memory) DeleteMessagesAfter(_ context.Context, chatID string, after time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.messages[chatID][:0]
	for _, m := range s.messages[chatID] {
		if !m.CreatedAt.After(after) {
			kept = append(kept, m)
		}
	}
	s.messages[chatID] = kept
	return nil
}

func (s *Memory) DeleteMessagesByChat(_ context.Context, chatID string) error {
	s.mu.Lock()
	delete(s.messages, chatID)
	s.mu.Unlock()
	return nil
}

func (s *Memory) CreateVote(_ context.Context, v chat.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// One vote per message: an existing vote is replaced.
	votes := s.votes[v.ChatID]
	for i, existing := range votes {
		if existing.MessageID == v.MessageID {
			votes[i] = v
			return nil
		}
	}
	s.votes[v.ChatID] = append(votes, v)
	return nil
}

func (s *Memory) GetVotesByChat(_ context.Context, chatID string) ([]chat.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	votes := s.votes[chatID]
	copied := make([]chat.Vote, len(votes))
	copy(copied, votes)
	return copied, nil
}

func (s *Memory) DeleteVotesByChat(_ context.Context, chatID string) error {
	s.mu.Lock()
	delete(s.votes, chatID)
	s.mu.Unlock()
	return nil
}

func (s *Memory) SaveDocument(_ context.Context, d chat.Document) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	s.documents[d.ID] = d
	s.mu.Unlock()
	return nil
}

func (s *Memory) GetDocument(_ context.Context, id string) (chat.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.documents[id]
	if !ok {
		return chat.Document{}, ErrDocumentNotFound
	}
	return d, nil
}

func (s *Memory) SaveSuggestions(_ context.Context, suggestions []chat.Suggestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sg := range suggestions {
		if sg.ID == "" {
			sg.ID = uuid.NewString()
		}
		if sg.CreatedAt.IsZero() {
			sg.CreatedAt = time.Now().UTC()
		}
		s.suggestions[sg.DocumentID] = append(s.suggestions[sg.DocumentID], sg)
	}
	return nil
}
