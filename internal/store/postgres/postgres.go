// Package postgres persists chat records through gorm. Schema is migrated on
// open; all methods satisfy store.Store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/skylinehq/skyline/backend/internal/model/chat"
	"github.com/skylinehq/skyline/backend/internal/store"
)

type Store struct {
	db *gorm.DB
}

// Open connects to postgres and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if err := db.AutoMigrate(
		&chatRecord{},
		&messageRecord{},
		&voteRecord{},
		&documentRecord{},
		&suggestionRecord{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Store{db: db}, nil
}

type chatRecord struct {
	ID         string `gorm:"primaryKey"`
	UserID     string `gorm:"index"`
	Title      string
	Visibility string
	CreatedAt  time.Time
}

func (chatRecord) TableName() string { return "chats" }

type messageRecord struct {
	ID          string `gorm:"primaryKey"`
	ChatID      string `gorm:"index"`
	Role        string
	Content     string
	Parts       datatypes.JSON
	Attachments datatypes.JSON
	CreatedAt   time.Time `gorm:"index"`
}

func (messageRecord) TableName() string { return "messages" }

type voteRecord struct {
	ChatID    string `gorm:"primaryKey"`
	MessageID string `gorm:"primaryKey"`
	IsUpvoted bool
}

func (voteRecord) TableName() string { return "votes" }

type documentRecord struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"index"`
	Title     string
	Kind      string
	Content   string
	CreatedAt time.Time
}

func (documentRecord) TableName() string { return "documents" }

type suggestionRecord struct {
	ID            string `gorm:"primaryKey"`
	DocumentID    string `gorm:"index"`
	UserID        string
	OriginalText  string
	SuggestedText string
	Description   string
	IsResolved    bool
	CreatedAt     time.Time
}

func (suggestionRecord) TableName() string { return "suggestions" }

func (s *Store) CreateChat(ctx context.Context, c chat.Chat) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.Visibility == "" {
		c.Visibility = chat.VisibilityPrivate
	}
	rec := chatRecord{
		ID:         c.ID,
		UserID:     c.UserID,
		Title:      c.Title,
		Visibility: string(c.Visibility),
		CreatedAt:  c.CreatedAt,
	}
	return s.db.WithContext(ctx).Create(&rec).Error
}

func (s *Store) GetChat(ctx context.Context, id string) (chat.Chat, error) {
	var rec chatRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return chat.Chat{}, store.ErrChatNotFound
	}
	if err != nil {
		return chat.Chat{}, err
	}
	return chat.Chat{
		ID:         rec.ID,
		UserID:     rec.UserID,
		Title:      rec.Title,
		Visibility: chat.Visibility(rec.Visibility),
		CreatedAt:  rec.CreatedAt,
	}, nil
}

func (s *Store) UpdateChatVisibility(ctx context.Context, id string, visibility chat.Visibility) error {
	res := s.db.WithContext(ctx).
		Model(&chatRecord{}).
		Where("id = ?", id).
		Update("visibility", string(visibility))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrChatNotFound
	}
	return nil
}

func (s *Store) DeleteChat(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&chatRecord{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrChatNotFound
	}
	return nil
}

func (s *Store) CreateMessage(ctx context.Context, m chat.Message) (chat.Message, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	rec := messageRecord{
		ID:        m.ID,
		ChatID:    m.ChatID,
		Role:      string(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
	if len(m.Parts) > 0 {
		raw, err := json.Marshal(m.Parts)
		if err != nil {
			return chat.Message{}, fmt.Errorf("failed to encode parts: %w", err)
		}
		rec.Parts = raw
	}
	if len(m.Attachments) > 0 {
		raw, err := json.Marshal(m.Attachments)
		if err != nil {
			return chat.Message{}, fmt.Errorf("failed to encode attachments: %w", err)
		}
		rec.Attachments = raw
	}

	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return chat.Message{}, err
	}
	return m, nil
}

func (s *Store) GetMessagesByChat(ctx context.Context, chatID string) ([]chat.Message, error) {
	var recs []messageRecord
	err := s.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at asc").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}

	messages := make([]chat.Message, 0, len(recs))
	for _, rec := range recs {
		m := chat.Message{
			ID:        rec.ID,
			ChatID:    rec.ChatID,
			Role:      chat.Role(rec.Role),
			Content:   rec.Content,
			CreatedAt: rec.CreatedAt,
		}
		if len(rec.Parts) > 0 {
			if err := json.Unmarshal(rec.Parts, &m.Parts); err != nil {
				return nil, fmt.Errorf("failed to decode parts for message %s: %w", rec.ID, err)
			}
		}
		if len(rec.Attachments) > 0 {
			if err := json.Unmarshal(rec.Attachments, &m.Attachments); err != nil {
				return nil, fmt.Errorf("failed to decode attachments for message %s: %w", rec.ID, err)
			}
		}
		messages = append(messages, m)
	}
	return messages, nil
}

func (s *Store) DeleteMessagesAfter(ctx context.Context, chatID string, after time.Time) error {
	return s.db.WithContext(ctx).
		Where("chat_id = ? AND created_at > ?", chatID, after).
		Delete(&messageRecord{}).Error
}

func (s *Store) DeleteMessagesByChat(ctx context.Context, chatID string) error {
	return s.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Delete(&messageRecord{}).Error
}

func (s *Store) CreateVote(ctx context.Context, v chat.Vote) error {
	rec := voteRecord{ChatID: v.ChatID, MessageID: v.MessageID, IsUpvoted: v.IsUpvoted}
	return s.db.WithContext(ctx).Save(&rec).Error
}

func (s *Store) GetVotesByChat(ctx context.Context, chatID string) ([]chat.Vote, error) {
	var recs []voteRecord
	if err := s.db.WithContext(ctx).Where("chat_id = ?", chatID).Find(&recs).Error; err != nil {
		return nil, err
	}
	votes := make([]chat.Vote, 0, len(recs))
	for _, rec := range recs {
		votes = append(votes, chat.Vote{ChatID: rec.ChatID, MessageID: rec.MessageID, IsUpvoted: rec.IsUpvoted})
	}
	return votes, nil
}

func (s *Store) DeleteVotesByChat(ctx context.Context, chatID string) error {
	return s.db.WithContext(ctx).Where("chat_id = ?", chatID).Delete(&voteRecord{}).Error
}

func (s *Store) SaveDocument(ctx context.Context, d chat.Document) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	rec := documentRecord{
		ID:        d.ID,
		UserID:    d.UserID,
		Title:     d.Title,
		Kind:      d.Kind,
		Content:   d.Content,
		CreatedAt: d.CreatedAt,
	}
	return s.db.WithContext(ctx).Save(&rec).Error
}

func (s *Store) GetDocument(ctx context.Context, id string) (chat.Document, error) {
	var rec documentRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return chat.Document{}, store.ErrDocumentNotFound
	}
	if err != nil {
		return chat.Document{}, err
	}
	return chat.Document{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Title:     rec.Title,
		Kind:      rec.Kind,
		Content:   rec.Content,
		CreatedAt: rec.CreatedAt,
	}, nil
}

func (s *Store) SaveSuggestions(ctx context.Context, suggestions []chat.Suggestion) error {
	if len(suggestions) == 0 {
		return nil
	}
	recs := make([]suggestionRecord, 0, len(suggestions))
	for _, sg := range suggestions {
		if sg.ID == "" {
			sg.ID = uuid.NewString()
		}
		if sg.CreatedAt.IsZero() {
			sg.CreatedAt = time.Now().UTC()
		}
		recs = append(recs, suggestionRecord{
			ID:            sg.ID,
			DocumentID:    sg.DocumentID,
			UserID:        sg.UserID,
			OriginalText:  sg.OriginalText,
			SuggestedText: sg.SuggestedText,
			Description:   sg.Description,
			IsResolved:    sg.IsResolved,
			CreatedAt:     sg.CreatedAt,
		})
	}
	return s.db.WithContext(ctx).Create(&recs).Error
}
