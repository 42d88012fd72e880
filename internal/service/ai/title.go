package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

const titleSystemPrompt = "You generate a short title based on the first message a user begins a " +
	"conversation with. Keep it under 80 characters. Summarize the message; do not use quotes or colons."

const titleMaxLength = 80

// GenerateTitle asks the title model for a short chat title derived from the
// user's opening message. The result is sanitized so a misbehaving model
// cannot violate the length or punctuation constraints.
func (s *Service) GenerateTitle(ctx context.Context, userMessage string) (string, error) {
	response, err := s.titleModel.Generate(ctx, []*schema.Message{
		schema.SystemMessage(titleSystemPrompt),
		schema.UserMessage(userMessage),
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate title: %w", err)
	}

	title := SanitizeTitle(response.Content)
	if title == "" {
		return "", fmt.Errorf("title model returned empty content")
	}

	s.logger.Debug("generated chat title", zap.String("title", title))
	return title, nil
}

// SanitizeTitle strips quotes and colons and caps the length at 80 runes.
func SanitizeTitle(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '"', '\'', ':', '\n', '\r':
			return -1
		}
		return r
	}, raw)
	cleaned = strings.TrimSpace(cleaned)

	runes := []rune(cleaned)
	if len(runes) > titleMaxLength {
		cleaned = strings.TrimSpace(string(runes[:titleMaxLength]))
	}
	return cleaned
}
