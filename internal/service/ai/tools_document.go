package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/skylinehq/skyline/backend/internal/auth"
	"github.com/skylinehq/skyline/backend/internal/model/chat"
	"github.com/skylinehq/skyline/backend/internal/store"
)

// CreateDocumentTool writes a new document artifact owned by the requesting
// user.
type CreateDocumentTool struct {
	Store store.Store
}

func (t *CreateDocumentTool) Info() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: ToolCreateDocument,
		Desc: "Create a document artifact for writing or content creation activities",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"title":   {Type: schema.String, Desc: "Document title", Required: true},
			"kind":    {Type: schema.String, Desc: "Document kind: text or code", Required: true},
			"content": {Type: schema.String, Desc: "Initial document content", Required: true},
		}),
	}
}

func (t *CreateDocumentTool) Execute(ctx context.Context, args string) (string, error) {
	var payload struct {
		Title   string `json:"title"`
		Kind    string `json:"kind"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(args), &payload); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if payload.Title == "" {
		return "", fmt.Errorf("title is required")
	}

	var userID string
	if id, ok := auth.FromContext(ctx); ok {
		userID = id.UserID
	}

	doc := chat.Document{
		ID:      uuid.NewString(),
		UserID:  userID,
		Title:   payload.Title,
		Kind:    payload.Kind,
		Content: payload.Content,
	}
	if err := t.Store.SaveDocument(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to save document: %w", err)
	}

	return fmt.Sprintf("Created document %s titled %q.", doc.ID, doc.Title), nil
}

// UpdateDocumentTool replaces an existing document's content.
type UpdateDocumentTool struct {
	Store store.Store
}

func (t *UpdateDocumentTool) Info() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: ToolUpdateDocument,
		Desc: "Update an existing document with new content",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"id":      {Type: schema.String, Desc: "Document identifier", Required: true},
			"content": {Type: schema.String, Desc: "Replacement content", Required: true},
		}),
	}
}

func (t *UpdateDocumentTool) Execute(ctx context.Context, args string) (string, error) {
	var payload struct {
		ID      string `json:"id"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(args), &payload); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	doc, err := t.Store.GetDocument(ctx, payload.ID)
	if err != nil {
		return "", err
	}

	doc.Content = payload.Content
	if err := t.Store.SaveDocument(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to save document: %w", err)
	}

	return fmt.Sprintf("Updated document %s (%s).", doc.ID, doc.Title), nil
}

// RequestSuggestionsTool asks the cheap model for edit suggestions against a
// stored document and persists them.
type RequestSuggestionsTool struct {
	Store store.Store
	Model model.ChatModel
}

const suggestionsPrompt = "You are a writing assistant. Given a document, suggest up to three " +
	"improvements. Answer with one suggestion per line in the form: original text => improved text."

func (t *RequestSuggestionsTool) Info() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: ToolRequestSuggestions,
		Desc: "Request writing suggestions for an existing document",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"documentId": {Type: schema.String, Desc: "Document identifier", Required: true},
		}),
	}
}

func (t *RequestSuggestionsTool) Execute(ctx context.Context, args string) (string, error) {
	var payload struct {
		DocumentID string `json:"documentId"`
	}
	if err := json.Unmarshal([]byte(args), &payload); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	doc, err := t.Store.GetDocument(ctx, payload.DocumentID)
	if err != nil {
		return "", err
	}

	response, err := t.Model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(suggestionsPrompt),
		schema.UserMessage(doc.Content),
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate suggestions: %w", err)
	}

	var userID string
	if id, ok := auth.FromContext(ctx); ok {
		userID = id.UserID
	}

	suggestions := parseSuggestions(response.Content, doc.ID, userID)
	if len(suggestions) == 0 {
		return "No suggestions produced.", nil
	}
	if err := t.Store.SaveSuggestions(ctx, suggestions); err != nil {
		return "", fmt.Errorf("failed to save suggestions: %w", err)
	}

	return fmt.Sprintf("Added %d suggestions to document %s.", len(suggestions), doc.ID), nil
}

func parseSuggestions(raw, documentID, userID string) []chat.Suggestion {
	var suggestions []chat.Suggestion
	for _, line := range strings.Split(raw, "\n") {
		original, suggested, ok := strings.Cut(line, "=>")
		if !ok {
			continue
		}
		original = strings.TrimSpace(original)
		suggested = strings.TrimSpace(suggested)
		if original == "" || suggested == "" {
			continue
		}
		suggestions = append(suggestions, chat.Suggestion{
			DocumentID:    documentID,
			UserID:        userID,
			OriginalText:  original,
			SuggestedText: suggested,
		})
		if len(suggestions) == 3 {
			break
		}
	}
	return suggestions
}
