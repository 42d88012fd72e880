// Package turn drives one chat turn end to end: persist the user's message,
// resolve the chat, relay the model stream to live subscribers, run requested
// tools and persist the results.
package turn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/skylinehq/skyline/backend/internal/live"
	"github.com/skylinehq/skyline/backend/internal/model/chat"
	"github.com/skylinehq/skyline/backend/internal/service/ai"
	"github.com/skylinehq/skyline/backend/internal/store"
)

var (
	ErrBadRequest   = errors.New("chat id and at least one user message are required")
	ErrUnauthorized = errors.New("requester does not own this chat")
)

const streamErrorNotice = "An error occurred while generating the response. The partial answer has been kept."

// ModelClient is the opaque model collaborator. reasoning selects the
// reasoning-flagged model for the reply.
type ModelClient interface {
	StreamingEnabled() bool
	StreamReply(ctx context.Context, history []*schema.Message, query string, reasoning bool) (*schema.StreamReader[*schema.Message], error)
	GenerateReply(ctx context.Context, history []*schema.Message, query string, reasoning bool) (*schema.Message, error)
	GenerateTitle(ctx context.Context, userMessage string) (string, error)
}

// ToolRunner executes one requested tool call.
type ToolRunner interface {
	Execute(ctx context.Context, call schema.ToolCall) (string, error)
}

// Orchestrator sequences persistence and streaming for chat turns.
type Orchestrator struct {
	store    store.Store
	model    ModelClient
	tools    ToolRunner
	registry *live.Registry
	logger   *zap.Logger
}

// NewOrchestrator wires the turn state machine to its collaborators.
func NewOrchestrator(st store.Store, model ModelClient, tools ToolRunner, registry *live.Registry, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		store:    st,
		model:    model,
		tools:    tools,
		registry: registry,
		logger:   logger.Named("turn"),
	}
}

// Request is one inbound chat turn. SelectedModel is the resolved catalog id;
// Reasoning carries that entry's flag through to the model call.
type Request struct {
	ChatID        string
	UserID        string
	Messages      []chat.Message
	SelectedModel string
	Reasoning     bool
}

// Turn is a prepared chat turn: the user message is persisted and the chat
// record exists. Stream finishes the remaining states.
type Turn struct {
	o         *Orchestrator
	chatID    string
	history   []*schema.Message
	query     string
	modelID   string
	reasoning bool
}

// Prepare validates the request, persists the newest user message and
// resolves (or creates) the chat. The user message is durably recorded
// before any model call; a model failure can never lose what the user asked.
func (o *Orchestrator) Prepare(ctx context.Context, req Request) (*Turn, error) {
	if req.ChatID == "" {
		return nil, ErrBadRequest
	}

	userMsg, ok := latestUserMessage(req.Messages)
	if !ok {
		return nil, ErrBadRequest
	}
	userMsg.ChatID = req.ChatID
	userMsg.Role = chat.RoleUser

	persisted, err := o.store.CreateMessage(ctx, userMsg)
	if err != nil {
		return nil, fmt.Errorf("failed to persist user message: %w", err)
	}

	existing, err := o.store.GetChat(ctx, req.ChatID)
	switch {
	case errors.Is(err, store.ErrChatNotFound):
		title, titleErr := o.model.GenerateTitle(ctx, persisted.Content)
		if titleErr != nil {
			o.logger.Warn("title generation failed, falling back to message text",
				zap.String("chat_id", req.ChatID), zap.Error(titleErr))
			title = ai.SanitizeTitle(persisted.Content)
		}
		if err := o.store.CreateChat(ctx, chat.Chat{
			ID:         req.ChatID,
			UserID:     req.UserID,
			Title:      title,
			Visibility: chat.VisibilityPrivate,
		}); err != nil {
			// The user message is not rolled back: at-least-once
			// persistence over partial-rollback complexity.
			return nil, fmt.Errorf("failed to create chat: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to resolve chat: %w", err)
	default:
		if existing.UserID != req.UserID {
			return nil, ErrUnauthorized
		}
	}

	transcript, err := o.store.GetMessagesByChat(ctx, req.ChatID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	return &Turn{
		o:         o,
		chatID:    req.ChatID,
		history:   toModelHistory(transcript, persisted.ID),
		query:     persisted.Content,
		modelID:   req.SelectedModel,
		reasoning: req.Reasoning,
	}, nil
}

// Stream runs the model, broadcasting each text delta to the chat's
// subscribers while accumulating the full reply, then persists the assistant
// message exactly once and executes any requested tools. It always reaches
// the terminal state: mid-stream failures surface as an error frame plus
// whatever partial text had accumulated.
func (t *Turn) Stream(ctx context.Context) {
	o := t.o
	defer o.registry.Broadcast(t.chatID, live.Finish())

	var accumulated strings.Builder
	var reasoningText strings.Builder
	var chunks []*schema.Message

	if o.model.StreamingEnabled() {
		stream, err := o.model.StreamReply(ctx, t.history, t.query, t.reasoning)
		if err != nil {
			o.logger.Error("model stream failed to open", zap.String("chat_id", t.chatID), zap.Error(err))
			o.registry.Broadcast(t.chatID, live.ErrorEvent(streamErrorNotice))
			return
		}
		defer stream.Close()

		for {
			chunk, recvErr := stream.Recv()
			if errors.Is(recvErr, io.EOF) {
				break
			}
			if recvErr != nil {
				o.logger.Error("model stream broke mid-flight",
					zap.String("chat_id", t.chatID),
					zap.Int("partial_length", accumulated.Len()),
					zap.Error(recvErr))
				o.registry.Broadcast(t.chatID, live.ErrorEvent(streamErrorNotice))
				break
			}
			if chunk == nil {
				continue
			}

			chunks = append(chunks, chunk)
			if chunk.ReasoningContent != "" {
				reasoningText.WriteString(chunk.ReasoningContent)
			}
			if chunk.Content != "" {
				accumulated.WriteString(chunk.Content)
				o.registry.Broadcast(t.chatID, live.TextDelta(chunk.Content))
			}
		}
	} else {
		response, err := o.model.GenerateReply(ctx, t.history, t.query, t.reasoning)
		if err != nil {
			o.logger.Error("model invocation failed", zap.String("chat_id", t.chatID), zap.Error(err))
			o.registry.Broadcast(t.chatID, live.ErrorEvent(streamErrorNotice))
			return
		}
		chunks = append(chunks, response)
		reasoningText.WriteString(response.ReasoningContent)
		if response.Content != "" {
			accumulated.WriteString(response.Content)
			o.registry.Broadcast(t.chatID, live.TextDelta(response.Content))
		}
	}

	// Persistence must not die with the client connection: the streamed
	// text is already delivered, so the write continues past a disconnect.
	persistCtx := context.WithoutCancel(ctx)

	final := concatChunks(chunks)
	t.persistAssistant(persistCtx, accumulated.String(), reasoningText.String(), final)

	if final != nil && len(final.ToolCalls) > 0 {
		t.runTools(persistCtx, final.ToolCalls)
	}

	o.logger.Info("turn completed",
		zap.String("chat_id", t.chatID),
		zap.String("model", t.modelID),
		zap.Int("reply_length", accumulated.Len()))
}

// persistAssistant writes the accumulated reply as a single message. A write
// failure here is degraded service, not a turn failure: the user already saw
// the streamed text.
func (t *Turn) persistAssistant(ctx context.Context, content, reasoning string, final *schema.Message) {
	if content == "" && reasoning == "" && (final == nil || len(final.ToolCalls) == 0) {
		return
	}

	msg := chat.Message{
		ChatID:  t.chatID,
		Role:    chat.RoleAssistant,
		Content: content,
	}
	if reasoning != "" {
		msg.Parts = append(msg.Parts, chat.Part{Type: chat.PartReasoning, Text: reasoning})
	}
	if content != "" {
		msg.Parts = append(msg.Parts, chat.Part{Type: chat.PartText, Text: content})
	}
	if final != nil {
		for _, call := range final.ToolCalls {
			msg.Parts = append(msg.Parts, chat.Part{
				Type:       chat.PartToolCall,
				ToolCallID: call.ID,
				ToolName:   call.Function.Name,
				Args:       call.Function.Arguments,
			})
		}
	}

	if _, err := t.o.store.CreateMessage(ctx, msg); err != nil {
		t.o.logger.Warn("failed to persist assistant message",
			zap.String("chat_id", t.chatID), zap.Error(err))
	}
}

// runTools executes each requested tool. Failures are caught per tool; a
// failed tool contributes no content. Successful outputs are newline-joined
// into one message persisted after the primary reply.
func (t *Turn) runTools(ctx context.Context, calls []schema.ToolCall) {
	o := t.o
	var outputs []string
	var parts []chat.Part
	documentTouched := false

	for _, call := range calls {
		result, err := o.tools.Execute(ctx, call)
		if err != nil {
			o.logger.Warn("tool call failed",
				zap.String("chat_id", t.chatID),
				zap.String("tool", call.Function.Name),
				zap.Error(err))
			continue
		}
		outputs = append(outputs, result)
		parts = append(parts, chat.Part{
			Type:       chat.PartToolResult,
			ToolCallID: call.ID,
			ToolName:   call.Function.Name,
			Result:     result,
		})
		if ai.IsDocumentTool(call.Function.Name) {
			documentTouched = true
		}
	}

	if documentTouched {
		o.registry.Broadcast(t.chatID, live.DocumentContextUpdate(false))
	}
	if len(outputs) == 0 {
		return
	}

	msg := chat.Message{
		ChatID:  t.chatID,
		Role:    chat.RoleAssistant,
		Content: strings.Join(outputs, "\n"),
		Parts:   parts,
	}
	if _, err := o.store.CreateMessage(ctx, msg); err != nil {
		o.logger.Warn("failed to persist tool results",
			zap.String("chat_id", t.chatID), zap.Error(err))
	}
}

// Delete removes a chat the requester owns. Child records go first so an
// interruption cannot orphan them: votes, then messages, then the chat.
func (o *Orchestrator) Delete(ctx context.Context, chatID, userID string) error {
	existing, err := o.store.GetChat(ctx, chatID)
	if err != nil {
		return err
	}
	if existing.UserID != userID {
		return ErrUnauthorized
	}

	if err := o.store.DeleteVotesByChat(ctx, chatID); err != nil {
		return fmt.Errorf("failed to delete votes: %w", err)
	}
	if err := o.store.DeleteMessagesByChat(ctx, chatID); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	if err := o.store.DeleteChat(ctx, chatID); err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}

	o.logger.Info("chat deleted", zap.String("chat_id", chatID))
	return nil
}

func latestUserMessage(messages []chat.Message) (chat.Message, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == chat.RoleUser && messages[i].Content != "" {
			return messages[i], true
		}
	}
	return chat.Message{}, false
}

// toModelHistory converts the persisted transcript to the model's message
// shape, excluding the just-persisted user message (it travels as the query).
func toModelHistory(transcript []chat.Message, excludeID string) []*schema.Message {
	history := make([]*schema.Message, 0, len(transcript))
	for _, msg := range transcript {
		if msg.ID == excludeID {
			continue
		}
		switch msg.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(msg.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}
	return history
}

// concatChunks folds streamed chunks into the final resolved message. A
// concat failure only costs tool-call metadata, never the accumulated text.
func concatChunks(chunks []*schema.Message) *schema.Message {
	if len(chunks) == 0 {
		return nil
	}
	final, err := schema.ConcatMessages(chunks)
	if err != nil {
		return nil
	}
	return final
}
