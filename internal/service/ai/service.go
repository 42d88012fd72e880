package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/skylinehq/skyline/backend/internal/config"
)

const systemPrompt = "You are a friendly assistant. Keep your responses concise and helpful. " +
	"When the user asks you to create or update a document, use the document tools instead of " +
	"writing the content inline."

// Service wraps the model provider behind the calls the rest of the server
// needs: a streaming reply (standard or reasoning) and a cheap non-streaming
// title.
type Service struct {
	chatModel      model.ChatModel
	titleModel     model.ChatModel
	cfg            config.AIConfig
	chain          compose.Runnable[map[string]any, *schema.Message]
	reasoningChain compose.Runnable[map[string]any, *schema.Message]
	logger         *zap.Logger
}

// NewService compiles one reply chain per supplied model. Tool infos are
// bound to both reply models so streamed chunks can carry tool calls.
// reasoningModel may equal chatModel when no dedicated one is configured.
func NewService(ctx context.Context, cfg config.AIConfig, chatModel, reasoningModel, titleModel model.ChatModel, tools []*schema.ToolInfo, logger *zap.Logger) (*Service, error) {
	if len(tools) > 0 {
		if err := chatModel.BindTools(tools); err != nil {
			return nil, fmt.Errorf("failed to bind tools: %w", err)
		}
		if reasoningModel != chatModel {
			if err := reasoningModel.BindTools(tools); err != nil {
				return nil, fmt.Errorf("failed to bind tools to reasoning model: %w", err)
			}
		}
	}

	runnable, err := compileReplyChain(ctx, chatModel)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	reasoningRunnable := runnable
	if reasoningModel != chatModel {
		reasoningRunnable, err = compileReplyChain(ctx, reasoningModel)
		if err != nil {
			return nil, fmt.Errorf("failed to compile reasoning chain: %w", err)
		}
	}

	return &Service{
		chatModel:      chatModel,
		titleModel:     titleModel,
		cfg:            cfg,
		chain:          runnable,
		reasoningChain: reasoningRunnable,
		logger:         logger.Named("ai"),
	}, nil
}

func compileReplyChain(ctx context.Context, chatModel model.ChatModel) (compose.Runnable[map[string]any, *schema.Message], error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	return chain.Compile(ctx)
}

// StreamingEnabled reports whether streamed output is configured.
func (s *Service) StreamingEnabled() bool {
	return s.cfg.StreamResponse
}

// StreamReply streams model output for the given history. The query is the
// newest user message; history holds everything before it. reasoning selects
// the reasoning-flagged model.
func (s *Service) StreamReply(ctx context.Context, history []*schema.Message, query string, reasoning bool) (*schema.StreamReader[*schema.Message], error) {
	stream, err := s.replyChain(reasoning).Stream(ctx, map[string]any{
		"system":  systemPrompt,
		"history": history,
		"query":   query,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to stream model output: %w", err)
	}
	return stream, nil
}

// GenerateReply produces a complete reply in one call. Used when streaming is
// disabled by configuration.
func (s *Service) GenerateReply(ctx context.Context, history []*schema.Message, query string, reasoning bool) (*schema.Message, error) {
	response, err := s.replyChain(reasoning).Invoke(ctx, map[string]any{
		"system":  systemPrompt,
		"history": history,
		"query":   query,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke model: %w", err)
	}

	s.logger.Debug("generated reply",
		zap.Bool("reasoning", reasoning),
		zap.Int("length", len(response.Content)))
	return response, nil
}

func (s *Service) replyChain(reasoning bool) compose.Runnable[map[string]any, *schema.Message] {
	if reasoning {
		return s.reasoningChain
	}
	return s.chain
}
