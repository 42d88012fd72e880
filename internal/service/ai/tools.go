package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

// Tool names the model may request.
const (
	ToolCreateDocument     = "createDocument"
	ToolUpdateDocument     = "updateDocument"
	ToolRequestSuggestions = "requestSuggestions"
	ToolGetWeather         = "getWeather"
	ToolWebSearch          = "webSearch"
)

// IsDocumentTool reports whether a tool call mutates document context, which
// subscribers are notified about.
func IsDocumentTool(name string) bool {
	return name == ToolCreateDocument || name == ToolUpdateDocument
}

// Tool is one opaque capability offered to the model: JSON arguments in,
// plain text out.
type Tool interface {
	Info() *schema.ToolInfo
	Execute(ctx context.Context, args string) (string, error)
}

// ToolSet holds the tools available to a turn, keyed by name.
type ToolSet struct {
	order  []string
	tools  map[string]Tool
	logger *zap.Logger
}

// NewToolSet registers the given tools. Registration order is preserved in
// Infos.
func NewToolSet(logger *zap.Logger, tools ...Tool) *ToolSet {
	ts := &ToolSet{
		tools:  make(map[string]Tool, len(tools)),
		logger: logger.Named("tools"),
	}
	for _, t := range tools {
		name := t.Info().Name
		if _, exists := ts.tools[name]; exists {
			continue
		}
		ts.order = append(ts.order, name)
		ts.tools[name] = t
	}
	return ts
}

// Infos returns the tool schemas to bind to the chat model.
func (ts *ToolSet) Infos() []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(ts.order))
	for _, name := range ts.order {
		infos = append(infos, ts.tools[name].Info())
	}
	return infos
}

// Execute runs the tool named by the call and returns its text result.
func (ts *ToolSet) Execute(ctx context.Context, call schema.ToolCall) (string, error) {
	tool, ok := ts.tools[call.Function.Name]
	if !ok {
		return "", fmt.Errorf("unknown tool %q", call.Function.Name)
	}

	result, err := tool.Execute(ctx, call.Function.Arguments)
	if err != nil {
		return "", fmt.Errorf("tool %s failed: %w", call.Function.Name, err)
	}

	ts.logger.Debug("tool executed",
		zap.String("tool", call.Function.Name),
		zap.Int("result_length", len(result)))
	return result, nil
}
