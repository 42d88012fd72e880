package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/skylinehq/skyline/backend/internal/auth"
	"github.com/skylinehq/skyline/backend/internal/model/chat"
	"github.com/skylinehq/skyline/backend/internal/store"
)

func toolCall(name, args string) schema.ToolCall {
	return schema.ToolCall{
		ID: "call-1",
		Function: schema.FunctionCall{
			Name:      name,
			Arguments: args,
		},
	}
}

func TestToolSetExecuteUnknownTool(t *testing.T) {
	ts := NewToolSet(zap.NewNop())
	_, err := ts.Execute(context.Background(), toolCall("nope", "{}"))
	if err == nil {
		t.Fatal("expected error for unknown tool")
	}
}

func TestToolSetPreservesRegistrationOrder(t *testing.T) {
	st := store.NewMemory()
	ts := NewToolSet(zap.NewNop(),
		&CreateDocumentTool{Store: st},
		&WeatherTool{},
		&WebSearchTool{},
	)

	infos := ts.Infos()
	want := []string{ToolCreateDocument, ToolGetWeather, ToolWebSearch}
	if len(infos) != len(want) {
		t.Fatalf("got %d infos, want %d", len(infos), len(want))
	}
	for i, name := range want {
		if infos[i].Name != name {
			t.Fatalf("infos[%d] = %q, want %q", i, infos[i].Name, name)
		}
	}
}

func TestCreateDocumentToolSavesOwnedDocument(t *testing.T) {
	st := store.NewMemory()
	tool := &CreateDocumentTool{Store: st}
	ctx := auth.WithIdentity(context.Background(), auth.Identity{UserID: "u1"})

	result, err := tool.Execute(ctx, `{"title":"Notes","kind":"text","content":"first draft"}`)
	if err != nil {
		t.Fatalf("Execute err: %v", err)
	}
	if !strings.Contains(result, "Notes") {
		t.Fatalf("result = %q, want it to mention the title", result)
	}
}

func TestCreateDocumentToolRequiresTitle(t *testing.T) {
	tool := &CreateDocumentTool{Store: store.NewMemory()}
	if _, err := tool.Execute(context.Background(), `{"kind":"text","content":"x"}`); err == nil {
		t.Fatal("expected error for missing title")
	}
}

func TestUpdateDocumentToolReplacesContent(t *testing.T) {
	st := store.NewMemory()
	doc := chat.Document{ID: "d1", UserID: "u1", Title: "Notes", Kind: "text", Content: "old"}
	if err := st.SaveDocument(context.Background(), doc); err != nil {
		t.Fatalf("SaveDocument err: %v", err)
	}

	tool := &UpdateDocumentTool{Store: st}
	if _, err := tool.Execute(context.Background(), `{"id":"d1","content":"new"}`); err != nil {
		t.Fatalf("Execute err: %v", err)
	}

	updated, err := st.GetDocument(context.Background(), "d1")
	if err != nil {
		t.Fatalf("GetDocument err: %v", err)
	}
	if updated.Content != "new" {
		t.Fatalf("content = %q, want %q", updated.Content, "new")
	}
}

func TestUpdateDocumentToolMissingDocument(t *testing.T) {
	tool := &UpdateDocumentTool{Store: store.NewMemory()}
	if _, err := tool.Execute(context.Background(), `{"id":"nope","content":"new"}`); err == nil {
		t.Fatal("expected error for missing document")
	}
}

func TestWeatherToolFormatsConditions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("latitude") == "" {
			t.Error("latitude query parameter missing")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"current":{"temperature_2m":21.5,"weather_code":3},"current_units":{"temperature_2m":"°C"}}`))
	}))
	defer srv.Close()

	tool := &WeatherTool{Client: srv.Client(), BaseURL: srv.URL}
	result, err := tool.Execute(context.Background(), `{"latitude":52.52,"longitude":13.41}`)
	if err != nil {
		t.Fatalf("Execute err: %v", err)
	}
	if !strings.Contains(result, "21.5") {
		t.Fatalf("result = %q, want temperature mentioned", result)
	}
}

func TestWeatherToolUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	tool := &WeatherTool{Client: srv.Client(), BaseURL: srv.URL}
	if _, err := tool.Execute(context.Background(), `{"latitude":1,"longitude":2}`); err == nil {
		t.Fatal("expected error on upstream failure")
	}
}

func TestWebSearchToolJoinsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "golang" {
			t.Errorf("q = %q, want golang", r.URL.Query().Get("q"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"AbstractText":"Go is a programming language.","RelatedTopics":[{"Text":"Goroutines"},{"Text":""}]}`))
	}))
	defer srv.Close()

	tool := &WebSearchTool{Client: srv.Client(), BaseURL: srv.URL}
	result, err := tool.Execute(context.Background(), `{"query":"golang"}`)
	if err != nil {
		t.Fatalf("Execute err: %v", err)
	}
	lines := strings.Split(result, "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), result)
	}
}

func TestWebSearchToolRequiresQuery(t *testing.T) {
	tool := &WebSearchTool{}
	if _, err := tool.Execute(context.Background(), `{"query":"  "}`); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestParseSuggestionsCapsAtThree(t *testing.T) {
	raw := strings.Join([]string{
		"a => b",
		"not a suggestion line",
		"c => d",
		"e => f",
		"g => h",
	}, "\n")

	got := parseSuggestions(raw, "d1", "u1")
	if len(got) != 3 {
		t.Fatalf("got %d suggestions, want 3", len(got))
	}
	if got[0].OriginalText != "a" || got[0].SuggestedText != "b" {
		t.Fatalf("first suggestion = %+v", got[0])
	}
	if got[0].DocumentID != "d1" || got[0].UserID != "u1" {
		t.Fatalf("ownership not carried: %+v", got[0])
	}
}
