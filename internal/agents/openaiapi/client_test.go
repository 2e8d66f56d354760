package openaiapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/uiforge/uiforge/internal/agents"
	"github.com/uiforge/uiforge/internal/agents/agenttest"
	"github.com/uiforge/uiforge/internal/models"
	"github.com/uiforge/uiforge/internal/tcc"
)

func testRequest(step tcc.Step) agents.Request {
	ctx := agenttest.Scenario(step)
	return agents.Request{
		Step:   step,
		Agent:  tcc.AgentName(step),
		Prompt: agents.BuildPromptContext(step, ctx, agents.ModePipeline, ""),
		Choice: models.Choice{Provider: "openai", Model: "gpt-4o-mini"},
	}
}

func newTestGenerator(url string) *Generator {
	log, _ := logtest.NewNullLogger()
	return New(url, "", logrus.NewEntry(log))
}

func chatReply(content string) string {
	reply := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	}
	data, _ := json.Marshal(reply)
	return string(data)
}

func TestGenerateDecodesPayload(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatReply(`{"styled_code":"<div className=\"p-4\"/>"}`)))
	}))
	defer srv.Close()

	g := newTestGenerator(srv.URL)
	out, err := g.Generate(context.Background(), testRequest(tcc.StepApplyStyling))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out.Styling == nil || out.Styling.StyledCode == "" {
		t.Errorf("payload not decoded: %+v", out)
	}
	if got.Model != "gpt-4o-mini" {
		t.Errorf("request model = %q", got.Model)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_object" {
		t.Error("request should demand a JSON object response")
	}
	if len(got.Messages) == 0 || got.Messages[0].Content == "" {
		t.Error("request carries no instruction text")
	}
}

func TestGenerateServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestGenerator(srv.URL).Generate(context.Background(), testRequest(tcc.StepPlanFunctions))
	var genErr *agents.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if !genErr.Transient {
		t.Error("5xx should be transient")
	}
}

func TestGenerateClientErrorIsNotTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestGenerator(srv.URL).Generate(context.Background(), testRequest(tcc.StepPlanFunctions))
	var genErr *agents.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if genErr.Transient {
		t.Error("4xx should not be transient")
	}
}

func TestGenerateRejectsSchemaViolation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chatReply(`here is your styling! {"styled_code":`)))
	}))
	defer srv.Close()

	_, err := newTestGenerator(srv.URL).Generate(context.Background(), testRequest(tcc.StepApplyStyling))
	var genErr *agents.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if genErr.Transient {
		t.Error("schema violations are not transient")
	}
}

func TestGenerateEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := newTestGenerator(srv.URL).Generate(context.Background(), testRequest(tcc.StepPlanFunctions))
	if err == nil {
		t.Fatal("expected error for empty choices")
	}
}
