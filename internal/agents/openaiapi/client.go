// Package openaiapi adapts any OpenAI-compatible chat-completions endpoint
// as a generation backend.
package openaiapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/uiforge/uiforge/internal/agents"
	"github.com/uiforge/uiforge/internal/prompt"
	"github.com/uiforge/uiforge/internal/tcc"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Generator calls a chat-completions endpoint and decodes the JSON response
// into the step's typed payload.
type Generator struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     *logrus.Entry
}

// New creates a Generator. apiKeyEnv names the environment variable holding
// the key; an empty key is allowed for keyless local endpoints.
func New(baseURL, apiKeyEnv string, log *logrus.Entry) *Generator {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	apiKey := ""
	if apiKeyEnv != "" {
		apiKey = os.Getenv(apiKeyEnv)
	}
	return &Generator{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 5 * time.Minute},
		log:     log,
	}
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Generate implements agents.Generator.
func (g *Generator) Generate(ctx context.Context, req agents.Request) (tcc.StepOutput, error) {
	instruction, err := prompt.ForContext(req.Prompt)
	if err != nil {
		return tcc.StepOutput{}, &agents.GenerationError{Agent: req.Agent, Err: err}
	}

	body, err := json.Marshal(chatRequest{
		Model: req.Choice.Model,
		Messages: []chatMessage{
			{Role: "user", Content: instruction},
		},
		Temperature:    0.2,
		ResponseFormat: &respFormat{Type: "json_object"},
	})
	if err != nil {
		return tcc.StepOutput{}, &agents.GenerationError{Agent: req.Agent, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return tcc.StepOutput{}, &agents.GenerationError{Agent: req.Agent, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return tcc.StepOutput{}, &agents.GenerationError{Agent: req.Agent, Transient: true, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return tcc.StepOutput{}, &agents.GenerationError{Agent: req.Agent, Transient: true, Err: err}
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return tcc.StepOutput{}, &agents.GenerationError{
			Agent:     req.Agent,
			Transient: true,
			Err:       fmt.Errorf("provider returned %d: %s", resp.StatusCode, truncate(data, 200)),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return tcc.StepOutput{}, &agents.GenerationError{
			Agent: req.Agent,
			Err:   fmt.Errorf("provider returned %d: %s", resp.StatusCode, truncate(data, 200)),
		}
	}

	var cr chatResponse
	if err := json.Unmarshal(data, &cr); err != nil {
		return tcc.StepOutput{}, &agents.GenerationError{Agent: req.Agent, Err: fmt.Errorf("decode response: %w", err)}
	}
	if cr.Error != nil {
		return tcc.StepOutput{}, &agents.GenerationError{Agent: req.Agent, Err: fmt.Errorf("provider error: %s", cr.Error.Message)}
	}
	if len(cr.Choices) == 0 {
		return tcc.StepOutput{}, &agents.GenerationError{Agent: req.Agent, Err: fmt.Errorf("provider returned no choices")}
	}

	out, err := agents.DecodePayload(req.Step, []byte(cr.Choices[0].Message.Content))
	if err != nil {
		g.log.WithFields(logrus.Fields{"agent": req.Agent, "model": req.Choice.Model}).
			WithError(err).Debug("response failed schema decode")
		return tcc.StepOutput{}, &agents.GenerationError{Agent: req.Agent, Err: err}
	}
	if err := out.Validate(); err != nil {
		return tcc.StepOutput{}, &agents.GenerationError{Agent: req.Agent, Err: err}
	}
	return out, nil
}

func truncate(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	return string(data[:n]) + "..."
}
