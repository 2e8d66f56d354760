// Package ollama adapts a local Ollama server as a generation backend.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	ollama "github.com/ollama/ollama/api"
	"github.com/sirupsen/logrus"

	"github.com/uiforge/uiforge/internal/agents"
	"github.com/uiforge/uiforge/internal/prompt"
	"github.com/uiforge/uiforge/internal/tcc"
)

// Generator calls the Ollama chat API and decodes the JSON response into the
// step's typed payload.
type Generator struct {
	client *ollama.Client
	log    *logrus.Entry
}

// New creates a Generator against the given host, or the OLLAMA_HOST
// environment when host is empty.
func New(host string, log *logrus.Entry) (*Generator, error) {
	var client *ollama.Client
	if host == "" {
		c, err := ollama.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("could not create ollama client: %w", err)
		}
		client = c
	} else {
		base, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("parse ollama host %q: %w", host, err)
		}
		client = ollama.NewClient(base, http.DefaultClient)
	}
	return &Generator{client: client, log: log}, nil
}

// Generate implements agents.Generator.
func (g *Generator) Generate(ctx context.Context, req agents.Request) (tcc.StepOutput, error) {
	instruction, err := prompt.ForContext(req.Prompt)
	if err != nil {
		return tcc.StepOutput{}, &agents.GenerationError{Agent: req.Agent, Err: err}
	}

	stream := false
	chatReq := &ollama.ChatRequest{
		Model: req.Choice.Model,
		Messages: []ollama.Message{
			{Role: "user", Content: instruction},
		},
		Format: json.RawMessage(`"json"`),
		Stream: &stream,
		Options: map[string]interface{}{
			"temperature": 0.2,
		},
	}

	var content strings.Builder
	err = g.client.Chat(ctx, chatReq, func(res ollama.ChatResponse) error {
		content.WriteString(res.Message.Content)
		return nil
	})
	if err != nil {
		return tcc.StepOutput{}, &agents.GenerationError{Agent: req.Agent, Transient: true, Err: err}
	}

	out, err := agents.DecodePayload(req.Step, []byte(content.String()))
	if err != nil {
		g.log.WithFields(logrus.Fields{"agent": req.Agent, "model": req.Choice.Model}).
			WithError(err).Debug("ollama response failed schema decode")
		return tcc.StepOutput{}, &agents.GenerationError{Agent: req.Agent, Err: err}
	}
	if err := out.Validate(); err != nil {
		return tcc.StepOutput{}, &agents.GenerationError{Agent: req.Agent, Err: err}
	}
	return out, nil
}
