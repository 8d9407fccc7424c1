package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iksnae/synapse-chat/internal"
)

// ErrUpstreamUnreachable marks a model runtime that refused or dropped the connection
var ErrUpstreamUnreachable = errors.New("upstream model runtime unreachable")

// Turn is one message forwarded to the model runtime
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatBackend is a model runtime the chat route proxies to
type ChatBackend interface {
	// Key is the provider id reported to clients, e.g. "ollama"
	Key() string
	// Label is the human readable model name, e.g. "Ollama (llama3.2)"
	Label() string
	// Model is the model name requests are sent with
	Model() string
	// Endpoint is the base URL of the runtime
	Endpoint() string
	// UnreachableHint is shown to the user when the runtime cannot be reached
	UnreachableHint() string
	Chat(ctx context.Context, turns []Turn) (string, error)
	Models(ctx context.Context) ([]string, error)
}

// NewBackend builds the backend named by cfg.LLMProvider
func NewBackend(cfg internal.ServerConfig) (ChatBackend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.LLMProvider)) {
	case "", "ollama":
		return NewOllamaBackend(cfg.OllamaHost, cfg.OllamaModel, nil), nil
	case "openai":
		return NewOpenAIBackend(cfg.OpenAIBaseURL, cfg.OpenAIKey, cfg.OpenAIModel)
	default:
		return nil, &internal.ValidationError{
			Field:  "llm_provider",
			Reason: fmt.Sprintf("unknown provider %q (supported: ollama, openai)", cfg.LLMProvider),
		}
	}
}
