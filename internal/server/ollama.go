package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"syscall"

	"github.com/iksnae/synapse-chat/internal"
)

// OllamaBackend talks to the Ollama native API
type OllamaBackend struct {
	host   string
	model  string
	client *http.Client
}

// NewOllamaBackend creates a backend for an Ollama host. A nil client uses http.DefaultClient.
func NewOllamaBackend(host, model string, client *http.Client) *OllamaBackend {
	if host == "" {
		host = internal.DefaultOllamaHost
	}
	if model == "" {
		model = internal.DefaultOllamaModel
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &OllamaBackend{host: strings.TrimRight(host, "/"), model: model, client: client}
}

func (o *OllamaBackend) Key() string      { return "ollama" }
func (o *OllamaBackend) Label() string    { return fmt.Sprintf("Ollama (%s)", o.model) }
func (o *OllamaBackend) Model() string    { return o.model }
func (o *OllamaBackend) Endpoint() string { return o.host }

func (o *OllamaBackend) UnreachableHint() string {
	return "Ollama is not running. Start it with 'ollama serve' in a terminal."
}

type ollamaChatRequest struct {
	Model    string `json:"model"`
	Messages []Turn `json:"messages"`
	Stream   bool   `json:"stream"`
}

type ollamaChatResponse struct {
	Message *Turn  `json:"message"`
	Error   string `json:"error"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Chat sends the whole conversation and waits for the complete answer
func (o *OllamaBackend) Chat(ctx context.Context, turns []Turn) (string, error) {
	payload, err := json.Marshal(ollamaChatRequest{Model: o.model, Messages: turns, Stream: false})
	if err != nil {
		return "", fmt.Errorf("failed to encode ollama request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.host+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var out ollamaChatResponse
	if err := o.do(req, &out); err != nil {
		return "", err
	}
	if out.Message == nil {
		return "", errors.New("ollama response has no message")
	}
	return out.Message.Content, nil
}

// Models lists the models installed on the host
func (o *OllamaBackend) Models(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.host+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	var out ollamaTagsResponse
	if err := o.do(req, &out); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(out.Models))
	for _, m := range out.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

func (o *OllamaBackend) do(req *http.Request, out interface{}) error {
	resp, err := o.client.Do(req)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return fmt.Errorf("%w: %v", ErrUpstreamUnreachable, err)
		}
		return fmt.Errorf("ollama request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read ollama response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr ollamaChatResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("ollama API error: %s", apiErr.Error)
		}
		return fmt.Errorf("ollama API error: %s", http.StatusText(resp.StatusCode))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode ollama response: %w", err)
	}
	return nil
}
