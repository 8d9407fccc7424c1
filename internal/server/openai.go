package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/iksnae/synapse-chat/internal"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIBackend talks to any OpenAI-compatible chat completions endpoint
type OpenAIBackend struct {
	client  openai.Client
	model   string
	baseURL string
}

// NewOpenAIBackend creates a backend for an OpenAI-compatible endpoint.
// The key may be empty for local runtimes that do not check it.
func NewOpenAIBackend(baseURL, apiKey, model string, extra ...option.RequestOption) (*OpenAIBackend, error) {
	if apiKey == "" && baseURL == "" {
		return nil, &internal.ValidationError{Field: "openai_api_key", Reason: "required when no base URL is set"}
	}
	if model == "" {
		model = internal.DefaultOpenAIModel
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	opts = append(opts, extra...)

	endpoint := baseURL
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1"
	}
	return &OpenAIBackend{
		client:  openai.NewClient(opts...),
		model:   model,
		baseURL: endpoint,
	}, nil
}

func (o *OpenAIBackend) Key() string      { return "openai" }
func (o *OpenAIBackend) Label() string    { return fmt.Sprintf("OpenAI (%s)", o.model) }
func (o *OpenAIBackend) Model() string    { return o.model }
func (o *OpenAIBackend) Endpoint() string { return o.baseURL }

func (o *OpenAIBackend) UnreachableHint() string {
	return fmt.Sprintf("The model endpoint at %s is not reachable.", o.baseURL)
}

// Chat sends the conversation as a single chat completion
func (o *OpenAIBackend) Chat(ctx context.Context, turns []Turn) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case "assistant":
			messages = append(messages, openai.AssistantMessage(t.Content))
		case "system":
			messages = append(messages, openai.SystemMessage(t.Content))
		default:
			messages = append(messages, openai.UserMessage(t.Content))
		}
	}

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    o.model,
		Messages: messages,
	})
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in response")
	}

	internal.LogDebug("openai chat completed: model=%s prompt_tokens=%d completion_tokens=%d",
		o.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return resp.Choices[0].Message.Content, nil
}

// Models lists the model ids the endpoint serves
func (o *OpenAIBackend) Models(ctx context.Context) ([]string, error) {
	page, err := o.client.Models.List(ctx)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	names := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		names = append(names, m.ID)
	}
	return names, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("openai API error: %w", err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUpstreamUnreachable, err)
}
