package internal

import "strings"

// DefaultProviderLabel is shown for provider ids outside the known set
const DefaultProviderLabel = "AI"

var defaultProviderLabels = map[string]string{
	"openai":      "OpenAI",
	"claude":      "Claude",
	"anthropic":   "Claude",
	"cohere":      "Cohere",
	"huggingface": "HuggingFace",
	"azure":       "Azure",
	"google":      "Google",
	"palm":        "Google",
	"gemini":      "Google",
	"mistral":     "Mistral",
	"deepseek":    "DeepSeek",
	"ollama":      "Ollama",
}

// ProviderLabels maps provider identifiers to display labels. New providers are
// added through configuration, not code.
type ProviderLabels struct {
	labels  map[string]string
	display map[string]string // normalized label -> label
}

// NewProviderLabels builds the mapping; overrides win over the defaults
func NewProviderLabels(overrides map[string]string) *ProviderLabels {
	labels := make(map[string]string, len(defaultProviderLabels)+len(overrides))
	for k, v := range defaultProviderLabels {
		labels[k] = v
	}
	for k, v := range overrides {
		labels[normalizeProviderID(k)] = v
	}
	display := make(map[string]string, len(labels))
	for _, v := range labels {
		display[normalizeProviderID(v)] = v
	}
	return &ProviderLabels{labels: labels, display: display}
}

// Label returns the display label for id. An empty id has no label. Stored
// history may already carry a label, which maps to itself.
func (p *ProviderLabels) Label(id string) string {
	key := normalizeProviderID(id)
	if key == "" {
		return ""
	}
	if label, ok := p.labels[key]; ok {
		return label
	}
	if label, ok := p.display[key]; ok {
		return label
	}
	return DefaultProviderLabel
}

func normalizeProviderID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
