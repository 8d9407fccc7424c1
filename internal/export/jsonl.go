package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/iksnae/synapse-chat/internal"
)

// JSONLExporter writes one message per line
type JSONLExporter struct{}

type jsonlLine struct {
	Conversation string        `json:"conversation"`
	Role         internal.Role `json:"role"`
	Content      string        `json:"content"`
	Provider     string        `json:"provider,omitempty"`
	CreatedAt    string        `json:"createdAt,omitempty"`
}

// Export exports a conversation to JSONL format
func (e *JSONLExporter) Export(conv *internal.Conversation, w io.Writer) error {
	enc := json.NewEncoder(w)

	for _, msg := range conv.Messages {
		line := jsonlLine{
			Conversation: conv.ID,
			Role:         msg.Role,
			Content:      msg.Content,
			Provider:     msg.ProviderLabel,
		}
		if !msg.CreatedAt.IsZero() {
			line.CreatedAt = msg.CreatedAt.UTC().Format(time.RFC3339)
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
