package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iksnae/synapse-chat/internal"
)

// MarkdownExporter exports conversations as a readable transcript
type MarkdownExporter struct{}

// Export exports a conversation to Markdown format
func (e *MarkdownExporter) Export(conv *internal.Conversation, w io.Writer) error {
	title := conv.Title
	if title == "" {
		title = "Conversation " + conv.ID
	}
	_, _ = fmt.Fprintf(w, "# %s\n\n", title)
	_, _ = fmt.Fprintf(w, "**ID:** %s  \n", conv.ID)
	if !conv.CreatedAt.IsZero() {
		_, _ = fmt.Fprintf(w, "**Created:** %s  \n", conv.CreatedAt.UTC().Format(time.RFC3339))
		_, _ = fmt.Fprintf(w, "**Updated:** %s  \n", conv.UpdatedAt.UTC().Format(time.RFC3339))
	}
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(conv.Messages))
	_, _ = fmt.Fprintf(w, "---\n\n")

	for i, msg := range conv.Messages {
		speaker := "You"
		if msg.Role == internal.RoleAssistant {
			speaker = "Assistant"
			if msg.ProviderLabel != "" {
				speaker = fmt.Sprintf("Assistant (%s)", msg.ProviderLabel)
			}
		}

		_, err := fmt.Fprintf(w, "**%s:**\n\n%s\n\n", speaker, escapeMarkdown(msg.Content))
		if err != nil {
			return err
		}

		if i < len(conv.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

// escapeMarkdown escapes emphasis markers outside fenced code blocks
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	inCodeBlock := false

	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inCodeBlock = !inCodeBlock
			continue
		}
		if inCodeBlock {
			continue
		}
		line = strings.ReplaceAll(line, "**", "\\*\\*")
		lines[i] = strings.ReplaceAll(line, "__", "\\_\\_")
	}

	return strings.Join(lines, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
