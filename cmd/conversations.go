package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/iksnae/synapse-chat/internal"
)

// resolveConversation finds a conversation by full id or unique id prefix
func resolveConversation(a *app, id string) (internal.Conversation, error) {
	if id == "" {
		return internal.Conversation{}, errors.New("conversation id required")
	}
	if conv, ok := a.manager.Conversation(id); ok {
		return conv, nil
	}

	var matches []internal.Conversation
	for _, c := range a.manager.Conversations() {
		if strings.HasPrefix(c.ID, id) {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 0:
		return internal.Conversation{}, fmt.Errorf("conversation not found: %s", id)
	case 1:
		return matches[0], nil
	default:
		return internal.Conversation{}, fmt.Errorf("conversation id %q is ambiguous (%d matches)", id, len(matches))
	}
}

// deleteConversation removes a conversation locally and, when signed in, on the service
func deleteConversation(ctx context.Context, a *app, id string) error {
	if err := a.manager.DeleteConversation(id); err != nil {
		if errors.Is(err, internal.ErrNotFound) {
			return fmt.Errorf("conversation not found: %s", id)
		}
		internal.LogWarn("Failed to persist deletion of %s: %v", id, err)
	}
	if _, ok := a.account.Current(); ok {
		if err := a.client.DeleteConversation(ctx, id); err != nil {
			internal.LogWarn("Failed to delete conversation %s on the service: %v", id, err)
		}
	}
	return nil
}

func conversationTitle(c internal.Conversation) string {
	if c.Title == "" {
		return "Untitled"
	}
	return c.Title
}

func printConversationTable(out io.Writer, convs []internal.Conversation) {
	if len(convs) == 0 {
		_, _ = fmt.Fprintln(out, headerStyle.Render("No conversations yet"))
		return
	}

	_, _ = fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Found %d conversation(s)", len(convs))))
	_, _ = fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Title")+"\t"+titleStyle.Render("Messages")+"\t"+titleStyle.Render("Updated")+"\t")
	for _, c := range convs {
		title := conversationTitle(c)
		if utf8.RuneCountInString(title) > 50 {
			title = string([]rune(title)[:47]) + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n",
			idStyle.Render(c.ID),
			title,
			countStyle.Render(strconv.Itoa(len(c.Messages))),
			dateStyle.Render(formatWhen(c.UpdatedAt, time.Now())),
		)
	}
	_ = w.Flush()
}

// formatWhen renders t relative to now, coarser the older it is
func formatWhen(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	t = t.Local()
	diff := now.Sub(t)
	switch {
	case diff < 24*time.Hour:
		return t.Format("Today 15:04")
	case diff < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	case diff < 365*24*time.Hour:
		return t.Format("Jan 02 15:04")
	default:
		return t.Format("2006-01-02")
	}
}
