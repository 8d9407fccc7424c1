package cmd

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/synapse-chat/internal"
	"github.com/iksnae/synapse-chat/internal/session"
)

var (
	youStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)
)

// transcript writes session snapshots to a terminal as an append-only log.
// User turns are echoed by the terminal itself, so only replies are written
// live; replay writes the whole visible history.
type transcript struct {
	mu      sync.Mutex
	w       io.Writer
	paused  bool
	printed int // messages written in full
	shown   int // runes written of the message at index printed
	done    chan struct{}
}

func newTranscript(w io.Writer) *transcript {
	return &transcript{w: w, done: make(chan struct{}, 1)}
}

// observe is the session listener
func (t *transcript) observe(s session.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.paused {
		t.render(s)
	}
}

// pause stops live output, e.g. while a spinner owns the line
func (t *transcript) pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paused = true
	select {
	case <-t.done:
	default:
	}
}

// resume catches up with s and restarts live output
func (t *transcript) resume(s session.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paused = false
	t.render(s)
}

// replay writes every revealed message of s, then resumes live output
func (t *transcript) replay(s session.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, m := range s.Messages[:s.RevealedCount] {
		if m.Role == internal.RoleUser {
			_, _ = fmt.Fprintf(t.w, "%s %s\n\n", youStyle.Render("you:"), m.Content)
			continue
		}
		_, _ = fmt.Fprintf(t.w, "%s%s\n\n", speaker(m), m.Content)
	}
	t.printed, t.shown = s.RevealedCount, 0
	t.paused = false
	t.render(s)
}

// wait blocks until the last reply is fully written
func (t *transcript) wait(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *transcript) render(s session.Snapshot) {
	if len(s.Messages) < t.printed {
		t.printed, t.shown = len(s.Messages), 0
	}

	for t.printed < s.RevealedCount {
		m := s.Messages[t.printed]
		if m.Role == internal.RoleAssistant {
			runes := []rune(m.Content)
			if t.shown == 0 {
				_, _ = fmt.Fprint(t.w, speaker(m))
			}
			if t.shown < len(runes) {
				_, _ = fmt.Fprint(t.w, string(runes[t.shown:]))
			}
			_, _ = fmt.Fprint(t.w, "\n\n")
		}
		t.printed++
		t.shown = 0
	}

	if p := s.Pending; p != nil && p.Index == t.printed && p.Shown > t.shown {
		if t.shown == 0 {
			_, _ = fmt.Fprint(t.w, speaker(s.Messages[p.Index]))
		}
		_, _ = fmt.Fprint(t.w, string([]rune(p.Partial)[t.shown:]))
		t.shown = p.Shown
	}

	if s.Pending == nil && !s.Awaiting && t.printed == len(s.Messages) {
		select {
		case t.done <- struct{}{}:
		default:
		}
	}
}

func speaker(m internal.Message) string {
	label := "assistant"
	if m.ProviderLabel != "" {
		label = m.ProviderLabel
	}
	return assistantStyle.Render(label+":") + " "
}
