package internal

import (
	"time"
	"unicode/utf8"
)

// Role identifies the author of a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

const (
	// TitleMaxLength is the number of characters kept from the first user message
	TitleMaxLength = 50
	// TitleEllipsis marks a truncated title
	TitleEllipsis = "..."
)

// Message is a single turn in a conversation. Messages are never modified once appended.
type Message struct {
	Role          Role      `json:"role" yaml:"role"`
	Content       string    `json:"content" yaml:"content"`
	CreatedAt     time.Time `json:"createdAt" yaml:"created_at"`
	ProviderLabel string    `json:"providerLabel,omitempty" yaml:"provider_label,omitempty"`
}

// Conversation is the durable record of a chat
type Conversation struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Messages  []Message `json:"messages" yaml:"messages"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updated_at"`
}

// NewConversation materializes a conversation for its first user message.
// The title is derived here and never changes afterwards.
func NewConversation(id, firstMessage string, now time.Time) Conversation {
	return Conversation{
		ID:        id,
		Title:     DeriveTitle(firstMessage),
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DeriveTitle truncates the first user message, as typed, to TitleMaxLength characters
func DeriveTitle(firstMessage string) string {
	if utf8.RuneCountInString(firstMessage) <= TitleMaxLength {
		return firstMessage
	}
	runes := []rune(firstMessage)
	return string(runes[:TitleMaxLength]) + TitleEllipsis
}

// Append adds messages in order and refreshes UpdatedAt
func (c *Conversation) Append(now time.Time, msgs ...Message) {
	c.Messages = append(c.Messages, msgs...)
	if now.After(c.UpdatedAt) {
		c.UpdatedAt = now
	}
	if c.UpdatedAt.Before(c.CreatedAt) {
		c.UpdatedAt = c.CreatedAt
	}
}

// Clone returns a deep copy of the conversation
func (c Conversation) Clone() Conversation {
	out := c
	out.Messages = CloneMessages(c.Messages)
	return out
}

// CloneMessages copies a message slice. The result is never nil.
func CloneMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// CloneConversations deep copies a conversation collection
func CloneConversations(convs []Conversation) []Conversation {
	out := make([]Conversation, len(convs))
	for i, c := range convs {
		out[i] = c.Clone()
	}
	return out
}

// FindConversation returns the index of the conversation with the given id, or -1
func FindConversation(convs []Conversation, id string) int {
	for i := range convs {
		if convs[i].ID == id {
			return i
		}
	}
	return -1
}

// ChatRequest is one conversation turn sent to the chat endpoint
type ChatRequest struct {
	Text           string
	History        []Message
	Image          string
	ConversationID string
	SearchWeb      bool
}

// ChatReply is the structured answer of the chat endpoint
type ChatReply struct {
	Text              string
	ProviderID        string
	NewConversationID string
}
