package transport

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/iksnae/synapse-chat/internal"
)

// flexID accepts ids sent either as JSON strings or numbers
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// flexTime accepts epoch milliseconds or RFC 3339 strings
type flexTime time.Time

func (f *flexTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			*f = flexTime(time.UnixMilli(ms).UTC())
			return nil
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return err
		}
		*f = flexTime(t)
		return nil
	}
	var ms float64
	if err := json.Unmarshal(data, &ms); err != nil {
		return err
	}
	*f = flexTime(time.UnixMilli(int64(ms)).UTC())
	return nil
}

type remoteMessage struct {
	Role      string   `json:"role"`
	Content   string   `json:"content"`
	AIUsed    string   `json:"aiUsed"`
	CreatedAt flexTime `json:"createdAt"`
	Timestamp flexTime `json:"timestamp"`
}

type remoteConversation struct {
	ID        flexID          `json:"id"`
	Title     string          `json:"title"`
	Messages  []remoteMessage `json:"messages"`
	CreatedAt flexTime        `json:"createdAt"`
	UpdatedAt flexTime        `json:"updatedAt"`
}

func (r remoteConversation) conversation() (internal.Conversation, bool) {
	if r.ID == "" {
		return internal.Conversation{}, false
	}
	conv := internal.Conversation{
		ID:        string(r.ID),
		Title:     r.Title,
		Messages:  make([]internal.Message, 0, len(r.Messages)),
		CreatedAt: time.Time(r.CreatedAt),
		UpdatedAt: time.Time(r.UpdatedAt),
	}
	for _, m := range r.Messages {
		created := time.Time(m.CreatedAt)
		if created.IsZero() {
			created = time.Time(m.Timestamp)
		}
		role := internal.RoleAssistant
		if strings.EqualFold(m.Role, string(internal.RoleUser)) {
			role = internal.RoleUser
		}
		conv.Messages = append(conv.Messages, internal.Message{
			Role:          role,
			Content:       m.Content,
			CreatedAt:     created,
			ProviderLabel: m.AIUsed,
		})
	}
	if conv.Title == "" {
		for _, m := range conv.Messages {
			if m.Role == internal.RoleUser {
				conv.Title = internal.DeriveTitle(m.Content)
				break
			}
		}
	}
	if conv.UpdatedAt.Before(conv.CreatedAt) {
		conv.UpdatedAt = conv.CreatedAt
	}
	return conv, true
}
