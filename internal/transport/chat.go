package transport

import (
	"context"
	"errors"
	"net/http"

	"github.com/iksnae/synapse-chat/internal"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Message        string        `json:"message"`
	History        []chatMessage `json:"history"`
	Image          string        `json:"image,omitempty"`
	ConversationID string        `json:"conversationId,omitempty"`
	SearchWeb      bool          `json:"searchWeb,omitempty"`
}

type chatResponse struct {
	Response       *string `json:"response"`
	AIUsed         string  `json:"aiUsed"`
	ProviderKey    string  `json:"providerKey"`
	ConversationID string  `json:"conversationId"`
	Mode           string  `json:"mode"`
}

// Send posts one conversation turn and returns the assistant reply
func (c *Client) Send(ctx context.Context, req internal.ChatRequest) (internal.ChatReply, error) {
	body := chatRequest{
		Message:        req.Text,
		History:        make([]chatMessage, 0, len(req.History)),
		Image:          req.Image,
		ConversationID: req.ConversationID,
		SearchWeb:      req.SearchWeb,
	}
	for _, m := range req.History {
		body.History = append(body.History, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	var resp chatResponse
	if err := c.do(ctx, "chat", http.MethodPost, "/api/chat", body, &resp); err != nil {
		return internal.ChatReply{}, err
	}
	if resp.Response == nil {
		return internal.ChatReply{}, &internal.TransportError{
			Op:     "chat",
			Status: http.StatusOK,
			Err:    errors.New("response field missing"),
		}
	}

	reply := internal.ChatReply{
		Text:       *resp.Response,
		ProviderID: resp.ProviderKey,
	}
	if reply.ProviderID == "" || reply.ProviderID == "none" {
		reply.ProviderID = resp.AIUsed
	}
	if resp.ConversationID != "" && resp.ConversationID != req.ConversationID {
		reply.NewConversationID = resp.ConversationID
	}
	return reply, nil
}
