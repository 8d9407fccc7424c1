package transport

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/iksnae/synapse-chat/internal"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type authResponse struct {
	Token string         `json:"token"`
	User  *internal.User `json:"user"`
}

type profileResponse struct {
	User *internal.User `json:"user"`
}

func (r authResponse) credential(op string) (internal.Credential, error) {
	if r.Token == "" || r.User == nil {
		return internal.Credential{}, &internal.TransportError{
			Op:     op,
			Status: http.StatusOK,
			Err:    errors.New("token or user missing from response"),
		}
	}
	return internal.Credential{Token: r.Token, User: *r.User}, nil
}

// Login exchanges email and password for a credential
func (c *Client) Login(ctx context.Context, email, password string) (internal.Credential, error) {
	var resp authResponse
	if err := c.do(ctx, "login", http.MethodPost, "/api/auth/login", loginRequest{Email: email, Password: password}, &resp); err != nil {
		return internal.Credential{}, err
	}
	return resp.credential("login")
}

// Register creates an account and returns its credential
func (c *Client) Register(ctx context.Context, email, password, name string) (internal.Credential, error) {
	var resp authResponse
	body := loginRequest{Email: email, Password: password, Name: name}
	if err := c.do(ctx, "register", http.MethodPost, "/api/auth/register", body, &resp); err != nil {
		return internal.Credential{}, err
	}
	return resp.credential("register")
}

// Profile fetches the current user
func (c *Client) Profile(ctx context.Context) (internal.User, error) {
	var resp profileResponse
	if err := c.do(ctx, "profile", http.MethodGet, "/api/auth/profile", nil, &resp); err != nil {
		return internal.User{}, err
	}
	if resp.User == nil {
		return internal.User{}, &internal.TransportError{Op: "profile", Status: http.StatusOK, Err: errors.New("user missing from response")}
	}
	return *resp.User, nil
}

// UpdatePlan records a plan change and returns the reissued credential
func (c *Client) UpdatePlan(ctx context.Context, plan internal.Plan) (internal.Credential, error) {
	var resp authResponse
	if err := c.do(ctx, "update-plan", http.MethodPost, "/api/auth/update-plan", map[string]string{"plan": string(plan)}, &resp); err != nil {
		return internal.Credential{}, err
	}
	return resp.credential("update-plan")
}

// Conversations fetches the authenticated user's conversation history
func (c *Client) Conversations(ctx context.Context) ([]internal.Conversation, error) {
	var wire []remoteConversation
	if err := c.do(ctx, "conversations", http.MethodGet, "/api/auth/conversations", nil, &wire); err != nil {
		return nil, err
	}
	convs := make([]internal.Conversation, 0, len(wire))
	for _, w := range wire {
		conv, ok := w.conversation()
		if !ok {
			internal.LogWarn("Skipping remote conversation without id")
			continue
		}
		convs = append(convs, conv)
	}
	return convs, nil
}

// DeleteConversation removes a conversation from the user's remote history
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	return c.do(ctx, "delete-conversation", http.MethodDelete, "/api/auth/conversations/"+url.PathEscape(id), nil, nil)
}

type checkoutRequest struct {
	PlanID string `json:"planId"`
	Email  string `json:"email,omitempty"`
}

type checkoutResponse struct {
	SessionURL string `json:"sessionUrl"`
}

// Checkout starts a subscription checkout and returns the payment page URL
func (c *Client) Checkout(ctx context.Context, productID, email string) (string, error) {
	var resp checkoutResponse
	if err := c.do(ctx, "checkout", http.MethodPost, "/api/stripe/checkout", checkoutRequest{PlanID: productID, Email: email}, &resp); err != nil {
		return "", err
	}
	if resp.SessionURL == "" {
		return "", &internal.TransportError{Op: "checkout", Status: http.StatusOK, Err: errors.New("sessionUrl missing from response")}
	}
	return resp.SessionURL, nil
}
