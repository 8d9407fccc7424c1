package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iksnae/synapse-chat/internal"
)

// Handler serves the chat and billing routes
type Handler struct {
	backend   ChatBackend
	checkout  CheckoutCreator
	prices    internal.PriceIDs
	publicURL string
	now       func() time.Time
}

// NewHandler creates a handler. A nil checkout or an empty publicURL disables
// the billing route.
func NewHandler(backend ChatBackend, checkout CheckoutCreator, prices internal.PriceIDs, publicURL string) *Handler {
	if checkout != nil && publicURL == "" {
		internal.LogWarn("Checkout disabled: no public URL for checkout redirects")
		checkout = nil
	}
	return &Handler{
		backend:   backend,
		checkout:  checkout,
		prices:    prices,
		publicURL: strings.TrimRight(publicURL, "/"),
		now:       time.Now,
	}
}

type chatRequest struct {
	Message        *string `json:"message"`
	History        []Turn  `json:"history"`
	Image          string  `json:"image"`
	ConversationID string  `json:"conversationId"`
	SearchWeb      bool    `json:"searchWeb"`
}

type chatResponse struct {
	Response       string  `json:"response"`
	AIUsed         string  `json:"aiUsed"`
	ProviderKey    string  `json:"providerKey"`
	CostUSD        float64 `json:"costUSD"`
	ChargedUSD     float64 `json:"chargedUSD"`
	TokensUsed     int     `json:"tokensUsed"`
	Mode           string  `json:"mode"`
	ConversationID string  `json:"conversationId,omitempty"`
	Timestamp      string  `json:"timestamp"`
}

type chatErrorResponse struct {
	Error       string  `json:"error"`
	Response    string  `json:"response"`
	AIUsed      string  `json:"aiUsed"`
	ProviderKey string  `json:"providerKey"`
	CostUSD     float64 `json:"costUSD"`
	ChargedUSD  float64 `json:"chargedUSD"`
	TokensUsed  int     `json:"tokensUsed"`
	Mode        string  `json:"mode"`
}

// Chat answers one conversation turn through the model runtime
func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Message == nil || strings.TrimSpace(*req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required and must be a string"})
		return
	}
	if req.Image != "" || req.SearchWeb {
		internal.LogDebug("chat: %s ignores image and web search options", h.backend.Key())
	}

	turns := make([]Turn, 0, len(req.History)+1)
	for _, t := range req.History {
		role := t.Role
		if role == "" {
			role = "user"
		}
		turns = append(turns, Turn{Role: role, Content: t.Content})
	}
	turns = append(turns, Turn{Role: "user", Content: *req.Message})

	answer, err := h.backend.Chat(c.Request.Context(), turns)
	if err != nil {
		internal.LogWarn("chat via %s failed: %v", h.backend.Label(), err)
		msg := "Error: " + err.Error()
		if errors.Is(err, ErrUpstreamUnreachable) {
			msg = h.backend.UnreachableHint()
		}
		c.JSON(http.StatusInternalServerError, chatErrorResponse{
			Error:       msg,
			Response:    msg,
			AIUsed:      "Error",
			ProviderKey: "none",
			Mode:        "ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, chatResponse{
		Response:       answer,
		AIUsed:         h.backend.Label(),
		ProviderKey:    h.backend.Key(),
		Mode:           "LOCAL_LLM",
		ConversationID: req.ConversationID,
		Timestamp:      h.timestamp(),
	})
}

// ChatHealth reports whether the model runtime answers and which models it has
func (h *Handler) ChatHealth(c *gin.Context) {
	models, err := h.backend.Models(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":    "error",
			"message":   err.Error(),
			"timestamp": h.timestamp(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": h.timestamp(),
		"services": gin.H{
			"api":      true,
			"provider": h.backend.Key(),
			"model":    h.backend.Model(),
			"endpoint": h.backend.Endpoint(),
			"models":   models,
		},
	})
}

// Health is the liveness probe
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": h.timestamp()})
}

type checkoutRequest struct {
	PriceID string `json:"priceId"`
	PlanID  string `json:"planId"`
	Email   string `json:"email"`
}

// Checkout opens a subscription checkout session and returns its URL
func (h *Handler) Checkout(c *gin.Context) {
	if h.checkout == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": ErrBillingDisabled.Error()})
		return
	}

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	product, err := internal.LookupProduct(req.PlanID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	priceID := req.PriceID
	if priceID == "" {
		priceID = h.prices.For(product.ID)
	}
	if priceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no price configured for plan " + product.ID})
		return
	}

	sessionURL, err := h.checkout.CreateCheckout(c.Request.Context(), CheckoutRequest{
		PriceID: priceID,
		PlanID:  product.ID,
		Email:   req.Email,
		Origin:  h.publicURL,
	})
	if err != nil {
		internal.LogWarn("checkout for plan %s failed: %v", product.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionUrl": sessionURL})
}

func (h *Handler) timestamp() string {
	return h.now().UTC().Format(time.RFC3339)
}
