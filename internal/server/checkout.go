package server

import (
	"context"
	"errors"
	"net/url"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
)

// ErrBillingDisabled is returned when no payment provider key is configured
var ErrBillingDisabled = errors.New("billing is not configured")

// CheckoutRequest describes one subscription checkout
type CheckoutRequest struct {
	PriceID string
	PlanID  string
	Email   string
	Origin  string // public base URL the payment page returns to
}

// CheckoutCreator opens hosted checkout sessions
type CheckoutCreator interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (string, error)
}

// StripeCheckout creates Stripe subscription checkout sessions
type StripeCheckout struct {
	client *client.API
}

// NewStripeCheckout creates a checkout creator for a secret key
func NewStripeCheckout(secretKey string) (*StripeCheckout, error) {
	if secretKey == "" {
		return nil, ErrBillingDisabled
	}
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &StripeCheckout{client: sc}, nil
}

// CreateCheckout opens a session and returns its payment page URL
func (s *StripeCheckout) CreateCheckout(ctx context.Context, req CheckoutRequest) (string, error) {
	params := BuildCheckoutParams(req)
	params.Context = ctx

	sess, err := s.client.CheckoutSessions.New(params)
	if err != nil {
		return "", err
	}
	if sess.URL == "" {
		return "", errors.New("checkout session has no URL")
	}
	return sess.URL, nil
}

// BuildCheckoutParams maps a request to a card-paid, single-item subscription session
func BuildCheckoutParams(req CheckoutRequest) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(req.Origin + "/checkout/success?plan=" + url.QueryEscape(req.PlanID)),
		CancelURL:  stripe.String(req.Origin + "/pricing"),
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	return params
}
