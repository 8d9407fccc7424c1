package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Plan is a subscription tier
type Plan string

const (
	PlanBasic Plan = "BAS"
	PlanFree  Plan = "FREE"
	PlanPro   Plan = "PRO"
	PlanElite Plan = "ELITE"
)

// ParsePlan accepts plan names case-insensitively ("pro", "PRO", "basic", "bas")
func ParsePlan(s string) (Plan, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BAS", "BASIC":
		return PlanBasic, nil
	case "FREE":
		return PlanFree, nil
	case "PRO":
		return PlanPro, nil
	case "ELITE":
		return PlanElite, nil
	default:
		return "", &ValidationError{Field: "plan", Reason: fmt.Sprintf("unknown plan %q (supported: bas, free, pro, elite)", s)}
	}
}

// User is the profile attached to a credential
type User struct {
	ID                 string `json:"id"`
	Email              string `json:"email"`
	Name               string `json:"name,omitempty"`
	Plan               Plan   `json:"plan,omitempty"`
	IsPaid             bool   `json:"isPaid,omitempty"`
	SubscriptionStatus string `json:"subscriptionStatus,omitempty"`
}

// Paid reports whether the user is on a paid plan
func (u User) Paid() bool {
	return u.IsPaid || (u.Plan != "" && u.Plan != PlanFree)
}

// PlanOrFree returns the plan, defaulting to FREE
func (u User) PlanOrFree() Plan {
	if u.Plan == "" {
		return PlanFree
	}
	return u.Plan
}

// Credential is an immutable auth token plus its user. A new value replaces the
// old one on every login, refresh or plan change.
type Credential struct {
	Token string
	User  User
}

// ExpiresAt reads the exp claim without verifying the signature; the server
// verifies, the client only needs to know when to stop trusting the token.
func (c Credential) ExpiresAt() (time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.Token, claims); err != nil {
		return time.Time{}, fmt.Errorf("failed to decode token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("token has no expiry")
	}
	return claims.ExpiresAt.Time, nil
}

// Valid reports whether the token is well-formed and unexpired at now
func (c Credential) Valid(now time.Time) bool {
	if c.Token == "" {
		return false
	}
	exp, err := c.ExpiresAt()
	if err != nil {
		return false
	}
	return now.Before(exp)
}

// CredentialStore persists the credential under global keys
type CredentialStore struct {
	persist *Persistence
}

// NewCredentialStore creates a credential store
func NewCredentialStore(p *Persistence) *CredentialStore {
	return &CredentialStore{persist: p}
}

// Save replaces the stored credential
func (s *CredentialStore) Save(c Credential) error {
	if err := s.persist.Save(GlobalScope(FeatureAuthToken), c.Token); err != nil {
		return err
	}
	return s.persist.Save(GlobalScope(FeatureAuthUser), c.User)
}

// Load returns the stored credential without checking expiry
func (s *CredentialStore) Load() (Credential, bool) {
	var c Credential
	if !s.persist.Load(GlobalScope(FeatureAuthToken), &c.Token) || c.Token == "" {
		return Credential{}, false
	}
	if !s.persist.Load(GlobalScope(FeatureAuthUser), &c.User) {
		return Credential{}, false
	}
	return c, true
}

// Clear destroys the stored credential
func (s *CredentialStore) Clear() error {
	if err := s.persist.Clear(GlobalScope(FeatureAuthToken)); err != nil {
		return err
	}
	return s.persist.Clear(GlobalScope(FeatureAuthUser))
}
