// Package account owns the signed-in state: the current credential, login,
// registration, logout and profile refresh.
package account

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/iksnae/synapse-chat/internal"
)

// MinPasswordLength is the shortest password accepted at registration
const MinPasswordLength = 6

// AuthAPI is the remote side of authentication
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (internal.Credential, error)
	Register(ctx context.Context, email, password, name string) (internal.Credential, error)
	Profile(ctx context.Context) (internal.User, error)
	UpdatePlan(ctx context.Context, plan internal.Plan) (internal.Credential, error)
}

// Session is the single place the credential lives. Other components ask it
// for the current identity instead of reading storage themselves.
type Session struct {
	mu    sync.RWMutex
	store *internal.CredentialStore
	api   AuthAPI
	now   func() time.Time
	cred  internal.Credential
	ok    bool
}

// New loads any stored credential
func New(store *internal.CredentialStore, api AuthAPI) *Session {
	s := &Session{store: store, api: api, now: time.Now}
	s.cred, s.ok = store.Load()
	return s
}

// SetClock replaces the time source used for expiry checks
func (s *Session) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Current returns the credential if one is present and unexpired
func (s *Session) Current() (internal.Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ok || !s.cred.Valid(s.now()) {
		return internal.Credential{}, false
	}
	return s.cred, true
}

// Token returns the bearer token of a valid credential, or ""
func (s *Session) Token() string {
	c, ok := s.Current()
	if !ok {
		return ""
	}
	return c.Token
}

// Login authenticates and replaces the stored credential
func (s *Session) Login(ctx context.Context, email, password string) (internal.Credential, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return internal.Credential{}, &internal.ValidationError{Field: "credentials", Reason: "email and password required"}
	}
	cred, err := s.api.Login(ctx, email, password)
	if err != nil {
		return internal.Credential{}, err
	}
	return cred, s.replace(cred)
}

// Register validates the input, creates the account and signs in
func (s *Session) Register(ctx context.Context, email, password, name string) (internal.Credential, error) {
	email = strings.TrimSpace(email)
	if err := ValidateRegistration(email, password); err != nil {
		return internal.Credential{}, err
	}
	cred, err := s.api.Register(ctx, email, password, strings.TrimSpace(name))
	if err != nil {
		return internal.Credential{}, err
	}
	return cred, s.replace(cred)
}

// ValidateRegistration applies the client-side registration rules
func ValidateRegistration(email, password string) error {
	switch {
	case email == "" || password == "":
		return &internal.ValidationError{Field: "credentials", Reason: "email and password required"}
	case len([]rune(password)) < MinPasswordLength:
		return &internal.ValidationError{Field: "password", Reason: "must be at least 6 characters"}
	case !strings.Contains(email, "@"):
		return &internal.ValidationError{Field: "email", Reason: "invalid email format"}
	}
	return nil
}

// Logout destroys the credential
func (s *Session) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred, s.ok = internal.Credential{}, false
	return s.store.Clear()
}

// Invalidate is called when the backend rejects the credential. The failure to
// clear storage is logged; the in-memory credential is dropped regardless.
func (s *Session) Invalidate() {
	internal.LogWarn("Credential rejected by backend, signing out")
	if err := s.Logout(); err != nil {
		internal.LogWarn("Failed to clear stored credential: %v", err)
	}
}

// Refresh fetches the current profile. A 401 signs the user out.
func (s *Session) Refresh(ctx context.Context) (internal.User, error) {
	cred, ok := s.Current()
	if !ok {
		return internal.User{}, internal.ErrNotAuthenticated
	}
	user, err := s.api.Profile(ctx)
	if errors.Is(err, internal.ErrUnauthorized) {
		s.Invalidate()
		return internal.User{}, err
	}
	if err != nil {
		return internal.User{}, err
	}
	cred.User = user
	return user, s.replace(cred)
}

// UpdatePlan records a plan change on the backend and stores the reissued credential
func (s *Session) UpdatePlan(ctx context.Context, plan internal.Plan) (internal.Credential, error) {
	if _, ok := s.Current(); !ok {
		return internal.Credential{}, internal.ErrNotAuthenticated
	}
	cred, err := s.api.UpdatePlan(ctx, plan)
	if errors.Is(err, internal.ErrUnauthorized) {
		s.Invalidate()
		return internal.Credential{}, err
	}
	if err != nil {
		return internal.Credential{}, err
	}
	return cred, s.replace(cred)
}

func (s *Session) replace(cred internal.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred, s.ok = cred, true
	if err := s.store.Save(cred); err != nil {
		internal.LogWarn("Failed to persist credential: %v", err)
		return err
	}
	return nil
}
