package internal

import (
	"encoding/json"
	"errors"
	"strings"
)

// Feature names the kind of data stored under a scope
type Feature string

const (
	FeatureConversations Feature = "conversations"
	FeatureGuestCount    Feature = "guest_request_count"
	FeatureDevice        Feature = "device_id"
	FeatureAuthToken     Feature = "auth_token"
	FeatureAuthUser      Feature = "auth_user"
)

// ScopeKey addresses one (feature, identity) pair in the store.
// Identities are namespaced so a user id can never collide with a device id.
type ScopeKey struct {
	Feature  Feature
	Identity string
}

// UserScope scopes a feature to an authenticated user
func UserScope(f Feature, userID string) ScopeKey {
	return ScopeKey{Feature: f, Identity: "user:" + userID}
}

// DeviceScope scopes a feature to this device
func DeviceScope(f Feature, deviceID string) ScopeKey {
	return ScopeKey{Feature: f, Identity: "device:" + deviceID}
}

// GlobalScope is a feature without identity
func GlobalScope(f Feature) ScopeKey {
	return ScopeKey{Feature: f}
}

func (k ScopeKey) String() string {
	if k.Identity == "" {
		return string(k.Feature)
	}
	return string(k.Feature) + ":" + k.Identity
}

// ParseScopeKey reverses ScopeKey.String
func ParseScopeKey(key string) ScopeKey {
	feature, identity, _ := strings.Cut(key, ":")
	return ScopeKey{Feature: Feature(feature), Identity: identity}
}

// Persistence is the best-effort JSON layer over a Store
type Persistence struct {
	store Store
}

// NewPersistence wraps a store
func NewPersistence(store Store) *Persistence {
	return &Persistence{store: store}
}

// Store returns the underlying store
func (p *Persistence) Store() Store {
	return p.store
}

// Save encodes value as JSON under scope
func (p *Persistence) Save(scope ScopeKey, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return &StorageError{Path: scope.String(), Op: "write", Err: err}
	}
	return p.store.Put(scope.String(), data)
}

// Load decodes the value under scope into out. It reports false when the scope is
// empty or unreadable; corrupt data is logged and treated as empty.
func (p *Persistence) Load(scope ScopeKey, out interface{}) bool {
	data, err := p.store.Get(scope.String())
	if errors.Is(err, ErrNotFound) {
		return false
	}
	if err != nil {
		LogWarn("Failed to read %s: %v", scope, err)
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		LogWarn("Ignoring corrupt data under %s: %v", scope, err)
		return false
	}
	return true
}

// Clear removes the value under scope
func (p *Persistence) Clear(scope ScopeKey) error {
	return p.store.Delete(scope.String())
}

// SaveConversations mirrors a conversation collection to scope
func (p *Persistence) SaveConversations(scope ScopeKey, convs []Conversation) error {
	if convs == nil {
		convs = []Conversation{}
	}
	return p.Save(scope, convs)
}

// LoadConversations returns the collection stored under scope, or an empty one
func (p *Persistence) LoadConversations(scope ScopeKey) []Conversation {
	var convs []Conversation
	if !p.Load(scope, &convs) || convs == nil {
		return []Conversation{}
	}
	return convs
}

// Scopes lists every stored scope of a feature
func (p *Persistence) Scopes(f Feature) ([]ScopeKey, error) {
	keys, err := p.store.Keys(string(f))
	if err != nil {
		return nil, err
	}
	scopes := make([]ScopeKey, 0, len(keys))
	for _, k := range keys {
		scope := ParseScopeKey(k)
		if scope.Feature == f {
			scopes = append(scopes, scope)
		}
	}
	return scopes, nil
}
