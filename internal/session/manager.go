// Package session implements the conversation session manager: the single
// authority over which conversation is active, what the user has been shown,
// and how a chat turn moves from input to a persisted reply.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/iksnae/synapse-chat/internal"
	"github.com/oklog/ulid/v2"
)

// Identity reports who is signed in
type Identity interface {
	Current() (internal.Credential, bool)
	// Invalidate drops a credential the backend rejected
	Invalidate()
}

// Transport sends one chat turn
type Transport interface {
	Send(ctx context.Context, req internal.ChatRequest) (internal.ChatReply, error)
}

// RemoteHistory fetches a signed-in user's conversations from the backend
type RemoteHistory interface {
	Conversations(ctx context.Context) ([]internal.Conversation, error)
}

// Config wires a Manager. Persistence, Quota and Transport are required.
type Config struct {
	Persistence *internal.Persistence
	Quota       *internal.GuestQuota
	Identity    Identity
	Transport   Transport
	Remote      RemoteHistory
	DeviceID    string
	Scheduler   Scheduler
	Stride      int
	Interval    time.Duration
	Labels      *internal.ProviderLabels
	Now         func() time.Time
	NewID       func() string
	SearchWeb   bool
}

// PendingReveal is the assistant message currently being disclosed
type PendingReveal struct {
	Index   int
	Shown   int // runes exposed so far
	Partial string
}

// Snapshot is the observable state handed to the presentation layer
type Snapshot struct {
	ActiveConversationID string
	Messages             []internal.Message
	RevealedCount        int
	Pending              *PendingReveal
	Awaiting             bool
}

// Visible returns the messages as they should be displayed: fully revealed
// messages followed by the partial prefix of the one being revealed.
func (s Snapshot) Visible() []internal.Message {
	out := internal.CloneMessages(s.Messages[:s.RevealedCount])
	if s.Pending != nil {
		m := s.Messages[s.Pending.Index]
		m.Content = s.Pending.Partial
		out = append(out, m)
	}
	return out
}

// Outcome describes how a submission settled
type Outcome struct {
	ConversationID string
	User           internal.Message
	Reply          internal.Message
	// Err is the transport failure that Reply stands in for, nil on success
	Err           error
	Authenticated bool
	GuestCount    int
}

// Manager owns the conversation collection and the transient session.
//
// Listeners registered with Subscribe are called while the manager's lock is
// held and must not call back into the Manager.
type Manager struct {
	mu sync.Mutex

	persist   *internal.Persistence
	quota     *internal.GuestQuota
	identity  Identity
	transport Transport
	remote    RemoteHistory
	labels    *internal.ProviderLabels
	now       func() time.Time
	newID     func() string
	deviceID  string
	searchWeb bool

	scope         internal.ScopeKey
	conversations []internal.Conversation

	activeID      string
	messages      []internal.Message
	revealedCount int
	reveal        *revealer
	awaiting      bool

	listeners    map[int]func(Snapshot)
	nextListener int
}

type guestIdentity struct{}

func (guestIdentity) Current() (internal.Credential, bool) { return internal.Credential{}, false }
func (guestIdentity) Invalidate()                          {}

// NewManager creates a manager scoped to the device until Hydrate is called
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Persistence == nil || cfg.Quota == nil || cfg.Transport == nil {
		return nil, errors.New("session: persistence, quota and transport are required")
	}
	if cfg.Identity == nil {
		cfg.Identity = guestIdentity{}
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = SystemScheduler{}
	}
	if cfg.Stride <= 0 {
		cfg.Stride = internal.DefaultRevealStride
	}
	if cfg.Interval <= 0 {
		cfg.Interval = internal.DefaultRevealInterval
	}
	if cfg.Labels == nil {
		cfg.Labels = internal.NewProviderLabels(nil)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = func() string { return ulid.Make().String() }
	}

	m := &Manager{
		persist:   cfg.Persistence,
		quota:     cfg.Quota,
		identity:  cfg.Identity,
		transport: cfg.Transport,
		remote:    cfg.Remote,
		labels:    cfg.Labels,
		now:       cfg.Now,
		newID:     cfg.NewID,
		deviceID:  cfg.DeviceID,
		searchWeb: cfg.SearchWeb,
		reveal:    newRevealer(cfg.Scheduler, cfg.Stride, cfg.Interval),
		messages:  []internal.Message{},
		listeners: make(map[int]func(Snapshot)),
	}
	m.scope = internal.DeviceScope(internal.FeatureConversations, cfg.DeviceID)
	m.conversations = m.persist.LoadConversations(m.scope)
	return m, nil
}

// Hydrate selects the persistence scope for the current identity and loads its
// conversations. A signed-in user's history is fetched from the backend and
// mirrored locally; if the fetch fails the local copy is used.
func (m *Manager) Hydrate(ctx context.Context) error {
	cred, authed := m.identity.Current()

	var remote []internal.Conversation
	var fetchErr error
	if authed && m.remote != nil {
		remote, fetchErr = m.remote.Conversations(ctx)
		if errors.Is(fetchErr, internal.ErrUnauthorized) {
			m.identity.Invalidate()
			cred, authed = internal.Credential{}, false
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if authed {
		m.scope = internal.UserScope(internal.FeatureConversations, cred.User.ID)
	} else {
		m.scope = internal.DeviceScope(internal.FeatureConversations, m.deviceID)
	}

	switch {
	case authed && m.remote != nil && fetchErr == nil:
		m.conversations = internal.CloneConversations(remote)
		for i := range m.conversations {
			msgs := m.conversations[i].Messages
			for j := range msgs {
				if msgs[j].Role == internal.RoleAssistant {
					msgs[j].ProviderLabel = m.labels.Label(msgs[j].ProviderLabel)
				}
			}
		}
		if err := m.persist.SaveConversations(m.scope, m.conversations); err != nil {
			internal.LogWarn("Failed to mirror remote conversations: %v", err)
		}
		internal.LogDebug("Hydrated %d conversations from backend", len(m.conversations))
	default:
		if fetchErr != nil {
			internal.LogWarn("Failed to fetch conversations, using local copy: %v", fetchErr)
		}
		m.conversations = m.persist.LoadConversations(m.scope)
		internal.LogDebug("Hydrated %d conversations from %s", len(m.conversations), m.scope)
	}

	m.resetSession()
	m.notify()
	return fetchErr
}

// syncScopeLocked leaves a user scope the identity no longer holds, so a
// signed-out user's history is neither shown to nor written by the guest
func (m *Manager) syncScopeLocked() {
	if m.awaiting || !strings.HasPrefix(m.scope.Identity, "user:") {
		return
	}
	cred, authed := m.identity.Current()
	next := internal.DeviceScope(internal.FeatureConversations, m.deviceID)
	if authed {
		next = internal.UserScope(internal.FeatureConversations, cred.User.ID)
	}
	if next == m.scope {
		return
	}
	internal.LogDebug("Identity changed, switching conversations from %s to %s", m.scope, next)
	m.scope = next
	m.conversations = m.persist.LoadConversations(m.scope)
	m.resetSession()
	m.notify()
}

// StartNewSession clears the active conversation and the reveal state
func (m *Manager) StartNewSession() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetSession()
	m.notify()
}

// LoadConversation makes a stored conversation active. It reports false, and
// changes nothing, when id is unknown.
func (m *Manager) LoadConversation(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncScopeLocked()
	idx := internal.FindConversation(m.conversations, id)
	if idx < 0 {
		return false
	}
	m.reveal.abandon()
	m.activeID = id
	m.messages = internal.CloneMessages(m.conversations[idx].Messages)
	m.revealedCount = len(m.messages)
	m.notify()
	return true
}

// DeleteConversation removes a conversation and persists the collection.
// Deleting the active conversation starts a new session.
func (m *Manager) DeleteConversation(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := internal.FindConversation(m.conversations, id)
	if idx < 0 {
		return internal.ErrNotFound
	}
	m.conversations = append(m.conversations[:idx:idx], m.conversations[idx+1:]...)
	err := m.persistLocked()
	if m.activeID == id {
		m.resetSession()
	}
	m.notify()
	return err
}

// Conversations returns a copy of the collection, newest first
func (m *Manager) Conversations() []internal.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncScopeLocked()
	return internal.CloneConversations(m.conversations)
}

// Conversation returns a copy of one stored conversation
func (m *Manager) Conversation(id string) (internal.Conversation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncScopeLocked()
	idx := internal.FindConversation(m.conversations, id)
	if idx < 0 {
		return internal.Conversation{}, false
	}
	return m.conversations[idx].Clone(), true
}

// Scope returns the persistence scope of the collection
func (m *Manager) Scope() internal.ScopeKey {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scope
}

// Snapshot returns the current observable state
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Subscribe registers fn for every state change and returns its cancel func
func (m *Manager) Subscribe(fn func(Snapshot)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// FinalizeReveal jumps the message being revealed to its full content
func (m *Manager) FinalizeReveal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reveal.finalize() {
		m.revealedCount = len(m.messages)
		m.notify()
	}
}

// Submit sends text as the next user turn of the active conversation, creating
// the conversation if needed, and settles with an assistant turn. Validation,
// quota and in-flight rejections return an error with no state change; a
// transport failure is recorded as the assistant turn and reported in
// Outcome.Err.
func (m *Manager) Submit(ctx context.Context, text, image string) (*Outcome, error) {
	p, err := m.begin(text)
	if err != nil {
		return nil, err
	}

	internal.LogDebug("Sending turn for %s with %d prior messages", p.conversationID, len(p.history))
	reply, sendErr := m.transport.Send(ctx, internal.ChatRequest{
		Text:           text,
		History:        p.history,
		Image:          image,
		ConversationID: p.conversationID,
		SearchWeb:      m.searchWeb,
	})

	return m.settle(p, reply, sendErr), nil
}

type pending struct {
	conversationID string
	user           internal.Message
	history        []internal.Message
	authenticated  bool
	guestCount     int
}

// begin performs the synchronous half of a submission
func (m *Manager) begin(text string) (*pending, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &internal.ValidationError{Field: "message", Reason: "must not be empty"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.awaiting {
		return nil, internal.ErrSubmissionInFlight
	}
	m.syncScopeLocked()

	_, authed := m.identity.Current()
	count := 0
	if !authed {
		count = m.quota.CurrentCount()
		if count >= internal.GuestLimit {
			return nil, internal.ErrQuotaExceeded
		}
	}

	now := m.now()
	if m.activeID == "" {
		conv := internal.NewConversation(m.newID(), text, now)
		m.conversations = append([]internal.Conversation{conv}, m.conversations...)
		m.activeID = conv.ID
		m.messages = []internal.Message{}
		m.revealedCount = 0
		if err := m.persistLocked(); err != nil {
			internal.LogWarn("Failed to persist new conversation %s: %v", conv.ID, err)
		}
	}

	p := &pending{
		conversationID: m.activeID,
		user:           internal.Message{Role: internal.RoleUser, Content: text, CreatedAt: now},
		history:        internal.CloneMessages(m.messages),
		authenticated:  authed,
	}

	m.reveal.finalize()
	m.messages = append(m.messages, p.user)
	m.revealedCount = len(m.messages)
	m.awaiting = true

	if !authed {
		n, err := m.quota.Increment()
		if err != nil {
			internal.LogWarn("Failed to persist guest request count: %v", err)
		}
		p.guestCount = n
	}

	m.notify()
	return p, nil
}

// settle records the assistant turn for a finished request
func (m *Manager) settle(p *pending, reply internal.ChatReply, sendErr error) *Outcome {
	if errors.Is(sendErr, internal.ErrUnauthorized) {
		m.identity.Invalidate()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.awaiting = false

	now := m.now()
	assistant := internal.Message{Role: internal.RoleAssistant, CreatedAt: now}
	if sendErr != nil {
		internal.LogWarn("Chat request for %s failed: %v", p.conversationID, sendErr)
		assistant.Content = FailureMessage(sendErr)
	} else {
		assistant.Content = reply.Text
		assistant.ProviderLabel = m.labels.Label(reply.ProviderID)
	}

	out := &Outcome{
		ConversationID: p.conversationID,
		User:           p.user,
		Reply:          assistant,
		Err:            sendErr,
		Authenticated:  p.authenticated,
		GuestCount:     p.guestCount,
	}

	idx := internal.FindConversation(m.conversations, p.conversationID)
	if idx < 0 {
		internal.LogWarn("Conversation %s was deleted before its reply arrived; dropping reply", p.conversationID)
		m.notify()
		return out
	}

	conv := &m.conversations[idx]
	conv.Append(now, p.user, assistant)

	if id := reply.NewConversationID; sendErr == nil && id != "" && id != conv.ID {
		if internal.FindConversation(m.conversations, id) >= 0 {
			internal.LogWarn("Backend conversation id %s already exists locally; keeping %s", id, conv.ID)
		} else {
			internal.LogDebug("Re-keying conversation %s to backend id %s", conv.ID, id)
			if m.activeID == conv.ID {
				m.activeID = id
			}
			conv.ID = id
			out.ConversationID = id
		}
	}

	if err := m.persistLocked(); err != nil {
		internal.LogWarn("Failed to persist conversation %s: %v", conv.ID, err)
	}

	if m.activeID == conv.ID {
		m.messages = internal.CloneMessages(conv.Messages)
		index := len(m.messages) - 1
		m.revealedCount = index
		m.reveal.start(index, assistant.Content, m.tick)
		if m.reveal.state == RevealIdle {
			m.revealedCount = len(m.messages)
		}
	}

	m.notify()
	return out
}

func (m *Manager) tick(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.reveal.advance(gen, m.tick) {
		return
	}
	if m.reveal.state == RevealIdle {
		m.revealedCount = len(m.messages)
	}
	m.notify()
}

func (m *Manager) resetSession() {
	m.reveal.abandon()
	m.activeID = ""
	m.messages = []internal.Message{}
	m.revealedCount = 0
}

func (m *Manager) persistLocked() error {
	return m.persist.SaveConversations(m.scope, m.conversations)
}

func (m *Manager) snapshotLocked() Snapshot {
	s := Snapshot{
		ActiveConversationID: m.activeID,
		Messages:             internal.CloneMessages(m.messages),
		RevealedCount:        m.revealedCount,
		Awaiting:             m.awaiting,
	}
	if m.reveal.state == RevealRevealing {
		s.Pending = &PendingReveal{
			Index:   m.reveal.index,
			Shown:   m.reveal.shown,
			Partial: m.reveal.partial(),
		}
	}
	return s
}

func (m *Manager) notify() {
	if len(m.listeners) == 0 {
		return
	}
	s := m.snapshotLocked()
	for _, fn := range m.listeners {
		fn(s)
	}
}
