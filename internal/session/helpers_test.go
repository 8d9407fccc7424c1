package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/iksnae/synapse-chat/internal"
	"github.com/stretchr/testify/require"
)

// manualScheduler queues callbacks until the test fires them
type manualScheduler struct {
	mu      sync.Mutex
	pending []*manualTimer
}

type manualTimer struct {
	s       *manualScheduler
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (s *manualScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{s: s, fn: fn}
	s.pending = append(s.pending, t)
	return t
}

// Step fires the oldest live timer and reports whether one ran
func (s *manualScheduler) Step() bool {
	s.mu.Lock()
	var next *manualTimer
	for len(s.pending) > 0 {
		t := s.pending[0]
		s.pending = s.pending[1:]
		if !t.stopped {
			next = t
			break
		}
	}
	if next != nil {
		next.fired = true
	}
	s.mu.Unlock()
	if next == nil {
		return false
	}
	next.fn()
	return true
}

// Drain fires timers until none remain
func (s *manualScheduler) Drain() int {
	n := 0
	for s.Step() {
		n++
	}
	return n
}

// fakeTransport returns a fixed reply or error, optionally blocking until released
type fakeTransport struct {
	mu       sync.Mutex
	reply    internal.ChatReply
	err      error
	requests []internal.ChatRequest
	block    chan struct{}
	started  chan struct{}
}

func (f *fakeTransport) Send(ctx context.Context, req internal.ChatRequest) (internal.ChatReply, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	block, started := f.block, f.started
	reply, err := f.reply, f.err
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		<-block
	}
	return reply, err
}

func (f *fakeTransport) Requests() []internal.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]internal.ChatRequest(nil), f.requests...)
}

// fakeIdentity is a switchable signed-in state
type fakeIdentity struct {
	mu          sync.Mutex
	cred        internal.Credential
	ok          bool
	invalidated int
}

func (f *fakeIdentity) Current() (internal.Credential, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cred, f.ok
}

func (f *fakeIdentity) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cred, f.ok = internal.Credential{}, false
	f.invalidated++
}

func (f *fakeIdentity) signIn(userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cred = internal.Credential{Token: "tok", User: internal.User{ID: userID}}
	f.ok = true
}

type fakeRemote struct {
	convs []internal.Conversation
	err   error
}

func (f *fakeRemote) Conversations(ctx context.Context) ([]internal.Conversation, error) {
	return f.convs, f.err
}

type harness struct {
	store     *internal.MemoryStore
	persist   *internal.Persistence
	quota     *internal.GuestQuota
	identity  *fakeIdentity
	transport *fakeTransport
	sched     *manualScheduler
	manager   *Manager
	clock     time.Time
}

const testDevice = "device-1"

func newHarness(t *testing.T, opts ...func(*Config)) *harness {
	t.Helper()
	h := &harness{
		store:     internal.NewMemoryStore(),
		identity:  &fakeIdentity{},
		transport: &fakeTransport{reply: internal.ChatReply{Text: "Hello! How can I help?", ProviderID: "openai"}},
		sched:     &manualScheduler{},
		clock:     time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
	}
	h.persist = internal.NewPersistence(h.store)
	h.quota = internal.NewGuestQuota(h.persist, testDevice)

	ids := 0
	cfg := Config{
		Persistence: h.persist,
		Quota:       h.quota,
		Identity:    h.identity,
		Transport:   h.transport,
		DeviceID:    testDevice,
		Scheduler:   h.sched,
		Stride:      6,
		Interval:    12 * time.Millisecond,
		Now: func() time.Time {
			h.clock = h.clock.Add(time.Second)
			return h.clock
		},
		NewID: func() string {
			ids++
			return fmt.Sprintf("conv-%d", ids)
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	m, err := NewManager(cfg)
	require.NoError(t, err)
	h.manager = m
	return h
}

func (h *harness) setGuestCount(t *testing.T, n int) {
	t.Helper()
	require.NoError(t, h.persist.Save(internal.DeviceScope(internal.FeatureGuestCount, testDevice), n))
}

func (h *harness) stored() []internal.Conversation {
	return h.persist.LoadConversations(h.manager.Scope())
}
