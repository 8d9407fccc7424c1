package internal

import "sync"

const (
	// GuestLimit is the number of requests a guest may make before signing in
	GuestLimit = 20
	// GuestWarnPercent is the advisory threshold shown before the limit is reached
	GuestWarnPercent = 80
)

// QuotaLevel is the presentation-side reading of a guest count
type QuotaLevel int

const (
	QuotaNormal QuotaLevel = iota
	QuotaWarning
	QuotaExhausted
)

func (l QuotaLevel) String() string {
	switch l {
	case QuotaWarning:
		return "warning"
	case QuotaExhausted:
		return "exhausted"
	default:
		return "normal"
	}
}

// GuestWarnCount is the count at which QuotaWarning starts
func GuestWarnCount() int {
	return GuestLimit * GuestWarnPercent / 100
}

// GuestQuotaLevel interprets a raw guest count
func GuestQuotaLevel(count int) QuotaLevel {
	switch {
	case count >= GuestLimit:
		return QuotaExhausted
	case count*100 >= GuestLimit*GuestWarnPercent:
		return QuotaWarning
	default:
		return QuotaNormal
	}
}

// GuestQuotaPercent returns the used share of the guest limit, rounded
func GuestQuotaPercent(count int) int {
	return (count*100 + GuestLimit/2) / GuestLimit
}

// GuestQuota counts requests made without authentication. It is scoped to the
// device and survives login and logout.
type GuestQuota struct {
	mu      sync.Mutex
	persist *Persistence
	scope   ScopeKey
}

// NewGuestQuota creates the tracker for a device
func NewGuestQuota(p *Persistence, deviceID string) *GuestQuota {
	return &GuestQuota{persist: p, scope: DeviceScope(FeatureGuestCount, deviceID)}
}

// CurrentCount returns the persisted count; unreadable values count as zero
func (q *GuestQuota) CurrentCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load()
}

// Increment adds one request and persists the new count. The new count is
// returned even when the write fails.
func (q *GuestQuota) Increment() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	count := q.load() + 1
	return count, q.persist.Save(q.scope, count)
}

// Reset sets the count back to zero
func (q *GuestQuota) Reset() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.persist.Save(q.scope, 0)
}

func (q *GuestQuota) load() int {
	var count int
	if !q.persist.Load(q.scope, &count) || count < 0 {
		return 0
	}
	return count
}
