// Package cache holds computed bundles per (user, session) for a fixed TTL.
//
// Eviction is lazy: an entry past its TTL is dropped by the Get that finds it,
// never by a background sweep. Age is measured against an injected clock so
// tests can step time deterministically.
package cache

import (
	"context"
	"time"

	"github.com/roach88/whereabouts/internal/model"
)

// Default key parts used when the caller supplies none.
const (
	AnonymousUser  = "anonymous"
	DefaultSession = "default"
)

// Key identifies a cached bundle.
type Key struct {
	UserID    string
	SessionID string
}

// NewKey builds a Key, substituting defaults for empty parts.
func NewKey(userID, sessionID string) Key {
	if userID == "" {
		userID = AnonymousUser
	}
	if sessionID == "" {
		sessionID = DefaultSession
	}
	return Key{UserID: userID, SessionID: sessionID}
}

// String returns the flat form of the key. The unit separator cannot appear
// in well-formed ids, so distinct keys never collide.
func (k Key) String() string {
	return k.UserID + "\x1f" + k.SessionID
}

// Entry is a cached bundle and the time it was stored.
type Entry struct {
	Bundle   *model.ContextBundle `json:"bundle"`
	StoredAt time.Time            `json:"stored_at"`
}

// Age returns how long the entry has been cached at now.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.StoredAt)
}

// Cache stores bundles. Implementations are safe for concurrent use and
// return copies: mutating a returned bundle never changes the cache.
type Cache interface {
	// Get returns the live entry for key. A missing or expired entry is a
	// miss (ok == false); expired entries are evicted as a side effect.
	Get(ctx context.Context, key Key) (entry Entry, ok bool, err error)
	// Set stores b under key, replacing any previous entry.
	Set(ctx context.Context, key Key, b *model.ContextBundle) error
	// Evict removes the entry for key, if any.
	Evict(ctx context.Context, key Key) error
}

// Clock supplies the time used for stored-at stamps and TTL checks.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Expired reports whether an entry stored at storedAt has outlived ttl at
// now. An entry expires exactly when its age reaches ttl.
func Expired(storedAt, now time.Time, ttl time.Duration) bool {
	return !now.Before(storedAt.Add(ttl))
}
