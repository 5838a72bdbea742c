package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/whereabouts/internal/cache"
	"github.com/roach88/whereabouts/internal/model"
)

// BundleCache persists bundles in the store. It satisfies cache.Cache so a
// CLI invocation can pick up the bundle computed by a previous one.
type BundleCache struct {
	db    *sql.DB
	ttl   time.Duration
	clock cache.Clock
}

// BundleCache returns a cache over the bundle_cache table.
func (s *Store) BundleCache(ttl time.Duration, clock cache.Clock) *BundleCache {
	return &BundleCache{db: s.db, ttl: ttl, clock: clock}
}

// Get implements cache.Cache.
func (c *BundleCache) Get(ctx context.Context, key cache.Key) (cache.Entry, bool, error) {
	var (
		data     string
		storedAt int64
	)
	err := c.db.QueryRowContext(ctx, `
		SELECT bundle, stored_at FROM bundle_cache
		WHERE user_id = ? AND session_id = ?
	`, key.UserID, key.SessionID).Scan(&data, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return cache.Entry{}, false, nil
	}
	if err != nil {
		return cache.Entry{}, false, fmt.Errorf("get cached bundle: %w", err)
	}

	at := fromMillis(storedAt)
	if cache.Expired(at, c.clock.Now(), c.ttl) {
		if err := c.Evict(ctx, key); err != nil {
			return cache.Entry{}, false, err
		}
		return cache.Entry{}, false, nil
	}

	b, err := unmarshalBundle(data)
	if err != nil {
		return cache.Entry{}, false, fmt.Errorf("get cached bundle: %w", err)
	}
	return cache.Entry{Bundle: b, StoredAt: at}, true, nil
}

// Set implements cache.Cache.
func (c *BundleCache) Set(ctx context.Context, key cache.Key, b *model.ContextBundle) error {
	data, err := marshalBundle(b)
	if err != nil {
		return fmt.Errorf("cache bundle: %w", err)
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO bundle_cache (user_id, session_id, bundle, stored_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, session_id) DO UPDATE SET
			bundle = excluded.bundle,
			stored_at = excluded.stored_at
	`, key.UserID, key.SessionID, data, toMillis(c.clock.Now()))
	if err != nil {
		return fmt.Errorf("cache bundle: %w", err)
	}
	return nil
}

// Evict implements cache.Cache.
func (c *BundleCache) Evict(ctx context.Context, key cache.Key) error {
	_, err := c.db.ExecContext(ctx, `
		DELETE FROM bundle_cache WHERE user_id = ? AND session_id = ?
	`, key.UserID, key.SessionID)
	if err != nil {
		return fmt.Errorf("evict cached bundle: %w", err)
	}
	return nil
}
