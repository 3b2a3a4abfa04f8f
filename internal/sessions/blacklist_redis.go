// Package sessions tracks revoked access tokens.
package sessions

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "blacklist:access:"

// Blacklist records revoked access tokens in Redis until they expire.
// A Blacklist without a client is a no-op: nothing is ever revoked.
type Blacklist struct {
	client *redis.Client
	now    func() time.Time
}

// NewBlacklist returns a blacklist on client. Safe to call with nil to
// disable revocation.
func NewBlacklist(client *redis.Client) *Blacklist {
	return &Blacklist{client: client, now: time.Now}
}

// Enabled reports whether revocations are stored.
func (b *Blacklist) Enabled() bool { return b != nil && b.client != nil }

// Revoke blacklists the token identified by id until expiresAt. Tokens
// that already expired are not stored.
func (b *Blacklist) Revoke(ctx context.Context, id string, expiresAt time.Time) error {
	if !b.Enabled() {
		return nil
	}
	ttl := expiresAt.Sub(b.now())
	if ttl <= 0 {
		return nil
	}
	return b.client.Set(ctx, blacklistPrefix+id, "1", ttl).Err()
}

// IsRevoked returns true when the token id is blacklisted.
func (b *Blacklist) IsRevoked(ctx context.Context, id string) (bool, error) {
	if !b.Enabled() {
		return false, nil
	}
	exists, err := b.client.Exists(ctx, blacklistPrefix+id).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
