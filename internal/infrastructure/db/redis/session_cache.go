package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/famlio/budget-api/internal/core/domain"
)

const (
	// snapshotRetention is how long a ResolvedIdentity snapshot is kept.
	// Deliberately much longer than the resolver's freshness TTL: a stale
	// snapshot is what gets served when the store is down.
	snapshotRetention = 10 * time.Minute
	// noticeRetention bounds the "already surfaced this invitation" marks.
	// Best effort; losing them only re-shows a notice.
	noticeRetention = 12 * time.Hour

	defaultInviteCheckInterval = 30 * time.Second
)

// SessionCache is the Redis-backed ephemeral mirror used by the session
// resolver. Nothing here is a source of truth.
//
// Key formats:
//
//	ident:<user_id>                      JSON ResolvedIdentity snapshot
//	invcheck:<user_id>                   throttle slot for the pending-invitation store check
//	notice:<user_id>:<invitation_id>     invitation notice already surfaced
type SessionCache struct {
	client              *redis.Client
	inviteCheckInterval time.Duration
}

// NewSessionCache wraps the given Redis client. interval throttles how often
// one user's pending-invitation check may hit the durable store; zero or
// negative applies the default.
func NewSessionCache(client *redis.Client, interval time.Duration) *SessionCache {
	if interval <= 0 {
		interval = defaultInviteCheckInterval
	}
	return &SessionCache{client: client, inviteCheckInterval: interval}
}

// GetIdentity returns the cached snapshot however stale, or (nil, nil) on miss.
func (c *SessionCache) GetIdentity(ctx context.Context, userID string) (*domain.ResolvedIdentity, error) {
	raw, err := c.client.Get(ctx, identKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get identity snapshot: %w", err)
	}

	var ident domain.ResolvedIdentity
	if err := json.Unmarshal(raw, &ident); err != nil {
		// Corrupt entry: treat as a miss, it will be rewritten.
		return nil, nil
	}
	return &ident, nil
}

func (c *SessionCache) PutIdentity(ctx context.Context, userID string, ident *domain.ResolvedIdentity) error {
	raw, err := json.Marshal(ident)
	if err != nil {
		return fmt.Errorf("marshal identity snapshot: %w", err)
	}
	if err := c.client.Set(ctx, identKey(userID), raw, snapshotRetention).Err(); err != nil {
		return fmt.Errorf("put identity snapshot: %w", err)
	}
	return nil
}

func (c *SessionCache) DropIdentity(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, identKey(userID)).Err(); err != nil {
		return fmt.Errorf("drop identity snapshot: %w", err)
	}
	return nil
}

// TryInviteCheck claims the per-user throttle slot with SET NX. True means
// the caller may hit the store now; false means a check ran within the
// interval.
func (c *SessionCache) TryInviteCheck(ctx context.Context, userID string) (bool, error) {
	ok, err := c.client.SetNX(ctx, inviteCheckKey(userID), "1", c.inviteCheckInterval).Result()
	if err != nil {
		return false, fmt.Errorf("invite check throttle: %w", err)
	}
	return ok, nil
}

func (c *SessionCache) MarkNoticeShown(ctx context.Context, userID, invitationID string) error {
	if err := c.client.Set(ctx, noticeKey(userID, invitationID), "1", noticeRetention).Err(); err != nil {
		return fmt.Errorf("mark notice shown: %w", err)
	}
	return nil
}

func (c *SessionCache) NoticeShown(ctx context.Context, userID, invitationID string) (bool, error) {
	n, err := c.client.Exists(ctx, noticeKey(userID, invitationID)).Result()
	if err != nil {
		return false, fmt.Errorf("notice shown check: %w", err)
	}
	return n > 0, nil
}

func identKey(userID string) string {
	return "ident:" + userID
}

func inviteCheckKey(userID string) string {
	return "invcheck:" + userID
}

func noticeKey(userID, invitationID string) string {
	return "notice:" + userID + ":" + invitationID
}
