package ports

import (
	"context"

	"github.com/famlio/budget-api/internal/core/domain"
)

// ResolverService turns "who am I and which account is active" into a
// deduplicated, cached, retry-safe operation. Safe to call concurrently from
// any number of independent triggers.
type ResolverService interface {
	// Resolve returns the identity snapshot for the session token's user.
	// A cached snapshot younger than the freshness TTL is returned without
	// touching the store unless forceRefresh is set. Concurrent callers for
	// the same user attach to a single in-flight execution. On store
	// failure a stale snapshot, when present, is served instead of the
	// error.
	Resolve(ctx context.Context, sessionToken string, forceRefresh bool) (*domain.ResolvedIdentity, error)

	// SwitchActiveAccount validates membership, persists the preference and
	// invalidates the cached snapshot, then re-resolves.
	SwitchActiveAccount(ctx context.Context, sessionToken, accountID string) (*domain.Account, error)

	// Invalidate drops the user's cached snapshot (sign-out, external
	// session change).
	Invalidate(ctx context.Context, userID string) error
}
