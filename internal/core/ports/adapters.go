package ports

import (
	"context"

	"github.com/famlio/budget-api/internal/core/domain"
)

// IdentityProvider is the boundary to the external session/auth service.
// Token issuance and password handling live on the other side of it.
type IdentityProvider interface {
	// CurrentUser resolves a session token to the authenticated user.
	// Returns (nil, nil) when the token is absent, expired or invalid:
	// "not logged in" is a normal state, not an error.
	CurrentUser(ctx context.Context, sessionToken string) (*domain.User, error)
}

// InvitationNotice carries everything the dispatcher needs to render and
// send one invitation message.
type InvitationNotice struct {
	Target       string
	InvitationID string
	AccountName  string
	InviterName  string
}

// NotificationDispatcher is the outbound boundary for invitation messages.
// Best effort: failures are logged and counted, never propagated as a
// rollback of the invitation itself.
type NotificationDispatcher interface {
	Send(ctx context.Context, notice InvitationNotice) error
}

// SessionCache is the per-process ephemeral mirror used by the resolver.
// Nothing in it is a source of truth; every entry is rebuildable from the
// durable store.
type SessionCache interface {
	// GetIdentity returns the last cached snapshot for a user, however
	// stale, or (nil, nil) on miss.
	GetIdentity(ctx context.Context, userID string) (*domain.ResolvedIdentity, error)
	// PutIdentity stores a snapshot. Retention must exceed the resolver's
	// freshness TTL so stale-serving under store failure works.
	PutIdentity(ctx context.Context, userID string, ident *domain.ResolvedIdentity) error
	// DropIdentity removes the snapshot (sign-out, account switch).
	DropIdentity(ctx context.Context, userID string) error
	// TryInviteCheck reports whether the pending-invitation store check is
	// allowed right now for this user, and if so claims the slot for the
	// configured throttle interval.
	TryInviteCheck(ctx context.Context, userID string) (bool, error)
	// MarkNoticeShown records that an invitation notice has been surfaced
	// so it is not re-shown within the same client session; best effort,
	// TTL-evicted.
	MarkNoticeShown(ctx context.Context, userID, invitationID string) error
	// NoticeShown reports whether the invitation notice was already
	// surfaced to this user.
	NoticeShown(ctx context.Context, userID, invitationID string) (bool, error)
}
