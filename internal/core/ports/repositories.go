package ports

import (
	"context"
	"time"

	"github.com/famlio/budget-api/internal/core/domain"
)

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	// Create inserts a new account. Returns domain.ErrAccountExists when a
	// bootstrap account for the same owner already exists (unique partial
	// index on owner_user_id).
	Create(ctx context.Context, a *domain.Account) error
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	// FindBootstrapByOwner returns the auto-created personal account for a
	// user, if one exists. Used to resolve bootstrap races: when Create hits
	// the unique owner constraint, the winner is fetched through this.
	FindBootstrapByOwner(ctx context.Context, userID string) (*domain.Account, error)
	// SetPendingInvitation updates the denormalized pending-invitation
	// pointer; empty invitationID clears it.
	SetPendingInvitation(ctx context.Context, accountID, invitationID string) error
}

// MembershipRepository defines persistence operations for the account/user
// join entity. The store enforces uniqueness on (accountID, userID).
type MembershipRepository interface {
	// Upsert inserts the membership or leaves an existing (accountID, userID)
	// row untouched. Idempotent: a repeat call after partial success must
	// not error.
	Upsert(ctx context.Context, m *domain.Membership) error
	// ListByUser returns all memberships for a user ordered by joined_at
	// ascending. An empty result is valid (new user).
	ListByUser(ctx context.Context, userID string) ([]domain.Membership, error)
	// Find returns the membership for (accountID, userID) or
	// domain.ErrNotAMember.
	Find(ctx context.Context, accountID, userID string) (*domain.Membership, error)
}

// InvitationRepository defines persistence operations for invitations.
type InvitationRepository interface {
	// Create inserts a new invitation. Returns domain.ErrInvitationExists
	// when an unaccepted invitation for the same (accountID, target) is
	// already stored (unique partial index), which makes concurrent creates
	// converge on one row.
	Create(ctx context.Context, inv *domain.Invitation) error
	FindByID(ctx context.Context, id string) (*domain.Invitation, error)
	// FindUnacceptedByAccountTarget returns the unaccepted invitation for
	// (accountID, target) regardless of expiry, or
	// domain.ErrInvitationNotFound. Expiry is judged by the caller so an
	// expired occupant can be replaced.
	FindUnacceptedByAccountTarget(ctx context.Context, accountID, target string) (*domain.Invitation, error)
	// ListPendingByTarget returns all pending, unexpired invitations
	// addressed to the given (normalized) identifier.
	ListPendingByTarget(ctx context.Context, target string, now time.Time) ([]domain.Invitation, error)
	// ListPending returns every invitation whose accepted_at is null,
	// expired or not, for the orphan sweep.
	ListPending(ctx context.Context) ([]domain.Invitation, error)
	// MarkAccepted sets accepted_at only if it is currently null. Returns
	// domain.ErrInvitationNotFound when the conditional update matches no
	// row, which serializes concurrent accept/revoke across processes.
	MarkAccepted(ctx context.Context, id string, at time.Time) error
	// Delete removes an invitation. Deleting a missing invitation is a
	// no-op success.
	Delete(ctx context.Context, id string) error
}

// ProfileRepository persists the per-user profile row, including the
// preferred account id, the only durable trace of account selection.
type ProfileRepository interface {
	// Find returns the profile row or domain.ErrProfileNotFound.
	Find(ctx context.Context, userID string) (*domain.Profile, error)
	// SetPreferredAccount upserts the profile and records the preference.
	SetPreferredAccount(ctx context.Context, userID, accountID string) error
}
