package ports

import (
	"context"

	"github.com/famlio/budget-api/internal/core/domain"
)

// CreateInvitationInput carries the parameters for creating an invitation.
type CreateInvitationInput struct {
	AccountID string
	InviterID string
	// Target is the invitee's email or phone identifier.
	Target string
}

// CreateInvitationResult is returned by CreateInvitation. DispatchWarning is
// set when the notification could not be sent; the invitation is still valid
// and the link can be shared out-of-band.
type CreateInvitationResult struct {
	Invitation      *domain.Invitation
	AlreadyExisted  bool
	DispatchWarning string
}

// InvitationService is the invitation lifecycle manager: create, accept,
// revoke, list and garbage-collect invitations.
type InvitationService interface {
	// CreateInvitation checks the inviter's admin role against the store,
	// returns an existing pending invitation for the same (account, target)
	// unchanged, otherwise inserts one expiring in domain.InvitationTTL and
	// requests dispatch.
	CreateInvitation(ctx context.Context, in CreateInvitationInput) (*CreateInvitationResult, error)

	// AcceptInvitation joins the accepting user to the invited account.
	// Membership is created before the invitation is marked accepted so a
	// crash in between leaves the invitation pending and retryable.
	AcceptInvitation(ctx context.Context, invitationID string, acceptingUser domain.User) (*domain.Account, error)

	// RevokeInvitation deletes the invitation and clears the account's
	// denormalized pending pointer. No-op success on missing or consumed
	// invitations.
	RevokeInvitation(ctx context.Context, accountID, invitationID, requestingUserID string) error

	// ListPendingInvitations returns pending, unexpired invitations
	// addressed to the given identifier.
	ListPendingInvitations(ctx context.Context, identifier string) ([]domain.Invitation, error)

	// ReconcileOrphans deletes pending invitations whose account no longer
	// exists, processing rows independently. Returns the number removed.
	ReconcileOrphans(ctx context.Context) (int, error)
}
