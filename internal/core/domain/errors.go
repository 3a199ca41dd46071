package domain

import "errors"

var (
	// ErrNotAuthenticated signals an operation that requires a signed-in user.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrInvitationNotFound covers missing, already-consumed and orphaned invitations.
	ErrInvitationNotFound = errors.New("invitation not found")
	// ErrInvitationExpired signals an invitation past its expiry window.
	ErrInvitationExpired = errors.New("invitation expired")
	// ErrInvitationExists signals a unique-constraint hit on invitation
	// creation: an unaccepted invitation for the same (account, target)
	// already occupies the slot.
	ErrInvitationExists = errors.New("invitation already exists")
	// ErrInvitationTargetMismatch signals acceptance by an identifier the
	// invitation was not addressed to.
	ErrInvitationTargetMismatch = errors.New("invitation addressed to a different identifier")
	// ErrCannotShareWithSelf signals an admin accepting an invitation to an
	// account they already administer.
	ErrCannotShareWithSelf = errors.New("cannot share an account with yourself")
	// ErrNotAuthorized signals a non-admin attempting an admin-only action.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrAccountNotFound signals a point read for a missing account.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountExists signals a unique-constraint hit on account creation,
	// notably a lost bootstrap race.
	ErrAccountExists = errors.New("account already exists")
	// ErrProfileNotFound signals a missing profile row.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrNotAMember signals a switch to an account the user does not belong to.
	ErrNotAMember = errors.New("not a member of this account")
	// ErrStoreUnavailable marks retryable store/network failures.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrDispatchFailed marks a failed notification send. It is soft: logged
	// and surfaced as a warning, never a rollback.
	ErrDispatchFailed = errors.New("notification dispatch failed")
)
