package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/famlio/budget-api/internal/core/domain"
	"github.com/famlio/budget-api/internal/core/ports"
	"github.com/famlio/budget-api/internal/pkg/metrics"
)

// InvitationService implements the invitation lifecycle: create, notify,
// accept, revoke, and orphan garbage collection.
type InvitationService struct {
	invitations ports.InvitationRepository
	accounts    ports.AccountRepository
	memberships ports.MembershipRepository
	profiles    ports.ProfileRepository
	dispatcher  ports.NotificationDispatcher
	now         func() time.Time
	log         zerolog.Logger
}

func NewInvitationService(
	invitations ports.InvitationRepository,
	accounts ports.AccountRepository,
	memberships ports.MembershipRepository,
	profiles ports.ProfileRepository,
	dispatcher ports.NotificationDispatcher,
	log zerolog.Logger,
) *InvitationService {
	return &InvitationService{
		invitations: invitations,
		accounts:    accounts,
		memberships: memberships,
		profiles:    profiles,
		dispatcher:  dispatcher,
		now:         func() time.Time { return time.Now().UTC() },
		log:         log,
	}
}

// CreateInvitation creates (or returns the existing) pending invitation for
// (account, target). The inviter's admin role is checked against the store,
// never trusted from caller state. Dispatch failure is a soft warning, not a
// rollback.
func (s *InvitationService) CreateInvitation(ctx context.Context, in ports.CreateInvitationInput) (*ports.CreateInvitationResult, error) {
	member, err := s.memberships.Find(ctx, in.AccountID, in.InviterID)
	if err != nil {
		if errors.Is(err, domain.ErrNotAMember) {
			return nil, domain.ErrNotAuthorized
		}
		return nil, fmt.Errorf("create invitation: %w", err)
	}
	if member.Role != domain.RoleAdmin {
		return nil, domain.ErrNotAuthorized
	}

	account, err := s.accounts.FindByID(ctx, in.AccountID)
	if err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}

	now := s.now()
	target := domain.NormalizeTarget(in.Target)

	// Idempotent create: repeated UI submissions return the live invitation
	// unchanged instead of spamming the target. An expired occupant is
	// removed so the new invitation can take its slot.
	if existing, err := s.invitations.FindUnacceptedByAccountTarget(ctx, in.AccountID, target); err == nil && existing != nil {
		if existing.StatusAt(now) == domain.InvitationPending {
			s.log.Debug().Str("invitation_id", existing.ID).Str("account_id", in.AccountID).
				Msg("pending invitation already exists")
			return &ports.CreateInvitationResult{Invitation: existing, AlreadyExisted: true}, nil
		}
		if err := s.invitations.Delete(ctx, existing.ID); err != nil {
			return nil, fmt.Errorf("create invitation: %w", err)
		}
	} else if err != nil && !errors.Is(err, domain.ErrInvitationNotFound) {
		return nil, fmt.Errorf("create invitation: %w", err)
	}

	inv := &domain.Invitation{
		ID:        uuid.NewString(),
		AccountID: in.AccountID,
		Target:    target,
		InviterID: in.InviterID,
		CreatedAt: now,
		ExpiresAt: now.Add(domain.InvitationTTL),
	}
	if err := s.invitations.Create(ctx, inv); err != nil {
		if errors.Is(err, domain.ErrInvitationExists) {
			// Lost a concurrent create: the unique (account, target) index
			// admitted exactly one row. Return the winner's invitation.
			winner, findErr := s.invitations.FindUnacceptedByAccountTarget(ctx, in.AccountID, target)
			if findErr != nil {
				return nil, fmt.Errorf("create invitation: %w", findErr)
			}
			return &ports.CreateInvitationResult{Invitation: winner, AlreadyExisted: true}, nil
		}
		return nil, fmt.Errorf("create invitation: %w", err)
	}
	if err := s.accounts.SetPendingInvitation(ctx, in.AccountID, inv.ID); err != nil {
		s.log.Warn().Err(err).Str("account_id", in.AccountID).Msg("failed to set pending invitation pointer")
	}
	metrics.InvitationsCreatedTotal.Inc()

	result := &ports.CreateInvitationResult{Invitation: inv}

	inviterName := in.InviterID
	if p, err := s.profiles.Find(ctx, in.InviterID); err == nil && p.DisplayName != "" {
		inviterName = p.DisplayName
	}
	notice := ports.InvitationNotice{
		Target:       target,
		InvitationID: inv.ID,
		AccountName:  account.Name,
		InviterName:  inviterName,
	}
	if err := s.dispatcher.Send(ctx, notice); err != nil {
		metrics.DispatchFailuresTotal.Inc()
		s.log.Warn().Err(err).Str("invitation_id", inv.ID).Msg("invitation dispatch failed")
		result.DispatchWarning = domain.ErrDispatchFailed.Error()
	}

	s.log.Info().Str("invitation_id", inv.ID).Str("account_id", in.AccountID).Msg("invitation created")
	return result, nil
}

// AcceptInvitation joins the accepting user to the invited account.
// Membership is upserted before the invitation is marked accepted: a crash
// between the two steps leaves the invitation pending and safely retryable,
// never "accepted but unjoined".
func (s *InvitationService) AcceptInvitation(ctx context.Context, invitationID string, acceptingUser domain.User) (*domain.Account, error) {
	inv, err := s.invitations.FindByID(ctx, invitationID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	switch inv.StatusAt(now) {
	case domain.InvitationAccepted:
		return nil, domain.ErrInvitationNotFound
	case domain.InvitationExpired:
		return nil, domain.ErrInvitationExpired
	}

	if !inv.AcceptableBy(acceptingUser.Email) {
		return nil, domain.ErrInvitationTargetMismatch
	}

	account, err := s.accounts.FindByID(ctx, inv.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			// Orphaned: the account is gone. Self-heal by removing the
			// invitation so it never surfaces again.
			if delErr := s.invitations.Delete(ctx, inv.ID); delErr != nil {
				s.log.Warn().Err(delErr).Str("invitation_id", inv.ID).Msg("failed to delete orphaned invitation")
			} else {
				metrics.OrphansReapedTotal.Inc()
			}
			return nil, domain.ErrInvitationNotFound
		}
		return nil, fmt.Errorf("accept invitation: %w", err)
	}

	if existing, err := s.memberships.Find(ctx, account.ID, acceptingUser.ID); err == nil && existing.Role == domain.RoleAdmin {
		return nil, domain.ErrCannotShareWithSelf
	} else if err != nil && !errors.Is(err, domain.ErrNotAMember) {
		return nil, fmt.Errorf("accept invitation: %w", err)
	}

	membership := &domain.Membership{
		AccountID: account.ID,
		UserID:    acceptingUser.ID,
		Role:      domain.RoleMember,
		JoinedAt:  now,
	}
	if err := s.memberships.Upsert(ctx, membership); err != nil {
		return nil, fmt.Errorf("accept invitation: %w", err)
	}

	// Conditional update: only one accept wins across processes. Losing the
	// race after the upsert above is harmless: same user, same membership.
	if err := s.invitations.MarkAccepted(ctx, inv.ID, now); err != nil {
		return nil, err
	}
	if err := s.accounts.SetPendingInvitation(ctx, account.ID, ""); err != nil {
		s.log.Warn().Err(err).Str("account_id", account.ID).Msg("failed to clear pending invitation pointer")
	}
	metrics.InvitationsAcceptedTotal.Inc()

	s.log.Info().Str("invitation_id", inv.ID).Str("account_id", account.ID).
		Str("user_id", acceptingUser.ID).Msg("invitation accepted")
	return account, nil
}

// RevokeInvitation removes the invitation. Already consumed or already
// deleted invitations are a no-op success: admin UIs race with acceptance.
func (s *InvitationService) RevokeInvitation(ctx context.Context, accountID, invitationID, requestingUserID string) error {
	member, err := s.memberships.Find(ctx, accountID, requestingUserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotAMember) {
			return domain.ErrNotAuthorized
		}
		return fmt.Errorf("revoke invitation: %w", err)
	}
	if member.Role != domain.RoleAdmin {
		return domain.ErrNotAuthorized
	}

	inv, err := s.invitations.FindByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, domain.ErrInvitationNotFound) {
			return nil
		}
		return fmt.Errorf("revoke invitation: %w", err)
	}
	if inv.AccountID != accountID {
		// Scoped delete: an id belonging to another account is treated as
		// missing, not leaked.
		return nil
	}

	if err := s.invitations.Delete(ctx, invitationID); err != nil {
		return fmt.Errorf("revoke invitation: %w", err)
	}
	if err := s.accounts.SetPendingInvitation(ctx, accountID, ""); err != nil {
		s.log.Warn().Err(err).Str("account_id", accountID).Msg("failed to clear pending invitation pointer")
	}
	metrics.InvitationsRevokedTotal.Inc()

	s.log.Info().Str("invitation_id", invitationID).Str("account_id", accountID).Msg("invitation revoked")
	return nil
}

// ListPendingInvitations returns live invitations addressed to the given
// identifier.
func (s *InvitationService) ListPendingInvitations(ctx context.Context, identifier string) ([]domain.Invitation, error) {
	invs, err := s.invitations.ListPendingByTarget(ctx, domain.NormalizeTarget(identifier), s.now())
	if err != nil {
		return nil, fmt.Errorf("list pending invitations: %w", err)
	}
	return invs, nil
}

// ReconcileOrphans sweeps pending invitations and deletes those whose
// account no longer exists. Rows are processed independently so an
// interrupted sweep leaves no partial state; the next run picks up the rest.
func (s *InvitationService) ReconcileOrphans(ctx context.Context) (int, error) {
	pending, err := s.invitations.ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("reconcile orphans: %w", err)
	}

	removed := 0
	for _, inv := range pending {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		_, err := s.accounts.FindByID(ctx, inv.AccountID)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrAccountNotFound) {
			s.log.Warn().Err(err).Str("invitation_id", inv.ID).Msg("orphan check failed, skipping row")
			continue
		}
		if err := s.invitations.Delete(ctx, inv.ID); err != nil {
			s.log.Warn().Err(err).Str("invitation_id", inv.ID).Msg("failed to delete orphaned invitation")
			continue
		}
		metrics.OrphansReapedTotal.Inc()
		removed++
	}

	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("orphaned invitations reconciled")
	}
	return removed, nil
}
