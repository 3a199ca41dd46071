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

// DirectoryService implements the membership directory: roster lookup,
// active-account selection, and the race-safe default-account bootstrap.
type DirectoryService struct {
	accounts    ports.AccountRepository
	memberships ports.MembershipRepository
	profiles    ports.ProfileRepository
	log         zerolog.Logger
}

func NewDirectoryService(
	accounts ports.AccountRepository,
	memberships ports.MembershipRepository,
	profiles ports.ProfileRepository,
	log zerolog.Logger,
) *DirectoryService {
	return &DirectoryService{
		accounts:    accounts,
		memberships: memberships,
		profiles:    profiles,
		log:         log,
	}
}

// ListMemberships returns the user's accounts partitioned into owned (admin)
// and shared (member). Memberships whose account has vanished between reads
// are skipped rather than erroring: removal races with listing are expected.
func (s *DirectoryService) ListMemberships(ctx context.Context, userID string) (domain.AccountRoster, error) {
	members, err := s.memberships.ListByUser(ctx, userID)
	if err != nil {
		return domain.AccountRoster{}, fmt.Errorf("list memberships: %w", err)
	}

	var roster domain.AccountRoster
	for _, m := range members {
		account, err := s.accounts.FindByID(ctx, m.AccountID)
		if err != nil {
			if errors.Is(err, domain.ErrAccountNotFound) {
				s.log.Debug().Str("account_id", m.AccountID).Str("user_id", userID).
					Msg("membership references missing account, skipping")
				continue
			}
			return domain.AccountRoster{}, fmt.Errorf("list memberships: %w", err)
		}
		if m.Role == domain.RoleAdmin {
			roster.Owned = append(roster.Owned, *account)
		} else {
			roster.Shared = append(roster.Shared, *account)
		}
	}
	return roster, nil
}

// SelectActiveAccount applies the selection policy: stored preference first,
// then first owned, then first shared. When falling back past the preference
// the chosen id is persisted so repeated resolutions are stable.
func (s *DirectoryService) SelectActiveAccount(ctx context.Context, userID string, roster domain.AccountRoster) (*domain.Account, error) {
	profile, err := s.profiles.Find(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrProfileNotFound) {
		return nil, fmt.Errorf("select active account: %w", err)
	}

	if profile != nil && profile.PreferredAccountID != "" {
		if a := rosterLookup(roster, profile.PreferredAccountID); a != nil {
			return a, nil
		}
		// Preference points at an account the user no longer belongs to.
		s.log.Debug().Str("user_id", userID).Str("preferred", profile.PreferredAccountID).
			Msg("stored preference no longer in roster")
	}

	var chosen *domain.Account
	switch {
	case len(roster.Owned) > 0:
		chosen = &roster.Owned[0]
	case len(roster.Shared) > 0:
		chosen = &roster.Shared[0]
	default:
		return nil, domain.ErrAccountNotFound
	}

	// Persist the fallback so subsequent resolutions do not flap between
	// accounts before the user ever picks one explicitly.
	if err := s.profiles.SetPreferredAccount(ctx, userID, chosen.ID); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("failed to persist account preference")
	}
	return chosen, nil
}

// BootstrapDefaultAccount creates the single personal account for a user
// with zero memberships. Concurrent calls converge: the account insert is
// guarded by a unique constraint on the bootstrap owner, and the loser
// re-reads the winner's account. The membership upsert after either path is
// idempotent, which also heals a crash between the two inserts.
func (s *DirectoryService) BootstrapDefaultAccount(ctx context.Context, userID, displayName string) (*domain.Account, error) {
	// Re-query before insert: the common case for a second concurrent call
	// is that the first already finished.
	if existing, err := s.accounts.FindBootstrapByOwner(ctx, userID); err == nil && existing != nil {
		if err := s.ensureAdminMembership(ctx, existing.ID, userID); err != nil {
			return nil, err
		}
		return existing, nil
	}

	name := displayName
	if name == "" {
		name = "Personal budget"
	}
	account := &domain.Account{
		ID:           uuid.NewString(),
		Name:         name,
		PlanSlug:     "free",
		BillingState: "none",
		Origin:       domain.OriginBootstrap,
		OwnerUserID:  userID,
		CreatedAt:    time.Now().UTC(),
	}

	err := s.accounts.Create(ctx, account)
	if err != nil {
		if !errors.Is(err, domain.ErrAccountExists) {
			return nil, fmt.Errorf("bootstrap account: %w", err)
		}
		// Lost the race: another call created the personal account first.
		winner, findErr := s.accounts.FindBootstrapByOwner(ctx, userID)
		if findErr != nil {
			return nil, fmt.Errorf("bootstrap account: %w", findErr)
		}
		account = winner
	} else {
		metrics.AccountsBootstrappedTotal.Inc()
		s.log.Info().Str("account_id", account.ID).Str("user_id", userID).Msg("personal account bootstrapped")
	}

	if err := s.ensureAdminMembership(ctx, account.ID, userID); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *DirectoryService) ensureAdminMembership(ctx context.Context, accountID, userID string) error {
	m := &domain.Membership{
		AccountID: accountID,
		UserID:    userID,
		Role:      domain.RoleAdmin,
		JoinedAt:  time.Now().UTC(),
	}
	if err := s.memberships.Upsert(ctx, m); err != nil {
		return fmt.Errorf("bootstrap membership: %w", err)
	}
	return nil
}

func rosterLookup(roster domain.AccountRoster, accountID string) *domain.Account {
	for i := range roster.Owned {
		if roster.Owned[i].ID == accountID {
			return &roster.Owned[i]
		}
	}
	for i := range roster.Shared {
		if roster.Shared[i].ID == accountID {
			return &roster.Shared[i]
		}
	}
	return nil
}
