package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/famlio/budget-api/internal/core/domain"
	"github.com/famlio/budget-api/internal/core/ports"
	"github.com/famlio/budget-api/internal/pkg/metrics"
)

const defaultResolveTTL = 15 * time.Second

// ResolverService orchestrates identity resolution: identity provider →
// membership directory → invitation reconciliation, behind a single-flight
// guard and a TTL-bounded snapshot cache. Any number of triggers (focus
// events, auth callbacks, periodic checks) may call Resolve concurrently;
// per user, at most one store round-trip is in flight at a time.
type ResolverService struct {
	idp         ports.IdentityProvider
	directory   ports.DirectoryService
	invitations ports.InvitationService
	profiles    ports.ProfileRepository
	memberships ports.MembershipRepository
	cache       ports.SessionCache
	flight      singleflight.Group
	ttl         time.Duration
	now         func() time.Time
	log         zerolog.Logger
}

func NewResolverService(
	idp ports.IdentityProvider,
	directory ports.DirectoryService,
	invitations ports.InvitationService,
	profiles ports.ProfileRepository,
	memberships ports.MembershipRepository,
	cache ports.SessionCache,
	ttl time.Duration,
	log zerolog.Logger,
) *ResolverService {
	if ttl <= 0 {
		ttl = defaultResolveTTL
	}
	return &ResolverService{
		idp:         idp,
		directory:   directory,
		invitations: invitations,
		profiles:    profiles,
		memberships: memberships,
		cache:       cache,
		ttl:         ttl,
		now:         func() time.Time { return time.Now().UTC() },
		log:         log,
	}
}

// Resolve returns the caller's identity snapshot. Fresh cached snapshots are
// served without touching the store; concurrent callers for the same user
// share one execution; store failures fall back to the last snapshot however
// stale.
func (s *ResolverService) Resolve(ctx context.Context, sessionToken string, forceRefresh bool) (*domain.ResolvedIdentity, error) {
	user, err := s.idp.CurrentUser(ctx, sessionToken)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}
	if user == nil {
		// Not logged in is a normal state.
		return &domain.ResolvedIdentity{ResolvedAt: s.now()}, nil
	}

	if !forceRefresh {
		if cached, err := s.cache.GetIdentity(ctx, user.ID); err == nil && cached != nil && cached.FreshAt(s.now(), s.ttl) {
			metrics.ResolveCacheTotal.WithLabelValues("hit").Inc()
			return cached, nil
		}
		metrics.ResolveCacheTotal.WithLabelValues("miss").Inc()
	}

	// Concurrent callers attach to the running execution instead of racing
	// independently; resolutions are therefore ordered by execution start.
	v, err, shared := s.flight.Do(user.ID, func() (any, error) {
		return s.execute(ctx, *user)
	})
	if shared {
		metrics.ResolveSharedTotal.Inc()
	}
	if err != nil {
		// Stale-but-available beats erroring the whole UI. The snapshot in
		// the cache outlives the freshness TTL for exactly this case.
		if stale, cacheErr := s.cache.GetIdentity(ctx, user.ID); cacheErr == nil && stale != nil {
			metrics.ResolveStaleServedTotal.Inc()
			s.log.Warn().Err(err).Str("user_id", user.ID).Msg("resolution failed, serving stale snapshot")
			return stale, nil
		}
		return nil, err
	}
	return v.(*domain.ResolvedIdentity), nil
}

// execute performs one full resolution. Errors here never corrupt the cache:
// the snapshot is only written on success.
func (s *ResolverService) execute(ctx context.Context, user domain.User) (*domain.ResolvedIdentity, error) {
	started := s.now()

	roster, err := s.directory.ListMemberships(ctx, user.ID)
	if err != nil {
		metrics.ResolutionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	pending := 0
	if roster.Empty() {
		pending, err = s.countPendingInvitations(ctx, user)
		if err != nil {
			s.log.Warn().Err(err).Str("user_id", user.ID).Msg("pending invitation check failed")
		}
	}

	var active *domain.Account
	if !roster.Empty() {
		active, err = s.directory.SelectActiveAccount(ctx, user.ID, roster)
		if err != nil {
			metrics.ResolutionsTotal.WithLabelValues("error").Inc()
			return nil, err
		}
	} else if pending == 0 {
		// No account and no invitation waiting: bootstrap the personal
		// account. When invitations are pending, bootstrap is suppressed so
		// the user joins the shared account instead of getting a throwaway
		// personal one. The suppression signal is best effort; losing it
		// only costs an extra personal account, not correctness.
		account, err := s.directory.BootstrapDefaultAccount(ctx, user.ID, user.DisplayName)
		if err != nil {
			metrics.ResolutionsTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		active = account
		roster.Owned = append(roster.Owned, *account)
	}

	ident := &domain.ResolvedIdentity{
		User:               &user,
		ActiveAccount:      active,
		Roster:             roster,
		PendingInvitations: pending,
		ResolvedAt:         started,
	}
	if err := s.cache.PutIdentity(ctx, user.ID, ident); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to cache identity snapshot")
	}

	metrics.ResolutionsTotal.WithLabelValues("ok").Inc()
	metrics.ResolutionDuration.Observe(s.now().Sub(started).Seconds())
	return ident, nil
}

// countPendingInvitations asks the store for invitations addressed to the
// user, throttled through the cache so focus/visibility storms do not hammer
// the store. When the throttle denies the check the last observation is
// unknown; zero is assumed, which at worst re-enables bootstrap.
func (s *ResolverService) countPendingInvitations(ctx context.Context, user domain.User) (int, error) {
	allowed, err := s.cache.TryInviteCheck(ctx, user.ID)
	if err != nil {
		return 0, err
	}
	if !allowed {
		if cached, err := s.cache.GetIdentity(ctx, user.ID); err == nil && cached != nil {
			return cached.PendingInvitations, nil
		}
		return 0, nil
	}

	invs, err := s.invitations.ListPendingInvitations(ctx, user.Email)
	if err != nil {
		return 0, err
	}
	return len(invs), nil
}

// SwitchActiveAccount validates the membership, persists the preference,
// drops the cached snapshot and re-resolves.
func (s *ResolverService) SwitchActiveAccount(ctx context.Context, sessionToken, accountID string) (*domain.Account, error) {
	user, err := s.idp.CurrentUser(ctx, sessionToken)
	if err != nil {
		return nil, fmt.Errorf("switch account: %w", err)
	}
	if user == nil {
		return nil, domain.ErrNotAuthenticated
	}

	if _, err := s.memberships.Find(ctx, accountID, user.ID); err != nil {
		if errors.Is(err, domain.ErrNotAMember) {
			return nil, domain.ErrNotAMember
		}
		return nil, fmt.Errorf("switch account: %w", err)
	}
	if err := s.profiles.SetPreferredAccount(ctx, user.ID, accountID); err != nil {
		return nil, fmt.Errorf("switch account: %w", err)
	}
	if err := s.cache.DropIdentity(ctx, user.ID); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to invalidate snapshot on switch")
	}

	ident, err := s.Resolve(ctx, sessionToken, true)
	if err != nil {
		return nil, err
	}
	if ident.ActiveAccount == nil || ident.ActiveAccount.ID != accountID {
		return nil, fmt.Errorf("switch account: preference not reflected after refresh")
	}
	return ident.ActiveAccount, nil
}

// Invalidate drops the user's cached snapshot. Called on sign-out and on
// external session-change events.
func (s *ResolverService) Invalidate(ctx context.Context, userID string) error {
	return s.cache.DropIdentity(ctx, userID)
}
