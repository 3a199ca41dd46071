package service

import (
	"context"
	"sync"
	"time"

	"github.com/famlio/budget-api/internal/core/domain"
	"github.com/famlio/budget-api/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stubs mirroring the store's concurrency semantics (unique
// indexes, conditional updates), safe for concurrent use.
// ---------------------------------------------------------------------------

type stubAccountRepo struct {
	mu        sync.Mutex
	byID      map[string]*domain.Account
	createErr error
	findCalls int
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{byID: make(map[string]*domain.Account)}
}

func (r *stubAccountRepo) Create(_ context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	// Mirror the unique partial index on (owner_user_id, origin=bootstrap).
	if a.Origin == domain.OriginBootstrap {
		for _, existing := range r.byID {
			if existing.Origin == domain.OriginBootstrap && existing.OwnerUserID == a.OwnerUserID {
				return domain.ErrAccountExists
			}
		}
	}
	clone := *a
	r.byID[a.ID] = &clone
	return nil
}

func (r *stubAccountRepo) FindByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findCalls++
	a, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	clone := *a
	return &clone, nil
}

func (r *stubAccountRepo) FindBootstrapByOwner(_ context.Context, userID string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.Origin == domain.OriginBootstrap && a.OwnerUserID == userID {
			clone := *a
			return &clone, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *stubAccountRepo) SetPendingInvitation(_ context.Context, accountID, invitationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.byID[accountID]; ok {
		a.PendingInvitationID = invitationID
	}
	return nil
}

func (r *stubAccountRepo) bootstrapCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.byID {
		if a.Origin == domain.OriginBootstrap {
			n++
		}
	}
	return n
}

type stubMembershipRepo struct {
	mu        sync.Mutex
	rows      map[string]*domain.Membership // key: accountID + "|" + userID
	listErr   error
	listCalls int
	// listGate, when non-nil, blocks ListByUser until closed. Used to hold
	// a resolution in flight while concurrent callers pile up.
	listGate chan struct{}
}

func newStubMembershipRepo() *stubMembershipRepo {
	return &stubMembershipRepo{rows: make(map[string]*domain.Membership)}
}

func (r *stubMembershipRepo) Upsert(_ context.Context, m *domain.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := m.AccountID + "|" + m.UserID
	if _, exists := r.rows[key]; exists {
		return nil // $setOnInsert: existing row untouched
	}
	clone := *m
	r.rows[key] = &clone
	return nil
}

func (r *stubMembershipRepo) ListByUser(_ context.Context, userID string) ([]domain.Membership, error) {
	r.mu.Lock()
	r.listCalls++
	gate := r.listGate
	err := r.listErr
	r.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	var members []domain.Membership
	for _, m := range r.rows {
		if m.UserID == userID {
			members = append(members, *m)
		}
	}
	// stable order: earliest joined first
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			if members[j].JoinedAt.Before(members[i].JoinedAt) {
				members[i], members[j] = members[j], members[i]
			}
		}
	}
	return members, nil
}

func (r *stubMembershipRepo) Find(_ context.Context, accountID, userID string) (*domain.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[accountID+"|"+userID]
	if !ok {
		return nil, domain.ErrNotAMember
	}
	clone := *m
	return &clone, nil
}

func (r *stubMembershipRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

type stubInvitationRepo struct {
	mu   sync.Mutex
	byID map[string]*domain.Invitation
}

func newStubInvitationRepo() *stubInvitationRepo {
	return &stubInvitationRepo{byID: make(map[string]*domain.Invitation)}
}

func (r *stubInvitationRepo) Create(_ context.Context, inv *domain.Invitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.byID {
		if other.AccountID == inv.AccountID && other.Target == inv.Target && other.AcceptedAt == nil {
			return domain.ErrInvitationExists
		}
	}
	clone := *inv
	r.byID[inv.ID] = &clone
	return nil
}

func (r *stubInvitationRepo) FindByID(_ context.Context, id string) (*domain.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrInvitationNotFound
	}
	clone := *inv
	return &clone, nil
}

func (r *stubInvitationRepo) FindUnacceptedByAccountTarget(_ context.Context, accountID, target string) (*domain.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.byID {
		if inv.AccountID == accountID && inv.Target == target && inv.AcceptedAt == nil {
			clone := *inv
			return &clone, nil
		}
	}
	return nil, domain.ErrInvitationNotFound
}

func (r *stubInvitationRepo) ListPendingByTarget(_ context.Context, target string, now time.Time) ([]domain.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Invitation
	for _, inv := range r.byID {
		if inv.Target == target && inv.AcceptedAt == nil && now.Before(inv.ExpiresAt) {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (r *stubInvitationRepo) ListPending(_ context.Context) ([]domain.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Invitation
	for _, inv := range r.byID {
		if inv.AcceptedAt == nil {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (r *stubInvitationRepo) MarkAccepted(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.byID[id]
	if !ok || inv.AcceptedAt != nil {
		return domain.ErrInvitationNotFound
	}
	t := at
	inv.AcceptedAt = &t
	return nil
}

func (r *stubInvitationRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

type stubProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*domain.Profile
	setErr   error
}

func newStubProfileRepo() *stubProfileRepo {
	return &stubProfileRepo{profiles: make(map[string]*domain.Profile)}
}

func (r *stubProfileRepo) Find(_ context.Context, userID string) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *stubProfileRepo) SetPreferredAccount(_ context.Context, userID, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setErr != nil {
		return r.setErr
	}
	p, ok := r.profiles[userID]
	if !ok {
		p = &domain.Profile{UserID: userID}
		r.profiles[userID] = p
	}
	p.PreferredAccountID = accountID
	return nil
}

func (r *stubProfileRepo) preferred(userID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.profiles[userID]; ok {
		return p.PreferredAccountID
	}
	return ""
}

type stubDispatcher struct {
	mu      sync.Mutex
	sendErr error
	sent    []ports.InvitationNotice
}

func (d *stubDispatcher) Send(_ context.Context, notice ports.InvitationNotice) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sendErr != nil {
		return d.sendErr
	}
	d.sent = append(d.sent, notice)
	return nil
}

type stubCache struct {
	mu         sync.Mutex
	idents     map[string]*domain.ResolvedIdentity
	allowCheck bool
	notices    map[string]bool
	getErr     error
}

func newStubCache() *stubCache {
	return &stubCache{
		idents:     make(map[string]*domain.ResolvedIdentity),
		notices:    make(map[string]bool),
		allowCheck: true,
	}
}

func (c *stubCache) GetIdentity(_ context.Context, userID string) (*domain.ResolvedIdentity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.idents[userID], nil
}

func (c *stubCache) PutIdentity(_ context.Context, userID string, ident *domain.ResolvedIdentity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.idents[userID] = ident
	return nil
}

func (c *stubCache) DropIdentity(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.idents, userID)
	return nil
}

func (c *stubCache) TryInviteCheck(_ context.Context, _ string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.allowCheck, nil
}

func (c *stubCache) MarkNoticeShown(_ context.Context, userID, invitationID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices[userID+"|"+invitationID] = true
	return nil
}

func (c *stubCache) NoticeShown(_ context.Context, userID, invitationID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notices[userID+"|"+invitationID], nil
}

type stubIdentityProvider struct {
	users map[string]*domain.User // token → user
	err   error
}

func (p *stubIdentityProvider) CurrentUser(_ context.Context, token string) (*domain.User, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.users[token], nil
}
