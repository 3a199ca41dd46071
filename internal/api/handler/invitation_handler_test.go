package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/famlio/budget-api/internal/core/domain"
	"github.com/famlio/budget-api/internal/core/ports"
)

type stubInvitationService struct {
	createFn func(ctx context.Context, in ports.CreateInvitationInput) (*ports.CreateInvitationResult, error)
	acceptFn func(ctx context.Context, invitationID string, user domain.User) (*domain.Account, error)
	revokeFn func(ctx context.Context, accountID, invitationID, userID string) error
	listFn   func(ctx context.Context, identifier string) ([]domain.Invitation, error)
}

func (s *stubInvitationService) CreateInvitation(ctx context.Context, in ports.CreateInvitationInput) (*ports.CreateInvitationResult, error) {
	return s.createFn(ctx, in)
}

func (s *stubInvitationService) AcceptInvitation(ctx context.Context, invitationID string, user domain.User) (*domain.Account, error) {
	return s.acceptFn(ctx, invitationID, user)
}

func (s *stubInvitationService) RevokeInvitation(ctx context.Context, accountID, invitationID, userID string) error {
	return s.revokeFn(ctx, accountID, invitationID, userID)
}

func (s *stubInvitationService) ListPendingInvitations(ctx context.Context, identifier string) ([]domain.Invitation, error) {
	return s.listFn(ctx, identifier)
}

func (s *stubInvitationService) ReconcileOrphans(context.Context) (int, error) {
	return 0, nil
}

type stubResolverService struct {
	resolveFn   func(ctx context.Context, token string, force bool) (*domain.ResolvedIdentity, error)
	switchFn    func(ctx context.Context, token, accountID string) (*domain.Account, error)
	invalidated []string
}

func (s *stubResolverService) Resolve(ctx context.Context, token string, force bool) (*domain.ResolvedIdentity, error) {
	return s.resolveFn(ctx, token, force)
}

func (s *stubResolverService) SwitchActiveAccount(ctx context.Context, token, accountID string) (*domain.Account, error) {
	return s.switchFn(ctx, token, accountID)
}

func (s *stubResolverService) Invalidate(_ context.Context, userID string) error {
	s.invalidated = append(s.invalidated, userID)
	return nil
}

type stubNoticeCache struct {
	shown map[string]bool
}

func newStubNoticeCache() *stubNoticeCache {
	return &stubNoticeCache{shown: make(map[string]bool)}
}

func (c *stubNoticeCache) GetIdentity(context.Context, string) (*domain.ResolvedIdentity, error) {
	return nil, nil
}

func (c *stubNoticeCache) PutIdentity(context.Context, string, *domain.ResolvedIdentity) error {
	return nil
}

func (c *stubNoticeCache) DropIdentity(context.Context, string) error { return nil }

func (c *stubNoticeCache) TryInviteCheck(context.Context, string) (bool, error) { return true, nil }

func (c *stubNoticeCache) MarkNoticeShown(_ context.Context, userID, invitationID string) error {
	c.shown[userID+"|"+invitationID] = true
	return nil
}

func (c *stubNoticeCache) NoticeShown(_ context.Context, userID, invitationID string) (bool, error) {
	return c.shown[userID+"|"+invitationID], nil
}

func newTestContext(t *testing.T, method, target string, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user", &domain.User{ID: "u1", Email: "ana@example.com", DisplayName: "Ana"})
	c.Set("session_token", "tok-1")
	return c, rec
}

func TestInvitationHandler_Create_Success(t *testing.T) {
	stub := &stubInvitationService{
		createFn: func(_ context.Context, in ports.CreateInvitationInput) (*ports.CreateInvitationResult, error) {
			if in.AccountID != "acc-1" || in.InviterID != "u1" || in.Target != "kim@example.com" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &ports.CreateInvitationResult{
				Invitation: &domain.Invitation{
					ID:        "inv-1",
					AccountID: in.AccountID,
					Target:    in.Target,
					ExpiresAt: time.Now().UTC().Add(domain.InvitationTTL),
				},
			}, nil
		},
	}
	h := NewInvitationHandler(stub, &stubResolverService{}, newStubNoticeCache(), zerolog.Nop())

	c, rec := newTestContext(t, http.MethodPost, "/v1/accounts/acc-1/invitations", `{"target":"kim@example.com"}`)
	c.SetParamNames("account_id")
	c.SetParamValues("acc-1")

	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp invitationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.ID != "inv-1" || resp.Target != "kim@example.com" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestInvitationHandler_Create_ExistingReturns200(t *testing.T) {
	stub := &stubInvitationService{
		createFn: func(_ context.Context, in ports.CreateInvitationInput) (*ports.CreateInvitationResult, error) {
			return &ports.CreateInvitationResult{
				Invitation:     &domain.Invitation{ID: "inv-1", AccountID: in.AccountID, Target: in.Target},
				AlreadyExisted: true,
			}, nil
		},
	}
	h := NewInvitationHandler(stub, &stubResolverService{}, newStubNoticeCache(), zerolog.Nop())

	c, rec := newTestContext(t, http.MethodPost, "/v1/accounts/acc-1/invitations", `{"target":"kim@example.com"}`)
	c.SetParamNames("account_id")
	c.SetParamValues("acc-1")

	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for existing invitation, got %d", rec.Code)
	}
}

func TestInvitationHandler_Create_ValidatesTarget(t *testing.T) {
	h := NewInvitationHandler(&stubInvitationService{}, &stubResolverService{}, newStubNoticeCache(), zerolog.Nop())

	c, _ := newTestContext(t, http.MethodPost, "/v1/accounts/acc-1/invitations", `{"target":""}`)
	c.SetParamNames("account_id")
	c.SetParamValues("acc-1")

	err := h.Create(c)
	if err == nil {
		t.Fatal("expected validation error")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %v", err)
	}
}

func TestInvitationHandler_Accept_InvalidatesSnapshot(t *testing.T) {
	stub := &stubInvitationService{
		acceptFn: func(_ context.Context, invitationID string, user domain.User) (*domain.Account, error) {
			if invitationID != "inv-1" || user.ID != "u1" {
				t.Fatalf("unexpected args: %s %s", invitationID, user.ID)
			}
			return &domain.Account{ID: "acc-1", Name: "Family"}, nil
		},
	}
	resolver := &stubResolverService{}
	h := NewInvitationHandler(stub, resolver, newStubNoticeCache(), zerolog.Nop())

	c, rec := newTestContext(t, http.MethodPost, "/v1/invitations/inv-1/accept", "")
	c.SetParamNames("invitation_id")
	c.SetParamValues("inv-1")

	if err := h.Accept(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(resolver.invalidated) != 1 || resolver.invalidated[0] != "u1" {
		t.Fatalf("snapshot not invalidated: %v", resolver.invalidated)
	}
}

func TestInvitationHandler_Accept_ErrorPropagates(t *testing.T) {
	stub := &stubInvitationService{
		acceptFn: func(context.Context, string, domain.User) (*domain.Account, error) {
			return nil, domain.ErrInvitationExpired
		},
	}
	resolver := &stubResolverService{}
	h := NewInvitationHandler(stub, resolver, newStubNoticeCache(), zerolog.Nop())

	c, _ := newTestContext(t, http.MethodPost, "/v1/invitations/inv-1/accept", "")
	c.SetParamNames("invitation_id")
	c.SetParamValues("inv-1")

	if err := h.Accept(c); err != domain.ErrInvitationExpired {
		t.Fatalf("expected ErrInvitationExpired, got %v", err)
	}
	if len(resolver.invalidated) != 0 {
		t.Fatal("snapshot invalidated on failed acceptance")
	}
}

func TestInvitationHandler_Revoke_Success(t *testing.T) {
	stub := &stubInvitationService{
		revokeFn: func(_ context.Context, accountID, invitationID, userID string) error {
			if accountID != "acc-1" || invitationID != "inv-1" || userID != "u1" {
				t.Fatalf("unexpected args: %s %s %s", accountID, invitationID, userID)
			}
			return nil
		},
	}
	h := NewInvitationHandler(stub, &stubResolverService{}, newStubNoticeCache(), zerolog.Nop())

	c, rec := newTestContext(t, http.MethodDelete, "/v1/accounts/acc-1/invitations/inv-1", "")
	c.SetParamNames("account_id", "invitation_id")
	c.SetParamValues("acc-1", "inv-1")

	if err := h.Revoke(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestInvitationHandler_ListPending_FiltersShownNotices(t *testing.T) {
	now := time.Now().UTC()
	stub := &stubInvitationService{
		listFn: func(_ context.Context, identifier string) ([]domain.Invitation, error) {
			if identifier != "ana@example.com" {
				t.Fatalf("unexpected identifier: %s", identifier)
			}
			return []domain.Invitation{
				{ID: "inv-1", AccountID: "acc-1", ExpiresAt: now.Add(time.Hour)},
				{ID: "inv-2", AccountID: "acc-2", ExpiresAt: now.Add(time.Hour)},
			}, nil
		},
	}
	cache := newStubNoticeCache()
	cache.shown["u1|inv-1"] = true
	h := NewInvitationHandler(stub, &stubResolverService{}, cache, zerolog.Nop())

	c, rec := newTestContext(t, http.MethodGet, "/v1/invitations/pending", "")
	if err := h.ListPending(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp pendingInvitationsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Invitations) != 1 || resp.Invitations[0].ID != "inv-2" {
		t.Fatalf("expected only inv-2, got %+v", resp.Invitations)
	}
	// The surfaced invitation is now marked so the next default listing
	// skips it too.
	if !cache.shown["u1|inv-2"] {
		t.Fatal("inv-2 not marked as shown")
	}
}

func TestInvitationHandler_ListPending_AllIncludesShown(t *testing.T) {
	now := time.Now().UTC()
	stub := &stubInvitationService{
		listFn: func(context.Context, string) ([]domain.Invitation, error) {
			return []domain.Invitation{
				{ID: "inv-1", AccountID: "acc-1", ExpiresAt: now.Add(time.Hour)},
				{ID: "inv-2", AccountID: "acc-2", ExpiresAt: now.Add(time.Hour)},
			}, nil
		},
	}
	cache := newStubNoticeCache()
	cache.shown["u1|inv-1"] = true
	h := NewInvitationHandler(stub, &stubResolverService{}, cache, zerolog.Nop())

	c, rec := newTestContext(t, http.MethodGet, "/v1/invitations/pending?all=true", "")
	if err := h.ListPending(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp pendingInvitationsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Invitations) != 2 {
		t.Fatalf("expected both invitations, got %+v", resp.Invitations)
	}
}
