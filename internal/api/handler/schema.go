package handler

import (
	"time"

	"github.com/famlio/budget-api/internal/core/domain"
	"github.com/famlio/budget-api/internal/core/ports"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Requests ---

type switchAccountRequest struct {
	AccountID string `json:"account_id" validate:"required,uuid"`
}

type createInvitationRequest struct {
	// Target is the invitee's email address or phone number.
	Target string `json:"target" validate:"required,min=3"`
}

// --- Responses ---

type accountResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PlanSlug     string `json:"plan_slug"`
	BillingState string `json:"billing_state"`
}

type rosterResponse struct {
	Owned  []accountResponse `json:"owned"`
	Shared []accountResponse `json:"shared"`
}

type identityResponse struct {
	Authenticated      bool             `json:"authenticated"`
	User               *domain.User     `json:"user,omitempty"`
	ActiveAccount      *accountResponse `json:"active_account,omitempty"`
	Roster             rosterResponse   `json:"roster"`
	PendingInvitations int              `json:"pending_invitations"`
	ResolvedAt         time.Time        `json:"resolved_at"`
}

type invitationResponse struct {
	ID             string    `json:"id"`
	AccountID      string    `json:"account_id"`
	Target         string    `json:"target"`
	ExpiresAt      time.Time `json:"expires_at"`
	AlreadyExisted bool      `json:"already_existed,omitempty"`
	// Warning is set when the invitation was created but the notification
	// could not be dispatched; the link can still be shared out-of-band.
	Warning string `json:"warning,omitempty"`
}

type pendingInvitationItem struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	InviterID string    `json:"inviter_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type pendingInvitationsResponse struct {
	Invitations []pendingInvitationItem `json:"invitations"`
}

// --- Mappers ---

func toAccountResponse(a *domain.Account) *accountResponse {
	if a == nil {
		return nil
	}
	return &accountResponse{
		ID:           a.ID,
		Name:         a.Name,
		PlanSlug:     a.PlanSlug,
		BillingState: a.BillingState,
	}
}

func toIdentityResponse(ident *domain.ResolvedIdentity) identityResponse {
	resp := identityResponse{
		Authenticated:      ident.Authenticated(),
		User:               ident.User,
		ActiveAccount:      toAccountResponse(ident.ActiveAccount),
		PendingInvitations: ident.PendingInvitations,
		ResolvedAt:         ident.ResolvedAt,
		Roster: rosterResponse{
			Owned:  make([]accountResponse, 0, len(ident.Roster.Owned)),
			Shared: make([]accountResponse, 0, len(ident.Roster.Shared)),
		},
	}
	for _, a := range ident.Roster.Owned {
		resp.Roster.Owned = append(resp.Roster.Owned, *toAccountResponse(&a))
	}
	for _, a := range ident.Roster.Shared {
		resp.Roster.Shared = append(resp.Roster.Shared, *toAccountResponse(&a))
	}
	return resp
}

func toInvitationResponse(result *ports.CreateInvitationResult) invitationResponse {
	return invitationResponse{
		ID:             result.Invitation.ID,
		AccountID:      result.Invitation.AccountID,
		Target:         result.Invitation.Target,
		ExpiresAt:      result.Invitation.ExpiresAt,
		AlreadyExisted: result.AlreadyExisted,
		Warning:        result.DispatchWarning,
	}
}

func toPendingInvitationItem(inv domain.Invitation) pendingInvitationItem {
	return pendingInvitationItem{
		ID:        inv.ID,
		AccountID: inv.AccountID,
		InviterID: inv.InviterID,
		ExpiresAt: inv.ExpiresAt,
	}
}
