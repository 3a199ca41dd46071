package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/famlio/budget-api/internal/core/ports"
)

// InvitationHandler exposes the invitation lifecycle.
type InvitationHandler struct {
	invitations ports.InvitationService
	resolver    ports.ResolverService
	cache       ports.SessionCache
	log         zerolog.Logger
}

func NewInvitationHandler(invitations ports.InvitationService, resolver ports.ResolverService, cache ports.SessionCache, log zerolog.Logger) *InvitationHandler {
	return &InvitationHandler{invitations: invitations, resolver: resolver, cache: cache, log: log}
}

// Create handles POST /v1/accounts/:account_id/invitations.
//
// @Summary      Invite someone to join an account
// @Tags         invitations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        account_id  path      string                   true  "Account id"
// @Param        body        body      createInvitationRequest  true  "Invitation target"
// @Success      201         {object}  invitationResponse
// @Failure      401         {object}  errorResponse
// @Failure      403         {object}  errorResponse
// @Failure      422         {object}  errorResponse
// @Router       /v1/accounts/{account_id}/invitations [post]
func (h *InvitationHandler) Create(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	var req createInvitationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	result, err := h.invitations.CreateInvitation(c.Request().Context(), ports.CreateInvitationInput{
		AccountID: c.Param("account_id"),
		InviterID: user.ID,
		Target:    req.Target,
	})
	if err != nil {
		return err
	}

	status := http.StatusCreated
	if result.AlreadyExisted {
		status = http.StatusOK
	}
	return c.JSON(status, toInvitationResponse(result))
}

// Accept handles POST /v1/invitations/:invitation_id/accept.
//
// @Summary      Accept an invitation
// @Tags         invitations
// @Produce      json
// @Security     BearerAuth
// @Param        invitation_id  path      string  true  "Invitation id"
// @Success      200            {object}  accountResponse
// @Failure      401            {object}  errorResponse
// @Failure      404            {object}  errorResponse
// @Failure      409            {object}  errorResponse
// @Failure      410            {object}  errorResponse
// @Router       /v1/invitations/{invitation_id}/accept [post]
func (h *InvitationHandler) Accept(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	account, err := h.invitations.AcceptInvitation(c.Request().Context(), c.Param("invitation_id"), *user)
	if err != nil {
		// The cached identity stays untouched on failure: no partial switch.
		return err
	}

	// The roster changed; force the next resolution to rebuild.
	if err := h.resolver.Invalidate(c.Request().Context(), user.ID); err != nil {
		h.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to invalidate identity after acceptance")
	}

	return c.JSON(http.StatusOK, toAccountResponse(account))
}

// Revoke handles DELETE /v1/accounts/:account_id/invitations/:invitation_id.
//
// @Summary      Revoke an invitation
// @Tags         invitations
// @Security     BearerAuth
// @Param        account_id     path  string  true  "Account id"
// @Param        invitation_id  path  string  true  "Invitation id"
// @Success      204
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /v1/accounts/{account_id}/invitations/{invitation_id} [delete]
func (h *InvitationHandler) Revoke(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	err = h.invitations.RevokeInvitation(c.Request().Context(), c.Param("account_id"), c.Param("invitation_id"), user.ID)
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListPending handles GET /v1/invitations/pending: invitations addressed to
// the caller. By default invitations whose notice was already surfaced in
// this client session are filtered out; ?all=true returns everything.
//
// @Summary      List pending invitations addressed to the caller
// @Tags         invitations
// @Produce      json
// @Security     BearerAuth
// @Param        all  query     bool  false  "Include already-surfaced invitations"
// @Success      200  {object}  pendingInvitationsResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/invitations/pending [get]
func (h *InvitationHandler) ListPending(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	invs, err := h.invitations.ListPendingInvitations(c.Request().Context(), user.Email)
	if err != nil {
		return err
	}

	includeAll := c.QueryParam("all") == "true"
	items := make([]pendingInvitationItem, 0, len(invs))
	for _, inv := range invs {
		if !includeAll {
			shown, err := h.cache.NoticeShown(c.Request().Context(), user.ID, inv.ID)
			if err != nil {
				h.log.Warn().Err(err).Str("invitation_id", inv.ID).Msg("notice lookup failed")
			} else if shown {
				continue
			}
		}
		// Best effort: losing the mark only re-shows the notice later.
		if err := h.cache.MarkNoticeShown(c.Request().Context(), user.ID, inv.ID); err != nil {
			h.log.Warn().Err(err).Str("invitation_id", inv.ID).Msg("failed to mark notice shown")
		}
		items = append(items, toPendingInvitationItem(inv))
	}

	return c.JSON(http.StatusOK, pendingInvitationsResponse{Invitations: items})
}
