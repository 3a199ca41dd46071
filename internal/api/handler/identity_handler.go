package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/famlio/budget-api/internal/core/ports"
)

// IdentityHandler exposes identity resolution and active-account switching.
type IdentityHandler struct {
	resolver ports.ResolverService
}

func NewIdentityHandler(resolver ports.ResolverService) *IdentityHandler {
	return &IdentityHandler{resolver: resolver}
}

// Resolve handles GET /v1/identity.
//
// @Summary      Resolve the caller's identity and active account
// @Tags         identity
// @Produce      json
// @Security     BearerAuth
// @Param        refresh  query     bool  false  "Bypass the snapshot cache"
// @Success      200      {object}  identityResponse
// @Failure      401      {object}  errorResponse
// @Failure      503      {object}  errorResponse
// @Router       /v1/identity [get]
func (h *IdentityHandler) Resolve(c echo.Context) error {
	force := c.QueryParam("refresh") == "true"

	ident, err := h.resolver.Resolve(c.Request().Context(), ctxSessionToken(c), force)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toIdentityResponse(ident))
}

// SwitchAccount handles PUT /v1/identity/active-account.
//
// @Summary      Switch the active account
// @Tags         identity
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      switchAccountRequest  true  "Target account"
// @Success      200   {object}  accountResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /v1/identity/active-account [put]
func (h *IdentityHandler) SwitchAccount(c echo.Context) error {
	var req switchAccountRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	account, err := h.resolver.SwitchActiveAccount(c.Request().Context(), ctxSessionToken(c), req.AccountID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toAccountResponse(account))
}

// SignOut handles POST /v1/identity/sign-out. Drops the cached snapshot so
// the next resolution starts clean.
//
// @Summary      Invalidate the caller's cached identity
// @Tags         identity
// @Security     BearerAuth
// @Success      204
// @Failure      401  {object}  errorResponse
// @Router       /v1/identity/sign-out [post]
func (h *IdentityHandler) SignOut(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}
	if err := h.resolver.Invalidate(c.Request().Context(), user.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
