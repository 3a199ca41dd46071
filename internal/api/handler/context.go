package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/famlio/budget-api/internal/core/domain"
)

// ctxUser extracts the authenticated user injected by the Auth middleware
// and fast-fails before any service call when the claims are missing or a
// structurally valid token carries no usable identity.
func ctxUser(c echo.Context) (*domain.User, error) {
	user, _ := c.Get("user").(*domain.User)
	if user == nil || user.ID == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return user, nil
}

// ctxSessionToken returns the raw bearer token for handlers that delegate
// identity resolution to the session resolver.
func ctxSessionToken(c echo.Context) string {
	token, _ := c.Get("session_token").(string)
	return token
}
