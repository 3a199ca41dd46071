package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/famlio/budget-api/internal/api/handler"
	"github.com/famlio/budget-api/internal/api/middleware"
	"github.com/famlio/budget-api/internal/core/ports"
)

// Deps bundles everything the router needs wired in.
type Deps struct {
	Mongo       *mongo.Database
	Redis       *redis.Client
	Identity    ports.IdentityProvider
	Resolver    ports.ResolverService
	Invitations ports.InvitationService
	Cache       ports.SessionCache
	Log         zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(d.Mongo, d.Redis)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// --- Authenticated API ---
	identityHandler := handler.NewIdentityHandler(d.Resolver)
	invitationHandler := handler.NewInvitationHandler(d.Invitations, d.Resolver, d.Cache, d.Log)

	v1 := e.Group("/v1", middleware.Auth(d.Identity))

	v1.GET("/identity", identityHandler.Resolve)
	v1.PUT("/identity/active-account", identityHandler.SwitchAccount)
	v1.POST("/identity/sign-out", identityHandler.SignOut)

	v1.POST("/accounts/:account_id/invitations", invitationHandler.Create)
	v1.DELETE("/accounts/:account_id/invitations/:invitation_id", invitationHandler.Revoke)
	v1.POST("/invitations/:invitation_id/accept", invitationHandler.Accept)
	v1.GET("/invitations/pending", invitationHandler.ListPending)

	return e
}
