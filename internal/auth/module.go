// Package auth signs company administrators in. Other modules only see the
// access token it issues, validated by httpkit.AuthRequired.
package auth

import (
	"claimdesk_backend/internal/auth/handler"
	"claimdesk_backend/internal/auth/service"
	apphttp "claimdesk_backend/internal/http"
	"claimdesk_backend/platform/config"
	"claimdesk_backend/platform/logger"
	"claimdesk_backend/platform/validator"
)

// Module is the auth bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
}

// NewModule creates the auth module.
func NewModule(companies service.CompanyDirectory, cfg config.AdminAuthConfig, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(companies, cfg, log)
	return &Module{handler: handler.New(svc, val)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "auth"
}

// RegisterRoutes mounts the login route behind the login rate limiter.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	authGroup := ctx.V1.Group("/auth")
	authGroup.Use(ctx.LoginRateLimiter.RateLimit())
	m.handler.RegisterRoutes(authGroup)
}

var _ apphttp.Module = (*Module)(nil)
