// Package service signs company administrators in.
package service

import (
	"context"
	"strings"
	"time"

	"claimdesk_backend/internal/claims/domain"
	"claimdesk_backend/platform/apperr"
	"claimdesk_backend/platform/config"
	"claimdesk_backend/platform/httpkit"
	"claimdesk_backend/platform/logger"
)

const msgInvalidCredentials = "invalid credentials"

// Session is the outcome of a successful login.
type Session struct {
	AccessToken string
	ExpiresIn   time.Duration
	Company     *domain.Company
}

// CompanyDirectory resolves the company an administrator signs in to.
type CompanyDirectory interface {
	GetCompanyByTagline(ctx context.Context, tagline string) (*domain.Company, error)
}

type Service struct {
	companies CompanyDirectory
	cfg       config.AdminAuthConfig
	log       *logger.Logger
}

func New(companies CompanyDirectory, cfg config.AdminAuthConfig, log *logger.Logger) *Service {
	return &Service{companies: companies, cfg: cfg, log: log}
}

// Login checks the administrator credentials of the company identified by
// tagline and issues a company-scoped access token. Unknown companies, wrong
// usernames and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, tagline, username, password string) (Session, error) {
	tagline = strings.TrimSpace(tagline)
	username = strings.TrimSpace(username)

	company, err := s.companies.GetCompanyByTagline(ctx, tagline)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			s.log.AdminLogin(tagline, username, false)
			return Session{}, apperr.Unauthorized(msgInvalidCredentials)
		}
		return Session{}, err
	}

	if company.AdminUsername != username || comparePassword(company.AdminPasswordHash, password) != nil {
		s.log.AdminLogin(tagline, username, false)
		return Session{}, apperr.Unauthorized(msgInvalidCredentials)
	}

	ttl := s.cfg.GetAccessTokenTTL()
	token, err := httpkit.SignAccessToken(s.cfg.GetJWTAccessSecret(), username, company.ID, []string{httpkit.RoleCompanyAdmin}, ttl)
	if err != nil {
		return Session{}, apperr.Wrap(apperr.KindInternal, "sign access token", err)
	}

	s.log.AdminLogin(tagline, username, true)
	return Session{AccessToken: token, ExpiresIn: ttl, Company: company}, nil
}
