package service

import (
	"log/slog"

	"github.com/dom/account-auth/internal/config"
	"github.com/dom/account-auth/internal/mail"
	"github.com/dom/account-auth/internal/repository"
)

type Services struct {
	Auth  *AuthService
	Token *TokenService
}

func NewServices(repos *repository.Repositories, mailer mail.Mailer, cfg *config.Config, logger *slog.Logger) (*Services, error) {
	tokenService, err := NewTokenService(repos.Token, TokenConfig{
		AccessSecret:    cfg.JWTAccessSecret,
		RefreshSecret:   cfg.JWTRefreshSecret,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
	})
	if err != nil {
		return nil, err
	}

	return &Services{
		Auth:  NewAuthService(repos.User, repos.Outbox, tokenService, mailer, logger),
		Token: tokenService,
	}, nil
}
