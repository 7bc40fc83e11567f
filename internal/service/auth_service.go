package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dom/account-auth/internal/domain"
	"github.com/dom/account-auth/internal/mail"
	"github.com/dom/account-auth/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
)

const outboxEnqueueTimeout = 5 * time.Second

type AuthService struct {
	userRepo     repository.UserRepository
	outbox       repository.MailOutboxRepository
	tokenService *TokenService
	mailer       mail.Mailer
	logger       *slog.Logger
}

func NewAuthService(userRepo repository.UserRepository, outbox repository.MailOutboxRepository, tokenService *TokenService, mailer mail.Mailer, logger *slog.Logger) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		outbox:       outbox,
		tokenService: tokenService,
		mailer:       mailer,
		logger:       logger,
	}
}

type RegistrationInput struct {
	Email    string
	Password string
	Name     string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResult struct {
	User         domain.UserDto
	AccessToken  string
	RefreshToken string
}

func (s *AuthService) Registration(ctx context.Context, input RegistrationInput) (*AuthResult, error) {
	email := normalizeEmail(input.Email)

	_, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil, domain.ErrEmailTaken
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:             uuid.New(),
		Email:          email,
		PasswordHash:   string(hashedPassword),
		Name:           strings.TrimSpace(input.Name),
		IsActivated:    false,
		ActivationLink: uuid.NewString(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.sendActivationMail(ctx, user)

	return s.issueTokens(ctx, user)
}

// sendActivationMail never fails the registration: an undelivered mail is
// queued in the outbox for the dispatcher, even after the request context is
// cancelled.
func (s *AuthService) sendActivationMail(ctx context.Context, user *domain.User) {
	err := s.mailer.SendActivationMail(ctx, user.Email, user.ActivationLink)
	if err == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), outboxEnqueueTimeout)
	defer cancel()

	s.logger.WarnContext(ctx, "activation mail not sent, queued for retry",
		slog.String("user_id", user.ID.String()),
		slog.Any("error", err))

	pending := &domain.PendingMail{
		ID: uuid.New(),
		Message: datatypes.NewJSONType(domain.ActivationMessage{
			To:             user.Email,
			ActivationLink: user.ActivationLink,
		}),
		LastError: err.Error(),
	}
	if err := s.outbox.Enqueue(ctx, pending); err != nil {
		s.logger.ErrorContext(ctx, "failed to queue activation mail",
			slog.String("user_id", user.ID.String()),
			slog.Any("error", err))
	}
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return s.issueTokens(ctx, user)
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.tokenService.RemoveToken(ctx, refreshToken)
}

func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, domain.ErrUnauthorized
	}

	claims, err := s.tokenService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	stored, err := s.tokenService.FindToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	if stored.UserID != claims.ID {
		return nil, domain.ErrUnauthorized
	}

	user, err := s.userRepo.GetByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}

	tokens, err := s.tokenService.GenerateToken(ClaimsFromUser(user))
	if err != nil {
		return nil, err
	}

	if err := s.tokenService.RotateToken(ctx, user.ID, refreshToken, tokens.RefreshToken); err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}

	return &AuthResult{
		User:         domain.NewUserDto(user),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

// ActivateAccount redeems an activation link. Links are single use: once the
// account is active the same link is rejected.
func (s *AuthService) ActivateAccount(ctx context.Context, activationLink string) error {
	if activationLink == "" {
		return domain.ErrInvalidActivationLink
	}

	user, err := s.userRepo.GetByActivationLink(ctx, activationLink)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrInvalidActivationLink
		}
		return err
	}

	if err := s.userRepo.Activate(ctx, user.ID); err != nil {
		if errors.Is(err, domain.ErrAlreadyActivated) {
			return domain.ErrInvalidActivationLink
		}
		return err
	}

	s.logger.InfoContext(ctx, "account activated", slog.String("user_id", user.ID.String()))
	return nil
}

func (s *AuthService) GetUser(ctx context.Context, id uuid.UUID) (*domain.UserDto, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := domain.NewUserDto(user)
	return &dto, nil
}

func (s *AuthService) ValidateAccessToken(token string) (*UserClaims, error) {
	return s.tokenService.ValidateAccessToken(token)
}

func (s *AuthService) issueTokens(ctx context.Context, user *domain.User) (*AuthResult, error) {
	tokens, err := s.tokenService.GenerateToken(ClaimsFromUser(user))
	if err != nil {
		return nil, err
	}

	if _, err := s.tokenService.SaveToken(ctx, user.ID, tokens.RefreshToken); err != nil {
		return nil, err
	}

	return &AuthResult{
		User:         domain.NewUserDto(user),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
