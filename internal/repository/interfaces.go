package repository

import (
	"context"

	"github.com/dom/account-auth/internal/domain"
	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByActivationLink(ctx context.Context, link string) (*domain.User, error)
	// Activate flips is_activated for a user that is not activated yet.
	// Returns domain.ErrAlreadyActivated when no row was changed.
	Activate(ctx context.Context, id uuid.UUID) error
}

type TokenRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Token, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.Token, error)
	// Upsert stores refreshToken as the only token of userID.
	Upsert(ctx context.Context, userID uuid.UUID, refreshToken string) error
	// Replace swaps oldToken for newToken only while oldToken is still stored
	// for userID. Returns domain.ErrTokenNotFound otherwise.
	Replace(ctx context.Context, userID uuid.UUID, oldToken, newToken string) error
	DeleteByRefreshToken(ctx context.Context, refreshToken string) error
}

type MailOutboxRepository interface {
	Enqueue(ctx context.Context, mail *domain.PendingMail) error
	ListPending(ctx context.Context, limit int) ([]*domain.PendingMail, error)
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type Repositories struct {
	User   UserRepository
	Token  TokenRepository
	Outbox MailOutboxRepository
}
