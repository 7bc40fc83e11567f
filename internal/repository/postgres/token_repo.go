package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dom/account-auth/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type tokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) *tokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Token, error) {
	return r.first(ctx, "user_id = ?", userID)
}

func (r *tokenRepository) GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.Token, error) {
	return r.first(ctx, "refresh_token = ?", refreshToken)
}

// Upsert relies on the unique index on user_id, so concurrent logins of one
// user converge on a single row.
func (r *tokenRepository) Upsert(ctx context.Context, userID uuid.UUID, refreshToken string) error {
	token := &domain.Token{
		ID:           uuid.New(),
		UserID:       userID,
		RefreshToken: refreshToken,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"refresh_token", "updated_at"}),
		}).
		Create(token).Error
	if err != nil {
		return fmt.Errorf("failed to upsert refresh token: %w", err)
	}
	return nil
}

func (r *tokenRepository) Replace(ctx context.Context, userID uuid.UUID, oldToken, newToken string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Token{}).
		Where("user_id = ? AND refresh_token = ?", userID, oldToken).
		Update("refresh_token", newToken)
	if result.Error != nil {
		return fmt.Errorf("failed to replace refresh token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrTokenNotFound
	}
	return nil
}

func (r *tokenRepository) DeleteByRefreshToken(ctx context.Context, refreshToken string) error {
	err := r.db.WithContext(ctx).
		Where("refresh_token = ?", refreshToken).
		Delete(&domain.Token{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}
	return nil
}

func (r *tokenRepository) first(ctx context.Context, query string, arg any) (*domain.Token, error) {
	var token domain.Token
	err := r.db.WithContext(ctx).First(&token, query, arg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, err
	}
	return &token, nil
}
