package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dom/account-auth/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *userRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrEmailTaken
	}
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *userRepository) GetByActivationLink(ctx context.Context, link string) (*domain.User, error) {
	return r.first(ctx, "activation_link = ?", link)
}

func (r *userRepository) Activate(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ? AND is_activated = ?", id, false).
		Update("is_activated", true)
	if result.Error != nil {
		return fmt.Errorf("failed to activate user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrAlreadyActivated
	}
	return nil
}

func (r *userRepository) first(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, query, arg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
