package postgres

import (
	"context"

	"github.com/dom/account-auth/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type mailOutboxRepository struct {
	db *gorm.DB
}

func NewMailOutboxRepository(db *gorm.DB) *mailOutboxRepository {
	return &mailOutboxRepository{db: db}
}

func (r *mailOutboxRepository) Enqueue(ctx context.Context, mail *domain.PendingMail) error {
	if mail.ID == uuid.Nil {
		mail.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(mail).Error
}

func (r *mailOutboxRepository) ListPending(ctx context.Context, limit int) ([]*domain.PendingMail, error) {
	var mails []*domain.PendingMail
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Limit(limit).
		Find(&mails).Error
	if err != nil {
		return nil, err
	}
	return mails, nil
}

func (r *mailOutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.PendingMail{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": lastError,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrPendingMailNotFound
	}
	return nil
}

func (r *mailOutboxRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.PendingMail{}, "id = ?", id).Error
}
