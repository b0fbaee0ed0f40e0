package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/kursadbilgin/fitting-request/internal/domain"
	"gorm.io/gorm"
)

const defaultPendingLimit = 10

type NotificationQueueRepository interface {
	Enqueue(ctx context.Context, item *domain.NotificationQueueItem) (uint, error)
	GetPending(ctx context.Context, limit int) ([]domain.NotificationQueueItem, error)
	UpdateStatus(ctx context.Context, id uint, status domain.QueueStatus, errorMessage string) error
}

type GormNotificationQueueRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormNotificationQueueRepo(db *gorm.DB) *GormNotificationQueueRepo {
	return newGormNotificationQueueRepo(db, time.Now)
}

func newGormNotificationQueueRepo(db *gorm.DB, nowFn func() time.Time) *GormNotificationQueueRepo {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &GormNotificationQueueRepo{db: db, now: nowFn}
}

// Enqueue stores a pending item. Zero priority becomes the default and a zero
// ScheduledFor means deliver now.
func (r *GormNotificationQueueRepo) Enqueue(ctx context.Context, item *domain.NotificationQueueItem) (uint, error) {
	if item == nil {
		return 0, fmt.Errorf("%w: notification is required", domain.ErrValidation)
	}
	if err := item.Validate(); err != nil {
		return 0, err
	}

	now := r.now().UTC()
	model, err := notificationModelFromDomain(item)
	if err != nil {
		return 0, fmt.Errorf("%w: encode recipients: %v", domain.ErrValidation, err)
	}
	model.Status = domain.QueueStatusPending
	model.Attempts = 0
	if model.Priority == 0 {
		model.Priority = domain.DefaultNotificationPriority
	}
	if model.ScheduledFor.IsZero() {
		model.ScheduledFor = now
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return 0, persistenceError("enqueue notification", err)
	}

	*item = *notificationModelToDomain(model)
	return model.ID, nil
}

// GetPending returns due pending items that still have retry budget, highest
// priority first and oldest first within a priority.
func (r *GormNotificationQueueRepo) GetPending(ctx context.Context, limit int) ([]domain.NotificationQueueItem, error) {
	if limit <= 0 {
		limit = defaultPendingLimit
	}

	var models []NotificationQueueModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_for <= ? AND attempts < ?",
			domain.QueueStatusPending, r.now().UTC(), domain.MaxNotificationAttempts).
		Order("priority DESC, created_at ASC, id ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	items := make([]domain.NotificationQueueItem, 0, len(models))
	for i := range models {
		items = append(items, *notificationModelToDomain(&models[i]))
	}
	return items, nil
}

// UpdateStatus consumes one attempt on every call, including the one that
// marks the item completed.
func (r *GormNotificationQueueRepo) UpdateStatus(ctx context.Context, id uint, status domain.QueueStatus, errorMessage string) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: invalid queue status %q", domain.ErrValidation, status)
	}

	now := r.now().UTC()
	updates := map[string]any{
		"status":     status,
		"attempts":   gorm.Expr("attempts + 1"),
		"updated_at": now,
	}
	if status == domain.QueueStatusCompleted {
		updates["completed_at"] = now
	}
	if errorMessage != "" {
		updates["error_message"] = errorMessage
	}

	result := r.db.WithContext(ctx).
		Model(&NotificationQueueModel{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return persistenceError("update notification status", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
