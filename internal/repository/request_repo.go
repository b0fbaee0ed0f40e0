package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kursadbilgin/fitting-request/internal/domain"
	"github.com/kursadbilgin/fitting-request/internal/observability"
	"gorm.io/gorm"
)

// RequestDefaults is merged under caller data on insert.
type RequestDefaults struct {
	Status   domain.RequestStatus
	Priority int
}

var DefaultRequestDefaults = RequestDefaults{
	Status:   domain.RequestStatusPending,
	Priority: domain.DefaultRequestPriority,
}

type RequestListParams struct {
	Status   *domain.RequestStatus
	Emirate  *domain.Emirate
	Page     int
	PageSize int
}

type RequestRepository interface {
	Insert(ctx context.Context, r *domain.FittingRequest) (uint, error)
	GetByRequestID(ctx context.Context, requestID string) (*domain.FittingRequest, error)
	UpdateStatus(ctx context.Context, requestID string, status domain.RequestStatus, notes string) error
	LogStatusChange(ctx context.Context, requestID string, oldStatus, newStatus domain.RequestStatus, notes string) error
	StatusHistory(ctx context.Context, requestID string) ([]domain.StatusLogEntry, error)
	IncrementGaragesNotified(ctx context.Context, requestID string, by int) error
	List(ctx context.Context, params RequestListParams) ([]domain.FittingRequest, int64, error)
}

type GormRequestRepo struct {
	db       *gorm.DB
	defaults RequestDefaults
	now      func() time.Time
}

func NewGormRequestRepo(db *gorm.DB) *GormRequestRepo {
	return newGormRequestRepo(db, time.Now)
}

func newGormRequestRepo(db *gorm.DB, nowFn func() time.Time) *GormRequestRepo {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &GormRequestRepo{db: db, defaults: DefaultRequestDefaults, now: nowFn}
}

// Insert merges r over the defaults, stores it and returns the surrogate id.
// r is updated with the stored values.
func (r *GormRequestRepo) Insert(ctx context.Context, req *domain.FittingRequest) (uint, error) {
	if req == nil {
		return 0, fmt.Errorf("%w: request is required", domain.ErrValidation)
	}
	if err := req.Validate(); err != nil {
		return 0, err
	}

	model := requestModelFromDomain(req)
	if model.Status == "" {
		model.Status = r.defaults.Status
	}
	if model.Priority == 0 {
		model.Priority = r.defaults.Priority
	}
	if model.RequestDate.IsZero() {
		model.RequestDate = r.now().UTC()
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return 0, persistenceError("insert request", err)
	}

	*req = *requestModelToDomain(model)
	return model.ID, nil
}

// GetByRequestID returns nil without error when the business key is unknown.
func (r *GormRequestRepo) GetByRequestID(ctx context.Context, requestID string) (*domain.FittingRequest, error) {
	var model RequestModel
	err := r.db.WithContext(ctx).Where("request_id = ?", requestID).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return requestModelToDomain(&model), nil
}

// UpdateStatus reads the current status and then writes the new status
// together with its status_log entry. The read is not locked, so a concurrent
// writer between the read and the write leaves a stale old_status in the log.
func (r *GormRequestRepo) UpdateStatus(ctx context.Context, requestID string, status domain.RequestStatus, notes string) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: invalid request status %q", domain.ErrValidation, status)
	}

	current, err := r.GetByRequestID(ctx, requestID)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("request %s: %w", requestID, domain.ErrNotFound)
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&RequestModel{}).
			Where("request_id = ?", requestID).
			Updates(map[string]any{
				"status":     status,
				"updated_at": r.now().UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return tx.Create(r.statusLogModel(ctx, requestID, current.Status, status, notes)).Error
	})
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("request %s: %w", requestID, domain.ErrNotFound)
	}
	if err != nil {
		return persistenceError("update request status", err)
	}
	return nil
}

// LogStatusChange appends an audit entry attributed to the actor in ctx.
func (r *GormRequestRepo) LogStatusChange(ctx context.Context, requestID string, oldStatus, newStatus domain.RequestStatus, notes string) error {
	if err := r.db.WithContext(ctx).Create(r.statusLogModel(ctx, requestID, oldStatus, newStatus, notes)).Error; err != nil {
		return persistenceError("log status change", err)
	}
	return nil
}

func (r *GormRequestRepo) statusLogModel(ctx context.Context, requestID string, oldStatus, newStatus domain.RequestStatus, notes string) *StatusLogModel {
	var changedBy *string
	if actor, ok := observability.ActorFromContext(ctx); ok && actor.ID != "" {
		id := actor.ID
		changedBy = &id
	}

	return &StatusLogModel{
		RequestID: requestID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		ChangedBy: changedBy,
		Notes:     notes,
		CreatedAt: r.now().UTC(),
	}
}

// StatusHistory returns the audit trail oldest first.
func (r *GormRequestRepo) StatusHistory(ctx context.Context, requestID string) ([]domain.StatusLogEntry, error) {
	var models []StatusLogModel
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	entries := make([]domain.StatusLogEntry, 0, len(models))
	for i := range models {
		entries = append(entries, statusLogModelToDomain(&models[i]))
	}
	return entries, nil
}

func (r *GormRequestRepo) IncrementGaragesNotified(ctx context.Context, requestID string, by int) error {
	result := r.db.WithContext(ctx).
		Model(&RequestModel{}).
		Where("request_id = ?", requestID).
		Updates(map[string]any{
			"garages_notified": gorm.Expr("garages_notified + ?", by),
			"updated_at":       r.now().UTC(),
		})
	if result.Error != nil {
		return persistenceError("increment garages notified", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("request %s: %w", requestID, domain.ErrNotFound)
	}
	return nil
}

func (r *GormRequestRepo) List(ctx context.Context, params RequestListParams) ([]domain.FittingRequest, int64, error) {
	query := r.db.WithContext(ctx).Model(&RequestModel{})

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Emirate != nil {
		query = query.Where("selected_emirate = ?", *params.Emirate)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var models []RequestModel
	err := query.
		Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	requests := make([]domain.FittingRequest, 0, len(models))
	for i := range models {
		requests = append(requests, *requestModelToDomain(&models[i]))
	}
	return requests, total, nil
}
