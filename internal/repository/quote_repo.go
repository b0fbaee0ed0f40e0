package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/kursadbilgin/fitting-request/internal/domain"
	"gorm.io/gorm"
)

type QuoteRepository interface {
	Insert(ctx context.Context, q *domain.Quote) (uint, error)
	ListForRequest(ctx context.Context, requestID string) ([]domain.Quote, error)
	CountForRequest(ctx context.Context, requestID string) (int64, error)
	UpdateStatus(ctx context.Context, id uint, status domain.QuoteStatus) error
}

type GormQuoteRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormQuoteRepo(db *gorm.DB) *GormQuoteRepo {
	return newGormQuoteRepo(db, time.Now)
}

func newGormQuoteRepo(db *gorm.DB, nowFn func() time.Time) *GormQuoteRepo {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &GormQuoteRepo{db: db, now: nowFn}
}

// Insert stores q with pending status and the current submission date unless
// the caller supplied them. A second quote from the same garage for the same
// request fails with a PersistenceError matching domain.ErrConflict.
func (r *GormQuoteRepo) Insert(ctx context.Context, q *domain.Quote) (uint, error) {
	if q == nil {
		return 0, fmt.Errorf("%w: quote is required", domain.ErrValidation)
	}
	if err := q.Validate(); err != nil {
		return 0, err
	}

	model := quoteModelFromDomain(q)
	if model.Status == "" {
		model.Status = domain.QuoteStatusPending
	}
	if model.SubmissionDate.IsZero() {
		model.SubmissionDate = r.now().UTC()
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return 0, persistenceError("insert quote", err)
	}

	garageName := q.GarageName
	*q = *quoteModelToDomain(model)
	q.GarageName = garageName
	return model.ID, nil
}

type quoteWithGarageRow struct {
	QuoteModel
	GarageName *string
}

// ListForRequest returns the quotes of a request with the garage display name,
// in the order garages responded.
func (r *GormQuoteRepo) ListForRequest(ctx context.Context, requestID string) ([]domain.Quote, error) {
	var rows []quoteWithGarageRow
	err := r.db.WithContext(ctx).
		Table("quotes").
		Select("quotes.*, garages.name AS garage_name").
		Joins("LEFT JOIN garages ON garages.id = quotes.garage_id").
		Where("quotes.request_id = ?", requestID).
		Order("quotes.submission_date ASC, quotes.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	quotes := make([]domain.Quote, 0, len(rows))
	for i := range rows {
		q := quoteModelToDomain(&rows[i].QuoteModel)
		if rows[i].GarageName != nil {
			q.GarageName = *rows[i].GarageName
		}
		quotes = append(quotes, *q)
	}
	return quotes, nil
}

func (r *GormQuoteRepo) CountForRequest(ctx context.Context, requestID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&QuoteModel{}).
		Where("request_id = ?", requestID).
		Count(&count).Error
	return count, err
}

func (r *GormQuoteRepo) UpdateStatus(ctx context.Context, id uint, status domain.QuoteStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: invalid quote status %q", domain.ErrValidation, status)
	}

	result := r.db.WithContext(ctx).
		Model(&QuoteModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": r.now().UTC(),
		})
	if result.Error != nil {
		return persistenceError("update quote status", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
