package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RateLimitRepository interface {
	CheckRateLimit(ctx context.Context, identifier, action string, limit int, window time.Duration) (bool, error)
}

type GormRateLimitRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormRateLimitRepo(db *gorm.DB) *GormRateLimitRepo {
	return newGormRateLimitRepo(db, time.Now)
}

func newGormRateLimitRepo(db *gorm.DB, nowFn func() time.Time) *GormRateLimitRepo {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &GormRateLimitRepo{db: db, now: nowFn}
}

// CheckRateLimit sweeps expired counters for action, then allows the call and
// counts it unless identifier already reached limit inside the window.
//
// The read and the upsert are separate statements: two concurrent callers can
// both pass the read, so the limit may be exceeded by the number of racing
// callers. Use the Redis limiter where that matters.
func (r *GormRateLimitRepo) CheckRateLimit(ctx context.Context, identifier, action string, limit int, window time.Duration) (bool, error) {
	if identifier == "" || action == "" {
		return false, fmt.Errorf("identifier and action are required")
	}

	now := r.now().UTC()
	db := r.db.WithContext(ctx)

	err := db.Where("action = ? AND window_start < ?", action, now.Add(-window)).
		Delete(&RateLimitModel{}).Error
	if err != nil {
		return false, persistenceError("sweep rate limits", err)
	}

	var current RateLimitModel
	err = db.Where("identifier = ? AND action = ?", identifier, action).First(&current).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	if err == nil && current.Count >= limit {
		return false, nil
	}

	counter := RateLimitModel{
		Identifier:  identifier,
		Action:      action,
		Count:       1,
		WindowStart: now,
	}
	err = db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "identifier"}, {Name: "action"}},
		DoUpdates: clause.Assignments(map[string]any{
			"count": gorm.Expr("rate_limits.count + 1"),
		}),
	}).Create(&counter).Error
	if err != nil {
		return false, persistenceError("upsert rate limit", err)
	}

	return true, nil
}
