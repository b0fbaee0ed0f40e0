package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kursadbilgin/fitting-request/internal/domain"
	"github.com/kursadbilgin/fitting-request/internal/observability"
	"gorm.io/gorm"
)

const recentCriticalLimit = 10

// ErrorStatistics summarises the error log over a trailing window.
type ErrorStatistics struct {
	Days           int                     `json:"days"`
	Total          int64                   `json:"total"`
	BySeverity     map[domain.Severity]int `json:"by_severity"`
	RecentCritical []domain.ErrorLogEntry  `json:"recent_critical"`
	Trends         []ErrorTrend            `json:"trends"`
}

// ErrorTrend is the number of entries of one severity on one UTC day.
type ErrorTrend struct {
	Date     string          `json:"date"`
	Severity domain.Severity `json:"severity"`
	Count    int             `json:"count"`
}

type ErrorLogRepository interface {
	Create(ctx context.Context, entry *domain.ErrorLogEntry) (uint, error)
	MarkResolved(ctx context.Context, ids []uint) (int64, error)
	Statistics(ctx context.Context, days int) (*ErrorStatistics, error)
}

type GormErrorLogRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormErrorLogRepo(db *gorm.DB) *GormErrorLogRepo {
	return newGormErrorLogRepo(db, time.Now)
}

func newGormErrorLogRepo(db *gorm.DB, nowFn func() time.Time) *GormErrorLogRepo {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &GormErrorLogRepo{db: db, now: nowFn}
}

// Create appends an entry. Actor, IP and user agent are taken from ctx when
// the entry leaves them empty.
func (r *GormErrorLogRepo) Create(ctx context.Context, entry *domain.ErrorLogEntry) (uint, error) {
	if entry == nil {
		return 0, fmt.Errorf("%w: error log entry is required", domain.ErrValidation)
	}
	if entry.Severity == "" {
		entry.Severity = domain.SeverityError
	}
	if !entry.Severity.IsValid() {
		return 0, fmt.Errorf("%w: invalid severity %q", domain.ErrValidation, entry.Severity)
	}

	if actor, ok := observability.ActorFromContext(ctx); ok {
		if entry.ActorID == nil && actor.ID != "" {
			id := actor.ID
			entry.ActorID = &id
		}
		if entry.IPAddress == "" {
			entry.IPAddress = actor.IP
		}
		if entry.UserAgent == "" {
			entry.UserAgent = actor.UserAgent
		}
	}

	model := errorLogModelFromDomain(entry)
	if model.CreatedAt.IsZero() {
		model.CreatedAt = r.now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return 0, persistenceError("log error", err)
	}

	entry.ID = model.ID
	entry.CreatedAt = model.CreatedAt
	return model.ID, nil
}

func (r *GormErrorLogRepo) MarkResolved(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).
		Model(&ErrorLogModel{}).
		Where("id IN ?", ids).
		Update("resolved", true)
	if result.Error != nil {
		return 0, persistenceError("mark errors resolved", result.Error)
	}
	return result.RowsAffected, nil
}

type severityCount struct {
	Severity domain.Severity `gorm:"column:severity"`
	Count    int             `gorm:"column:count"`
}

type errorLogStamp struct {
	Severity  domain.Severity `gorm:"column:severity"`
	CreatedAt time.Time       `gorm:"column:created_at"`
}

func (r *GormErrorLogRepo) Statistics(ctx context.Context, days int) (*ErrorStatistics, error) {
	if days <= 0 {
		days = 7
	}
	since := r.now().UTC().AddDate(0, 0, -days)
	db := r.db.WithContext(ctx)

	stats := &ErrorStatistics{Days: days, BySeverity: make(map[domain.Severity]int)}

	if err := db.Model(&ErrorLogModel{}).Where("created_at >= ?", since).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	var counts []severityCount
	err := db.Model(&ErrorLogModel{}).
		Select("severity, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Group("severity").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	for _, c := range counts {
		stats.BySeverity[c.Severity] = c.Count
	}

	var critical []ErrorLogModel
	err = db.Where("severity = ? AND created_at >= ?", domain.SeverityCritical, since).
		Order("created_at DESC, id DESC").
		Limit(recentCriticalLimit).
		Find(&critical).Error
	if err != nil {
		return nil, err
	}
	stats.RecentCritical = make([]domain.ErrorLogEntry, 0, len(critical))
	for i := range critical {
		stats.RecentCritical = append(stats.RecentCritical, errorLogModelToDomain(&critical[i]))
	}

	// Day buckets are computed here because date functions differ per engine.
	var stamps []errorLogStamp
	err = db.Model(&ErrorLogModel{}).
		Select("severity, created_at").
		Where("created_at >= ?", since).
		Scan(&stamps).Error
	if err != nil {
		return nil, err
	}
	stats.Trends = bucketTrends(stamps)

	return stats, nil
}

func bucketTrends(stamps []errorLogStamp) []ErrorTrend {
	type bucket struct {
		date     string
		severity domain.Severity
	}
	counts := make(map[bucket]int)
	for _, s := range stamps {
		counts[bucket{date: s.CreatedAt.UTC().Format(time.DateOnly), severity: s.Severity}]++
	}

	trends := make([]ErrorTrend, 0, len(counts))
	for b, n := range counts {
		trends = append(trends, ErrorTrend{Date: b.date, Severity: b.severity, Count: n})
	}
	sort.Slice(trends, func(i, j int) bool {
		if trends[i].Date != trends[j].Date {
			return trends[i].Date > trends[j].Date
		}
		return trends[i].Severity < trends[j].Severity
	})
	return trends
}
