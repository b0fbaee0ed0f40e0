package repository

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kursadbilgin/fitting-request/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Retention windows applied by Cleanup.
const (
	CompletedRequestRetentionMonths = 6
	ErrorLogRetentionMonths         = 3
	RateLimitRetention              = 24 * time.Hour
	CompletedNotificationRetention  = 7 * 24 * time.Hour
	StuckProcessingThreshold        = time.Hour
)

type MaintenanceRepository interface {
	Statistics(ctx context.Context, days int) (*domain.RequestStatistics, error)
	Cleanup(ctx context.Context) (*domain.CleanupResult, error)
	CheckHealth(ctx context.Context) domain.HealthReport
}

type GormMaintenanceRepo struct {
	db     *gorm.DB
	tables []string
	logger *zap.Logger
	now    func() time.Time
}

// NewGormMaintenanceRepo checks the given tables for presence in CheckHealth.
func NewGormMaintenanceRepo(db *gorm.DB, tables []string, logger *zap.Logger) *GormMaintenanceRepo {
	return newGormMaintenanceRepo(db, tables, logger, time.Now)
}

func newGormMaintenanceRepo(db *gorm.DB, tables []string, logger *zap.Logger, nowFn func() time.Time) *GormMaintenanceRepo {
	if logger == nil {
		logger = zap.NewNop()
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	return &GormMaintenanceRepo{db: db, tables: tables, logger: logger, now: nowFn}
}

func (r *GormMaintenanceRepo) Statistics(ctx context.Context, days int) (*domain.RequestStatistics, error) {
	if days <= 0 {
		days = 30
	}
	since := r.now().UTC().AddDate(0, 0, -days)
	db := r.db.WithContext(ctx)

	stats := &domain.RequestStatistics{Days: days}

	if err := db.Model(&RequestModel{}).Where("created_at >= ?", since).Count(&stats.TotalRequests).Error; err != nil {
		return nil, err
	}
	err := db.Model(&RequestModel{}).
		Where("status = ? AND created_at >= ?", domain.RequestStatusPending, since).
		Count(&stats.PendingRequests).Error
	if err != nil {
		return nil, err
	}
	err = db.Model(&RequestModel{}).
		Where("status = ? AND created_at >= ?", domain.RequestStatusCompleted, since).
		Count(&stats.CompletedRequests).Error
	if err != nil {
		return nil, err
	}

	var quoted struct {
		Quotes   int64 `gorm:"column:quotes"`
		Requests int64 `gorm:"column:requests"`
	}
	err = db.Table("quotes").
		Select("COUNT(*) AS quotes, COUNT(DISTINCT quotes.request_id) AS requests").
		Joins("INNER JOIN requests ON requests.request_id = quotes.request_id").
		Where("requests.created_at >= ?", since).
		Scan(&quoted).Error
	if err != nil {
		return nil, err
	}

	stats.TotalQuotes = quoted.Quotes
	// Averaged over requests that received at least one quote.
	if quoted.Requests > 0 {
		avg := float64(quoted.Quotes) / float64(quoted.Requests)
		stats.AverageQuotesPerRequest = math.Round(avg*100) / 100
	}

	return stats, nil
}

// Cleanup applies the retention windows and then compacts storage. Critical
// error logs and status_log rows are never removed. Compaction failures are
// logged only.
func (r *GormMaintenanceRepo) Cleanup(ctx context.Context) (*domain.CleanupResult, error) {
	now := r.now().UTC()
	db := r.db.WithContext(ctx)
	result := &domain.CleanupResult{}

	res := db.Where("status = ? AND created_at < ?", domain.RequestStatusCompleted, now.AddDate(0, -CompletedRequestRetentionMonths, 0)).
		Delete(&RequestModel{})
	if res.Error != nil {
		return nil, persistenceError("cleanup requests", res.Error)
	}
	result.Requests = res.RowsAffected

	res = db.Where("severity <> ? AND created_at < ?", domain.SeverityCritical, now.AddDate(0, -ErrorLogRetentionMonths, 0)).
		Delete(&ErrorLogModel{})
	if res.Error != nil {
		return nil, persistenceError("cleanup error logs", res.Error)
	}
	result.ErrorLogs = res.RowsAffected

	res = db.Where("window_start < ?", now.Add(-RateLimitRetention)).Delete(&RateLimitModel{})
	if res.Error != nil {
		return nil, persistenceError("cleanup rate limits", res.Error)
	}
	result.RateLimits = res.RowsAffected

	res = db.Where("status = ? AND completed_at < ?", domain.QueueStatusCompleted, now.Add(-CompletedNotificationRetention)).
		Delete(&NotificationQueueModel{})
	if res.Error != nil {
		return nil, persistenceError("cleanup notifications", res.Error)
	}
	result.Notifications = res.RowsAffected

	r.compact(ctx)

	r.logger.Info("database cleanup completed",
		zap.Int64("requests", result.Requests),
		zap.Int64("errorLogs", result.ErrorLogs),
		zap.Int64("rateLimits", result.RateLimits),
		zap.Int64("notifications", result.Notifications),
	)
	return result, nil
}

func (r *GormMaintenanceRepo) compact(ctx context.Context) {
	var statements []string
	switch r.db.Dialector.Name() {
	case "mysql":
		statements = []string{"OPTIMIZE TABLE " + strings.Join(r.tables, ", ")}
	case "postgres":
		for _, table := range r.tables {
			statements = append(statements, "VACUUM ANALYZE "+table)
		}
	case "sqlite":
		statements = []string{"VACUUM"}
	}

	for _, sql := range statements {
		if err := r.db.WithContext(ctx).Exec(sql).Error; err != nil {
			r.logger.Warn("storage compaction failed", zap.String("statement", sql), zap.Error(err))
		}
	}
}

// CheckHealth never returns an error; every failure is folded into the report.
func (r *GormMaintenanceRepo) CheckHealth(ctx context.Context) domain.HealthReport {
	now := r.now().UTC()
	report := func(state domain.HealthState, msg string) domain.HealthReport {
		return domain.HealthReport{Status: state, Message: msg, CheckedAt: now}
	}

	db := r.db.WithContext(ctx)

	var one int
	if err := db.Raw("SELECT 1").Scan(&one).Error; err != nil || one != 1 {
		return report(domain.HealthError, "Database connection failed")
	}

	var missing []string
	for _, table := range r.tables {
		if !db.Migrator().HasTable(table) {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		return report(domain.HealthError, "Missing tables: "+strings.Join(missing, ", "))
	}

	var stuck int64
	err := db.Model(&NotificationQueueModel{}).
		Where("status = ? AND updated_at < ?", domain.QueueStatusProcessing, now.Add(-StuckProcessingThreshold)).
		Count(&stuck).Error
	if err != nil {
		return report(domain.HealthError, err.Error())
	}
	if stuck > 0 {
		return report(domain.HealthWarning, fmt.Sprintf("Found %d stuck notifications", stuck))
	}

	return report(domain.HealthHealthy, "Database is healthy")
}
