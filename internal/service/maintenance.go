package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kursadbilgin/fitting-request/internal/domain"
	"github.com/kursadbilgin/fitting-request/internal/repository"
	"go.uber.org/zap"
)

// HealthStatusOption holds the last health check snapshot.
const HealthStatusOption = "fitting_request_health_status"

// Scheduled job names.
const (
	JobCleanup     = "cleanup"
	JobHealthCheck = "health_check"
	JobCacheWarm   = "cache_warm"
	JobDispatch    = "dispatch"
)

type CacheWarmer interface {
	WarmUp(ctx context.Context)
}

type IncidentLogger interface {
	Log(ctx context.Context, message string, details map[string]any, severity domain.Severity)
}

// VehicleSeeder loads the reference vehicle list.
type VehicleSeeder interface {
	SeedVehicles(ctx context.Context, vehicles []domain.Vehicle) error
}

// HealthSnapshot is the persisted form of the last health check.
type HealthSnapshot struct {
	Database  domain.HealthReport `json:"database"`
	CheckedAt time.Time           `json:"checked_at"`
}

// Maintenance holds the housekeeping jobs.
type Maintenance struct {
	store     repository.MaintenanceRepository
	options   OptionStore
	cache     CacheWarmer
	incidents IncidentLogger
	logger    *zap.Logger
	now       func() time.Time
}

func NewMaintenance(
	store repository.MaintenanceRepository,
	options OptionStore,
	cacheWarmer CacheWarmer,
	incidents IncidentLogger,
	logger *zap.Logger,
) (*Maintenance, error) {
	if store == nil {
		return nil, fmt.Errorf("maintenance repository is required")
	}
	if options == nil {
		return nil, fmt.Errorf("option store is required")
	}
	if cacheWarmer == nil {
		return nil, fmt.Errorf("cache warmer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Maintenance{
		store:     store,
		options:   options,
		cache:     cacheWarmer,
		incidents: incidents,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Register adds the housekeeping jobs and the dispatch loop to scheduler.
func (m *Maintenance) Register(scheduler *Scheduler, dispatch Job, dispatchInterval time.Duration) error {
	jobs := []struct {
		name     string
		interval time.Duration
		run      Job
	}{
		{JobCleanup, 24 * time.Hour, m.Cleanup},
		{JobHealthCheck, time.Hour, m.HealthCheck},
		{JobCacheWarm, 24 * time.Hour, m.WarmCache},
		{JobDispatch, dispatchInterval, dispatch},
	}
	for _, job := range jobs {
		if err := scheduler.Register(job.name, job.interval, job.run); err != nil {
			return err
		}
	}
	return nil
}

func (m *Maintenance) Cleanup(ctx context.Context) error {
	result, err := m.store.Cleanup(ctx)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	m.logger.Info("old records cleaned up",
		zap.Int64("requests", result.Requests),
		zap.Int64("errorLogs", result.ErrorLogs),
		zap.Int64("rateLimits", result.RateLimits),
		zap.Int64("notifications", result.Notifications),
	)
	return nil
}

// HealthCheck saves a snapshot of the store health and raises a critical
// incident when the store is unhealthy.
func (m *Maintenance) HealthCheck(ctx context.Context) error {
	report := m.store.CheckHealth(ctx)
	snapshot := HealthSnapshot{Database: report, CheckedAt: m.now().UTC()}

	encoded, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode health snapshot: %w", err)
	}
	if err := m.options.Set(ctx, HealthStatusOption, string(encoded)); err != nil {
		m.logger.Error("failed to save health snapshot", zap.Error(err))
	}

	if report.Status == domain.HealthError && m.incidents != nil {
		m.incidents.Log(ctx, "Database health check failed", map[string]any{"message": report.Message}, domain.SeverityCritical)
	}
	return nil
}

func (m *Maintenance) WarmCache(ctx context.Context) error {
	m.cache.WarmUp(ctx)
	return nil
}

// SeedReferenceData loads the default vehicle list. Existing make/model pairs
// are left untouched, so it is safe on every start.
func SeedReferenceData(ctx context.Context, seeder VehicleSeeder, logger *zap.Logger) error {
	vehicles := domain.DefaultVehicles()
	if err := seeder.SeedVehicles(ctx, vehicles); err != nil {
		return fmt.Errorf("failed to seed vehicles: %w", err)
	}
	if logger != nil {
		logger.Info("reference vehicles seeded", zap.Int("vehicles", len(vehicles)))
	}
	return nil
}
