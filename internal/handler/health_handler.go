package handler

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/fitting-request/internal/domain"
	"github.com/redis/go-redis/v9"
)

const readinessTimeout = 2 * time.Second

type HealthChecker interface {
	CheckHealth(ctx context.Context) domain.HealthReport
}

func RegisterHealthRoutes(app fiber.Router, sqlDB *sql.DB, rdb *redis.Client, checker HealthChecker) {
	app.Get("/livez", LivezHandler())
	app.Get("/readyz", ReadyzHandler(sqlDB, rdb, checker))
}

func LivezHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	}
}

// ReadyzHandler pings the database and Redis and runs the store health
// check. A warning from the store check keeps the service ready.
func ReadyzHandler(sqlDB *sql.DB, rdb *redis.Client, checker HealthChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
		defer cancel()

		dbErr := sqlDB.PingContext(ctx)
		redisErr := rdb.Ping(ctx).Err()
		report := domain.HealthReport{Status: domain.HealthHealthy}
		if checker != nil {
			report = checker.CheckHealth(ctx)
		}

		dbStatus := "ok"
		if dbErr != nil {
			dbStatus = "down"
		}
		redisStatus := "ok"
		if redisErr != nil {
			redisStatus = "down"
		}

		status := "ready"
		statusCode := fiber.StatusOK
		if dbErr != nil || redisErr != nil || report.Status == domain.HealthError {
			status = "not_ready"
			statusCode = fiber.StatusServiceUnavailable
		}

		return c.Status(statusCode).JSON(fiber.Map{
			"status": status,
			"checks": fiber.Map{
				"database": dbStatus,
				"redis":    redisStatus,
				"store":    report.Status,
			},
		})
	}
}
