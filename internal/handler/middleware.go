package handler

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/kursadbilgin/fitting-request/internal/domain"
	"github.com/kursadbilgin/fitting-request/internal/observability"
	"github.com/kursadbilgin/fitting-request/internal/security"
	"github.com/kursadbilgin/fitting-request/internal/service"
)

// HeaderAdminKey carries the admin API key.
const HeaderAdminKey = "X-Admin-Key"

const adminActorID = "admin"

type RequestInspector interface {
	InspectRequest(ctx context.Context, uri, userAgent, ip string) error
}

type PerformanceLogger interface {
	LogPerformanceIssue(ctx context.Context, operation string, duration, threshold time.Duration, details map[string]any)
}

// IncidentLogger records failures in the error log.
type IncidentLogger interface {
	Log(ctx context.Context, message string, details map[string]any, severity domain.Severity)
}

type LoginGuard interface {
	IsLockedOut(ctx context.Context, ip string) bool
	LogFailedLogin(ctx context.Context, username, ip, userAgent string)
}

// Recover turns a handler panic into a 500 and logs it as a critical incident.
func Recover(incidents IncidentLogger) fiber.Handler {
	return recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e any) {
			if incidents == nil {
				return
			}
			incidents.Log(c.UserContext(), fmt.Sprintf("panic: %v", e), map[string]any{
				"method": c.Method(),
				"path":   c.Path(),
				"stack":  string(debug.Stack()),
			}, domain.SeverityCritical)
		},
	})
}

// RequestContext sets the security headers, attaches the correlation id and
// the anonymous actor to the request context, and blocks suspicious requests.
// Forwarding headers are honoured only from trusted proxies.
func RequestContext(inspector RequestInspector, trusted security.TrustedProxies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		for name, value := range security.SecurityHeaders() {
			c.Set(name, value)
		}

		correlationID := requestCorrelationID(c)
		c.Set(fiber.HeaderXRequestID, correlationID)

		header := func(name string) string { return c.Get(name) }
		actor := observability.Actor{
			IP:        security.ClientIP(header, c.IP(), trusted),
			UserAgent: c.Get(fiber.HeaderUserAgent),
		}
		ctx := observability.WithCorrelationID(c.UserContext(), correlationID)
		ctx = observability.WithActor(ctx, actor)
		c.SetUserContext(ctx)

		if inspector != nil {
			if err := inspector.InspectRequest(ctx, c.OriginalURL(), actor.UserAgent, actor.IP); err != nil {
				return err
			}
		}
		return c.Next()
	}
}

// AdminAuth authenticates the admin API key against its bcrypt hash and
// grants the management capabilities. Failed attempts count toward the IP
// lockout.
func AdminAuth(guard LoginGuard, keyHash string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if keyHash == "" {
			return domain.ErrForbidden
		}

		ctx := c.UserContext()
		actor, _ := observability.ActorFromContext(ctx)
		if guard.IsLockedOut(ctx, actor.IP) {
			return domain.ErrRateLimited
		}

		key := strings.TrimSpace(c.Get(HeaderAdminKey))
		if key == "" || !security.VerifyPassword(key, keyHash) {
			guard.LogFailedLogin(ctx, adminActorID, actor.IP, actor.UserAgent)
			return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
		}

		actor.ID = adminActorID
		actor.Capabilities = []string{service.CapabilityManageRequests, service.CapabilityManageOptions}
		c.SetUserContext(observability.WithActor(ctx, actor))
		return c.Next()
	}
}

// SlowRequests reports handlers that run longer than threshold.
func SlowRequests(perf PerformanceLogger, threshold time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		perf.LogPerformanceIssue(c.UserContext(), c.Method()+" "+c.Route().Path, time.Since(start), threshold, map[string]any{
			"path": c.Path(),
		})
		return err
	}
}

func requestCorrelationID(c *fiber.Ctx) string {
	if value := strings.TrimSpace(c.Get(fiber.HeaderXRequestID)); value != "" && len(value) <= 128 {
		return value
	}
	return uuid.NewString()
}
