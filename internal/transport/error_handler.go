package transport

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/fitting-request/internal/domain"
	"github.com/kursadbilgin/fitting-request/internal/observability"
	"go.uber.org/zap"
)

// fieldErrors is implemented by validation failures that carry per-field
// messages for the client.
type fieldErrors interface {
	FieldErrors() map[string]string
}

// IncidentLogger persists server-side failures to the error log.
type IncidentLogger interface {
	Log(ctx context.Context, message string, details map[string]any, severity domain.Severity)
}

// ErrorHandler maps domain errors to status codes. Engine and provider detail
// is logged, never returned. Server errors are also written to incidents when
// one is given.
func ErrorHandler(logger *zap.Logger, incidents IncidentLogger) fiber.ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx, err error) error {
		code, body := classify(err)

		log := observability.WithContextLogger(logger, c.UserContext())
		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("request error", fields...)
			if incidents != nil {
				incidents.Log(c.UserContext(), err.Error(), map[string]any{
					"method": c.Method(),
					"path":   c.Path(),
					"status": code,
				}, domain.SeverityError)
			}
		} else {
			log.Debug("request rejected", fields...)
		}

		return c.Status(code).JSON(body)
	}
}

func classify(err error) (int, fiber.Map) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, fiber.Map{"error": fe.Message}
	}

	var fields fieldErrors
	if errors.As(err, &fields) {
		return fiber.StatusUnprocessableEntity, fiber.Map{"error": "validation failed", "fields": fields.FieldErrors()}
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest, fiber.Map{"error": err.Error()}
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, fiber.Map{"error": "not found"}
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, fiber.Map{"error": conflictMessage(err)}
	case errors.Is(err, domain.ErrRateLimited):
		return fiber.StatusTooManyRequests, fiber.Map{"error": "Too many requests. Please try again later."}
	case errors.Is(err, domain.ErrSecurityCheck):
		return fiber.StatusForbidden, fiber.Map{"error": "Security check failed"}
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, fiber.Map{"error": "forbidden"}
	default:
		return fiber.StatusInternalServerError, fiber.Map{"error": "internal server error"}
	}
}

func conflictMessage(err error) string {
	var perr *domain.PersistenceError
	if errors.As(err, &perr) {
		return "already exists"
	}
	return err.Error()
}
