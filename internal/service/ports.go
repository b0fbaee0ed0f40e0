package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kursadbilgin/fitting-request/internal/domain"
	"github.com/kursadbilgin/fitting-request/internal/observability"
	"github.com/kursadbilgin/fitting-request/internal/settings"
	"github.com/kursadbilgin/fitting-request/internal/validator"
)

// Capabilities checked against the request actor.
const (
	CapabilityManageRequests = "manage_fitting_requests"
	CapabilityManageOptions  = "manage_options"
)

// Security is the slice of the security facade the services use.
type Security interface {
	CheckRateLimit(ctx context.Context, identifier, action string) (bool, error)
	GenerateToken(data any, expiry time.Duration) (string, error)
	ValidateToken(ctx context.Context, token string, expected any) (json.RawMessage, bool)
}

type RequestValidator interface {
	ValidateRequest(ctx context.Context, form validator.Form) validator.Result[validator.RequestData]
}

type QuoteValidator interface {
	ValidateQuote(ctx context.Context, form validator.Form) validator.Result[validator.QuoteData]
}

type SettingsValidator interface {
	ValidateSettings(ctx context.Context, overrides settings.Overrides) validator.Result[settings.Overrides]
}

// ReferenceCache serves cached garages and drops stale entries.
type ReferenceCache interface {
	GaragesByEmirate(ctx context.Context, emirate domain.Emirate) []domain.Garage
	GarageInfo(ctx context.Context, garageID uint) *domain.Garage
	InvalidateRelated(ctx context.Context, category string)
}

type SettingsProvider interface {
	Get(ctx context.Context) settings.Settings
}

type OptionStore interface {
	Get(ctx context.Context, name string) (string, bool, error)
	Set(ctx context.Context, name, value string) error
}

// ValidationError carries per-field messages for the caller to show.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("%s: %s", domain.ErrValidation, strings.Join(keys, ", "))
}

// FieldErrors exposes the messages to the HTTP layer.
func (e *ValidationError) FieldErrors() map[string]string {
	return e.Fields
}

func (e *ValidationError) Is(target error) bool {
	return target == domain.ErrValidation
}

// AsValidationError extracts the field messages from err, if any.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

// clientIdentifier keys rate limits by the caller's address.
func clientIdentifier(ctx context.Context) string {
	if actor, ok := observability.ActorFromContext(ctx); ok && actor.IP != "" {
		return actor.IP
	}
	return "unknown"
}

func requireCapability(ctx context.Context, capability string) error {
	actor, ok := observability.ActorFromContext(ctx)
	if !ok || !actor.Can(capability) {
		return fmt.Errorf("%w: missing capability %s", domain.ErrForbidden, capability)
	}
	return nil
}

func checkRateLimit(ctx context.Context, sec Security, action string) error {
	allowed, err := sec.CheckRateLimit(ctx, clientIdentifier(ctx), action)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("%w: too many %s attempts", domain.ErrRateLimited, action)
	}
	return nil
}

type GarageValidator interface {
	ValidateGarageRegistration(ctx context.Context, form validator.Form) validator.Result[validator.GarageData]
	ValidateFileUpload(ctx context.Context, file validator.FileUpload, maxSize int64) validator.FileResult
}

type FeedbackValidator interface {
	ValidateFeedback(ctx context.Context, form validator.Form) validator.Result[validator.FeedbackData]
}
