package validator

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/kursadbilgin/fitting-request/internal/domain"
	"github.com/kursadbilgin/fitting-request/internal/security"
	"go.uber.org/zap"
)

// Form is a submitted form keyed by field name.
type Form map[string]string

func (f Form) get(field string) string {
	return strings.TrimSpace(f[field])
}

// Result is the outcome of one validator. Data carries sanitized values only
// for fields that passed; callers must not read it when IsValid is false.
type Result[T any] struct {
	IsValid bool              `json:"is_valid"`
	Errors  map[string]string `json:"errors,omitempty"`
	Data    T                 `json:"-"`
}

// GeneralErrorKey is the single error reported when a security check fails.
const GeneralErrorKey = "general"

const msgSecurityCheckFailed = "Security check failed"

// ReferenceData serves the cached reference lists.
type ReferenceData interface {
	CarMakes(ctx context.Context) []string
	CarModels(ctx context.Context, carMake string) []domain.Vehicle
	Emirates(ctx context.Context) []string
	GarageInfo(ctx context.Context, garageID uint) *domain.Garage
}

type Catalog interface {
	ProductExists(ctx context.Context, id uint) (bool, error)
	GarageEmailExists(ctx context.Context, email string) (bool, error)
}

type Security interface {
	ValidateCSRF(token, action string) bool
	InspectToken(ctx context.Context, token string, expected any) (json.RawMessage, bool)
}

type IncidentLogger interface {
	LogValidationError(ctx context.Context, field, value, rule string)
	LogSecurityIncident(ctx context.Context, incidentType, description string, details map[string]any)
}

type Validator struct {
	reference ReferenceData
	catalog   Catalog
	security  Security
	incidents IncidentLogger
	logger    *zap.Logger
}

func New(reference ReferenceData, catalog Catalog, security Security, incidents IncidentLogger, logger *zap.Logger) (*Validator, error) {
	if reference == nil {
		return nil, fmt.Errorf("reference data is required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if security == nil {
		return nil, fmt.Errorf("security service is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{
		reference: reference,
		catalog:   catalog,
		security:  security,
		incidents: incidents,
		logger:    logger,
	}, nil
}

// fieldErrors accumulates one message per field together with the rule that
// failed, for validation telemetry.
type fieldErrors struct {
	messages map[string]string
	rules    map[string]string
	values   map[string]string
}

func newFieldErrors() *fieldErrors {
	return &fieldErrors{
		messages: make(map[string]string),
		rules:    make(map[string]string),
		values:   make(map[string]string),
	}
}

func (e *fieldErrors) add(field, value, rule, message string) {
	e.messages[field] = message
	e.rules[field] = rule
	e.values[field] = value
}

func (e *fieldErrors) empty() bool { return len(e.messages) == 0 }

func (e *fieldErrors) has(field string) bool {
	_, ok := e.messages[field]
	return ok
}

func (v *Validator) report(ctx context.Context, errs *fieldErrors) map[string]string {
	if errs.empty() {
		return nil
	}
	fields := make([]string, 0, len(errs.messages))
	for field := range errs.messages {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		value := errs.values[field]
		if value == "" {
			value = "missing"
		}
		if v.incidents != nil {
			v.incidents.LogValidationError(ctx, field, value, errs.rules[field])
		}
	}
	return errs.messages
}

func (v *Validator) honeypotTripped(ctx context.Context, form Form, incidentType, description string) bool {
	if security.CheckHoneypot(form) {
		return false
	}
	fields := make([]string, 0, len(form))
	for name := range form {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	if v.incidents != nil {
		v.incidents.LogSecurityIncident(ctx, incidentType, description, map[string]any{"fields": fields})
	}
	return true
}

func securityFailure[T any]() Result[T] {
	return Result[T]{
		IsValid: false,
		Errors:  map[string]string{GeneralErrorKey: msgSecurityCheckFailed},
	}
}

func length(s string) int {
	return utf8.RuneCountInString(s)
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
