package validator

import (
	"context"
	"errors"
	"strconv"

	playground "github.com/go-playground/validator/v10"
	"github.com/kursadbilgin/fitting-request/internal/domain"
	"github.com/kursadbilgin/fitting-request/internal/security"
	"github.com/kursadbilgin/fitting-request/internal/settings"
	"go.uber.org/zap"
)

var structValidator = playground.New()

var settingsMessages = map[string]string{
	"max_garages_per_request": "Max garages must be between 1 and 50",
	"request_timeout_hours":   "Timeout must be between 1 and 168 hours",
}

// ValidateSettings checks admin settings overrides. Data keeps only the
// overrides that passed, so it can be merged even when some fields failed.
func (v *Validator) ValidateSettings(ctx context.Context, overrides settings.Overrides) Result[settings.Overrides] {
	errs := newFieldErrors()
	data := overrides

	if err := structValidator.Struct(overrides); err != nil {
		var fieldErrs playground.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			v.logger.Error("settings validation failed", zap.Error(err))
			return securityFailure[settings.Overrides]()
		}
		for _, fe := range fieldErrs {
			switch fe.StructField() {
			case "MaxGaragesPerRequest":
				errs.add("max_garages_per_request", valueString(fe.Value()), fe.Tag(), settingsMessages["max_garages_per_request"])
				data.MaxGaragesPerRequest = nil
			case "RequestTimeoutHours":
				errs.add("request_timeout_hours", valueString(fe.Value()), fe.Tag(), settingsMessages["request_timeout_hours"])
				data.RequestTimeoutHours = nil
			}
		}
	}

	if overrides.AdminEmail != nil {
		if email, ok := security.SanitizeEmail(*overrides.AdminEmail); ok {
			data.AdminEmail = &email
		} else {
			errs.add("admin_email", *overrides.AdminEmail, "email", "Please enter a valid admin email")
			data.AdminEmail = nil
		}
	}

	if overrides.DefaultEmirate != nil {
		if emirate, err := domain.ParseEmirateFromString(overrides.DefaultEmirate.String()); err == nil {
			data.DefaultEmirate = &emirate
		} else {
			errs.add("default_emirate", overrides.DefaultEmirate.String(), "emirate", "Invalid emirate selected")
			data.DefaultEmirate = nil
		}
	}

	return Result[settings.Overrides]{
		IsValid: errs.empty(),
		Errors:  v.report(ctx, errs),
		Data:    data,
	}
}

func valueString(value any) string {
	switch v := value.(type) {
	case *int:
		if v != nil {
			return strconv.Itoa(*v)
		}
	case int:
		return strconv.Itoa(v)
	}
	return ""
}
