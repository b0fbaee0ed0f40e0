package settings

import (
	"time"

	"github.com/kursadbilgin/fitting-request/internal/domain"
)

// OptionName is the options store key holding the persisted settings.
const OptionName = "fitting_request_settings"

type Settings struct {
	EnableEmailNotifications    bool           `json:"enable_email_notifications"`
	EnableWhatsAppNotifications bool           `json:"enable_whatsapp_notifications"`
	MaxGaragesPerRequest        int            `json:"max_garages_per_request"`
	RequestTimeoutHours         int            `json:"request_timeout_hours"`
	EnableQuoteSystem           bool           `json:"enable_quote_system"`
	EnableFeedbackSystem        bool           `json:"enable_feedback_system"`
	AdminEmail                  string         `json:"admin_email"`
	DefaultEmirate              domain.Emirate `json:"default_emirate"`
}

// Overrides is a partial settings document. Nil fields keep the current value.
type Overrides struct {
	EnableEmailNotifications    *bool           `json:"enable_email_notifications,omitempty"`
	EnableWhatsAppNotifications *bool           `json:"enable_whatsapp_notifications,omitempty"`
	MaxGaragesPerRequest        *int            `json:"max_garages_per_request,omitempty" validate:"omitempty,min=1,max=50"`
	RequestTimeoutHours         *int            `json:"request_timeout_hours,omitempty" validate:"omitempty,min=1,max=168"`
	EnableQuoteSystem           *bool           `json:"enable_quote_system,omitempty"`
	EnableFeedbackSystem        *bool           `json:"enable_feedback_system,omitempty"`
	AdminEmail                  *string         `json:"admin_email,omitempty"`
	DefaultEmirate              *domain.Emirate `json:"default_emirate,omitempty"`
}

func Defaults(adminEmail string) Settings {
	return Settings{
		EnableEmailNotifications:    true,
		EnableWhatsAppNotifications: false,
		MaxGaragesPerRequest:        10,
		RequestTimeoutHours:         24,
		EnableQuoteSystem:           true,
		EnableFeedbackSystem:        true,
		AdminEmail:                  adminEmail,
		DefaultEmirate:              domain.EmirateDubai,
	}
}

// Merge returns s with every non-nil override applied.
func (s Settings) Merge(o Overrides) Settings {
	if o.EnableEmailNotifications != nil {
		s.EnableEmailNotifications = *o.EnableEmailNotifications
	}
	if o.EnableWhatsAppNotifications != nil {
		s.EnableWhatsAppNotifications = *o.EnableWhatsAppNotifications
	}
	if o.MaxGaragesPerRequest != nil {
		s.MaxGaragesPerRequest = *o.MaxGaragesPerRequest
	}
	if o.RequestTimeoutHours != nil {
		s.RequestTimeoutHours = *o.RequestTimeoutHours
	}
	if o.EnableQuoteSystem != nil {
		s.EnableQuoteSystem = *o.EnableQuoteSystem
	}
	if o.EnableFeedbackSystem != nil {
		s.EnableFeedbackSystem = *o.EnableFeedbackSystem
	}
	if o.AdminEmail != nil {
		s.AdminEmail = *o.AdminEmail
	}
	if o.DefaultEmirate != nil {
		s.DefaultEmirate = *o.DefaultEmirate
	}
	return s
}

// RequestTimeout is the quote window for a request.
func (s Settings) RequestTimeout() time.Duration {
	if s.RequestTimeoutHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(s.RequestTimeoutHours) * time.Hour
}
