package domain

import (
	"fmt"
	"strings"
	"time"
)

// RequestStatus represents the lifecycle state of a fitting request.
type RequestStatus string

const (
	RequestStatusPending        RequestStatus = "pending"
	RequestStatusSent           RequestStatus = "sent"
	RequestStatusQuotesReceived RequestStatus = "quotes_received"
	RequestStatusCompleted      RequestStatus = "completed"
	RequestStatusCancelled      RequestStatus = "cancelled"
)

func (s RequestStatus) String() string { return string(s) }

func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestStatusPending, RequestStatusSent, RequestStatusQuotesReceived, RequestStatusCompleted, RequestStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether the request no longer accepts quotes.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusCompleted || s == RequestStatusCancelled
}

func ParseRequestStatusFromString(s string) (RequestStatus, error) {
	st := RequestStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid request status %q", ErrValidation, s)
	}
	return st, nil
}

// Emirate is one of the seven UAE service areas.
type Emirate string

const (
	EmirateAbuDhabi     Emirate = "Abu Dhabi"
	EmirateDubai        Emirate = "Dubai"
	EmirateSharjah      Emirate = "Sharjah"
	EmirateAjman        Emirate = "Ajman"
	EmirateUmmAlQuwain  Emirate = "Umm Al Quwain"
	EmirateRasAlKhaimah Emirate = "Ras Al Khaimah"
	EmirateFujairah     Emirate = "Fujairah"
)

// Emirates returns the service areas in display order.
func Emirates() []Emirate {
	return []Emirate{
		EmirateAbuDhabi,
		EmirateDubai,
		EmirateSharjah,
		EmirateAjman,
		EmirateUmmAlQuwain,
		EmirateRasAlKhaimah,
		EmirateFujairah,
	}
}

func (e Emirate) String() string { return string(e) }

func (e Emirate) IsValid() bool {
	for _, known := range Emirates() {
		if e == known {
			return true
		}
	}
	return false
}

func ParseEmirateFromString(s string) (Emirate, error) {
	trimmed := strings.TrimSpace(s)
	for _, known := range Emirates() {
		if strings.EqualFold(trimmed, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: invalid emirate %q", ErrValidation, s)
}

const (
	MinRequestPriority     = 1
	MaxRequestPriority     = 10
	DefaultRequestPriority = 5
)

// FittingRequest is a customer's request to have a product fitted to a vehicle.
// RequestID is the business key; ID is the surrogate key assigned on insert.
type FittingRequest struct {
	ID               uint
	RequestID        string
	ProductID        uint
	CarMake          string
	CarModel         string
	CustomerEmail    string
	CustomerWhatsApp string
	SelectedEmirate  Emirate
	RequestDate      time.Time
	GaragesNotified  int
	Status           RequestStatus
	Priority         int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (r *FittingRequest) Validate() error {
	if strings.TrimSpace(r.RequestID) == "" {
		return fmt.Errorf("%w: request_id is required", ErrValidation)
	}
	if r.ProductID == 0 {
		return fmt.Errorf("%w: product_id is required", ErrValidation)
	}
	if !r.SelectedEmirate.IsValid() {
		return fmt.Errorf("%w: invalid emirate %q", ErrValidation, r.SelectedEmirate)
	}
	if r.Status != "" && !r.Status.IsValid() {
		return fmt.Errorf("%w: invalid request status %q", ErrValidation, r.Status)
	}
	if r.Priority != 0 && (r.Priority < MinRequestPriority || r.Priority > MaxRequestPriority) {
		return fmt.Errorf("%w: priority must be between %d and %d (got %d)", ErrValidation, MinRequestPriority, MaxRequestPriority, r.Priority)
	}
	return nil
}

// StatusLogEntry is the immutable audit record of one status transition.
// ChangedBy is nil for system-initiated changes.
type StatusLogEntry struct {
	ID        uint
	RequestID string
	OldStatus RequestStatus
	NewStatus RequestStatus
	ChangedBy *string
	Notes     string
	CreatedAt time.Time
}
