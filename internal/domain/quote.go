package domain

import (
	"fmt"
	"strings"
	"time"
)

// QuoteStatus represents a garage quote's review state.
type QuoteStatus string

const (
	QuoteStatusPending  QuoteStatus = "pending"
	QuoteStatusAccepted QuoteStatus = "accepted"
	QuoteStatusRejected QuoteStatus = "rejected"
)

func (s QuoteStatus) String() string { return string(s) }

func (s QuoteStatus) IsValid() bool {
	switch s {
	case QuoteStatusPending, QuoteStatusAccepted, QuoteStatusRejected:
		return true
	}
	return false
}

func ParseQuoteStatusFromString(s string) (QuoteStatus, error) {
	st := QuoteStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid quote status %q", ErrValidation, s)
	}
	return st, nil
}

// Quote limits.
const (
	MaxQuoteAmount        = 99999.99
	MaxEstimatedTimeChars = 50
	MaxQuoteNotesChars    = 1000
)

// Quote is a garage's price offer for a fitting request. At most one quote
// exists per (RequestID, GarageID).
type Quote struct {
	ID             uint
	RequestID      string
	GarageID       uint
	GarageName     string
	QuoteAmount    float64
	EstimatedTime  string
	Notes          string
	Status         QuoteStatus
	SubmissionDate time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (q *Quote) Validate() error {
	if strings.TrimSpace(q.RequestID) == "" {
		return fmt.Errorf("%w: request_id is required", ErrValidation)
	}
	if q.GarageID == 0 {
		return fmt.Errorf("%w: garage_id is required", ErrValidation)
	}
	if q.QuoteAmount <= 0 || q.QuoteAmount > MaxQuoteAmount {
		return fmt.Errorf("%w: quote amount must be in (0, %.2f]", ErrValidation, MaxQuoteAmount)
	}
	if n := len([]rune(q.EstimatedTime)); n > MaxEstimatedTimeChars {
		return fmt.Errorf("%w: estimated time exceeds %d characters (got %d)", ErrValidation, MaxEstimatedTimeChars, n)
	}
	if n := len([]rune(q.Notes)); n > MaxQuoteNotesChars {
		return fmt.Errorf("%w: notes exceed %d characters (got %d)", ErrValidation, MaxQuoteNotesChars, n)
	}
	if q.Status != "" && !q.Status.IsValid() {
		return fmt.Errorf("%w: invalid quote status %q", ErrValidation, q.Status)
	}
	return nil
}
