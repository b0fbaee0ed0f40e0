package domain

import (
	"fmt"
	"strings"
	"time"
)

// Severity grades an error log entry.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

func (s Severity) String() string { return string(s) }

func (s Severity) IsValid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError, SeverityCritical:
		return true
	}
	return false
}

func ParseSeverityFromString(s string) (Severity, error) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if !sev.IsValid() {
		return "", fmt.Errorf("%w: invalid severity %q", ErrValidation, s)
	}
	return sev, nil
}

// ErrorLogEntry is an append-only application error or security incident.
type ErrorLogEntry struct {
	ID         uint
	Message    string
	Context    map[string]any
	Severity   Severity
	ActorID    *string
	IPAddress  string
	UserAgent  string
	StackTrace string
	Resolved   bool
	CreatedAt  time.Time
}

// RateLimitCounter is the rolling counter for one (Identifier, Action) pair.
type RateLimitCounter struct {
	ID          uint
	Identifier  string
	Action      string
	Count       int
	WindowStart time.Time
}
