package domain

import (
	"fmt"
	"strings"
	"time"
)

// NotificationType is the delivery channel of a queued notification.
type NotificationType string

const (
	NotificationTypeEmail    NotificationType = "email"
	NotificationTypeWhatsApp NotificationType = "whatsapp"
	NotificationTypeSMS      NotificationType = "sms"
)

func (t NotificationType) String() string { return string(t) }

func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationTypeEmail, NotificationTypeWhatsApp, NotificationTypeSMS:
		return true
	}
	return false
}

func ParseNotificationTypeFromString(s string) (NotificationType, error) {
	t := NotificationType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: invalid notification type %q", ErrValidation, s)
	}
	return t, nil
}

// QueueStatus represents the lifecycle state of a queued notification.
type QueueStatus string

const (
	QueueStatusPending    QueueStatus = "pending"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusCompleted  QueueStatus = "completed"
	QueueStatusFailed     QueueStatus = "failed"
)

func (s QueueStatus) String() string { return string(s) }

func (s QueueStatus) IsValid() bool {
	switch s {
	case QueueStatusPending, QueueStatusProcessing, QueueStatusCompleted, QueueStatusFailed:
		return true
	}
	return false
}

func ParseQueueStatusFromString(s string) (QueueStatus, error) {
	st := QueueStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid queue status %q", ErrValidation, s)
	}
	return st, nil
}

// MaxNotificationAttempts bounds the retry budget. Items at the cap are no
// longer returned by the pending pull.
const MaxNotificationAttempts = 3

const DefaultNotificationPriority = 5

// Recipient is one addressee of a queued notification. QuoteToken carries the
// signed link a garage uses to submit its quote.
type Recipient struct {
	GarageID   uint   `json:"garage_id,omitempty"`
	Name       string `json:"name,omitempty"`
	Address    string `json:"address"`
	QuoteToken string `json:"quote_token,omitempty"`
}

// NotificationQueueItem is one unit of outbound notification work.
type NotificationQueueItem struct {
	ID               uint
	RequestID        string
	NotificationType NotificationType
	Recipients       []Recipient
	Priority         int
	Status           QueueStatus
	Attempts         int
	ScheduledFor     time.Time
	CompletedAt      *time.Time
	ErrorMessage     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (n *NotificationQueueItem) Validate() error {
	if strings.TrimSpace(n.RequestID) == "" {
		return fmt.Errorf("%w: request_id is required", ErrValidation)
	}
	if !n.NotificationType.IsValid() {
		return fmt.Errorf("%w: invalid notification type %q", ErrValidation, n.NotificationType)
	}
	if len(n.Recipients) == 0 {
		return fmt.Errorf("%w: at least one recipient is required", ErrValidation)
	}
	return nil
}
