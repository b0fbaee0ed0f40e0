package provider

import (
	"context"

	"github.com/kursadbilgin/fitting-request/internal/domain"
)

// Message is one rendered notification for a single recipient.
type Message struct {
	RequestID string
	Type      domain.NotificationType
	To        string
	Subject   string
	Body      string
}

// Sender is the outbound notification delivery port.
type Sender interface {
	Send(ctx context.Context, msg Message) (*ProviderResponse, error)
}

// Mailer sends operator alerts. Delivery is fire-and-forget from the
// caller's point of view.
type Mailer interface {
	SendMail(ctx context.Context, to, subject, body string) error
}

// ProviderResponse stores delivery call metadata for logging.
type ProviderResponse struct {
	StatusCode int
	Body       string
	MessageID  string
}
