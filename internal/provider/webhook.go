package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultWebhookTimeout = 10 * time.Second

type deliveryRequest struct {
	RequestID string `json:"request_id"`
	Type      string `json:"type"`
	To        string `json:"to"`
	Subject   string `json:"subject,omitempty"`
	Body      string `json:"body"`
}

type mailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// webhookClient posts JSON documents to one endpoint.
type webhookClient struct {
	client   *resty.Client
	endpoint string
}

func newWebhookClient(endpoint string, client *resty.Client) (*webhookClient, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("webhook endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("invalid webhook endpoint: %w", err)
	}
	if client == nil {
		client = resty.New()
	}
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultWebhookTimeout)
	}
	client.SetRetryCount(0)

	return &webhookClient{client: client, endpoint: trimmed}, nil
}

func (w *webhookClient) post(ctx context.Context, body any) (*ProviderResponse, error) {
	response, err := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(w.endpoint)
	if err != nil {
		return nil, &ProviderError{
			Message:   "webhook request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &ProviderResponse{
			StatusCode: statusCode,
			Body:       responseBody,
			MessageID:  responseMessageID(response),
		}, nil
	}

	return nil, &ProviderError{
		StatusCode: statusCode,
		Message:    errorMessage(statusCode, responseBody),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

// WebhookSender hands notifications to an HTTP delivery gateway.
type WebhookSender struct {
	hook *webhookClient
}

func NewWebhookSender(endpoint string, client *resty.Client) (*WebhookSender, error) {
	hook, err := newWebhookClient(endpoint, client)
	if err != nil {
		return nil, err
	}
	return &WebhookSender{hook: hook}, nil
}

func (s *WebhookSender) Send(ctx context.Context, msg Message) (*ProviderResponse, error) {
	if s == nil || s.hook == nil {
		return nil, fmt.Errorf("sender is not initialized")
	}
	if strings.TrimSpace(msg.To) == "" {
		return nil, &ProviderError{Message: "recipient address is empty"}
	}

	return s.hook.post(ctx, deliveryRequest{
		RequestID: msg.RequestID,
		Type:      msg.Type.String(),
		To:        msg.To,
		Subject:   msg.Subject,
		Body:      msg.Body,
	})
}

// WebhookMailer posts alert mails to an HTTP mail relay.
type WebhookMailer struct {
	hook *webhookClient
}

func NewWebhookMailer(endpoint string, client *resty.Client) (*WebhookMailer, error) {
	hook, err := newWebhookClient(endpoint, client)
	if err != nil {
		return nil, err
	}
	return &WebhookMailer{hook: hook}, nil
}

func (m *WebhookMailer) SendMail(ctx context.Context, to, subject, body string) error {
	if m == nil || m.hook == nil {
		return fmt.Errorf("mailer is not initialized")
	}
	_, err := m.hook.post(ctx, mailRequest{To: to, Subject: subject, Body: body})
	return err
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func errorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("webhook returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}

func responseMessageID(response *resty.Response) string {
	for _, key := range []string{"X-Request-ID", "X-Message-ID"} {
		if value := strings.TrimSpace(response.Header().Get(key)); value != "" {
			return value
		}
	}
	return ""
}
