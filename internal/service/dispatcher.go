package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/fitting-request/internal/domain"
	"github.com/kursadbilgin/fitting-request/internal/observability"
	"github.com/kursadbilgin/fitting-request/internal/provider"
	"github.com/kursadbilgin/fitting-request/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultDispatchBatchSize   = 10
	defaultDispatchConcurrency = 4
	maxErrorMessageLength      = 1000
)

// FailureReporter records failed outbound calls.
type FailureReporter interface {
	HandleAPIFailure(ctx context.Context, service string, callErr error, details map[string]any, fallback func(context.Context) error) error
}

// Dispatcher drains the notification queue through a provider.Sender.
//
// Every queue status write counts as an attempt, so one delivery round costs
// two attempts (processing, then the outcome). An item whose recipients all
// failed transiently goes back to pending only while a further round fits in
// the attempt budget.
type Dispatcher struct {
	queue       repository.NotificationQueueRepository
	sender      provider.Sender
	siteName    string
	batchSize   int
	concurrency int
	failures    FailureReporter
	logger      *zap.Logger
	metrics     *observability.Metrics
	now         func() time.Time
}

func NewDispatcher(
	queue repository.NotificationQueueRepository,
	sender provider.Sender,
	siteName string,
	batchSize int,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if queue == nil {
		return nil, fmt.Errorf("notification queue repository is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("sender is required")
	}
	if batchSize <= 0 {
		batchSize = defaultDispatchBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		queue:       queue,
		sender:      sender,
		siteName:    siteName,
		batchSize:   batchSize,
		concurrency: defaultDispatchConcurrency,
		logger:      logger,
		now:         time.Now,
	}, nil
}

func (d *Dispatcher) SetMetrics(metrics *observability.Metrics) {
	if d == nil {
		return
	}
	d.metrics = metrics
}

func (d *Dispatcher) SetFailureReporter(failures FailureReporter) {
	if d == nil {
		return
	}
	d.failures = failures
}

// RunOnce delivers one batch of due items. Per-item failures are recorded on
// the item; only a failed queue read is returned.
func (d *Dispatcher) RunOnce(ctx context.Context) error {
	items, err := d.queue.GetPending(ctx, d.batchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch pending notifications: %w", err)
	}
	if len(items) == 0 {
		return nil
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i := range items {
		item := items[i]
		g.Go(func() error {
			d.process(groupCtx, item)
			return nil
		})
	}
	return g.Wait()
}

func (d *Dispatcher) process(ctx context.Context, item domain.NotificationQueueItem) {
	notificationType := item.NotificationType.String()
	logger := d.logger.With(
		zap.Uint("notificationId", item.ID),
		zap.String("requestId", item.RequestID),
		zap.String("type", notificationType),
	)

	if err := d.queue.UpdateStatus(ctx, item.ID, domain.QueueStatusProcessing, ""); err != nil {
		logger.Error("failed to claim notification", zap.Error(err))
		return
	}

	d.metrics.IncDispatchInFlight(notificationType)
	defer d.metrics.DecDispatchInFlight(notificationType)

	var failures []string
	allTransient := true
	for _, recipient := range item.Recipients {
		start := d.now()
		_, err := d.sender.Send(ctx, d.render(item, recipient))
		d.metrics.ObserveNotificationSendDuration(notificationType, d.now().Sub(start))
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", recipient.Address, err))
			allTransient = allTransient && provider.IsTransient(err)
			if d.failures != nil {
				_ = d.failures.HandleAPIFailure(ctx, "notification_"+notificationType, err, map[string]any{
					"notification_id": item.ID,
					"request_id":      item.RequestID,
				}, nil)
			}
			continue
		}
		d.metrics.IncNotificationSent(notificationType)
	}

	if len(failures) == 0 {
		if err := d.queue.UpdateStatus(ctx, item.ID, domain.QueueStatusCompleted, ""); err != nil {
			logger.Error("failed to mark notification completed", zap.Error(err))
		}
		return
	}

	errMsg := truncate(strings.Join(failures, "; "), maxErrorMessageLength)
	retry := allTransient && len(failures) == len(item.Recipients) && item.Attempts+2 < domain.MaxNotificationAttempts
	next, reason := domain.QueueStatusFailed, "permanent_error"
	switch {
	case retry:
		next, reason = domain.QueueStatusPending, "retry_scheduled"
	case allTransient:
		reason = "retry_exhausted"
	}

	d.metrics.IncNotificationFailed(notificationType, reason)
	if err := d.queue.UpdateStatus(ctx, item.ID, next, errMsg); err != nil {
		logger.Error("failed to record delivery failure", zap.Error(err))
		return
	}
	logger.Warn("notification delivery failed",
		zap.String("nextStatus", next.String()),
		zap.Int("failedRecipients", len(failures)),
		zap.String("error", errMsg),
	)
}

func (d *Dispatcher) render(item domain.NotificationQueueItem, recipient domain.Recipient) provider.Message {
	name := recipient.Name
	if name == "" {
		name = "there"
	}
	subject := fmt.Sprintf("[%s] New fitting request %s", d.siteName, item.RequestID)
	body := fmt.Sprintf(
		"Hello %s,\n\nA customer needs a fitting quote for request %s.\nSubmit your quote with this access token:\n%s\n",
		name, item.RequestID, recipient.QuoteToken,
	)
	if item.NotificationType == domain.NotificationTypeWhatsApp {
		subject = ""
		body = fmt.Sprintf("New fitting request %s. Quote token: %s", item.RequestID, recipient.QuoteToken)
	}

	return provider.Message{
		RequestID: item.RequestID,
		Type:      item.NotificationType,
		To:        recipient.Address,
		Subject:   subject,
		Body:      body,
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
