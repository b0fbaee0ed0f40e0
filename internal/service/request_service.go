package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/fitting-request/internal/cache"
	"github.com/kursadbilgin/fitting-request/internal/domain"
	"github.com/kursadbilgin/fitting-request/internal/observability"
	"github.com/kursadbilgin/fitting-request/internal/repository"
	"github.com/kursadbilgin/fitting-request/internal/security"
	"github.com/kursadbilgin/fitting-request/internal/validator"
	"go.uber.org/zap"
)

const requestIDPrefix = "FR-"

type RequestService struct {
	requests      repository.RequestRepository
	quotes        repository.QuoteRepository
	notifications repository.NotificationQueueRepository
	validator     RequestValidator
	feedback      FeedbackValidator
	security      Security
	cache         ReferenceCache
	settings      SettingsProvider
	logger        *zap.Logger
	metrics       *observability.Metrics
	newID         func() string
}

// SubmitResult is returned to the customer after a successful submission.
type SubmitResult struct {
	RequestID       string               `json:"request_id"`
	Status          domain.RequestStatus `json:"status"`
	GaragesNotified int                  `json:"garages_notified"`
}

// RequestView is a request with its quotes and audit trail.
type RequestView struct {
	Request *domain.FittingRequest
	Quotes  []domain.Quote
	History []domain.StatusLogEntry
}

func NewRequestService(
	requests repository.RequestRepository,
	quotes repository.QuoteRepository,
	notifications repository.NotificationQueueRepository,
	requestValidator RequestValidator,
	feedbackValidator FeedbackValidator,
	sec Security,
	referenceCache ReferenceCache,
	settingsProvider SettingsProvider,
	logger *zap.Logger,
) (*RequestService, error) {
	if requests == nil {
		return nil, fmt.Errorf("request repository is required")
	}
	if quotes == nil {
		return nil, fmt.Errorf("quote repository is required")
	}
	if notifications == nil {
		return nil, fmt.Errorf("notification queue repository is required")
	}
	if requestValidator == nil {
		return nil, fmt.Errorf("request validator is required")
	}
	if feedbackValidator == nil {
		return nil, fmt.Errorf("feedback validator is required")
	}
	if sec == nil {
		return nil, fmt.Errorf("security service is required")
	}
	if referenceCache == nil {
		return nil, fmt.Errorf("reference cache is required")
	}
	if settingsProvider == nil {
		return nil, fmt.Errorf("settings provider is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RequestService{
		requests:      requests,
		quotes:        quotes,
		notifications: notifications,
		validator:     requestValidator,
		feedback:      feedbackValidator,
		security:      sec,
		cache:         referenceCache,
		settings:      settingsProvider,
		logger:        logger,
		newID:         func() string { return requestIDPrefix + uuid.NewString() },
	}, nil
}

func (s *RequestService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Submit validates and stores a customer request, then queues notifications
// to the garages of the selected emirate.
func (s *RequestService) Submit(ctx context.Context, form validator.Form) (*SubmitResult, error) {
	if err := checkRateLimit(ctx, s.security, security.ActionFormSubmission); err != nil {
		return nil, err
	}

	res := s.validator.ValidateRequest(ctx, form)
	if !res.IsValid {
		return nil, &ValidationError{Fields: res.Errors}
	}

	logger := observability.WithContextLogger(s.logger, ctx)
	cfg := s.settings.Get(ctx)

	req := &domain.FittingRequest{
		RequestID:        s.newID(),
		ProductID:        res.Data.ProductID,
		CarMake:          res.Data.CarMake,
		CarModel:         res.Data.CarModel,
		CustomerEmail:    res.Data.CustomerEmail,
		CustomerWhatsApp: res.Data.CustomerWhatsApp,
		SelectedEmirate:  res.Data.Emirate,
		Status:           domain.RequestStatusPending,
	}
	if _, err := s.requests.Insert(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to store request: %w", err)
	}
	if err := s.requests.LogStatusChange(ctx, req.RequestID, "", domain.RequestStatusPending, "Request submitted"); err != nil {
		logger.Warn("failed to log initial request status", zap.String("requestId", req.RequestID), zap.Error(err))
	}

	notified := s.notifyGarages(ctx, req, cfg.MaxGaragesPerRequest, cfg.EnableEmailNotifications, cfg.EnableWhatsAppNotifications, cfg.RequestTimeout())

	result := &SubmitResult{RequestID: req.RequestID, Status: domain.RequestStatusPending, GaragesNotified: notified}
	if notified > 0 {
		if err := s.requests.IncrementGaragesNotified(ctx, req.RequestID, notified); err != nil {
			logger.Error("failed to record notified garages", zap.String("requestId", req.RequestID), zap.Error(err))
		}
		note := fmt.Sprintf("Notified %d garages", notified)
		if err := s.requests.UpdateStatus(ctx, req.RequestID, domain.RequestStatusSent, note); err != nil {
			logger.Error("failed to mark request as sent", zap.String("requestId", req.RequestID), zap.Error(err))
		} else {
			result.Status = domain.RequestStatusSent
		}
	}

	s.cache.InvalidateRelated(ctx, cache.CategoryRequests)
	s.metrics.IncRequestSubmitted(req.SelectedEmirate.String())

	logger.Info("fitting request submitted",
		zap.String("requestId", req.RequestID),
		zap.String("emirate", req.SelectedEmirate.String()),
		zap.Int("garagesNotified", notified),
	)
	return result, nil
}

// notifyGarages enqueues one email and one WhatsApp item for the request and
// returns how many garages ended up in at least one enqueued item.
func (s *RequestService) notifyGarages(
	ctx context.Context,
	req *domain.FittingRequest,
	maxGarages int,
	emailEnabled, whatsAppEnabled bool,
	tokenTTL time.Duration,
) int {
	if !emailEnabled && !whatsAppEnabled {
		return 0
	}

	garages := s.cache.GaragesByEmirate(ctx, req.SelectedEmirate)
	if maxGarages > 0 && len(garages) > maxGarages {
		garages = garages[:maxGarages]
	}

	var emails, whatsApps []domain.Recipient
	for _, garage := range garages {
		token, err := s.security.GenerateToken(validator.QuoteClaims{RequestID: req.RequestID, GarageID: garage.ID}, tokenTTL)
		if err != nil {
			s.logger.Error("failed to issue quote token", zap.Uint("garageId", garage.ID), zap.Error(err))
			continue
		}
		if emailEnabled && garage.Email != "" {
			emails = append(emails, domain.Recipient{GarageID: garage.ID, Name: garage.Name, Address: garage.Email, QuoteToken: token})
		}
		if whatsAppEnabled && garage.WhatsApp != "" {
			whatsApps = append(whatsApps, domain.Recipient{GarageID: garage.ID, Name: garage.Name, Address: garage.WhatsApp, QuoteToken: token})
		}
	}

	reached := make(map[uint]struct{})
	s.enqueue(ctx, req.RequestID, domain.NotificationTypeEmail, emails, reached)
	s.enqueue(ctx, req.RequestID, domain.NotificationTypeWhatsApp, whatsApps, reached)
	return len(reached)
}

func (s *RequestService) enqueue(
	ctx context.Context,
	requestID string,
	notificationType domain.NotificationType,
	recipients []domain.Recipient,
	reached map[uint]struct{},
) {
	if len(recipients) == 0 {
		return
	}

	item := &domain.NotificationQueueItem{
		RequestID:        requestID,
		NotificationType: notificationType,
		Recipients:       recipients,
		Priority:         domain.DefaultNotificationPriority,
	}
	if _, err := s.notifications.Enqueue(ctx, item); err != nil {
		s.logger.Error("failed to enqueue garage notification",
			zap.String("requestId", requestID),
			zap.String("type", notificationType.String()),
			zap.Error(err),
		)
		return
	}
	for _, r := range recipients {
		reached[r.GarageID] = struct{}{}
	}
}

// Status returns the request with its quotes for the status page.
func (s *RequestService) Status(ctx context.Context, requestID string) (*RequestView, error) {
	if err := checkRateLimit(ctx, s.security, security.ActionStatusCheck); err != nil {
		return nil, err
	}

	req, err := s.requests.GetByRequestID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load request: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("request %s: %w", requestID, domain.ErrNotFound)
	}

	quotes, err := s.quotes.ListForRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load quotes: %w", err)
	}
	history, err := s.requests.StatusHistory(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load status history: %w", err)
	}

	return &RequestView{Request: req, Quotes: quotes, History: history}, nil
}

// ChangeStatus is the admin status transition.
func (s *RequestService) ChangeStatus(ctx context.Context, requestID, status, notes string) error {
	if err := requireCapability(ctx, CapabilityManageRequests); err != nil {
		return err
	}

	next, err := domain.ParseRequestStatusFromString(status)
	if err != nil {
		return err
	}
	if err := s.requests.UpdateStatus(ctx, requestID, next, notes); err != nil {
		return err
	}

	s.cache.InvalidateRelated(ctx, cache.CategoryRequests)
	observability.WithContextLogger(s.logger, ctx).Info("request status changed",
		zap.String("requestId", requestID),
		zap.String("status", next.String()),
	)
	return nil
}

// List is the admin listing with optional filters.
func (s *RequestService) List(ctx context.Context, params repository.RequestListParams) ([]domain.FittingRequest, int64, error) {
	if err := requireCapability(ctx, CapabilityManageRequests); err != nil {
		return nil, 0, err
	}
	return s.requests.List(ctx, params)
}

// Feedback records a customer's rating in the request's audit trail.
func (s *RequestService) Feedback(ctx context.Context, requestID string, form validator.Form) error {
	if !s.settings.Get(ctx).EnableFeedbackSystem {
		return fmt.Errorf("%w: feedback is disabled", domain.ErrForbidden)
	}
	if err := checkRateLimit(ctx, s.security, security.ActionStatusCheck); err != nil {
		return err
	}

	input := validator.Form{validator.FieldRequestID: requestID}
	for k, v := range form {
		if k != validator.FieldRequestID {
			input[k] = v
		}
	}
	res := s.feedback.ValidateFeedback(ctx, input)
	if !res.IsValid {
		return &ValidationError{Fields: res.Errors}
	}

	req, err := s.requests.GetByRequestID(ctx, res.Data.RequestID)
	if err != nil {
		return fmt.Errorf("failed to load request: %w", err)
	}
	if req == nil {
		return fmt.Errorf("request %s: %w", res.Data.RequestID, domain.ErrNotFound)
	}

	note := fmt.Sprintf("Customer feedback: %d/5", res.Data.Rating)
	if res.Data.Comment != "" {
		note += " - " + res.Data.Comment
	}
	if err := s.requests.LogStatusChange(ctx, req.RequestID, req.Status, req.Status, note); err != nil {
		return fmt.Errorf("failed to record feedback: %w", err)
	}
	return nil
}
