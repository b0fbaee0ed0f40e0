package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/kursadbilgin/fitting-request/internal/cache"
	"github.com/kursadbilgin/fitting-request/internal/domain"
	"github.com/kursadbilgin/fitting-request/internal/observability"
	"github.com/kursadbilgin/fitting-request/internal/repository"
	"github.com/kursadbilgin/fitting-request/internal/security"
	"github.com/kursadbilgin/fitting-request/internal/validator"
	"go.uber.org/zap"
)

type QuoteService struct {
	requests  repository.RequestRepository
	quotes    repository.QuoteRepository
	validator QuoteValidator
	security  Security
	cache     ReferenceCache
	settings  SettingsProvider
	logger    *zap.Logger
}

func NewQuoteService(
	requests repository.RequestRepository,
	quotes repository.QuoteRepository,
	quoteValidator QuoteValidator,
	sec Security,
	referenceCache ReferenceCache,
	settingsProvider SettingsProvider,
	logger *zap.Logger,
) (*QuoteService, error) {
	if requests == nil || quotes == nil {
		return nil, fmt.Errorf("request and quote repositories are required")
	}
	if quoteValidator == nil {
		return nil, fmt.Errorf("quote validator is required")
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

	return &QuoteService{
		requests:  requests,
		quotes:    quotes,
		validator: quoteValidator,
		security:  sec,
		cache:     referenceCache,
		settings:  settingsProvider,
		logger:    logger,
	}, nil
}

// Submit records a garage's quote. The quote link token is consumed before
// the insert so a replayed link can never write.
func (s *QuoteService) Submit(ctx context.Context, form validator.Form) (*domain.Quote, error) {
	if err := checkRateLimit(ctx, s.security, security.ActionQuoteSubmission); err != nil {
		return nil, err
	}
	if !s.settings.Get(ctx).EnableQuoteSystem {
		return nil, fmt.Errorf("%w: quote submissions are disabled", domain.ErrForbidden)
	}

	res := s.validator.ValidateQuote(ctx, form)
	if !res.IsValid {
		return nil, &ValidationError{Fields: res.Errors}
	}
	data := res.Data

	req, err := s.requests.GetByRequestID(ctx, data.RequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load request: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("request %s: %w", data.RequestID, domain.ErrNotFound)
	}
	if req.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: request %s is %s", domain.ErrConflict, req.RequestID, req.Status)
	}

	if _, ok := s.security.ValidateToken(ctx, data.Token, data.Claims); !ok {
		return nil, &ValidationError{Fields: map[string]string{validator.FieldToken: "Access token expired or invalid"}}
	}

	quote := &domain.Quote{
		RequestID:     data.RequestID,
		GarageID:      data.GarageID,
		QuoteAmount:   data.QuoteAmount,
		EstimatedTime: data.EstimatedTime,
		Notes:         data.Notes,
	}
	if garage := s.cache.GarageInfo(ctx, data.GarageID); garage != nil {
		quote.GarageName = garage.Name
	}

	if _, err := s.quotes.Insert(ctx, quote); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("garage %d already quoted request %s: %w", data.GarageID, data.RequestID, err)
		}
		return nil, fmt.Errorf("failed to store quote: %w", err)
	}

	logger := observability.WithContextLogger(s.logger, ctx)
	if req.Status == domain.RequestStatusPending || req.Status == domain.RequestStatusSent {
		if err := s.requests.UpdateStatus(ctx, req.RequestID, domain.RequestStatusQuotesReceived, "First quote received"); err != nil {
			logger.Error("failed to mark request as quoted", zap.String("requestId", req.RequestID), zap.Error(err))
		}
	}

	s.cache.InvalidateRelated(ctx, cache.CategoryRequests)
	logger.Info("quote submitted",
		zap.String("requestId", quote.RequestID),
		zap.Uint("garageId", quote.GarageID),
		zap.Float64("amount", quote.QuoteAmount),
	)
	return quote, nil
}
