package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/kursadbilgin/fitting-request/internal/domain"
	"github.com/kursadbilgin/fitting-request/internal/observability"
	"github.com/kursadbilgin/fitting-request/internal/security"
	"github.com/kursadbilgin/fitting-request/internal/validator"
	"go.uber.org/zap"
)

// LicenseField is the optional trade license attachment of a registration.
const LicenseField = "trade_license"

type GarageStore interface {
	CreateGarage(ctx context.Context, g *domain.Garage) (uint, error)
}

type GarageCache interface {
	InvalidateGarage(ctx context.Context, garageID uint, emirate domain.Emirate)
}

type GarageService struct {
	garages   GarageStore
	validator GarageValidator
	security  Security
	cache     GarageCache
	logger    *zap.Logger
}

func NewGarageService(garages GarageStore, garageValidator GarageValidator, sec Security, garageCache GarageCache, logger *zap.Logger) (*GarageService, error) {
	if garages == nil {
		return nil, fmt.Errorf("garage store is required")
	}
	if garageValidator == nil {
		return nil, fmt.Errorf("garage validator is required")
	}
	if sec == nil {
		return nil, fmt.Errorf("security service is required")
	}
	if garageCache == nil {
		return nil, fmt.Errorf("garage cache is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GarageService{
		garages:   garages,
		validator: garageValidator,
		security:  sec,
		cache:     garageCache,
		logger:    logger,
	}, nil
}

// Register creates an active garage. The license file, when sent, must pass
// the upload checks; storing it is left to the host.
func (s *GarageService) Register(ctx context.Context, form validator.Form, license validator.FileUpload) (*domain.Garage, error) {
	if err := checkRateLimit(ctx, s.security, security.ActionFormSubmission); err != nil {
		return nil, err
	}

	res := s.validator.ValidateGarageRegistration(ctx, form)
	if _, blocked := res.Errors[validator.GeneralErrorKey]; blocked {
		return nil, &ValidationError{Fields: res.Errors}
	}
	fields := res.Errors
	if file := s.validator.ValidateFileUpload(ctx, license, 0); !file.IsValid {
		if fields == nil {
			fields = make(map[string]string)
		}
		fields[LicenseField] = strings.Join(file.Errors, "; ")
	}
	if !res.IsValid || len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	garage := &domain.Garage{
		Name:          res.Data.Name,
		Email:         res.Data.Email,
		WhatsApp:      res.Data.WhatsApp,
		Emirate:       res.Data.Emirate,
		Address:       res.Data.Address,
		ContactPerson: res.Data.ContactPerson,
		Services:      res.Data.Services,
		Status:        domain.GarageStatusActive,
	}
	id, err := s.garages.CreateGarage(ctx, garage)
	if err != nil {
		return nil, fmt.Errorf("failed to register garage: %w", err)
	}
	garage.ID = id

	s.cache.InvalidateGarage(ctx, id, garage.Emirate)
	observability.WithContextLogger(s.logger, ctx).Info("garage registered",
		zap.Uint("garageId", id),
		zap.String("emirate", garage.Emirate.String()),
	)
	return garage, nil
}
