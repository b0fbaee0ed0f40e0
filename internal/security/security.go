package security

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"time"

	"github.com/kursadbilgin/fitting-request/internal/observability"
	"github.com/kursadbilgin/fitting-request/internal/ratelimit"
	"go.uber.org/zap"
	"golang.org/x/crypto/hkdf"
)

// Store is the short-lived key-value store used for token nonces and
// failed-login counters.
type Store interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// OptionStore is the durable site options store.
type OptionStore interface {
	Get(ctx context.Context, name string) (string, bool, error)
	Set(ctx context.Context, name, value string) error
}

// IncidentLogger receives security incidents.
type IncidentLogger interface {
	LogSecurityIncident(ctx context.Context, incidentType, message string, details map[string]any)
}

type Service struct {
	limiter   ratelimit.Limiter
	store     Store
	options   OptionStore
	incidents IncidentLogger
	policies  map[string]Policy
	tokenKey  []byte
	csrfKey   []byte
	logger    *zap.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

func NewService(
	secret string,
	limiter ratelimit.Limiter,
	store Store,
	options OptionStore,
	incidents IncidentLogger,
	logger *zap.Logger,
) (*Service, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("site secret must be at least 16 characters")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if store == nil {
		return nil, fmt.Errorf("security store is required")
	}
	if options == nil {
		return nil, fmt.Errorf("option store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	tokenKey, err := deriveKey(secret, "fitting-request-token")
	if err != nil {
		return nil, err
	}
	csrfKey, err := deriveKey(secret, "fitting-request-csrf")
	if err != nil {
		return nil, err
	}

	return &Service{
		limiter:   limiter,
		store:     store,
		options:   options,
		incidents: incidents,
		policies:  DefaultPolicies(),
		tokenKey:  tokenKey,
		csrfKey:   csrfKey,
		logger:    logger,
		now:       time.Now,
	}, nil
}

func (s *Service) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// SetIncidentLogger replaces the incident sink. The incident reporter and the
// security service reference each other, so one side is wired late.
func (s *Service) SetIncidentLogger(incidents IncidentLogger) {
	if s == nil {
		return
	}
	s.incidents = incidents
}

func (s *Service) reportIncident(ctx context.Context, incidentType, message string, details map[string]any) {
	if s.incidents == nil {
		s.logger.Warn("security incident", zap.String("type", incidentType), zap.String("message", message))
		return
	}
	s.incidents.LogSecurityIncident(ctx, incidentType, message, details)
}

func deriveKey(secret, info string) ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("failed to derive %s key: %w", info, err)
	}
	return key, nil
}
