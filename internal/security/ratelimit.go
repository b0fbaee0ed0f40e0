package security

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Rate-limited actions.
const (
	ActionFormSubmission  = "form_submission"
	ActionStatusCheck     = "status_check"
	ActionQuoteSubmission = "quote_submission"
)

type Policy struct {
	Limit  int
	Window time.Duration
}

func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		ActionFormSubmission:  {Limit: 5, Window: 5 * time.Minute},
		ActionStatusCheck:     {Limit: 20, Window: 5 * time.Minute},
		ActionQuoteSubmission: {Limit: 10, Window: 10 * time.Minute},
	}
}

// CheckRateLimit applies the policy for action to identifier. Actions without
// a policy are always allowed.
func (s *Service) CheckRateLimit(ctx context.Context, identifier, action string) (bool, error) {
	policy, ok := s.policies[action]
	if !ok {
		return true, nil
	}

	allowed, err := s.limiter.CheckRateLimit(ctx, identifier, action, policy.Limit, policy.Window)
	if err != nil {
		return false, fmt.Errorf("rate limit check for %s failed: %w", action, err)
	}
	s.metrics.IncRateLimitDecision(action, allowed)
	if !allowed {
		s.logger.Info("rate limit exceeded",
			zap.String("action", action),
			zap.String("identifier", identifier),
		)
	}
	return allowed, nil
}
