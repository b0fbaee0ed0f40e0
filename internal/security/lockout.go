package security

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	LockoutThreshold = 5
	lockoutWindow    = 15 * time.Minute
	failedLoginKey   = "failed_login_"
)

// LogFailedLogin records a failed login for ip. Reaching the threshold only
// reports a lockout incident; it never blocks the login itself.
func (s *Service) LogFailedLogin(ctx context.Context, username, ip, userAgent string) {
	s.reportIncident(ctx, "failed_login_attempt",
		fmt.Sprintf("Failed login attempt for username: %s", username),
		map[string]any{"username": username, "ip": ip, "user_agent": userAgent},
	)

	attempts, err := s.store.Incr(ctx, failedLoginKey+ip, lockoutWindow)
	if err != nil {
		s.logger.Warn("failed to count failed login", zap.String("ip", ip), zap.Error(err))
		return
	}

	if attempts >= LockoutThreshold {
		s.reportIncident(ctx, "ip_lockout",
			fmt.Sprintf("IP address locked out after %d failed login attempts", attempts),
			map[string]any{"ip": ip},
		)
	}
}

func (s *Service) IsLockedOut(ctx context.Context, ip string) bool {
	var attempts int64
	found, err := s.store.Get(ctx, failedLoginKey+ip, &attempts)
	if err != nil {
		s.logger.Warn("failed to read failed login counter", zap.String("ip", ip), zap.Error(err))
		return false
	}
	return found && attempts >= LockoutThreshold
}
