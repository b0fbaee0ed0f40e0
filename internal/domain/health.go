package domain

import "time"

// HealthState is the tri-state outcome of a store health check.
type HealthState string

const (
	HealthHealthy HealthState = "healthy"
	HealthWarning HealthState = "warning"
	HealthError   HealthState = "error"
)

type HealthReport struct {
	Status    HealthState `json:"status"`
	Message   string      `json:"message"`
	CheckedAt time.Time   `json:"checked_at"`
}

// RequestStatistics aggregates request activity over a trailing window.
type RequestStatistics struct {
	Days                    int     `json:"days"`
	TotalRequests           int64   `json:"total_requests"`
	PendingRequests         int64   `json:"pending_requests"`
	CompletedRequests       int64   `json:"completed_requests"`
	TotalQuotes             int64   `json:"total_quotes"`
	AverageQuotesPerRequest float64 `json:"avg_quotes_per_request"`
}

// CleanupResult reports how many rows each retention rule removed.
type CleanupResult struct {
	Requests      int64 `json:"requests"`
	ErrorLogs     int64 `json:"error_logs"`
	RateLimits    int64 `json:"rate_limits"`
	Notifications int64 `json:"notifications"`
}
