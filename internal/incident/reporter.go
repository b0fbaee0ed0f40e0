package incident

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/kursadbilgin/fitting-request/internal/domain"
	"github.com/kursadbilgin/fitting-request/internal/observability"
	"github.com/kursadbilgin/fitting-request/internal/provider"
	"github.com/kursadbilgin/fitting-request/internal/repository"
	"go.uber.org/zap"
)

const (
	DefaultPerformanceThreshold = 2 * time.Second
	stackDepth                  = 8
)

// Logger is the process-wide sink for application errors.
type Logger interface {
	Log(ctx context.Context, message string, details map[string]any, severity domain.Severity)
}

type Store interface {
	Create(ctx context.Context, entry *domain.ErrorLogEntry) (uint, error)
	MarkResolved(ctx context.Context, ids []uint) (int64, error)
	Statistics(ctx context.Context, days int) (*repository.ErrorStatistics, error)
}

// Reporter writes errors to zap and the error log table and mails the admin
// about critical errors and security incidents.
type Reporter struct {
	store      Store
	mailer     provider.Mailer
	adminEmail string
	siteName   string
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

func NewReporter(store Store, mailer provider.Mailer, adminEmail, siteName string, logger *zap.Logger) (*Reporter, error) {
	if store == nil {
		return nil, fmt.Errorf("error log store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if mailer == nil {
		mailer = provider.NewLogMailer(logger)
	}
	return &Reporter{
		store:      store,
		mailer:     mailer,
		adminEmail: adminEmail,
		siteName:   siteName,
		logger:     logger,
		now:        time.Now,
	}, nil
}

func (r *Reporter) SetMetrics(metrics *observability.Metrics) {
	if r == nil {
		return
	}
	r.metrics = metrics
}

// Log records message at severity. Critical entries trigger an alert mail.
func (r *Reporter) Log(ctx context.Context, message string, details map[string]any, severity domain.Severity) {
	r.record(ctx, message, details, severity)
	if severity == domain.SeverityCritical {
		r.sendCriticalAlert(ctx, message, details)
	}
}

// LogValidationError records a failed field rule at warning severity.
func (r *Reporter) LogValidationError(ctx context.Context, field, value, rule string) {
	r.Log(ctx,
		fmt.Sprintf("Validation failed for field '%s' with value '%s' against rule '%s'", field, value, rule),
		map[string]any{
			"field": field,
			"value": value,
			"rule":  rule,
			"type":  "validation_error",
		},
		domain.SeverityWarning,
	)
}

// LogSecurityIncident records an incident at critical severity and sends one
// security alert.
func (r *Reporter) LogSecurityIncident(ctx context.Context, incidentType, description string, details map[string]any) {
	merged := mergeDetails(details, map[string]any{
		"incident_type": incidentType,
		"type":          "security_incident",
	})
	r.record(ctx, fmt.Sprintf("Security incident: %s - %s", incidentType, description), merged, domain.SeverityCritical)
	r.sendSecurityAlert(ctx, incidentType, description, details)
}

// LogPerformanceIssue records operations slower than threshold. A zero
// threshold uses DefaultPerformanceThreshold.
func (r *Reporter) LogPerformanceIssue(ctx context.Context, operation string, duration, threshold time.Duration, details map[string]any) {
	if threshold <= 0 {
		threshold = DefaultPerformanceThreshold
	}
	if duration <= threshold {
		return
	}
	r.Log(ctx,
		fmt.Sprintf("Performance issue: %s took %.2f seconds (threshold: %.2fs)", operation, duration.Seconds(), threshold.Seconds()),
		mergeDetails(details, map[string]any{
			"operation": operation,
			"duration":  duration.Seconds(),
			"threshold": threshold.Seconds(),
			"type":      "performance_issue",
		}),
		domain.SeverityWarning,
	)
}

// HandleAPIFailure logs a failed outbound call and runs fallback when given.
// A failing fallback is logged at error severity and its error returned.
func (r *Reporter) HandleAPIFailure(ctx context.Context, service string, callErr error, details map[string]any, fallback func(context.Context) error) error {
	r.Log(ctx,
		fmt.Sprintf("API failure for service: %s - %v", service, callErr),
		mergeDetails(details, map[string]any{"service": service}),
		domain.SeverityWarning,
	)
	if fallback == nil {
		return callErr
	}

	if err := fallback(ctx); err != nil {
		r.Log(ctx,
			fmt.Sprintf("Fallback also failed for service: %s - %v", service, err),
			map[string]any{"service": service},
			domain.SeverityError,
		)
		return err
	}
	return nil
}

func (r *Reporter) Statistics(ctx context.Context, days int) (*repository.ErrorStatistics, error) {
	if days <= 0 {
		days = 7
	}
	return r.store.Statistics(ctx, days)
}

func (r *Reporter) MarkResolved(ctx context.Context, ids []uint) (int64, error) {
	return r.store.MarkResolved(ctx, ids)
}

func (r *Reporter) record(ctx context.Context, message string, details map[string]any, severity domain.Severity) {
	if !severity.IsValid() {
		severity = domain.SeverityError
	}
	r.metrics.IncIncident(severity.String())

	logger := observability.WithContextLogger(r.logger, ctx)
	fields := []zap.Field{zap.String("severity", severity.String())}
	if len(details) > 0 {
		fields = append(fields, zap.Any("context", details))
	}
	switch severity {
	case domain.SeverityInfo:
		logger.Info(message, fields...)
	case domain.SeverityWarning:
		logger.Warn(message, fields...)
	default:
		logger.Error(message, fields...)
	}

	entry := &domain.ErrorLogEntry{
		Message:    message,
		Context:    details,
		Severity:   severity,
		StackTrace: stackSummary(3),
	}
	if _, err := r.store.Create(ctx, entry); err != nil {
		r.logger.Error("error log write failed",
			zap.String("originalMessage", message),
			zap.Error(err),
		)
	}
}

func (r *Reporter) sendCriticalAlert(ctx context.Context, message string, details map[string]any) {
	actor, _ := observability.ActorFromContext(ctx)

	var body strings.Builder
	body.WriteString("A critical error has occurred in the Fitting Request System:\n\n")
	fmt.Fprintf(&body, "Error Message: %s\n", message)
	fmt.Fprintf(&body, "Timestamp: %s\n", r.now().UTC().Format(time.DateTime))
	fmt.Fprintf(&body, "User Agent: %s\n", orNA(actor.UserAgent))
	writeDetails(&body, details)
	body.WriteString("\nPlease check the admin dashboard for more details.")

	subject := fmt.Sprintf("[%s] Critical Error Alert - Fitting Request System", r.siteName)
	r.sendAlert(ctx, subject, body.String())
}

func (r *Reporter) sendSecurityAlert(ctx context.Context, incidentType, description string, details map[string]any) {
	actor, _ := observability.ActorFromContext(ctx)

	var body strings.Builder
	body.WriteString("A security incident has been detected:\n\n")
	fmt.Fprintf(&body, "Incident Type: %s\n", incidentType)
	fmt.Fprintf(&body, "Description: %s\n", description)
	fmt.Fprintf(&body, "Timestamp: %s\n", r.now().UTC().Format(time.DateTime))
	fmt.Fprintf(&body, "IP Address: %s\n", orNA(actor.IP))
	fmt.Fprintf(&body, "User Agent: %s\n", orNA(actor.UserAgent))
	writeDetails(&body, details)
	body.WriteString("\nImmediate action may be required.")

	subject := fmt.Sprintf("[%s] SECURITY ALERT - %s", r.siteName, incidentType)
	r.sendAlert(ctx, subject, body.String())
}

// sendAlert never fails the caller; mail errors are logged and dropped.
func (r *Reporter) sendAlert(ctx context.Context, subject, body string) {
	if r.adminEmail == "" {
		r.logger.Warn("alert skipped, admin email not configured", zap.String("subject", subject))
		return
	}
	if err := r.mailer.SendMail(ctx, r.adminEmail, subject, body); err != nil {
		r.logger.Error("alert mail failed",
			zap.String("subject", subject),
			zap.Error(err),
		)
	}
}

func writeDetails(b *strings.Builder, details map[string]any) {
	if len(details) == 0 {
		return
	}
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteString("\nContext:\n")
	for _, k := range keys {
		fmt.Fprintf(b, "  %s: %v\n", k, details[k])
	}
}

func mergeDetails(base, extra map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func orNA(value string) string {
	if value == "" {
		return "N/A"
	}
	return value
}

// stackSummary lists the calling frames as "function file:line".
func stackSummary(skip int) string {
	pcs := make([]uintptr, stackDepth)
	n := runtime.Callers(skip+1, pcs)
	if n == 0 {
		return ""
	}

	frames := runtime.CallersFrames(pcs[:n])
	lines := make([]string, 0, n)
	for {
		frame, more := frames.Next()
		lines = append(lines, fmt.Sprintf("%s %s:%d", frame.Function, frame.File, frame.Line))
		if !more {
			break
		}
	}
	return strings.Join(lines, "\n")
}
