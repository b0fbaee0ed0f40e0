package handler

import (
	"bytes"
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/fitting-request/internal/domain"
	"github.com/kursadbilgin/fitting-request/internal/observability"
	"github.com/kursadbilgin/fitting-request/internal/repository"
	"github.com/kursadbilgin/fitting-request/internal/security"
	"github.com/kursadbilgin/fitting-request/internal/service"
	"github.com/kursadbilgin/fitting-request/internal/settings"
	"github.com/kursadbilgin/fitting-request/internal/transport"
	"github.com/kursadbilgin/fitting-request/internal/validator"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const testAdminKey = "admin-secret-key"

type stubRequestService struct {
	submitFn       func(ctx context.Context, form validator.Form) (*service.SubmitResult, error)
	statusFn       func(ctx context.Context, requestID string) (*service.RequestView, error)
	changeStatusFn func(ctx context.Context, requestID, status, notes string) error
	listFn         func(ctx context.Context, params repository.RequestListParams) ([]domain.FittingRequest, int64, error)
	feedbackFn     func(ctx context.Context, requestID string, form validator.Form) error
}

func (s *stubRequestService) Submit(ctx context.Context, form validator.Form) (*service.SubmitResult, error) {
	if s.submitFn != nil {
		return s.submitFn(ctx, form)
	}
	return &service.SubmitResult{RequestID: "FR-1", Status: domain.RequestStatusPending}, nil
}

func (s *stubRequestService) Status(ctx context.Context, requestID string) (*service.RequestView, error) {
	if s.statusFn != nil {
		return s.statusFn(ctx, requestID)
	}
	return nil, domain.ErrNotFound
}

func (s *stubRequestService) ChangeStatus(ctx context.Context, requestID, status, notes string) error {
	if s.changeStatusFn != nil {
		return s.changeStatusFn(ctx, requestID, status, notes)
	}
	return nil
}

func (s *stubRequestService) List(ctx context.Context, params repository.RequestListParams) ([]domain.FittingRequest, int64, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return nil, 0, nil
}

func (s *stubRequestService) Feedback(ctx context.Context, requestID string, form validator.Form) error {
	if s.feedbackFn != nil {
		return s.feedbackFn(ctx, requestID, form)
	}
	return nil
}

type stubQuoteService struct {
	submitFn func(ctx context.Context, form validator.Form) (*domain.Quote, error)
}

func (s *stubQuoteService) Submit(ctx context.Context, form validator.Form) (*domain.Quote, error) {
	if s.submitFn != nil {
		return s.submitFn(ctx, form)
	}
	return &domain.Quote{ID: 1}, nil
}

type stubGarageService struct {
	registerFn func(ctx context.Context, form validator.Form, license validator.FileUpload) (*domain.Garage, error)
}

func (s *stubGarageService) Register(ctx context.Context, form validator.Form, license validator.FileUpload) (*domain.Garage, error) {
	if s.registerFn != nil {
		return s.registerFn(ctx, form, license)
	}
	return &domain.Garage{ID: 1, Status: domain.GarageStatusActive}, nil
}

type stubSettingsService struct {
	current settings.Settings
}

func (s *stubSettingsService) Get(ctx context.Context) settings.Settings { return s.current }

func (s *stubSettingsService) Update(ctx context.Context, overrides settings.Overrides) (settings.Settings, error) {
	s.current = s.current.Merge(overrides)
	return s.current, nil
}

type stubReference struct{}

func (stubReference) CarMakes(ctx context.Context) []string { return []string{"BMW", "Toyota"} }

func (stubReference) CarModels(ctx context.Context, carMake string) []domain.Vehicle {
	if carMake != "Toyota" {
		return nil
	}
	return []domain.Vehicle{{Make: "Toyota", Model: "Camry", YearFrom: 2018}}
}

func (stubReference) SearchVehicles(ctx context.Context, term string, limit int) []domain.Vehicle {
	if !strings.Contains("toyota camry", strings.ToLower(term)) || limit != 5 {
		return nil
	}
	return []domain.Vehicle{{Make: "Toyota", Model: "Camry", YearFrom: 2018}}
}

func (stubReference) ProductVehicles(ctx context.Context, productID uint) []domain.Vehicle {
	if productID != 42 {
		return nil
	}
	return []domain.Vehicle{{Make: "Toyota", Model: "Camry", YearFrom: 2018, YearTo: 2024}}
}

func (stubReference) ProductCompatible(ctx context.Context, productID uint, carMake, carModel string, year int) bool {
	return productID == 42 && carMake == "Toyota" && carModel == "Camry" && (year == 0 || year >= 2018)
}

func (stubReference) Emirates(ctx context.Context) []string { return []string{"dubai", "sharjah"} }

func (stubReference) RequestStatistics(ctx context.Context, days int) domain.RequestStatistics {
	return domain.RequestStatistics{Days: days, TotalRequests: 3}
}

type stubCSRF struct{}

func (stubCSRF) GenerateCSRF(action string) string { return "nonce-for-" + action }

type stubInspector struct {
	err error
}

func (s stubInspector) InspectRequest(ctx context.Context, uri, userAgent, ip string) error {
	return s.err
}

type stubLoginGuard struct {
	locked   bool
	failures []string
}

func (g *stubLoginGuard) IsLockedOut(ctx context.Context, ip string) bool { return g.locked }

func (g *stubLoginGuard) LogFailedLogin(ctx context.Context, username, ip, userAgent string) {
	g.failures = append(g.failures, username)
}

type stubErrorLog struct {
	resolved []uint
}

func (s *stubErrorLog) Statistics(ctx context.Context, days int) (*repository.ErrorStatistics, error) {
	return &repository.ErrorStatistics{Days: days, Total: 4}, nil
}

func (s *stubErrorLog) MarkResolved(ctx context.Context, ids []uint) (int64, error) {
	s.resolved = append(s.resolved, ids...)
	return int64(len(ids)), nil
}

type stubPerformance struct {
	mu         sync.Mutex
	operations []string
}

func (p *stubPerformance) LogPerformanceIssue(ctx context.Context, operation string, duration, threshold time.Duration, details map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.operations = append(p.operations, operation)
}

type stubIncidents struct {
	mu       sync.Mutex
	messages []string
	levels   []domain.Severity
}

func (s *stubIncidents) Log(ctx context.Context, message string, details map[string]any, severity domain.Severity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, message)
	s.levels = append(s.levels, severity)
}

type stubHealth struct {
	state domain.HealthState
}

func (h stubHealth) CheckHealth(ctx context.Context) domain.HealthReport {
	return domain.HealthReport{Status: h.state}
}

type testEnv struct {
	requests  *stubRequestService
	quotes    *stubQuoteService
	garages   *stubGarageService
	settings  *stubSettingsService
	logins    *stubLoginGuard
	errors    *stubErrorLog
	perf      *stubPerformance
	incidents *stubIncidents
	deps      Dependencies
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	hash, err := security.HashPassword(testAdminKey)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	env := &testEnv{
		requests:  &stubRequestService{},
		quotes:    &stubQuoteService{},
		garages:   &stubGarageService{},
		settings:  &stubSettingsService{current: settings.Defaults("admin@example.ae")},
		logins:    &stubLoginGuard{},
		errors:    &stubErrorLog{},
		perf:      &stubPerformance{},
		incidents: &stubIncidents{},
	}
	env.deps = Dependencies{
		Requests:     env.requests,
		Quotes:       env.quotes,
		Garages:      env.garages,
		Settings:     env.settings,
		Statistics:   stubReference{},
		Errors:       env.errors,
		Performance:  env.perf,
		Reference:    stubReference{},
		CSRF:         stubCSRF{},
		Inspector:    stubInspector{},
		Logins:       env.logins,
		Health:       stubHealth{state: domain.HealthHealthy},
		Incidents:    env.incidents,
		AdminKeyHash: hash,
		SQLDB:        sql.OpenDB(stubConnector{}),
		Redis:        newStubRedisClient(nil),
	}
	t.Cleanup(func() {
		_ = env.deps.SQLDB.Close()
		_ = env.deps.Redis.Close()
	})
	return env
}

func (e *testEnv) app(t *testing.T) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop(), nil)})
	if err := RegisterRoutes(app, e.deps); err != nil {
		t.Fatalf("RegisterRoutes() error = %v", err)
	}
	return app
}

func TestSubmitRequestParsesJSONForm(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	var gotForm validator.Form
	var gotActor observability.Actor
	env.requests.submitFn = func(ctx context.Context, form validator.Form) (*service.SubmitResult, error) {
		gotForm = form
		gotActor, _ = observability.ActorFromContext(ctx)
		return &service.SubmitResult{RequestID: "FR-abc", Status: domain.RequestStatusSent, GaragesNotified: 2}, nil
	}

	body := `{"product_id":42,"car_make":"Toyota","car_model":"Camry","emirate":"dubai","customer_email":"a@b.ae","subscribe":true,"extra":null}`
	resp, raw := performRequest(t, env.app(t), http.MethodPost, "/v1/requests", body, nil)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", resp.StatusCode, raw)
	}

	if gotForm["product_id"] != "42" {
		t.Fatalf("product_id = %q, want 42", gotForm["product_id"])
	}
	if gotForm["subscribe"] != "true" {
		t.Fatalf("subscribe = %q, want true", gotForm["subscribe"])
	}
	if _, ok := gotForm["extra"]; ok {
		t.Fatal("null values must be dropped")
	}
	if gotActor.UserAgent != "handler-test" {
		t.Fatalf("actor user agent = %q, want handler-test", gotActor.UserAgent)
	}

	var parsed map[string]any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["requestId"] != "FR-abc" || parsed["status"] != "sent" {
		t.Fatalf("response = %v", parsed)
	}
	if parsed["garagesNotified"] != float64(2) {
		t.Fatalf("garagesNotified = %v, want 2", parsed["garagesNotified"])
	}
}

func TestSubmitRequestParsesURLEncodedForm(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	var gotForm validator.Form
	env.requests.submitFn = func(ctx context.Context, form validator.Form) (*service.SubmitResult, error) {
		gotForm = form
		return &service.SubmitResult{RequestID: "FR-1", Status: domain.RequestStatusPending}, nil
	}

	headers := map[string]string{fiber.HeaderContentType: fiber.MIMEApplicationForm}
	resp, raw := performRequest(t, env.app(t), http.MethodPost, "/v1/requests", "car_make=BMW&emirate=sharjah", headers)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", resp.StatusCode, raw)
	}
	if gotForm["car_make"] != "BMW" || gotForm["emirate"] != "sharjah" {
		t.Fatalf("form = %v", gotForm)
	}
}

func TestSubmitRequestValidationErrors(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.requests.submitFn = func(ctx context.Context, form validator.Form) (*service.SubmitResult, error) {
		return nil, &service.ValidationError{Fields: map[string]string{"car_make": "Please select a car make"}}
	}

	resp, raw := performRequest(t, env.app(t), http.MethodPost, "/v1/requests", `{}`, nil)
	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422, body=%s", resp.StatusCode, raw)
	}
	if !strings.Contains(string(raw), "Please select a car make") {
		t.Fatalf("body = %s, want field message", raw)
	}

	resp, _ = performRequest(t, env.app(t), http.MethodPost, "/v1/requests", `{"broken"`, nil)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for malformed JSON", resp.StatusCode)
	}
}

func TestSubmitRequestRateLimited(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.requests.submitFn = func(ctx context.Context, form validator.Form) (*service.SubmitResult, error) {
		return nil, fmt.Errorf("%w: form_submission", domain.ErrRateLimited)
	}

	resp, _ := performRequest(t, env.app(t), http.MethodPost, "/v1/requests", `{}`, nil)
	if resp.StatusCode != fiber.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
}

func TestGetRequestHidesContactDetails(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.requests.statusFn = func(ctx context.Context, requestID string) (*service.RequestView, error) {
		if requestID != "FR-123" {
			return nil, fmt.Errorf("request %s: %w", requestID, domain.ErrNotFound)
		}
		return &service.RequestView{
			Request: &domain.FittingRequest{
				RequestID:       "FR-123",
				CarMake:         "Toyota",
				CustomerEmail:   "private@example.ae",
				SelectedEmirate: domain.EmirateDubai,
				Status:          domain.RequestStatusQuotesReceived,
			},
			Quotes: []domain.Quote{{ID: 5, RequestID: "FR-123", GarageName: "Al Quoz Motors", QuoteAmount: 450, Status: domain.QuoteStatusPending}},
			History: []domain.StatusLogEntry{
				{NewStatus: domain.RequestStatusPending, Notes: "Request submitted"},
			},
		}, nil
	}
	app := env.app(t)

	resp, raw := performRequest(t, app, http.MethodGet, "/v1/requests/FR-123", "", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, raw)
	}
	if strings.Contains(string(raw), "private@example.ae") {
		t.Fatalf("body leaks customer email: %s", raw)
	}

	var parsed requestStatusResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed.Request.Status != "quotes_received" {
		t.Fatalf("status = %s, want quotes_received", parsed.Request.Status)
	}
	if len(parsed.Quotes) != 1 || parsed.Quotes[0].GarageName != "Al Quoz Motors" {
		t.Fatalf("quotes = %+v", parsed.Quotes)
	}
	if len(parsed.History) != 1 {
		t.Fatalf("history = %+v", parsed.History)
	}

	resp, _ = performRequest(t, app, http.MethodGet, "/v1/requests/FR-missing", "", nil)
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestSubmitFeedbackPassesRequestID(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	var gotID string
	env.requests.feedbackFn = func(ctx context.Context, requestID string, form validator.Form) error {
		gotID = requestID
		if form["rating"] != "4" {
			t.Errorf("rating = %q, want 4", form["rating"])
		}
		return nil
	}

	resp, raw := performRequest(t, env.app(t), http.MethodPost, "/v1/requests/FR-9/feedback", `{"rating":4}`, nil)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", resp.StatusCode, raw)
	}
	if gotID != "FR-9" {
		t.Fatalf("request id = %q, want FR-9", gotID)
	}
}

func TestSubmitQuoteConflict(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.quotes.submitFn = func(ctx context.Context, form validator.Form) (*domain.Quote, error) {
		return nil, fmt.Errorf("failed to store quote: %w",
			domain.NewPersistenceError("insert quote", errors.New("UNIQUE constraint failed"), true))
	}

	resp, raw := performRequest(t, env.app(t), http.MethodPost, "/v1/quotes", `{"token":"t"}`, nil)
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	if strings.Contains(string(raw), "UNIQUE") {
		t.Fatalf("body leaks engine detail: %s", raw)
	}
}

func TestRegisterGarageMultipart(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	var gotForm validator.Form
	var gotLicense validator.FileUpload
	var gotContent []byte
	env.garages.registerFn = func(ctx context.Context, form validator.Form, license validator.FileUpload) (*domain.Garage, error) {
		gotForm = form
		gotLicense = license
		if license.Content != nil {
			gotContent, _ = io.ReadAll(license.Content)
		}
		return &domain.Garage{ID: 11, Name: form["garage_name"], Emirate: domain.EmirateAjman, Status: domain.GarageStatusActive}, nil
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	_ = writer.WriteField("garage_name", "Ajman Auto")
	_ = writer.WriteField("emirate", "ajman")
	part, err := writer.CreateFormFile(service.LicenseField, "license.pdf")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	_, _ = part.Write([]byte("%PDF-1.4 test"))
	_ = writer.Close()

	headers := map[string]string{fiber.HeaderContentType: writer.FormDataContentType()}
	resp, raw := performRequest(t, env.app(t), http.MethodPost, "/v1/garages", buf.String(), headers)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", resp.StatusCode, raw)
	}
	if gotForm["garage_name"] != "Ajman Auto" || gotForm["emirate"] != "ajman" {
		t.Fatalf("form = %v", gotForm)
	}
	if gotLicense.Name != "license.pdf" || gotLicense.Size != int64(len("%PDF-1.4 test")) {
		t.Fatalf("license = %+v", gotLicense)
	}
	if string(gotContent) != "%PDF-1.4 test" {
		t.Fatalf("license content = %q", gotContent)
	}
}

func TestRegisterGarageWithoutFile(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.garages.registerFn = func(ctx context.Context, form validator.Form, license validator.FileUpload) (*domain.Garage, error) {
		if license.Name != "" {
			t.Errorf("license name = %q, want empty", license.Name)
		}
		return &domain.Garage{ID: 2, Status: domain.GarageStatusActive}, nil
	}

	resp, raw := performRequest(t, env.app(t), http.MethodPost, "/v1/garages", `{"garage_name":"Sharjah Tyres"}`, nil)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", resp.StatusCode, raw)
	}
}

func TestRequestContextMiddleware(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	app := env.app(t)

	headers := map[string]string{fiber.HeaderXRequestID: "corr-123"}
	resp, _ := performRequest(t, app, http.MethodGet, "/v1/emirates", "", headers)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get(fiber.HeaderXRequestID); got != "corr-123" {
		t.Fatalf("X-Request-ID = %q, want corr-123", got)
	}
	if got := resp.Header.Get("X-Frame-Options"); got == "" {
		t.Fatal("security headers must be set")
	}

	resp, _ = performRequest(t, app, http.MethodGet, "/v1/emirates", "", nil)
	if resp.Header.Get(fiber.HeaderXRequestID) == "" {
		t.Fatal("a correlation id must be generated when none is sent")
	}

	env.deps.Inspector = stubInspector{err: fmt.Errorf("%w: suspicious pattern", domain.ErrSecurityCheck)}
	resp, _ = performRequest(t, env.app(t), http.MethodGet, "/v1/emirates", "", nil)
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("status = %d, want 403 for blocked request", resp.StatusCode)
	}
}

func TestRecoverReportsPanics(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	app := env.app(t)
	app.Get("/v1/crash", func(c *fiber.Ctx) error {
		panic("nil garage list")
	})

	resp, _ := performRequest(t, app, http.MethodGet, "/v1/crash", "", nil)
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}

	env.incidents.mu.Lock()
	defer env.incidents.mu.Unlock()
	if len(env.incidents.levels) != 1 || env.incidents.levels[0] != domain.SeverityCritical {
		t.Fatalf("incident levels = %v, want one critical", env.incidents.levels)
	}
	if !strings.Contains(env.incidents.messages[0], "nil garage list") {
		t.Fatalf("incident message = %q", env.incidents.messages[0])
	}
}

func TestRequestContextTrustedProxies(t *testing.T) {
	t.Parallel()

	var gotIP string
	env := newTestEnv(t)
	env.requests.submitFn = func(ctx context.Context, form validator.Form) (*service.SubmitResult, error) {
		actor, _ := observability.ActorFromContext(ctx)
		gotIP = actor.IP
		return &service.SubmitResult{RequestID: "FR-1", Status: domain.RequestStatusPending}, nil
	}
	headers := map[string]string{"X-Forwarded-For": "8.8.8.8"}

	performRequest(t, env.app(t), http.MethodPost, "/v1/requests", `{}`, headers)
	if gotIP == "8.8.8.8" {
		t.Fatal("forwarding headers from an untrusted peer must be ignored")
	}

	trusted, err := security.ParseTrustedProxies([]string{"0.0.0.0/0"})
	if err != nil {
		t.Fatalf("ParseTrustedProxies() error = %v", err)
	}
	env.deps.TrustedProxies = trusted
	performRequest(t, env.app(t), http.MethodPost, "/v1/requests", `{}`, headers)
	if gotIP != "8.8.8.8" {
		t.Fatalf("actor ip = %q, want 8.8.8.8 behind a trusted proxy", gotIP)
	}
}

func TestAdminAuth(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	var gotActor observability.Actor
	env.requests.listFn = func(ctx context.Context, params repository.RequestListParams) ([]domain.FittingRequest, int64, error) {
		gotActor, _ = observability.ActorFromContext(ctx)
		return []domain.FittingRequest{{RequestID: "FR-1", CustomerEmail: "c@example.ae", Status: domain.RequestStatusPending}}, 1, nil
	}
	app := env.app(t)

	resp, _ := performRequest(t, app, http.MethodGet, "/v1/admin/requests", "", nil)
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 without key", resp.StatusCode)
	}
	resp, _ = performRequest(t, app, http.MethodGet, "/v1/admin/requests", "", map[string]string{HeaderAdminKey: "wrong"})
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 with wrong key", resp.StatusCode)
	}
	if len(env.logins.failures) != 2 {
		t.Fatalf("failed logins = %d, want 2", len(env.logins.failures))
	}

	resp, raw := performRequest(t, app, http.MethodGet, "/v1/admin/requests", "", map[string]string{HeaderAdminKey: testAdminKey})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, raw)
	}
	if !gotActor.Can(service.CapabilityManageRequests) || !gotActor.Can(service.CapabilityManageOptions) {
		t.Fatalf("actor capabilities = %v", gotActor.Capabilities)
	}
	if !strings.Contains(string(raw), "c@example.ae") {
		t.Fatalf("admin listing must include contact details: %s", raw)
	}

	env.logins.locked = true
	resp, _ = performRequest(t, app, http.MethodGet, "/v1/admin/requests", "", map[string]string{HeaderAdminKey: testAdminKey})
	if resp.StatusCode != fiber.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429 when locked out", resp.StatusCode)
	}
}

func TestAdminDisabledWithoutKeyHash(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.deps.AdminKeyHash = ""

	resp, _ := performRequest(t, env.app(t), http.MethodGet, "/v1/admin/settings", "", map[string]string{HeaderAdminKey: testAdminKey})
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}

func TestAdminListParams(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	var gotParams repository.RequestListParams
	env.requests.listFn = func(ctx context.Context, params repository.RequestListParams) ([]domain.FittingRequest, int64, error) {
		gotParams = params
		return nil, 0, nil
	}
	app := env.app(t)
	auth := map[string]string{HeaderAdminKey: testAdminKey}

	resp, _ := performRequest(t, app, http.MethodGet, "/v1/admin/requests?status=sent&emirate=Dubai&page=2&pageSize=500", "", auth)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if gotParams.Status == nil || *gotParams.Status != domain.RequestStatusSent {
		t.Fatalf("status filter = %v", gotParams.Status)
	}
	if gotParams.Emirate == nil || *gotParams.Emirate != domain.EmirateDubai {
		t.Fatalf("emirate filter = %v", gotParams.Emirate)
	}
	if gotParams.Page != 2 || gotParams.PageSize != maxPageSize {
		t.Fatalf("page = %d, pageSize = %d", gotParams.Page, gotParams.PageSize)
	}

	resp, _ = performRequest(t, app, http.MethodGet, "/v1/admin/requests?status=unknown", "", auth)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for unknown status", resp.StatusCode)
	}
}

func TestAdminChangeStatus(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	var gotStatus, gotNotes string
	env.requests.changeStatusFn = func(ctx context.Context, requestID, status, notes string) error {
		gotStatus, gotNotes = status, notes
		return nil
	}

	resp, raw := performRequest(t, env.app(t), http.MethodPatch, "/v1/admin/requests/FR-1/status",
		`{"status":"completed","notes":"Customer confirmed"}`, map[string]string{HeaderAdminKey: testAdminKey})
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("status = %d, want 204, body=%s", resp.StatusCode, raw)
	}
	if gotStatus != "completed" || gotNotes != "Customer confirmed" {
		t.Fatalf("status = %q, notes = %q", gotStatus, gotNotes)
	}
}

func TestAdminSettings(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	app := env.app(t)
	auth := map[string]string{HeaderAdminKey: testAdminKey}

	resp, raw := performRequest(t, app, http.MethodPut, "/v1/admin/settings", `{"max_garages_per_request":5}`, auth)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, raw)
	}
	var updated settings.Settings
	if err := json.Unmarshal(raw, &updated); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if updated.MaxGaragesPerRequest != 5 || !updated.EnableQuoteSystem {
		t.Fatalf("settings = %+v", updated)
	}

	resp, raw = performRequest(t, app, http.MethodGet, "/v1/admin/statistics?days=7", "", auth)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(raw), `"days":7`) {
		t.Fatalf("statistics = %s", raw)
	}
}

func TestAdminErrorLog(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	app := env.app(t)
	auth := map[string]string{HeaderAdminKey: testAdminKey}

	resp, raw := performRequest(t, app, http.MethodGet, "/v1/admin/errors?days=3", "", auth)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, raw)
	}
	if !strings.Contains(string(raw), `"days":3`) {
		t.Fatalf("error statistics = %s", raw)
	}

	resp, raw = performRequest(t, app, http.MethodPost, "/v1/admin/errors/resolve", `{"ids":[4,9]}`, auth)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, raw)
	}
	if len(env.errors.resolved) != 2 || env.errors.resolved[1] != 9 {
		t.Fatalf("resolved = %v, want [4 9]", env.errors.resolved)
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/admin/errors/resolve", `{"ids":[]}`, auth)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 without ids", resp.StatusCode)
	}
}

func TestSlowRequestsReportsOperation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	performRequest(t, env.app(t), http.MethodGet, "/v1/vehicles/makes", "", nil)

	env.perf.mu.Lock()
	defer env.perf.mu.Unlock()
	if len(env.perf.operations) != 1 || env.perf.operations[0] != "GET /v1/vehicles/makes" {
		t.Fatalf("operations = %v, want [GET /v1/vehicles/makes]", env.perf.operations)
	}
}

func TestReferenceRoutes(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	app := env.app(t)

	resp, raw := performRequest(t, app, http.MethodGet, "/v1/vehicles/models?make=Toyota", "", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(raw), `"model":"Camry"`) {
		t.Fatalf("models = %s", raw)
	}

	resp, _ = performRequest(t, app, http.MethodGet, "/v1/vehicles/models", "", nil)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 without make", resp.StatusCode)
	}

	resp, raw = performRequest(t, app, http.MethodGet, "/v1/csrf", "", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var csrf map[string]string
	if err := json.Unmarshal(raw, &csrf); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if csrf["nonce"] != "nonce-for-"+security.DefaultCSRFAction {
		t.Fatalf("nonce = %q", csrf["nonce"])
	}
	if !strings.HasPrefix(csrf["honeypotField"], security.HoneypotPrefix) {
		t.Fatalf("honeypot field = %q", csrf["honeypotField"])
	}
}

func TestVehicleSearchRoute(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	app := env.app(t)

	resp, raw := performRequest(t, app, http.MethodGet, "/v1/vehicles/search?q=camry&limit=5", "", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, raw)
	}
	var body struct {
		Data  []vehicleResponse `json:"data"`
		Count int               `json:"count"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if body.Count != 1 || body.Data[0].DisplayName != "Toyota Camry (2018-Present)" {
		t.Fatalf("search response = %+v", body)
	}

	resp, raw = performRequest(t, app, http.MethodGet, "/v1/vehicles/search?q=%20c%20", "", nil)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for a short term", resp.StatusCode)
	}
	if !strings.Contains(string(raw), "at least 2 characters") {
		t.Fatalf("body = %s", raw)
	}
}

func TestProductCompatibilityRoutes(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	app := env.app(t)

	resp, raw := performRequest(t, app, http.MethodGet, "/v1/products/42/vehicles", "", nil)
	if resp.StatusCode != fiber.StatusOK || !strings.Contains(string(raw), `"displayName":"Toyota Camry (2018-2024)"`) {
		t.Fatalf("vehicles = %d %s", resp.StatusCode, raw)
	}

	tests := []struct {
		name           string
		path           string
		wantCode       int
		wantCompatible bool
	}{
		{name: "fits", path: "/v1/products/42/compatibility?make=Toyota&model=Camry&year=2020", wantCode: 200, wantCompatible: true},
		{name: "any year", path: "/v1/products/42/compatibility?make=Toyota&model=Camry", wantCode: 200, wantCompatible: true},
		{name: "too old", path: "/v1/products/42/compatibility?make=Toyota&model=Camry&year=2010", wantCode: 200},
		{name: "missing model", path: "/v1/products/42/compatibility?make=Toyota", wantCode: 400},
		{name: "bad year", path: "/v1/products/42/compatibility?make=Toyota&model=Camry&year=abc", wantCode: 400},
		{name: "bad product", path: "/v1/products/0/compatibility?make=Toyota&model=Camry", wantCode: 400},
	}
	for _, tt := range tests {
		resp, raw := performRequest(t, app, http.MethodGet, tt.path, "", nil)
		if resp.StatusCode != tt.wantCode {
			t.Fatalf("%s: status = %d, want %d, body=%s", tt.name, resp.StatusCode, tt.wantCode, raw)
		}
		if tt.wantCode != fiber.StatusOK {
			continue
		}
		var body struct {
			Compatible bool `json:"compatible"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Fatalf("%s: json unmarshal error = %v", tt.name, err)
		}
		if body.Compatible != tt.wantCompatible {
			t.Fatalf("%s: compatible = %v, want %v", tt.name, body.Compatible, tt.wantCompatible)
		}
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		dbErr    error
		redisErr error
		state    domain.HealthState
		wantCode int
	}{
		{name: "ready", state: domain.HealthHealthy, wantCode: fiber.StatusOK},
		{name: "store warning", state: domain.HealthWarning, wantCode: fiber.StatusOK},
		{name: "store error", state: domain.HealthError, wantCode: fiber.StatusServiceUnavailable},
		{name: "database down", dbErr: errors.New("connection refused"), state: domain.HealthHealthy, wantCode: fiber.StatusServiceUnavailable},
		{name: "redis down", redisErr: errors.New("connection refused"), state: domain.HealthHealthy, wantCode: fiber.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sqlDB := sql.OpenDB(stubConnector{pingErr: tt.dbErr})
			rdb := newStubRedisClient(tt.redisErr)
			t.Cleanup(func() {
				_ = sqlDB.Close()
				_ = rdb.Close()
			})

			app := fiber.New()
			RegisterHealthRoutes(app, sqlDB, rdb, stubHealth{state: tt.state})

			resp, raw := performRequest(t, app, http.MethodGet, "/readyz", "", nil)
			if resp.StatusCode != tt.wantCode {
				t.Fatalf("status = %d, want %d, body=%s", resp.StatusCode, tt.wantCode, raw)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.deps.Metrics = observability.NewMetrics()
	app := env.app(t)

	performRequest(t, app, http.MethodGet, "/v1/emirates", "", nil)
	resp, raw := performRequest(t, app, http.MethodGet, "/metrics", "", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(raw), "/v1/emirates") {
		t.Fatalf("metrics output must record the API route")
	}
}

func performRequest(t *testing.T, app *fiber.App, method, path, body string, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderUserAgent, "handler-test")
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	_ = resp.Body.Close()

	return resp, respBody
}

type stubConnector struct {
	pingErr error
}

func (c stubConnector) Connect(context.Context) (driver.Conn, error) {
	return stubConn(c), nil
}

func (c stubConnector) Driver() driver.Driver {
	return stubDriver(c)
}

type stubDriver struct {
	pingErr error
}

func (d stubDriver) Open(string) (driver.Conn, error) {
	return stubConn(d), nil
}

type stubConn struct {
	pingErr error
}

func (c stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not implemented") }
func (c stubConn) Close() error                        { return nil }
func (c stubConn) Begin() (driver.Tx, error)           { return nil, errors.New("not implemented") }
func (c stubConn) Ping(context.Context) error          { return c.pingErr }

type stubRedisHook struct {
	pingErr error
}

func (h stubRedisHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h stubRedisHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if strings.EqualFold(cmd.Name(), "ping") && h.pingErr != nil {
			cmd.SetErr(h.pingErr)
			return h.pingErr
		}
		cmd.SetErr(nil)
		return nil
	}
}

func (h stubRedisHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		for _, cmd := range cmds {
			cmd.SetErr(nil)
		}
		return nil
	}
}

func newStubRedisClient(pingErr error) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:         "127.0.0.1:6379",
		DialTimeout:  time.Millisecond,
		ReadTimeout:  time.Millisecond,
		WriteTimeout: time.Millisecond,
	})
	rdb.AddHook(stubRedisHook{pingErr: pingErr})
	return rdb
}
