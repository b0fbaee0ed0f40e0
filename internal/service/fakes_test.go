package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/kursadbilgin/fitting-request/internal/domain"
	"github.com/kursadbilgin/fitting-request/internal/provider"
	"github.com/kursadbilgin/fitting-request/internal/repository"
	"github.com/kursadbilgin/fitting-request/internal/settings"
	"github.com/kursadbilgin/fitting-request/internal/validator"
)

type fakeRequestRepo struct {
	insertFn          func(ctx context.Context, r *domain.FittingRequest) (uint, error)
	getByRequestIDFn  func(ctx context.Context, requestID string) (*domain.FittingRequest, error)
	updateStatusFn    func(ctx context.Context, requestID string, status domain.RequestStatus, notes string) error
	logStatusChangeFn func(ctx context.Context, requestID string, oldStatus, newStatus domain.RequestStatus, notes string) error
	statusHistoryFn   func(ctx context.Context, requestID string) ([]domain.StatusLogEntry, error)
	incrementNotified func(ctx context.Context, requestID string, by int) error
	listFn            func(ctx context.Context, params repository.RequestListParams) ([]domain.FittingRequest, int64, error)
}

func (f *fakeRequestRepo) Insert(ctx context.Context, r *domain.FittingRequest) (uint, error) {
	if f.insertFn != nil {
		return f.insertFn(ctx, r)
	}
	return 1, nil
}

func (f *fakeRequestRepo) GetByRequestID(ctx context.Context, requestID string) (*domain.FittingRequest, error) {
	if f.getByRequestIDFn != nil {
		return f.getByRequestIDFn(ctx, requestID)
	}
	return nil, nil
}

func (f *fakeRequestRepo) UpdateStatus(ctx context.Context, requestID string, status domain.RequestStatus, notes string) error {
	if f.updateStatusFn != nil {
		return f.updateStatusFn(ctx, requestID, status, notes)
	}
	return nil
}

func (f *fakeRequestRepo) LogStatusChange(ctx context.Context, requestID string, oldStatus, newStatus domain.RequestStatus, notes string) error {
	if f.logStatusChangeFn != nil {
		return f.logStatusChangeFn(ctx, requestID, oldStatus, newStatus, notes)
	}
	return nil
}

func (f *fakeRequestRepo) StatusHistory(ctx context.Context, requestID string) ([]domain.StatusLogEntry, error) {
	if f.statusHistoryFn != nil {
		return f.statusHistoryFn(ctx, requestID)
	}
	return nil, nil
}

func (f *fakeRequestRepo) IncrementGaragesNotified(ctx context.Context, requestID string, by int) error {
	if f.incrementNotified != nil {
		return f.incrementNotified(ctx, requestID, by)
	}
	return nil
}

func (f *fakeRequestRepo) List(ctx context.Context, params repository.RequestListParams) ([]domain.FittingRequest, int64, error) {
	if f.listFn != nil {
		return f.listFn(ctx, params)
	}
	return nil, 0, nil
}

type fakeQuoteRepo struct {
	insertFn         func(ctx context.Context, q *domain.Quote) (uint, error)
	listForRequestFn func(ctx context.Context, requestID string) ([]domain.Quote, error)
}

func (f *fakeQuoteRepo) Insert(ctx context.Context, q *domain.Quote) (uint, error) {
	if f.insertFn != nil {
		return f.insertFn(ctx, q)
	}
	return 1, nil
}

func (f *fakeQuoteRepo) ListForRequest(ctx context.Context, requestID string) ([]domain.Quote, error) {
	if f.listForRequestFn != nil {
		return f.listForRequestFn(ctx, requestID)
	}
	return nil, nil
}

func (f *fakeQuoteRepo) CountForRequest(ctx context.Context, requestID string) (int64, error) {
	return 0, nil
}

func (f *fakeQuoteRepo) UpdateStatus(ctx context.Context, id uint, status domain.QuoteStatus) error {
	return nil
}

type statusUpdate struct {
	id     uint
	status domain.QueueStatus
	errMsg string
}

type fakeQueueRepo struct {
	mu           sync.Mutex
	enqueueFn    func(ctx context.Context, item *domain.NotificationQueueItem) (uint, error)
	getPendingFn func(ctx context.Context, limit int) ([]domain.NotificationQueueItem, error)
	enqueued     []domain.NotificationQueueItem
	updates      []statusUpdate
}

func (f *fakeQueueRepo) Enqueue(ctx context.Context, item *domain.NotificationQueueItem) (uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.enqueueFn != nil {
		return f.enqueueFn(ctx, item)
	}
	f.enqueued = append(f.enqueued, *item)
	return uint(len(f.enqueued)), nil
}

func (f *fakeQueueRepo) GetPending(ctx context.Context, limit int) ([]domain.NotificationQueueItem, error) {
	if f.getPendingFn != nil {
		return f.getPendingFn(ctx, limit)
	}
	return nil, nil
}

func (f *fakeQueueRepo) UpdateStatus(ctx context.Context, id uint, status domain.QueueStatus, errorMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, statusUpdate{id: id, status: status, errMsg: errorMessage})
	return nil
}

func (f *fakeQueueRepo) statusesFor(id uint) []domain.QueueStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.QueueStatus
	for _, u := range f.updates {
		if u.id == id {
			out = append(out, u.status)
		}
	}
	return out
}

type fakeSecurity struct {
	allow           map[string]bool
	rateErr         error
	rateCalls       []string
	generateTokenFn func(data any, expiry time.Duration) (string, error)
	validateTokenFn func(ctx context.Context, token string, expected any) (json.RawMessage, bool)
}

func (f *fakeSecurity) CheckRateLimit(ctx context.Context, identifier, action string) (bool, error) {
	f.rateCalls = append(f.rateCalls, identifier+":"+action)
	if f.rateErr != nil {
		return false, f.rateErr
	}
	if allowed, ok := f.allow[action]; ok {
		return allowed, nil
	}
	return true, nil
}

func (f *fakeSecurity) GenerateToken(data any, expiry time.Duration) (string, error) {
	if f.generateTokenFn != nil {
		return f.generateTokenFn(data, expiry)
	}
	claims := data.(validator.QuoteClaims)
	return "token-" + claims.RequestID, nil
}

func (f *fakeSecurity) ValidateToken(ctx context.Context, token string, expected any) (json.RawMessage, bool) {
	if f.validateTokenFn != nil {
		return f.validateTokenFn(ctx, token, expected)
	}
	return json.RawMessage(`{}`), true
}

type fakeRequestValidator struct {
	result   validator.Result[validator.RequestData]
	feedback func(form validator.Form) validator.Result[validator.FeedbackData]
}

func (f *fakeRequestValidator) ValidateRequest(ctx context.Context, form validator.Form) validator.Result[validator.RequestData] {
	return f.result
}

func (f *fakeRequestValidator) ValidateFeedback(ctx context.Context, form validator.Form) validator.Result[validator.FeedbackData] {
	if f.feedback != nil {
		return f.feedback(form)
	}
	return validator.Result[validator.FeedbackData]{IsValid: true, Data: validator.FeedbackData{RequestID: form[validator.FieldRequestID], Rating: 5}}
}

type fakeQuoteValidator struct {
	result validator.Result[validator.QuoteData]
}

func (f *fakeQuoteValidator) ValidateQuote(ctx context.Context, form validator.Form) validator.Result[validator.QuoteData] {
	return f.result
}

type fakeSettingsValidator struct {
	validateFn func(ctx context.Context, overrides settings.Overrides) validator.Result[settings.Overrides]
}

func (f *fakeSettingsValidator) ValidateSettings(ctx context.Context, overrides settings.Overrides) validator.Result[settings.Overrides] {
	if f.validateFn != nil {
		return f.validateFn(ctx, overrides)
	}
	return validator.Result[settings.Overrides]{IsValid: true, Data: overrides}
}

type fakeCache struct {
	garages     map[domain.Emirate][]domain.Garage
	invalidated []string
}

func (f *fakeCache) GaragesByEmirate(ctx context.Context, emirate domain.Emirate) []domain.Garage {
	return f.garages[emirate]
}

func (f *fakeCache) GarageInfo(ctx context.Context, garageID uint) *domain.Garage {
	for _, list := range f.garages {
		for i := range list {
			if list[i].ID == garageID {
				g := list[i]
				return &g
			}
		}
	}
	return nil
}

func (f *fakeCache) InvalidateRelated(ctx context.Context, category string) {
	f.invalidated = append(f.invalidated, category)
}

type fakeSettings struct {
	value settings.Settings
}

func (f *fakeSettings) Get(ctx context.Context) settings.Settings {
	return f.value
}

type fakeOptions struct {
	mu     sync.Mutex
	values map[string]string
	getErr error
}

func (f *fakeOptions) Get(ctx context.Context, name string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", false, f.getErr
	}
	v, ok := f.values[name]
	return v, ok, nil
}

func (f *fakeOptions) Set(ctx context.Context, name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.values == nil {
		f.values = make(map[string]string)
	}
	f.values[name] = value
	return nil
}

type fakeSender struct {
	mu     sync.Mutex
	sendFn func(ctx context.Context, msg provider.Message) (*provider.ProviderResponse, error)
	sent   []provider.Message
}

func (f *fakeSender) Send(ctx context.Context, msg provider.Message) (*provider.ProviderResponse, error) {
	f.mu.Lock()
	f.sent = append(f.sent, msg)
	f.mu.Unlock()
	if f.sendFn != nil {
		return f.sendFn(ctx, msg)
	}
	return &provider.ProviderResponse{StatusCode: 200}, nil
}

type fakeMaintenanceRepo struct {
	cleanupFn func(ctx context.Context) (*domain.CleanupResult, error)
	health    domain.HealthReport
}

func (f *fakeMaintenanceRepo) Statistics(ctx context.Context, days int) (*domain.RequestStatistics, error) {
	return &domain.RequestStatistics{Days: days}, nil
}

func (f *fakeMaintenanceRepo) Cleanup(ctx context.Context) (*domain.CleanupResult, error) {
	if f.cleanupFn != nil {
		return f.cleanupFn(ctx)
	}
	return &domain.CleanupResult{}, nil
}

func (f *fakeMaintenanceRepo) CheckHealth(ctx context.Context) domain.HealthReport {
	return f.health
}

type fakeWarmer struct {
	calls int
}

func (f *fakeWarmer) WarmUp(ctx context.Context) {
	f.calls++
}

type fakeIncidents struct {
	messages   []string
	severities []domain.Severity
}

func (f *fakeIncidents) Log(ctx context.Context, message string, details map[string]any, severity domain.Severity) {
	f.messages = append(f.messages, message)
	f.severities = append(f.severities, severity)
}

type fakeSeeder struct {
	seeded []domain.Vehicle
}

func (f *fakeSeeder) SeedVehicles(ctx context.Context, vehicles []domain.Vehicle) error {
	f.seeded = vehicles
	return nil
}

type fakeGarageStore struct {
	created []domain.Garage
	err     error
}

func (f *fakeGarageStore) CreateGarage(ctx context.Context, g *domain.Garage) (uint, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.created = append(f.created, *g)
	return uint(len(f.created)), nil
}

type fakeGarageValidator struct {
	result    validator.Result[validator.GarageData]
	file      validator.FileResult
	fileCalls int
}

func (f *fakeGarageValidator) ValidateGarageRegistration(ctx context.Context, form validator.Form) validator.Result[validator.GarageData] {
	return f.result
}

func (f *fakeGarageValidator) ValidateFileUpload(ctx context.Context, file validator.FileUpload, maxSize int64) validator.FileResult {
	f.fileCalls++
	return f.file
}

type fakeGarageCache struct {
	invalidated []uint
}

func (f *fakeGarageCache) InvalidateGarage(ctx context.Context, garageID uint, emirate domain.Emirate) {
	f.invalidated = append(f.invalidated, garageID)
}
