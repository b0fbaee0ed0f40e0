package repository

import (
	"encoding/json"
	"time"

	"github.com/kursadbilgin/fitting-request/internal/domain"
	"gorm.io/datatypes"
)

// RequestModel is the persistence model for the requests table.
type RequestModel struct {
	ID               uint                 `gorm:"primaryKey;autoIncrement"`
	RequestID        string               `gorm:"type:varchar(50);not null"`
	ProductID        uint                 `gorm:"not null"`
	CarMake          string               `gorm:"type:varchar(100);not null"`
	CarModel         string               `gorm:"type:varchar(100);not null"`
	CustomerEmail    string               `gorm:"type:varchar(255);not null"`
	CustomerWhatsApp string               `gorm:"column:customer_whatsapp;type:varchar(20);not null"`
	SelectedEmirate  domain.Emirate       `gorm:"type:varchar(50);not null"`
	RequestDate      time.Time            `gorm:"not null"`
	GaragesNotified  int                  `gorm:"not null"`
	Status           domain.RequestStatus `gorm:"type:varchar(20);not null"`
	Priority         int                  `gorm:"not null"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (RequestModel) TableName() string {
	return "requests"
}

// QuoteModel is the persistence model for the quotes table.
type QuoteModel struct {
	ID             uint               `gorm:"primaryKey;autoIncrement"`
	RequestID      string             `gorm:"type:varchar(50);not null"`
	GarageID       uint               `gorm:"not null"`
	QuoteAmount    float64            `gorm:"type:decimal(10,2);not null"`
	EstimatedTime  string             `gorm:"type:varchar(50)"`
	Notes          string             `gorm:"type:text"`
	Status         domain.QuoteStatus `gorm:"type:varchar(20);not null"`
	SubmissionDate time.Time          `gorm:"not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (QuoteModel) TableName() string {
	return "quotes"
}

// StatusLogModel is the persistence model for status_log.
type StatusLogModel struct {
	ID        uint                 `gorm:"primaryKey;autoIncrement"`
	RequestID string               `gorm:"type:varchar(50);not null"`
	OldStatus domain.RequestStatus `gorm:"type:varchar(20)"`
	NewStatus domain.RequestStatus `gorm:"type:varchar(20);not null"`
	ChangedBy *string              `gorm:"type:varchar(64)"`
	Notes     string               `gorm:"type:text"`
	CreatedAt time.Time
}

func (StatusLogModel) TableName() string {
	return "status_log"
}

// NotificationQueueModel is the persistence model for notification_queue.
// Recipients holds the JSON encoding of the recipient list.
type NotificationQueueModel struct {
	ID               uint                    `gorm:"primaryKey;autoIncrement"`
	RequestID        string                  `gorm:"type:varchar(50);not null"`
	NotificationType domain.NotificationType `gorm:"type:varchar(20);not null"`
	Recipients       string                  `gorm:"type:text;not null"`
	Priority         int                     `gorm:"not null"`
	Status           domain.QueueStatus      `gorm:"type:varchar(20);not null"`
	Attempts         int                     `gorm:"not null"`
	ScheduledFor     time.Time               `gorm:"not null"`
	CompletedAt      *time.Time
	ErrorMessage     string `gorm:"type:text"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (NotificationQueueModel) TableName() string {
	return "notification_queue"
}

// ErrorLogModel is the persistence model for error_logs.
type ErrorLogModel struct {
	ID         uint              `gorm:"primaryKey;autoIncrement"`
	Message    string            `gorm:"type:text;not null"`
	Context    datatypes.JSONMap `gorm:"type:json"`
	Severity   domain.Severity   `gorm:"type:varchar(20);not null"`
	ActorID    *string           `gorm:"type:varchar(64)"`
	IPAddress  string            `gorm:"type:varchar(45)"`
	UserAgent  string            `gorm:"type:text"`
	StackTrace string            `gorm:"type:text"`
	Resolved   bool              `gorm:"not null"`
	CreatedAt  time.Time
}

func (ErrorLogModel) TableName() string {
	return "error_logs"
}

// RateLimitModel is the persistence model for rate_limits.
type RateLimitModel struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	Identifier  string    `gorm:"type:varchar(100);not null"`
	Action      string    `gorm:"type:varchar(50);not null"`
	Count       int       `gorm:"not null"`
	WindowStart time.Time `gorm:"not null"`
}

func (RateLimitModel) TableName() string {
	return "rate_limits"
}

// GarageModel is the persistence model for garages.
type GarageModel struct {
	ID            uint                `gorm:"primaryKey;autoIncrement"`
	Name          string              `gorm:"type:varchar(100);not null"`
	Email         string              `gorm:"type:varchar(255);not null"`
	WhatsApp      string              `gorm:"column:whatsapp;type:varchar(20)"`
	Emirate       domain.Emirate      `gorm:"type:varchar(50);not null"`
	Address       string              `gorm:"type:text"`
	ContactPerson string              `gorm:"type:varchar(100)"`
	Services      string              `gorm:"type:text"`
	Status        domain.GarageStatus `gorm:"type:varchar(20);not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (GarageModel) TableName() string {
	return "garages"
}

// VehicleModel is the persistence model for vehicles.
type VehicleModel struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	Make       string `gorm:"type:varchar(100);not null"`
	Model      string `gorm:"type:varchar(100);not null"`
	YearFrom   int
	YearTo     int
	EngineType string `gorm:"type:varchar(50)"`
}

func (VehicleModel) TableName() string {
	return "vehicles"
}

// ProductModel is the persistence model for products.
type ProductModel struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"type:varchar(255);not null"`
	CreatedAt time.Time
}

func (ProductModel) TableName() string {
	return "products"
}

// ProductVehicleModel links a product to a vehicle it fits.
type ProductVehicleModel struct {
	ProductID uint `gorm:"primaryKey;autoIncrement:false"`
	VehicleID uint `gorm:"primaryKey;autoIncrement:false"`
}

func (ProductVehicleModel) TableName() string {
	return "product_vehicles"
}

// OptionModel is the persistence model for the options key-value table.
type OptionModel struct {
	Name      string `gorm:"type:varchar(191);primaryKey"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (OptionModel) TableName() string {
	return "options"
}

func requestModelFromDomain(r *domain.FittingRequest) *RequestModel {
	if r == nil {
		return nil
	}

	return &RequestModel{
		ID:               r.ID,
		RequestID:        r.RequestID,
		ProductID:        r.ProductID,
		CarMake:          r.CarMake,
		CarModel:         r.CarModel,
		CustomerEmail:    r.CustomerEmail,
		CustomerWhatsApp: r.CustomerWhatsApp,
		SelectedEmirate:  r.SelectedEmirate,
		RequestDate:      r.RequestDate,
		GaragesNotified:  r.GaragesNotified,
		Status:           r.Status,
		Priority:         r.Priority,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func requestModelToDomain(m *RequestModel) *domain.FittingRequest {
	if m == nil {
		return nil
	}

	return &domain.FittingRequest{
		ID:               m.ID,
		RequestID:        m.RequestID,
		ProductID:        m.ProductID,
		CarMake:          m.CarMake,
		CarModel:         m.CarModel,
		CustomerEmail:    m.CustomerEmail,
		CustomerWhatsApp: m.CustomerWhatsApp,
		SelectedEmirate:  m.SelectedEmirate,
		RequestDate:      m.RequestDate,
		GaragesNotified:  m.GaragesNotified,
		Status:           m.Status,
		Priority:         m.Priority,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func quoteModelFromDomain(q *domain.Quote) *QuoteModel {
	if q == nil {
		return nil
	}

	return &QuoteModel{
		ID:             q.ID,
		RequestID:      q.RequestID,
		GarageID:       q.GarageID,
		QuoteAmount:    q.QuoteAmount,
		EstimatedTime:  q.EstimatedTime,
		Notes:          q.Notes,
		Status:         q.Status,
		SubmissionDate: q.SubmissionDate,
		CreatedAt:      q.CreatedAt,
		UpdatedAt:      q.UpdatedAt,
	}
}

func quoteModelToDomain(m *QuoteModel) *domain.Quote {
	if m == nil {
		return nil
	}

	return &domain.Quote{
		ID:             m.ID,
		RequestID:      m.RequestID,
		GarageID:       m.GarageID,
		QuoteAmount:    m.QuoteAmount,
		EstimatedTime:  m.EstimatedTime,
		Notes:          m.Notes,
		Status:         m.Status,
		SubmissionDate: m.SubmissionDate,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func statusLogModelToDomain(m *StatusLogModel) domain.StatusLogEntry {
	return domain.StatusLogEntry{
		ID:        m.ID,
		RequestID: m.RequestID,
		OldStatus: m.OldStatus,
		NewStatus: m.NewStatus,
		ChangedBy: m.ChangedBy,
		Notes:     m.Notes,
		CreatedAt: m.CreatedAt,
	}
}

func notificationModelFromDomain(n *domain.NotificationQueueItem) (*NotificationQueueModel, error) {
	if n == nil {
		return nil, nil
	}

	recipients, err := json.Marshal(n.Recipients)
	if err != nil {
		return nil, err
	}

	return &NotificationQueueModel{
		ID:               n.ID,
		RequestID:        n.RequestID,
		NotificationType: n.NotificationType,
		Recipients:       string(recipients),
		Priority:         n.Priority,
		Status:           n.Status,
		Attempts:         n.Attempts,
		ScheduledFor:     n.ScheduledFor,
		CompletedAt:      n.CompletedAt,
		ErrorMessage:     n.ErrorMessage,
		CreatedAt:        n.CreatedAt,
		UpdatedAt:        n.UpdatedAt,
	}, nil
}

// notificationModelToDomain tolerates undecodable recipient payloads by
// returning an empty list; the dispatcher fails such items explicitly.
func notificationModelToDomain(m *NotificationQueueModel) *domain.NotificationQueueItem {
	if m == nil {
		return nil
	}

	var recipients []domain.Recipient
	if err := json.Unmarshal([]byte(m.Recipients), &recipients); err != nil {
		recipients = nil
	}

	return &domain.NotificationQueueItem{
		ID:               m.ID,
		RequestID:        m.RequestID,
		NotificationType: m.NotificationType,
		Recipients:       recipients,
		Priority:         m.Priority,
		Status:           m.Status,
		Attempts:         m.Attempts,
		ScheduledFor:     m.ScheduledFor,
		CompletedAt:      m.CompletedAt,
		ErrorMessage:     m.ErrorMessage,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func errorLogModelFromDomain(e *domain.ErrorLogEntry) *ErrorLogModel {
	if e == nil {
		return nil
	}

	return &ErrorLogModel{
		ID:         e.ID,
		Message:    e.Message,
		Context:    datatypes.JSONMap(e.Context),
		Severity:   e.Severity,
		ActorID:    e.ActorID,
		IPAddress:  e.IPAddress,
		UserAgent:  e.UserAgent,
		StackTrace: e.StackTrace,
		Resolved:   e.Resolved,
		CreatedAt:  e.CreatedAt,
	}
}

func errorLogModelToDomain(m *ErrorLogModel) domain.ErrorLogEntry {
	return domain.ErrorLogEntry{
		ID:         m.ID,
		Message:    m.Message,
		Context:    map[string]any(m.Context),
		Severity:   m.Severity,
		ActorID:    m.ActorID,
		IPAddress:  m.IPAddress,
		UserAgent:  m.UserAgent,
		StackTrace: m.StackTrace,
		Resolved:   m.Resolved,
		CreatedAt:  m.CreatedAt,
	}
}

func garageModelToDomain(m *GarageModel) domain.Garage {
	return domain.Garage{
		ID:            m.ID,
		Name:          m.Name,
		Email:         m.Email,
		WhatsApp:      m.WhatsApp,
		Emirate:       m.Emirate,
		Address:       m.Address,
		ContactPerson: m.ContactPerson,
		Services:      m.Services,
		Status:        m.Status,
	}
}

func garageModelFromDomain(g *domain.Garage) *GarageModel {
	return &GarageModel{
		ID:            g.ID,
		Name:          g.Name,
		Email:         g.Email,
		WhatsApp:      g.WhatsApp,
		Emirate:       g.Emirate,
		Address:       g.Address,
		ContactPerson: g.ContactPerson,
		Services:      g.Services,
		Status:        g.Status,
	}
}

func vehicleModelToDomain(m *VehicleModel) domain.Vehicle {
	return domain.Vehicle{
		ID:         m.ID,
		Make:       m.Make,
		Model:      m.Model,
		YearFrom:   m.YearFrom,
		YearTo:     m.YearTo,
		EngineType: m.EngineType,
	}
}

func vehicleModelsToDomain(models []VehicleModel) []domain.Vehicle {
	vehicles := make([]domain.Vehicle, 0, len(models))
	for i := range models {
		vehicles = append(vehicles, vehicleModelToDomain(&models[i]))
	}
	return vehicles
}
