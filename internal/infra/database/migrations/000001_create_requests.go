package migrations

import (
	"time"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

type request000001 struct {
	ID               uint      `gorm:"primaryKey;autoIncrement"`
	RequestID        string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_requests_request_id"`
	ProductID        uint      `gorm:"not null;index:idx_requests_product_id"`
	CarMake          string    `gorm:"type:varchar(100);not null"`
	CarModel         string    `gorm:"type:varchar(100);not null"`
	CustomerEmail    string    `gorm:"type:varchar(255);not null"`
	CustomerWhatsApp string    `gorm:"column:customer_whatsapp;type:varchar(20);not null"`
	SelectedEmirate  string    `gorm:"type:varchar(50);not null;index:idx_requests_emirate"`
	RequestDate      time.Time `gorm:"not null"`
	GaragesNotified  int       `gorm:"not null;default:0"`
	Status           string    `gorm:"type:varchar(20);not null;default:pending;index:idx_requests_status_created,priority:1"`
	Priority         int       `gorm:"not null;default:5"`
	CreatedAt        time.Time `gorm:"index:idx_requests_status_created,priority:2"`
	UpdatedAt        time.Time
}

func (request000001) TableName() string { return "requests" }

type quote000001 struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"`
	RequestID      string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_quotes_request_garage,priority:1"`
	GarageID       uint      `gorm:"not null;uniqueIndex:idx_quotes_request_garage,priority:2;index:idx_quotes_garage_id"`
	QuoteAmount    float64   `gorm:"type:decimal(10,2);not null"`
	EstimatedTime  string    `gorm:"type:varchar(50)"`
	Notes          string    `gorm:"type:text"`
	Status         string    `gorm:"type:varchar(20);not null;default:pending"`
	SubmissionDate time.Time `gorm:"not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (quote000001) TableName() string { return "quotes" }

type statusLog000001 struct {
	ID        uint    `gorm:"primaryKey;autoIncrement"`
	RequestID string  `gorm:"type:varchar(50);not null;index:idx_status_log_request_id"`
	OldStatus string  `gorm:"type:varchar(20)"`
	NewStatus string  `gorm:"type:varchar(20);not null"`
	ChangedBy *string `gorm:"type:varchar(64)"`
	Notes     string  `gorm:"type:text"`
	CreatedAt time.Time
}

func (statusLog000001) TableName() string { return "status_log" }

func createRequestsTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_requests",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&request000001{}, &quote000001{}, &statusLog000001{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&statusLog000001{}, &quote000001{}, &request000001{})
		},
	}
}
