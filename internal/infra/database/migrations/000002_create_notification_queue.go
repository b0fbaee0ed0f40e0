package migrations

import (
	"time"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

type notificationQueue000002 struct {
	ID               uint      `gorm:"primaryKey;autoIncrement"`
	RequestID        string    `gorm:"type:varchar(50);not null;index:idx_notification_queue_request_id"`
	NotificationType string    `gorm:"type:varchar(20);not null"`
	Recipients       string    `gorm:"type:text;not null"`
	Priority         int       `gorm:"not null;default:5"`
	Status           string    `gorm:"type:varchar(20);not null;default:pending;index:idx_notification_queue_pending,priority:1"`
	Attempts         int       `gorm:"not null;default:0"`
	ScheduledFor     time.Time `gorm:"not null;index:idx_notification_queue_pending,priority:2"`
	CompletedAt      *time.Time
	ErrorMessage     string `gorm:"type:text"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (notificationQueue000002) TableName() string { return "notification_queue" }

func createNotificationQueueTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_notification_queue",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&notificationQueue000002{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&notificationQueue000002{})
		},
	}
}
