package migrations

import (
	"time"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

type rateLimit000004 struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	Identifier  string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_rate_limits_identifier_action,priority:1"`
	Action      string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_rate_limits_identifier_action,priority:2"`
	Count       int       `gorm:"not null;default:1"`
	WindowStart time.Time `gorm:"not null;index:idx_rate_limits_window_start"`
}

func (rateLimit000004) TableName() string { return "rate_limits" }

func createRateLimitsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000004_create_rate_limits",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&rateLimit000004{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&rateLimit000004{})
		},
	}
}
