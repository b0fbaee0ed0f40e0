package migrations

import (
	"time"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type errorLog000003 struct {
	ID         uint              `gorm:"primaryKey;autoIncrement"`
	Message    string            `gorm:"type:text;not null"`
	Context    datatypes.JSONMap `gorm:"type:json"`
	Severity   string            `gorm:"type:varchar(20);not null;default:error;index:idx_error_logs_severity"`
	ActorID    *string           `gorm:"type:varchar(64)"`
	IPAddress  string            `gorm:"type:varchar(45)"`
	UserAgent  string            `gorm:"type:text"`
	StackTrace string            `gorm:"type:text"`
	Resolved   bool              `gorm:"not null;default:false"`
	CreatedAt  time.Time         `gorm:"index:idx_error_logs_created_at"`
}

func (errorLog000003) TableName() string { return "error_logs" }

func createErrorLogsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_error_logs",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&errorLog000003{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&errorLog000003{})
		},
	}
}
