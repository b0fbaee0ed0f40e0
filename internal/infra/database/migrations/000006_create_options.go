package migrations

import (
	"time"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

type option000006 struct {
	Name      string `gorm:"type:varchar(191);primaryKey"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (option000006) TableName() string { return "options" }

func createOptionsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000006_create_options",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&option000006{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&option000006{})
		},
	}
}
