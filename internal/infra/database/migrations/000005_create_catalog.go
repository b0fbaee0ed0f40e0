package migrations

import (
	"time"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// Catalog tables back the host content store: garages, vehicle reference
// terms and products.

type garage000005 struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	Name          string `gorm:"type:varchar(100);not null"`
	Email         string `gorm:"type:varchar(255);not null;index:idx_garages_email"`
	WhatsApp      string `gorm:"column:whatsapp;type:varchar(20)"`
	Emirate       string `gorm:"type:varchar(50);not null;index:idx_garages_emirate"`
	Address       string `gorm:"type:text"`
	ContactPerson string `gorm:"type:varchar(100)"`
	Services      string `gorm:"type:text"`
	Status        string `gorm:"type:varchar(20);not null;default:active"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (garage000005) TableName() string { return "garages" }

type vehicle000005 struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	Make       string `gorm:"type:varchar(100);not null;uniqueIndex:idx_vehicles_make_model,priority:1"`
	Model      string `gorm:"type:varchar(100);not null;uniqueIndex:idx_vehicles_make_model,priority:2"`
	YearFrom   int
	YearTo     int
	EngineType string `gorm:"type:varchar(50)"`
}

func (vehicle000005) TableName() string { return "vehicles" }

type product000005 struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"type:varchar(255);not null"`
	CreatedAt time.Time
}

func (product000005) TableName() string { return "products" }

func createCatalogTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000005_create_catalog",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&garage000005{}, &vehicle000005{}, &product000005{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&product000005{}, &vehicle000005{}, &garage000005{})
		},
	}
}
