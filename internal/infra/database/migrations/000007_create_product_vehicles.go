package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// productVehicle000007 links a product to the vehicles it fits.
type productVehicle000007 struct {
	ProductID uint `gorm:"primaryKey;autoIncrement:false"`
	VehicleID uint `gorm:"primaryKey;autoIncrement:false;index:idx_product_vehicles_vehicle"`
}

func (productVehicle000007) TableName() string { return "product_vehicles" }

func createProductVehiclesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000007_create_product_vehicles",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&productVehicle000007{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&productVehicle000007{})
		},
	}
}
