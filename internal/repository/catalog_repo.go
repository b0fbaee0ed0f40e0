package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kursadbilgin/fitting-request/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CatalogRepository reads the host content store: products, vehicle
// reference terms and garage records.
type CatalogRepository interface {
	ProductExists(ctx context.Context, id uint) (bool, error)
	CreateProduct(ctx context.Context, name string) (uint, error)
	ListMakes(ctx context.Context) ([]string, error)
	ListModels(ctx context.Context, carMake string) ([]domain.Vehicle, error)
	SeedVehicles(ctx context.Context, vehicles []domain.Vehicle) error
	SearchVehicles(ctx context.Context, term string, limit int) ([]domain.Vehicle, error)
	LinkProductVehicles(ctx context.Context, productID uint, vehicleIDs ...uint) error
	ListProductVehicles(ctx context.Context, productID uint) ([]domain.Vehicle, error)
	ListGaragesByEmirate(ctx context.Context, emirate domain.Emirate) ([]domain.Garage, error)
	GetGarage(ctx context.Context, id uint) (*domain.Garage, error)
	GarageEmailExists(ctx context.Context, email string) (bool, error)
	CreateGarage(ctx context.Context, g *domain.Garage) (uint, error)
}

type GormCatalogRepo struct {
	db *gorm.DB
}

func NewGormCatalogRepo(db *gorm.DB) *GormCatalogRepo {
	return &GormCatalogRepo{db: db}
}

func (r *GormCatalogRepo) ProductExists(ctx context.Context, id uint) (bool, error) {
	if id == 0 {
		return false, nil
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&ProductModel{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *GormCatalogRepo) CreateProduct(ctx context.Context, name string) (uint, error) {
	model := ProductModel{Name: name}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return 0, persistenceError("create product", err)
	}
	return model.ID, nil
}

func (r *GormCatalogRepo) ListMakes(ctx context.Context) ([]string, error) {
	var makes []string
	err := r.db.WithContext(ctx).
		Model(&VehicleModel{}).
		Distinct("make").
		Order("make ASC").
		Pluck("make", &makes).Error
	if err != nil {
		return nil, err
	}
	return makes, nil
}

func (r *GormCatalogRepo) ListModels(ctx context.Context, carMake string) ([]domain.Vehicle, error) {
	var models []VehicleModel
	err := r.db.WithContext(ctx).
		Where("make = ?", carMake).
		Order("model ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	return vehicleModelsToDomain(models), nil
}

// SeedVehicles inserts reference vehicles, leaving existing make/model pairs untouched.
func (r *GormCatalogRepo) SeedVehicles(ctx context.Context, vehicles []domain.Vehicle) error {
	if len(vehicles) == 0 {
		return nil
	}

	models := make([]VehicleModel, 0, len(vehicles))
	for _, v := range vehicles {
		models = append(models, VehicleModel{
			Make:       v.Make,
			Model:      v.Model,
			YearFrom:   v.YearFrom,
			YearTo:     v.YearTo,
			EngineType: v.EngineType,
		})
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&models, 100).Error
	if err != nil {
		return persistenceError("seed vehicles", err)
	}
	return nil
}

// SearchVehicles returns up to limit vehicles whose make or model contains
// term, case-insensitively.
func (r *GormCatalogRepo) SearchVehicles(ctx context.Context, term string, limit int) ([]domain.Vehicle, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	pattern := "%" + term + "%"
	var models []VehicleModel
	err := r.db.WithContext(ctx).
		Where("LOWER(make) LIKE ? OR LOWER(model) LIKE ?", pattern, pattern).
		Order("make ASC, model ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return vehicleModelsToDomain(models), nil
}

// LinkProductVehicles marks the vehicles productID fits. Existing links are kept.
func (r *GormCatalogRepo) LinkProductVehicles(ctx context.Context, productID uint, vehicleIDs ...uint) error {
	if productID == 0 {
		return fmt.Errorf("%w: product id is required", domain.ErrValidation)
	}
	if len(vehicleIDs) == 0 {
		return nil
	}

	links := make([]ProductVehicleModel, 0, len(vehicleIDs))
	for _, id := range vehicleIDs {
		links = append(links, ProductVehicleModel{ProductID: productID, VehicleID: id})
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&links).Error
	if err != nil {
		return persistenceError("link product vehicles", err)
	}
	return nil
}

// ListProductVehicles returns the vehicles linked to productID by make and model.
func (r *GormCatalogRepo) ListProductVehicles(ctx context.Context, productID uint) ([]domain.Vehicle, error) {
	var models []VehicleModel
	err := r.db.WithContext(ctx).
		Joins("JOIN product_vehicles ON product_vehicles.vehicle_id = vehicles.id").
		Where("product_vehicles.product_id = ?", productID).
		Order("vehicles.make ASC, vehicles.model ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return vehicleModelsToDomain(models), nil
}

// ListGaragesByEmirate returns active garages serving emirate, by name.
func (r *GormCatalogRepo) ListGaragesByEmirate(ctx context.Context, emirate domain.Emirate) ([]domain.Garage, error) {
	var models []GarageModel
	err := r.db.WithContext(ctx).
		Where("emirate = ? AND status = ?", emirate, domain.GarageStatusActive).
		Order("name ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	garages := make([]domain.Garage, 0, len(models))
	for i := range models {
		garages = append(garages, garageModelToDomain(&models[i]))
	}
	return garages, nil
}

// GetGarage returns nil without error when the garage does not exist.
func (r *GormCatalogRepo) GetGarage(ctx context.Context, id uint) (*domain.Garage, error) {
	var model GarageModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	garage := garageModelToDomain(&model)
	return &garage, nil
}

func (r *GormCatalogRepo) GarageEmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&GarageModel{}).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		Count(&count).Error
	return count > 0, err
}

func (r *GormCatalogRepo) CreateGarage(ctx context.Context, g *domain.Garage) (uint, error) {
	if g == nil {
		return 0, fmt.Errorf("%w: garage is required", domain.ErrValidation)
	}
	if !g.Emirate.IsValid() {
		return 0, fmt.Errorf("%w: invalid emirate %q", domain.ErrValidation, g.Emirate)
	}

	model := garageModelFromDomain(g)
	if model.Status == "" {
		model.Status = domain.GarageStatusActive
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return 0, persistenceError("create garage", err)
	}

	*g = garageModelToDomain(model)
	return model.ID, nil
}
