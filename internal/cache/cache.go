package cache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kursadbilgin/fitting-request/internal/domain"
	"github.com/kursadbilgin/fitting-request/internal/observability"
	"go.uber.org/zap"
)

const (
	DefaultTTL = time.Hour

	// MinSearchLength is the shortest vehicle search term served.
	MinSearchLength    = 2
	DefaultSearchLimit = 20
	MaxSearchLimit     = 50

	carMakesTTL           = 24 * time.Hour
	carModelsTTL          = 6 * time.Hour
	garagesTTL            = 30 * time.Minute
	emiratesTTL           = 7 * 24 * time.Hour
	requestStatsTTL       = 15 * time.Minute
	garageInfoTTL         = time.Hour
	vehicleSearchTTL      = time.Hour
	productVehiclesTTL    = 6 * time.Hour
	keyCarMakes           = "car_makes_list"
	keyEmirates           = "emirates_list"
	prefixCarModels       = "car_models_"
	prefixGarages         = "garages_emirate_"
	prefixGarageInfo      = "garage_info_"
	prefixRequestStat     = "request_stats_"
	prefixVehicleSearch   = "search_"
	prefixProductVehicles = "product_vehicles_"
)

// Invalidation categories.
const (
	CategoryVehicles  = "vehicles"
	CategoryGarages   = "garages"
	CategoryRequests  = "requests"
	CategoryReference = "reference"
)

// Store is the key-value cache backend. Keys are scoped to one group.
type Store interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	FlushGroup(ctx context.Context) error
	Track(ctx context.Context, category, key string) error
	Tracked(ctx context.Context, category string) ([]string, error)
	Untrack(ctx context.Context, category string, keys ...string) error
}

// Catalog is the reference data source behind the vehicle and garage getters.
type Catalog interface {
	ListMakes(ctx context.Context) ([]string, error)
	ListModels(ctx context.Context, carMake string) ([]domain.Vehicle, error)
	SearchVehicles(ctx context.Context, term string, limit int) ([]domain.Vehicle, error)
	ListProductVehicles(ctx context.Context, productID uint) ([]domain.Vehicle, error)
	ListGaragesByEmirate(ctx context.Context, emirate domain.Emirate) ([]domain.Garage, error)
	GetGarage(ctx context.Context, id uint) (*domain.Garage, error)
}

// StatisticsSource computes request statistics on a cache miss.
type StatisticsSource interface {
	Statistics(ctx context.Context, days int) (*domain.RequestStatistics, error)
}

type Stats struct {
	Group      string        `json:"group"`
	DefaultTTL time.Duration `json:"default_ttl"`
	Backend    string        `json:"backend"`
}

// Service is a read-through cache for reference data. Store failures are
// logged and the value is computed from source instead; no method returns
// a store error.
type Service struct {
	store   Store
	catalog Catalog
	stats   StatisticsSource
	group   string
	backend string
	logger  *zap.Logger
	metrics *observability.Metrics
}

func NewService(store Store, catalog Catalog, stats StatisticsSource, group string, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cache store is required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if stats == nil {
		return nil, fmt.Errorf("statistics source is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   store,
		catalog: catalog,
		stats:   stats,
		group:   group,
		backend: "redis",
		logger:  logger,
	}, nil
}

func (s *Service) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// CarMakes returns the known makes, falling back to DefaultCarMakes when the
// reference store has none.
func (s *Service) CarMakes(ctx context.Context) []string {
	var makes []string
	if s.lookup(ctx, "car_makes", keyCarMakes, &makes) {
		return makes
	}

	makes, err := s.catalog.ListMakes(ctx)
	if err != nil {
		s.logger.Error("failed to load car makes", zap.Error(err))
		return append([]string(nil), domain.DefaultCarMakes...)
	}
	if len(makes) == 0 {
		makes = append([]string(nil), domain.DefaultCarMakes...)
	}
	sort.Strings(makes)

	s.put(ctx, CategoryVehicles, keyCarMakes, makes, carMakesTTL)
	return makes
}

// CarModels returns the reference models for carMake.
func (s *Service) CarModels(ctx context.Context, carMake string) []domain.Vehicle {
	carMake = strings.TrimSpace(carMake)
	if carMake == "" {
		return nil
	}
	key := prefixCarModels + keySegment(carMake)

	var models []domain.Vehicle
	if s.lookup(ctx, "car_models", key, &models) {
		return models
	}

	models, err := s.catalog.ListModels(ctx, carMake)
	if err != nil {
		s.logger.Error("failed to load car models", zap.String("make", carMake), zap.Error(err))
		return nil
	}

	s.put(ctx, CategoryVehicles, key, models, carModelsTTL)
	return models
}

// SearchVehicles returns vehicles whose make or model contains term. Terms
// shorter than MinSearchLength match nothing; limit is clamped to
// MaxSearchLimit.
func (s *Service) SearchVehicles(ctx context.Context, term string, limit int) []domain.Vehicle {
	term = strings.TrimSpace(term)
	if utf8.RuneCountInString(term) < MinSearchLength {
		return nil
	}
	switch {
	case limit <= 0:
		limit = DefaultSearchLimit
	case limit > MaxSearchLimit:
		limit = MaxSearchLimit
	}
	key := fmt.Sprintf("%s%s_%d", prefixVehicleSearch, keySegment(term), limit)

	var vehicles []domain.Vehicle
	if s.lookup(ctx, "vehicle_search", key, &vehicles) {
		return vehicles
	}

	vehicles, err := s.catalog.SearchVehicles(ctx, term, limit)
	if err != nil {
		s.logger.Error("failed to search vehicles", zap.String("term", term), zap.Error(err))
		return nil
	}

	s.put(ctx, CategoryVehicles, key, vehicles, vehicleSearchTTL)
	return vehicles
}

// ProductVehicles returns the vehicles a product is listed as fitting.
func (s *Service) ProductVehicles(ctx context.Context, productID uint) []domain.Vehicle {
	if productID == 0 {
		return nil
	}
	key := fmt.Sprintf("%s%d", prefixProductVehicles, productID)

	var vehicles []domain.Vehicle
	if s.lookup(ctx, "product_vehicles", key, &vehicles) {
		return vehicles
	}

	vehicles, err := s.catalog.ListProductVehicles(ctx, productID)
	if err != nil {
		s.logger.Error("failed to load product vehicles", zap.Uint("productId", productID), zap.Error(err))
		return nil
	}

	s.put(ctx, CategoryVehicles, key, vehicles, productVehiclesTTL)
	return vehicles
}

// ProductCompatible reports whether the product fits carMake carModel. A
// zero year skips the production year check.
func (s *Service) ProductCompatible(ctx context.Context, productID uint, carMake, carModel string, year int) bool {
	for _, v := range s.ProductVehicles(ctx, productID) {
		if v.Fits(carMake, carModel, year) {
			return true
		}
	}
	return false
}

// GaragesByEmirate returns active garages serving emirate.
func (s *Service) GaragesByEmirate(ctx context.Context, emirate domain.Emirate) []domain.Garage {
	if !emirate.IsValid() {
		return nil
	}
	key := prefixGarages + keySegment(emirate.String())

	var garages []domain.Garage
	if s.lookup(ctx, "garages", key, &garages) {
		return garages
	}

	garages, err := s.catalog.ListGaragesByEmirate(ctx, emirate)
	if err != nil {
		s.logger.Error("failed to load garages", zap.String("emirate", emirate.String()), zap.Error(err))
		return nil
	}

	s.put(ctx, CategoryGarages, key, garages, garagesTTL)
	return garages
}

func (s *Service) Emirates(ctx context.Context) []string {
	var emirates []string
	if s.lookup(ctx, "emirates", keyEmirates, &emirates) {
		return emirates
	}

	for _, e := range domain.Emirates() {
		emirates = append(emirates, e.String())
	}

	s.put(ctx, CategoryReference, keyEmirates, emirates, emiratesTTL)
	return emirates
}

// RequestStatistics returns request activity over the trailing days.
func (s *Service) RequestStatistics(ctx context.Context, days int) domain.RequestStatistics {
	if days <= 0 {
		days = 30
	}
	key := fmt.Sprintf("%s%d_days", prefixRequestStat, days)

	var stats domain.RequestStatistics
	if s.lookup(ctx, "request_stats", key, &stats) {
		return stats
	}

	computed, err := s.stats.Statistics(ctx, days)
	if err != nil || computed == nil {
		s.logger.Error("failed to compute request statistics", zap.Int("days", days), zap.Error(err))
		return domain.RequestStatistics{Days: days}
	}

	s.put(ctx, CategoryRequests, key, computed, requestStatsTTL)
	return *computed
}

// GarageInfo returns one garage or nil when it does not exist.
func (s *Service) GarageInfo(ctx context.Context, garageID uint) *domain.Garage {
	if garageID == 0 {
		return nil
	}
	key := fmt.Sprintf("%s%d", prefixGarageInfo, garageID)

	var garage domain.Garage
	if s.lookup(ctx, "garage_info", key, &garage) {
		return &garage
	}

	found, err := s.catalog.GetGarage(ctx, garageID)
	if err != nil {
		s.logger.Error("failed to load garage", zap.Uint("garageId", garageID), zap.Error(err))
		return nil
	}
	if found == nil {
		return nil
	}

	s.put(ctx, CategoryGarages, key, found, garageInfoTTL)
	return found
}

// InvalidateRelated clears every live key recorded under category. Unknown
// categories flush the whole group.
func (s *Service) InvalidateRelated(ctx context.Context, category string) {
	switch category {
	case CategoryVehicles, CategoryGarages, CategoryRequests, CategoryReference:
	default:
		if err := s.store.FlushGroup(ctx); err != nil {
			s.logger.Warn("cache flush failed", zap.String("group", s.group), zap.Error(err))
		}
		return
	}

	keys, err := s.store.Tracked(ctx, category)
	if err != nil {
		s.logger.Warn("cache index read failed", zap.String("category", category), zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}

	// Index entries go before the values so that a fill racing with the
	// delete re-tracks its key instead of losing it.
	if err := s.store.Untrack(ctx, category, keys...); err != nil {
		s.logger.Warn("cache index update failed", zap.String("category", category), zap.Error(err))
		return
	}
	if err := s.store.Delete(ctx, keys...); err != nil {
		s.logger.Warn("cache invalidation failed", zap.String("category", category), zap.Error(err))
		for _, key := range keys {
			if err := s.store.Track(ctx, category, key); err != nil {
				s.logger.Warn("cache index restore failed", zap.String("key", key), zap.Error(err))
			}
		}
	}
}

// InvalidateGarage clears the cached info for one garage and the list of
// its emirate.
func (s *Service) InvalidateGarage(ctx context.Context, garageID uint, emirate domain.Emirate) {
	keys := []string{fmt.Sprintf("%s%d", prefixGarageInfo, garageID)}
	if emirate.IsValid() {
		keys = append(keys, prefixGarages+keySegment(emirate.String()))
	}
	if err := s.store.Delete(ctx, keys...); err != nil {
		s.logger.Warn("garage cache invalidation failed", zap.Uint("garageId", garageID), zap.Error(err))
	}
}

// WarmUp pre-loads the high-traffic keys.
func (s *Service) WarmUp(ctx context.Context) {
	start := time.Now()

	makes := s.CarMakes(ctx)
	s.Emirates(ctx)
	for _, emirate := range domain.Emirates() {
		if ctx.Err() != nil {
			return
		}
		s.GaragesByEmirate(ctx, emirate)
	}
	s.RequestStatistics(ctx, 7)
	s.RequestStatistics(ctx, 30)

	s.logger.Info("cache warmed up",
		zap.Int("makes", len(makes)),
		zap.Duration("duration", time.Since(start)),
	)
}

func (s *Service) Stats() Stats {
	return Stats{Group: s.group, DefaultTTL: DefaultTTL, Backend: s.backend}
}

func (s *Service) lookup(ctx context.Context, dataset, key string, dest any) bool {
	found, err := s.store.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		found = false
	}
	s.metrics.IncCacheLookup(dataset, found)
	return found
}

func (s *Service) put(ctx context.Context, category, key string, value any, ttl time.Duration) {
	if err := s.store.Set(ctx, key, value, ttl); err != nil {
		s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.store.Track(ctx, category, key); err != nil {
		s.logger.Warn("cache index write failed", zap.String("key", key), zap.Error(err))
	}
}

func keySegment(value string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), " ", "_")
}
