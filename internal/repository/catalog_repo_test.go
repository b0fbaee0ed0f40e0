package repository

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/kursadbilgin/fitting-request/internal/domain"
)

func TestGormCatalogRepo_Vehicles(t *testing.T) {
	t.Parallel()

	repo := NewGormCatalogRepo(newTestDB(t))
	ctx := context.Background()

	seed := []domain.Vehicle{
		{Make: "Toyota", Model: "Camry", YearFrom: 2012, YearTo: 2024},
		{Make: "Toyota", Model: "Corolla", YearFrom: 2014, YearTo: 2024},
		{Make: "BMW", Model: "X5", YearFrom: 2014, YearTo: 2024},
	}
	if err := repo.SeedVehicles(ctx, seed); err != nil {
		t.Fatalf("SeedVehicles() error = %v", err)
	}
	if err := repo.SeedVehicles(ctx, seed[:1]); err != nil {
		t.Fatalf("re-seeding must be a no-op, got %v", err)
	}

	makes, err := repo.ListMakes(ctx)
	if err != nil {
		t.Fatalf("ListMakes() error = %v", err)
	}
	if !reflect.DeepEqual(makes, []string{"BMW", "Toyota"}) {
		t.Fatalf("ListMakes() = %v", makes)
	}

	models, err := repo.ListModels(ctx, "Toyota")
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(models) != 2 || models[0].Model != "Camry" || models[1].Model != "Corolla" {
		t.Fatalf("ListModels() = %+v", models)
	}
}

func TestGormCatalogRepo_GaragesAndProducts(t *testing.T) {
	t.Parallel()

	repo := NewGormCatalogRepo(newTestDB(t))
	ctx := context.Background()

	for _, g := range []*domain.Garage{
		{Name: "Zabeel Motors", Email: "zabeel@example.ae", Emirate: domain.EmirateDubai},
		{Name: "Deira Tyres", Email: "Deira@Example.ae", Emirate: domain.EmirateDubai},
		{Name: "Closed Garage", Email: "closed@example.ae", Emirate: domain.EmirateDubai, Status: domain.GarageStatusInactive},
		{Name: "Sharjah Fit", Email: "shj@example.ae", Emirate: domain.EmirateSharjah},
	} {
		if _, err := repo.CreateGarage(ctx, g); err != nil {
			t.Fatalf("CreateGarage() error = %v", err)
		}
	}

	garages, err := repo.ListGaragesByEmirate(ctx, domain.EmirateDubai)
	if err != nil {
		t.Fatalf("ListGaragesByEmirate() error = %v", err)
	}
	if len(garages) != 2 || garages[0].Name != "Deira Tyres" {
		t.Fatalf("ListGaragesByEmirate() = %+v, want two active garages by name", garages)
	}

	got, err := repo.GetGarage(ctx, garages[0].ID)
	if err != nil || got == nil || got.Name != "Deira Tyres" {
		t.Fatalf("GetGarage() = %+v, %v", got, err)
	}
	if missing, err := repo.GetGarage(ctx, 9999); err != nil || missing != nil {
		t.Fatalf("GetGarage(missing) = %+v, %v, want nil", missing, err)
	}

	exists, err := repo.GarageEmailExists(ctx, " deira@example.ae ")
	if err != nil || !exists {
		t.Fatalf("GarageEmailExists() = %v, %v, want case-insensitive match", exists, err)
	}

	productID, err := repo.CreateProduct(ctx, "All-season tyre")
	if err != nil {
		t.Fatalf("CreateProduct() error = %v", err)
	}
	if ok, err := repo.ProductExists(ctx, productID); err != nil || !ok {
		t.Fatalf("ProductExists() = %v, %v", ok, err)
	}
	if ok, err := repo.ProductExists(ctx, productID+1); err != nil || ok {
		t.Fatalf("ProductExists(missing) = %v, %v", ok, err)
	}
}

func TestGormCatalogRepo_SearchVehicles(t *testing.T) {
	t.Parallel()

	repo := NewGormCatalogRepo(newTestDB(t))
	ctx := context.Background()

	if err := repo.SeedVehicles(ctx, []domain.Vehicle{
		{Make: "Toyota", Model: "Land Cruiser", YearFrom: 2008},
		{Make: "Toyota", Model: "Camry", YearFrom: 2012},
		{Make: "Nissan", Model: "Pathfinder", YearFrom: 2013},
		{Make: "BMW", Model: "X5", YearFrom: 2014},
	}); err != nil {
		t.Fatalf("SeedVehicles() error = %v", err)
	}

	found, err := repo.SearchVehicles(ctx, "TOYO", 20)
	if err != nil {
		t.Fatalf("SearchVehicles() error = %v", err)
	}
	if len(found) != 2 || found[0].Model != "Camry" || found[1].Model != "Land Cruiser" {
		t.Fatalf("SearchVehicles(make) = %+v", found)
	}

	found, err = repo.SearchVehicles(ctx, "find", 20)
	if err != nil || len(found) != 1 || found[0].Make != "Nissan" {
		t.Fatalf("SearchVehicles(model) = %+v, %v", found, err)
	}

	found, err = repo.SearchVehicles(ctx, "a", 1)
	if err != nil || len(found) != 1 {
		t.Fatalf("SearchVehicles(limit 1) = %+v, %v", found, err)
	}

	if found, err := repo.SearchVehicles(ctx, "  ", 20); err != nil || len(found) != 0 {
		t.Fatalf("SearchVehicles(blank) = %+v, %v", found, err)
	}
}

func TestGormCatalogRepo_ProductVehicles(t *testing.T) {
	t.Parallel()

	repo := NewGormCatalogRepo(newTestDB(t))
	ctx := context.Background()

	if err := repo.SeedVehicles(ctx, []domain.Vehicle{
		{Make: "Toyota", Model: "Camry", YearFrom: 2012, YearTo: 2024},
		{Make: "BMW", Model: "X5", YearFrom: 2014},
		{Make: "Honda", Model: "Civic", YearFrom: 2016},
	}); err != nil {
		t.Fatalf("SeedVehicles() error = %v", err)
	}
	camry, err := repo.ListModels(ctx, "Toyota")
	if err != nil || len(camry) != 1 {
		t.Fatalf("ListModels(Toyota) = %+v, %v", camry, err)
	}
	x5, err := repo.ListModels(ctx, "BMW")
	if err != nil || len(x5) != 1 {
		t.Fatalf("ListModels(BMW) = %+v, %v", x5, err)
	}

	productID, err := repo.CreateProduct(ctx, "Roof rack")
	if err != nil {
		t.Fatalf("CreateProduct() error = %v", err)
	}
	if err := repo.LinkProductVehicles(ctx, productID, camry[0].ID, x5[0].ID); err != nil {
		t.Fatalf("LinkProductVehicles() error = %v", err)
	}
	if err := repo.LinkProductVehicles(ctx, productID, camry[0].ID); err != nil {
		t.Fatalf("re-linking must be a no-op, got %v", err)
	}

	vehicles, err := repo.ListProductVehicles(ctx, productID)
	if err != nil {
		t.Fatalf("ListProductVehicles() error = %v", err)
	}
	if len(vehicles) != 2 || vehicles[0].Make != "BMW" || vehicles[1].Model != "Camry" || vehicles[1].YearTo != 2024 {
		t.Fatalf("ListProductVehicles() = %+v", vehicles)
	}

	if none, err := repo.ListProductVehicles(ctx, productID+1); err != nil || len(none) != 0 {
		t.Fatalf("ListProductVehicles(unlinked) = %+v, %v", none, err)
	}
	if err := repo.LinkProductVehicles(ctx, 0, camry[0].ID); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("LinkProductVehicles(0) error = %v, want ErrValidation", err)
	}
}
