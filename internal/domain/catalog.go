package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// GarageStatus marks whether a garage takes part in notification fan-out.
type GarageStatus string

const (
	GarageStatusActive   GarageStatus = "active"
	GarageStatusInactive GarageStatus = "inactive"
)

// Garage is a service provider that receives requests and submits quotes.
type Garage struct {
	ID            uint
	Name          string
	Email         string
	WhatsApp      string
	Emirate       Emirate
	Address       string
	ContactPerson string
	Services      string
	Status        GarageStatus
}

// Vehicle is one make/model reference entry.
type Vehicle struct {
	ID         uint
	Make       string
	Model      string
	YearFrom   int
	YearTo     int
	EngineType string
}

// CoversYear reports whether the model was produced in year. Zero bounds are open.
func (v Vehicle) CoversYear(year int) bool {
	if v.YearFrom != 0 && year < v.YearFrom {
		return false
	}
	if v.YearTo != 0 && year > v.YearTo {
		return false
	}
	return true
}

// Fits reports whether v is carMake carModel, compared case-insensitively,
// built in year. A zero year matches any production year.
func (v Vehicle) Fits(carMake, carModel string, year int) bool {
	if !strings.EqualFold(v.Make, strings.TrimSpace(carMake)) || !strings.EqualFold(v.Model, strings.TrimSpace(carModel)) {
		return false
	}
	return year == 0 || v.CoversYear(year)
}

// DisplayName renders "Make Model (from-to)"; an open upper bound reads Present.
func (v Vehicle) DisplayName() string {
	name := v.Make + " " + v.Model
	if v.YearFrom == 0 {
		return name
	}
	to := "Present"
	if v.YearTo != 0 {
		to = strconv.Itoa(v.YearTo)
	}
	return fmt.Sprintf("%s (%d-%s)", name, v.YearFrom, to)
}

// Product is a catalog item a customer wants fitted.
type Product struct {
	ID   uint
	Name string
}
