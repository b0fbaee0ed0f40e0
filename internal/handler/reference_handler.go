package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/fitting-request/internal/cache"
	"github.com/kursadbilgin/fitting-request/internal/domain"
	"github.com/kursadbilgin/fitting-request/internal/security"
)

type ReferenceData interface {
	CarMakes(ctx context.Context) []string
	CarModels(ctx context.Context, carMake string) []domain.Vehicle
	SearchVehicles(ctx context.Context, term string, limit int) []domain.Vehicle
	ProductVehicles(ctx context.Context, productID uint) []domain.Vehicle
	ProductCompatible(ctx context.Context, productID uint, carMake, carModel string, year int) bool
	Emirates(ctx context.Context) []string
}

type CSRFIssuer interface {
	GenerateCSRF(action string) string
}

type ReferenceHandler struct {
	reference ReferenceData
	csrf      CSRFIssuer
}

func NewReferenceHandler(reference ReferenceData, csrf CSRFIssuer) (*ReferenceHandler, error) {
	if reference == nil {
		return nil, fmt.Errorf("reference data is required")
	}
	if csrf == nil {
		return nil, fmt.Errorf("csrf issuer is required")
	}
	return &ReferenceHandler{reference: reference, csrf: csrf}, nil
}

func (h *ReferenceHandler) ListMakes(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.reference.CarMakes(c.UserContext())})
}

func (h *ReferenceHandler) ListModels(c *fiber.Ctx) error {
	carMake := strings.TrimSpace(c.Query("make"))
	if carMake == "" {
		return fiber.NewError(fiber.StatusBadRequest, "make is required")
	}
	models := h.reference.CarModels(c.UserContext(), carMake)
	return c.JSON(fiber.Map{"data": toVehicleResponses(models)})
}

// SearchVehicles matches q against makes and models.
func (h *ReferenceHandler) SearchVehicles(c *fiber.Ctx) error {
	term := security.SanitizeText(c.Query("q"))
	if utf8.RuneCountInString(term) < cache.MinSearchLength {
		return fiber.NewError(fiber.StatusBadRequest, "Search term must be at least 2 characters")
	}
	limit := c.QueryInt("limit", cache.DefaultSearchLimit)

	vehicles := h.reference.SearchVehicles(c.UserContext(), term, limit)
	return c.JSON(fiber.Map{"data": toVehicleResponses(vehicles), "count": len(vehicles)})
}

func (h *ReferenceHandler) ListProductVehicles(c *fiber.Ctx) error {
	productID, err := productIDParam(c)
	if err != nil {
		return err
	}
	vehicles := h.reference.ProductVehicles(c.UserContext(), productID)
	return c.JSON(fiber.Map{"data": toVehicleResponses(vehicles)})
}

// CheckCompatibility reports whether the product fits the make and model in
// the query, optionally for one production year.
func (h *ReferenceHandler) CheckCompatibility(c *fiber.Ctx) error {
	productID, err := productIDParam(c)
	if err != nil {
		return err
	}
	carMake := security.SanitizeText(c.Query("make"))
	carModel := security.SanitizeText(c.Query("model"))
	if carMake == "" || carModel == "" {
		return fiber.NewError(fiber.StatusBadRequest, "make and model are required")
	}
	year := 0
	if raw := strings.TrimSpace(c.Query("year")); raw != "" {
		year, err = strconv.Atoi(raw)
		if err != nil || year < 1900 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid year")
		}
	}

	compatible := h.reference.ProductCompatible(c.UserContext(), productID, carMake, carModel, year)
	return c.JSON(fiber.Map{"productId": productID, "compatible": compatible})
}

func (h *ReferenceHandler) ListEmirates(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.reference.Emirates(c.UserContext())})
}

// IssueCSRF returns a nonce for the form action, with a fresh honeypot field
// name the form should render hidden.
func (h *ReferenceHandler) IssueCSRF(c *fiber.Ctx) error {
	action := strings.TrimSpace(c.Query("action"))
	if action == "" {
		action = security.DefaultCSRFAction
	}
	return c.JSON(fiber.Map{
		"nonce":         h.csrf.GenerateCSRF(action),
		"action":        action,
		"honeypotField": security.HoneypotFieldName(),
	})
}

func productIDParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("productId"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid product id")
	}
	return uint(id), nil
}
