package handler

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/fitting-request/internal/domain"
	"github.com/kursadbilgin/fitting-request/internal/repository"
	"github.com/kursadbilgin/fitting-request/internal/settings"
)

type SettingsService interface {
	Get(ctx context.Context) settings.Settings
	Update(ctx context.Context, overrides settings.Overrides) (settings.Settings, error)
}

type StatisticsSource interface {
	RequestStatistics(ctx context.Context, days int) domain.RequestStatistics
}

type ErrorLog interface {
	Statistics(ctx context.Context, days int) (*repository.ErrorStatistics, error)
	MarkResolved(ctx context.Context, ids []uint) (int64, error)
}

type AdminHandler struct {
	settings SettingsService
	stats    StatisticsSource
	errors   ErrorLog
}

func NewAdminHandler(settingsService SettingsService, stats StatisticsSource, errorLog ErrorLog) (*AdminHandler, error) {
	if settingsService == nil {
		return nil, fmt.Errorf("settings service is required")
	}
	if stats == nil {
		return nil, fmt.Errorf("statistics source is required")
	}
	if errorLog == nil {
		return nil, fmt.Errorf("error log is required")
	}
	return &AdminHandler{settings: settingsService, stats: stats, errors: errorLog}, nil
}

type resolveErrorsRequest struct {
	IDs []uint `json:"ids"`
}

// GetSettings, Statistics and ErrorStatistics rely on the admin middleware for access.
func (h *AdminHandler) GetSettings(c *fiber.Ctx) error {
	return c.JSON(h.settings.Get(c.UserContext()))
}

func (h *AdminHandler) UpdateSettings(c *fiber.Ctx) error {
	var overrides settings.Overrides
	if err := c.BodyParser(&overrides); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	updated, err := h.settings.Update(c.UserContext(), overrides)
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

func (h *AdminHandler) Statistics(c *fiber.Ctx) error {
	return c.JSON(h.stats.RequestStatistics(c.UserContext(), c.QueryInt("days", 30)))
}

func (h *AdminHandler) ErrorStatistics(c *fiber.Ctx) error {
	stats, err := h.errors.Statistics(c.UserContext(), c.QueryInt("days", 7))
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

func (h *AdminHandler) ResolveErrors(c *fiber.Ctx) error {
	var req resolveErrorsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.IDs) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "ids are required")
	}

	resolved, err := h.errors.MarkResolved(c.UserContext(), req.IDs)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"resolved": resolved})
}
