package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/fitting-request/internal/domain"
	"github.com/kursadbilgin/fitting-request/internal/repository"
	"github.com/kursadbilgin/fitting-request/internal/service"
	"github.com/kursadbilgin/fitting-request/internal/validator"
)

const (
	defaultPage     = 1
	defaultPageSize = 20
	maxPageSize     = 100
)

type RequestService interface {
	Submit(ctx context.Context, form validator.Form) (*service.SubmitResult, error)
	Status(ctx context.Context, requestID string) (*service.RequestView, error)
	ChangeStatus(ctx context.Context, requestID, status, notes string) error
	List(ctx context.Context, params repository.RequestListParams) ([]domain.FittingRequest, int64, error)
	Feedback(ctx context.Context, requestID string, form validator.Form) error
}

type QuoteService interface {
	Submit(ctx context.Context, form validator.Form) (*domain.Quote, error)
}

type GarageService interface {
	Register(ctx context.Context, form validator.Form, license validator.FileUpload) (*domain.Garage, error)
}

type RequestHandler struct {
	requests RequestService
	quotes   QuoteService
	garages  GarageService
}

func NewRequestHandler(requests RequestService, quotes QuoteService, garages GarageService) (*RequestHandler, error) {
	if requests == nil {
		return nil, fmt.Errorf("request service is required")
	}
	if quotes == nil {
		return nil, fmt.Errorf("quote service is required")
	}
	if garages == nil {
		return nil, fmt.Errorf("garage service is required")
	}
	return &RequestHandler{requests: requests, quotes: quotes, garages: garages}, nil
}

type changeStatusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

func (h *RequestHandler) SubmitRequest(c *fiber.Ctx) error {
	form, err := parseForm(c)
	if err != nil {
		return err
	}

	result, err := h.requests.Submit(c.UserContext(), form)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"requestId":       result.RequestID,
		"status":          result.Status.String(),
		"garagesNotified": result.GaragesNotified,
		"message":         "Your request has been submitted successfully.",
	})
}

func (h *RequestHandler) GetRequest(c *fiber.Ctx) error {
	view, err := h.requests.Status(c.UserContext(), c.Params("requestId"))
	if err != nil {
		return err
	}
	return c.JSON(toStatusResponse(view))
}

func (h *RequestHandler) SubmitFeedback(c *fiber.Ctx) error {
	form, err := parseForm(c)
	if err != nil {
		return err
	}

	if err := h.requests.Feedback(c.UserContext(), c.Params("requestId"), form); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Thank you for your feedback."})
}

func (h *RequestHandler) SubmitQuote(c *fiber.Ctx) error {
	form, err := parseForm(c)
	if err != nil {
		return err
	}

	quote, err := h.quotes.Submit(c.UserContext(), form)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toQuoteResponse(quote))
}

func (h *RequestHandler) RegisterGarage(c *fiber.Ctx) error {
	form, err := parseForm(c)
	if err != nil {
		return err
	}
	license, closeFile := formFile(c, service.LicenseField)
	defer closeFile()

	garage, err := h.garages.Register(c.UserContext(), form, license)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(garageResponse{
		ID:      garage.ID,
		Name:    garage.Name,
		Emirate: garage.Emirate.String(),
		Status:  string(garage.Status),
	})
}

func (h *RequestHandler) ChangeStatus(c *fiber.Ctx) error {
	var req changeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.requests.ChangeStatus(c.UserContext(), c.Params("requestId"), req.Status, req.Notes); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *RequestHandler) ListRequests(c *fiber.Ctx) error {
	params, err := parseListParams(c)
	if err != nil {
		return err
	}

	requests, total, err := h.requests.List(c.UserContext(), params)
	if err != nil {
		return err
	}

	data := make([]requestResponse, 0, len(requests))
	for i := range requests {
		data = append(data, toRequestResponse(&requests[i], true))
	}
	return c.JSON(listRequestsResponse{
		Data: data,
		Meta: listMeta{Page: params.Page, PageSize: params.PageSize, Total: total},
	})
}

func parseListParams(c *fiber.Ctx) (repository.RequestListParams, error) {
	params := repository.RequestListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}
	if params.Page < 1 {
		params.Page = defaultPage
	}
	if params.PageSize < 1 {
		params.PageSize = defaultPageSize
	}
	if params.PageSize > maxPageSize {
		params.PageSize = maxPageSize
	}

	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status, err := domain.ParseRequestStatusFromString(raw)
		if err != nil {
			return params, err
		}
		params.Status = &status
	}
	if raw := strings.TrimSpace(c.Query("emirate")); raw != "" {
		emirate, err := domain.ParseEmirateFromString(raw)
		if err != nil {
			return params, err
		}
		params.Emirate = &emirate
	}
	return params, nil
}
