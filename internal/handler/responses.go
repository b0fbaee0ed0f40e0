package handler

import (
	"time"

	"github.com/kursadbilgin/fitting-request/internal/domain"
	"github.com/kursadbilgin/fitting-request/internal/service"
)

type requestResponse struct {
	RequestID        string    `json:"requestId"`
	ProductID        uint      `json:"productId"`
	CarMake          string    `json:"carMake"`
	CarModel         string    `json:"carModel"`
	CustomerEmail    string    `json:"customerEmail,omitempty"`
	CustomerWhatsApp string    `json:"customerWhatsapp,omitempty"`
	Emirate          string    `json:"emirate"`
	RequestDate      time.Time `json:"requestDate"`
	GaragesNotified  int       `json:"garagesNotified"`
	Status           string    `json:"status"`
	Priority         int       `json:"priority"`
	UpdatedAt        time.Time `json:"updatedAt,omitempty"`
}

type quoteResponse struct {
	ID             uint      `json:"id"`
	RequestID      string    `json:"requestId"`
	GarageID       uint      `json:"garageId"`
	GarageName     string    `json:"garageName"`
	QuoteAmount    float64   `json:"quoteAmount"`
	EstimatedTime  string    `json:"estimatedTime,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	Status         string    `json:"status"`
	SubmissionDate time.Time `json:"submissionDate"`
}

type statusLogResponse struct {
	OldStatus string    `json:"oldStatus,omitempty"`
	NewStatus string    `json:"newStatus"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type requestStatusResponse struct {
	Request requestResponse     `json:"request"`
	Quotes  []quoteResponse     `json:"quotes"`
	History []statusLogResponse `json:"history"`
}

type garageResponse struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Emirate string `json:"emirate"`
	Status  string `json:"status"`
}

type vehicleResponse struct {
	Make        string `json:"make"`
	Model       string `json:"model"`
	YearFrom    int    `json:"yearFrom,omitempty"`
	YearTo      int    `json:"yearTo,omitempty"`
	EngineType  string `json:"engineType,omitempty"`
	DisplayName string `json:"displayName"`
}

type listRequestsResponse struct {
	Data []requestResponse `json:"data"`
	Meta listMeta          `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

// toRequestResponse omits contact details unless withContact is set; the
// public status page must not echo them back.
func toRequestResponse(r *domain.FittingRequest, withContact bool) requestResponse {
	if r == nil {
		return requestResponse{}
	}
	resp := requestResponse{
		RequestID:       r.RequestID,
		ProductID:       r.ProductID,
		CarMake:         r.CarMake,
		CarModel:        r.CarModel,
		Emirate:         r.SelectedEmirate.String(),
		RequestDate:     r.RequestDate,
		GaragesNotified: r.GaragesNotified,
		Status:          r.Status.String(),
		Priority:        r.Priority,
		UpdatedAt:       r.UpdatedAt,
	}
	if withContact {
		resp.CustomerEmail = r.CustomerEmail
		resp.CustomerWhatsApp = r.CustomerWhatsApp
	}
	return resp
}

func toQuoteResponse(q *domain.Quote) quoteResponse {
	if q == nil {
		return quoteResponse{}
	}
	return quoteResponse{
		ID:             q.ID,
		RequestID:      q.RequestID,
		GarageID:       q.GarageID,
		GarageName:     q.GarageName,
		QuoteAmount:    q.QuoteAmount,
		EstimatedTime:  q.EstimatedTime,
		Notes:          q.Notes,
		Status:         q.Status.String(),
		SubmissionDate: q.SubmissionDate,
	}
}

func toStatusResponse(view *service.RequestView) requestStatusResponse {
	resp := requestStatusResponse{
		Request: toRequestResponse(view.Request, false),
		Quotes:  make([]quoteResponse, 0, len(view.Quotes)),
		History: make([]statusLogResponse, 0, len(view.History)),
	}
	for i := range view.Quotes {
		resp.Quotes = append(resp.Quotes, toQuoteResponse(&view.Quotes[i]))
	}
	for _, entry := range view.History {
		resp.History = append(resp.History, statusLogResponse{
			OldStatus: entry.OldStatus.String(),
			NewStatus: entry.NewStatus.String(),
			Notes:     entry.Notes,
			CreatedAt: entry.CreatedAt,
		})
	}
	return resp
}

func toVehicleResponses(vehicles []domain.Vehicle) []vehicleResponse {
	responses := make([]vehicleResponse, 0, len(vehicles))
	for _, v := range vehicles {
		responses = append(responses, vehicleResponse{
			Make:        v.Make,
			Model:       v.Model,
			YearFrom:    v.YearFrom,
			YearTo:      v.YearTo,
			EngineType:  v.EngineType,
			DisplayName: v.DisplayName(),
		})
	}
	return responses
}
