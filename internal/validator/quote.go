package validator

import (
	"context"
	"encoding/json"
	"math"
	"strconv"

	"github.com/kursadbilgin/fitting-request/internal/domain"
	"github.com/kursadbilgin/fitting-request/internal/security"
)

// Quote form fields.
const (
	FieldToken         = "token"
	FieldRequestID     = "request_id"
	FieldGarageID      = "garage_id"
	FieldQuoteAmount   = "quote_amount"
	FieldEstimatedTime = "estimated_time"
	FieldNotes         = "notes"
)

// QuoteClaims is the payload of a garage's quote link token.
type QuoteClaims struct {
	RequestID string `json:"request_id"`
	GarageID  uint   `json:"garage_id"`
}

type QuoteData struct {
	Token         string
	Claims        QuoteClaims
	RequestID     string
	GarageID      uint
	QuoteAmount   float64
	EstimatedTime string
	Notes         string
}

// ValidateQuote checks a garage quote submission. The token is inspected but
// not consumed; the caller consumes it once the quote is accepted.
func (v *Validator) ValidateQuote(ctx context.Context, form Form) Result[QuoteData] {
	errs := newFieldErrors()
	var data QuoteData

	token := form.get(FieldToken)
	if token == "" {
		errs.add(FieldToken, "", "required", "Invalid access token")
	} else if raw, ok := v.security.InspectToken(ctx, token, nil); !ok {
		errs.add(FieldToken, "", "token", "Access token expired or invalid")
	} else if err := json.Unmarshal(raw, &data.Claims); err != nil {
		errs.add(FieldToken, "", "token", "Access token expired or invalid")
	} else {
		data.Token = token
	}

	requestID := security.SanitizeText(form.get(FieldRequestID))
	if requestID == "" {
		errs.add(FieldRequestID, "", "required", "Request ID is required")
	} else {
		data.RequestID = requestID
	}

	rawGarage := form.get(FieldGarageID)
	garageID, err := strconv.ParseUint(rawGarage, 10, 64)
	switch {
	case rawGarage == "" || err != nil || garageID == 0:
		errs.add(FieldGarageID, rawGarage, "numeric", "Invalid garage ID")
	case v.reference.GarageInfo(ctx, uint(garageID)) == nil:
		errs.add(FieldGarageID, rawGarage, "garage_exists", "Garage not found")
	default:
		data.GarageID = uint(garageID)
	}

	if data.Token != "" && data.RequestID != "" && data.GarageID != 0 {
		if data.Claims.RequestID != data.RequestID || data.Claims.GarageID != data.GarageID {
			errs.add(FieldToken, "", "token_claims", "Access token does not match this request")
			data.Token = ""
		}
	}

	rawAmount := form.get(FieldQuoteAmount)
	amount, err := strconv.ParseFloat(rawAmount, 64)
	switch {
	case rawAmount == "" || err != nil || math.IsNaN(amount) || math.IsInf(amount, 0):
		errs.add(FieldQuoteAmount, rawAmount, "numeric", "Quote amount is required")
	case amount <= 0:
		errs.add(FieldQuoteAmount, rawAmount, "positive", "Quote amount must be greater than zero")
	case amount > domain.MaxQuoteAmount:
		errs.add(FieldQuoteAmount, rawAmount, "max_amount", "Quote amount is too high")
	default:
		data.QuoteAmount = math.Round(amount*100) / 100
	}

	if estimated := security.SanitizeText(form.get(FieldEstimatedTime)); length(estimated) > domain.MaxEstimatedTimeChars {
		errs.add(FieldEstimatedTime, estimated, "max_length", "Estimated time is too long")
	} else {
		data.EstimatedTime = estimated
	}

	if notes := security.SanitizeTextarea(form.get(FieldNotes)); length(notes) > domain.MaxQuoteNotesChars {
		errs.add(FieldNotes, "", "max_length", "Notes are too long (maximum 1000 characters)")
	} else {
		data.Notes = notes
	}

	return Result[QuoteData]{
		IsValid: errs.empty(),
		Errors:  v.report(ctx, errs),
		Data:    data,
	}
}
