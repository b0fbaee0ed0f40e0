package validator

import (
	"context"
	"strconv"

	"github.com/kursadbilgin/fitting-request/internal/security"
)

const (
	FieldRating  = "rating"
	FieldComment = "comment"
)

type FeedbackData struct {
	RequestID string
	Rating    int
	Comment   string
}

func (v *Validator) ValidateFeedback(ctx context.Context, form Form) Result[FeedbackData] {
	errs := newFieldErrors()
	var data FeedbackData

	if requestID := security.SanitizeText(form.get(FieldRequestID)); requestID == "" {
		errs.add(FieldRequestID, "", "required", "Request ID is required")
	} else {
		data.RequestID = requestID
	}

	rawRating := form.get(FieldRating)
	rating, err := strconv.Atoi(rawRating)
	switch {
	case rawRating == "" || err != nil:
		errs.add(FieldRating, rawRating, "required", "Please select a rating")
	case rating < 1 || rating > 5:
		errs.add(FieldRating, rawRating, "range", "Rating must be between 1 and 5")
	default:
		data.Rating = rating
	}

	if comment := security.SanitizeTextarea(form.get(FieldComment)); length(comment) > 1000 {
		errs.add(FieldComment, "", "max_length", "Comment is too long (maximum 1000 characters)")
	} else {
		data.Comment = comment
	}

	return Result[FeedbackData]{
		IsValid: errs.empty(),
		Errors:  v.report(ctx, errs),
		Data:    data,
	}
}
