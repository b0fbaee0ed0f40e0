package validator

import (
	"context"
	"strconv"

	"github.com/kursadbilgin/fitting-request/internal/domain"
	"github.com/kursadbilgin/fitting-request/internal/security"
	"go.uber.org/zap"
)

// Request form fields.
const (
	FieldNonce            = "nonce"
	FieldProductID        = "product_id"
	FieldEmirate          = "emirate"
	FieldCarMake          = "car_make"
	FieldCarModel         = "car_model"
	FieldCustomerEmail    = "customer_email"
	FieldCustomerWhatsApp = "customer_whatsapp"
)

type RequestData struct {
	ProductID        uint
	Emirate          domain.Emirate
	CarMake          string
	CarModel         string
	CustomerEmail    string
	CustomerWhatsApp string
}

// ValidateRequest checks a fitting request submission. A tripped honeypot
// or a bad CSRF nonce fails fast with one generic error; every other field
// is checked independently.
func (v *Validator) ValidateRequest(ctx context.Context, form Form) Result[RequestData] {
	if v.honeypotTripped(ctx, form, "honeypot_failed", "Bot detected via honeypot field") {
		return securityFailure[RequestData]()
	}
	if !v.security.ValidateCSRF(form.get(FieldNonce), security.DefaultCSRFAction) {
		if v.incidents != nil {
			v.incidents.LogSecurityIncident(ctx, "csrf_failed", "CSRF nonce verification failed",
				map[string]any{"action": security.DefaultCSRFAction})
		}
		return securityFailure[RequestData]()
	}

	errs := newFieldErrors()
	var data RequestData

	v.checkProduct(ctx, form.get(FieldProductID), errs, &data)

	if emirate, ok := v.checkEmirate(ctx, form.get(FieldEmirate), FieldEmirate, errs); ok {
		data.Emirate = emirate
	}

	carMake := security.SanitizeText(form.get(FieldCarMake))
	switch {
	case carMake == "":
		errs.add(FieldCarMake, "", "required", "Please select your car make")
	case !contains(v.reference.CarMakes(ctx), carMake):
		errs.add(FieldCarMake, carMake, "car_make", "Invalid car make selected")
	default:
		data.CarMake = carMake
	}

	carModel := security.SanitizeText(form.get(FieldCarModel))
	switch {
	case carModel == "":
		errs.add(FieldCarModel, "", "required", "Please select your car model")
	case errs.has(FieldCarMake):
		// Without a valid make there is nothing to cross-check against.
		data.CarModel = carModel
	case !hasModel(v.reference.CarModels(ctx, data.CarMake), carModel):
		errs.add(FieldCarModel, carModel, "car_model", "Invalid car model selected")
	default:
		data.CarModel = carModel
	}

	rawEmail := form.get(FieldCustomerEmail)
	if rawEmail == "" {
		errs.add(FieldCustomerEmail, "", "required", "Email address is required")
	} else if email, ok := security.SanitizeEmail(rawEmail); !ok {
		errs.add(FieldCustomerEmail, rawEmail, "email", "Please enter a valid email address")
	} else {
		data.CustomerEmail = email
	}

	rawPhone := form.get(FieldCustomerWhatsApp)
	if rawPhone == "" {
		errs.add(FieldCustomerWhatsApp, "", "required", "WhatsApp number is required")
	} else if phone, ok := security.SanitizePhone(rawPhone); !ok {
		errs.add(FieldCustomerWhatsApp, rawPhone, "uae_phone", "Please enter a valid UAE WhatsApp number")
	} else {
		data.CustomerWhatsApp = phone
	}

	return Result[RequestData]{
		IsValid: errs.empty(),
		Errors:  v.report(ctx, errs),
		Data:    data,
	}
}

func (v *Validator) checkProduct(ctx context.Context, raw string, errs *fieldErrors, data *RequestData) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if raw == "" || err != nil || id == 0 {
		errs.add(FieldProductID, raw, "numeric", "Invalid product selected")
		return
	}

	exists, err := v.catalog.ProductExists(ctx, uint(id))
	if err != nil {
		v.logger.Error("product lookup failed", zap.Uint64("productId", id), zap.Error(err))
	}
	if !exists {
		errs.add(FieldProductID, raw, "product_exists", "Product not found")
		return
	}
	data.ProductID = uint(id)
}

func (v *Validator) checkEmirate(ctx context.Context, raw, field string, errs *fieldErrors) (domain.Emirate, bool) {
	value := security.SanitizeText(raw)
	if value == "" {
		errs.add(field, "", "required", "Please select your emirate")
		return "", false
	}
	if !contains(v.reference.Emirates(ctx), value) {
		errs.add(field, value, "emirate", "Invalid emirate selected")
		return "", false
	}
	return domain.Emirate(value), true
}

func hasModel(models []domain.Vehicle, name string) bool {
	for _, m := range models {
		if m.Model == name {
			return true
		}
	}
	return false
}
