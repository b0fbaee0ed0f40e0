package validator

import (
	"context"

	"github.com/kursadbilgin/fitting-request/internal/domain"
	"github.com/kursadbilgin/fitting-request/internal/security"
	"go.uber.org/zap"
)

// Garage registration fields.
const (
	FieldGarageName    = "garage_name"
	FieldEmail         = "email"
	FieldWhatsApp      = "whatsapp"
	FieldAddress       = "address"
	FieldContactPerson = "contact_person"
	FieldServices      = "services"
)

type GarageData struct {
	Name          string
	Email         string
	WhatsApp      string
	Emirate       domain.Emirate
	Address       string
	ContactPerson string
	Services      string
}

func (v *Validator) ValidateGarageRegistration(ctx context.Context, form Form) Result[GarageData] {
	if v.honeypotTripped(ctx, form, "garage_registration_honeypot_failed", "Bot detected during garage registration") {
		return securityFailure[GarageData]()
	}

	errs := newFieldErrors()
	var data GarageData

	name := security.SanitizeText(form.get(FieldGarageName))
	switch {
	case name == "":
		errs.add(FieldGarageName, "", "required", "Garage name is required")
	case length(name) < 3:
		errs.add(FieldGarageName, name, "min_length", "Garage name must be at least 3 characters")
	case length(name) > 100:
		errs.add(FieldGarageName, name, "max_length", "Garage name is too long")
	default:
		data.Name = name
	}

	rawEmail := form.get(FieldEmail)
	if rawEmail == "" {
		errs.add(FieldEmail, "", "required", "Email address is required")
	} else if email, ok := security.SanitizeEmail(rawEmail); !ok {
		errs.add(FieldEmail, rawEmail, "email", "Please enter a valid email address")
	} else if v.garageEmailTaken(ctx, email) {
		errs.add(FieldEmail, email, "unique_email", "A garage with this email already exists")
	} else {
		data.Email = email
	}

	rawPhone := form.get(FieldWhatsApp)
	if rawPhone == "" {
		errs.add(FieldWhatsApp, "", "required", "WhatsApp number is required")
	} else if phone, ok := security.SanitizePhone(rawPhone); !ok {
		errs.add(FieldWhatsApp, rawPhone, "uae_phone", "Please enter a valid UAE WhatsApp number")
	} else {
		data.WhatsApp = phone
	}

	if emirate, ok := v.checkEmirate(ctx, form.get(FieldEmirate), FieldEmirate, errs); ok {
		data.Emirate = emirate
	}

	address := security.SanitizeTextarea(form.get(FieldAddress))
	switch {
	case address == "":
		errs.add(FieldAddress, "", "required", "Address is required")
	case length(address) < 10:
		errs.add(FieldAddress, address, "min_length", "Please provide a complete address")
	case length(address) > 500:
		errs.add(FieldAddress, "", "max_length", "Address is too long")
	default:
		data.Address = address
	}

	if contact := security.SanitizeText(form.get(FieldContactPerson)); length(contact) > 100 {
		errs.add(FieldContactPerson, "", "max_length", "Contact person name is too long")
	} else {
		data.ContactPerson = contact
	}

	if services := security.SanitizeTextarea(form.get(FieldServices)); length(services) > 1000 {
		errs.add(FieldServices, "", "max_length", "Services description is too long")
	} else {
		data.Services = services
	}

	return Result[GarageData]{
		IsValid: errs.empty(),
		Errors:  v.report(ctx, errs),
		Data:    data,
	}
}

// garageEmailTaken treats a failed lookup as taken so a registration is never
// accepted on an unverified email.
func (v *Validator) garageEmailTaken(ctx context.Context, email string) bool {
	taken, err := v.catalog.GarageEmailExists(ctx, email)
	if err != nil {
		v.logger.Error("garage email lookup failed", zap.Error(err))
		return true
	}
	return taken
}
