package handler

import (
	"github.com/mlongerich/DonationTracker-sub003/internal/donor/identity"
	"github.com/mlongerich/DonationTracker-sub003/internal/donor/models"
	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	dErrors "github.com/mlongerich/DonationTracker-sub003/pkg/domain-errors"
)

// CreateDonorRequest is the HTTP request body for POST /donors.
type CreateDonorRequest struct {
	Name    string         `json:"name"`
	Email   string         `json:"email"`
	Phone   string         `json:"phone"`
	Address models.Address `json:"address"`
}

// Validate validates the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
// Identity fallbacks (anonymous name, derived email) run in the service, so
// blank fields are legal here.
func (r *CreateDonorRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}
	return nil
}

// Identity returns the raw donor identity hints.
func (r *CreateDonorRequest) Identity() identity.Attributes {
	return identity.Attributes{
		Name:    r.Name,
		Email:   r.Email,
		Phone:   r.Phone,
		Address: r.Address,
	}
}

// MergeRequest is the HTTP request body for POST /donors/merge. The first
// id in the list survives; field_selections picks which participant's value
// wins for name, email, phone, and address.
type MergeRequest struct {
	DonorIDs        []string          `json:"donor_ids"`
	FieldSelections map[string]string `json:"field_selections"`

	parsedIDs        []id.DonorID
	parsedSelections map[string]id.DonorID
}

// Validate validates and parses the request. The participant and field
// checks beyond shape live in the service.
func (r *MergeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}
	if len(r.DonorIDs) < 2 {
		return dErrors.New(dErrors.CodeValidation, "merge requires at least two donors")
	}

	r.parsedIDs = make([]id.DonorID, 0, len(r.DonorIDs))
	for _, raw := range r.DonorIDs {
		donorID, err := id.ParseDonorID(raw)
		if err != nil {
			return dErrors.NewField("donor_ids", "contains an invalid id")
		}
		r.parsedIDs = append(r.parsedIDs, donorID)
	}

	r.parsedSelections = make(map[string]id.DonorID, len(r.FieldSelections))
	for field, raw := range r.FieldSelections {
		donorID, err := id.ParseDonorID(raw)
		if err != nil {
			return dErrors.NewField("field_selections", "contains an invalid id")
		}
		r.parsedSelections[field] = donorID
	}
	return nil
}

// ParsedIDs returns the validated merge participants, survivor first.
func (r *MergeRequest) ParsedIDs() []id.DonorID { return r.parsedIDs }

// ParsedSelections returns the validated field selections.
func (r *MergeRequest) ParsedSelections() map[string]id.DonorID { return r.parsedSelections }
