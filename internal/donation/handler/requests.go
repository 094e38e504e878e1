package handler

import (
	"strings"
	"time"

	"github.com/mlongerich/DonationTracker-sub003/internal/donor/identity"
	donormodels "github.com/mlongerich/DonationTracker-sub003/internal/donor/models"
	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	dErrors "github.com/mlongerich/DonationTracker-sub003/pkg/domain-errors"
)

// CreateDonationRequest is the HTTP request body for POST /donations.
type CreateDonationRequest struct {
	DonorID                string       `json:"donor_id"`
	Donor                  DonorDetails `json:"donor"`
	ProjectID              string       `json:"project_id"`
	ChildID                string       `json:"child_id"`
	AmountCents            int64        `json:"amount_cents"`
	Date                   string       `json:"date"`
	PaymentMethod          string       `json:"payment_method"`
	Status                 string       `json:"status"`
	ExternalSubscriptionID string       `json:"external_subscription_id"`
	ExternalInvoiceID      string       `json:"external_invoice_id"`
	ExternalChargeID       string       `json:"external_charge_id"`

	// Parsed values (populated by Validate)
	parsedDonorID   *id.DonorID
	parsedProjectID *id.ProjectID
	parsedChildID   *id.ChildID
	parsedDate      time.Time
}

// DonorDetails carries the raw donor identity hints for resolution.
type DonorDetails struct {
	Name    string              `json:"name"`
	Email   string              `json:"email"`
	Phone   string              `json:"phone"`
	Address donormodels.Address `json:"address"`
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateDonationRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}
	if r.AmountCents <= 0 {
		return dErrors.NewField("amount_cents", "must be positive")
	}
	r.PaymentMethod = strings.TrimSpace(r.PaymentMethod)
	if r.PaymentMethod == "" {
		return dErrors.NewField("payment_method", "is required")
	}

	if r.DonorID != "" {
		donorID, err := id.ParseDonorID(r.DonorID)
		if err != nil {
			return dErrors.NewField("donor_id", "is invalid")
		}
		r.parsedDonorID = &donorID
	}
	if r.ProjectID != "" {
		projectID, err := id.ParseProjectID(r.ProjectID)
		if err != nil {
			return dErrors.NewField("project_id", "is invalid")
		}
		r.parsedProjectID = &projectID
	}
	if r.ChildID != "" {
		childID, err := id.ParseChildID(r.ChildID)
		if err != nil {
			return dErrors.NewField("child_id", "is invalid")
		}
		r.parsedChildID = &childID
	}
	if r.ChildID != "" && r.ProjectID != "" {
		return dErrors.New(dErrors.CodeValidation, "child_id and project_id are mutually exclusive")
	}

	if r.Date != "" {
		date, err := parseDate(r.Date)
		if err != nil {
			return dErrors.NewField("date", "must be a calendar date or RFC 3339 timestamp")
		}
		r.parsedDate = date
	}
	return nil
}

// Identity returns the raw donor identity hints.
func (r *CreateDonationRequest) Identity() identity.Attributes {
	return identity.Attributes{
		Name:    r.Donor.Name,
		Email:   r.Donor.Email,
		Phone:   r.Donor.Phone,
		Address: r.Donor.Address,
	}
}

// ParsedDonorID returns the validated donor id, if given.
func (r *CreateDonationRequest) ParsedDonorID() *id.DonorID { return r.parsedDonorID }

// ParsedProjectID returns the validated project id, if given.
func (r *CreateDonationRequest) ParsedProjectID() *id.ProjectID { return r.parsedProjectID }

// ParsedChildID returns the validated child id, if given.
func (r *CreateDonationRequest) ParsedChildID() *id.ChildID { return r.parsedChildID }

// ParsedDate returns the validated date, zero when absent.
func (r *CreateDonationRequest) ParsedDate() time.Time { return r.parsedDate }

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
