package handler

import (
	"time"

	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	dErrors "github.com/mlongerich/DonationTracker-sub003/pkg/domain-errors"
)

// CreateSponsorshipRequest is the HTTP request body for POST /sponsorships.
type CreateSponsorshipRequest struct {
	DonorID            string `json:"donor_id"`
	ChildID            string `json:"child_id"`
	MonthlyAmountCents int64  `json:"monthly_amount_cents"`
	StartDate          string `json:"start_date"`

	parsedDonorID   id.DonorID
	parsedChildID   id.ChildID
	parsedStartDate time.Time
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateSponsorshipRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}
	if r.MonthlyAmountCents <= 0 {
		return dErrors.NewField("monthly_amount_cents", "must be positive")
	}

	donorID, err := id.ParseDonorID(r.DonorID)
	if err != nil {
		return dErrors.NewField("donor_id", "is invalid")
	}
	r.parsedDonorID = donorID

	childID, err := id.ParseChildID(r.ChildID)
	if err != nil {
		return dErrors.NewField("child_id", "is invalid")
	}
	r.parsedChildID = childID

	if r.StartDate != "" {
		startDate, err := time.Parse(time.DateOnly, r.StartDate)
		if err != nil {
			return dErrors.NewField("start_date", "must be a calendar date")
		}
		r.parsedStartDate = startDate
	}
	return nil
}

// ParsedDonorID returns the validated donor id.
func (r *CreateSponsorshipRequest) ParsedDonorID() id.DonorID { return r.parsedDonorID }

// ParsedChildID returns the validated child id.
func (r *CreateSponsorshipRequest) ParsedChildID() id.ChildID { return r.parsedChildID }

// ParsedStartDate returns the validated start date, zero when absent.
func (r *CreateSponsorshipRequest) ParsedStartDate() time.Time { return r.parsedStartDate }

// EndSponsorshipRequest is the HTTP request body for POST /sponsorships/{id}/end.
type EndSponsorshipRequest struct {
	EndDate string `json:"end_date"`

	parsedEndDate time.Time
}

// Validate validates and parses the request.
func (r *EndSponsorshipRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}
	if r.EndDate != "" {
		endDate, err := time.Parse(time.DateOnly, r.EndDate)
		if err != nil {
			return dErrors.NewField("end_date", "must be a calendar date")
		}
		r.parsedEndDate = endDate
	}
	return nil
}

// ParsedEndDate returns the validated end date, zero when absent.
func (r *EndSponsorshipRequest) ParsedEndDate() time.Time { return r.parsedEndDate }
