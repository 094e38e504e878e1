package handler

import (
	"github.com/mlongerich/DonationTracker-sub003/internal/donation/models"
	"github.com/mlongerich/DonationTracker-sub003/internal/donation/service"
	donormodels "github.com/mlongerich/DonationTracker-sub003/internal/donor/models"
)

// CreateDonationResponse is the HTTP response for POST /donations.
type CreateDonationResponse struct {
	Donation           *models.Donation   `json:"donation"`
	Donor              *donormodels.Donor `json:"donor"`
	DonorCreated       bool               `json:"donor_created"`
	SponsorshipCreated bool               `json:"sponsorship_created"`
	Flagged            bool               `json:"duplicate_subscription_flagged"`
}

// FromCreateResult converts a service create result to an HTTP response.
func FromCreateResult(result *service.CreateResult) *CreateDonationResponse {
	return &CreateDonationResponse{
		Donation:           result.Donation,
		Donor:              result.Donor,
		DonorCreated:       result.DonorCreated,
		SponsorshipCreated: result.SponsorshipCreated,
		Flagged:            result.Flagged,
	}
}

// ListDonationsResponse is the HTTP response for GET /donations.
type ListDonationsResponse struct {
	Donations []*models.Donation `json:"donations"`
}
