package handler

import (
	"github.com/mlongerich/DonationTracker-sub003/internal/donor/models"
	"github.com/mlongerich/DonationTracker-sub003/internal/donor/service"
	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
)

// ListDonorsResponse is the HTTP response for GET /donors.
type ListDonorsResponse struct {
	Donors []*models.Donor `json:"donors"`
}

// MergeResponse is the HTTP response for POST /donors/merge.
type MergeResponse struct {
	Survivor               *models.Donor `json:"survivor"`
	MergedIDs              []id.DonorID  `json:"merged_ids"`
	DonationsReassigned    int           `json:"donations_reassigned"`
	SponsorshipsReassigned int           `json:"sponsorships_reassigned"`
}

// FromMergeResult converts a service merge result to an HTTP response.
func FromMergeResult(result *service.MergeResult) *MergeResponse {
	return &MergeResponse{
		Survivor:               result.Survivor,
		MergedIDs:              result.MergedIDs,
		DonationsReassigned:    result.DonationsReassigned,
		SponsorshipsReassigned: result.SponsorshipsReassigned,
	}
}
