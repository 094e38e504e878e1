package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/mlongerich/DonationTracker-sub003/internal/audit"
	"github.com/mlongerich/DonationTracker-sub003/internal/donor/models"
	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	dErrors "github.com/mlongerich/DonationTracker-sub003/pkg/domain-errors"
	"github.com/mlongerich/DonationTracker-sub003/pkg/platform/sentinel"
	"github.com/mlongerich/DonationTracker-sub003/pkg/requestcontext"
)

// Fields a merge selection may name.
const (
	FieldName    = "name"
	FieldEmail   = "email"
	FieldPhone   = "phone"
	FieldAddress = "address"
)

var mergeableFields = map[string]bool{
	FieldName:    true,
	FieldEmail:   true,
	FieldPhone:   true,
	FieldAddress: true,
}

// MergeResult reports what a merge did.
type MergeResult struct {
	Survivor               *models.Donor
	MergedIDs              []id.DonorID
	DonationsReassigned    int
	SponsorshipsReassigned int
}

// Merge collapses two or more donor records into the first one listed. Field
// selections name, per field, which participant's value the survivor keeps;
// unselected fields keep the survivor's own values. Losing records are
// archived with a merged_into marker, their donations and sponsorships
// reassigned, all in one transaction.
func (s *Service) Merge(ctx context.Context, ids []id.DonorID, fieldSelections map[string]id.DonorID) (*MergeResult, error) {
	if len(ids) < 2 {
		return nil, dErrors.New(dErrors.CodeValidation, "merge requires at least two donors")
	}
	seen := make(map[id.DonorID]bool, len(ids))
	for _, donorID := range ids {
		if donorID.IsZero() {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "donor id is required")
		}
		if seen[donorID] {
			return nil, dErrors.New(dErrors.CodeValidation, "duplicate donor id in merge list")
		}
		seen[donorID] = true
	}
	for field, donorID := range fieldSelections {
		if !mergeableFields[field] {
			return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown merge field %q", field))
		}
		if !seen[donorID] {
			return nil, dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("field %q selects a donor that is not part of the merge", field))
		}
	}

	var result MergeResult
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		participants := make(map[id.DonorID]*models.Donor, len(ids))
		for _, donorID := range ids {
			donor, err := s.donors.FindByID(txCtx, donorID)
			if err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					return dErrors.New(dErrors.CodeNotFound, "donor "+donorID.String()+" not found")
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load donor")
			}
			if donor.IsMerged() {
				return dErrors.New(dErrors.CodeValidation, "donor "+donorID.String()+" has already been merged")
			}
			participants[donorID] = donor
		}

		// Refuse up front: moving rows is not undone under the in-memory
		// stores, so no loser may be touched once a conflict is possible.
		conflicted, err := s.sponsorships.ActiveSlotConflicts(txCtx, ids)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check sponsorship conflicts")
		}
		if conflicted {
			return dErrors.New(dErrors.CodeConflict, "donors hold conflicting active sponsorships")
		}

		survivor := participants[ids[0]]
		applySelections(survivor, participants, fieldSelections)

		now := requestcontext.Now(txCtx)

		// Losers first: archiving them frees their live-email slots before the
		// survivor's update can claim a selected email.
		for _, loserID := range ids[1:] {
			donations, err := s.donations.ReassignDonor(txCtx, loserID, survivor.ID)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reassign donations")
			}
			sponsorships, err := s.sponsorships.ReassignDonor(txCtx, loserID, survivor.ID)
			if err != nil {
				if errors.Is(err, sentinel.ErrConflict) {
					return dErrors.New(dErrors.CodeConflict, "donors hold conflicting active sponsorships")
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reassign sponsorships")
			}
			result.DonationsReassigned += donations
			result.SponsorshipsReassigned += sponsorships

			loser := participants[loserID]
			loser.MergeInto(survivor.ID, now)
			if err := s.donors.Update(txCtx, loser); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark donor merged")
			}
			result.MergedIDs = append(result.MergedIDs, loserID)
		}

		survivor.UpdatedAt = now
		if err := s.donors.Update(txCtx, survivor); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.NewField("email", "has already been taken")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update surviving donor")
		}
		result.Survivor = survivor
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.DonorsMerged.Add(float64(len(result.MergedIDs)))
	}
	s.logAudit(ctx, audit.ActionDonorMerged, audit.Event{
		EntityType: "donor",
		EntityID:   result.Survivor.ID.String(),
	}, "survivor_id", result.Survivor.ID, "merged_count", len(result.MergedIDs),
		"donations_reassigned", result.DonationsReassigned,
		"sponsorships_reassigned", result.SponsorshipsReassigned)
	return &result, nil
}

func applySelections(survivor *models.Donor, participants map[id.DonorID]*models.Donor, selections map[string]id.DonorID) {
	for field, donorID := range selections {
		source := participants[donorID]
		switch field {
		case FieldName:
			survivor.Name = source.Name
		case FieldEmail:
			survivor.Email = source.Email
		case FieldPhone:
			survivor.Phone = source.Phone
		case FieldAddress:
			survivor.Address = source.Address
		}
	}
}
