package models

import (
	"time"

	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	dErrors "github.com/mlongerich/DonationTracker-sub003/pkg/domain-errors"
)

// Sponsorship is a recurring monthly pledge linking one donor to one child at
// a fixed amount.
//
// Invariants:
//   - MonthlyAmountCents is positive
//   - Active ⇔ EndDate is nil
//   - At most one active sponsorship exists per (donor, child, amount);
//     the store's partial unique key enforces this under concurrency
//   - Amount changes always produce a new sponsorship; rows are append-only
//     pledge-period records and are never rewritten in place
//   - An ended sponsorship is never reactivated or reused
type Sponsorship struct {
	ID                 id.SponsorshipID `json:"id"`
	DonorID            id.DonorID       `json:"donor_id"`
	ChildID            id.ChildID       `json:"child_id"`
	ProjectID          id.ProjectID     `json:"project_id"`
	MonthlyAmountCents int64            `json:"monthly_amount_cents"`
	StartDate          time.Time        `json:"start_date"`
	EndDate            *time.Time       `json:"end_date,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

func NewSponsorship(
	sponsorshipID id.SponsorshipID,
	donorID id.DonorID,
	childID id.ChildID,
	projectID id.ProjectID,
	monthlyAmountCents int64,
	startDate time.Time,
	now time.Time,
) (*Sponsorship, error) {
	if monthlyAmountCents <= 0 {
		return nil, dErrors.NewField("monthly_amount", "must be positive")
	}
	if donorID.IsZero() || childID.IsZero() || projectID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "sponsorship requires donor, child, and project")
	}
	return &Sponsorship{
		ID:                 sponsorshipID,
		DonorID:            donorID,
		ChildID:            childID,
		ProjectID:          projectID,
		MonthlyAmountCents: monthlyAmountCents,
		StartDate:          id.DateOnly(startDate),
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// IsActive reports whether the pledge is open.
func (s *Sponsorship) IsActive() bool { return s.EndDate == nil }

// CanEnd checks whether ending is a valid transition.
func (s *Sponsorship) CanEnd() error {
	if !s.IsActive() {
		return dErrors.New(dErrors.CodeInvariantViolation, "sponsorship has already ended")
	}
	return nil
}

// End closes the pledge period. Once ended a sponsorship never reopens.
func (s *Sponsorship) End(endDate time.Time, now time.Time) error {
	if err := s.CanEnd(); err != nil {
		return err
	}
	d := id.DateOnly(endDate)
	s.EndDate = &d
	s.UpdatedAt = now
	return nil
}
