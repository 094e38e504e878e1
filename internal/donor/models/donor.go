package models

import (
	"time"

	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	dErrors "github.com/mlongerich/DonationTracker-sub003/pkg/domain-errors"
)

// Address groups the postal fields donors may supply. All fields optional;
// the identity resolver uses street/city as an email fallback of last resort.
type Address struct {
	Street1 string `json:"street1"`
	Street2 string `json:"street2"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

// Donor is the aggregate root for a donor identity.
//
// Invariants:
//   - Name and Email are never blank after construction (the identity
//     resolver supplies fallbacks before a donor reaches the store)
//   - Email is unique among non-archived donors, enforced at persistence time
//   - A donor that owns any donation or sponsorship is never hard-deleted;
//     archiving is the only removal path once history exists
//   - MergedInto, once set, never changes; merged donors stay archived and
//     are excluded from every listing, including include-archived views
type Donor struct {
	ID         id.DonorID   `json:"id"`
	Name       string       `json:"name"`
	Email      string       `json:"email"`
	Phone      string       `json:"phone"`
	Address    Address      `json:"address"`
	ArchivedAt *time.Time   `json:"archived_at,omitempty"`
	MergedInto *id.DonorID  `json:"merged_into,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// NewDonor constructs a donor from an already-resolved identity.
func NewDonor(donorID id.DonorID, name, email, phone string, addr Address, now time.Time) (*Donor, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "donor name cannot be empty")
	}
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "donor email cannot be empty")
	}
	return &Donor{
		ID:        donorID,
		Name:      name,
		Email:     email,
		Phone:     phone,
		Address:   addr,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (d *Donor) IsArchived() bool { return d.ArchivedAt != nil }

func (d *Donor) IsMerged() bool { return d.MergedInto != nil }

// Archive stamps the soft-delete timestamp. The cascade guard validates
// eligibility before calling this.
func (d *Donor) Archive(now time.Time) {
	d.ArchivedAt = &now
	d.UpdatedAt = now
}

// Restore clears the soft-delete timestamp. Also used by the implicit
// restore-on-activity path when new donations or sponsorships attach.
func (d *Donor) Restore(now time.Time) {
	d.ArchivedAt = nil
	d.UpdatedAt = now
}

// MergeInto marks this donor as consumed by a merge: archived and pointing at
// the surviving record.
func (d *Donor) MergeInto(survivor id.DonorID, now time.Time) {
	d.MergedInto = &survivor
	d.ArchivedAt = &now
	d.UpdatedAt = now
}
