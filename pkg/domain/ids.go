// Package domain holds identifier and enum types shared across features.
//
// IDs are distinct named UUID types so a DonorID can never be passed where a
// ChildID is expected. Construct via the Parse helpers at trust boundaries;
// direct casting bypasses validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "github.com/mlongerich/DonationTracker-sub003/pkg/domain-errors"
)

type (
	// DonorID identifies a donor record.
	DonorID uuid.UUID
	// ChildID identifies a sponsored child.
	ChildID uuid.UUID
	// ProjectID identifies a project (general fund, campaign, or sponsorship).
	ProjectID uuid.UUID
	// SponsorshipID identifies a recurring pledge.
	SponsorshipID uuid.UUID
	// DonationID identifies a single donation.
	DonationID uuid.UUID
	// InvoiceID identifies a reconciliation invoice record.
	InvoiceID uuid.UUID
)

func (id DonorID) String() string       { return uuid.UUID(id).String() }
func (id ChildID) String() string       { return uuid.UUID(id).String() }
func (id ProjectID) String() string     { return uuid.UUID(id).String() }
func (id SponsorshipID) String() string { return uuid.UUID(id).String() }
func (id DonationID) String() string    { return uuid.UUID(id).String() }
func (id InvoiceID) String() string     { return uuid.UUID(id).String() }

func (id DonorID) IsZero() bool       { return uuid.UUID(id) == uuid.Nil }
func (id ChildID) IsZero() bool       { return uuid.UUID(id) == uuid.Nil }
func (id ProjectID) IsZero() bool     { return uuid.UUID(id) == uuid.Nil }
func (id SponsorshipID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id DonationID) IsZero() bool    { return uuid.UUID(id) == uuid.Nil }

// NewDonorID allocates a fresh donor id.
func NewDonorID() DonorID { return DonorID(uuid.New()) }

// NewChildID allocates a fresh child id.
func NewChildID() ChildID { return ChildID(uuid.New()) }

// NewProjectID allocates a fresh project id.
func NewProjectID() ProjectID { return ProjectID(uuid.New()) }

// NewSponsorshipID allocates a fresh sponsorship id.
func NewSponsorshipID() SponsorshipID { return SponsorshipID(uuid.New()) }

// NewDonationID allocates a fresh donation id.
func NewDonationID() DonationID { return DonationID(uuid.New()) }

// NewInvoiceID allocates a fresh invoice id.
func NewInvoiceID() InvoiceID { return InvoiceID(uuid.New()) }

func parseUUID(raw, what string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" id cannot be empty")
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+what+" id")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" id cannot be nil")
	}
	return u, nil
}

// ParseDonorID constructs a DonorID from external input.
func ParseDonorID(raw string) (DonorID, error) {
	u, err := parseUUID(raw, "donor")
	return DonorID(u), err
}

// ParseChildID constructs a ChildID from external input.
func ParseChildID(raw string) (ChildID, error) {
	u, err := parseUUID(raw, "child")
	return ChildID(u), err
}

// ParseProjectID constructs a ProjectID from external input.
func ParseProjectID(raw string) (ProjectID, error) {
	u, err := parseUUID(raw, "project")
	return ProjectID(u), err
}

// ParseSponsorshipID constructs a SponsorshipID from external input.
func ParseSponsorshipID(raw string) (SponsorshipID, error) {
	u, err := parseUUID(raw, "sponsorship")
	return SponsorshipID(u), err
}

// ParseDonationID constructs a DonationID from external input.
func ParseDonationID(raw string) (DonationID, error) {
	u, err := parseUUID(raw, "donation")
	return DonationID(u), err
}
