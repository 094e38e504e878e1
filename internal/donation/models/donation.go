package models

import (
	"time"

	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	dErrors "github.com/mlongerich/DonationTracker-sub003/pkg/domain-errors"
)

// PaymentMethod is how a donation arrived. Required on every donation; there
// is deliberately no implicit default.
type PaymentMethod string

const (
	MethodStripe       PaymentMethod = "stripe"
	MethodCheck        PaymentMethod = "check"
	MethodCash         PaymentMethod = "cash"
	MethodBankTransfer PaymentMethod = "bank_transfer"
)

var validPaymentMethods = map[PaymentMethod]bool{
	MethodStripe:       true,
	MethodCheck:        true,
	MethodCash:         true,
	MethodBankTransfer: true,
}

// ParsePaymentMethod constructs a PaymentMethod from external input. Unknown
// values fail hard; nothing is silently coerced.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	if s == "" {
		return "", dErrors.NewField("payment_method", "cannot be blank")
	}
	m := PaymentMethod(s)
	if !validPaymentMethods[m] {
		return "", dErrors.NewField("payment_method", "is not a valid payment method")
	}
	return m, nil
}

func (m PaymentMethod) IsValid() bool  { return validPaymentMethods[m] }
func (m PaymentMethod) String() string { return string(m) }

// Status is the settlement outcome of a donation. succeeded is the terminal
// state of the normal flow; external reconciliation sets the others directly,
// no further transitions are modeled.
type Status string

const (
	StatusSucceeded      Status = "succeeded"
	StatusFailed         Status = "failed"
	StatusRefunded       Status = "refunded"
	StatusCanceled       Status = "canceled"
	StatusNeedsAttention Status = "needs_attention"
)

var validStatuses = map[Status]bool{
	StatusSucceeded:      true,
	StatusFailed:         true,
	StatusRefunded:       true,
	StatusCanceled:       true,
	StatusNeedsAttention: true,
}

// ParseStatus constructs a Status from external input. Unknown values fail
// hard; nothing is silently coerced.
func ParseStatus(s string) (Status, error) {
	if s == "" {
		return "", dErrors.NewField("status", "cannot be blank")
	}
	st := Status(s)
	if !validStatuses[st] {
		return "", dErrors.NewField("status", "is not a valid status")
	}
	return st, nil
}

func (s Status) IsValid() bool  { return validStatuses[s] }
func (s Status) String() string { return string(s) }

// Donation is a single received gift.
//
// Invariants:
//   - AmountCents is positive; Date is present and not in the future
//   - A donation to a sponsorship-type project carries a sponsorship ref
//   - At most one kept donation carries a given (external subscription id,
//     child id) pair when both are non-nil; the store's partial unique key
//     enforces this
//   - DuplicateSubscription is advisory only and never blocks persistence
type Donation struct {
	ID                     id.DonationID     `json:"id"`
	DonorID                id.DonorID        `json:"donor_id"`
	ProjectID              id.ProjectID      `json:"project_id"`
	SponsorshipID          *id.SponsorshipID `json:"sponsorship_id,omitempty"`
	ChildID                *id.ChildID       `json:"child_id,omitempty"`
	AmountCents            int64             `json:"amount_cents"`
	Date                   time.Time         `json:"date"`
	PaymentMethod          PaymentMethod     `json:"payment_method"`
	Status                 Status            `json:"status"`
	ExternalSubscriptionID *string           `json:"external_subscription_id,omitempty"`
	ExternalInvoiceID      *string           `json:"external_invoice_id,omitempty"`
	ExternalChargeID       *string           `json:"external_charge_id,omitempty"`
	DuplicateSubscription  bool              `json:"duplicate_subscription"`
	CreatedAt              time.Time         `json:"created_at"`
	UpdatedAt              time.Time         `json:"updated_at"`
}

// NewDonation constructs a validated donation. The now parameter supplies the
// "today" boundary for the date check at calendar-date precision.
func NewDonation(
	donationID id.DonationID,
	donorID id.DonorID,
	projectID id.ProjectID,
	amountCents int64,
	date time.Time,
	method PaymentMethod,
	status Status,
	now time.Time,
) (*Donation, error) {
	if amountCents <= 0 {
		return nil, dErrors.NewField("amount", "must be positive")
	}
	if date.IsZero() {
		return nil, dErrors.NewField("date", "cannot be blank")
	}
	if id.DateAfter(date, now) {
		return nil, dErrors.NewField("date", "cannot be in the future")
	}
	if !method.IsValid() {
		return nil, dErrors.NewField("payment_method", "is not a valid payment method")
	}
	if !status.IsValid() {
		return nil, dErrors.NewField("status", "is not a valid status")
	}
	return &Donation{
		ID:            donationID,
		DonorID:       donorID,
		ProjectID:     projectID,
		AmountCents:   amountCents,
		Date:          id.DateOnly(date),
		PaymentMethod: method,
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// NeedsReview reports whether the donation needs operator attention: every
// non-succeeded settlement outcome does.
func (d *Donation) NeedsReview() bool { return d.Status != StatusSucceeded }
