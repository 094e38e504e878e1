package models

import (
	"time"

	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	dErrors "github.com/mlongerich/DonationTracker-sub003/pkg/domain-errors"
)

// Invoice is the reconciliation record for one external billing event. It
// aggregates one or more donations and is keyed by the provider's invoice id,
// which makes batch re-imports idempotent.
type Invoice struct {
	ID                id.InvoiceID `json:"id"`
	ExternalInvoiceID string       `json:"external_invoice_id"`
	ExternalChargeID  string       `json:"external_charge_id"`
	TotalCents        int64        `json:"total_cents"`
	InvoiceDate       time.Time    `json:"invoice_date"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

func NewInvoice(invoiceID id.InvoiceID, externalInvoiceID, externalChargeID string, totalCents int64, invoiceDate time.Time, now time.Time) (*Invoice, error) {
	if externalInvoiceID == "" {
		return nil, dErrors.NewField("external_invoice_id", "cannot be blank")
	}
	if totalCents <= 0 {
		return nil, dErrors.NewField("total", "must be positive")
	}
	return &Invoice{
		ID:                invoiceID,
		ExternalInvoiceID: externalInvoiceID,
		ExternalChargeID:  externalChargeID,
		TotalCents:        totalCents,
		InvoiceDate:       id.DateOnly(invoiceDate),
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}
