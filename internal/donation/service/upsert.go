package service

import (
	"context"
	"errors"

	"github.com/mlongerich/DonationTracker-sub003/internal/audit"
	"github.com/mlongerich/DonationTracker-sub003/internal/donation/models"
	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	dErrors "github.com/mlongerich/DonationTracker-sub003/pkg/domain-errors"
	"github.com/mlongerich/DonationTracker-sub003/pkg/platform/sentinel"
	"github.com/mlongerich/DonationTracker-sub003/pkg/requestcontext"
)

// UpsertResult reports what an external-record upsert did.
type UpsertResult struct {
	Donation *models.Donation
	Created  bool
	Updated  bool
	Flagged  bool
}

// UpsertExternal is the reconciliation entry point for records keyed by an
// external invoice id. A known invoice id refreshes the settlement fields of
// the existing donation; an unknown one runs the full intake flow. Either way
// the invoice aggregate row is kept current, so re-delivered batches are safe
// to re-run.
func (s *Service) UpsertExternal(ctx context.Context, req CreateDonationRequest) (*UpsertResult, error) {
	if req.ExternalInvoiceID == "" {
		return nil, dErrors.NewField("external_invoice_id", "cannot be blank")
	}

	var result UpsertResult
	var createResult CreateResult
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		existing, err := s.donations.FindByExternalInvoiceID(txCtx, req.ExternalInvoiceID)
		switch {
		case err == nil:
			updated, err := s.refreshExisting(txCtx, existing, req)
			if err != nil {
				return err
			}
			result.Donation = existing
			result.Updated = updated
		case errors.Is(err, sentinel.ErrNotFound):
			if err := s.createDonationTx(txCtx, req, &createResult); err != nil {
				return err
			}
			result.Donation = createResult.Donation
			result.Created = true
			result.Flagged = createResult.Flagged
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up donation by invoice")
		}
		return s.upsertInvoiceRow(txCtx, req)
	})
	if err != nil {
		return nil, err
	}

	if result.Created {
		s.finishCreate(ctx, &createResult)
	}
	if result.Updated {
		if s.metrics != nil {
			s.metrics.DonationsUpserted.Inc()
		}
		s.logAudit(ctx, audit.ActionDonationUpserted, audit.Event{
			EntityType: "donation",
			EntityID:   result.Donation.ID.String(),
		}, "donation_id", result.Donation.ID, "external_invoice_id", req.ExternalInvoiceID,
			"status", result.Donation.Status)
	}
	return &result, nil
}

// refreshExisting applies the settlement fields an external re-delivery may
// change. Identity and destination never move on re-import.
func (s *Service) refreshExisting(ctx context.Context, existing *models.Donation, req CreateDonationRequest) (bool, error) {
	status := models.StatusSucceeded
	if req.Status != "" {
		parsed, err := models.ParseStatus(req.Status)
		if err != nil {
			return false, err
		}
		status = parsed
	}
	if req.AmountCents <= 0 {
		return false, dErrors.NewField("amount", "must be positive")
	}

	changed := existing.Status != status || existing.AmountCents != req.AmountCents
	if req.ExternalChargeID != "" &&
		(existing.ExternalChargeID == nil || *existing.ExternalChargeID != req.ExternalChargeID) {
		changed = true
	}
	if !changed {
		return false, nil
	}

	existing.Status = status
	existing.AmountCents = req.AmountCents
	if req.ExternalChargeID != "" {
		existing.ExternalChargeID = &req.ExternalChargeID
	}
	existing.UpdatedAt = requestcontext.Now(ctx)
	if err := s.donations.Update(ctx, existing); err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update donation")
	}
	return true, nil
}

func (s *Service) upsertInvoiceRow(ctx context.Context, req CreateDonationRequest) error {
	date := req.Date
	if date.IsZero() {
		date = requestcontext.Now(ctx)
	}
	inv, err := models.NewInvoice(id.NewInvoiceID(), req.ExternalInvoiceID, req.ExternalChargeID,
		req.AmountCents, date, requestcontext.Now(ctx))
	if err != nil {
		return err
	}
	if err := s.invoices.Upsert(ctx, inv); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to upsert invoice")
	}
	return nil
}
