package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mlongerich/DonationTracker-sub003/internal/donation/models"
	"github.com/mlongerich/DonationTracker-sub003/internal/storage"
	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	"github.com/mlongerich/DonationTracker-sub003/pkg/platform/sentinel"
)

// PostgresInvoices persists reconciliation invoices. Upsert rides the UNIQUE
// constraint on external_invoice_id so batch re-imports are idempotent.
type PostgresInvoices struct {
	db *sql.DB
}

func NewPostgresInvoices(db *sql.DB) *PostgresInvoices {
	return &PostgresInvoices{db: db}
}

const invoiceColumns = `id, external_invoice_id, external_charge_id, total_cents, invoice_date, created_at, updated_at`

func (s *PostgresInvoices) Upsert(ctx context.Context, inv *models.Invoice) error {
	query := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (external_invoice_id) DO UPDATE SET
			external_charge_id = EXCLUDED.external_charge_id,
			total_cents = EXCLUDED.total_cents,
			invoice_date = EXCLUDED.invoice_date,
			updated_at = EXCLUDED.updated_at
	`
	_, err := storage.From(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(inv.ID), inv.ExternalInvoiceID, inv.ExternalChargeID,
		inv.TotalCents, inv.InvoiceDate, inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert invoice: %w", err)
	}
	return nil
}

func (s *PostgresInvoices) FindByExternalID(ctx context.Context, externalInvoiceID string) (*models.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE external_invoice_id = $1`
	var inv models.Invoice
	var invoiceID uuid.UUID
	err := storage.From(ctx, s.db).QueryRowContext(ctx, query, externalInvoiceID).Scan(
		&invoiceID, &inv.ExternalInvoiceID, &inv.ExternalChargeID,
		&inv.TotalCents, &inv.InvoiceDate, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find invoice: %w", err)
	}
	inv.ID = id.InvoiceID(invoiceID)
	return &inv, nil
}
