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

// PostgresStore persists donations in PostgreSQL. The partial unique index
// donations_subscription_child_key is the hard duplicate guard: at most one
// kept donation per (external subscription id, child id) pair. Pairs with a
// null child are exempt, which is what lets subscription renewals land before
// a child is linked.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const donationColumns = `id, donor_id, project_id, sponsorship_id, child_id, amount_cents, date, payment_method, status, external_subscription_id, external_invoice_id, external_charge_id, duplicate_subscription, created_at, updated_at`

// Create inserts the donation. A lost race on the duplicate guard comes back
// as sentinel.ErrConflict; ON CONFLICT DO NOTHING keeps the enclosing
// transaction alive so the caller can decide what to do with the duplicate.
func (s *PostgresStore) Create(ctx context.Context, d *models.Donation) error {
	query := `
		INSERT INTO donations (` + donationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (external_subscription_id, child_id)
			WHERE external_subscription_id IS NOT NULL AND child_id IS NOT NULL
			DO NOTHING
	`
	result, err := storage.From(ctx, s.db).ExecContext(ctx, query, donationArgs(d)...)
	if err != nil {
		return fmt.Errorf("create donation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("create donation: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, d *models.Donation) error {
	query := `
		UPDATE donations SET
			donor_id = $2, project_id = $3, sponsorship_id = $4, child_id = $5,
			amount_cents = $6, date = $7, payment_method = $8, status = $9,
			external_subscription_id = $10, external_invoice_id = $11, external_charge_id = $12,
			duplicate_subscription = $13, updated_at = $14
		WHERE id = $1
	`
	var sponsorshipID, childID any
	if d.SponsorshipID != nil {
		sponsorshipID = uuid.UUID(*d.SponsorshipID)
	}
	if d.ChildID != nil {
		childID = uuid.UUID(*d.ChildID)
	}
	result, err := storage.From(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(d.ID), uuid.UUID(d.DonorID), uuid.UUID(d.ProjectID), sponsorshipID, childID,
		d.AmountCents, d.Date, string(d.PaymentMethod), string(d.Status),
		d.ExternalSubscriptionID, d.ExternalInvoiceID, d.ExternalChargeID,
		d.DuplicateSubscription, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update donation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update donation: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, donationID id.DonationID) (*models.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations WHERE id = $1`
	return scanDonation(storage.From(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(donationID)))
}

func (s *PostgresStore) FindByExternalInvoiceID(ctx context.Context, externalInvoiceID string) (*models.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations WHERE external_invoice_id = $1`
	return scanDonation(storage.From(ctx, s.db).QueryRowContext(ctx, query, externalInvoiceID))
}

func (s *PostgresStore) ListPendingReview(ctx context.Context) ([]*models.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations WHERE status <> 'succeeded' ORDER BY date, id`
	return s.query(ctx, query)
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]*models.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations WHERE status = 'succeeded' ORDER BY date, id`
	return s.query(ctx, query)
}

func (s *PostgresStore) ListBySubscription(ctx context.Context, externalSubscriptionID string) ([]*models.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations WHERE external_subscription_id = $1 ORDER BY date, id`
	return s.query(ctx, query, externalSubscriptionID)
}

func (s *PostgresStore) ExistsForDonor(ctx context.Context, donorID id.DonorID) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM donations WHERE donor_id = $1)`, uuid.UUID(donorID))
}

func (s *PostgresStore) ExistsForChild(ctx context.Context, childID id.ChildID) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM donations WHERE child_id = $1)`, uuid.UUID(childID))
}

func (s *PostgresStore) ExistsForProject(ctx context.Context, projectID id.ProjectID) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM donations WHERE project_id = $1)`, uuid.UUID(projectID))
}

// ExistsSubscriptionForOtherChild reports whether some donation carries the
// same external subscription id against a different child, treating a null
// child as different from any concrete one. Feeds the advisory duplicate
// flag only.
func (s *PostgresStore) ExistsSubscriptionForOtherChild(ctx context.Context, externalSubscriptionID string, childID *id.ChildID) (bool, error) {
	var child any
	if childID != nil {
		child = uuid.UUID(*childID)
	}
	query := `
		SELECT EXISTS (
			SELECT 1 FROM donations
			WHERE external_subscription_id = $1
			  AND child_id IS DISTINCT FROM $2
		)
	`
	return s.exists(ctx, query, externalSubscriptionID, child)
}

// ReassignDonor moves every donation owned by from to the surviving donor.
func (s *PostgresStore) ReassignDonor(ctx context.Context, from, to id.DonorID) (int, error) {
	result, err := storage.From(ctx, s.db).ExecContext(ctx,
		`UPDATE donations SET donor_id = $2, updated_at = NOW() WHERE donor_id = $1`,
		uuid.UUID(from), uuid.UUID(to))
	if err != nil {
		return 0, fmt.Errorf("reassign donations: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reassign donations: %w", err)
	}
	return int(rows), nil
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]*models.Donation, error) {
	rows, err := storage.From(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	defer rows.Close()

	var out []*models.Donation
	for rows.Next() {
		d, err := scanDonationRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PostgresStore) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var exists bool
	if err := storage.From(ctx, s.db).QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("donation existence: %w", err)
	}
	return exists, nil
}

func donationArgs(d *models.Donation) []any {
	var sponsorshipID, childID any
	if d.SponsorshipID != nil {
		sponsorshipID = uuid.UUID(*d.SponsorshipID)
	}
	if d.ChildID != nil {
		childID = uuid.UUID(*d.ChildID)
	}
	return []any{
		uuid.UUID(d.ID), uuid.UUID(d.DonorID), uuid.UUID(d.ProjectID), sponsorshipID, childID,
		d.AmountCents, d.Date, string(d.PaymentMethod), string(d.Status),
		d.ExternalSubscriptionID, d.ExternalInvoiceID, d.ExternalChargeID,
		d.DuplicateSubscription, d.CreatedAt, d.UpdatedAt,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDonation(row *sql.Row) (*models.Donation, error) {
	d, err := scanDonationRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

func scanDonationRow(row rowScanner) (*models.Donation, error) {
	var d models.Donation
	var donationID, donorID, projectID uuid.UUID
	var sponsorshipID, childID uuid.NullUUID
	var method, status string
	err := row.Scan(
		&donationID, &donorID, &projectID, &sponsorshipID, &childID,
		&d.AmountCents, &d.Date, &method, &status,
		&d.ExternalSubscriptionID, &d.ExternalInvoiceID, &d.ExternalChargeID,
		&d.DuplicateSubscription, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan donation: %w", err)
	}
	d.ID = id.DonationID(donationID)
	d.DonorID = id.DonorID(donorID)
	d.ProjectID = id.ProjectID(projectID)
	if sponsorshipID.Valid {
		v := id.SponsorshipID(sponsorshipID.UUID)
		d.SponsorshipID = &v
	}
	if childID.Valid {
		v := id.ChildID(childID.UUID)
		d.ChildID = &v
	}
	d.PaymentMethod = models.PaymentMethod(method)
	d.Status = models.Status(status)
	return &d, nil
}
