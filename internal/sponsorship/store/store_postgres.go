package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/mlongerich/DonationTracker-sub003/internal/sponsorship/models"
	"github.com/mlongerich/DonationTracker-sub003/internal/storage"
	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	"github.com/mlongerich/DonationTracker-sub003/pkg/platform/sentinel"
)

// PostgresStore persists sponsorships in PostgreSQL. The partial unique
// index sponsorships_active_key serializes the allocator's check-then-act:
// concurrent identical requests converge on a single active row.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const sponsorshipColumns = `id, donor_id, child_id, project_id, monthly_amount_cents, start_date, end_date, created_at, updated_at`

// CreateIfVacant inserts the sponsorship unless an active one already holds
// the (donor, child, amount) slot. ON CONFLICT DO NOTHING keeps the enclosing
// transaction alive on a lost race so the caller can re-read and reuse the
// winning row.
func (s *PostgresStore) CreateIfVacant(ctx context.Context, sp *models.Sponsorship) error {
	query := `
		INSERT INTO sponsorships (` + sponsorshipColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (donor_id, child_id, monthly_amount_cents) WHERE end_date IS NULL DO NOTHING
	`
	result, err := storage.From(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(sp.ID), uuid.UUID(sp.DonorID), uuid.UUID(sp.ChildID), uuid.UUID(sp.ProjectID),
		sp.MonthlyAmountCents, sp.StartDate, sp.EndDate, sp.CreatedAt, sp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create sponsorship: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("create sponsorship: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, sp *models.Sponsorship) error {
	query := `
		UPDATE sponsorships SET
			donor_id = $2, child_id = $3, project_id = $4,
			monthly_amount_cents = $5, start_date = $6, end_date = $7, updated_at = $8
		WHERE id = $1
	`
	result, err := storage.From(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(sp.ID), uuid.UUID(sp.DonorID), uuid.UUID(sp.ChildID), uuid.UUID(sp.ProjectID),
		sp.MonthlyAmountCents, sp.StartDate, sp.EndDate, sp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update sponsorship: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update sponsorship: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, sponsorshipID id.SponsorshipID) (*models.Sponsorship, error) {
	query := `SELECT ` + sponsorshipColumns + ` FROM sponsorships WHERE id = $1`
	return scanSponsorship(storage.From(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(sponsorshipID)))
}

func (s *PostgresStore) FindActiveMatch(ctx context.Context, donorID id.DonorID, childID id.ChildID, amountCents int64) (*models.Sponsorship, error) {
	query := `
		SELECT ` + sponsorshipColumns + ` FROM sponsorships
		WHERE donor_id = $1 AND child_id = $2 AND monthly_amount_cents = $3 AND end_date IS NULL
	`
	return scanSponsorship(storage.From(ctx, s.db).QueryRowContext(ctx, query,
		uuid.UUID(donorID), uuid.UUID(childID), amountCents))
}

func (s *PostgresStore) ActiveCountByDonor(ctx context.Context, donorID id.DonorID) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM sponsorships WHERE donor_id = $1 AND end_date IS NULL`, uuid.UUID(donorID))
}

func (s *PostgresStore) ActiveCountByChild(ctx context.Context, childID id.ChildID) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM sponsorships WHERE child_id = $1 AND end_date IS NULL`, uuid.UUID(childID))
}

func (s *PostgresStore) ActiveCountByProject(ctx context.Context, projectID id.ProjectID) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM sponsorships WHERE project_id = $1 AND end_date IS NULL`, uuid.UUID(projectID))
}

func (s *PostgresStore) ExistsForDonor(ctx context.Context, donorID id.DonorID) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM sponsorships WHERE donor_id = $1)`, uuid.UUID(donorID))
}

func (s *PostgresStore) ExistsForChild(ctx context.Context, childID id.ChildID) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM sponsorships WHERE child_id = $1)`, uuid.UUID(childID))
}

func (s *PostgresStore) ExistsForProject(ctx context.Context, projectID id.ProjectID) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM sponsorships WHERE project_id = $1)`, uuid.UUID(projectID))
}

// ActiveSlotConflicts reports whether any two of the given donors hold active
// sponsorships for the same (child, amount) slot.
func (s *PostgresStore) ActiveSlotConflicts(ctx context.Context, donorIDs []id.DonorID) (bool, error) {
	ids := make([]uuid.UUID, len(donorIDs))
	for i, donorID := range donorIDs {
		ids[i] = uuid.UUID(donorID)
	}
	var conflicted bool
	err := storage.From(ctx, s.db).QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM sponsorships
			WHERE donor_id = ANY($1) AND end_date IS NULL
			GROUP BY child_id, monthly_amount_cents
			HAVING COUNT(*) > 1
		)`, pq.Array(ids)).Scan(&conflicted)
	if err != nil {
		return false, fmt.Errorf("sponsorship slot conflicts: %w", err)
	}
	return conflicted, nil
}

// ReassignDonor moves every sponsorship owned by from to the surviving donor.
// When both donors actively sponsor the same child at the same amount the
// partial unique index fires and the move reports a conflict.
func (s *PostgresStore) ReassignDonor(ctx context.Context, from, to id.DonorID) (int, error) {
	result, err := storage.From(ctx, s.db).ExecContext(ctx,
		`UPDATE sponsorships SET donor_id = $2, updated_at = NOW() WHERE donor_id = $1`,
		uuid.UUID(from), uuid.UUID(to))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, sentinel.ErrConflict
		}
		return 0, fmt.Errorf("reassign sponsorships: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reassign sponsorships: %w", err)
	}
	return int(rows), nil
}

func (s *PostgresStore) count(ctx context.Context, query string, arg any) (int, error) {
	var count int
	if err := storage.From(ctx, s.db).QueryRowContext(ctx, query, arg).Scan(&count); err != nil {
		return 0, fmt.Errorf("count sponsorships: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) exists(ctx context.Context, query string, arg any) (bool, error) {
	var exists bool
	if err := storage.From(ctx, s.db).QueryRowContext(ctx, query, arg).Scan(&exists); err != nil {
		return false, fmt.Errorf("sponsorship existence: %w", err)
	}
	return exists, nil
}

// isUniqueViolation reports whether err is a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func scanSponsorship(row *sql.Row) (*models.Sponsorship, error) {
	var sp models.Sponsorship
	var sid, donorID, childID, projectID uuid.UUID
	err := row.Scan(&sid, &donorID, &childID, &projectID,
		&sp.MonthlyAmountCents, &sp.StartDate, &sp.EndDate, &sp.CreatedAt, &sp.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan sponsorship: %w", err)
	}
	sp.ID = id.SponsorshipID(sid)
	sp.DonorID = id.DonorID(donorID)
	sp.ChildID = id.ChildID(childID)
	sp.ProjectID = id.ProjectID(projectID)
	return &sp, nil
}
