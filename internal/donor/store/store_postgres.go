package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/mlongerich/DonationTracker-sub003/internal/donor/models"
	"github.com/mlongerich/DonationTracker-sub003/internal/storage"
	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	"github.com/mlongerich/DonationTracker-sub003/pkg/platform/sentinel"
)

// PostgresStore persists donors in PostgreSQL. This store is pure I/O; the
// merge and lifecycle rules live in the services. Email uniqueness among
// live donors is enforced by the donors_email_live_key partial index.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const donorColumns = `id, name, email, phone, street1, street2, city, state, zip_code, country, archived_at, merged_into, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, donor *models.Donor) error {
	query := `
		INSERT INTO donors (` + donorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := storage.From(ctx, s.db).ExecContext(ctx, query, donorArgs(donor)...)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create donor: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, donor *models.Donor) error {
	query := `
		UPDATE donors SET
			name = $2, email = $3, phone = $4,
			street1 = $5, street2 = $6, city = $7, state = $8, zip_code = $9, country = $10,
			archived_at = $11, merged_into = $12, updated_at = $13
		WHERE id = $1
	`
	var mergedInto any
	if donor.MergedInto != nil {
		mergedInto = uuid.UUID(*donor.MergedInto)
	}
	result, err := storage.From(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(donor.ID), donor.Name, donor.Email, donor.Phone,
		donor.Address.Street1, donor.Address.Street2, donor.Address.City, donor.Address.State, donor.Address.ZipCode, donor.Address.Country,
		donor.ArchivedAt, mergedInto, donor.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("update donor: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update donor: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, donorID id.DonorID) (*models.Donor, error) {
	query := `SELECT ` + donorColumns + ` FROM donors WHERE id = $1`
	return scanDonor(storage.From(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(donorID)))
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.Donor, error) {
	query := `SELECT ` + donorColumns + ` FROM donors WHERE LOWER(email) = LOWER($1) AND archived_at IS NULL`
	return scanDonor(storage.From(ctx, s.db).QueryRowContext(ctx, query, email))
}

func (s *PostgresStore) List(ctx context.Context, visibility id.Visibility) ([]*models.Donor, error) {
	query := `SELECT ` + donorColumns + ` FROM donors WHERE merged_into IS NULL`
	if !visibility.IncludesArchived() {
		query += ` AND archived_at IS NULL`
	}
	query += ` ORDER BY created_at`

	rows, err := storage.From(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list donors: %w", err)
	}
	defer rows.Close()

	var out []*models.Donor
	for rows.Next() {
		donor, err := scanDonorRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, donor)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, donorID id.DonorID) error {
	result, err := storage.From(ctx, s.db).ExecContext(ctx, `DELETE FROM donors WHERE id = $1`, uuid.UUID(donorID))
	if err != nil {
		return fmt.Errorf("delete donor: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete donor: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func donorArgs(d *models.Donor) []any {
	var mergedInto any
	if d.MergedInto != nil {
		mergedInto = uuid.UUID(*d.MergedInto)
	}
	return []any{
		uuid.UUID(d.ID), d.Name, d.Email, d.Phone,
		d.Address.Street1, d.Address.Street2, d.Address.City, d.Address.State, d.Address.ZipCode, d.Address.Country,
		d.ArchivedAt, mergedInto, d.CreatedAt, d.UpdatedAt,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDonor(row *sql.Row) (*models.Donor, error) {
	donor, err := scanDonorRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return donor, nil
}

func scanDonorRow(row rowScanner) (*models.Donor, error) {
	var d models.Donor
	var donorID uuid.UUID
	var mergedInto uuid.NullUUID
	err := row.Scan(
		&donorID, &d.Name, &d.Email, &d.Phone,
		&d.Address.Street1, &d.Address.Street2, &d.Address.City, &d.Address.State, &d.Address.ZipCode, &d.Address.Country,
		&d.ArchivedAt, &mergedInto, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan donor: %w", err)
	}
	d.ID = id.DonorID(donorID)
	if mergedInto.Valid {
		m := id.DonorID(mergedInto.UUID)
		d.MergedInto = &m
	}
	return &d, nil
}

// isUniqueViolation reports whether err is a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
