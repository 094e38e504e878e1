package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mlongerich/DonationTracker-sub003/internal/child/models"
	"github.com/mlongerich/DonationTracker-sub003/internal/storage"
	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	"github.com/mlongerich/DonationTracker-sub003/pkg/platform/sentinel"
)

// PostgresStore persists children in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const childColumns = `id, name, gender, archived_at, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, child *models.Child) error {
	query := `INSERT INTO children (` + childColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := storage.From(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(child.ID), child.Name, child.Gender, child.ArchivedAt, child.CreatedAt, child.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create child: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, child *models.Child) error {
	query := `UPDATE children SET name = $2, gender = $3, archived_at = $4, updated_at = $5 WHERE id = $1`
	result, err := storage.From(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(child.ID), child.Name, child.Gender, child.ArchivedAt, child.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update child: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update child: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, childID id.ChildID) (*models.Child, error) {
	query := `SELECT ` + childColumns + ` FROM children WHERE id = $1`
	var c models.Child
	var cid uuid.UUID
	err := storage.From(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(childID)).Scan(
		&cid, &c.Name, &c.Gender, &c.ArchivedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find child: %w", err)
	}
	c.ID = id.ChildID(cid)
	return &c, nil
}

func (s *PostgresStore) List(ctx context.Context, visibility id.Visibility) ([]*models.Child, error) {
	query := `SELECT ` + childColumns + ` FROM children`
	if !visibility.IncludesArchived() {
		query += ` WHERE archived_at IS NULL`
	}
	query += ` ORDER BY created_at`

	rows, err := storage.From(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	var out []*models.Child
	for rows.Next() {
		var c models.Child
		var cid uuid.UUID
		if err := rows.Scan(&cid, &c.Name, &c.Gender, &c.ArchivedAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		c.ID = id.ChildID(cid)
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, childID id.ChildID) error {
	result, err := storage.From(ctx, s.db).ExecContext(ctx, `DELETE FROM children WHERE id = $1`, uuid.UUID(childID))
	if err != nil {
		return fmt.Errorf("delete child: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete child: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
