package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mlongerich/DonationTracker-sub003/internal/project/models"
	"github.com/mlongerich/DonationTracker-sub003/internal/storage"
	id "github.com/mlongerich/DonationTracker-sub003/pkg/domain"
	"github.com/mlongerich/DonationTracker-sub003/pkg/platform/sentinel"
)

// PostgresStore persists projects in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const projectColumns = `id, title, type, system, archived_at, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, project *models.Project) error {
	query := `INSERT INTO projects (` + projectColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := storage.From(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(project.ID), project.Title, string(project.Type), project.System,
		project.ArchivedAt, project.CreatedAt, project.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, project *models.Project) error {
	query := `UPDATE projects SET title = $2, type = $3, system = $4, archived_at = $5, updated_at = $6 WHERE id = $1`
	result, err := storage.From(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(project.ID), project.Title, string(project.Type), project.System,
		project.ArchivedAt, project.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, projectID id.ProjectID) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	return scanProject(storage.From(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(projectID)))
}

// FindGeneralFund returns the system general-fund project donations default
// to when no project or child is named.
func (s *PostgresStore) FindGeneralFund(ctx context.Context) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE system AND type = 'general' ORDER BY created_at LIMIT 1`
	return scanProject(storage.From(ctx, s.db).QueryRowContext(ctx, query))
}

func (s *PostgresStore) List(ctx context.Context, visibility id.Visibility) ([]*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects`
	if !visibility.IncludesArchived() {
		query += ` WHERE archived_at IS NULL`
	}
	query += ` ORDER BY created_at`

	rows, err := storage.From(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []*models.Project
	for rows.Next() {
		var p models.Project
		var pid uuid.UUID
		var projectType string
		if err := rows.Scan(&pid, &p.Title, &projectType, &p.System, &p.ArchivedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		p.ID = id.ProjectID(pid)
		p.Type = models.ProjectType(projectType)
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, projectID id.ProjectID) error {
	result, err := storage.From(ctx, s.db).ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, uuid.UUID(projectID))
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanProject(row *sql.Row) (*models.Project, error) {
	var p models.Project
	var pid uuid.UUID
	var projectType string
	err := row.Scan(&pid, &p.Title, &projectType, &p.System, &p.ArchivedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan project: %w", err)
	}
	p.ID = id.ProjectID(pid)
	p.Type = models.ProjectType(projectType)
	return &p, nil
}
