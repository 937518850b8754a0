// Package projects persists projects in PostgreSQL.
package projects

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/taskledger/internal/common"
	"github.com/dmitrijs2005/taskledger/internal/dbx"
	"github.com/dmitrijs2005/taskledger/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Project) (*models.Project, error) {
	query := `
		INSERT INTO projects (name, description)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRowContext(ctx, query, p.Name, p.Description).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, dbx.TranslateError(err)
	}
	return p, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	query := `
		SELECT id, name, description, created_at, updated_at
		FROM projects
		WHERE id = $1
	`
	p := &models.Project{}
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, dbx.TranslateError(err)
	}
	return p, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]models.Project, error) {
	query := `
		SELECT p.id, p.name, p.description, p.created_at, p.updated_at
		FROM projects p
		JOIN project_user pu ON pu.project_id = p.id
		WHERE pu.user_id = $1
		ORDER BY p.created_at, p.id
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Update(ctx context.Context, p *models.Project) error {
	query := `
		UPDATE projects SET name = $2, description = $3, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	if err := r.db.QueryRowContext(ctx, query, p.ID, p.Name, p.Description).Scan(&p.UpdatedAt); err != nil {
		return dbx.TranslateError(err)
	}
	return nil
}

// Delete removes the project; tasks and memberships go with it.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
