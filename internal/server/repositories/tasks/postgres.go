// Package tasks persists project tasks in PostgreSQL.
package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

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

const taskColumns = `t.id, t.project_id, t.title, t.description, t.status, t.priority, t.due_date, t.note, t.created_at, t.updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*models.Task, error) {
	var (
		t   models.Task
		due sql.NullTime
	)
	err := s.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Status, &t.Priority, &due, &t.Note, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.DueDate = dbx.NullTime(due)
	return &t, nil
}

func (r *PostgresRepository) Create(ctx context.Context, t *models.Task) (*models.Task, error) {
	query := `
		INSERT INTO tasks (project_id, title, description, status, priority, due_date, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		t.ProjectID, t.Title, t.Description, t.Status, t.Priority, t.DueDate, t.Note).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, dbx.TranslateError(err)
	}
	return t, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks t WHERE t.id = $1`
	t, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, dbx.TranslateError(err)
	}
	return t, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]models.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) ListByProject(ctx context.Context, projectID string) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks t WHERE t.project_id = $1 ORDER BY t.created_at, t.id`
	return r.list(ctx, query, projectID)
}

func (r *PostgresRepository) Filter(ctx context.Context, userID string, f models.TaskFilter) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + `
		FROM tasks t
		JOIN project_user pu ON pu.project_id = t.project_id
		WHERE pu.user_id = $1
		  AND ($2::text = '' OR t.status = $2)
		  AND ($3::text = '' OR t.priority = $3)
		ORDER BY t.created_at, t.id`
	return r.list(ctx, query, userID, string(f.Status), string(f.Priority))
}

// first returns the single row of query, or nil when there is none.
func (r *PostgresRepository) first(ctx context.Context, query string, args ...any) (*models.Task, error) {
	t, err := scanTask(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dbx.TranslateError(err)
	}
	return t, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *PostgresRepository) Highlights(ctx context.Context, projectID, titleCondition string) (*models.TaskHighlights, error) {
	var (
		h   models.TaskHighlights
		err error
	)
	base := `SELECT ` + taskColumns + ` FROM tasks t WHERE t.project_id = $1`

	if h.Latest, err = r.first(ctx, base+` ORDER BY t.created_at DESC, t.id DESC LIMIT 1`, projectID); err != nil {
		return nil, err
	}
	if h.Oldest, err = r.first(ctx, base+` ORDER BY t.created_at, t.id LIMIT 1`, projectID); err != nil {
		return nil, err
	}
	pattern := "%" + likeEscaper.Replace(titleCondition) + "%"
	h.HighestPriority, err = r.first(ctx, base+`
		  AND t.priority = 'high'
		  AND t.title ILIKE $2
		ORDER BY t.created_at DESC, t.id DESC LIMIT 1`, projectID, pattern)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *PostgresRepository) Update(ctx context.Context, t *models.Task) error {
	query := `
		UPDATE tasks
		SET title = $2, description = $3, status = $4, priority = $5, due_date = $6, note = $7, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		t.ID, t.Title, t.Description, t.Status, t.Priority, t.DueDate, t.Note).Scan(&t.UpdatedAt)
	if err != nil {
		return dbx.TranslateError(err)
	}
	return nil
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return dbx.TranslateError(err)
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

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status models.TaskStatus) error {
	return r.exec(ctx, `UPDATE tasks SET status = $2, updated_at = now() WHERE id = $1`, id, status)
}

func (r *PostgresRepository) UpdateNote(ctx context.Context, id string, note string) error {
	return r.exec(ctx, `UPDATE tasks SET note = $2, updated_at = now() WHERE id = $1`, id, note)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
}
