package memberships

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

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

const membershipColumns = `project_id, user_id, role, contribution_minutes, last_activity, session_started_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanMembership(s scanner, extra ...any) (*models.Membership, error) {
	var (
		m       models.Membership
		last    sql.NullTime
		started sql.NullTime
	)
	dest := append([]any{&m.ProjectID, &m.UserID, &m.Role, &m.ContributionMinutes, &last, &started}, extra...)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	m.LastActivity = dbx.NullTime(last)
	m.SessionStartedAt = dbx.NullTime(started)
	return &m, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, projectID, userID string, role models.Role, now time.Time) (*models.Membership, error) {
	query := `
		INSERT INTO project_user (project_id, user_id, role, contribution_minutes, last_activity)
		VALUES ($1, $2, $3, 0, $4)
		ON CONFLICT (project_id, user_id)
		DO UPDATE SET role = EXCLUDED.role, last_activity = EXCLUDED.last_activity
		RETURNING ` + membershipColumns
	m, err := scanMembership(r.db.QueryRowContext(ctx, query, projectID, userID, role, now))
	if err != nil {
		return nil, dbx.TranslateError(err)
	}
	return m, nil
}

func (r *PostgresRepository) get(ctx context.Context, query, projectID, userID string) (*models.Membership, error) {
	m, err := scanMembership(r.db.QueryRowContext(ctx, query, projectID, userID))
	if err != nil {
		return nil, dbx.TranslateError(err)
	}
	return m, nil
}

func (r *PostgresRepository) Get(ctx context.Context, projectID, userID string) (*models.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM project_user WHERE project_id = $1 AND user_id = $2`
	return r.get(ctx, query, projectID, userID)
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, projectID, userID string) (*models.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM project_user WHERE project_id = $1 AND user_id = $2 FOR UPDATE`
	return r.get(ctx, query, projectID, userID)
}

func (r *PostgresRepository) UpdateRole(ctx context.Context, projectID, userID string, role models.Role, now time.Time) (*models.Membership, error) {
	query := `
		UPDATE project_user SET role = $3, last_activity = $4
		WHERE project_id = $1 AND user_id = $2
		RETURNING ` + membershipColumns
	m, err := scanMembership(r.db.QueryRowContext(ctx, query, projectID, userID, role, now))
	if err != nil {
		return nil, dbx.TranslateError(err)
	}
	return m, nil
}

func (r *PostgresRepository) AddContribution(ctx context.Context, projectID, userID string, minutes int64, now time.Time) (int64, error) {
	query := `
		UPDATE project_user
		SET contribution_minutes = contribution_minutes + $3, last_activity = $4
		WHERE project_id = $1 AND user_id = $2
		RETURNING contribution_minutes`
	var total int64
	if err := r.db.QueryRowContext(ctx, query, projectID, userID, minutes, now).Scan(&total); err != nil {
		return 0, dbx.TranslateError(err)
	}
	return total, nil
}

func (r *PostgresRepository) ResetContribution(ctx context.Context, projectID, userID string, now time.Time) error {
	query := `
		UPDATE project_user SET contribution_minutes = 0, last_activity = $3
		WHERE project_id = $1 AND user_id = $2`
	return r.execOne(ctx, common.ErrorNotFound, query, projectID, userID, now)
}

func (r *PostgresRepository) SetSessionStart(ctx context.Context, projectID, userID string, start time.Time) error {
	query := `
		UPDATE project_user SET session_started_at = $3
		WHERE project_id = $1 AND user_id = $2 AND session_started_at IS NULL`
	return r.execOne(ctx, common.ErrAlreadyStarted, query, projectID, userID, start)
}

func (r *PostgresRepository) CloseSession(ctx context.Context, projectID, userID string, minutes int64, now time.Time) (int64, error) {
	query := `
		UPDATE project_user
		SET contribution_minutes = contribution_minutes + $3,
		    last_activity = $4,
		    session_started_at = NULL
		WHERE project_id = $1 AND user_id = $2 AND session_started_at IS NOT NULL
		RETURNING contribution_minutes`
	var total int64
	err := r.db.QueryRowContext(ctx, query, projectID, userID, minutes, now).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, common.ErrNotStarted
	}
	if err != nil {
		return 0, dbx.TranslateError(err)
	}
	return total, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, projectID, userID string) error {
	query := `DELETE FROM project_user WHERE project_id = $1 AND user_id = $2`
	return r.execOne(ctx, common.ErrorNotFound, query, projectID, userID)
}

// execOne runs an update that must touch exactly one row and returns
// noRows when it touched none.
func (r *PostgresRepository) execOne(ctx context.Context, noRows error, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return dbx.TranslateError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return noRows
	}
	return nil
}

func (r *PostgresRepository) ListByProject(ctx context.Context, projectID string) ([]models.Member, error) {
	query := `
		SELECT pu.project_id, pu.user_id, pu.role, pu.contribution_minutes, pu.last_activity, pu.session_started_at,
		       u.name, u.email
		FROM project_user pu
		JOIN users u ON u.id = pu.user_id
		WHERE pu.project_id = $1
		ORDER BY u.name, u.id`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Member
	for rows.Next() {
		var name, email string
		m, err := scanMembership(rows, &name, &email)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, models.Member{Membership: *m, Name: name, Email: email})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) HasRoleAnywhere(ctx context.Context, userID string, roles ...models.Role) (bool, error) {
	if len(roles) == 0 {
		return false, nil
	}
	args := []any{userID}
	placeholders := make([]string, len(roles))
	for i, role := range roles {
		args = append(args, string(role))
		placeholders[i] = "$" + strconv.Itoa(i+2)
	}
	query := `SELECT EXISTS (SELECT 1 FROM project_user WHERE user_id = $1 AND role IN (` +
		strings.Join(placeholders, ", ") + `))`
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}
