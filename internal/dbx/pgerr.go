package dbx

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/taskledger/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes the repositories translate.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"

	// Ids are UUID columns, so malformed input text can only be an id.
	pgInvalidTextRepresentation = "22P02"
)

// TranslateError maps driver errors onto the common sentinels. Errors it
// does not recognise are wrapped as "db error".
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", common.ErrConflict, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", common.ErrorNotFound, pgErr.ConstraintName)
		case pgCheckViolation:
			return fmt.Errorf("%w: %s", common.ErrorValidation, pgErr.ConstraintName)
		case pgInvalidTextRepresentation:
			return fmt.Errorf("%w: %s", common.ErrorNotFound, pgErr.Message)
		}
	}
	return fmt.Errorf("db error: %w", err)
}

// NullTime converts a nullable column into a pointer.
func NullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
