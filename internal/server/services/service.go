// Package services contains server-side business logic: authentication,
// project membership and authorization, task lifecycle, work-session time
// tracking and contribution reports.
package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/taskledger/internal/clock"
	"github.com/dmitrijs2005/taskledger/internal/common"
	"github.com/dmitrijs2005/taskledger/internal/dbx"
	"github.com/dmitrijs2005/taskledger/internal/logging"
	"github.com/dmitrijs2005/taskledger/internal/server/repositories/repomanager"
)

// domainErrors pass through services unchanged; anything else is logged and
// reported as common.ErrorInternal.
var domainErrors = []error{
	common.ErrorInternal,
	common.ErrorNotFound,
	common.ErrConflict,
	common.ErrorUnauthorized,
	common.ErrorForbidden,
	common.ErrInvalidOperation,
	common.ErrorValidation,
	common.ErrAlreadyStarted,
	common.ErrNotStarted,
	common.ErrInvalidCredentials,
	common.ErrInvalidToken,
	common.ErrTokenExpired,
	common.ErrRefreshTokenExpired,
}

// base bundles what every service needs.
type base struct {
	db          dbx.Transactor
	repomanager repomanager.RepositoryManager
	clock       clock.Clock
	logger      logging.Logger
}

func newBase(name string, db dbx.Transactor, m repomanager.RepositoryManager, clk clock.Clock, l logging.Logger) base {
	if clk == nil {
		clk = clock.Real()
	}
	if l == nil {
		l = logging.Nop{}
	}
	return base{db: db, repomanager: m, clock: clk, logger: l.With("service", name)}
}

// fail returns err if it is a domain error; otherwise it logs it under op
// and returns common.ErrorInternal.
func (b *base) fail(ctx context.Context, op string, err error) error {
	for _, de := range domainErrors {
		if errors.Is(err, de) {
			return err
		}
	}
	b.logger.Error(ctx, "storage failure", "op", op, "error", err)
	return common.ErrorInternal
}
