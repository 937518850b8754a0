// Package server wires configuration, storage, services and the gRPC
// endpoint together and runs them until the process is told to stop.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/taskledger/internal/clock"
	"github.com/dmitrijs2005/taskledger/internal/dbx"
	"github.com/dmitrijs2005/taskledger/internal/logging"
	"github.com/dmitrijs2005/taskledger/internal/server/config"
	"github.com/dmitrijs2005/taskledger/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taskledger/internal/server/services"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/taskledger/internal/server/grpc"
)

var (
	// sqlOpen is a seam for tests.
	sqlOpen = sql.Open

	// connectBackoff is the first delay between database ping attempts.
	connectBackoff = 500 * time.Millisecond
)

// OpenDB opens the pgx-backed pool for dsn and pings it, retrying with
// exponential backoff up to attempts times.
func OpenDB(ctx context.Context, dsn string, attempts int, l logging.Logger) (*sql.DB, error) {
	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	if attempts < 1 {
		attempts = 1
	}

	b := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(connectBackoff))
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			l.Warn(ctx, "database not ready", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db connect: %w", err)
	}
	return db, nil
}

// Services holds the business services of one server instance.
type Services struct {
	Members  *services.MembershipService
	Tracking *services.TrackingService
	Tasks    *services.TaskService
	Projects *services.ProjectService
	Users    *services.UserService
	Reports  *services.ReportService
}

// NewServices builds every service over the same transactor and repository
// manager.
func NewServices(db dbx.Transactor, m repomanager.RepositoryManager, c *config.Config, clk clock.Clock, l logging.Logger) *Services {
	members := services.NewMembershipService(db, m, clk, l)
	return &Services{
		Members:  members,
		Tracking: services.NewTrackingService(db, m, clk, l),
		Tasks:    services.NewTaskService(db, m, members, clk, l),
		Projects: services.NewProjectService(db, m, members, clk, l),
		Users:    services.NewUserService(db, m, members, c, clk, l),
		Reports:  services.NewReportService(db, m, members, c, clk, l),
	}
}

// GRPC adapts s to the gRPC layer.
func (s *Services) GRPC() gs.Services {
	return gs.Services{
		Users:    s.Users,
		Projects: s.Projects,
		Members:  s.Members,
		Tasks:    s.Tasks,
		Tracking: s.Tracking,
		Reports:  s.Reports,
	}
}

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *gs.GRPCServer
}

// NewApp connects to the database, applies migrations and prepares the gRPC
// server. Logs go to w.
func NewApp(ctx context.Context, c *config.Config, w io.Writer) (*App, error) {
	logger := logging.NewJSON(w, c.LogLevel)

	db, err := OpenDB(ctx, c.DatabaseDSN, c.DatabaseConnectAttempts, logger)
	if err != nil {
		return nil, err
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	svc := NewServices(dbx.NewTransactor(db, nil), m, c, clock.Real(), logger)
	server := gs.NewGRPCServer(c.EndpointAddrGRPC, logger, svc.GRPC(), c.SecretKey, c.LoginRatePerMinute)

	return &App{config: c, logger: logger, db: db, server: server}, nil
}

// Run serves until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "Starting app...")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.server.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		app.logger.Info(ctx, "Shutting down...")
		return nil
	})

	err := g.Wait()
	return errors.Join(err, app.db.Close())
}
