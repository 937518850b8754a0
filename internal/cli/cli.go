// Package cli implements the taskledger admin command line: database
// maintenance commands that talk to PostgreSQL directly, and client
// commands that talk to a running server over gRPC.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/taskledger/internal/api"
	"github.com/dmitrijs2005/taskledger/internal/clock"
	"github.com/dmitrijs2005/taskledger/internal/dbx"
	"github.com/dmitrijs2005/taskledger/internal/flagx"
	"github.com/dmitrijs2005/taskledger/internal/logging"
	"github.com/dmitrijs2005/taskledger/internal/server"
	"github.com/dmitrijs2005/taskledger/internal/server/config"
	"github.com/dmitrijs2005/taskledger/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taskledger/internal/server/services"
)

// ErrUsage is returned for unknown commands and missing arguments.
var ErrUsage = errors.New("usage")

// Test seams.
var (
	loadConfig = config.LoadConfig
	dial       = func(target string) (*api.Client, error) { return api.NewClient(target) }
)

const (
	defaultServer       = "127.0.0.1:50051"
	defaultAdminProject = "Administration"
)

// callTimeout bounds every gRPC call made by the client commands.
const callTimeout = 10 * time.Second

type command struct {
	summary string
	flags   []string
	run     func(ctx context.Context, opts *options, w io.Writer) error
}

// options holds every command flag; each command reads the ones it declares.
type options struct {
	server  string
	token   string
	email   string
	name    string
	project string
	task    string
}

var commands = map[string]command{
	"migrate":    {"apply database migrations", nil, runMigrate},
	"seed-admin": {"create a super admin and their first project", []string{"-name", "-email", "-project"}, runSeedAdmin},
	"ping":       {"check that the server answers", []string{"-server"}, runPing},
	"login":      {"log in and print the token pair", []string{"-server", "-email"}, runLogin},
	"logout":     {"revoke every refresh token of the user", []string{"-server", "-token"}, runLogout},
	"start":      {"start a work session on a task", []string{"-server", "-token", "-task"}, runStart},
	"end":        {"end the work session on a task", []string{"-server", "-token", "-task"}, runEnd},
	"export":     {"export project contributions as CSV", []string{"-server", "-token", "-project"}, runExport},
}

// Run executes the command named by args[0]. Server configuration flags
// (see config.LoadConfig) may be mixed with the command flags.
func Run(ctx context.Context, args []string, w io.Writer) error {
	if len(args) == 0 {
		usage(w)
		return ErrUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		usage(w)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}

	opts := &options{server: defaultServer, name: "Super Admin"}
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.server, "server", opts.server, "server address")
	fs.StringVar(&opts.token, "token", "", "access token")
	fs.StringVar(&opts.email, "email", "", "user email")
	fs.StringVar(&opts.name, "name", opts.name, "user name")
	fs.StringVar(&opts.project, "project", opts.project, "project name or id")
	fs.StringVar(&opts.task, "task", "", "task id")
	if err := fs.Parse(flagx.FilterArgs(args[1:], cmd.flags)); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	return cmd.run(ctx, opts, w)
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "usage: taskledger-cli <command> [flags]")
	for _, n := range names {
		c := commands[n]
		fmt.Fprintf(w, "  %-11s %s", n, c.summary)
		if len(c.flags) > 0 {
			fmt.Fprintf(w, " (%s)", strings.Join(c.flags, " "))
		}
		fmt.Fprintln(w)
	}
}

func requireFlag(name, value string) error {
	if value == "" {
		return fmt.Errorf("%w: -%s is required", ErrUsage, name)
	}
	return nil
}

// ---- database commands ----

// openStore connects with the server configuration and brings the schema
// up to date.
func openStore(ctx context.Context) (*server.Services, func() error, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := server.OpenDB(ctx, cfg.DatabaseDSN, cfg.DatabaseConnectAttempts, logging.Nop{})
	if err != nil {
		return nil, nil, err
	}
	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	svc := server.NewServices(dbx.NewTransactor(db, nil), m, cfg, clock.Real(), logging.Nop{})
	return svc, db.Close, nil
}

func runMigrate(ctx context.Context, _ *options, w io.Writer) error {
	_, closeDB, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeDB()
	fmt.Fprintln(w, "migrations applied")
	return nil
}

func runSeedAdmin(ctx context.Context, opts *options, w io.Writer) error {
	if err := requireFlag("email", opts.email); err != nil {
		return err
	}
	password, err := GetPassword(w, "Password for "+opts.email)
	if err != nil {
		return err
	}

	svc, closeDB, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	project := opts.project
	if project == "" {
		project = defaultAdminProject
	}
	res, err := services.SeedSuperAdmin(ctx, svc.Users, svc.Projects, opts.name, opts.email, password, project)
	if err != nil {
		return err
	}
	switch {
	case res.CreatedUser:
		fmt.Fprintf(w, "created user %s (%s)\n", res.User.Email, res.User.ID)
	default:
		fmt.Fprintf(w, "user %s already exists (%s)\n", res.User.Email, res.User.ID)
	}
	if res.CreatedProject {
		fmt.Fprintf(w, "created project %q (%s) with %s as super admin\n", res.Project.Name, res.Project.ID, res.User.Email)
	} else {
		fmt.Fprintln(w, "user already is a super admin; no project created")
	}
	return nil
}

// ---- client commands ----

func connect(opts *options) (*api.Client, error) {
	c, err := dial(opts.server)
	if err != nil {
		return nil, err
	}
	c.SetTokens(opts.token, "")
	return c, nil
}

func runPing(ctx context.Context, opts *options, w io.Writer) error {
	c, err := connect(opts)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	pong, err := c.Ping(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, pong)
	return nil
}

func runLogin(ctx context.Context, opts *options, w io.Writer) error {
	if err := requireFlag("email", opts.email); err != nil {
		return err
	}
	password, err := GetPassword(w, "Password")
	if err != nil {
		return err
	}

	c, err := connect(opts)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	tokens, err := c.Login(ctx, opts.email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "access_token=%s\nrefresh_token=%s\n", tokens.AccessToken, tokens.RefreshToken)
	return nil
}

func runLogout(ctx context.Context, opts *options, w io.Writer) error {
	if err := requireFlag("token", opts.token); err != nil {
		return err
	}
	c, err := connect(opts)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	if err := c.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(w, "logged out")
	return nil
}

func runStart(ctx context.Context, opts *options, w io.Writer) error {
	if err := requireFlag("task", opts.task); err != nil {
		return err
	}
	c, err := connect(opts)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	st, err := c.StartTask(ctx, opts.task)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "started task %s at %s\n", st.TaskID, st.StartedAt.Format(time.RFC3339))
	return nil
}

func runEnd(ctx context.Context, opts *options, w io.Writer) error {
	if err := requireFlag("task", opts.task); err != nil {
		return err
	}
	c, err := connect(opts)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	end, err := c.EndTask(ctx, opts.task)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "ended task %s: +%d min, %d min total\n", end.TaskID, end.ElapsedMinutes, end.CumulativeMinutes)
	return nil
}

func runExport(ctx context.Context, opts *options, w io.Writer) error {
	if err := requireFlag("project", opts.project); err != nil {
		return err
	}
	c, err := connect(opts)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	rep, err := c.ExportContributions(ctx, opts.project)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%d rows, link valid until %s\n%s\n", rep.Rows, rep.ExpiresAt.Format(time.RFC3339), rep.URL)
	return nil
}
