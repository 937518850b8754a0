// Package grpc exposes the taskledger services over gRPC.
package grpc

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/dmitrijs2005/taskledger/internal/api"
	"github.com/dmitrijs2005/taskledger/internal/logging"
	"github.com/dmitrijs2005/taskledger/internal/server/models"
	"github.com/dmitrijs2005/taskledger/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type UserManager interface {
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, userID string) error
	CreateUser(ctx context.Context, acting, name, email, password string) (*models.User, error)
	GetUser(ctx context.Context, acting, userID string) (*models.User, error)
	ListUsers(ctx context.Context, acting string) ([]models.User, error)
	UpdateUser(ctx context.Context, acting, userID string, patch models.UserPatch) (*models.User, error)
	DeleteUser(ctx context.Context, acting, userID string) error
}

type ProjectManager interface {
	Create(ctx context.Context, acting, name, description string) (*models.Project, error)
	Get(ctx context.Context, acting, projectID string) (*models.ProjectDetails, error)
	List(ctx context.Context, acting, titleCondition string) ([]models.ProjectSummary, error)
	Update(ctx context.Context, acting, projectID string, patch models.ProjectPatch) (*models.Project, error)
	Delete(ctx context.Context, acting, projectID string) error
}

type MembershipManager interface {
	AssignMany(ctx context.Context, acting, projectID string, batch []models.Assignment) ([]models.Membership, error)
	Unassign(ctx context.Context, acting, projectID, userID string) error
	UpdateRole(ctx context.Context, acting, projectID, userID string, role models.Role) (*models.Membership, error)
	ListMembers(ctx context.Context, acting, projectID string) ([]models.Member, error)
	AdjustContribution(ctx context.Context, acting, projectID, userID string, deltaMinutes int64) (int64, error)
	ResetContribution(ctx context.Context, acting, projectID, userID string) error
}

type TaskManager interface {
	Create(ctx context.Context, acting, projectID string, in models.Task) (*models.Task, error)
	Get(ctx context.Context, acting, projectID, taskID string) (*models.Task, error)
	ListByProject(ctx context.Context, acting, projectID string) ([]models.Task, error)
	Filter(ctx context.Context, acting string, f models.TaskFilter) ([]models.Task, error)
	Update(ctx context.Context, acting, projectID, taskID string, patch models.TaskPatch) (*models.Task, error)
	Delete(ctx context.Context, acting, projectID, taskID string) error
	AssignUser(ctx context.Context, acting, projectID, taskID, userID string, role models.Role) (*models.Membership, error)
	UpdateStatus(ctx context.Context, acting, taskID string, status models.TaskStatus) (*models.Task, error)
	AddNote(ctx context.Context, acting, taskID, note string) (*models.Task, error)
}

type SessionTracker interface {
	StartSession(ctx context.Context, acting, taskID string) (*models.SessionStart, error)
	EndSession(ctx context.Context, acting, taskID string) (*models.SessionEnd, error)
}

type ReportExporter interface {
	ExportContributions(ctx context.Context, acting, projectID string) (*services.ContributionReport, error)
}

// Services groups the business services served over gRPC.
type Services struct {
	Users    UserManager
	Projects ProjectManager
	Members  MembershipManager
	Tasks    TaskManager
	Tracking SessionTracker
	Reports  ReportExporter
}

type GRPCServer struct {
	address   string
	svc       Services
	logger    logging.Logger
	jwtSecret []byte
	limiter   *loginLimiter
}

// NewGRPCServer builds a server listening on address. loginsPerMinute limits
// Login calls per client address; zero disables the limit.
func NewGRPCServer(address string, l logging.Logger, svc Services, secretKey string, loginsPerMinute int) *GRPCServer {
	return &GRPCServer{
		address:   address,
		svc:       svc,
		logger:    l.With("module", "grpc_server"),
		jwtSecret: []byte(secretKey),
		limiter:   newLoginLimiter(loginsPerMinute, time.Minute),
	}
}

func (s *GRPCServer) newServer() (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		s.loggingInterceptor,
		s.loginRateInterceptor,
		s.accessTokenInterceptor,
	))
	api.RegisterTaskLedgerServer(srv, s)

	hs := health.NewServer()
	hs.SetServingStatus(api.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv, hs
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves on listen until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {
	srv, hs := s.newServer()

	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
		case <-stopped:
			return
		}
		s.logger.Info(ctx, "Stopping gRPC server...")
		hs.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}
