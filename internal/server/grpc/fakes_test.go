package grpc

import (
	"context"

	"github.com/dmitrijs2005/taskledger/internal/logging"
	"github.com/dmitrijs2005/taskledger/internal/server/models"
	"github.com/dmitrijs2005/taskledger/internal/server/services"
)

// Each fake records the acting user of the last call and returns err when
// set.

type fakeUsers struct {
	acting     string
	loginResp  *services.TokenPair
	refreshIn  string
	refreshErr error
	user       *models.User
	err        error
}

func (f *fakeUsers) Login(ctx context.Context, email, password string) (*services.TokenPair, error) {
	return f.loginResp, f.err
}
func (f *fakeUsers) RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error) {
	f.refreshIn = refreshToken
	return f.loginResp, f.refreshErr
}
func (f *fakeUsers) Logout(ctx context.Context, userID string) error {
	f.acting = userID
	return f.err
}
func (f *fakeUsers) CreateUser(ctx context.Context, acting, name, email, password string) (*models.User, error) {
	f.acting = acting
	return f.user, f.err
}
func (f *fakeUsers) GetUser(ctx context.Context, acting, userID string) (*models.User, error) {
	f.acting = acting
	return f.user, f.err
}
func (f *fakeUsers) ListUsers(ctx context.Context, acting string) ([]models.User, error) {
	f.acting = acting
	if f.user == nil {
		return nil, f.err
	}
	return []models.User{*f.user}, f.err
}
func (f *fakeUsers) UpdateUser(ctx context.Context, acting, userID string, patch models.UserPatch) (*models.User, error) {
	f.acting = acting
	return f.user, f.err
}
func (f *fakeUsers) DeleteUser(ctx context.Context, acting, userID string) error {
	f.acting = acting
	return f.err
}

type fakeProjects struct {
	acting  string
	project *models.Project
	details *models.ProjectDetails
	err     error

	summaries      []models.ProjectSummary
	titleCondition string
}

func (f *fakeProjects) Create(ctx context.Context, acting, name, description string) (*models.Project, error) {
	f.acting = acting
	return f.project, f.err
}
func (f *fakeProjects) Get(ctx context.Context, acting, projectID string) (*models.ProjectDetails, error) {
	f.acting = acting
	return f.details, f.err
}
func (f *fakeProjects) List(ctx context.Context, acting, titleCondition string) ([]models.ProjectSummary, error) {
	f.acting = acting
	f.titleCondition = titleCondition
	return f.summaries, f.err
}
func (f *fakeProjects) Update(ctx context.Context, acting, projectID string, patch models.ProjectPatch) (*models.Project, error) {
	f.acting = acting
	return f.project, f.err
}
func (f *fakeProjects) Delete(ctx context.Context, acting, projectID string) error {
	f.acting = acting
	return f.err
}

type fakeMembers struct {
	acting string
	batch  []models.Assignment
	total  int64
	err    error
}

func (f *fakeMembers) AssignMany(ctx context.Context, acting, projectID string, batch []models.Assignment) ([]models.Membership, error) {
	f.acting, f.batch = acting, batch
	out := make([]models.Membership, 0, len(batch))
	for _, a := range batch {
		out = append(out, models.Membership{ProjectID: projectID, UserID: a.UserID, Role: a.Role})
	}
	return out, f.err
}
func (f *fakeMembers) Unassign(ctx context.Context, acting, projectID, userID string) error {
	f.acting = acting
	return f.err
}
func (f *fakeMembers) UpdateRole(ctx context.Context, acting, projectID, userID string, role models.Role) (*models.Membership, error) {
	f.acting = acting
	return &models.Membership{ProjectID: projectID, UserID: userID, Role: role}, f.err
}
func (f *fakeMembers) ListMembers(ctx context.Context, acting, projectID string) ([]models.Member, error) {
	f.acting = acting
	return nil, f.err
}
func (f *fakeMembers) AdjustContribution(ctx context.Context, acting, projectID, userID string, deltaMinutes int64) (int64, error) {
	f.acting = acting
	f.total += deltaMinutes
	return f.total, f.err
}
func (f *fakeMembers) ResetContribution(ctx context.Context, acting, projectID, userID string) error {
	f.acting = acting
	return f.err
}

type fakeTasks struct {
	acting string
	patch  models.TaskPatch
	filter models.TaskFilter
	task   *models.Task
	err    error
}

func (f *fakeTasks) Create(ctx context.Context, acting, projectID string, in models.Task) (*models.Task, error) {
	f.acting = acting
	in.ProjectID = projectID
	return &in, f.err
}
func (f *fakeTasks) Get(ctx context.Context, acting, projectID, taskID string) (*models.Task, error) {
	f.acting = acting
	return f.task, f.err
}
func (f *fakeTasks) ListByProject(ctx context.Context, acting, projectID string) ([]models.Task, error) {
	f.acting = acting
	return nil, f.err
}
func (f *fakeTasks) Filter(ctx context.Context, acting string, filter models.TaskFilter) ([]models.Task, error) {
	f.acting, f.filter = acting, filter
	return nil, f.err
}
func (f *fakeTasks) Update(ctx context.Context, acting, projectID, taskID string, patch models.TaskPatch) (*models.Task, error) {
	f.acting, f.patch = acting, patch
	return f.task, f.err
}
func (f *fakeTasks) Delete(ctx context.Context, acting, projectID, taskID string) error {
	f.acting = acting
	return f.err
}
func (f *fakeTasks) AssignUser(ctx context.Context, acting, projectID, taskID, userID string, role models.Role) (*models.Membership, error) {
	f.acting = acting
	return &models.Membership{ProjectID: projectID, UserID: userID, Role: role}, f.err
}
func (f *fakeTasks) UpdateStatus(ctx context.Context, acting, taskID string, status models.TaskStatus) (*models.Task, error) {
	f.acting = acting
	return f.task, f.err
}
func (f *fakeTasks) AddNote(ctx context.Context, acting, taskID, note string) (*models.Task, error) {
	f.acting = acting
	return f.task, f.err
}

type fakeTracking struct {
	acting string
	start  *models.SessionStart
	end    *models.SessionEnd
	err    error
}

func (f *fakeTracking) StartSession(ctx context.Context, acting, taskID string) (*models.SessionStart, error) {
	f.acting = acting
	return f.start, f.err
}
func (f *fakeTracking) EndSession(ctx context.Context, acting, taskID string) (*models.SessionEnd, error) {
	f.acting = acting
	return f.end, f.err
}

type fakeReports struct {
	acting string
	report *services.ContributionReport
	err    error
}

func (f *fakeReports) ExportContributions(ctx context.Context, acting, projectID string) (*services.ContributionReport, error) {
	f.acting = acting
	return f.report, f.err
}

type fakes struct {
	users    *fakeUsers
	projects *fakeProjects
	members  *fakeMembers
	tasks    *fakeTasks
	tracking *fakeTracking
	reports  *fakeReports
}

func newFakes() *fakes {
	return &fakes{
		users:    &fakeUsers{},
		projects: &fakeProjects{},
		members:  &fakeMembers{},
		tasks:    &fakeTasks{},
		tracking: &fakeTracking{},
		reports:  &fakeReports{},
	}
}

func (f *fakes) services() Services {
	return Services{
		Users:    f.users,
		Projects: f.projects,
		Members:  f.members,
		Tasks:    f.tasks,
		Tracking: f.tracking,
		Reports:  f.reports,
	}
}

func newTestServer(f *fakes, loginsPerMinute int) *GRPCServer {
	return NewGRPCServer("127.0.0.1:0", logging.Nop{}, f.services(), "secret", loginsPerMinute)
}
