package services

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/taskledger/internal/clock"
	"github.com/dmitrijs2005/taskledger/internal/logging"
	"github.com/dmitrijs2005/taskledger/internal/server/config"
	"github.com/dmitrijs2005/taskledger/internal/server/models"
)

var t0 = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type harness struct {
	store    *memStore
	tx       *fakeTx
	clock    *clock.FakeClock
	members  *MembershipService
	tracking *TrackingService
	tasks    *TaskService
	projects *ProjectService
	users    *UserService
	reports  *ReportService
	cfg      *config.Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := newMemStore()
	tx := &fakeTx{store: store}
	rm := &fakeRepoManager{s: store}
	clk := clock.Fake(t0)
	log := logging.Nop{}
	cfg := &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
		S3Region:                     "us-east-1",
		S3RootUser:                   "minioadmin",
		S3RootPassword:               "minioadmin",
		S3BaseEndpoint:               "http://127.0.0.1:9000",
		S3Bucket:                     "reports",
	}

	members := NewMembershipService(tx, rm, clk, log)
	return &harness{
		store:    store,
		tx:       tx,
		clock:    clk,
		cfg:      cfg,
		members:  members,
		tracking: NewTrackingService(tx, rm, clk, log),
		tasks:    NewTaskService(tx, rm, members, clk, log),
		projects: NewProjectService(tx, rm, members, clk, log),
		users:    NewUserService(tx, rm, members, cfg, clk, log),
		reports:  NewReportService(tx, rm, members, cfg, clk, log),
	}
}

func (h *harness) addUser(name string) string {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	id := h.store.nextID("user")
	h.store.users[id] = models.User{ID: id, Name: name, Email: name + "@example.com"}
	return id
}

func (h *harness) addProject(name string) string {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	id := h.store.nextID("project")
	h.store.projects[id] = models.Project{ID: id, Name: name}
	return id
}

func (h *harness) addTask(projectID, title string) string {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	id := h.store.nextID("task")
	h.store.tasks[id] = models.Task{
		ID: id, ProjectID: projectID, Title: title,
		Status: models.TaskStatusNew, Priority: models.PriorityMedium, CreatedAt: h.clock.Now(),
	}
	return id
}

func (h *harness) addMember(projectID, userID string, role models.Role) {
	h.store.putEdge(models.Membership{ProjectID: projectID, UserID: userID, Role: role})
}
