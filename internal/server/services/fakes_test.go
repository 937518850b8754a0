package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/taskledger/internal/common"
	"github.com/dmitrijs2005/taskledger/internal/dbx"
	"github.com/dmitrijs2005/taskledger/internal/server/models"
	"github.com/dmitrijs2005/taskledger/internal/server/repositories/memberships"
	"github.com/dmitrijs2005/taskledger/internal/server/repositories/projects"
	"github.com/dmitrijs2005/taskledger/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/taskledger/internal/server/repositories/tasks"
	"github.com/dmitrijs2005/taskledger/internal/server/repositories/users"
)

var errBoom = errors.New("boom")

type edgeKey struct{ project, user string }

// memStore is an in-memory database shared by the fake repositories.
type memStore struct {
	mu       sync.Mutex
	seq      int
	users    map[string]models.User
	tokens   map[string]models.RefreshToken
	projects map[string]models.Project
	tasks    map[string]models.Task
	edges    map[edgeKey]models.Membership
	// failures makes the named repository operation return the error.
	failures map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]models.User{},
		tokens:   map[string]models.RefreshToken{},
		projects: map[string]models.Project{},
		tasks:    map[string]models.Task{},
		edges:    map[edgeKey]models.Membership{},
		failures: map[string]error{},
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *memStore) failOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

func (s *memStore) injected(op string) error {
	return s.failures[op]
}

type snapshot struct {
	seq      int
	users    map[string]models.User
	tokens   map[string]models.RefreshToken
	projects map[string]models.Project
	tasks    map[string]models.Task
	edges    map[edgeKey]models.Membership
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot{s.seq, cloneMap(s.users), cloneMap(s.tokens), cloneMap(s.projects), cloneMap(s.tasks), cloneMap(s.edges)}
}

func (s *memStore) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq, s.users, s.tokens, s.projects, s.tasks, s.edges = snap.seq, snap.users, snap.tokens, snap.projects, snap.tasks, snap.edges
}

// edge returns a copy of the membership, for assertions.
func (s *memStore) edge(project, user string) (models.Membership, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.edges[edgeKey{project, user}]
	return m, ok
}

func (s *memStore) putEdge(m models.Membership) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges[edgeKey{m.ProjectID, m.UserID}] = m
}

// ---- transactor ----

// fakeTx serializes transactions and rolls the store back when fn fails.
type fakeTx struct {
	store  *memStore
	txMu   sync.Mutex
	txs    int
	failTx error
}

func (f *fakeTx) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, errors.New("fakeTx: no SQL")
}
func (f *fakeTx) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errors.New("fakeTx: no SQL")
}
func (f *fakeTx) QueryRowContext(context.Context, string, ...any) *sql.Row { return nil }

func (f *fakeTx) WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()
	f.txs++
	if f.failTx != nil {
		return f.failTx
	}
	snap := f.store.snapshot()
	if err := fn(ctx, f); err != nil {
		f.store.restore(snap)
		return err
	}
	return nil
}

// ---- repository manager ----

type fakeRepoManager struct{ s *memStore }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error          { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository                       { return &memUsers{m.s} }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository       { return &memTokens{m.s} }
func (m *fakeRepoManager) Projects(dbx.DBTX) projects.Repository                 { return &memProjects{m.s} }
func (m *fakeRepoManager) Tasks(dbx.DBTX) tasks.Repository                       { return &memTasks{m.s} }
func (m *fakeRepoManager) Memberships(dbx.DBTX) memberships.Repository           { return &memMemberships{m.s} }

// ---- users ----

type memUsers struct{ s *memStore }

func (r *memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("users.create"); err != nil {
		return nil, err
	}
	for _, other := range r.s.users {
		if other.Email == u.Email {
			return nil, fmt.Errorf("%w: users_email_key", common.ErrConflict)
		}
	}
	u.ID = r.s.nextID("user")
	r.s.users[u.ID] = *u
	return u, nil
}

func (r *memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("users.get_by_email"); err != nil {
		return nil, err
	}
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memUsers) List(context.Context) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.User
	for _, u := range r.s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memUsers) Update(_ context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[u.ID]; !ok {
		return common.ErrorNotFound
	}
	r.s.users[u.ID] = *u
	return nil
}

func (r *memUsers) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.users, id)
	for k := range r.s.edges {
		if k.user == id {
			delete(r.s.edges, k)
		}
	}
	for k, t := range r.s.tokens {
		if t.UserID == id {
			delete(r.s.tokens, k)
		}
	}
	return nil
}

// ---- refresh tokens ----

type memTokens struct{ s *memStore }

func (r *memTokens) Create(_ context.Context, userID, token string, expiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("tokens.create"); err != nil {
		return err
	}
	r.s.tokens[token] = models.RefreshToken{UserID: userID, Token: token, Expires: expiresAt}
	return nil
}

func (r *memTokens) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &t, nil
}

func (r *memTokens) Delete(_ context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.tokens, token)
	return nil
}

func (r *memTokens) DeleteByUser(_ context.Context, userID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for k, t := range r.s.tokens {
		if t.UserID == userID {
			delete(r.s.tokens, k)
			n++
		}
	}
	return n, nil
}

// ---- projects ----

type memProjects struct{ s *memStore }

func (r *memProjects) Create(_ context.Context, p *models.Project) (*models.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("projects.create"); err != nil {
		return nil, err
	}
	p.ID = r.s.nextID("project")
	r.s.projects[p.ID] = *p
	return p, nil
}

func (r *memProjects) GetByID(_ context.Context, id string) (*models.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("projects.get"); err != nil {
		return nil, err
	}
	p, ok := r.s.projects[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &p, nil
}

func (r *memProjects) ListByUser(_ context.Context, userID string) ([]models.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Project
	for k := range r.s.edges {
		if k.user == userID {
			out = append(out, r.s.projects[k.project])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memProjects) Update(_ context.Context, p *models.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.projects[p.ID]; !ok {
		return common.ErrorNotFound
	}
	r.s.projects[p.ID] = *p
	return nil
}

func (r *memProjects) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.projects[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.projects, id)
	for k, t := range r.s.tasks {
		if t.ProjectID == id {
			delete(r.s.tasks, k)
		}
	}
	for k := range r.s.edges {
		if k.project == id {
			delete(r.s.edges, k)
		}
	}
	return nil
}

// ---- tasks ----

type memTasks struct{ s *memStore }

func (r *memTasks) Create(_ context.Context, t *models.Task) (*models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.projects[t.ProjectID]; !ok {
		return nil, common.ErrorNotFound
	}
	t.ID = r.s.nextID("task")
	r.s.tasks[t.ID] = *t
	return t, nil
}

func (r *memTasks) GetByID(_ context.Context, id string) (*models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("tasks.get"); err != nil {
		return nil, err
	}
	t, ok := r.s.tasks[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &t, nil
}

func (r *memTasks) ListByProject(_ context.Context, projectID string) ([]models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Task
	for _, t := range r.s.tasks {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memTasks) Filter(_ context.Context, userID string, f models.TaskFilter) ([]models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Task
	for _, t := range r.s.tasks {
		if _, member := r.s.edges[edgeKey{t.ProjectID, userID}]; !member {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Priority != "" && t.Priority != f.Priority {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memTasks) Highlights(_ context.Context, projectID, titleCondition string) (*models.TaskHighlights, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("tasks.highlights"); err != nil {
		return nil, err
	}
	var list []models.Task
	for _, t := range r.s.tasks {
		if t.ProjectID == projectID {
			list = append(list, t)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})

	var h models.TaskHighlights
	if len(list) == 0 {
		return &h, nil
	}
	oldest, latest := list[0], list[len(list)-1]
	h.Oldest, h.Latest = &oldest, &latest
	cond := strings.ToLower(titleCondition)
	for i := len(list) - 1; i >= 0; i-- {
		t := list[i]
		if t.Priority == models.PriorityHigh && strings.Contains(strings.ToLower(t.Title), cond) {
			h.HighestPriority = &t
			break
		}
	}
	return &h, nil
}

func (r *memTasks) Update(_ context.Context, t *models.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tasks[t.ID]; !ok {
		return common.ErrorNotFound
	}
	r.s.tasks[t.ID] = *t
	return nil
}

func (r *memTasks) UpdateStatus(_ context.Context, id string, status models.TaskStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tasks[id]
	if !ok {
		return common.ErrorNotFound
	}
	t.Status = status
	r.s.tasks[id] = t
	return nil
}

func (r *memTasks) UpdateNote(_ context.Context, id string, note string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tasks[id]
	if !ok {
		return common.ErrorNotFound
	}
	t.Note = note
	r.s.tasks[id] = t
	return nil
}

func (r *memTasks) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tasks[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.tasks, id)
	return nil
}

// ---- memberships ----

type memMemberships struct{ s *memStore }

func timePtr(t time.Time) *time.Time { return &t }

func (r *memMemberships) Upsert(_ context.Context, projectID, userID string, role models.Role, now time.Time) (*models.Membership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("memberships.upsert"); err != nil {
		return nil, err
	}
	if _, ok := r.s.projects[projectID]; !ok {
		return nil, fmt.Errorf("%w: project_user_project_id_fkey", common.ErrorNotFound)
	}
	if _, ok := r.s.users[userID]; !ok {
		return nil, fmt.Errorf("%w: project_user_user_id_fkey", common.ErrorNotFound)
	}
	k := edgeKey{projectID, userID}
	m, ok := r.s.edges[k]
	if !ok {
		m = models.Membership{ProjectID: projectID, UserID: userID}
	}
	m.Role = role
	m.LastActivity = timePtr(now)
	r.s.edges[k] = m
	return &m, nil
}

func (r *memMemberships) Get(_ context.Context, projectID, userID string) (*models.Membership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("memberships.get"); err != nil {
		return nil, err
	}
	m, ok := r.s.edges[edgeKey{projectID, userID}]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &m, nil
}

func (r *memMemberships) GetForUpdate(ctx context.Context, projectID, userID string) (*models.Membership, error) {
	return r.Get(ctx, projectID, userID)
}

func (r *memMemberships) UpdateRole(_ context.Context, projectID, userID string, role models.Role, now time.Time) (*models.Membership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := edgeKey{projectID, userID}
	m, ok := r.s.edges[k]
	if !ok {
		return nil, common.ErrorNotFound
	}
	m.Role = role
	m.LastActivity = timePtr(now)
	r.s.edges[k] = m
	return &m, nil
}

func (r *memMemberships) AddContribution(_ context.Context, projectID, userID string, minutes int64, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := edgeKey{projectID, userID}
	m, ok := r.s.edges[k]
	if !ok {
		return 0, common.ErrorNotFound
	}
	m.ContributionMinutes += minutes
	m.LastActivity = timePtr(now)
	r.s.edges[k] = m
	return m.ContributionMinutes, nil
}

func (r *memMemberships) ResetContribution(_ context.Context, projectID, userID string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := edgeKey{projectID, userID}
	m, ok := r.s.edges[k]
	if !ok {
		return common.ErrorNotFound
	}
	m.ContributionMinutes = 0
	m.LastActivity = timePtr(now)
	r.s.edges[k] = m
	return nil
}

func (r *memMemberships) SetSessionStart(_ context.Context, projectID, userID string, start time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("memberships.set_session_start"); err != nil {
		return err
	}
	k := edgeKey{projectID, userID}
	m, ok := r.s.edges[k]
	if !ok || m.SessionStartedAt != nil {
		return common.ErrAlreadyStarted
	}
	m.SessionStartedAt = timePtr(start)
	r.s.edges[k] = m
	return nil
}

func (r *memMemberships) CloseSession(_ context.Context, projectID, userID string, minutes int64, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("memberships.close_session"); err != nil {
		return 0, err
	}
	k := edgeKey{projectID, userID}
	m, ok := r.s.edges[k]
	if !ok || m.SessionStartedAt == nil {
		return 0, common.ErrNotStarted
	}
	m.ContributionMinutes += minutes
	m.LastActivity = timePtr(now)
	m.SessionStartedAt = nil
	r.s.edges[k] = m
	return m.ContributionMinutes, nil
}

func (r *memMemberships) Delete(_ context.Context, projectID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := edgeKey{projectID, userID}
	if _, ok := r.s.edges[k]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.edges, k)
	return nil
}

func (r *memMemberships) ListByProject(_ context.Context, projectID string) ([]models.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Member
	for k, m := range r.s.edges {
		if k.project != projectID {
			continue
		}
		u := r.s.users[k.user]
		out = append(out, models.Member{Membership: m, Name: u.Name, Email: u.Email})
	}
	sort.Slice(out, func(i, j int) bool { return strings.Compare(out[i].Name, out[j].Name) < 0 })
	return out, nil
}

func (r *memMemberships) HasRoleAnywhere(_ context.Context, userID string, roles ...models.Role) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.injected("memberships.has_role"); err != nil {
		return false, err
	}
	for k, m := range r.s.edges {
		if k.user != userID {
			continue
		}
		for _, role := range roles {
			if m.Role == role {
				return true, nil
			}
		}
	}
	return false, nil
}
