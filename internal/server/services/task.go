package services

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/dmitrijs2005/taskledger/internal/clock"
	"github.com/dmitrijs2005/taskledger/internal/common"
	"github.com/dmitrijs2005/taskledger/internal/dbx"
	"github.com/dmitrijs2005/taskledger/internal/logging"
	"github.com/dmitrijs2005/taskledger/internal/server/models"
	"github.com/dmitrijs2005/taskledger/internal/server/policy"
	"github.com/dmitrijs2005/taskledger/internal/server/repositories/repomanager"
)

// TaskService implements the task lifecycle. Tasks addressed through a
// project path are checked to belong to that project.
type TaskService struct {
	base
	members *MembershipService
}

func NewTaskService(db dbx.Transactor, m repomanager.RepositoryManager, members *MembershipService, clk clock.Clock, l logging.Logger) *TaskService {
	return &TaskService{base: newBase("task", db, m, clk, l), members: members}
}

// resolve loads projectID and taskID and checks that the task belongs to
// the project. A task of another project is forbidden, not missing.
func (s *TaskService) resolve(ctx context.Context, projectID, taskID string) (*models.Task, error) {
	if _, err := s.repomanager.Projects(s.db).GetByID(ctx, projectID); err != nil {
		return nil, s.fail(ctx, "get_project", err)
	}
	task, err := s.repomanager.Tasks(s.db).GetByID(ctx, taskID)
	if err != nil {
		return nil, s.fail(ctx, "get_task", err)
	}
	if task.ProjectID != projectID {
		return nil, fmt.Errorf("%w: task does not belong to project", common.ErrorForbidden)
	}
	return task, nil
}

func (s *TaskService) Create(ctx context.Context, acting, projectID string, in models.Task) (*models.Task, error) {
	if _, err := s.repomanager.Projects(s.db).GetByID(ctx, projectID); err != nil {
		return nil, s.fail(ctx, "get_project", err)
	}
	if err := s.members.Require(ctx, acting, projectID, policy.TaskManagers...); err != nil {
		return nil, err
	}

	task := in
	task.ID = ""
	task.ProjectID = projectID
	if task.Status == "" {
		task.Status = models.TaskStatusNew
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	created, err := s.repomanager.Tasks(s.db).Create(ctx, &task)
	if err != nil {
		return nil, s.fail(ctx, "create_task", err)
	}
	s.logger.Info(ctx, "task created", "project_id", projectID, "task_id", created.ID)
	return created, nil
}

func (s *TaskService) Get(ctx context.Context, acting, projectID, taskID string) (*models.Task, error) {
	task, err := s.resolve(ctx, projectID, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.members.Require(ctx, acting, projectID, policy.Members...); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) ListByProject(ctx context.Context, acting, projectID string) ([]models.Task, error) {
	if _, err := s.repomanager.Projects(s.db).GetByID(ctx, projectID); err != nil {
		return nil, s.fail(ctx, "get_project", err)
	}
	if err := s.members.Require(ctx, acting, projectID, policy.Members...); err != nil {
		return nil, err
	}
	tasks, err := s.repomanager.Tasks(s.db).ListByProject(ctx, projectID)
	if err != nil {
		return nil, s.fail(ctx, "list_tasks", err)
	}
	return tasks, nil
}

// Filter lists the tasks of every project acting belongs to, optionally
// narrowed by status and priority.
func (s *TaskService) Filter(ctx context.Context, acting string, f models.TaskFilter) ([]models.Task, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: invalid status %q", common.ErrorValidation, f.Status)
	}
	if f.Priority != "" && !f.Priority.Valid() {
		return nil, fmt.Errorf("%w: invalid priority %q", common.ErrorValidation, f.Priority)
	}
	tasks, err := s.repomanager.Tasks(s.db).Filter(ctx, acting, f)
	if err != nil {
		return nil, s.fail(ctx, "filter_tasks", err)
	}
	return tasks, nil
}

// Update applies patch. A task cannot move to another project.
func (s *TaskService) Update(ctx context.Context, acting, projectID, taskID string, patch models.TaskPatch) (*models.Task, error) {
	task, err := s.resolve(ctx, projectID, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.members.Require(ctx, acting, projectID, policy.TaskManagers...); err != nil {
		return nil, err
	}
	if patch.ProjectID != nil && *patch.ProjectID != task.ProjectID {
		return nil, fmt.Errorf("%w: project of a task cannot be changed", common.ErrInvalidOperation)
	}

	patch.Apply(task)
	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	if err := s.repomanager.Tasks(s.db).Update(ctx, task); err != nil {
		return nil, s.fail(ctx, "update_task", err)
	}
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, acting, projectID, taskID string) error {
	if _, err := s.resolve(ctx, projectID, taskID); err != nil {
		return err
	}
	if err := s.members.Require(ctx, acting, projectID, policy.TaskManagers...); err != nil {
		return err
	}
	if err := s.repomanager.Tasks(s.db).Delete(ctx, taskID); err != nil {
		return s.fail(ctx, "delete_task", err)
	}
	s.logger.Info(ctx, "task deleted", "project_id", projectID, "task_id", taskID)
	return nil
}

// AssignUser makes userID a member of the task's project with role,
// creating the membership if needed.
func (s *TaskService) AssignUser(ctx context.Context, acting, projectID, taskID, userID string, role models.Role) (*models.Membership, error) {
	if _, err := s.resolve(ctx, projectID, taskID); err != nil {
		return nil, err
	}
	if err := s.members.Require(ctx, acting, projectID, policy.TaskManagers...); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrorValidation, role)
	}
	return s.members.assign(ctx, s.db, projectID, userID, role)
}

// UpdateStatus is reserved to developers of the task's project.
func (s *TaskService) UpdateStatus(ctx context.Context, acting, taskID string, status models.TaskStatus) (*models.Task, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: invalid status %q", common.ErrorValidation, status)
	}
	task, err := s.repomanager.Tasks(s.db).GetByID(ctx, taskID)
	if err != nil {
		return nil, s.fail(ctx, "get_task", err)
	}
	if err := s.members.Require(ctx, acting, task.ProjectID, policy.Developers...); err != nil {
		return nil, err
	}
	if err := s.repomanager.Tasks(s.db).UpdateStatus(ctx, taskID, status); err != nil {
		return nil, s.fail(ctx, "update_status", err)
	}
	task.Status = status
	return task, nil
}

// AddNote is reserved to testers of the task's project.
func (s *TaskService) AddNote(ctx context.Context, acting, taskID, note string) (*models.Task, error) {
	if utf8.RuneCountInString(note) > models.MaxNoteLength {
		return nil, fmt.Errorf("%w: note exceeds %d characters", common.ErrorValidation, models.MaxNoteLength)
	}
	task, err := s.repomanager.Tasks(s.db).GetByID(ctx, taskID)
	if err != nil {
		return nil, s.fail(ctx, "get_task", err)
	}
	if err := s.members.Require(ctx, acting, task.ProjectID, policy.Testers...); err != nil {
		return nil, err
	}
	if err := s.repomanager.Tasks(s.db).UpdateNote(ctx, taskID, note); err != nil {
		return nil, s.fail(ctx, "add_note", err)
	}
	task.Note = note
	return task, nil
}
