package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/taskledger/internal/clock"
	"github.com/dmitrijs2005/taskledger/internal/common"
	"github.com/dmitrijs2005/taskledger/internal/dbx"
	"github.com/dmitrijs2005/taskledger/internal/logging"
	"github.com/dmitrijs2005/taskledger/internal/server/models"
	"github.com/dmitrijs2005/taskledger/internal/server/policy"
	"github.com/dmitrijs2005/taskledger/internal/server/repositories/repomanager"
)

type ProjectService struct {
	base
	members *MembershipService
}

func NewProjectService(db dbx.Transactor, m repomanager.RepositoryManager, members *MembershipService, clk clock.Clock, l logging.Logger) *ProjectService {
	return &ProjectService{base: newBase("project", db, m, clk, l), members: members}
}

// Create is open to super admins of any project. The creator becomes the
// super admin of the new project.
func (s *ProjectService) Create(ctx context.Context, acting, name, description string) (*models.Project, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: project name is required", common.ErrorValidation)
	}
	if err := s.members.RequireAny(ctx, acting, policy.ProjectAdmins...); err != nil {
		return nil, err
	}
	return s.create(ctx, acting, name, description)
}

func (s *ProjectService) create(ctx context.Context, owner, name, description string) (*models.Project, error) {
	var project *models.Project
	err := s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		p, err := s.repomanager.Projects(tx).Create(ctx, &models.Project{Name: name, Description: description})
		if err != nil {
			return err
		}
		if _, err := s.members.assign(ctx, tx, p.ID, owner, models.RoleSuperAdmin); err != nil {
			return err
		}
		project = p
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, "create_project", err)
	}
	s.logger.Info(ctx, "project created", "project_id", project.ID, "owner", owner)
	return project, nil
}

// Get returns the project with its members and tasks to any member.
func (s *ProjectService) Get(ctx context.Context, acting, projectID string) (*models.ProjectDetails, error) {
	p, err := s.repomanager.Projects(s.db).GetByID(ctx, projectID)
	if err != nil {
		return nil, s.fail(ctx, "get_project", err)
	}
	if err := s.members.Require(ctx, acting, projectID, policy.Members...); err != nil {
		return nil, err
	}
	members, err := s.repomanager.Memberships(s.db).ListByProject(ctx, projectID)
	if err != nil {
		return nil, s.fail(ctx, "list_members", err)
	}
	tasks, err := s.repomanager.Tasks(s.db).ListByProject(ctx, projectID)
	if err != nil {
		return nil, s.fail(ctx, "list_tasks", err)
	}
	return &models.ProjectDetails{Project: *p, Members: members, Tasks: tasks}, nil
}

// List returns the projects acting is a member of, each with its newest,
// oldest and newest high-priority task. titleCondition, when set, restricts
// the high-priority task to titles containing it, case-insensitively.
func (s *ProjectService) List(ctx context.Context, acting, titleCondition string) ([]models.ProjectSummary, error) {
	projects, err := s.repomanager.Projects(s.db).ListByUser(ctx, acting)
	if err != nil {
		return nil, s.fail(ctx, "list_projects", err)
	}
	titleCondition = strings.TrimSpace(titleCondition)

	out := make([]models.ProjectSummary, 0, len(projects))
	for _, p := range projects {
		h, err := s.repomanager.Tasks(s.db).Highlights(ctx, p.ID, titleCondition)
		if err != nil {
			return nil, s.fail(ctx, "task_highlights", err)
		}
		out = append(out, models.ProjectSummary{Project: p, TaskHighlights: *h})
	}
	return out, nil
}

func (s *ProjectService) Update(ctx context.Context, acting, projectID string, patch models.ProjectPatch) (*models.Project, error) {
	p, err := s.repomanager.Projects(s.db).GetByID(ctx, projectID)
	if err != nil {
		return nil, s.fail(ctx, "get_project", err)
	}
	if err := s.members.Require(ctx, acting, projectID, policy.ProjectAdmins...); err != nil {
		return nil, err
	}
	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return nil, fmt.Errorf("%w: project name is required", common.ErrorValidation)
		}
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if err := s.repomanager.Projects(s.db).Update(ctx, p); err != nil {
		return nil, s.fail(ctx, "update_project", err)
	}
	return p, nil
}

// Delete removes the project together with its tasks and memberships.
func (s *ProjectService) Delete(ctx context.Context, acting, projectID string) error {
	if _, err := s.repomanager.Projects(s.db).GetByID(ctx, projectID); err != nil {
		return s.fail(ctx, "get_project", err)
	}
	if err := s.members.Require(ctx, acting, projectID, policy.ProjectAdmins...); err != nil {
		return err
	}
	if err := s.repomanager.Projects(s.db).Delete(ctx, projectID); err != nil {
		return s.fail(ctx, "delete_project", err)
	}
	s.logger.Info(ctx, "project deleted", "project_id", projectID)
	return nil
}
