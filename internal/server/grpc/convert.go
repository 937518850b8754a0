package grpc

import (
	"github.com/dmitrijs2005/taskledger/internal/api"
	"github.com/dmitrijs2005/taskledger/internal/server/models"
)

func toAPIUser(u *models.User) api.User {
	return api.User{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt}
}

func toAPIProject(p *models.Project) api.Project {
	return api.Project{ID: p.ID, Name: p.Name, Description: p.Description, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt}
}

func toAPITask(t *models.Task) api.Task {
	return api.Task{
		ID:          t.ID,
		ProjectID:   t.ProjectID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		DueDate:     t.DueDate,
		Note:        t.Note,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toAPITaskPtr(t *models.Task) *api.Task {
	if t == nil {
		return nil
	}
	out := toAPITask(t)
	return &out
}

func toAPIProjectSummary(p *models.ProjectSummary) api.ProjectSummary {
	return api.ProjectSummary{
		Project:             toAPIProject(&p.Project),
		LatestTask:          toAPITaskPtr(p.Latest),
		OldestTask:          toAPITaskPtr(p.Oldest),
		HighestPriorityTask: toAPITaskPtr(p.HighestPriority),
	}
}

func toAPITasks(in []models.Task) []api.Task {
	out := make([]api.Task, 0, len(in))
	for i := range in {
		out = append(out, toAPITask(&in[i]))
	}
	return out
}

func toAPIMembership(m *models.Membership) api.Membership {
	return api.Membership{
		ProjectID:           m.ProjectID,
		UserID:              m.UserID,
		Role:                string(m.Role),
		ContributionMinutes: m.ContributionMinutes,
		LastActivity:        m.LastActivity,
		SessionStartedAt:    m.SessionStartedAt,
	}
}

func toAPIMembers(in []models.Member) []api.Member {
	out := make([]api.Member, 0, len(in))
	for i := range in {
		out = append(out, api.Member{Membership: toAPIMembership(&in[i].Membership), Name: in[i].Name, Email: in[i].Email})
	}
	return out
}

func toTaskPatch(req *api.UpdateTaskRequest) models.TaskPatch {
	patch := models.TaskPatch{
		ProjectID:   req.NewProjectID,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		ClearDue:    req.ClearDueDate,
	}
	if req.Status != nil {
		st := models.TaskStatus(*req.Status)
		patch.Status = &st
	}
	if req.Priority != nil {
		p := models.Priority(*req.Priority)
		patch.Priority = &p
	}
	return patch
}
