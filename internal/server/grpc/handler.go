package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/taskledger/internal/api"
	"github.com/dmitrijs2005/taskledger/internal/common"
	"github.com/dmitrijs2005/taskledger/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps service errors onto gRPC status codes.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.PermissionDenied, "unauthorized")
	case errors.Is(err, common.ErrorForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrAlreadyStarted), errors.Is(err, common.ErrNotStarted):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, common.ErrInvalidOperation), errors.Is(err, common.ErrorValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrConflict):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, err.Error())
	default:
		s.logger.Error(ctx, "request failed", "error", err)
		return status.Error(codes.Internal, common.ErrorInternal.Error())
	}
}

func actingUser(ctx context.Context) (string, error) {
	id, ok := userIDFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing token")
	}
	return id, nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *api.PingRequest) (*api.PingResponse, error) {
	return &api.PingResponse{Status: "OK"}, nil
}

// ---- auth ----

func (s *GRPCServer) Login(ctx context.Context, req *api.LoginRequest) (*api.TokenResponse, error) {
	tokens, err := s.svc.Users.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.TokenResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *api.RefreshTokenRequest) (*api.TokenResponse, error) {
	tokens, err := s.svc.Users.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.TokenResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

func (s *GRPCServer) Logout(ctx context.Context, req *api.Empty) (*api.Empty, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.svc.Users.Logout(ctx, acting); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.Empty{}, nil
}

// ---- users ----

func (s *GRPCServer) CreateUser(ctx context.Context, req *api.CreateUserRequest) (*api.UserResponse, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	u, err := s.svc.Users.CreateUser(ctx, acting, req.Name, req.Email, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.UserResponse{User: toAPIUser(u)}, nil
}

func (s *GRPCServer) GetUser(ctx context.Context, req *api.UserRequest) (*api.UserResponse, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	u, err := s.svc.Users.GetUser(ctx, acting, req.UserID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.UserResponse{User: toAPIUser(u)}, nil
}

func (s *GRPCServer) ListUsers(ctx context.Context, req *api.Empty) (*api.ListUsersResponse, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.svc.Users.ListUsers(ctx, acting)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	resp := &api.ListUsersResponse{Users: make([]api.User, 0, len(users))}
	for i := range users {
		resp.Users = append(resp.Users, toAPIUser(&users[i]))
	}
	return resp, nil
}

func (s *GRPCServer) UpdateUser(ctx context.Context, req *api.UpdateUserRequest) (*api.UserResponse, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	u, err := s.svc.Users.UpdateUser(ctx, acting, req.UserID, models.UserPatch{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.UserResponse{User: toAPIUser(u)}, nil
}

func (s *GRPCServer) DeleteUser(ctx context.Context, req *api.UserRequest) (*api.Empty, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.svc.Users.DeleteUser(ctx, acting, req.UserID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.Empty{}, nil
}

// ---- projects ----

func (s *GRPCServer) CreateProject(ctx context.Context, req *api.CreateProjectRequest) (*api.ProjectResponse, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.svc.Projects.Create(ctx, acting, req.Name, req.Description)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.ProjectResponse{Project: toAPIProject(p)}, nil
}

func (s *GRPCServer) GetProject(ctx context.Context, req *api.ProjectRequest) (*api.ProjectDetailsResponse, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	d, err := s.svc.Projects.Get(ctx, acting, req.ProjectID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.ProjectDetailsResponse{
		Project: toAPIProject(&d.Project),
		Members: toAPIMembers(d.Members),
		Tasks:   toAPITasks(d.Tasks),
	}, nil
}

func (s *GRPCServer) ListProjects(ctx context.Context, req *api.ListProjectsRequest) (*api.ListProjectsResponse, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	projects, err := s.svc.Projects.List(ctx, acting, req.TitleCondition)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	resp := &api.ListProjectsResponse{Projects: make([]api.ProjectSummary, 0, len(projects))}
	for i := range projects {
		resp.Projects = append(resp.Projects, toAPIProjectSummary(&projects[i]))
	}
	return resp, nil
}

func (s *GRPCServer) UpdateProject(ctx context.Context, req *api.UpdateProjectRequest) (*api.ProjectResponse, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.svc.Projects.Update(ctx, acting, req.ProjectID, models.ProjectPatch{Name: req.Name, Description: req.Description})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.ProjectResponse{Project: toAPIProject(p)}, nil
}

func (s *GRPCServer) DeleteProject(ctx context.Context, req *api.ProjectRequest) (*api.Empty, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.svc.Projects.Delete(ctx, acting, req.ProjectID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.Empty{}, nil
}

// ---- memberships ----

func (s *GRPCServer) AssignUsers(ctx context.Context, req *api.AssignUsersRequest) (*api.AssignUsersResponse, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	batch := make([]models.Assignment, 0, len(req.Assignments))
	for _, a := range req.Assignments {
		batch = append(batch, models.Assignment{UserID: a.UserID, Role: models.Role(a.Role)})
	}
	ms, err := s.svc.Members.AssignMany(ctx, acting, req.ProjectID, batch)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	resp := &api.AssignUsersResponse{Memberships: make([]api.Membership, 0, len(ms))}
	for i := range ms {
		resp.Memberships = append(resp.Memberships, toAPIMembership(&ms[i]))
	}
	return resp, nil
}

func (s *GRPCServer) UnassignUser(ctx context.Context, req *api.MemberRequest) (*api.Empty, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.svc.Members.Unassign(ctx, acting, req.ProjectID, req.UserID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.Empty{}, nil
}

func (s *GRPCServer) UpdateMemberRole(ctx context.Context, req *api.UpdateMemberRoleRequest) (*api.MembershipResponse, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	m, err := s.svc.Members.UpdateRole(ctx, acting, req.ProjectID, req.UserID, models.Role(req.Role))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.MembershipResponse{Membership: toAPIMembership(m)}, nil
}

func (s *GRPCServer) ListMembers(ctx context.Context, req *api.ProjectRequest) (*api.ListMembersResponse, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	members, err := s.svc.Members.ListMembers(ctx, acting, req.ProjectID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.ListMembersResponse{Members: toAPIMembers(members)}, nil
}

func (s *GRPCServer) AdjustContribution(ctx context.Context, req *api.AdjustContributionRequest) (*api.ContributionResponse, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	total, err := s.svc.Members.AdjustContribution(ctx, acting, req.ProjectID, req.UserID, req.DeltaMinutes)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.ContributionResponse{ContributionMinutes: total}, nil
}

func (s *GRPCServer) ResetContribution(ctx context.Context, req *api.MemberRequest) (*api.Empty, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.svc.Members.ResetContribution(ctx, acting, req.ProjectID, req.UserID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.Empty{}, nil
}

// ---- tasks ----

func (s *GRPCServer) CreateTask(ctx context.Context, req *api.CreateTaskRequest) (*api.TaskResponse, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	t, err := s.svc.Tasks.Create(ctx, acting, req.ProjectID, models.Task{
		Title:       req.Title,
		Description: req.Description,
		Status:      models.TaskStatus(req.Status),
		Priority:    models.Priority(req.Priority),
		DueDate:     req.DueDate,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.TaskResponse{Task: toAPITask(t)}, nil
}

func (s *GRPCServer) GetTask(ctx context.Context, req *api.TaskRequest) (*api.TaskResponse, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	t, err := s.svc.Tasks.Get(ctx, acting, req.ProjectID, req.TaskID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.TaskResponse{Task: toAPITask(t)}, nil
}

func (s *GRPCServer) ListProjectTasks(ctx context.Context, req *api.ProjectRequest) (*api.ListTasksResponse, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	tasks, err := s.svc.Tasks.ListByProject(ctx, acting, req.ProjectID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.ListTasksResponse{Tasks: toAPITasks(tasks)}, nil
}

func (s *GRPCServer) FilterTasks(ctx context.Context, req *api.FilterTasksRequest) (*api.ListTasksResponse, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	tasks, err := s.svc.Tasks.Filter(ctx, acting, models.TaskFilter{
		Status:   models.TaskStatus(req.Status),
		Priority: models.Priority(req.Priority),
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.ListTasksResponse{Tasks: toAPITasks(tasks)}, nil
}

func (s *GRPCServer) UpdateTask(ctx context.Context, req *api.UpdateTaskRequest) (*api.TaskResponse, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	t, err := s.svc.Tasks.Update(ctx, acting, req.ProjectID, req.TaskID, toTaskPatch(req))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.TaskResponse{Task: toAPITask(t)}, nil
}

func (s *GRPCServer) DeleteTask(ctx context.Context, req *api.TaskRequest) (*api.Empty, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.svc.Tasks.Delete(ctx, acting, req.ProjectID, req.TaskID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.Empty{}, nil
}

func (s *GRPCServer) AssignUserToTask(ctx context.Context, req *api.AssignUserToTaskRequest) (*api.MembershipResponse, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	m, err := s.svc.Tasks.AssignUser(ctx, acting, req.ProjectID, req.TaskID, req.UserID, models.Role(req.Role))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.MembershipResponse{Membership: toAPIMembership(m)}, nil
}

func (s *GRPCServer) UpdateTaskStatus(ctx context.Context, req *api.UpdateTaskStatusRequest) (*api.TaskResponse, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	t, err := s.svc.Tasks.UpdateStatus(ctx, acting, req.TaskID, models.TaskStatus(req.Status))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.TaskResponse{Task: toAPITask(t)}, nil
}

func (s *GRPCServer) AddTaskNote(ctx context.Context, req *api.AddTaskNoteRequest) (*api.TaskResponse, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	t, err := s.svc.Tasks.AddNote(ctx, acting, req.TaskID, req.Note)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.TaskResponse{Task: toAPITask(t)}, nil
}

// ---- work sessions ----

func (s *GRPCServer) StartTask(ctx context.Context, req *api.SessionRequest) (*api.StartTaskResponse, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	st, err := s.svc.Tracking.StartSession(ctx, acting, req.TaskID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.StartTaskResponse{ProjectID: st.ProjectID, TaskID: st.TaskID, StartedAt: st.StartedAt}, nil
}

func (s *GRPCServer) EndTask(ctx context.Context, req *api.SessionRequest) (*api.EndTaskResponse, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	end, err := s.svc.Tracking.EndSession(ctx, acting, req.TaskID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.EndTaskResponse{
		ProjectID:         end.ProjectID,
		TaskID:            end.TaskID,
		ElapsedMinutes:    end.ElapsedMinutes,
		CumulativeMinutes: end.CumulativeMinutes,
		EndedAt:           end.EndedAt,
	}, nil
}

// ---- reports ----

func (s *GRPCServer) ExportContributions(ctx context.Context, req *api.ProjectRequest) (*api.ExportContributionsResponse, error) {
	acting, err := actingUser(ctx)
	if err != nil {
		return nil, err
	}
	rep, err := s.svc.Reports.ExportContributions(ctx, acting, req.ProjectID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &api.ExportContributionsResponse{Key: rep.Key, URL: rep.URL, Rows: rep.Rows, ExpiresAt: rep.ExpiresAt}, nil
}
