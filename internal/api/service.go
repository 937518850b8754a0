// Package api declares the taskledger.v1.TaskLedger gRPC service: its
// message types, the JSON codec they travel with, and a client.
package api

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "taskledger.v1.TaskLedger"

// Method names.
const (
	MethodPing                = "Ping"
	MethodLogin               = "Login"
	MethodRefreshToken        = "RefreshToken"
	MethodLogout              = "Logout"
	MethodCreateUser          = "CreateUser"
	MethodGetUser             = "GetUser"
	MethodListUsers           = "ListUsers"
	MethodUpdateUser          = "UpdateUser"
	MethodDeleteUser          = "DeleteUser"
	MethodCreateProject       = "CreateProject"
	MethodGetProject          = "GetProject"
	MethodListProjects        = "ListProjects"
	MethodUpdateProject       = "UpdateProject"
	MethodDeleteProject       = "DeleteProject"
	MethodAssignUsers         = "AssignUsers"
	MethodUnassignUser        = "UnassignUser"
	MethodUpdateMemberRole    = "UpdateMemberRole"
	MethodListMembers         = "ListMembers"
	MethodAdjustContribution  = "AdjustContribution"
	MethodResetContribution   = "ResetContribution"
	MethodCreateTask          = "CreateTask"
	MethodGetTask             = "GetTask"
	MethodListProjectTasks    = "ListProjectTasks"
	MethodFilterTasks         = "FilterTasks"
	MethodUpdateTask          = "UpdateTask"
	MethodDeleteTask          = "DeleteTask"
	MethodAssignUserToTask    = "AssignUserToTask"
	MethodUpdateTaskStatus    = "UpdateTaskStatus"
	MethodAddTaskNote         = "AddTaskNote"
	MethodStartTask           = "StartTask"
	MethodEndTask             = "EndTask"
	MethodExportContributions = "ExportContributions"
)

// FullMethod returns the gRPC path of method, e.g. "/taskledger.v1.TaskLedger/Ping".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// TaskLedgerServer is implemented by the server side of the service.
type TaskLedgerServer interface {
	Ping(context.Context, *PingRequest) (*PingResponse, error)
	Login(context.Context, *LoginRequest) (*TokenResponse, error)
	RefreshToken(context.Context, *RefreshTokenRequest) (*TokenResponse, error)
	Logout(context.Context, *Empty) (*Empty, error)
	CreateUser(context.Context, *CreateUserRequest) (*UserResponse, error)
	GetUser(context.Context, *UserRequest) (*UserResponse, error)
	ListUsers(context.Context, *Empty) (*ListUsersResponse, error)
	UpdateUser(context.Context, *UpdateUserRequest) (*UserResponse, error)
	DeleteUser(context.Context, *UserRequest) (*Empty, error)
	CreateProject(context.Context, *CreateProjectRequest) (*ProjectResponse, error)
	GetProject(context.Context, *ProjectRequest) (*ProjectDetailsResponse, error)
	ListProjects(context.Context, *ListProjectsRequest) (*ListProjectsResponse, error)
	UpdateProject(context.Context, *UpdateProjectRequest) (*ProjectResponse, error)
	DeleteProject(context.Context, *ProjectRequest) (*Empty, error)
	AssignUsers(context.Context, *AssignUsersRequest) (*AssignUsersResponse, error)
	UnassignUser(context.Context, *MemberRequest) (*Empty, error)
	UpdateMemberRole(context.Context, *UpdateMemberRoleRequest) (*MembershipResponse, error)
	ListMembers(context.Context, *ProjectRequest) (*ListMembersResponse, error)
	AdjustContribution(context.Context, *AdjustContributionRequest) (*ContributionResponse, error)
	ResetContribution(context.Context, *MemberRequest) (*Empty, error)
	CreateTask(context.Context, *CreateTaskRequest) (*TaskResponse, error)
	GetTask(context.Context, *TaskRequest) (*TaskResponse, error)
	ListProjectTasks(context.Context, *ProjectRequest) (*ListTasksResponse, error)
	FilterTasks(context.Context, *FilterTasksRequest) (*ListTasksResponse, error)
	UpdateTask(context.Context, *UpdateTaskRequest) (*TaskResponse, error)
	DeleteTask(context.Context, *TaskRequest) (*Empty, error)
	AssignUserToTask(context.Context, *AssignUserToTaskRequest) (*MembershipResponse, error)
	UpdateTaskStatus(context.Context, *UpdateTaskStatusRequest) (*TaskResponse, error)
	AddTaskNote(context.Context, *AddTaskNoteRequest) (*TaskResponse, error)
	StartTask(context.Context, *SessionRequest) (*StartTaskResponse, error)
	EndTask(context.Context, *SessionRequest) (*EndTaskResponse, error)
	ExportContributions(context.Context, *ProjectRequest) (*ExportContributionsResponse, error)
}

// unary builds the method descriptor for a handler taking *Req and
// returning *Resp.
func unary[Req, Resp any](name string, call func(TaskLedgerServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(TaskLedgerServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(TaskLedgerServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes taskledger.v1.TaskLedger for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TaskLedgerServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodPing, TaskLedgerServer.Ping),
		unary(MethodLogin, TaskLedgerServer.Login),
		unary(MethodRefreshToken, TaskLedgerServer.RefreshToken),
		unary(MethodLogout, TaskLedgerServer.Logout),
		unary(MethodCreateUser, TaskLedgerServer.CreateUser),
		unary(MethodGetUser, TaskLedgerServer.GetUser),
		unary(MethodListUsers, TaskLedgerServer.ListUsers),
		unary(MethodUpdateUser, TaskLedgerServer.UpdateUser),
		unary(MethodDeleteUser, TaskLedgerServer.DeleteUser),
		unary(MethodCreateProject, TaskLedgerServer.CreateProject),
		unary(MethodGetProject, TaskLedgerServer.GetProject),
		unary(MethodListProjects, TaskLedgerServer.ListProjects),
		unary(MethodUpdateProject, TaskLedgerServer.UpdateProject),
		unary(MethodDeleteProject, TaskLedgerServer.DeleteProject),
		unary(MethodAssignUsers, TaskLedgerServer.AssignUsers),
		unary(MethodUnassignUser, TaskLedgerServer.UnassignUser),
		unary(MethodUpdateMemberRole, TaskLedgerServer.UpdateMemberRole),
		unary(MethodListMembers, TaskLedgerServer.ListMembers),
		unary(MethodAdjustContribution, TaskLedgerServer.AdjustContribution),
		unary(MethodResetContribution, TaskLedgerServer.ResetContribution),
		unary(MethodCreateTask, TaskLedgerServer.CreateTask),
		unary(MethodGetTask, TaskLedgerServer.GetTask),
		unary(MethodListProjectTasks, TaskLedgerServer.ListProjectTasks),
		unary(MethodFilterTasks, TaskLedgerServer.FilterTasks),
		unary(MethodUpdateTask, TaskLedgerServer.UpdateTask),
		unary(MethodDeleteTask, TaskLedgerServer.DeleteTask),
		unary(MethodAssignUserToTask, TaskLedgerServer.AssignUserToTask),
		unary(MethodUpdateTaskStatus, TaskLedgerServer.UpdateTaskStatus),
		unary(MethodAddTaskNote, TaskLedgerServer.AddTaskNote),
		unary(MethodStartTask, TaskLedgerServer.StartTask),
		unary(MethodEndTask, TaskLedgerServer.EndTask),
		unary(MethodExportContributions, TaskLedgerServer.ExportContributions),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "taskledger/v1/taskledger.proto",
}

// RegisterTaskLedgerServer registers srv on s.
func RegisterTaskLedgerServer(s grpc.ServiceRegistrar, srv TaskLedgerServer) {
	s.RegisterService(&ServiceDesc, srv)
}
