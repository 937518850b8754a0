package api

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/taskledger/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Client is a TaskLedger client. It attaches the access token to every call
// and transparently refreshes it once when the server reports it expired.
type Client struct {
	conn *grpc.ClientConn

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

// NewClient connects to target. Extra dial options are appended to the
// defaults (insecure transport, JSON codec).
func NewClient(target string, opts ...grpc.DialOption) (*Client, error) {
	c := &Client{}
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return c, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// SetTokens installs a previously obtained token pair.
func (c *Client) SetTokens(access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken, c.refreshToken = access, refresh
}

// Tokens returns the current token pair.
func (c *Client) Tokens() (access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken, c.refreshToken
}

func withAccessToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, common.BearerPrefix+token)
	return metadata.NewOutgoingContext(ctx, md)
}

func (c *Client) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	access, refresh := c.Tokens()
	err := invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}
	if refresh == "" || method == FullMethod(MethodRefreshToken) {
		return err
	}

	var tokens TokenResponse
	if rerr := invoker(ctx, FullMethod(MethodRefreshToken), &RefreshTokenRequest{RefreshToken: refresh}, &tokens, cc, opts...); rerr != nil {
		return err
	}
	c.SetTokens(tokens.AccessToken, tokens.RefreshToken)

	return invoker(withAccessToken(ctx, tokens.AccessToken), method, req, reply, cc, opts...)
}

// Invoke calls method with in and decodes the reply into out. It covers the
// methods without a dedicated helper.
func (c *Client) Invoke(ctx context.Context, method string, in, out any) error {
	return c.conn.Invoke(ctx, FullMethod(method), in, out)
}

func (c *Client) Ping(ctx context.Context) (string, error) {
	var resp PingResponse
	if err := c.Invoke(ctx, MethodPing, &PingRequest{}, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// Healthy queries the standard gRPC health service.
func (c *Client) Healthy(ctx context.Context) (bool, error) {
	resp, err := healthpb.NewHealthClient(c.conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return false, err
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
}

// Login authenticates and keeps the returned tokens for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	var resp TokenResponse
	if err := c.Invoke(ctx, MethodLogin, &LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	c.SetTokens(resp.AccessToken, resp.RefreshToken)
	return &resp, nil
}

func (c *Client) Logout(ctx context.Context) error {
	if err := c.Invoke(ctx, MethodLogout, &Empty{}, &Empty{}); err != nil {
		return err
	}
	c.SetTokens("", "")
	return nil
}

func (c *Client) StartTask(ctx context.Context, taskID string) (*StartTaskResponse, error) {
	var resp StartTaskResponse
	if err := c.Invoke(ctx, MethodStartTask, &SessionRequest{TaskID: taskID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) EndTask(ctx context.Context, taskID string) (*EndTaskResponse, error) {
	var resp EndTaskResponse
	if err := c.Invoke(ctx, MethodEndTask, &SessionRequest{TaskID: taskID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ExportContributions(ctx context.Context, projectID string) (*ExportContributionsResponse, error) {
	var resp ExportContributionsResponse
	if err := c.Invoke(ctx, MethodExportContributions, &ProjectRequest{ProjectID: projectID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
