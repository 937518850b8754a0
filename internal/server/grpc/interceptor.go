package grpc

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/taskledger/internal/api"
	"github.com/dmitrijs2005/taskledger/internal/common"
	"github.com/dmitrijs2005/taskledger/internal/server/auth"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

type ctxKey string

const userIDKey ctxKey = "userID"

// publicMethods are served without an access token.
var publicMethods = map[string]bool{
	api.FullMethod(api.MethodPing):         true,
	api.FullMethod(api.MethodLogin):        true,
	api.FullMethod(api.MethodRefreshToken): true,
}

func withUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func userIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

func incoming(ctx context.Context, key string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(key); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// loggingInterceptor tags every call with a request id and logs its outcome.
func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	requestID := incoming(ctx, common.RequestIDHeaderName)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	// fails outside a real server transport; nothing to do about it
	_ = grpc.SetHeader(ctx, metadata.Pairs(common.RequestIDHeaderName, requestID))

	start := time.Now()
	resp, err := handler(ctx, req)

	code := status.Code(err)
	args := []any{"method", info.FullMethod, "request_id", requestID, "code", code.String(), "duration", time.Since(start)}
	if code == codes.Internal || code == codes.Unknown {
		s.logger.Error(ctx, "rpc failed", append(args, "error", err)...)
	} else {
		s.logger.Info(ctx, "rpc", args...)
	}
	return resp, err
}

// loginRateInterceptor throttles Login per client address.
func (s *GRPCServer) loginRateInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if info.FullMethod != api.FullMethod(api.MethodLogin) || s.limiter == nil {
		return handler(ctx, req)
	}
	if !s.limiter.allow(peerKey(ctx)) {
		return nil, status.Error(codes.ResourceExhausted, "too many login attempts")
	}
	return handler(ctx, req)
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if publicMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	header := incoming(ctx, common.AccessTokenHeaderName)
	accessToken := strings.TrimSpace(strings.TrimPrefix(header, common.BearerPrefix))
	if accessToken == "" || accessToken == header {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	userID, err := auth.GetUserIDFromToken(accessToken, s.jwtSecret)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
		}
		return nil, status.Error(codes.Unauthenticated, common.ErrInvalidToken.Error())
	}

	return handler(withUserID(ctx, userID), req)
}

func peerKey(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// maxTrackedPeers bounds the limiter table; it is reset when full.
const maxTrackedPeers = 10000

type loginLimiter struct {
	mu    sync.Mutex
	limit rate.Limit
	burst int
	peers map[string]*rate.Limiter
}

// newLoginLimiter allows n attempts per period per key. It returns nil when
// n is not positive.
func newLoginLimiter(n int, period time.Duration) *loginLimiter {
	if n <= 0 {
		return nil
	}
	return &loginLimiter{
		limit: rate.Every(period / time.Duration(n)),
		burst: n,
		peers: map[string]*rate.Limiter{},
	}
}

func (l *loginLimiter) allow(key string) bool {
	l.mu.Lock()
	lim, ok := l.peers[key]
	if !ok {
		if len(l.peers) >= maxTrackedPeers {
			l.peers = map[string]*rate.Limiter{}
		}
		lim = rate.NewLimiter(l.limit, l.burst)
		l.peers[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
