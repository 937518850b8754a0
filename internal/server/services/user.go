package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/taskledger/internal/clock"
	"github.com/dmitrijs2005/taskledger/internal/common"
	"github.com/dmitrijs2005/taskledger/internal/cryptox"
	"github.com/dmitrijs2005/taskledger/internal/dbx"
	"github.com/dmitrijs2005/taskledger/internal/logging"
	"github.com/dmitrijs2005/taskledger/internal/server/auth"
	"github.com/dmitrijs2005/taskledger/internal/server/config"
	"github.com/dmitrijs2005/taskledger/internal/server/models"
	"github.com/dmitrijs2005/taskledger/internal/server/policy"
	"github.com/dmitrijs2005/taskledger/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// UserService handles login, token refresh and logout, and user management.
// User management is open to super admins of any project.
type UserService struct {
	base
	members                      *MembershipService
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

func NewUserService(db dbx.Transactor, m repomanager.RepositoryManager, members *MembershipService, cfg *config.Config, clk clock.Clock, l logging.Logger) *UserService {
	return &UserService{
		base:                         newBase("user", db, m, clk, l),
		members:                      members,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// Login checks the credentials and issues a new TokenPair. Unknown emails
// and wrong passwords are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, s.fail(ctx, "login", err)
	}
	if !cryptox.CheckPassword(user.PasswordHash, password) {
		return nil, common.ErrInvalidCredentials
	}
	s.logger.Info(ctx, "user logged in", "user_id", user.ID)
	return s.generateTokenPair(ctx, user.ID, s.db)
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Expired tokens yield ErrRefreshTokenExpired.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	token, err := s.repomanager.RefreshTokens(s.db).Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, s.fail(ctx, "find_refresh_token", err)
	}
	if token.Expires.Before(s.clock.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	if err := s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			return err
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, token.UserID, tx)
		return genErr
	}); err != nil {
		return nil, s.fail(ctx, "refresh_token", err)
	}
	return pair, nil
}

// Logout revokes every refresh token of userID. Access tokens stay valid
// until they expire.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	n, err := s.repomanager.RefreshTokens(s.db).DeleteByUser(ctx, userID)
	if err != nil {
		return s.fail(ctx, "logout", err)
	}
	s.logger.Info(ctx, "user logged out", "user_id", userID, "revoked", n)
	return nil
}

// Register creates a user without any authorization check. It backs the
// admin seeder and CreateUser.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", common.ErrorValidation)
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	u, err := s.repomanager.Users(s.db).Create(ctx, &models.User{Name: name, Email: email, PasswordHash: hash})
	if err != nil {
		return nil, s.fail(ctx, "create_user", err)
	}
	s.logger.Info(ctx, "user created", "user_id", u.ID)
	return u, nil
}

func (s *UserService) CreateUser(ctx context.Context, acting, name, email, password string) (*models.User, error) {
	if err := s.members.RequireAny(ctx, acting, policy.ProjectAdmins...); err != nil {
		return nil, err
	}
	return s.Register(ctx, name, email, password)
}

func (s *UserService) GetUser(ctx context.Context, acting, userID string) (*models.User, error) {
	if err := s.members.RequireAny(ctx, acting, policy.ProjectAdmins...); err != nil {
		return nil, err
	}
	u, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, "get_user", err)
	}
	return u, nil
}

func (s *UserService) ListUsers(ctx context.Context, acting string) ([]models.User, error) {
	if err := s.members.RequireAny(ctx, acting, policy.ProjectAdmins...); err != nil {
		return nil, err
	}
	users, err := s.repomanager.Users(s.db).List(ctx)
	if err != nil {
		return nil, s.fail(ctx, "list_users", err)
	}
	return users, nil
}

func (s *UserService) UpdateUser(ctx context.Context, acting, userID string, patch models.UserPatch) (*models.User, error) {
	if err := s.members.RequireAny(ctx, acting, policy.ProjectAdmins...); err != nil {
		return nil, err
	}
	repo := s.repomanager.Users(s.db)
	u, err := repo.GetByID(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, "get_user", err)
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", common.ErrorValidation)
		}
		u.Name = name
	}
	if patch.Email != nil {
		email := normalizeEmail(*patch.Email)
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		u.Email = email
	}
	if patch.Password != nil {
		hash, err := cryptox.HashPassword(*patch.Password)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrorValidation, err)
		}
		u.PasswordHash = hash
	}
	if err := repo.Update(ctx, u); err != nil {
		return nil, s.fail(ctx, "update_user", err)
	}
	return u, nil
}

// DeleteUser removes the user; memberships and refresh tokens go with it.
func (s *UserService) DeleteUser(ctx context.Context, acting, userID string) error {
	if err := s.members.RequireAny(ctx, acting, policy.ProjectAdmins...); err != nil {
		return err
	}
	if acting == userID {
		return fmt.Errorf("%w: users cannot delete themselves", common.ErrInvalidOperation)
	}
	if err := s.repomanager.Users(s.db).Delete(ctx, userID); err != nil {
		return s.fail(ctx, "delete_user", err)
	}
	s.logger.Info(ctx, "user deleted", "user_id", userID)
	return nil
}

// --- helpers below ---

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: invalid email %q", common.ErrorValidation, email)
	}
	return nil
}

func (s *UserService) generateTokenPair(ctx context.Context, userID string, tx dbx.DBTX) (*TokenPair, error) {
	now := s.clock.Now()
	access, err := auth.GenerateToken(userID, s.jwtSecret, now, s.accessTokenValidityDuration)
	if err != nil {
		return nil, s.fail(ctx, "sign_token", err)
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, s.fail(ctx, "refresh_token", err)
	}
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, userID, refresh, now.Add(s.refreshTokenValidityDuration)); err != nil {
		return nil, s.fail(ctx, "store_refresh_token", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
