package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/taskledger/internal/clock"
	"github.com/dmitrijs2005/taskledger/internal/common"
	"github.com/dmitrijs2005/taskledger/internal/dbx"
	"github.com/dmitrijs2005/taskledger/internal/logging"
	"github.com/dmitrijs2005/taskledger/internal/server/models"
	"github.com/dmitrijs2005/taskledger/internal/server/policy"
	"github.com/dmitrijs2005/taskledger/internal/server/repositories/repomanager"
)

// MembershipService manages project membership edges and answers
// authorization questions about them.
type MembershipService struct {
	base
}

func NewMembershipService(db dbx.Transactor, m repomanager.RepositoryManager, clk clock.Clock, l logging.Logger) *MembershipService {
	return &MembershipService{base: newBase("membership", db, m, clk, l)}
}

// Authorize reports whether userID holds one of roles on projectID. A user
// without a membership is simply not authorized.
func (s *MembershipService) Authorize(ctx context.Context, userID, projectID string, roles ...models.Role) (bool, error) {
	return s.authorize(ctx, s.db, userID, projectID, roles...)
}

func (s *MembershipService) authorize(ctx context.Context, db dbx.DBTX, userID, projectID string, roles ...models.Role) (bool, error) {
	m, err := s.repomanager.Memberships(db).Get(ctx, projectID, userID)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, s.fail(ctx, "authorize", err)
	}
	return policy.Allows(m, roles...), nil
}

// AuthorizeAny reports whether userID holds one of roles on any project.
func (s *MembershipService) AuthorizeAny(ctx context.Context, userID string, roles ...models.Role) (bool, error) {
	ok, err := s.repomanager.Memberships(s.db).HasRoleAnywhere(ctx, userID, roles...)
	if err != nil {
		return false, s.fail(ctx, "authorize_any", err)
	}
	return ok, nil
}

// Require is Authorize that turns a denial into common.ErrorUnauthorized.
func (s *MembershipService) Require(ctx context.Context, userID, projectID string, roles ...models.Role) error {
	return s.require(ctx, s.db, userID, projectID, roles...)
}

func (s *MembershipService) require(ctx context.Context, db dbx.DBTX, userID, projectID string, roles ...models.Role) error {
	ok, err := s.authorize(ctx, db, userID, projectID, roles...)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrorUnauthorized
	}
	return nil
}

// RequireAny is AuthorizeAny that turns a denial into common.ErrorUnauthorized.
func (s *MembershipService) RequireAny(ctx context.Context, userID string, roles ...models.Role) error {
	ok, err := s.AuthorizeAny(ctx, userID, roles...)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrorUnauthorized
	}
	return nil
}

// Get returns the edge between projectID and userID, or common.ErrorNotFound.
func (s *MembershipService) Get(ctx context.Context, projectID, userID string) (*models.Membership, error) {
	m, err := s.repomanager.Memberships(s.db).Get(ctx, projectID, userID)
	if err != nil {
		return nil, s.fail(ctx, "get_membership", err)
	}
	return m, nil
}

// checkProject returns common.ErrorNotFound if projectID does not exist.
func (s *MembershipService) checkProject(ctx context.Context, db dbx.DBTX, projectID string) error {
	if _, err := s.repomanager.Projects(db).GetByID(ctx, projectID); err != nil {
		return s.fail(ctx, "get_project", err)
	}
	return nil
}

// admin loads the project and checks that acting may administer it.
func (s *MembershipService) admin(ctx context.Context, db dbx.DBTX, acting, projectID string) error {
	if err := s.checkProject(ctx, db, projectID); err != nil {
		return err
	}
	return s.require(ctx, db, acting, projectID, policy.ProjectAdmins...)
}

// Assign creates the membership or overwrites the role of an existing one.
// Contribution and any open session survive a re-assignment.
func (s *MembershipService) Assign(ctx context.Context, acting, projectID, userID string, role models.Role) (*models.Membership, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrorValidation, role)
	}
	if err := s.admin(ctx, s.db, acting, projectID); err != nil {
		return nil, err
	}
	return s.assign(ctx, s.db, projectID, userID, role)
}

// assign upserts without any authorization check.
func (s *MembershipService) assign(ctx context.Context, db dbx.DBTX, projectID, userID string, role models.Role) (*models.Membership, error) {
	m, err := s.repomanager.Memberships(db).Upsert(ctx, projectID, userID, role, s.clock.Now())
	if err != nil {
		return nil, s.fail(ctx, "assign", err)
	}
	s.logger.Info(ctx, "member assigned", "project_id", projectID, "user_id", userID, "role", role)
	return m, nil
}

// AssignMany assigns a batch of users in one transaction; either all of
// them are assigned or none are.
func (s *MembershipService) AssignMany(ctx context.Context, acting, projectID string, batch []models.Assignment) ([]models.Membership, error) {
	if len(batch) == 0 {
		return nil, fmt.Errorf("%w: no users to assign", common.ErrorValidation)
	}
	for _, a := range batch {
		if a.UserID == "" {
			return nil, fmt.Errorf("%w: empty user id", common.ErrorValidation)
		}
		if !a.Role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", common.ErrorValidation, a.Role)
		}
	}

	var out []models.Membership
	err := s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.admin(ctx, tx, acting, projectID); err != nil {
			return err
		}
		out = make([]models.Membership, 0, len(batch))
		for _, a := range batch {
			m, err := s.assign(ctx, tx, projectID, a.UserID, a.Role)
			if err != nil {
				return err
			}
			out = append(out, *m)
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, "assign_many", err)
	}
	return out, nil
}

func (s *MembershipService) UpdateRole(ctx context.Context, acting, projectID, userID string, role models.Role) (*models.Membership, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrorValidation, role)
	}
	if err := s.admin(ctx, s.db, acting, projectID); err != nil {
		return nil, err
	}
	m, err := s.repomanager.Memberships(s.db).UpdateRole(ctx, projectID, userID, role, s.clock.Now())
	if err != nil {
		return nil, s.fail(ctx, "update_role", err)
	}
	return m, nil
}

// AdjustContribution credits deltaMinutes to the member. Contributions never
// decrease through this path.
func (s *MembershipService) AdjustContribution(ctx context.Context, acting, projectID, userID string, deltaMinutes int64) (int64, error) {
	if deltaMinutes < 0 {
		return 0, fmt.Errorf("%w: negative contribution adjustment", common.ErrInvalidOperation)
	}
	if err := s.admin(ctx, s.db, acting, projectID); err != nil {
		return 0, err
	}
	total, err := s.repomanager.Memberships(s.db).AddContribution(ctx, projectID, userID, deltaMinutes, s.clock.Now())
	if err != nil {
		return 0, s.fail(ctx, "adjust_contribution", err)
	}
	s.logger.Info(ctx, "contribution adjusted", "project_id", projectID, "user_id", userID, "delta", deltaMinutes, "total", total)
	return total, nil
}

func (s *MembershipService) ResetContribution(ctx context.Context, acting, projectID, userID string) error {
	if err := s.admin(ctx, s.db, acting, projectID); err != nil {
		return err
	}
	if err := s.repomanager.Memberships(s.db).ResetContribution(ctx, projectID, userID, s.clock.Now()); err != nil {
		return s.fail(ctx, "reset_contribution", err)
	}
	s.logger.Info(ctx, "contribution reset", "project_id", projectID, "user_id", userID)
	return nil
}

func (s *MembershipService) Unassign(ctx context.Context, acting, projectID, userID string) error {
	if err := s.admin(ctx, s.db, acting, projectID); err != nil {
		return err
	}
	if err := s.repomanager.Memberships(s.db).Delete(ctx, projectID, userID); err != nil {
		return s.fail(ctx, "unassign", err)
	}
	s.logger.Info(ctx, "member unassigned", "project_id", projectID, "user_id", userID)
	return nil
}

func (s *MembershipService) ListMembers(ctx context.Context, acting, projectID string) ([]models.Member, error) {
	if err := s.admin(ctx, s.db, acting, projectID); err != nil {
		return nil, err
	}
	members, err := s.repomanager.Memberships(s.db).ListByProject(ctx, projectID)
	if err != nil {
		return nil, s.fail(ctx, "list_members", err)
	}
	return members, nil
}
