package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/taskledger/internal/common"
	"github.com/dmitrijs2005/taskledger/internal/server/models"
	"github.com/dmitrijs2005/taskledger/internal/server/policy"
)

// SeedResult reports what SeedSuperAdmin did.
type SeedResult struct {
	User           *models.User
	Project        *models.Project
	CreatedUser    bool
	CreatedProject bool
}

// SeedSuperAdmin bootstraps an empty installation: it creates the user
// (unless the email is already registered) and, unless that user already is
// a super admin somewhere, a project owned by them.
func SeedSuperAdmin(ctx context.Context, users *UserService, projects *ProjectService, name, email, password, projectName string) (*SeedResult, error) {
	res := &SeedResult{}

	u, err := users.repomanager.Users(users.db).GetByEmail(ctx, normalizeEmail(email))
	switch {
	case err == nil:
		res.User = u
	case errors.Is(err, common.ErrorNotFound):
		u, err = users.Register(ctx, name, email, password)
		if err != nil {
			return nil, err
		}
		res.User, res.CreatedUser = u, true
	default:
		return nil, users.fail(ctx, "seed_lookup", err)
	}

	ok, err := projects.members.AuthorizeAny(ctx, res.User.ID, policy.ProjectAdmins...)
	if err != nil {
		return nil, err
	}
	if ok {
		return res, nil
	}

	p, err := projects.create(ctx, res.User.ID, projectName, "created by the admin seeder")
	if err != nil {
		return nil, err
	}
	res.Project, res.CreatedProject = p, true
	return res, nil
}
