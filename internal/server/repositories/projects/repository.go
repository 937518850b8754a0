package projects

import (
	"context"

	"github.com/dmitrijs2005/taskledger/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, p *models.Project) (*models.Project, error)
	GetByID(ctx context.Context, id string) (*models.Project, error)
	// ListByUser returns the projects userID is a member of.
	ListByUser(ctx context.Context, userID string) ([]models.Project, error)
	Update(ctx context.Context, p *models.Project) error
	Delete(ctx context.Context, id string) error
}
