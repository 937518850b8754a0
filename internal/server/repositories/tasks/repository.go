package tasks

import (
	"context"

	"github.com/dmitrijs2005/taskledger/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, t *models.Task) (*models.Task, error)
	GetByID(ctx context.Context, id string) (*models.Task, error)
	ListByProject(ctx context.Context, projectID string) ([]models.Task, error)
	// Filter returns tasks of the projects userID belongs to.
	Filter(ctx context.Context, userID string, f models.TaskFilter) ([]models.Task, error)
	// Highlights returns the newest and oldest task of projectID and its
	// newest high-priority task with titleCondition in the title.
	Highlights(ctx context.Context, projectID, titleCondition string) (*models.TaskHighlights, error)
	Update(ctx context.Context, t *models.Task) error
	UpdateStatus(ctx context.Context, id string, status models.TaskStatus) error
	UpdateNote(ctx context.Context, id string, note string) error
	Delete(ctx context.Context, id string) error
}
