// Package memberships stores project membership edges: the member's role,
// the accumulated contribution minutes and the open work-session marker.
package memberships

import (
	"context"
	"time"

	"github.com/dmitrijs2005/taskledger/internal/server/models"
)

type Repository interface {
	// Upsert creates the edge or overwrites the role of an existing one.
	// Contribution and the session marker of an existing edge are kept.
	Upsert(ctx context.Context, projectID, userID string, role models.Role, now time.Time) (*models.Membership, error)
	Get(ctx context.Context, projectID, userID string) (*models.Membership, error)
	// GetForUpdate reads the edge and locks it until the transaction ends.
	GetForUpdate(ctx context.Context, projectID, userID string) (*models.Membership, error)
	UpdateRole(ctx context.Context, projectID, userID string, role models.Role, now time.Time) (*models.Membership, error)
	// AddContribution adds minutes and returns the new total.
	AddContribution(ctx context.Context, projectID, userID string, minutes int64, now time.Time) (int64, error)
	ResetContribution(ctx context.Context, projectID, userID string, now time.Time) error
	// SetSessionStart opens a session; common.ErrAlreadyStarted if one is open.
	SetSessionStart(ctx context.Context, projectID, userID string, start time.Time) error
	// CloseSession folds minutes into the contribution and clears the session
	// marker in one statement; common.ErrNotStarted if no session is open.
	CloseSession(ctx context.Context, projectID, userID string, minutes int64, now time.Time) (int64, error)
	Delete(ctx context.Context, projectID, userID string) error
	ListByProject(ctx context.Context, projectID string) ([]models.Member, error)
	// HasRoleAnywhere reports whether userID holds any of roles on any project.
	HasRoleAnywhere(ctx context.Context, userID string, roles ...models.Role) (bool, error)
}
