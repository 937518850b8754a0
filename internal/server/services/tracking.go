package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/taskledger/internal/clock"
	"github.com/dmitrijs2005/taskledger/internal/common"
	"github.com/dmitrijs2005/taskledger/internal/dbx"
	"github.com/dmitrijs2005/taskledger/internal/logging"
	"github.com/dmitrijs2005/taskledger/internal/server/models"
	"github.com/dmitrijs2005/taskledger/internal/server/repositories/repomanager"
)

// TrackingService opens and closes work sessions on project memberships and
// folds the elapsed time into the member's contribution.
//
// Each edge is either idle (no session) or running (session start recorded).
// Start and end each run in a single transaction holding a row lock on the
// edge, so concurrent calls on the same edge serialize.
type TrackingService struct {
	base
}

func NewTrackingService(db dbx.Transactor, m repomanager.RepositoryManager, clk clock.Clock, l logging.Logger) *TrackingService {
	return &TrackingService{base: newBase("tracking", db, m, clk, l)}
}

// ElapsedMinutes is the number of whole minutes between start and end.
// A clock that went backwards yields zero.
func ElapsedMinutes(start, end time.Time) int64 {
	d := end.Sub(start)
	if d < 0 {
		return 0
	}
	return int64(d / time.Minute)
}

// lockMembership reads the acting user's edge on projectID under a row lock.
// No edge means the user may not track time there.
func (s *TrackingService) lockMembership(ctx context.Context, tx dbx.DBTX, projectID, userID string) (*models.Membership, error) {
	m, err := s.repomanager.Memberships(tx).GetForUpdate(ctx, projectID, userID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrorUnauthorized
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *TrackingService) taskProject(ctx context.Context, taskID string) (string, error) {
	task, err := s.repomanager.Tasks(s.db).GetByID(ctx, taskID)
	if err != nil {
		return "", s.fail(ctx, "get_task", err)
	}
	return task.ProjectID, nil
}

// StartSession opens a work session for acting on the project of taskID.
func (s *TrackingService) StartSession(ctx context.Context, acting, taskID string) (*models.SessionStart, error) {
	projectID, err := s.taskProject(ctx, taskID)
	if err != nil {
		return nil, err
	}

	var started time.Time
	err = s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		m, err := s.lockMembership(ctx, tx, projectID, acting)
		if err != nil {
			return err
		}
		if m.Running() {
			return common.ErrAlreadyStarted
		}
		started = s.clock.Now()
		return s.repomanager.Memberships(tx).SetSessionStart(ctx, projectID, acting, started)
	})
	if err != nil {
		return nil, s.fail(ctx, "start_session", err)
	}

	s.logger.Info(ctx, "session started", "project_id", projectID, "task_id", taskID, "user_id", acting)
	return &models.SessionStart{ProjectID: projectID, TaskID: taskID, StartedAt: started}, nil
}

// EndSession closes the open session of acting on the project of taskID and
// credits the elapsed whole minutes.
func (s *TrackingService) EndSession(ctx context.Context, acting, taskID string) (*models.SessionEnd, error) {
	projectID, err := s.taskProject(ctx, taskID)
	if err != nil {
		return nil, err
	}

	res := &models.SessionEnd{ProjectID: projectID, TaskID: taskID}
	err = s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		m, err := s.lockMembership(ctx, tx, projectID, acting)
		if err != nil {
			return err
		}
		if !m.Running() {
			return common.ErrNotStarted
		}
		now := s.clock.Now()
		elapsed := ElapsedMinutes(*m.SessionStartedAt, now)
		total, err := s.repomanager.Memberships(tx).CloseSession(ctx, projectID, acting, elapsed, now)
		if err != nil {
			return err
		}
		res.ElapsedMinutes = elapsed
		res.CumulativeMinutes = total
		res.EndedAt = now
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, "end_session", err)
	}

	s.logger.Info(ctx, "session ended", "project_id", projectID, "task_id", taskID, "user_id", acting,
		"elapsed_minutes", res.ElapsedMinutes, "total_minutes", res.CumulativeMinutes)
	return res, nil
}
