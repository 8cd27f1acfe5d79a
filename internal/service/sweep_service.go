package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskroom/taskroom-go-api/internal/models"
	"github.com/taskroom/taskroom-go-api/internal/observability"
	"github.com/taskroom/taskroom-go-api/internal/repository"
)

// SweepService owns the two deadline-driven batch scans: the overdue sweep
// that bulk-transitions expired assignments, and the hourly approaching
// deadline sweep that fires direct reminders without going through the
// schedule store. Both are idempotent across runs; duplicates with the
// persisted reminder path are an accepted at-least-once tradeoff.
type SweepService interface {
	RunOverdueSweep(ctx context.Context) error
	RunApproachingSweep(ctx context.Context) error
}

type sweepService struct {
	assignments repository.AssignmentRepository
	dispatcher  Dispatcher
	leadTimes   []time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSweepService builds the periodic sweep jobs.
func NewSweepService(assignments repository.AssignmentRepository, dispatcher Dispatcher, leadTimes []time.Duration, logger zerolog.Logger) SweepService {
	return &sweepService{
		assignments: assignments,
		dispatcher:  dispatcher,
		leadTimes:   leadTimes,
		logger:      logger.With().Str("component", "sweep_service").Logger(),
		now:         time.Now,
	}
}

// RunOverdueSweep transitions every NOT_STARTED/IN_PROGRESS assignment whose
// deadline has passed to OVERDUE in a single bulk write, then fires one
// overdue notification per transitioned assignment. A failed notification is
// logged and dropped; the status transition already happened and a second
// run will not pick the assignment up again.
func (s *sweepService) RunOverdueSweep(ctx context.Context) error {
	now := s.now()

	due, err := s.assignments.FindDue(ctx, now)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}

	transitioned, err := s.assignments.BulkSetOverdue(ctx, now, now)
	if err != nil {
		return err
	}

	observability.SweepTransitions().WithLabelValues("overdue").Add(float64(transitioned))
	s.logger.Info().Int64("transitioned", transitioned).Msg("overdue sweep completed")

	for _, assignment := range due {
		event := TaskOverdueEvent(assignment.UserID, assignment.User.Role, assignment.Task.Title, assignment.TaskID)
		if err := s.dispatcher.Dispatch(ctx, event); err != nil {
			s.logger.Warn().Err(err).
				Uint("task_id", assignment.TaskID).
				Uint("user_id", assignment.UserID).
				Msg("overdue notification dispatch failed")
		}
	}

	return nil
}

// RunApproachingSweep fires a direct reminder for every assignment whose
// deadline falls inside the trailing window [now+lead-1h, now+lead] of a
// configured lead time. This path does not persist anything.
func (s *sweepService) RunApproachingSweep(ctx context.Context) error {
	now := s.now()

	for _, lead := range s.leadTimes {
		windowStart := now.Add(lead - time.Hour)
		windowEnd := now.Add(lead)
		eventType := models.DeadlineEventType(lead)

		assignments, err := s.assignments.FindWithDeadlineInWindow(ctx, windowStart, windowEnd)
		if err != nil {
			return err
		}

		for _, assignment := range assignments {
			event := DeadlineApproachingEvent(assignment.UserID, assignment.User.Role, assignment.Task.Title, assignment.TaskID, eventType)
			if err := s.dispatcher.Dispatch(ctx, event); err != nil {
				s.logger.Warn().Err(err).
					Uint("task_id", assignment.TaskID).
					Uint("user_id", assignment.UserID).
					Str("event_type", eventType).
					Msg("approaching deadline dispatch failed")
			}
		}

		if len(assignments) > 0 {
			observability.SweepTransitions().WithLabelValues("approaching").Add(float64(len(assignments)))
		}
	}

	return nil
}
