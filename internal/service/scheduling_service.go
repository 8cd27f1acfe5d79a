package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskroom/taskroom-go-api/internal/dto"
	"github.com/taskroom/taskroom-go-api/internal/models"
	"github.com/taskroom/taskroom-go-api/internal/observability"
	"github.com/taskroom/taskroom-go-api/internal/repository"
)

// SchedulingService translates a task deadline into a deterministic set of
// future reminder rows and keeps that set consistent when the deadline or the
// assignment changes. It never dispatches anything itself; its only side
// effects are writes to the schedule store. All inserts are idempotent, so
// calling Schedule repeatedly is safe.
type SchedulingService interface {
	Schedule(ctx context.Context, assignment models.TaskAssignment) error
	Reschedule(ctx context.Context, assignment models.TaskAssignment) error
	Cancel(ctx context.Context, taskID, userID uint) error
	CancelAllForTask(ctx context.Context, taskID uint) error
	ListPendingForTask(ctx context.Context, taskID uint) ([]dto.ScheduledNotificationResponse, error)
}

type schedulingService struct {
	schedules repository.ScheduleRepository
	leadTimes []time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

// NewSchedulingService builds a scheduling service with the configured lead times.
func NewSchedulingService(schedules repository.ScheduleRepository, leadTimes []time.Duration, logger zerolog.Logger) SchedulingService {
	return &schedulingService{
		schedules: schedules,
		leadTimes: leadTimes,
		logger:    logger.With().Str("component", "scheduling_service").Logger(),
		now:       time.Now,
	}
}

func (s *schedulingService) Schedule(ctx context.Context, assignment models.TaskAssignment) error {
	if !assignment.Task.HasDeadline() {
		s.logger.Warn().
			Uint("task_id", assignment.TaskID).
			Uint("user_id", assignment.UserID).
			Msg("task has no deadline, skipping notification scheduling")
		return nil
	}

	deadline := *assignment.Task.Deadline
	s.logger.Info().
		Uint("task_id", assignment.TaskID).
		Uint("user_id", assignment.UserID).
		Time("deadline", deadline).
		Msg("scheduling notifications")

	for _, lead := range s.leadTimes {
		fireAt := deadline.Add(-lead)
		eventType := models.DeadlineEventType(lead)

		if err := s.scheduleOne(ctx, assignment, fireAt, eventType); err != nil {
			return err
		}
	}

	return nil
}

func (s *schedulingService) scheduleOne(ctx context.Context, assignment models.TaskAssignment, fireAt time.Time, eventType string) error {
	exists, err := s.schedules.ExistsPending(ctx, assignment.TaskID, assignment.UserID, eventType)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Debug().
			Uint("task_id", assignment.TaskID).
			Uint("user_id", assignment.UserID).
			Str("event_type", eventType).
			Msg("notification already scheduled")
		return nil
	}

	if !fireAt.After(s.now()) {
		s.logger.Debug().
			Uint("task_id", assignment.TaskID).
			Str("event_type", eventType).
			Msg("scheduled time already passed")
		return nil
	}

	notification := models.ScheduledNotification{
		TaskID:        assignment.TaskID,
		UserID:        assignment.UserID,
		EventType:     eventType,
		ScheduledTime: fireAt,
		Status:        models.NotificationPending,
	}

	if err := s.schedules.Create(ctx, &notification); err != nil {
		return err
	}

	observability.ScheduledRows().WithLabelValues(string(models.NotificationPending)).Inc()
	s.logger.Debug().
		Uint("task_id", assignment.TaskID).
		Uint("user_id", assignment.UserID).
		Str("event_type", eventType).
		Time("scheduled_time", fireAt).
		Msg("notification scheduled")

	return nil
}

func (s *schedulingService) Reschedule(ctx context.Context, assignment models.TaskAssignment) error {
	if err := s.Cancel(ctx, assignment.TaskID, assignment.UserID); err != nil {
		return err
	}

	return s.Schedule(ctx, assignment)
}

func (s *schedulingService) Cancel(ctx context.Context, taskID, userID uint) error {
	pending, err := s.schedules.FindPendingByTaskAndUser(ctx, taskID, userID)
	if err != nil {
		return err
	}

	return s.cancelRows(ctx, pending, taskID)
}

func (s *schedulingService) CancelAllForTask(ctx context.Context, taskID uint) error {
	pending, err := s.schedules.FindPendingByTask(ctx, taskID)
	if err != nil {
		return err
	}

	return s.cancelRows(ctx, pending, taskID)
}

func (s *schedulingService) ListPendingForTask(ctx context.Context, taskID uint) ([]dto.ScheduledNotificationResponse, error) {
	pending, err := s.schedules.FindPendingByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	return dto.NewScheduledNotificationResponseSlice(pending), nil
}

func (s *schedulingService) cancelRows(ctx context.Context, pending []models.ScheduledNotification, taskID uint) error {
	if len(pending) == 0 {
		return nil
	}

	for i := range pending {
		pending[i].Status = models.NotificationCancelled
	}

	if err := s.schedules.SaveAll(ctx, pending); err != nil {
		return err
	}

	observability.ScheduledRows().WithLabelValues(string(models.NotificationCancelled)).Add(float64(len(pending)))
	s.logger.Info().
		Int("cancelled", len(pending)).
		Uint("task_id", taskID).
		Msg("cancelled pending notifications")

	return nil
}
