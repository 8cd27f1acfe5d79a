package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/taskroom/taskroom-go-api/internal/models"
	"github.com/taskroom/taskroom-go-api/internal/observability"
	"github.com/taskroom/taskroom-go-api/internal/repository"
)

// ProcessingConfig bundles the knobs of the notification processing loop.
type ProcessingConfig struct {
	MaxAttempts  int
	PastSlack    time.Duration
	FutureSlack  time.Duration
	RetryHorizon time.Duration
}

// ProcessingService scans the schedule store for due PENDING rows, validates
// them against current assignment state and hands them to the dispatcher.
// Delivery is at-least-once: overlapping runs are tolerated through per-row
// status re-checks, and a failure on one row never aborts the rest of the
// batch.
type ProcessingService interface {
	Run(ctx context.Context) error
}

type processingService struct {
	schedules   repository.ScheduleRepository
	assignments repository.AssignmentRepository
	users       repository.UserRepository
	dispatcher  Dispatcher
	cfg         ProcessingConfig
	logger      zerolog.Logger
	now         func() time.Time
}

// NewProcessingService builds the periodic notification processor.
func NewProcessingService(
	schedules repository.ScheduleRepository,
	assignments repository.AssignmentRepository,
	users repository.UserRepository,
	dispatcher Dispatcher,
	cfg ProcessingConfig,
	logger zerolog.Logger,
) ProcessingService {
	return &processingService{
		schedules:   schedules,
		assignments: assignments,
		users:       users,
		dispatcher:  dispatcher,
		cfg:         cfg,
		logger:      logger.With().Str("component", "processing_service").Logger(),
		now:         time.Now,
	}
}

func (s *processingService) Run(ctx context.Context) error {
	now := s.now()
	windowStart := now.Add(-s.cfg.PastSlack)
	windowEnd := now.Add(s.cfg.FutureSlack)

	pending, err := s.schedules.FindPendingInWindow(ctx, windowStart, windowEnd)
	if err != nil {
		return err
	}

	s.logger.Info().Int("pending", len(pending)).Msg("processing due notifications")

	for _, notification := range pending {
		s.processOne(ctx, notification, now)
	}

	return s.requeueFailed(ctx)
}

// processOne handles a single row. Errors are recorded on the row, never
// propagated, so one broken notification cannot stall the batch.
func (s *processingService) processOne(ctx context.Context, notification models.ScheduledNotification, now time.Time) {
	// Re-read the row before mutating it. If an adjacent run already acted on
	// it the status is no longer PENDING and the row is skipped.
	current, err := s.schedules.GetByID(ctx, notification.ID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("notification_id", notification.ID).Msg("failed to re-read notification row")
		return
	}
	if current.Status != models.NotificationPending {
		return
	}

	current.AttemptCount++

	valid, assignment, err := s.validForDispatch(ctx, current)
	if err != nil {
		s.recordFailure(ctx, current, err)
		return
	}
	if !valid {
		current.Status = models.NotificationCancelled
		if err := s.schedules.Save(ctx, &current); err != nil {
			s.logger.Warn().Err(err).Uint("notification_id", current.ID).Msg("failed to cancel stale notification")
			return
		}
		observability.ScheduledRows().WithLabelValues(string(models.NotificationCancelled)).Inc()
		s.logger.Info().Uint("notification_id", current.ID).Msg("notification cancelled, assignment no longer eligible")
		return
	}

	event := DeadlineApproachingEvent(
		current.UserID,
		assignment.User.Role,
		assignment.Task.Title,
		current.TaskID,
		current.EventType,
	)

	if err := s.dispatcher.Dispatch(ctx, event); err != nil {
		s.recordFailure(ctx, current, err)
		return
	}

	current.Status = models.NotificationSent
	current.NotificationTime = &now
	if err := s.schedules.Save(ctx, &current); err != nil {
		s.logger.Warn().Err(err).Uint("notification_id", current.ID).Msg("failed to mark notification sent")
		return
	}

	observability.ScheduledRows().WithLabelValues(string(models.NotificationSent)).Inc()
	s.logger.Info().
		Uint("notification_id", current.ID).
		Str("event_type", current.EventType).
		Msg("notification sent")
}

// validForDispatch checks that the owning assignment still exists and is in a
// state where a deadline reminder makes sense.
func (s *processingService) validForDispatch(ctx context.Context, notification models.ScheduledNotification) (bool, models.TaskAssignment, error) {
	assignment, err := s.assignments.GetByTaskAndUser(ctx, notification.TaskID, notification.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, models.TaskAssignment{}, nil
		}
		return false, models.TaskAssignment{}, err
	}

	if !assignment.Status.SweepEligible() {
		return false, models.TaskAssignment{}, nil
	}

	if assignment.User.ID == 0 {
		user, err := s.users.GetByID(ctx, notification.UserID)
		if err == nil {
			assignment.User = user
		}
	}

	return true, assignment, nil
}

func (s *processingService) recordFailure(ctx context.Context, notification models.ScheduledNotification, cause error) {
	notification.Status = models.NotificationFailed

	if notification.AttemptCount >= s.cfg.MaxAttempts {
		s.logger.Error().Err(cause).
			Uint("notification_id", notification.ID).
			Int("attempts", notification.AttemptCount).
			Msg("notification failed permanently")
	} else {
		s.logger.Warn().Err(cause).
			Uint("notification_id", notification.ID).
			Int("attempts", notification.AttemptCount).
			Msg("notification processing failed, will retry")
	}

	if err := s.schedules.Save(ctx, &notification); err != nil {
		s.logger.Error().Err(err).Uint("notification_id", notification.ID).Msg("failed to persist notification failure")
		return
	}

	observability.ScheduledRows().WithLabelValues(string(models.NotificationFailed)).Inc()
}

// requeueFailed moves retryable FAILED rows back to PENDING. A row is
// retryable while its attempt count is under the cap and its scheduled time
// is still inside the retry horizon; older rows stay terminally FAILED.
func (s *processingService) requeueFailed(ctx context.Context) error {
	failed, err := s.schedules.FindFailedRetryable(ctx, s.cfg.MaxAttempts)
	if err != nil {
		return err
	}

	horizon := s.now().Add(-s.cfg.RetryHorizon)
	for _, notification := range failed {
		if !notification.ScheduledTime.After(horizon) {
			continue
		}

		notification.Status = models.NotificationPending
		if err := s.schedules.Save(ctx, &notification); err != nil {
			s.logger.Warn().Err(err).Uint("notification_id", notification.ID).Msg("failed to requeue notification")
			continue
		}

		s.logger.Debug().Uint("notification_id", notification.ID).Msg("failed notification requeued")
	}

	return nil
}
