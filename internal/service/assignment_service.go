package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/taskroom/taskroom-go-api/internal/dto"
	"github.com/taskroom/taskroom-go-api/internal/models"
	"github.com/taskroom/taskroom-go-api/internal/repository"
)

// Sentinel errors surfaced to the API boundary.
var (
	ErrTaskNotFound       = errors.New("task not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrAssignmentExists   = errors.New("task assignment already exists")
	ErrInvalidTransition  = errors.New("invalid status transition")
)

// AssignmentService exposes assignment lifecycle use cases: assigning tasks
// to users and driving the per-user status state machine.
type AssignmentService interface {
	Assign(ctx context.Context, taskID, userID, assignedByID uint) (dto.AssignmentResponse, error)
	ChangeStatus(ctx context.Context, taskID, userID uint, status models.AssignmentStatus) (dto.AssignmentResponse, error)
	Get(ctx context.Context, taskID, userID uint) (dto.AssignmentResponse, error)
	ListForTask(ctx context.Context, taskID uint) ([]dto.AssignmentResponse, error)
	ListForUser(ctx context.Context, userID uint) ([]dto.AssignmentResponse, error)
	Remove(ctx context.Context, taskID, userID uint) error
}

type assignmentService struct {
	assignments repository.AssignmentRepository
	tasks       repository.TaskRepository
	users       repository.UserRepository
	scheduling  SchedulingService
	dispatcher  Dispatcher
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAssignmentService builds a new assignment service.
func NewAssignmentService(
	assignments repository.AssignmentRepository,
	tasks repository.TaskRepository,
	users repository.UserRepository,
	scheduling SchedulingService,
	dispatcher Dispatcher,
	logger zerolog.Logger,
) AssignmentService {
	return &assignmentService{
		assignments: assignments,
		tasks:       tasks,
		users:       users,
		scheduling:  scheduling,
		dispatcher:  dispatcher,
		logger:      logger.With().Str("component", "assignment_service").Logger(),
		now:         time.Now,
	}
}

func (s *assignmentService) Assign(ctx context.Context, taskID, userID, assignedByID uint) (dto.AssignmentResponse, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrTaskNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrUserNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	exists, err := s.assignments.Exists(ctx, taskID, userID)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}
	if exists {
		return dto.AssignmentResponse{}, ErrAssignmentExists
	}

	assignment := models.TaskAssignment{
		TaskID:       taskID,
		UserID:       userID,
		Status:       models.StatusNotStarted,
		AssignedByID: assignedByID,
		AssignedAt:   s.now(),
		Task:         task,
		User:         user,
	}

	if err := s.assignments.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().
		Uint("task_id", taskID).
		Uint("user_id", userID).
		Msg("task assigned")

	if err := s.dispatcher.Dispatch(ctx, TaskAssignedEvent(userID, user.Role, task.Title, taskID)); err != nil {
		s.logger.Warn().Err(err).Uint("task_id", taskID).Msg("task assigned notification dispatch failed")
	}

	if err := s.scheduling.Schedule(ctx, assignment); err != nil {
		s.logger.Warn().Err(err).Uint("task_id", taskID).Msg("failed to schedule deadline reminders")
	}

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) ChangeStatus(ctx context.Context, taskID, userID uint, status models.AssignmentStatus) (dto.AssignmentResponse, error) {
	if !status.UserSelectable() {
		return dto.AssignmentResponse{}, fmt.Errorf("%w: %s cannot be requested directly", ErrInvalidTransition, status)
	}

	assignment, err := s.assignments.GetByTaskAndUser(ctx, taskID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	if !assignment.Status.CanUserTransition(status) {
		return dto.AssignmentResponse{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, assignment.Status, status)
	}

	assignment.Status = status
	assignment.UpdatedAt = s.now()
	if err := s.assignments.Save(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().
		Uint("task_id", taskID).
		Uint("user_id", userID).
		Str("status", string(status)).
		Msg("assignment status changed")

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Get(ctx context.Context, taskID, userID uint) (dto.AssignmentResponse, error) {
	assignment, err := s.assignments.GetByTaskAndUser(ctx, taskID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) ListForTask(ctx context.Context, taskID uint) ([]dto.AssignmentResponse, error) {
	assignments, err := s.assignments.ListByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	return dto.NewAssignmentResponseSlice(assignments), nil
}

func (s *assignmentService) ListForUser(ctx context.Context, userID uint) ([]dto.AssignmentResponse, error) {
	assignments, err := s.assignments.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return dto.NewAssignmentResponseSlice(assignments), nil
}

func (s *assignmentService) Remove(ctx context.Context, taskID, userID uint) error {
	if err := s.scheduling.Cancel(ctx, taskID, userID); err != nil {
		return err
	}

	if err := s.assignments.Delete(ctx, taskID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		return err
	}

	s.logger.Info().Uint("task_id", taskID).Uint("user_id", userID).Msg("assignment removed")
	return nil
}
