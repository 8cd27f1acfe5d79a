package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/taskroom/taskroom-go-api/internal/dto"
	"github.com/taskroom/taskroom-go-api/internal/models"
	"github.com/taskroom/taskroom-go-api/internal/repository"
)

// TaskService exposes task CRUD use cases. Deadline edits and deletions ripple
// into the notification schedule: an edited deadline reschedules every
// assignee's pending reminders, a deletion cancels them.
type TaskService interface {
	Create(ctx context.Context, payload dto.TaskCreateRequest, authorID uint) (dto.TaskResponse, error)
	Update(ctx context.Context, id uint, payload dto.TaskUpdateRequest) (dto.TaskResponse, error)
	Get(ctx context.Context, id uint) (dto.TaskResponse, error)
	List(ctx context.Context) ([]dto.TaskResponse, error)
	Delete(ctx context.Context, id uint) error
}

type taskService struct {
	tasks       repository.TaskRepository
	assignments repository.AssignmentRepository
	scheduling  SchedulingService
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewTaskService builds a new task service.
func NewTaskService(
	tasks repository.TaskRepository,
	assignments repository.AssignmentRepository,
	scheduling SchedulingService,
	validate *validator.Validate,
	logger zerolog.Logger,
) TaskService {
	return &taskService{
		tasks:       tasks,
		assignments: assignments,
		scheduling:  scheduling,
		validator:   validate,
		logger:      logger.With().Str("component", "task_service").Logger(),
		now:         time.Now,
	}
}

func (s *taskService) Create(ctx context.Context, payload dto.TaskCreateRequest, authorID uint) (dto.TaskResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TaskResponse{}, err
	}

	task := models.Task{
		Title:       payload.Title,
		Description: payload.Description,
		Priority:    payload.Priority,
		AuthorID:    authorID,
	}

	if payload.Deadline != nil {
		deadline, err := time.Parse(time.RFC3339, *payload.Deadline)
		if err != nil {
			return dto.TaskResponse{}, fmt.Errorf("invalid deadline: %w", err)
		}
		task.Deadline = &deadline
	}

	if err := s.tasks.Create(ctx, &task); err != nil {
		return dto.TaskResponse{}, err
	}

	s.logger.Info().Uint("task_id", task.ID).Msg("task created")

	return dto.NewTaskResponse(task), nil
}

func (s *taskService) Update(ctx context.Context, id uint, payload dto.TaskUpdateRequest) (dto.TaskResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TaskResponse{}, err
	}

	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TaskResponse{}, ErrTaskNotFound
		}
		return dto.TaskResponse{}, err
	}

	if payload.Title != nil {
		task.Title = *payload.Title
	}
	if payload.Description != nil {
		task.Description = *payload.Description
	}
	if payload.Priority != nil {
		task.Priority = *payload.Priority
	}

	deadlineChanged := false
	if payload.Deadline != nil {
		deadline, err := time.Parse(time.RFC3339, *payload.Deadline)
		if err != nil {
			return dto.TaskResponse{}, fmt.Errorf("invalid deadline: %w", err)
		}
		if task.Deadline == nil || !task.Deadline.Equal(deadline) {
			task.Deadline = &deadline
			deadlineChanged = true
		}
	}

	if err := s.tasks.Update(ctx, &task); err != nil {
		return dto.TaskResponse{}, err
	}

	s.logger.Info().Uint("task_id", task.ID).Bool("deadline_changed", deadlineChanged).Msg("task updated")

	if deadlineChanged {
		if err := s.rescheduleAssignees(ctx, task); err != nil {
			s.logger.Warn().Err(err).Uint("task_id", task.ID).Msg("failed to reschedule reminders after deadline change")
		}
	}

	return dto.NewTaskResponse(task), nil
}

// rescheduleAssignees cancels and re-plans pending reminders for every user
// assigned to the task, against the updated deadline.
func (s *taskService) rescheduleAssignees(ctx context.Context, task models.Task) error {
	assignments, err := s.assignments.ListByTask(ctx, task.ID)
	if err != nil {
		return err
	}

	for _, assignment := range assignments {
		assignment.Task = task
		if err := s.scheduling.Reschedule(ctx, assignment); err != nil {
			return err
		}
	}

	return nil
}

func (s *taskService) Get(ctx context.Context, id uint) (dto.TaskResponse, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TaskResponse{}, ErrTaskNotFound
		}
		return dto.TaskResponse{}, err
	}

	return dto.NewTaskResponse(task), nil
}

func (s *taskService) List(ctx context.Context) ([]dto.TaskResponse, error) {
	tasks, err := s.tasks.List(ctx)
	if err != nil {
		return nil, err
	}

	return dto.NewTaskResponseSlice(tasks), nil
}

func (s *taskService) Delete(ctx context.Context, id uint) error {
	if err := s.scheduling.CancelAllForTask(ctx, id); err != nil {
		return err
	}

	if err := s.assignments.DeleteByTask(ctx, id); err != nil {
		return err
	}

	if err := s.tasks.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return err
	}

	s.logger.Info().Uint("task_id", id).Msg("task deleted")
	return nil
}
