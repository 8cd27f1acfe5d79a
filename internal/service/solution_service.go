package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/taskroom/taskroom-go-api/internal/dto"
	"github.com/taskroom/taskroom-go-api/internal/models"
	"github.com/taskroom/taskroom-go-api/internal/repository"
)

// Solution-specific errors.
var (
	ErrSolutionExists  = errors.New("solution already uploaded, delete it first")
	ErrSolutionMissing = errors.New("no solution uploaded")
	ErrDeadlinePassed  = errors.New("deadline has passed")
)

// FileStore abstracts the object storage holding solution files. The API only
// moves metadata; binary content lives behind this boundary.
type FileStore interface {
	Put(ctx context.Context, key, contentType string, reader io.Reader, size int64) error
	Delete(ctx context.Context, key string) error
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// SolutionService owns solution lifecycle operations and their effect on the
// assignment state machine: an upload force-sets COMPLETED, a deletion before
// the deadline reverts to IN_PROGRESS and clears the grade.
type SolutionService interface {
	RecordUploaded(ctx context.Context, taskID, userID uint, fileName, contentType string, reader io.Reader, size int64) (dto.AssignmentResponse, error)
	RecordDeleted(ctx context.Context, taskID, userID uint) (dto.AssignmentResponse, error)
	Grade(ctx context.Context, taskID, studentID, teacherID uint, grade int, comment string) (dto.AssignmentResponse, error)
	DownloadURL(ctx context.Context, taskID, userID uint) (string, error)
	ListForTask(ctx context.Context, taskID uint) ([]dto.AssignmentResponse, error)
}

type solutionService struct {
	assignments repository.AssignmentRepository
	users       repository.UserRepository
	files       FileStore
	dispatcher  Dispatcher
	urlExpiry   time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSolutionService builds a new solution service.
func NewSolutionService(
	assignments repository.AssignmentRepository,
	users repository.UserRepository,
	files FileStore,
	dispatcher Dispatcher,
	logger zerolog.Logger,
) SolutionService {
	return &solutionService{
		assignments: assignments,
		users:       users,
		files:       files,
		dispatcher:  dispatcher,
		urlExpiry:   time.Hour,
		logger:      logger.With().Str("component", "solution_service").Logger(),
		now:         time.Now,
	}
}

func solutionObjectKey(taskID, userID uint) string {
	return fmt.Sprintf("tasks/%d/solutions/%d", taskID, userID)
}

// RecordUploaded stores the solution file and force-sets the assignment to
// COMPLETED regardless of its previous status. Re-uploading over an existing
// solution is rejected; the old one must be deleted first.
func (s *solutionService) RecordUploaded(ctx context.Context, taskID, userID uint, fileName, contentType string, reader io.Reader, size int64) (dto.AssignmentResponse, error) {
	assignment, err := s.assignments.GetByTaskAndUser(ctx, taskID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	if assignment.HasSolution() {
		return dto.AssignmentResponse{}, ErrSolutionExists
	}

	key := solutionObjectKey(taskID, userID)
	if err := s.files.Put(ctx, key, contentType, reader, size); err != nil {
		return dto.AssignmentResponse{}, fmt.Errorf("failed to store solution: %w", err)
	}

	now := s.now()
	assignment.SolutionObjectKey = key
	assignment.SolutionFileName = fileName
	assignment.SolutionContentType = contentType
	assignment.SolutionUploadedAt = &now
	assignment.Status = models.StatusCompleted
	assignment.UpdatedAt = now

	if err := s.assignments.Save(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().
		Uint("task_id", taskID).
		Uint("user_id", userID).
		Str("file_name", fileName).
		Msg("solution uploaded, assignment completed")

	s.notifyAuthor(ctx, assignment)

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *solutionService) notifyAuthor(ctx context.Context, assignment models.TaskAssignment) {
	author, err := s.users.GetByID(ctx, assignment.Task.AuthorID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("task_id", assignment.TaskID).Msg("task author lookup failed, skipping notification")
		return
	}

	student, err := s.users.GetByID(ctx, assignment.UserID)
	studentName := ""
	if err == nil {
		studentName = student.Name
	}

	event := SolutionUploadedEvent(author.ID, author.Role, studentName, assignment.Task.Title, assignment.TaskID)
	if err := s.dispatcher.Dispatch(ctx, event); err != nil {
		s.logger.Warn().Err(err).Uint("task_id", assignment.TaskID).Msg("solution uploaded notification dispatch failed")
	}
}

// RecordDeleted removes the solution. Before the deadline this reverts the
// assignment to IN_PROGRESS and clears any grade; after the deadline the
// deletion is rejected.
func (s *solutionService) RecordDeleted(ctx context.Context, taskID, userID uint) (dto.AssignmentResponse, error) {
	assignment, err := s.assignments.GetByTaskAndUser(ctx, taskID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	if !assignment.HasSolution() {
		return dto.AssignmentResponse{}, ErrSolutionMissing
	}

	if assignment.Task.IsPastDue(s.now()) {
		return dto.AssignmentResponse{}, ErrDeadlinePassed
	}

	if err := s.files.Delete(ctx, assignment.SolutionObjectKey); err != nil {
		return dto.AssignmentResponse{}, fmt.Errorf("failed to delete solution: %w", err)
	}

	assignment.ClearSolution()
	assignment.Status = models.StatusInProgress
	assignment.UpdatedAt = s.now()

	if err := s.assignments.Save(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().
		Uint("task_id", taskID).
		Uint("user_id", userID).
		Msg("solution deleted, assignment back in progress")

	return dto.NewAssignmentResponse(assignment), nil
}

// Grade records the teacher's grade and comment on an uploaded solution and
// notifies the student.
func (s *solutionService) Grade(ctx context.Context, taskID, studentID, teacherID uint, grade int, comment string) (dto.AssignmentResponse, error) {
	assignment, err := s.assignments.GetByTaskAndUser(ctx, taskID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	if !assignment.HasSolution() {
		return dto.AssignmentResponse{}, ErrSolutionMissing
	}

	assignment.Grade = &grade
	assignment.TeacherComment = &comment
	assignment.UpdatedAt = s.now()

	if err := s.assignments.Save(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().
		Uint("task_id", taskID).
		Uint("student_id", studentID).
		Int("grade", grade).
		Msg("solution graded")

	teacher, err := s.users.GetByID(ctx, teacherID)
	teacherName := ""
	if err == nil {
		teacherName = teacher.Name
	}

	student, err := s.users.GetByID(ctx, studentID)
	studentRole := models.RoleStudent
	if err == nil {
		studentRole = student.Role
	}

	event := SolutionGradedEvent(studentID, studentRole, teacherName, assignment.Task.Title, grade, taskID)
	if err := s.dispatcher.Dispatch(ctx, event); err != nil {
		s.logger.Warn().Err(err).Uint("task_id", taskID).Msg("solution graded notification dispatch failed")
	}

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *solutionService) DownloadURL(ctx context.Context, taskID, userID uint) (string, error) {
	assignment, err := s.assignments.GetByTaskAndUser(ctx, taskID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrAssignmentNotFound
		}
		return "", err
	}

	if !assignment.HasSolution() {
		return "", ErrSolutionMissing
	}

	return s.files.PresignedURL(ctx, assignment.SolutionObjectKey, s.urlExpiry)
}

func (s *solutionService) ListForTask(ctx context.Context, taskID uint) ([]dto.AssignmentResponse, error) {
	assignments, err := s.assignments.ListByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	withSolutions := make([]models.TaskAssignment, 0, len(assignments))
	for _, assignment := range assignments {
		if assignment.HasSolution() {
			withSolutions = append(withSolutions, assignment)
		}
	}

	return dto.NewAssignmentResponseSlice(withSolutions), nil
}
