package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/taskroom/taskroom-go-api/internal/models"
)

// AssignmentRepository defines persistence operations for task assignments.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *models.TaskAssignment) error
	Save(ctx context.Context, assignment *models.TaskAssignment) error
	GetByTaskAndUser(ctx context.Context, taskID, userID uint) (models.TaskAssignment, error)
	Exists(ctx context.Context, taskID, userID uint) (bool, error)
	ListByTask(ctx context.Context, taskID uint) ([]models.TaskAssignment, error)
	ListByUser(ctx context.Context, userID uint) ([]models.TaskAssignment, error)
	Delete(ctx context.Context, taskID, userID uint) error
	DeleteByTask(ctx context.Context, taskID uint) error

	// FindDue returns assignments whose task deadline is strictly before the
	// given instant and whose status is still sweep-eligible.
	FindDue(ctx context.Context, before time.Time) ([]models.TaskAssignment, error)
	// BulkSetOverdue transitions every due assignment to OVERDUE in one write
	// and reports how many rows changed.
	BulkSetOverdue(ctx context.Context, before time.Time, now time.Time) (int64, error)
	// FindWithDeadlineInWindow returns active assignments whose task deadline
	// falls inside [start, end].
	FindWithDeadlineInWindow(ctx context.Context, start, end time.Time) ([]models.TaskAssignment, error)
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository instantiates a GORM-backed repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *models.TaskAssignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *assignmentRepository) Save(ctx context.Context, assignment *models.TaskAssignment) error {
	return r.db.WithContext(ctx).Save(assignment).Error
}

func (r *assignmentRepository) GetByTaskAndUser(ctx context.Context, taskID, userID uint) (models.TaskAssignment, error) {
	var assignment models.TaskAssignment
	if err := r.db.WithContext(ctx).
		Preload("Task").
		Where("task_id = ? AND user_id = ?", taskID, userID).
		First(&assignment).Error; err != nil {
		return models.TaskAssignment{}, err
	}

	return assignment, nil
}

func (r *assignmentRepository) Exists(ctx context.Context, taskID, userID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.TaskAssignment{}).
		Where("task_id = ? AND user_id = ?", taskID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *assignmentRepository) ListByTask(ctx context.Context, taskID uint) ([]models.TaskAssignment, error) {
	var assignments []models.TaskAssignment
	if err := r.db.WithContext(ctx).
		Preload("Task").
		Where("task_id = ?", taskID).
		Find(&assignments).Error; err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *assignmentRepository) ListByUser(ctx context.Context, userID uint) ([]models.TaskAssignment, error) {
	var assignments []models.TaskAssignment
	if err := r.db.WithContext(ctx).
		Preload("Task").
		Where("user_id = ?", userID).
		Find(&assignments).Error; err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *assignmentRepository) Delete(ctx context.Context, taskID, userID uint) error {
	result := r.db.WithContext(ctx).
		Where("task_id = ? AND user_id = ?", taskID, userID).
		Delete(&models.TaskAssignment{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *assignmentRepository) DeleteByTask(ctx context.Context, taskID uint) error {
	return r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Delete(&models.TaskAssignment{}).Error
}

func (r *assignmentRepository) FindDue(ctx context.Context, before time.Time) ([]models.TaskAssignment, error) {
	var assignments []models.TaskAssignment
	if err := r.db.WithContext(ctx).
		Preload("Task").
		Joins("JOIN tasks ON tasks.id = task_assignments.task_id").
		Where("tasks.deadline IS NOT NULL AND tasks.deadline < ?", before).
		Where("task_assignments.status IN ?", []models.AssignmentStatus{models.StatusNotStarted, models.StatusInProgress}).
		Find(&assignments).Error; err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *assignmentRepository) BulkSetOverdue(ctx context.Context, before time.Time, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.TaskAssignment{}).
		Where("status IN ?", []models.AssignmentStatus{models.StatusNotStarted, models.StatusInProgress}).
		Where("task_id IN (?)", r.db.Model(&models.Task{}).Select("id").Where("deadline IS NOT NULL AND deadline < ?", before)).
		Updates(map[string]interface{}{
			"status":     models.StatusOverdue,
			"updated_at": now,
		})

	return result.RowsAffected, result.Error
}

func (r *assignmentRepository) FindWithDeadlineInWindow(ctx context.Context, start, end time.Time) ([]models.TaskAssignment, error) {
	var assignments []models.TaskAssignment
	if err := r.db.WithContext(ctx).
		Preload("Task").
		Joins("JOIN tasks ON tasks.id = task_assignments.task_id").
		Where("tasks.deadline BETWEEN ? AND ?", start, end).
		Where("task_assignments.status IN ?", []models.AssignmentStatus{models.StatusNotStarted, models.StatusInProgress}).
		Find(&assignments).Error; err != nil {
		return nil, err
	}

	return assignments, nil
}
