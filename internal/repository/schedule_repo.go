package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/taskroom/taskroom-go-api/internal/models"
)

// ScheduleRepository handles persistence for scheduled notification rows.
type ScheduleRepository interface {
	Create(ctx context.Context, notification *models.ScheduledNotification) error
	Save(ctx context.Context, notification *models.ScheduledNotification) error
	SaveAll(ctx context.Context, notifications []models.ScheduledNotification) error
	GetByID(ctx context.Context, id uint) (models.ScheduledNotification, error)

	// ExistsPending reports whether a PENDING row already exists for the
	// (task, user, event type) triple. Scheduling inserts are guarded by this
	// check to keep re-scheduling idempotent.
	ExistsPending(ctx context.Context, taskID, userID uint, eventType string) (bool, error)
	FindPendingByTaskAndUser(ctx context.Context, taskID, userID uint) ([]models.ScheduledNotification, error)
	FindPendingByTask(ctx context.Context, taskID uint) ([]models.ScheduledNotification, error)
	FindPendingInWindow(ctx context.Context, start, end time.Time) ([]models.ScheduledNotification, error)
	FindFailedRetryable(ctx context.Context, maxAttempts int) ([]models.ScheduledNotification, error)
}

type scheduleRepository struct {
	db *gorm.DB
}

// NewScheduleRepository constructs a repository backed by GORM.
func NewScheduleRepository(db *gorm.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

func (r *scheduleRepository) Create(ctx context.Context, notification *models.ScheduledNotification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *scheduleRepository) Save(ctx context.Context, notification *models.ScheduledNotification) error {
	return r.db.WithContext(ctx).Save(notification).Error
}

func (r *scheduleRepository) SaveAll(ctx context.Context, notifications []models.ScheduledNotification) error {
	if len(notifications) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Save(&notifications).Error
}

func (r *scheduleRepository) GetByID(ctx context.Context, id uint) (models.ScheduledNotification, error) {
	var notification models.ScheduledNotification
	if err := r.db.WithContext(ctx).First(&notification, id).Error; err != nil {
		return models.ScheduledNotification{}, err
	}
	return notification, nil
}

func (r *scheduleRepository) ExistsPending(ctx context.Context, taskID, userID uint, eventType string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ScheduledNotification{}).
		Where("task_id = ? AND user_id = ? AND event_type = ? AND status = ?",
			taskID, userID, eventType, models.NotificationPending).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *scheduleRepository) FindPendingByTaskAndUser(ctx context.Context, taskID, userID uint) ([]models.ScheduledNotification, error) {
	var notifications []models.ScheduledNotification
	if err := r.db.WithContext(ctx).
		Where("task_id = ? AND user_id = ? AND status = ?", taskID, userID, models.NotificationPending).
		Find(&notifications).Error; err != nil {
		return nil, err
	}

	return notifications, nil
}

func (r *scheduleRepository) FindPendingByTask(ctx context.Context, taskID uint) ([]models.ScheduledNotification, error) {
	var notifications []models.ScheduledNotification
	if err := r.db.WithContext(ctx).
		Where("task_id = ? AND status = ?", taskID, models.NotificationPending).
		Find(&notifications).Error; err != nil {
		return nil, err
	}

	return notifications, nil
}

func (r *scheduleRepository) FindPendingInWindow(ctx context.Context, start, end time.Time) ([]models.ScheduledNotification, error) {
	var notifications []models.ScheduledNotification
	if err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_time BETWEEN ? AND ?", models.NotificationPending, start, end).
		Order("scheduled_time ASC").
		Find(&notifications).Error; err != nil {
		return nil, err
	}

	return notifications, nil
}

func (r *scheduleRepository) FindFailedRetryable(ctx context.Context, maxAttempts int) ([]models.ScheduledNotification, error) {
	var notifications []models.ScheduledNotification
	if err := r.db.WithContext(ctx).
		Where("status = ? AND attempt_count < ?", models.NotificationFailed, maxAttempts).
		Find(&notifications).Error; err != nil {
		return nil, err
	}

	return notifications, nil
}
