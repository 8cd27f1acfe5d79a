package dto

import (
	"time"

	"github.com/taskroom/taskroom-go-api/internal/models"
)

// ScheduledNotificationResponse is the serialized representation of a
// scheduled reminder row.
type ScheduledNotificationResponse struct {
	ID               uint                      `json:"id"`
	TaskID           uint                      `json:"task_id"`
	UserID           uint                      `json:"user_id"`
	EventType        string                    `json:"event_type"`
	ScheduledTime    time.Time                 `json:"scheduled_time"`
	NotificationTime *time.Time                `json:"notification_time,omitempty"`
	Status           models.NotificationStatus `json:"status"`
	AttemptCount     int                       `json:"attempt_count"`
}

// NewScheduledNotificationResponse converts a model into a DTO.
func NewScheduledNotificationResponse(model models.ScheduledNotification) ScheduledNotificationResponse {
	return ScheduledNotificationResponse{
		ID:               model.ID,
		TaskID:           model.TaskID,
		UserID:           model.UserID,
		EventType:        model.EventType,
		ScheduledTime:    model.ScheduledTime,
		NotificationTime: model.NotificationTime,
		Status:           model.Status,
		AttemptCount:     model.AttemptCount,
	}
}

// NewScheduledNotificationResponseSlice converts a slice of models into DTOs.
func NewScheduledNotificationResponseSlice(notifications []models.ScheduledNotification) []ScheduledNotificationResponse {
	responses := make([]ScheduledNotificationResponse, 0, len(notifications))
	for _, notification := range notifications {
		responses = append(responses, NewScheduledNotificationResponse(notification))
	}

	return responses
}
