package models

import (
	"fmt"
	"time"
)

// NotificationStatus is the delivery state of a scheduled notification row.
type NotificationStatus string

const (
	// NotificationPending rows are waiting to be picked up by the processor.
	NotificationPending NotificationStatus = "PENDING"
	// NotificationSent rows were dispatched successfully.
	NotificationSent NotificationStatus = "SENT"
	// NotificationCancelled rows were invalidated by a deadline change or
	// assignment removal before dispatch.
	NotificationCancelled NotificationStatus = "CANCELLED"
	// NotificationFailed rows hit a dispatch error; they stay retryable until
	// the attempt cap or the retry horizon is reached.
	NotificationFailed NotificationStatus = "FAILED"
)

// Event types published to the messaging channel.
const (
	EventTaskAssigned     = "TASK_ASSIGNED"
	EventTaskOverdue      = "TASK_OVERDUE"
	EventSolutionUploaded = "SOLUTION_UPLOADED"
	EventSolutionGraded   = "SOLUTION_GRADED"
)

// DeadlineEventType maps a reminder lead time to its event type constant.
func DeadlineEventType(lead time.Duration) string {
	switch lead {
	case 48 * time.Hour:
		return "TASK_DEADLINE_2D"
	case 24 * time.Hour:
		return "TASK_DEADLINE_1D"
	case 12 * time.Hour:
		return "TASK_DEADLINE_12H"
	default:
		return fmt.Sprintf("TASK_DEADLINE_%dH", int(lead.Hours()))
	}
}

// DeadlineLabel returns the human label embedded in reminder messages.
func DeadlineLabel(eventType string) string {
	switch eventType {
	case "TASK_DEADLINE_2D":
		return "in 2 days"
	case "TASK_DEADLINE_1D":
		return "in 1 day"
	case "TASK_DEADLINE_12H":
		return "in 12 hours"
	default:
		return "soon"
	}
}

// ScheduledNotification is one planned reminder for a (task, user, event type)
// triple. At most one PENDING row may exist per triple at a time; the
// scheduling service guards inserts with an existence check.
type ScheduledNotification struct {
	ID               uint               `gorm:"primaryKey" json:"id"`
	TaskID           uint               `gorm:"not null;index:idx_sched_task_user" json:"task_id"`
	UserID           uint               `gorm:"not null;index:idx_sched_task_user" json:"user_id"`
	EventType        string             `gorm:"size:50;not null" json:"event_type"`
	ScheduledTime    time.Time          `gorm:"not null;index" json:"scheduled_time"`
	NotificationTime *time.Time         `json:"notification_time,omitempty"`
	Status           NotificationStatus `gorm:"size:32;not null;default:PENDING;index" json:"status"`
	AttemptCount     int                `gorm:"not null;default:0" json:"attempt_count"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}
