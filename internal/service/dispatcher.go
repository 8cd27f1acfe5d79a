package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/taskroom/taskroom-go-api/internal/models"
	"github.com/taskroom/taskroom-go-api/internal/observability"
)

// NotificationEvent is the payload handed to the external messaging channel.
type NotificationEvent struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	UserID    uint              `json:"user_id"`
	UserRole  string            `json:"user_role,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Dispatcher delivers a single notification event to the messaging channel.
// Delivery is best-effort from the caller's point of view; failures surface
// as errors so the processing loop can record them, but they never block or
// abort a batch.
type Dispatcher interface {
	Dispatch(ctx context.Context, event NotificationEvent) error
}

type natsDispatcher struct {
	conn      *nats.Conn
	subject   string
	logger    zerolog.Logger
	tracer    trace.Tracer
	sanitizer *bluemonday.Policy
}

// NewNATSDispatcher constructs a dispatcher publishing JSON events to NATS.
func NewNATSDispatcher(conn *nats.Conn, subject string, logger zerolog.Logger) Dispatcher {
	return &natsDispatcher{
		conn:      conn,
		subject:   subject,
		logger:    logger.With().Str("component", "dispatcher").Logger(),
		tracer:    otel.Tracer("github.com/taskroom/taskroom-go-api/internal/service/dispatcher"),
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func (d *natsDispatcher) Dispatch(ctx context.Context, event NotificationEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	// Titles and messages embed user-supplied task titles.
	event.Title = d.sanitizer.Sanitize(event.Title)
	event.Message = d.sanitizer.Sanitize(event.Message)

	attrs := []attribute.KeyValue{
		attribute.String("notification.event_type", event.Type),
		attribute.Int64("notification.user_id", int64(event.UserID)),
	}
	_, span := d.tracer.Start(ctx, "notifications.dispatch", trace.WithAttributes(attrs...))
	defer span.End()

	payload, err := json.Marshal(event)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to encode notification event: %w", err)
	}

	if err := d.conn.Publish(d.subject, payload); err != nil {
		span.RecordError(err)
		observability.DispatchFailures().WithLabelValues(event.Type).Inc()
		d.logger.Warn().Err(err).
			Str("event_id", event.ID).
			Str("event_type", event.Type).
			Uint("user_id", event.UserID).
			Msg("failed to publish notification event")
		return fmt.Errorf("failed to publish notification event: %w", err)
	}

	observability.Dispatches().WithLabelValues(event.Type).Inc()
	d.logger.Info().
		Str("event_id", event.ID).
		Str("event_type", event.Type).
		Uint("user_id", event.UserID).
		Msg("notification event published")

	return nil
}

// Event constructors mirror the catalogue the rest of the system publishes.

// TaskAssignedEvent announces a new assignment to its assignee.
func TaskAssignedEvent(userID uint, userRole, taskTitle string, taskID uint) NotificationEvent {
	return NotificationEvent{
		Type:     models.EventTaskAssigned,
		Title:    "New task",
		Message:  fmt.Sprintf("You have been assigned the task: %s", taskTitle),
		UserID:   userID,
		UserRole: userRole,
		Metadata: map[string]string{"task_id": strconv.FormatUint(uint64(taskID), 10)},
	}
}

// TaskOverdueEvent tells the assignee that the deadline has passed.
func TaskOverdueEvent(userID uint, userRole, taskTitle string, taskID uint) NotificationEvent {
	return NotificationEvent{
		Type:     models.EventTaskOverdue,
		Title:    "Task overdue",
		Message:  fmt.Sprintf("The task %q is overdue!", taskTitle),
		UserID:   userID,
		UserRole: userRole,
		Metadata: map[string]string{"task_id": strconv.FormatUint(uint64(taskID), 10)},
	}
}

// DeadlineApproachingEvent reminds the assignee of an upcoming deadline.
func DeadlineApproachingEvent(userID uint, userRole, taskTitle string, taskID uint, eventType string) NotificationEvent {
	label := models.DeadlineLabel(eventType)
	return NotificationEvent{
		Type:     eventType,
		Title:    "Deadline approaching!",
		Message:  fmt.Sprintf("The deadline for task %q expires %s!", taskTitle, label),
		UserID:   userID,
		UserRole: userRole,
		Metadata: map[string]string{
			"task_id":     strconv.FormatUint(uint64(taskID), 10),
			"deadline_in": label,
		},
	}
}

// SolutionUploadedEvent tells the task author that a solution arrived.
func SolutionUploadedEvent(teacherID uint, teacherRole, studentName, taskTitle string, taskID uint) NotificationEvent {
	return NotificationEvent{
		Type:     models.EventSolutionUploaded,
		Title:    "New task solution",
		Message:  fmt.Sprintf("Student %s uploaded a solution for the task: %s", studentName, taskTitle),
		UserID:   teacherID,
		UserRole: teacherRole,
		Metadata: map[string]string{
			"task_id":      strconv.FormatUint(uint64(taskID), 10),
			"student_name": studentName,
		},
	}
}

// SolutionGradedEvent tells the student their solution has been graded.
func SolutionGradedEvent(studentID uint, studentRole, teacherName, taskTitle string, grade int, taskID uint) NotificationEvent {
	return NotificationEvent{
		Type:     models.EventSolutionGraded,
		Title:    "Your solution has been graded",
		Message:  fmt.Sprintf("Teacher %s graded your solution for the task: %s", teacherName, taskTitle),
		UserID:   studentID,
		UserRole: studentRole,
		Metadata: map[string]string{
			"task_id": strconv.FormatUint(uint64(taskID), 10),
			"grade":   strconv.Itoa(grade),
		},
	}
}
