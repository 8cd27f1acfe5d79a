package dto

import (
	"time"

	"github.com/taskroom/taskroom-go-api/internal/models"
)

// TaskCreateRequest describes the payload for creating a new task.
type TaskCreateRequest struct {
	Title       string  `json:"title" validate:"required,min=3"`
	Description string  `json:"description" validate:"omitempty"`
	Deadline    *string `json:"deadline" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Priority    string  `json:"priority" validate:"omitempty,oneof=low medium high"`
}

// TaskUpdateRequest describes the payload for updating a task.
type TaskUpdateRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=3"`
	Description *string `json:"description" validate:"omitempty"`
	Deadline    *string `json:"deadline" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Priority    *string `json:"priority" validate:"omitempty,oneof=low medium high"`
}

// TaskResponse is the serialized representation returned to API clients.
type TaskResponse struct {
	ID          uint       `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	AuthorID    uint       `json:"author_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewTaskResponse converts a model into a DTO.
func NewTaskResponse(model models.Task) TaskResponse {
	return TaskResponse{
		ID:          model.ID,
		Title:       model.Title,
		Description: model.Description,
		Deadline:    model.Deadline,
		Priority:    model.Priority,
		AuthorID:    model.AuthorID,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

// NewTaskResponseSlice converts a slice of models into DTOs.
func NewTaskResponseSlice(tasks []models.Task) []TaskResponse {
	responses := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		responses = append(responses, NewTaskResponse(task))
	}

	return responses
}
