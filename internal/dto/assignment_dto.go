package dto

import (
	"time"

	"github.com/taskroom/taskroom-go-api/internal/models"
)

// AssignRequest describes the payload for assigning a task to a user.
type AssignRequest struct {
	UserID uint `json:"user_id" validate:"required"`
}

// StatusChangeRequest describes a user-initiated status change.
type StatusChangeRequest struct {
	Status string `json:"status" validate:"required,oneof=NOT_STARTED IN_PROGRESS COMPLETED"`
}

// GradeRequest describes the payload a teacher submits to grade a solution.
type GradeRequest struct {
	Grade   int    `json:"grade" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"omitempty,max=2000"`
}

// SolutionResponse captures the solution metadata attached to an assignment.
type SolutionResponse struct {
	FileName    string     `json:"file_name"`
	ContentType string     `json:"content_type"`
	UploadedAt  *time.Time `json:"uploaded_at,omitempty"`
}

// AssignmentResponse is the serialized representation of an assignment.
type AssignmentResponse struct {
	TaskID         uint                    `json:"task_id"`
	UserID         uint                    `json:"user_id"`
	Status         models.AssignmentStatus `json:"status"`
	AssignedAt     time.Time               `json:"assigned_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
	Grade          *int                    `json:"grade,omitempty"`
	TeacherComment *string                 `json:"teacher_comment,omitempty"`
	Solution       *SolutionResponse       `json:"solution,omitempty"`
	Task           *TaskResponse           `json:"task,omitempty"`
}

// NewAssignmentResponse converts a model into a DTO.
func NewAssignmentResponse(model models.TaskAssignment) AssignmentResponse {
	response := AssignmentResponse{
		TaskID:         model.TaskID,
		UserID:         model.UserID,
		Status:         model.Status,
		AssignedAt:     model.AssignedAt,
		UpdatedAt:      model.UpdatedAt,
		Grade:          model.Grade,
		TeacherComment: model.TeacherComment,
	}

	if model.HasSolution() {
		response.Solution = &SolutionResponse{
			FileName:    model.SolutionFileName,
			ContentType: model.SolutionContentType,
			UploadedAt:  model.SolutionUploadedAt,
		}
	}

	if model.Task.ID != 0 {
		task := NewTaskResponse(model.Task)
		response.Task = &task
	}

	return response
}

// NewAssignmentResponseSlice converts a slice of models into DTOs.
func NewAssignmentResponseSlice(assignments []models.TaskAssignment) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewAssignmentResponse(assignment))
	}

	return responses
}
