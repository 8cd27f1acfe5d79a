package models

import "time"

// AssignmentStatus is the per-user lifecycle state of an assigned task.
type AssignmentStatus string

const (
	// StatusNotStarted is the initial state of every assignment.
	StatusNotStarted AssignmentStatus = "NOT_STARTED"
	// StatusInProgress marks an assignment the user is actively working on.
	StatusInProgress AssignmentStatus = "IN_PROGRESS"
	// StatusCompleted is absorbing with respect to the overdue sweep: a
	// completed assignment never becomes overdue.
	StatusCompleted AssignmentStatus = "COMPLETED"
	// StatusOverdue is set only by the overdue sweep, never by user request.
	StatusOverdue AssignmentStatus = "OVERDUE"
)

// Valid reports whether the value is a known assignment status.
func (s AssignmentStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted, StatusOverdue:
		return true
	}
	return false
}

// UserSelectable reports whether the status may appear in a user-initiated
// status change. OVERDUE is reserved for the sweep.
func (s AssignmentStatus) UserSelectable() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// CanUserTransition reports whether a user-requested move from s to target is
// allowed. Both endpoints must be user-selectable states; an overdue
// assignment only leaves OVERDUE through a solution upload.
func (s AssignmentStatus) CanUserTransition(target AssignmentStatus) bool {
	return s.UserSelectable() && target.UserSelectable()
}

// SweepEligible reports whether the overdue sweep may transition this status.
func (s AssignmentStatus) SweepEligible() bool {
	return s == StatusNotStarted || s == StatusInProgress
}

// TaskAssignment records one task delegated to one user, unique per pair.
type TaskAssignment struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	TaskID       uint             `gorm:"not null;uniqueIndex:idx_task_user" json:"task_id"`
	UserID       uint             `gorm:"not null;uniqueIndex:idx_task_user" json:"user_id"`
	Status       AssignmentStatus `gorm:"size:32;not null;default:NOT_STARTED" json:"status"`
	AssignedByID uint             `gorm:"not null" json:"assigned_by_id"`
	AssignedAt   time.Time        `json:"assigned_at"`
	UpdatedAt    time.Time        `json:"updated_at"`

	SolutionObjectKey   string     `gorm:"size:512" json:"solution_object_key,omitempty"`
	SolutionFileName    string     `gorm:"size:255" json:"solution_file_name,omitempty"`
	SolutionContentType string     `gorm:"size:128" json:"solution_content_type,omitempty"`
	SolutionUploadedAt  *time.Time `json:"solution_uploaded_at,omitempty"`
	Grade               *int       `json:"grade,omitempty"`
	TeacherComment      *string    `gorm:"type:text" json:"teacher_comment,omitempty"`

	Task Task `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"task"`
	User User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"user"`
}

// HasSolution reports whether a solution has been uploaded for this assignment.
func (a TaskAssignment) HasSolution() bool {
	return a.SolutionObjectKey != ""
}

// ClearSolution removes the solution metadata together with any grade.
func (a *TaskAssignment) ClearSolution() {
	a.SolutionObjectKey = ""
	a.SolutionFileName = ""
	a.SolutionContentType = ""
	a.SolutionUploadedAt = nil
	a.Grade = nil
	a.TeacherComment = nil
}
