package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAssignmentStatusUserTransitions(t *testing.T) {
	require.True(t, StatusNotStarted.CanUserTransition(StatusInProgress))
	require.True(t, StatusInProgress.CanUserTransition(StatusCompleted))
	require.True(t, StatusCompleted.CanUserTransition(StatusInProgress))

	// OVERDUE can never be requested directly.
	require.False(t, StatusNotStarted.CanUserTransition(StatusOverdue))
	require.False(t, StatusInProgress.CanUserTransition(StatusOverdue))

	// An overdue assignment does not leave OVERDUE through a status request.
	require.False(t, StatusOverdue.CanUserTransition(StatusInProgress))
	require.False(t, StatusOverdue.CanUserTransition(StatusCompleted))
}

func TestAssignmentStatusSweepEligible(t *testing.T) {
	require.True(t, StatusNotStarted.SweepEligible())
	require.True(t, StatusInProgress.SweepEligible())
	require.False(t, StatusCompleted.SweepEligible())
	require.False(t, StatusOverdue.SweepEligible())
}

func TestDeadlineEventType(t *testing.T) {
	require.Equal(t, "TASK_DEADLINE_2D", DeadlineEventType(48*time.Hour))
	require.Equal(t, "TASK_DEADLINE_1D", DeadlineEventType(24*time.Hour))
	require.Equal(t, "TASK_DEADLINE_12H", DeadlineEventType(12*time.Hour))
	require.Equal(t, "TASK_DEADLINE_6H", DeadlineEventType(6*time.Hour))
}

func TestDeadlineLabel(t *testing.T) {
	require.Equal(t, "in 2 days", DeadlineLabel("TASK_DEADLINE_2D"))
	require.Equal(t, "soon", DeadlineLabel("TASK_DEADLINE_99H"))
}

func TestClearSolution(t *testing.T) {
	grade := 5
	comment := "well done"
	uploaded := time.Now()
	assignment := TaskAssignment{
		SolutionObjectKey:  "tasks/1/solutions/2",
		SolutionFileName:   "main.go",
		SolutionUploadedAt: &uploaded,
		Grade:              &grade,
		TeacherComment:     &comment,
	}

	assignment.ClearSolution()

	require.False(t, assignment.HasSolution())
	require.Nil(t, assignment.Grade)
	require.Nil(t, assignment.TeacherComment)
	require.Nil(t, assignment.SolutionUploadedAt)
}
