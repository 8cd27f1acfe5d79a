package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/taskroom/taskroom-go-api/internal/models"
)

func newTestSweepService(assignments *memoryAssignmentRepo, dispatcher *captureDispatcher, now time.Time) *sweepService {
	svc := NewSweepService(assignments, dispatcher, defaultLeadTimes, zerolog.New(io.Discard)).(*sweepService)
	svc.now = func() time.Time { return now }
	return svc
}

func seedAssignment(t *testing.T, assignments *memoryAssignmentRepo, taskID, userID uint, status models.AssignmentStatus, deadline time.Time) {
	t.Helper()
	assignment := assignmentWithDeadline(taskID, userID, deadline)
	assignment.Status = status
	assignment.User = models.User{ID: userID, Role: models.RoleStudent}
	require.NoError(t, assignments.Create(context.Background(), &assignment))
}

func TestOverdueSweepTransitionsDueAssignments(t *testing.T) {
	assignments := newMemoryAssignmentRepo()
	dispatcher := &captureDispatcher{}
	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestSweepService(assignments, dispatcher, now)

	seedAssignment(t, assignments, 1, 7, models.StatusNotStarted, now.Add(-time.Hour))
	seedAssignment(t, assignments, 2, 7, models.StatusInProgress, now.Add(-time.Minute))
	seedAssignment(t, assignments, 3, 7, models.StatusInProgress, now.Add(time.Hour))

	require.NoError(t, svc.RunOverdueSweep(context.Background()))

	first, err := assignments.GetByTaskAndUser(context.Background(), 1, 7)
	require.NoError(t, err)
	require.Equal(t, models.StatusOverdue, first.Status)

	second, err := assignments.GetByTaskAndUser(context.Background(), 2, 7)
	require.NoError(t, err)
	require.Equal(t, models.StatusOverdue, second.Status)

	future, err := assignments.GetByTaskAndUser(context.Background(), 3, 7)
	require.NoError(t, err)
	require.Equal(t, models.StatusInProgress, future.Status)

	require.ElementsMatch(t, []string{models.EventTaskOverdue, models.EventTaskOverdue}, dispatcher.typesSeen())
}

func TestOverdueSweepNeverTouchesCompleted(t *testing.T) {
	assignments := newMemoryAssignmentRepo()
	dispatcher := &captureDispatcher{}
	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestSweepService(assignments, dispatcher, now)

	seedAssignment(t, assignments, 1, 7, models.StatusCompleted, now.Add(-time.Hour))

	require.NoError(t, svc.RunOverdueSweep(context.Background()))

	assignment, err := assignments.GetByTaskAndUser(context.Background(), 1, 7)
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, assignment.Status)
	require.Empty(t, dispatcher.captured())
}

func TestOverdueSweepIsIdempotent(t *testing.T) {
	assignments := newMemoryAssignmentRepo()
	dispatcher := &captureDispatcher{}
	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestSweepService(assignments, dispatcher, now)

	seedAssignment(t, assignments, 1, 7, models.StatusInProgress, now.Add(-time.Hour))

	require.NoError(t, svc.RunOverdueSweep(context.Background()))
	require.NoError(t, svc.RunOverdueSweep(context.Background()))

	// OVERDUE rows are not sweep-eligible, so the second run dispatches nothing.
	require.Len(t, dispatcher.captured(), 1)
}

func TestOverdueSweepWithNothingDueDispatchesNothing(t *testing.T) {
	assignments := newMemoryAssignmentRepo()
	dispatcher := &captureDispatcher{}
	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestSweepService(assignments, dispatcher, now)

	require.NoError(t, svc.RunOverdueSweep(context.Background()))
	require.Empty(t, dispatcher.captured())
}

func TestApproachingSweepFiresInsideLeadWindows(t *testing.T) {
	assignments := newMemoryAssignmentRepo()
	dispatcher := &captureDispatcher{}
	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestSweepService(assignments, dispatcher, now)

	// Deadline 23h30m out falls in the [now+23h, now+24h] window of the 24h lead.
	seedAssignment(t, assignments, 1, 7, models.StatusInProgress, now.Add(23*time.Hour+30*time.Minute))
	// Deadline 30h out falls in no window.
	seedAssignment(t, assignments, 2, 7, models.StatusInProgress, now.Add(30*time.Hour))

	require.NoError(t, svc.RunApproachingSweep(context.Background()))

	events := dispatcher.captured()
	require.Len(t, events, 1)
	require.Equal(t, "TASK_DEADLINE_1D", events[0].Type)
	require.Equal(t, uint(7), events[0].UserID)
	require.Equal(t, "1", events[0].Metadata["task_id"])
}

func TestApproachingSweepSkipsCompletedAssignments(t *testing.T) {
	assignments := newMemoryAssignmentRepo()
	dispatcher := &captureDispatcher{}
	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestSweepService(assignments, dispatcher, now)

	seedAssignment(t, assignments, 1, 7, models.StatusCompleted, now.Add(23*time.Hour+30*time.Minute))

	require.NoError(t, svc.RunApproachingSweep(context.Background()))
	require.Empty(t, dispatcher.captured())
}
