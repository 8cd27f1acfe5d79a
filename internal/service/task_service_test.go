package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/taskroom/taskroom-go-api/internal/dto"
	"github.com/taskroom/taskroom-go-api/internal/models"
)

type taskFixture struct {
	svc         *taskService
	tasks       *memoryTaskRepo
	assignments *memoryAssignmentRepo
	schedules   *memoryScheduleRepo
	now         time.Time
}

func newTaskFixture(t *testing.T) *taskFixture {
	t.Helper()

	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	tasks := newMemoryTaskRepo()
	assignments := newMemoryAssignmentRepo()
	schedules := newMemoryScheduleRepo()

	scheduling := newTestSchedulingService(schedules, now)
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewTaskService(tasks, assignments, scheduling, validate, zerolog.New(io.Discard)).(*taskService)
	svc.now = func() time.Time { return now }

	return &taskFixture{svc: svc, tasks: tasks, assignments: assignments, schedules: schedules, now: now}
}

func TestCreateTaskParsesDeadline(t *testing.T) {
	f := newTaskFixture(t)
	deadline := f.now.Add(96 * time.Hour).Format(time.RFC3339)

	response, err := f.svc.Create(context.Background(), dto.TaskCreateRequest{
		Title:    "Linear algebra homework",
		Deadline: &deadline,
		Priority: "high",
	}, 100)
	require.NoError(t, err)
	require.NotZero(t, response.ID)
	require.NotNil(t, response.Deadline)
	require.Equal(t, uint(100), response.AuthorID)
}

func TestCreateTaskRejectsInvalidPayload(t *testing.T) {
	f := newTaskFixture(t)

	_, err := f.svc.Create(context.Background(), dto.TaskCreateRequest{Title: "ab"}, 100)
	require.Error(t, err)
}

func TestUpdateTaskWithNewDeadlineReschedulesAssignees(t *testing.T) {
	f := newTaskFixture(t)
	deadline := f.now.Add(72 * time.Hour)
	task := models.Task{Title: "Read chapter 4", Deadline: &deadline, AuthorID: 100}
	require.NoError(t, f.tasks.Create(context.Background(), &task))

	assignment := assignmentWithDeadline(task.ID, 7, deadline)
	require.NoError(t, f.assignments.Create(context.Background(), &assignment))
	require.NoError(t, f.svc.scheduling.Schedule(context.Background(), assignment))

	before, err := f.schedules.FindPendingByTaskAndUser(context.Background(), task.ID, 7)
	require.NoError(t, err)
	require.Len(t, before, 3)

	newDeadline := f.now.Add(120 * time.Hour).Format(time.RFC3339)
	_, err = f.svc.Update(context.Background(), task.ID, dto.TaskUpdateRequest{Deadline: &newDeadline})
	require.NoError(t, err)

	after, err := f.schedules.FindPendingByTaskAndUser(context.Background(), task.ID, 7)
	require.NoError(t, err)
	require.Len(t, after, 3)
	for _, notification := range after {
		require.True(t, notification.ScheduledTime.After(deadline.Add(-48*time.Hour)))
	}
}

func TestUpdateTaskWithUnchangedDeadlineKeepsSchedule(t *testing.T) {
	f := newTaskFixture(t)
	deadline := f.now.Add(72 * time.Hour)
	task := models.Task{Title: "Read chapter 4", Deadline: &deadline, AuthorID: 100}
	require.NoError(t, f.tasks.Create(context.Background(), &task))

	assignment := assignmentWithDeadline(task.ID, 7, deadline)
	require.NoError(t, f.assignments.Create(context.Background(), &assignment))
	require.NoError(t, f.svc.scheduling.Schedule(context.Background(), assignment))

	before, err := f.schedules.FindPendingByTaskAndUser(context.Background(), task.ID, 7)
	require.NoError(t, err)

	sameDeadline := deadline.Format(time.RFC3339)
	newTitle := "Read chapters 4 and 5"
	_, err = f.svc.Update(context.Background(), task.ID, dto.TaskUpdateRequest{Title: &newTitle, Deadline: &sameDeadline})
	require.NoError(t, err)

	after, err := f.schedules.FindPendingByTaskAndUser(context.Background(), task.ID, 7)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestUpdateUnknownTask(t *testing.T) {
	f := newTaskFixture(t)
	title := "Anything"

	_, err := f.svc.Update(context.Background(), 42, dto.TaskUpdateRequest{Title: &title})
	require.ErrorIs(t, err, ErrTaskNotFound)
}

func TestDeleteTaskRemovesAssignmentsAndCancelsReminders(t *testing.T) {
	f := newTaskFixture(t)
	deadline := f.now.Add(72 * time.Hour)
	task := models.Task{Title: "Read chapter 4", Deadline: &deadline, AuthorID: 100}
	require.NoError(t, f.tasks.Create(context.Background(), &task))

	assignment := assignmentWithDeadline(task.ID, 7, deadline)
	require.NoError(t, f.assignments.Create(context.Background(), &assignment))
	require.NoError(t, f.svc.scheduling.Schedule(context.Background(), assignment))

	require.NoError(t, f.svc.Delete(context.Background(), task.ID))

	_, err := f.svc.Get(context.Background(), task.ID)
	require.ErrorIs(t, err, ErrTaskNotFound)

	remaining, err := f.assignments.ListByTask(context.Background(), task.ID)
	require.NoError(t, err)
	require.Empty(t, remaining)

	pending, err := f.schedules.FindPendingByTask(context.Background(), task.ID)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestDeleteUnknownTask(t *testing.T) {
	f := newTaskFixture(t)

	require.ErrorIs(t, f.svc.Delete(context.Background(), 42), ErrTaskNotFound)
}
