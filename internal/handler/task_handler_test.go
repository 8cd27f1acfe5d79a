package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/taskroom/taskroom-go-api/internal/dto"
	"github.com/taskroom/taskroom-go-api/internal/handler"
	"github.com/taskroom/taskroom-go-api/internal/models"
	"github.com/taskroom/taskroom-go-api/internal/service"
)

type stubTaskService struct {
	tasks   []dto.TaskResponse
	created dto.TaskResponse
	err     error
}

func (s stubTaskService) Create(ctx context.Context, payload dto.TaskCreateRequest, authorID uint) (dto.TaskResponse, error) {
	return s.created, s.err
}

func (s stubTaskService) Update(ctx context.Context, id uint, payload dto.TaskUpdateRequest) (dto.TaskResponse, error) {
	return s.created, s.err
}

func (s stubTaskService) Get(ctx context.Context, id uint) (dto.TaskResponse, error) {
	if s.err != nil {
		return dto.TaskResponse{}, s.err
	}
	for _, task := range s.tasks {
		if task.ID == id {
			return task, nil
		}
	}
	return dto.TaskResponse{}, service.ErrTaskNotFound
}

func (s stubTaskService) List(ctx context.Context) ([]dto.TaskResponse, error) {
	return s.tasks, s.err
}

func (s stubTaskService) Delete(ctx context.Context, id uint) error {
	return s.err
}

type stubSchedulingService struct {
	pending []dto.ScheduledNotificationResponse
}

func (s stubSchedulingService) Schedule(context.Context, models.TaskAssignment) error   { return nil }
func (s stubSchedulingService) Reschedule(context.Context, models.TaskAssignment) error { return nil }
func (s stubSchedulingService) Cancel(context.Context, uint, uint) error                { return nil }
func (s stubSchedulingService) CancelAllForTask(context.Context, uint) error            { return nil }
func (s stubSchedulingService) ListPendingForTask(context.Context, uint) ([]dto.ScheduledNotificationResponse, error) {
	return s.pending, nil
}

func newTaskApp(tasks service.TaskService, scheduling service.SchedulingService, teacherOnly fiber.Handler) *fiber.App {
	app := fiber.New()
	validate := validator.New(validator.WithRequiredStructEnabled())
	h := handler.NewTaskHandler(tasks, scheduling, validate, zerolog.Nop())
	if teacherOnly == nil {
		teacherOnly = func(c *fiber.Ctx) error { return c.Next() }
	}
	h.Register(app.Group("/api/v1/tasks"), teacherOnly)
	return app
}

func TestTaskHandlerList(t *testing.T) {
	deadline := time.Now().Add(48 * time.Hour)
	tasks := stubTaskService{tasks: []dto.TaskResponse{{ID: 1, Title: "Essay", Deadline: &deadline}}}
	app := newTaskApp(tasks, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTaskHandlerGetNotFound(t *testing.T) {
	app := newTaskApp(stubTaskService{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/99", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTaskHandlerGetInvalidID(t *testing.T) {
	app := newTaskApp(stubTaskService{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/not-a-number", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTaskHandlerCreateValidation(t *testing.T) {
	app := newTaskApp(stubTaskService{}, nil, nil)

	body := strings.NewReader(`{"title":"ab"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", body)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTaskHandlerCreate(t *testing.T) {
	created := dto.TaskResponse{ID: 5, Title: "Read chapter 4"}
	app := newTaskApp(stubTaskService{created: created}, nil, nil)

	body := strings.NewReader(`{"title":"Read chapter 4","priority":"medium"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", body)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestTaskHandlerPendingNotifications(t *testing.T) {
	scheduling := stubSchedulingService{pending: []dto.ScheduledNotificationResponse{
		{ID: 1, TaskID: 3, UserID: 7, EventType: "TASK_DEADLINE_1D", Status: models.NotificationPending},
	}}
	app := newTaskApp(stubTaskService{}, scheduling, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/3/notifications", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTaskHandlerWriteRoutesRequireTeacherRole(t *testing.T) {
	forbidden := func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusForbidden)
	}
	app := newTaskApp(stubTaskService{}, nil, forbidden)

	body := strings.NewReader(`{"title":"Read chapter 4"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", body)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Read routes stay open.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
