package handler

import (
	"errors"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/taskroom/taskroom-go-api/internal/dto"
	"github.com/taskroom/taskroom-go-api/internal/service"
	"github.com/taskroom/taskroom-go-api/internal/utils"
)

const maxSolutionSize = 20 << 20 // 20 MiB

// SolutionHandler wires solution upload, grading and download routes.
type SolutionHandler struct {
	solutions service.SolutionService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewSolutionHandler constructs the handler.
func NewSolutionHandler(solutions service.SolutionService, validate *validator.Validate, logger zerolog.Logger) *SolutionHandler {
	return &SolutionHandler{
		solutions: solutions,
		validator: validate,
		logger:    logger.With().Str("component", "solution_handler").Logger(),
	}
}

// Register attaches solution endpoints to the router group.
func (h *SolutionHandler) Register(router fiber.Router, teacherOnly fiber.Handler) {
	router.Post("/tasks/:taskId/my", h.upload)
	router.Delete("/tasks/:taskId/my", h.delete)
	router.Get("/tasks/:taskId/my/download", h.downloadMine)
	router.Get("/tasks/:taskId", teacherOnly, h.listForTask)
	router.Get("/tasks/:taskId/users/:userId/download", teacherOnly, h.download)
	router.Post("/tasks/:taskId/users/:userId/grade", teacherOnly, h.grade)
}

func (h *SolutionHandler) upload(c *fiber.Ctx) error {
	taskID, err := parseUintParam(c, "taskId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid task id")
	}

	header, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}
	if header.Size > maxSolutionSize {
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, "solution file too large")
	}

	file, err := header.Open()
	if err != nil {
		return h.internalError(c, err)
	}
	defer file.Close()

	// Sniff the real content type instead of trusting the client header.
	detected, err := mimetype.DetectReader(file)
	if err != nil {
		return h.internalError(c, err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return h.internalError(c, err)
	}

	assignment, err := h.solutions.RecordUploaded(c.Context(), taskID, userIDFromContext(c), header.Filename, detected.String(), file, header.Size)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAssignmentNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "task not assigned to you")
		case errors.Is(err, service.ErrSolutionExists):
			return utils.SendError(c, fiber.StatusConflict, err.Error())
		}
		return h.internalError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "solution uploaded", assignment)
}

func (h *SolutionHandler) delete(c *fiber.Ctx) error {
	taskID, err := parseUintParam(c, "taskId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid task id")
	}

	assignment, err := h.solutions.RecordDeleted(c.Context(), taskID, userIDFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAssignmentNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "task not assigned to you")
		case errors.Is(err, service.ErrSolutionMissing):
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrDeadlinePassed):
			return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
		}
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "solution deleted", assignment)
}

func (h *SolutionHandler) downloadMine(c *fiber.Ctx) error {
	taskID, err := parseUintParam(c, "taskId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid task id")
	}

	return h.sendDownloadURL(c, taskID, userIDFromContext(c))
}

func (h *SolutionHandler) download(c *fiber.Ctx) error {
	taskID, err := parseUintParam(c, "taskId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid task id")
	}

	userID, err := parseUintParam(c, "userId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	return h.sendDownloadURL(c, taskID, userID)
}

func (h *SolutionHandler) sendDownloadURL(c *fiber.Ctx, taskID, userID uint) error {
	url, err := h.solutions.DownloadURL(c.Context(), taskID, userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAssignmentNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "assignment not found")
		case errors.Is(err, service.ErrSolutionMissing):
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		}
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "download url generated", fiber.Map{"url": url})
}

func (h *SolutionHandler) listForTask(c *fiber.Ctx) error {
	taskID, err := parseUintParam(c, "taskId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid task id")
	}

	solutions, err := h.solutions.ListForTask(c.Context(), taskID)
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "solutions retrieved", solutions)
}

func (h *SolutionHandler) grade(c *fiber.Ctx) error {
	taskID, err := parseUintParam(c, "taskId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid task id")
	}

	studentID, err := parseUintParam(c, "userId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	var payload dto.GradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.validator.Struct(payload); err != nil {
		return utils.SendValidationError(c, err)
	}

	assignment, err := h.solutions.Grade(c.Context(), taskID, studentID, userIDFromContext(c), payload.Grade, payload.Comment)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAssignmentNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "assignment not found")
		case errors.Is(err, service.ErrSolutionMissing):
			return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
		}
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "solution graded", assignment)
}

func (h *SolutionHandler) internalError(c *fiber.Ctx, err error) error {
	h.logger.Error().Err(err).Str("path", c.Path()).Msg("solution request failed")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
