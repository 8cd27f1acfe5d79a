package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/taskroom/taskroom-go-api/internal/dto"
	"github.com/taskroom/taskroom-go-api/internal/repository"
	"github.com/taskroom/taskroom-go-api/internal/service"
	"github.com/taskroom/taskroom-go-api/internal/utils"
)

// AuthHandler exposes the password reset token endpoints. Credentials
// themselves are managed by the identity service; this API only issues and
// redeems the single-use tokens.
type AuthHandler struct {
	tokens    service.ResetTokenStore
	users     repository.UserRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(tokens service.ResetTokenStore, users repository.UserRepository, validate *validator.Validate, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		tokens:    tokens,
		users:     users,
		validator: validate,
		logger:    logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register attaches password reset endpoints to the router group.
func (h *AuthHandler) Register(router fiber.Router) {
	router.Post("/password-reset/request", h.request)
	router.Post("/password-reset/confirm", h.confirm)
}

func (h *AuthHandler) request(c *fiber.Ctx) error {
	var payload dto.PasswordResetRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.validator.Struct(payload); err != nil {
		return utils.SendValidationError(c, err)
	}

	user, err := h.users.GetByUsername(c.Context(), payload.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		}
		return h.internalError(c, err)
	}

	token, err := h.tokens.Issue(c.Context(), user.ID)
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "reset token issued", dto.PasswordResetTokenResponse{Token: token})
}

func (h *AuthHandler) confirm(c *fiber.Ctx) error {
	var payload dto.PasswordResetConfirm
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.validator.Struct(payload); err != nil {
		return utils.SendValidationError(c, err)
	}

	userID, err := h.tokens.Consume(c.Context(), payload.Token)
	if err != nil {
		if errors.Is(err, service.ErrTokenInvalid) {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "reset token accepted", dto.PasswordResetConfirmResponse{UserID: userID})
}

func (h *AuthHandler) internalError(c *fiber.Ctx, err error) error {
	h.logger.Error().Err(err).Str("path", c.Path()).Msg("auth request failed")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
