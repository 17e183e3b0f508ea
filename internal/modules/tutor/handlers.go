package tutor

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/studyhall/studyhall-backend/internal/dto"
	"github.com/studyhall/studyhall-backend/internal/entitlement"
	"github.com/studyhall/studyhall-backend/internal/middleware"
	"github.com/studyhall/studyhall-backend/internal/modules"
)

type TutorHandler struct {
	service *TutorService
	gate    *entitlement.Gate
}

func NewTutorHandler(service *TutorService, gate *entitlement.Gate) *TutorHandler {
	return &TutorHandler{service: service, gate: gate}
}

// Ask consumes one tutor quota unit and answers the question. The feature
// has a zero limit below the top tier, so the gate rejects those callers
// before any work happens.
func (h *TutorHandler) Ask(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req AskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	decision := h.gate.Admit(c.Context(), userID, FeatureAsk)
	if !decision.Allowed {
		return modules.Deny(c, decision)
	}

	exchange, err := h.service.Ask(userID, req)
	if err != nil {
		if errors.Is(err, ErrEmptyQuestion) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Question must not be empty",
			})
		}
		slog.Error("tutor ask failed", "user_id", userID.String(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(AskResponse{
		Exchange:  exchange,
		Remaining: decision.Remaining,
	})
}

func (h *TutorHandler) GetHistory(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	exchanges, total, err := h.service.GetUserExchanges(userID, limit, offset)
	if err != nil {
		slog.Error("failed to list tutor exchanges", "user_id", userID.String(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
	return c.JSON(fiber.Map{"exchanges": exchanges, "total": total, "limit": limit, "offset": offset})
}
