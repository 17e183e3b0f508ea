package practice

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/studyhall/studyhall-backend/internal/dto"
	"github.com/studyhall/studyhall-backend/internal/entitlement"
	"github.com/studyhall/studyhall-backend/internal/middleware"
	"github.com/studyhall/studyhall-backend/internal/modules"
)

type PracticeHandler struct {
	service *PracticeService
	gate    *entitlement.Gate
}

func NewPracticeHandler(service *PracticeService, gate *entitlement.Gate) *PracticeHandler {
	return &PracticeHandler{service: service, gate: gate}
}

func (h *PracticeHandler) ListPacks(c *fiber.Ctx) error {
	packs, err := h.service.ListPacks(c.Query("subject"))
	if err != nil {
		slog.Error("failed to list practice packs", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
	return c.JSON(fiber.Map{"packs": packs, "count": len(packs)})
}

func (h *PracticeHandler) GetPack(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid pack id",
		})
	}

	pack, err := h.service.GetPack(id)
	if err != nil {
		if errors.Is(err, ErrPackNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "Practice pack not found",
			})
		}
		slog.Error("failed to get practice pack", "pack_id", id.String(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
	return c.JSON(pack)
}

// SubmitAttempt consumes one unit of the attempt quota and records the
// result. The quota unit is spent even if the insert afterwards fails.
func (h *PracticeHandler) SubmitAttempt(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	packID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid pack id",
		})
	}

	var req SubmitAttemptRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	decision := h.gate.Admit(c.Context(), userID, FeatureAttempts)
	if !decision.Allowed {
		return modules.Deny(c, decision)
	}

	attempt, err := h.service.RecordAttempt(userID, packID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrPackNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "Practice pack not found",
			})
		case errors.Is(err, ErrInvalidScore):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Score must be between 0 and max_score",
			})
		default:
			slog.Error("failed to record attempt", "user_id", userID.String(), "pack_id", packID.String(), "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error: true, Message: "Internal server error",
			})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(AttemptResponse{
		Attempt:   attempt,
		Remaining: decision.Remaining,
		Limit:     decision.Limit,
	})
}

func (h *PracticeHandler) GetMyAttempts(c *fiber.Ctx) error {
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

	attempts, total, err := h.service.GetUserAttempts(userID, limit, offset)
	if err != nil {
		slog.Error("failed to list attempts", "user_id", userID.String(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
	return c.JSON(fiber.Map{"attempts": attempts, "total": total, "limit": limit, "offset": offset})
}

func (h *PracticeHandler) CreatePack(c *fiber.Ctx) error {
	var req CreatePackRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}
	if req.Subject == "" || req.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Subject and title are required",
		})
	}

	pack, err := h.service.CreatePack(req)
	if err != nil {
		if errors.Is(err, ErrInvalidDifficulty) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Difficulty must be one of: easy, medium, hard",
			})
		}
		slog.Error("failed to create practice pack", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(pack)
}
