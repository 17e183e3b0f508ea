package lessons

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/studyhall/studyhall-backend/internal/dto"
	"github.com/studyhall/studyhall-backend/internal/entitlement"
	"github.com/studyhall/studyhall-backend/internal/middleware"
	"github.com/studyhall/studyhall-backend/internal/modules"
)

type LessonHandler struct {
	service *LessonService
	gate    *entitlement.Gate
}

func NewLessonHandler(service *LessonService, gate *entitlement.Gate) *LessonHandler {
	return &LessonHandler{service: service, gate: gate}
}

func (h *LessonHandler) ListLessons(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	if d := h.gate.Admit(c.Context(), userID, FeatureBrowse); !d.Allowed {
		return modules.Deny(c, d)
	}

	items, err := h.service.ListLessons(c.Query("subject"))
	if err != nil {
		slog.Error("failed to list lessons", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
	return c.JSON(fiber.Map{"lessons": items, "count": len(items)})
}

func (h *LessonHandler) GetLesson(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid lesson id",
		})
	}

	if d := h.gate.Admit(c.Context(), userID, FeatureBrowse); !d.Allowed {
		return modules.Deny(c, d)
	}

	lesson, err := h.service.GetLesson(id)
	if err != nil {
		if errors.Is(err, ErrLessonNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "Lesson not found",
			})
		}
		slog.Error("failed to get lesson", "lesson_id", id.String(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
	return c.JSON(lesson)
}

func (h *LessonHandler) CreateLesson(c *fiber.Ctx) error {
	var req CreateLessonRequest
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

	lesson, err := h.service.CreateLesson(req)
	if err != nil {
		slog.Error("failed to create lesson", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(lesson)
}

func (h *LessonHandler) UpdateLesson(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid lesson id",
		})
	}

	var req CreateLessonRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	lesson, err := h.service.UpdateLesson(id, req)
	if err != nil {
		if errors.Is(err, ErrLessonNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "Lesson not found",
			})
		}
		slog.Error("failed to update lesson", "lesson_id", id.String(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
	return c.JSON(lesson)
}

func (h *LessonHandler) DeleteLesson(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid lesson id",
		})
	}

	if err := h.service.DeleteLesson(id); err != nil {
		if errors.Is(err, ErrLessonNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "Lesson not found",
			})
		}
		slog.Error("failed to delete lesson", "lesson_id", id.String(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
	return c.JSON(fiber.Map{"message": "Lesson deleted"})
}
