package videos

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

type VideoHandler struct {
	service *VideoService
	gate    *entitlement.Gate
}

func NewVideoHandler(service *VideoService, gate *entitlement.Gate) *VideoHandler {
	return &VideoHandler{service: service, gate: gate}
}

func (h *VideoHandler) ListVideos(c *fiber.Ctx) error {
	vids, err := h.service.ListVideos(c.Query("subject"))
	if err != nil {
		slog.Error("failed to list videos", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
	return c.JSON(fiber.Map{"videos": vids, "count": len(vids)})
}

// Playback resolves the stream URL for a video. SD playback is free for
// everyone; each HD playback consumes one unit of the hd quota.
func (h *VideoHandler) Playback(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	videoID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid video id",
		})
	}

	var req PlaybackRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}
	if req.Quality == "" {
		req.Quality = QualitySD
	}
	if req.Quality != QualitySD && req.Quality != QualityHD {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Quality must be one of: sd, hd",
		})
	}

	var remaining int64
	if req.Quality == QualityHD {
		decision := h.gate.Admit(c.Context(), userID, FeatureHD)
		if !decision.Allowed {
			return modules.Deny(c, decision)
		}
		remaining = decision.Remaining
	}

	url, err := h.service.PlaybackURL(videoID, req.Quality)
	if err != nil {
		switch {
		case errors.Is(err, ErrVideoNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "Video not found",
			})
		case errors.Is(err, ErrNoHDVariant):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "Video has no HD variant",
			})
		default:
			slog.Error("failed to resolve playback url", "video_id", videoID.String(), "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error: true, Message: "Internal server error",
			})
		}
	}

	return c.JSON(PlaybackResponse{URL: url, Quality: req.Quality, Remaining: remaining})
}

func (h *VideoHandler) CreateVideo(c *fiber.Ctx) error {
	var req CreateVideoRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}
	if req.Subject == "" || req.Title == "" || req.SDURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Subject, title and sd_url are required",
		})
	}

	video, err := h.service.CreateVideo(req)
	if err != nil {
		slog.Error("failed to create video", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(video)
}

func (h *VideoHandler) DeleteVideo(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid video id",
		})
	}

	if err := h.service.DeleteVideo(id); err != nil {
		if errors.Is(err, ErrVideoNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "Video not found",
			})
		}
		slog.Error("failed to delete video", "video_id", id.String(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
	return c.JSON(fiber.Map{"message": "Video deleted"})
}
