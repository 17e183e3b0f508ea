package dashboard

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/studyhall/studyhall-backend/internal/dto"
	"github.com/studyhall/studyhall-backend/internal/middleware"
	"github.com/studyhall/studyhall-backend/internal/models"
)

type DashboardHandler struct {
	service *DashboardService
	db      *gorm.DB
}

func NewDashboardHandler(service *DashboardService, db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{service: service, db: db}
}

// Summary returns the class progress rollup. Restricted to teacher and
// admin roles.
func (h *DashboardHandler) Summary(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}
	if user.Role != "teacher" && user.Role != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: "Teacher access required",
		})
	}

	windowDays, _ := strconv.Atoi(c.Query("window_days", "30"))
	if windowDays <= 0 || windowDays > 365 {
		windowDays = 30
	}

	summary, err := h.service.Summary(windowDays)
	if err != nil {
		slog.Error("failed to build dashboard summary", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
	return c.JSON(summary)
}
