package modules

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/studyhall/studyhall-backend/internal/config"
	"github.com/studyhall/studyhall-backend/internal/dto"
	"github.com/studyhall/studyhall-backend/internal/entitlement"
)

// Deps carries the shared collaborators content modules build on.
type Deps struct {
	DB   *gorm.DB
	Cfg  *config.Config
	Gate *entitlement.Gate
}

// Module defines the interface every content area must implement.
type Module interface {
	// ID returns the unique module identifier.
	ID() string

	// Models returns the list of GORM model pointers for AutoMigrate.
	Models() []interface{}

	// RegisterRoutes mounts module-specific routes on the given Fiber group.
	// The group is already prefixed with /api and has JWT middleware applied.
	RegisterRoutes(router fiber.Router, deps Deps)
}

// AdminModule extends Module with admin-only route registration.
type AdminModule interface {
	Module

	// RegisterAdminRoutes mounts admin-only routes on the given Fiber group.
	// The group has both JWT and Admin middleware applied.
	RegisterAdminRoutes(router fiber.Router, deps Deps)
}

// Deny maps a gate decision to the HTTP response for a rejected feature
// invocation.
func Deny(c *fiber.Ctx, d entitlement.Decision) error {
	switch d.Reason {
	case entitlement.DenyQuotaExceeded:
		return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{
			Error: true, Message: "Quota exceeded for this billing period",
		})
	case entitlement.DenyNotInTier:
		return c.Status(fiber.StatusPaymentRequired).JSON(dto.ErrorResponse{
			Error: true, Message: "Feature not included in your plan",
		})
	default:
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
			Error: true, Message: "Entitlement check unavailable, try again",
		})
	}
}
