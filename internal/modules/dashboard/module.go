package dashboard

import (
	"github.com/gofiber/fiber/v2"

	"github.com/studyhall/studyhall-backend/internal/modules"
)

type Module struct{}

func New() *Module {
	return &Module{}
}

func (m *Module) ID() string {
	return "dashboard"
}

func (m *Module) Models() []interface{} {
	// Aggregates over the practice module's tables; owns no tables itself.
	return nil
}

func (m *Module) RegisterRoutes(router fiber.Router, deps modules.Deps) {
	handler := NewDashboardHandler(NewDashboardService(deps.DB), deps.DB)

	group := router.Group("/dashboard")
	group.Get("/summary", handler.Summary)
}
