package practice

import (
	"github.com/gofiber/fiber/v2"

	"github.com/studyhall/studyhall-backend/internal/modules"
)

// FeatureAttempts is the gate feature consumed by each submitted attempt.
const FeatureAttempts = "practice_attempts"

type Module struct{}

func New() *Module {
	return &Module{}
}

func (m *Module) ID() string {
	return "practice"
}

func (m *Module) Models() []interface{} {
	return []interface{}{&PracticePack{}, &PracticeAttempt{}}
}

func (m *Module) RegisterRoutes(router fiber.Router, deps modules.Deps) {
	handler := NewPracticeHandler(NewPracticeService(deps.DB), deps.Gate)

	group := router.Group("/practice")
	group.Get("/packs", handler.ListPacks)
	group.Get("/packs/:id", handler.GetPack)
	group.Post("/packs/:id/attempts", handler.SubmitAttempt)
	group.Get("/attempts", handler.GetMyAttempts)
}

func (m *Module) RegisterAdminRoutes(router fiber.Router, deps modules.Deps) {
	handler := NewPracticeHandler(NewPracticeService(deps.DB), deps.Gate)

	group := router.Group("/practice")
	group.Post("/packs", handler.CreatePack)
}
