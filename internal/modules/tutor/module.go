package tutor

import (
	"github.com/gofiber/fiber/v2"

	"github.com/studyhall/studyhall-backend/internal/modules"
)

// FeatureAsk is the gate feature consumed by each tutor question.
const FeatureAsk = "ai_tutor"

type Module struct{}

func New() *Module {
	return &Module{}
}

func (m *Module) ID() string {
	return "tutor"
}

func (m *Module) Models() []interface{} {
	return []interface{}{&TutorExchange{}}
}

func (m *Module) RegisterRoutes(router fiber.Router, deps modules.Deps) {
	handler := NewTutorHandler(NewTutorService(deps.DB), deps.Gate)

	group := router.Group("/tutor")
	group.Post("/ask", handler.Ask)
	group.Get("/history", handler.GetHistory)
}
