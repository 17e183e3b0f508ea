package lessons

import (
	"github.com/gofiber/fiber/v2"

	"github.com/studyhall/studyhall-backend/internal/modules"
)

// FeatureBrowse is the gate feature for reading lesson content. It is
// unlimited on every tier, so browsing keeps working even when the
// entitlement store is down.
const FeatureBrowse = "lesson_browse"

type Module struct{}

func New() *Module {
	return &Module{}
}

func (m *Module) ID() string {
	return "lessons"
}

func (m *Module) Models() []interface{} {
	return []interface{}{&Lesson{}}
}

func (m *Module) RegisterRoutes(router fiber.Router, deps modules.Deps) {
	handler := NewLessonHandler(NewLessonService(deps.DB), deps.Gate)

	group := router.Group("/lessons")
	group.Get("/", handler.ListLessons)
	group.Get("/:id", handler.GetLesson)
}

func (m *Module) RegisterAdminRoutes(router fiber.Router, deps modules.Deps) {
	handler := NewLessonHandler(NewLessonService(deps.DB), deps.Gate)

	group := router.Group("/lessons")
	group.Post("/", handler.CreateLesson)
	group.Put("/:id", handler.UpdateLesson)
	group.Delete("/:id", handler.DeleteLesson)
}
