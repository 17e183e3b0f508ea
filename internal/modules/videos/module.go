package videos

import (
	"github.com/gofiber/fiber/v2"

	"github.com/studyhall/studyhall-backend/internal/modules"
)

// FeatureHD is the gate feature consumed by each HD playback.
const FeatureHD = "video_hd"

type Module struct{}

func New() *Module {
	return &Module{}
}

func (m *Module) ID() string {
	return "videos"
}

func (m *Module) Models() []interface{} {
	return []interface{}{&Video{}}
}

func (m *Module) RegisterRoutes(router fiber.Router, deps modules.Deps) {
	handler := NewVideoHandler(NewVideoService(deps.DB), deps.Gate)

	group := router.Group("/videos")
	group.Get("/", handler.ListVideos)
	group.Post("/:id/playback", handler.Playback)
}

func (m *Module) RegisterAdminRoutes(router fiber.Router, deps modules.Deps) {
	handler := NewVideoHandler(NewVideoService(deps.DB), deps.Gate)

	group := router.Group("/videos")
	group.Post("/", handler.CreateVideo)
	group.Delete("/:id", handler.DeleteVideo)
}
