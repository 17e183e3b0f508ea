package practice

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/studyhall/studyhall-backend/internal/entitlement"
	"github.com/studyhall/studyhall-backend/internal/features"
)

func newPracticeTestApp(t *testing.T, userID uuid.UUID) (*fiber.App, *PracticeService) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&PracticePack{}, &PracticeAttempt{}))

	store := entitlement.NewMemoryStore()
	resolver, err := entitlement.NewResolver(store, time.Minute, 5*time.Minute)
	require.NoError(t, err)
	gate := entitlement.NewGate(resolver, store, features.Default())

	service := NewPracticeService(db)
	handler := NewPracticeHandler(service, gate)

	app := fiber.New()
	// Stand in for the JWT middleware: put a parsed token in locals.
	app.Use(func(c *fiber.Ctx) error {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":   userID.String(),
			"email": "student@example.com",
		})
		c.Locals("user", token)
		return c.Next()
	})
	app.Post("/practice/packs/:id/attempts", handler.SubmitAttempt)
	return app, service
}

func submitAttempt(t *testing.T, app *fiber.App, packID uuid.UUID) *http.Response {
	t.Helper()
	raw, err := json.Marshal(SubmitAttemptRequest{Score: 8, MaxScore: 10})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/practice/packs/"+packID.String()+"/attempts", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestSubmitAttemptConsumesQuota(t *testing.T) {
	userID := uuid.New()
	app, service := newPracticeTestApp(t, userID)

	pack, err := service.CreatePack(CreatePackRequest{Subject: "algebra", Title: "Linear equations", QuestionCount: 10})
	require.NoError(t, err)

	// Free tier gets 5 attempts per period.
	for i := 0; i < 5; i++ {
		resp := submitAttempt(t, app, pack.ID)
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode, "attempt %d", i+1)
	}

	resp := submitAttempt(t, app, pack.ID)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)

	attempts, total, err := service.GetUserAttempts(userID, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, attempts, 5)
}

func TestSubmitAttemptUnknownPack(t *testing.T) {
	app, _ := newPracticeTestApp(t, uuid.New())

	resp := submitAttempt(t, app, uuid.New())
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestSubmitAttemptInvalidScore(t *testing.T) {
	userID := uuid.New()
	app, service := newPracticeTestApp(t, userID)
	pack, err := service.CreatePack(CreatePackRequest{Subject: "geometry", Title: "Angles"})
	require.NoError(t, err)

	raw, err := json.Marshal(SubmitAttemptRequest{Score: 12, MaxScore: 10})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/practice/packs/"+pack.ID.String()+"/attempts", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
