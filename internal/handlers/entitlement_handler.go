package handlers

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/studyhall/studyhall-backend/internal/dto"
	"github.com/studyhall/studyhall-backend/internal/entitlement"
	"github.com/studyhall/studyhall-backend/internal/features"
	"github.com/studyhall/studyhall-backend/internal/middleware"
)

type EntitlementHandler struct {
	resolver    *entitlement.Resolver
	reconciler  *entitlement.Reconciler
	coordinator *entitlement.Coordinator
	limits      *features.Registry
}

func NewEntitlementHandler(
	resolver *entitlement.Resolver,
	reconciler *entitlement.Reconciler,
	coordinator *entitlement.Coordinator,
	limits *features.Registry,
) *EntitlementHandler {
	return &EntitlementHandler{
		resolver:    resolver,
		reconciler:  reconciler,
		coordinator: coordinator,
		limits:      limits,
	}
}

// Me returns the caller's resolved entitlement. A store outage is surfaced,
// never silently downgraded to free.
func (h *EntitlementHandler) Me(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	sub, err := h.resolver.Subscription(c.Context(), userID)
	if err != nil {
		slog.Error("entitlement read failed", "user_id", userID.String(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Entitlement store unavailable",
		})
	}

	resp := dto.EntitlementResponse{
		Tier:              string(entitlement.EffectiveTier(sub, time.Now())),
		Status:            sub.Status,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if !sub.CurrentPeriodStart.IsZero() {
		start := sub.CurrentPeriodStart
		resp.CurrentPeriodStart = &start
	}
	if !sub.CurrentPeriodEnd.IsZero() {
		end := sub.CurrentPeriodEnd
		resp.CurrentPeriodEnd = &end
	}
	return c.JSON(resp)
}

// AdminOverride sets a user's tier directly, bypassing billing.
func (h *EntitlementHandler) AdminOverride(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("user_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid user id",
		})
	}

	var req dto.AdminOverrideRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	tier, err := entitlement.ParseTier(req.Tier)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Tier must be one of: free, plus, max",
		})
	}

	if err := h.reconciler.ApplyAdminOverride(c.Context(), userID, tier); err != nil {
		var clearErr *entitlement.CacheClearError
		if errors.As(err, &clearErr) {
			return c.JSON(fiber.Map{
				"message": "Tier updated; some caches could not be cleared and will expire on TTL",
				"stale":   true,
			})
		}
		slog.Error("admin override failed", "user_id", userID.String(), "tier", req.Tier, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Entitlement store unavailable",
		})
	}

	return c.JSON(fiber.Map{"message": "Tier updated", "tier": string(tier)})
}

// Invalidate clears the requested cache categories for a user and reports
// per-category success.
func (h *EntitlementHandler) Invalidate(c *fiber.Ctx) error {
	var req dto.InvalidateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid user id",
		})
	}

	categories, err := entitlement.ParseCategories(req.Categories)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}

	results := h.coordinator.Invalidate(userID, categories)
	out := make(map[string]bool, len(results))
	for cat, ok := range results {
		out[string(cat)] = ok
	}
	return c.JSON(dto.InvalidateResponse{UserID: userID.String(), Results: out})
}

// ListFeatures returns the current feature limit table.
func (h *EntitlementHandler) ListFeatures(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"features": h.limits.All()})
}

// SetFeatureLimits updates one feature's per-tier limits at runtime.
func (h *EntitlementHandler) SetFeatureLimits(c *fiber.Ctx) error {
	feature := c.Params("feature")
	if feature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Feature name required",
		})
	}

	var req dto.FeatureLimitsRequest
	if err := c.BodyParser(&req); err != nil || len(req.Limits) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid limits",
		})
	}
	for tier := range req.Limits {
		if _, err := entitlement.ParseTier(tier); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Unknown tier in limits: " + tier,
			})
		}
	}

	h.limits.Set(feature, req.Limits)
	slog.Info("feature limits updated", "feature", feature)
	return c.JSON(fiber.Map{"feature": feature, "limits": req.Limits})
}
