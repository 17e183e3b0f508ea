package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/studyhall/studyhall-backend/internal/billing"
	"github.com/studyhall/studyhall-backend/internal/dto"
	"github.com/studyhall/studyhall-backend/internal/entitlement"
	"github.com/studyhall/studyhall-backend/internal/middleware"
)

type BillingHandler struct {
	client *billing.CheckoutClient
}

func NewBillingHandler(client *billing.CheckoutClient) *BillingHandler {
	return &BillingHandler{client: client}
}

// Checkout creates a Stripe checkout session for a paid tier and returns its
// URL. The entitlement itself only changes when the completion webhook lands.
func (h *BillingHandler) Checkout(c *fiber.Ctx) error {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req dto.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	tier, err := entitlement.ParseTier(req.Tier)
	if err != nil || tier == entitlement.TierFree {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Tier must be one of: plus, max",
		})
	}

	url, err := h.client.CreateSession(c.Context(), userID.String(), middleware.CurrentEmail(c), tier)
	if err != nil {
		if errors.Is(err, billing.ErrBillingProcessor) {
			slog.Error("checkout session creation failed", "user_id", userID.String(), "tier", string(tier), "error", err)
			return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{
				Error: true, Message: "Unable to create checkout session",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	return c.JSON(dto.CheckoutResponse{URL: url})
}
