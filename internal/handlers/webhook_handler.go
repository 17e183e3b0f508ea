package handlers

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/studyhall/studyhall-backend/internal/billing"
	"github.com/studyhall/studyhall-backend/internal/dto"
	"github.com/studyhall/studyhall-backend/internal/entitlement"
)

type WebhookHandler struct {
	secret     string
	client     *billing.CheckoutClient
	reconciler *entitlement.Reconciler
}

func NewWebhookHandler(secret string, client *billing.CheckoutClient, reconciler *entitlement.Reconciler) *WebhookHandler {
	return &WebhookHandler{
		secret:     strings.TrimSpace(secret),
		client:     client,
		reconciler: reconciler,
	}
}

// HandleStripe verifies the webhook signature, normalizes the event and
// hands it to the reconciler. A cache-clear failure after a successful store
// write is acknowledged (Stripe must not redeliver a correctly recorded
// event) but flagged as stale.
func (h *WebhookHandler) HandleStripe(c *fiber.Ctx) error {
	if h.secret == "" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
			Error: true, Message: "Webhook secret not configured",
		})
	}

	sigHeader := c.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Missing Stripe signature",
		})
	}

	event, err := webhook.ConstructEventWithOptions(c.Body(), sigHeader, h.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid Stripe signature",
		})
	}

	billingEvent, err := h.client.TranslateEvent(&event)
	if err != nil {
		slog.Error("webhook payload rejected", "event_id", event.ID, "type", string(event.Type), "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid webhook payload",
		})
	}
	if billingEvent == nil {
		slog.Info("webhook ignored", "event_id", event.ID, "type", string(event.Type))
		return c.JSON(dto.WebhookResponse{Received: true})
	}

	if err := h.reconciler.ApplyBillingEvent(c.Context(), billingEvent); err != nil {
		var clearErr *entitlement.CacheClearError
		if errors.As(err, &clearErr) {
			slog.Error("webhook applied but cache invalidation failed",
				"event_id", event.ID, "user_id", clearErr.UserID.String(), "categories", clearErr.Failed)
			return c.JSON(dto.WebhookResponse{Received: true, Stale: true})
		}
		slog.Error("webhook processing failed", "event_id", event.ID, "type", string(event.Type), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to process webhook event",
		})
	}

	slog.Info("webhook processed", "event_id", event.ID, "type", string(event.Type))
	return c.JSON(dto.WebhookResponse{Received: true})
}
