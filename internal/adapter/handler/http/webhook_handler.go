package http

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"

	"github.com/subware/billing-service/internal/domain/gateway"
	stripegw "github.com/subware/billing-service/internal/infrastructure/gateway/stripe"
	"github.com/subware/billing-service/internal/usecase"
)

// WebhookHandler is the gateway event intake. It verifies the payload
// signature before any business logic runs, then dispatches over the
// closed event-kind set. Unknown kinds and untracked objects are
// acknowledged so the gateway stops redelivering them.
type WebhookHandler struct {
	logger           *zap.Logger
	webhookSecret    string
	webhookTolerance time.Duration
	webhooks         *usecase.WebhookService
}

func NewWebhookHandler(logger *zap.Logger, webhookSecret string, webhookTolerance time.Duration, webhooks *usecase.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		logger:           logger,
		webhookSecret:    webhookSecret,
		webhookTolerance: webhookTolerance,
		webhooks:         webhooks,
	}
}

func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		h.logger.Error("Error reading request body", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Error reading request body"})
	}

	sig := c.Request().Header.Get("Stripe-Signature")

	opts := webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	}
	if h.webhookTolerance > 0 {
		opts.Tolerance = h.webhookTolerance
	}

	event, err := webhook.ConstructEventWithOptions(body, sig, h.webhookSecret, opts)
	if err != nil {
		h.logger.Warn("Webhook signature verification failed",
			zap.Error(err))
		return c.JSON(http.StatusForbidden, echo.Map{
			"error": "Webhook signature verification failed",
		})
	}

	h.logger.Info("Webhook event received",
		zap.String("type", string(event.Type)),
		zap.String("id", event.ID))

	ctx := c.Request().Context()

	switch usecase.KindOf(string(event.Type)) {
	case usecase.EventCustomerSubscriptionUpdated:
		sub, ok := h.parseSubscription(event.Data.Raw)
		if !ok {
			return c.NoContent(http.StatusOK)
		}
		if err := h.webhooks.HandleSubscriptionUpdated(ctx, sub); err != nil {
			h.logger.Error("Failed to reconcile subscription update",
				zap.String("event_id", event.ID),
				zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reconciliation failed"})
		}

	case usecase.EventCustomerSubscriptionDeleted:
		sub, ok := h.parseSubscription(event.Data.Raw)
		if !ok {
			return c.NoContent(http.StatusOK)
		}
		if err := h.webhooks.HandleSubscriptionDeleted(ctx, sub); err != nil {
			h.logger.Error("Failed to reconcile subscription deletion",
				zap.String("event_id", event.ID),
				zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reconciliation failed"})
		}

	case usecase.EventCustomerUpdated:
		customerID, ok := h.parseCustomerID(event.Data.Raw)
		if !ok {
			return c.NoContent(http.StatusOK)
		}
		if err := h.webhooks.HandleCustomerUpdated(ctx, customerID); err != nil {
			h.logger.Error("Failed to reconcile customer update",
				zap.String("event_id", event.ID),
				zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reconciliation failed"})
		}

	case usecase.EventCustomerDeleted:
		customerID, ok := h.parseCustomerID(event.Data.Raw)
		if !ok {
			return c.NoContent(http.StatusOK)
		}
		if err := h.webhooks.HandleCustomerDeleted(ctx, customerID); err != nil {
			h.logger.Error("Failed to reconcile customer deletion",
				zap.String("event_id", event.ID),
				zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reconciliation failed"})
		}

	default:
		return c.NoContent(http.StatusOK)
	}

	return c.String(http.StatusOK, "Webhook Handled")
}

// parseSubscription decodes the event object into the domain projection.
// Malformed payloads are acknowledged as no-ops rather than retried.
func (h *WebhookHandler) parseSubscription(raw json.RawMessage) (*gateway.Subscription, bool) {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		h.logger.Warn("Malformed subscription event payload", zap.Error(err))
		return nil, false
	}
	return stripegw.ProjectSubscription(&sub), true
}

func (h *WebhookHandler) parseCustomerID(raw json.RawMessage) (string, bool) {
	var cust stripe.Customer
	if err := json.Unmarshal(raw, &cust); err != nil {
		h.logger.Warn("Malformed customer event payload", zap.Error(err))
		return "", false
	}
	return cust.ID, true
}
