package http_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	handlers "github.com/subware/billing-service/internal/adapter/handler/http"
	"github.com/subware/billing-service/internal/config"
	"github.com/subware/billing-service/internal/domain/model"
	"github.com/subware/billing-service/internal/domain/repository"
	"github.com/subware/billing-service/internal/usecase"
)

const testWebhookSecret = "whsec_test_secret"

// signedPayload builds a Stripe-Signature header for the payload, signed
// the way the gateway signs deliveries: HMAC-SHA256 over "timestamp.body".
func signedPayload(payload string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

// stubCustomerRepo knows no customers, so every event reads as concerning
// state this system does not track.
type stubCustomerRepo struct {
	repository.CustomerRepository
}

func (stubCustomerRepo) GetByStripeID(ctx context.Context, stripeID string) (*model.Customer, error) {
	return nil, nil
}

type stubSubscriptionRepo struct {
	repository.SubscriptionRepository
}

func newTestWebhookHandler() *handlers.WebhookHandler {
	logger := zap.NewNop()
	customers := usecase.NewCustomerService(stubCustomerRepo{}, nil, config.BillingConfig{}, logger)
	webhooks := usecase.NewWebhookService(
		stubSubscriptionRepo{}, stubCustomerRepo{}, customers,
		usecase.NewSubscriptionLocker(), logger)
	return handlers.NewWebhookHandler(logger, testWebhookSecret, 5*time.Minute, webhooks)
}

func postWebhook(t *testing.T, handler *handlers.WebhookHandler, payload, signature string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := handler.HandleWebhook(c)
	assert.NoError(t, err)
	return rec
}

func TestWebhookHandler_Signature(t *testing.T) {
	handler := newTestWebhookHandler()
	payload := `{"id":"evt_1","type":"customer.updated","data":{"object":{"id":"cus_1"}}}`

	t.Run("missing signature rejected", func(t *testing.T) {
		rec := postWebhook(t, handler, payload, "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		ts := time.Now().Unix()
		mac := hmac.New(sha256.New, []byte("whsec_wrong"))
		fmt.Fprintf(mac, "%d.%s", ts, payload)
		sig := fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))

		rec := postWebhook(t, handler, payload, sig)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("stale timestamp rejected", func(t *testing.T) {
		ts := time.Now().Add(-time.Hour).Unix()
		mac := hmac.New(sha256.New, []byte(testWebhookSecret))
		fmt.Fprintf(mac, "%d.%s", ts, payload)
		sig := fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))

		rec := postWebhook(t, handler, payload, sig)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("valid signature accepted", func(t *testing.T) {
		rec := postWebhook(t, handler, payload, signedPayload(payload))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestWebhookHandler_Dispatch(t *testing.T) {
	handler := newTestWebhookHandler()

	t.Run("unknown event kind acknowledged without handling", func(t *testing.T) {
		payload := `{"id":"evt_1","type":"invoice.payment_succeeded","data":{"object":{"id":"in_1"}}}`

		rec := postWebhook(t, handler, payload, signedPayload(payload))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Body.String())
	})

	t.Run("subscription event for untracked customer acknowledged", func(t *testing.T) {
		payload := `{"id":"evt_2","type":"customer.subscription.updated","data":{"object":{"id":"sub_1","customer":"cus_untracked","status":"active"}}}`

		rec := postWebhook(t, handler, payload, signedPayload(payload))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Webhook Handled", rec.Body.String())
	})

	t.Run("subscription deleted for untracked customer acknowledged", func(t *testing.T) {
		payload := `{"id":"evt_3","type":"customer.subscription.deleted","data":{"object":{"id":"sub_1","customer":"cus_untracked","status":"canceled"}}}`

		rec := postWebhook(t, handler, payload, signedPayload(payload))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Webhook Handled", rec.Body.String())
	})

	t.Run("customer deleted for untracked customer acknowledged", func(t *testing.T) {
		payload := `{"id":"evt_4","type":"customer.deleted","data":{"object":{"id":"cus_untracked"}}}`

		rec := postWebhook(t, handler, payload, signedPayload(payload))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Webhook Handled", rec.Body.String())
	})
}
