package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	handlers "github.com/subware/billing-service/internal/adapter/handler/http"
	"github.com/subware/billing-service/internal/config"
	"github.com/subware/billing-service/internal/domain/gateway"
	"github.com/subware/billing-service/internal/usecase"
)

// stubPaymentGateway serves a single canned payment intent.
type stubPaymentGateway struct {
	gateway.Gateway
	intent *gateway.PaymentIntent
}

func (g stubPaymentGateway) GetPaymentIntent(ctx context.Context, id string) (*gateway.PaymentIntent, error) {
	return g.intent, nil
}

func newTestPaymentHandler(intent *gateway.PaymentIntent) *handlers.PaymentHandler {
	logger := zap.NewNop()
	customers := usecase.NewCustomerService(
		stubCustomerRepo{}, stubPaymentGateway{intent: intent}, config.BillingConfig{}, logger)
	return handlers.NewPaymentHandler(logger, customers)
}

func getPayment(t *testing.T, handler *handlers.PaymentHandler, target string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/payment/:id")
	c.SetParamNames("id")
	c.SetParamValues("pi_1")

	err := handler.GetPayment(c)
	assert.NoError(t, err)
	return rec
}

func TestPaymentHandler_GetPayment(t *testing.T) {
	intent := &gateway.PaymentIntent{
		ID:           "pi_1",
		Amount:       4200,
		Currency:     "usd",
		Status:       gateway.PaymentStatusRequiresAction,
		ClientSecret: "pi_1_secret",
	}

	t.Run("returns the payment with its client secret", func(t *testing.T) {
		handler := newTestPaymentHandler(intent)

		rec := getPayment(t, handler, "/payment/pi_1")

		assert.Equal(t, http.StatusOK, rec.Code)

		var body map[string]interface{}
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "pi_1", body["id"])
		assert.Equal(t, "pi_1_secret", body["client_secret"])
		assert.Equal(t, gateway.PaymentStatusRequiresAction, body["status"])
	})

	t.Run("redirect to the requesting host allowed", func(t *testing.T) {
		handler := newTestPaymentHandler(intent)

		rec := getPayment(t, handler, "/payment/pi_1?redirect=http://example.com/done")

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("redirect to a foreign host rejected", func(t *testing.T) {
		handler := newTestPaymentHandler(intent)

		rec := getPayment(t, handler, "/payment/pi_1?redirect=http://evil.example.org/phish")

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("relative redirect without a host rejected", func(t *testing.T) {
		handler := newTestPaymentHandler(intent)

		rec := getPayment(t, handler, "/payment/pi_1?redirect=/done")

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
