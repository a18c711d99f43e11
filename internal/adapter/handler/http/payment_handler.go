package http

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/subware/billing-service/internal/usecase"
)

// PaymentHandler serves the payment confirmation page data for payments
// that need additional customer action.
type PaymentHandler struct {
	logger    *zap.Logger
	customers *usecase.CustomerService
}

func NewPaymentHandler(logger *zap.Logger, customers *usecase.CustomerService) *PaymentHandler {
	return &PaymentHandler{
		logger:    logger,
		customers: customers,
	}
}

type paymentResponse struct {
	ID           string `json:"id"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
	ClientSecret string `json:"client_secret"`
	Redirect     string `json:"redirect,omitempty"`
}

// GetPayment returns the payment intent behind the given id. A redirect
// query parameter must point back at the requesting host; anything else
// is an open redirect and gets rejected.
func (h *PaymentHandler) GetPayment(c echo.Context) error {
	redirect := c.QueryParam("redirect")
	if redirect != "" {
		target, err := url.Parse(redirect)
		if err != nil || target.Host == "" || target.Host != c.Request().Host {
			h.logger.Warn("Rejected payment redirect",
				zap.String("redirect", redirect),
				zap.String("request_host", c.Request().Host))
			return c.JSON(http.StatusForbidden, echo.Map{
				"error": "Redirect host mismatch",
			})
		}
	}

	payment, err := h.customers.FindPayment(c.Request().Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("Failed to fetch payment", zap.Error(err))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Payment not found"})
	}

	return c.JSON(http.StatusOK, paymentResponse{
		ID:           payment.Intent.ID,
		Amount:       payment.Intent.Amount,
		Currency:     payment.Intent.Currency,
		Status:       payment.Intent.Status,
		ClientSecret: payment.Intent.ClientSecret,
		Redirect:     redirect,
	})
}
