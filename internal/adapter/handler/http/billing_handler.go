package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domainerrors "github.com/subware/billing-service/internal/domain/errors"
	"github.com/subware/billing-service/internal/domain/model"
	"github.com/subware/billing-service/internal/domain/repository"
	"github.com/subware/billing-service/internal/middleware/auth"
	"github.com/subware/billing-service/internal/usecase"
)

// BillingHandler exposes customer-level billing: payment methods,
// invoices, one-off charges, refunds and the billing portal.
type BillingHandler struct {
	logger       *zap.Logger
	customers    *usecase.CustomerService
	customerRepo repository.CustomerRepository
}

func NewBillingHandler(
	logger *zap.Logger,
	customers *usecase.CustomerService,
	customerRepo repository.CustomerRepository,
) *BillingHandler {
	return &BillingHandler{
		logger:       logger,
		customers:    customers,
		customerRepo: customerRepo,
	}
}

func (h *BillingHandler) loadCustomer(c echo.Context) (*model.Customer, error) {
	customerID, err := auth.GetCustomerID(c)
	if err != nil {
		return nil, c.JSON(http.StatusUnauthorized, echo.Map{"error": "Authentication required"})
	}

	customer, err := h.customerRepo.GetByID(c.Request().Context(), customerID)
	if err != nil {
		h.logger.Error("Failed to get customer", zap.Error(err))
		return nil, c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get customer"})
	}
	if customer == nil {
		return nil, c.JSON(http.StatusNotFound, echo.Map{"error": "Customer not found"})
	}
	return customer, nil
}

// ListPaymentMethods lists the customer's card payment methods.
func (h *BillingHandler) ListPaymentMethods(c echo.Context) error {
	customer, err := h.loadCustomer(c)
	if err != nil {
		return err
	}

	methods, err := h.customers.PaymentMethods(c.Request().Context(), customer, 0)
	if err != nil {
		return h.mapBillingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"payment_methods": methods})
}

type paymentMethodRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required"`
	Default       bool   `json:"default"`
}

// AddPaymentMethod attaches a payment method, optionally making it the
// default.
func (h *BillingHandler) AddPaymentMethod(c echo.Context) error {
	customer, err := h.loadCustomer(c)
	if err != nil {
		return err
	}

	var req paymentMethodRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx := c.Request().Context()
	if req.Default {
		method, err := h.customers.UpdateDefaultPaymentMethod(ctx, customer, req.PaymentMethod)
		if err != nil {
			return h.mapBillingError(c, err)
		}
		return c.JSON(http.StatusOK, method)
	}

	method, err := h.customers.AddPaymentMethod(ctx, customer, req.PaymentMethod)
	if err != nil {
		return h.mapBillingError(c, err)
	}
	return c.JSON(http.StatusOK, method)
}

// RemovePaymentMethod detaches a payment method.
func (h *BillingHandler) RemovePaymentMethod(c echo.Context) error {
	customer, err := h.loadCustomer(c)
	if err != nil {
		return err
	}

	if err := h.customers.RemovePaymentMethod(c.Request().Context(), customer, c.Param("id")); err != nil {
		return h.mapBillingError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CreateSetupIntent opens a setup intent for collecting a new payment
// method.
func (h *BillingHandler) CreateSetupIntent(c echo.Context) error {
	customer, err := h.loadCustomer(c)
	if err != nil {
		return err
	}

	intent, err := h.customers.CreateSetupIntent(c.Request().Context(), customer)
	if err != nil {
		return h.mapBillingError(c, err)
	}
	return c.JSON(http.StatusOK, intent)
}

// ListInvoices lists the customer's invoices.
func (h *BillingHandler) ListInvoices(c echo.Context) error {
	customer, err := h.loadCustomer(c)
	if err != nil {
		return err
	}

	invoices, err := h.customers.Invoices(c.Request().Context(), customer, 0)
	if err != nil {
		return h.mapBillingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"invoices": invoices})
}

// GetInvoice returns one invoice after verifying ownership.
func (h *BillingHandler) GetInvoice(c echo.Context) error {
	customer, err := h.loadCustomer(c)
	if err != nil {
		return err
	}

	invoice, err := h.customers.FindInvoice(c.Request().Context(), customer, c.Param("id"))
	if err != nil {
		return h.mapBillingError(c, err)
	}
	if invoice == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Invoice not found"})
	}
	return c.JSON(http.StatusOK, invoice)
}

// GetUpcomingInvoice previews the customer's next invoice.
func (h *BillingHandler) GetUpcomingInvoice(c echo.Context) error {
	customer, err := h.loadCustomer(c)
	if err != nil {
		return err
	}

	invoice, err := h.customers.UpcomingInvoice(c.Request().Context(), customer)
	if err != nil {
		return h.mapBillingError(c, err)
	}
	if invoice == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "No upcoming invoice"})
	}
	return c.JSON(http.StatusOK, invoice)
}

type chargeRequest struct {
	Amount        int64  `json:"amount" validate:"required,min=1"`
	PaymentMethod string `json:"payment_method" validate:"required"`
}

// Charge performs a one-off charge against the given payment method.
func (h *BillingHandler) Charge(c echo.Context) error {
	customer, err := h.loadCustomer(c)
	if err != nil {
		return err
	}

	var req chargeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	payment, err := h.customers.Charge(c.Request().Context(), customer, req.Amount, req.PaymentMethod)
	if err != nil {
		if incomplete, ok := domainerrors.AsIncompletePayment(err); ok {
			return c.JSON(http.StatusPaymentRequired, echo.Map{
				"payment_id":     incomplete.Payment.ID,
				"payment_status": incomplete.Payment.Status,
				"client_secret":  incomplete.Payment.ClientSecret,
			})
		}
		return h.mapBillingError(c, err)
	}
	return c.JSON(http.StatusOK, payment.Intent)
}

type refundRequest struct {
	PaymentID string `json:"payment_id" validate:"required"`
}

// Refund refunds a previous charge.
func (h *BillingHandler) Refund(c echo.Context) error {
	if _, err := h.loadCustomer(c); err != nil {
		return err
	}

	var req refundRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	refund, err := h.customers.Refund(c.Request().Context(), req.PaymentID)
	if err != nil {
		return h.mapBillingError(c, err)
	}
	return c.JSON(http.StatusOK, refund)
}

type portalRequest struct {
	ReturnURL string `json:"return_url"`
}

// CreatePortalSession opens a billing portal session for the customer.
func (h *BillingHandler) CreatePortalSession(c echo.Context) error {
	customer, err := h.loadCustomer(c)
	if err != nil {
		return err
	}

	var req portalRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}

	url, err := h.customers.BillingPortalURL(c.Request().Context(), customer, req.ReturnURL)
	if err != nil {
		return h.mapBillingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"url": url})
}

func (h *BillingHandler) mapBillingError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domainerrors.ErrCustomerNotCreated),
		errors.Is(err, domainerrors.ErrCustomerAlreadyCreated):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	case errors.Is(err, domainerrors.ErrInvalidInvoiceOwner),
		errors.Is(err, domainerrors.ErrInvalidPaymentMethodOwner):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	default:
		h.logger.Error("Billing operation failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Billing operation failed"})
	}
}
