package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domainerrors "github.com/subware/billing-service/internal/domain/errors"
	"github.com/subware/billing-service/internal/domain/model"
	"github.com/subware/billing-service/internal/domain/repository"
	"github.com/subware/billing-service/internal/middleware/auth"
	"github.com/subware/billing-service/internal/usecase"
)

// SubscriptionHandler exposes the subscription lifecycle over REST.
type SubscriptionHandler struct {
	logger        *zap.Logger
	subscriptions *usecase.SubscriptionService
	customers     *usecase.CustomerService
	customerRepo  repository.CustomerRepository
}

func NewSubscriptionHandler(
	logger *zap.Logger,
	subscriptions *usecase.SubscriptionService,
	customers *usecase.CustomerService,
	customerRepo repository.CustomerRepository,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		logger:        logger,
		subscriptions: subscriptions,
		customers:     customers,
		customerRepo:  customerRepo,
	}
}

func (h *SubscriptionHandler) loadCustomer(c echo.Context) (*model.Customer, error) {
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

type createSubscriptionRequest struct {
	Name           string            `json:"name" validate:"required"`
	Plans          []planRequest     `json:"plans" validate:"required,min=1,dive"`
	PaymentMethod  string            `json:"payment_method"`
	TrialDays      int               `json:"trial_days"`
	SkipTrial      bool              `json:"skip_trial"`
	Coupon         string            `json:"coupon"`
	Metadata       map[string]string `json:"metadata"`
	NoProrate      bool              `json:"no_prorate"`
	ErrorOnFailure bool              `json:"error_on_failure"`
}

type planRequest struct {
	Plan     string `json:"plan" validate:"required"`
	Quantity int64  `json:"quantity" validate:"min=0"`
}

// CreateSubscription builds and submits a new subscription for the
// authenticated customer.
func (h *SubscriptionHandler) CreateSubscription(c echo.Context) error {
	customer, err := h.loadCustomer(c)
	if err != nil {
		return err
	}

	var req createSubscriptionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	builder := h.subscriptions.NewSubscription(h.customers, customer, req.Name)
	for _, plan := range req.Plans {
		quantity := plan.Quantity
		if quantity == 0 {
			quantity = 1
		}
		builder.Plan(plan.Plan, quantity)
	}
	if req.TrialDays > 0 {
		builder.TrialDays(req.TrialDays)
	}
	if req.SkipTrial {
		builder.SkipTrial()
	}
	if req.Coupon != "" {
		builder.WithCoupon(req.Coupon)
	}
	if len(req.Metadata) > 0 {
		builder.WithMetadata(req.Metadata)
	}
	if req.NoProrate {
		builder.NoProrate()
	}
	if req.ErrorOnFailure {
		builder.ErrorIfPaymentFails()
	}

	sub, err := builder.Create(c.Request().Context(), req.PaymentMethod)
	if err != nil {
		if payment, ok := domainerrors.AsIncompletePayment(err); ok {
			// The subscription exists; the first payment needs the
			// customer's involvement to settle.
			return c.JSON(http.StatusPaymentRequired, echo.Map{
				"subscription":   sub,
				"payment_id":     payment.Payment.ID,
				"payment_status": payment.Payment.Status,
				"client_secret":  payment.Payment.ClientSecret,
			})
		}
		h.logger.Error("Failed to create subscription", zap.Error(err))
		return h.mapDomainError(c, err)
	}

	return c.JSON(http.StatusCreated, sub)
}

// GetSubscription returns the customer's newest subscription with the
// given name along with the derived lifecycle flags.
func (h *SubscriptionHandler) GetSubscription(c echo.Context) error {
	customerID, err := auth.GetCustomerID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Authentication required"})
	}

	sub, err := h.subscriptions.Subscription(c.Request().Context(), customerID, c.Param("name"))
	if err != nil {
		h.logger.Error("Failed to get subscription", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get subscription"})
	}
	if sub == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Subscription not found"})
	}

	deactivatePastDue := h.subscriptions.DeactivatePastDue()
	return c.JSON(http.StatusOK, echo.Map{
		"subscription":    sub,
		"active":          sub.Active(deactivatePastDue),
		"on_trial":        sub.OnTrial(),
		"on_grace_period": sub.OnGracePeriod(),
		"recurring":       sub.Recurring(),
		"ended":           sub.Ended(),
	})
}

type swapRequest struct {
	Plans         []string `json:"plans" validate:"required,min=1"`
	Invoice       bool     `json:"invoice"`
	NoProrate     bool     `json:"no_prorate"`
	PendingIfFail bool     `json:"pending_if_fail"`
}

// SwapPlans replaces the subscription's plan set.
func (h *SubscriptionHandler) SwapPlans(c echo.Context) error {
	sub, err := h.loadSubscription(c)
	if err != nil {
		return err
	}

	var req swapRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	change := h.subscriptions.Change(sub)
	if req.NoProrate {
		change.NoProrate()
	}
	if req.PendingIfFail {
		change.PendingIfPaymentFails()
	}

	if req.Invoice {
		err = change.SwapAndInvoice(c.Request().Context(), req.Plans...)
	} else {
		err = change.Swap(c.Request().Context(), req.Plans...)
	}
	if err != nil {
		if payment, ok := domainerrors.AsIncompletePayment(err); ok {
			return c.JSON(http.StatusPaymentRequired, echo.Map{
				"subscription":   sub,
				"payment_id":     payment.Payment.ID,
				"payment_status": payment.Payment.Status,
				"client_secret":  payment.Payment.ClientSecret,
			})
		}
		return h.mapDomainError(c, err)
	}

	return c.JSON(http.StatusOK, sub)
}

type quantityRequest struct {
	Quantity int64  `json:"quantity" validate:"min=1"`
	Plan     string `json:"plan"`
}

// UpdateQuantity sets the subscription or plan item quantity.
func (h *SubscriptionHandler) UpdateQuantity(c echo.Context) error {
	sub, err := h.loadSubscription(c)
	if err != nil {
		return err
	}

	var req quantityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	if err := h.subscriptions.Change(sub).UpdateQuantity(c.Request().Context(), req.Quantity, req.Plan); err != nil {
		return h.mapDomainError(c, err)
	}
	return c.JSON(http.StatusOK, sub)
}

type addPlanRequest struct {
	Plan     string `json:"plan" validate:"required"`
	Quantity int64  `json:"quantity"`
	Invoice  bool   `json:"invoice"`
}

// AddPlan attaches a plan to the subscription.
func (h *SubscriptionHandler) AddPlan(c echo.Context) error {
	sub, err := h.loadSubscription(c)
	if err != nil {
		return err
	}

	var req addPlanRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	change := h.subscriptions.Change(sub)
	if req.Invoice {
		err = change.AddPlanAndInvoice(c.Request().Context(), req.Plan, req.Quantity)
	} else {
		err = change.AddPlan(c.Request().Context(), req.Plan, req.Quantity)
	}
	if err != nil {
		return h.mapDomainError(c, err)
	}
	return c.JSON(http.StatusOK, sub)
}

// RemovePlan detaches a plan from the subscription.
func (h *SubscriptionHandler) RemovePlan(c echo.Context) error {
	sub, err := h.loadSubscription(c)
	if err != nil {
		return err
	}

	if err := h.subscriptions.Change(sub).RemovePlan(c.Request().Context(), c.Param("plan")); err != nil {
		return h.mapDomainError(c, err)
	}
	return c.JSON(http.StatusOK, sub)
}

type cancelRequest struct {
	Now     bool `json:"now"`
	Invoice bool `json:"invoice"`
}

// CancelSubscription cancels at period end, or immediately when asked.
func (h *SubscriptionHandler) CancelSubscription(c echo.Context) error {
	sub, err := h.loadSubscription(c)
	if err != nil {
		return err
	}

	var req cancelRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}

	change := h.subscriptions.Change(sub)
	ctx := c.Request().Context()
	switch {
	case req.Now && req.Invoice:
		err = change.CancelNowAndInvoice(ctx)
	case req.Now:
		err = change.CancelNow(ctx)
	default:
		err = change.Cancel(ctx)
	}
	if err != nil {
		return h.mapDomainError(c, err)
	}
	return c.JSON(http.StatusOK, sub)
}

// ResumeSubscription lifts a pending cancellation during the grace
// period.
func (h *SubscriptionHandler) ResumeSubscription(c echo.Context) error {
	sub, err := h.loadSubscription(c)
	if err != nil {
		return err
	}

	if err := h.subscriptions.Change(sub).Resume(c.Request().Context()); err != nil {
		return h.mapDomainError(c, err)
	}
	return c.JSON(http.StatusOK, sub)
}

type extendTrialRequest struct {
	TrialEndsAt time.Time `json:"trial_ends_at" validate:"required"`
}

// ExtendTrial pushes the trial end to a future date.
func (h *SubscriptionHandler) ExtendTrial(c echo.Context) error {
	sub, err := h.loadSubscription(c)
	if err != nil {
		return err
	}

	var req extendTrialRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	if err := h.subscriptions.Change(sub).ExtendTrial(c.Request().Context(), req.TrialEndsAt); err != nil {
		return h.mapDomainError(c, err)
	}
	return c.JSON(http.StatusOK, sub)
}

func (h *SubscriptionHandler) loadSubscription(c echo.Context) (*model.Subscription, error) {
	customerID, err := auth.GetCustomerID(c)
	if err != nil {
		return nil, c.JSON(http.StatusUnauthorized, echo.Map{"error": "Authentication required"})
	}

	sub, err := h.subscriptions.Subscription(c.Request().Context(), customerID, c.Param("name"))
	if err != nil {
		h.logger.Error("Failed to get subscription", zap.Error(err))
		return nil, c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get subscription"})
	}
	if sub == nil {
		return nil, c.JSON(http.StatusNotFound, echo.Map{"error": "Subscription not found"})
	}
	return sub, nil
}

// mapDomainError converts guard violations into 4xx responses and leaves
// everything else as a 500.
func (h *SubscriptionHandler) mapDomainError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domainerrors.ErrSubscriptionIncomplete),
		errors.Is(err, domainerrors.ErrDuplicatePlan),
		errors.Is(err, domainerrors.ErrCannotDeleteLastPlan),
		errors.Is(err, domainerrors.ErrPlanRequired),
		errors.Is(err, domainerrors.ErrNoPlansProvided),
		errors.Is(err, domainerrors.ErrNotOnGracePeriod),
		errors.Is(err, domainerrors.ErrTrialDateNotInFuture):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	case errors.Is(err, domainerrors.ErrPlanNotFound),
		errors.Is(err, domainerrors.ErrSubscriptionNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	default:
		h.logger.Error("Subscription operation failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Subscription operation failed"})
	}
}
