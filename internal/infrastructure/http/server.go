package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	handlers "github.com/subware/billing-service/internal/adapter/handler/http"
	"github.com/subware/billing-service/internal/config"
	"github.com/subware/billing-service/internal/infrastructure/database"
	"github.com/subware/billing-service/internal/middleware/auth"
	"github.com/subware/billing-service/internal/usecase"
)

type Server struct {
	config        *config.Config
	logger        *zap.Logger
	echo          *echo.Echo
	repos         *database.Repositories
	subscriptions *usecase.SubscriptionService
	customers     *usecase.CustomerService
	webhooks      *usecase.WebhookService
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	repos *database.Repositories,
	subscriptions *usecase.SubscriptionService,
	customers *usecase.CustomerService,
	webhooks *usecase.WebhookService,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &requestValidator{validate: validator.New()}

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.Service.ClientURL},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
	}))

	return &Server{
		config:        cfg,
		logger:        logger,
		echo:          e,
		repos:         repos,
		subscriptions: subscriptions,
		customers:     customers,
		webhooks:      webhooks,
	}
}

func (s *Server) Start() error {
	// Setup routes
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
		})
	})

	// Initialize handlers
	webhookHandler := handlers.NewWebhookHandler(
		s.logger,
		s.config.Billing.StripeWebhookSecret,
		s.config.Billing.WebhookTolerance,
		s.webhooks,
	)
	subscriptionHandler := handlers.NewSubscriptionHandler(s.logger, s.subscriptions, s.customers, s.repos.Customer)
	billingHandler := handlers.NewBillingHandler(s.logger, s.customers, s.repos.Customer)
	paymentHandler := handlers.NewPaymentHandler(s.logger, s.customers)

	// JWT middleware configuration
	jwtConfig := auth.JWTConfig{
		Secret: s.config.JWT.Secret,
		Logger: s.logger,
		SkipPaths: []string{
			"/health",
			"/webhook",
			"/payment",
		},
	}

	// API v1 routes
	v1 := s.echo.Group("/api/v1")

	// Protected routes (require JWT authentication)
	protected := v1.Group("", auth.JWTMiddleware(jwtConfig))

	// Subscriptions
	subscriptions := protected.Group("/subscriptions")
	subscriptions.POST("", subscriptionHandler.CreateSubscription)
	subscriptions.GET("/:name", subscriptionHandler.GetSubscription)
	subscriptions.PUT("/:name/plans", subscriptionHandler.SwapPlans)
	subscriptions.POST("/:name/plans", subscriptionHandler.AddPlan)
	subscriptions.DELETE("/:name/plans/:plan", subscriptionHandler.RemovePlan)
	subscriptions.PUT("/:name/quantity", subscriptionHandler.UpdateQuantity)
	subscriptions.DELETE("/:name", subscriptionHandler.CancelSubscription)
	subscriptions.POST("/:name/resume", subscriptionHandler.ResumeSubscription)
	subscriptions.PUT("/:name/trial", subscriptionHandler.ExtendTrial)

	// Billing
	billing := protected.Group("/billing")
	billing.GET("/payment-methods", billingHandler.ListPaymentMethods)
	billing.POST("/payment-methods", billingHandler.AddPaymentMethod)
	billing.DELETE("/payment-methods/:id", billingHandler.RemovePaymentMethod)
	billing.POST("/setup-intent", billingHandler.CreateSetupIntent)
	billing.GET("/invoices", billingHandler.ListInvoices)
	billing.GET("/invoices/upcoming", billingHandler.GetUpcomingInvoice)
	billing.GET("/invoices/:id", billingHandler.GetInvoice)
	billing.POST("/charges", billingHandler.Charge)
	billing.POST("/refunds", billingHandler.Refund)
	billing.POST("/portal", billingHandler.CreatePortalSession)

	// Payment confirmation page data (reached from gateway emails, no JWT)
	s.echo.GET("/payment/:id", paymentHandler.GetPayment)

	// Webhook route (outside API versioning)
	s.echo.POST("/webhook", webhookHandler.HandleWebhook)
}
