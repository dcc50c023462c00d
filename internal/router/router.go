package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"shopgate/internal/checkout"
	"shopgate/internal/config"
	"shopgate/internal/gateway"
	"shopgate/internal/handler"
	"shopgate/internal/middleware"
	"shopgate/internal/notify"
	"shopgate/internal/pkg/alert"
	"shopgate/internal/repository"
)

// Setup configures all routes for the Echo server.
func Setup(
	e *echo.Echo,
	db *gorm.DB,
	cfg *config.Config,
	gw *gateway.Client,
	alerter *alert.Notifier,
	notifyDeduper middleware.NotifyDeduper,
	logger *zap.Logger,
) {
	// Global middleware
	e.Use(echomw.Recover())
	e.Use(middleware.CORS())

	// Repositories
	orderRepo := repository.NewOrderRepository(db)
	productRepo := repository.NewProductRepository(db)

	// Services
	checkoutSvc := checkout.NewService(productRepo, orderRepo, gw, cfg.Server.PublicURL, logger)
	verifier := notify.NewVerifier(orderRepo, productRepo, gw, gw.Passphrase(), cfg.PayFast.Validate, logger)
	if alerter != nil {
		verifier.WithAlerter(alerter)
	}

	// Handlers
	checkoutHandler := handler.NewCheckoutHandler(checkoutSvc, logger)
	notifyHandler := handler.NewNotifyHandler(verifier, logger)
	ordersHandler := handler.NewOrdersHandler(orderRepo, logger)

	// Storefront routes
	e.POST("/api/checkout", checkoutHandler.Checkout)
	e.GET("/pay/:reference", checkoutHandler.PayForm)

	// Gateway callback routes
	paymentGroup := e.Group("/payment")
	paymentGroup.POST("/notify", notifyHandler.Notify, middleware.NotifyDedup(notifyDeduper))
	paymentGroup.GET("/return", checkoutHandler.ReturnPage)
	paymentGroup.GET("/cancel", checkoutHandler.CancelPage)

	// Admin API with token auth
	apiGroup := e.Group("/api")
	apiGroup.Use(middleware.APIAuth(cfg.API.Key))
	apiGroup.POST("/orders", ordersHandler.Handle)

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})
}
