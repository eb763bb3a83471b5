package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/solutions224/marketpay/internal/alerts"
	"github.com/solutions224/marketpay/internal/auth"
	"github.com/solutions224/marketpay/internal/catalog"
	"github.com/solutions224/marketpay/internal/config"
	"github.com/solutions224/marketpay/internal/db"
	"github.com/solutions224/marketpay/internal/escrow"
	"github.com/solutions224/marketpay/internal/gateway"
	"github.com/solutions224/marketpay/internal/metrics"
	mware "github.com/solutions224/marketpay/internal/middleware"
	"github.com/solutions224/marketpay/internal/outbox"
	"github.com/solutions224/marketpay/internal/payments"
	"github.com/solutions224/marketpay/internal/wallet"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db.Init(cfg.Database)
	alerts.Init(cfg.Redis.Addr)
	defer alerts.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Outbox dispatcher: RabbitMQ when a broker is configured, structured
	// logs otherwise.
	var publisher outbox.Publisher = outbox.NewLogPublisher(logger)
	if cfg.RabbitMQ.URL != "" {
		rabbit, err := outbox.NewRabbitPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			log.Fatalf("rabbitmq: %v", err)
		}
		defer rabbit.Close()
		publisher = rabbit
	}
	worker := outbox.NewWorker(outbox.NewPgStore(db.Conn), publisher, 2*time.Second, logger)
	go worker.Run(ctx)

	sweeper := payments.NewSweeper(db.Conn, cfg.Sweep.Interval, cfg.Sweep.Overdue, logger)
	go sweeper.Run(ctx)

	walletHandler := wallet.NewHandler(wallet.NewPgStore(db.Conn))
	escrowHandler := escrow.NewHandler(escrow.NewPgStore(db.Conn))
	catalogHandler := catalog.NewHandler(catalog.NewPgStore(db.Conn))
	paymentStore := payments.NewPgStore(db.Conn)
	paymentHandler := payments.NewHandler(paymentStore)
	webhookHandler := gateway.NewWebhookHandler(db.Conn, paymentStore, logger)
	checkoutHandler := gateway.NewCheckoutHandler(paymentStore, gateway.NewClient(cfg.Gateway))

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(metrics.Middleware)

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "service": "marketpay"})
	})
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/ready", func(c echo.Context) error {
		if err := db.Conn.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "db unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})
	e.GET("/metrics", metrics.Handler())

	// Public routes
	authGroup := e.Group("/auth")
	authGroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(20)))
	authGroup.POST("/signup", auth.Signup)
	authGroup.POST("/login", auth.Login)

	e.GET("/api/categories", catalogHandler.Categories)
	e.GET("/api/products", catalogHandler.Products)

	e.POST("/api/payments/create", paymentHandler.Create)
	e.GET("/api/payments/:id", paymentHandler.Get)
	e.POST("/api/payments/confirm", paymentHandler.Confirm)
	e.POST("/api/payments/:id/checkout", checkoutHandler.Checkout)
	e.GET("/api/payments/:id/status", checkoutHandler.Status)

	e.POST("/webhooks/provider", webhookHandler.Handle)

	// Protected routes
	api := e.Group("")
	api.Use(mware.JWTMiddleware)

	api.GET("/auth/me", auth.Me)

	api.POST("/wallet/initialize", walletHandler.Initialize)
	api.GET("/wallet/balance", walletHandler.Balance)
	api.GET("/wallet/transactions", walletHandler.Transactions)
	api.POST("/wallet/transfer", walletHandler.Transfer)

	api.POST("/escrow", escrowHandler.Create)
	api.GET("/escrow/:id", escrowHandler.Get)
	api.POST("/escrow/:id/release", escrowHandler.Release)
	api.POST("/escrow/:id/refund", escrowHandler.Refund)
	api.POST("/escrow/:id/dispute", escrowHandler.Dispute)

	api.POST("/api/products", catalogHandler.CreateProduct, mware.RequireRoles("vendor"))

	api.GET("/notifications", alerts.ListNotifications)
	api.POST("/notifications/:id/read", alerts.MarkNotificationRead)

	// Admin routes
	admin := e.Group("/admin")
	admin.Use(mware.JWTMiddleware)
	admin.Use(mware.AdminGuard)

	admin.POST("/escrow/:id/resolve", escrowHandler.Resolve)
	admin.POST("/wallets/:id/block", walletHandler.AdminBlock)
	admin.POST("/wallets/:id/unblock", walletHandler.AdminUnblock)
	admin.GET("/transactions", walletHandler.AdminTransactions)

	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", slog.String("error", err.Error()))
	}
}
