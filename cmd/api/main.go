package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"farmstand/internal/archive"
	"farmstand/internal/cart"
	"farmstand/internal/config"
	"farmstand/internal/database"
	"farmstand/internal/handler"
	"farmstand/internal/payment"
	"farmstand/internal/repository"
	"farmstand/internal/router"
	"farmstand/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting farmstand API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	// Initialize repositories
	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)

	// Initialize cart session store
	cartStore, err := cart.NewRedisStore(
		ctx,
		cfg.Redis.Addr,
		cfg.Redis.Password,
		cfg.Redis.DB,
		time.Duration(cfg.Redis.CartTTL)*time.Second,
		logger,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize cart store: %w", err)
	}

	// Initialize payment processor client and shipment notifier
	processor := payment.NewClient(
		cfg.Payment.BaseURL,
		cfg.Payment.APIKey,
		time.Duration(cfg.Payment.TimeoutSecs)*time.Second,
		logger,
	)
	notifier := payment.NewNotifier(processor, logger)

	// Initialize webhook event archiver with a no-op fallback
	var archiver archive.Archiver
	if cfg.Archive.Enabled {
		archiver, err = archive.NewS3Archiver(ctx, cfg.Archive.Bucket, cfg.Archive.Region, cfg.Archive.Prefix, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise webhook archiver, events will not be archived")
			archiver = archive.NewNopArchiver()
		}
	} else {
		archiver = archive.NewNopArchiver()
		logger.Info().Msg("webhook event archival disabled")
	}

	// Initialize services
	productService := service.NewProductService(productRepo, logger)
	checkoutService := service.NewCheckoutService(
		service.CheckoutConfig{
			ShippingFeeCents: cfg.Checkout.ShippingFeeCents,
			SuccessURL:       cfg.Payment.SuccessURL,
			CancelURL:        cfg.Payment.CancelURL,
		},
		cartStore,
		orderRepo,
		productRepo,
		processor,
		logger,
	)
	orderService := service.NewOrderService(orderRepo, notifier, logger)

	// Initialize HTTP handlers
	productHandler := handler.NewProductHandler(productService, logger)
	cartHandler := handler.NewCartHandler(cartStore, productService, logger)
	checkoutHandler := handler.NewCheckoutHandler(checkoutService, logger)
	orderHandler := handler.NewOrderHandler(orderService, logger)
	webhookHandler := handler.NewWebhookHandler(orderService, archiver, cfg.Payment.WebhookSecret, logger)

	// Initialize router
	mux := router.New(
		productHandler,
		cartHandler,
		checkoutHandler,
		orderHandler,
		webhookHandler,
		cfg.Auth.APIKey,
		logger,
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}
