package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/stockpulse/paybridge/api"
	"github.com/stockpulse/paybridge/cache"
	"github.com/stockpulse/paybridge/config"
	"github.com/stockpulse/paybridge/db"
	"github.com/stockpulse/paybridge/middleware"
	"github.com/stockpulse/paybridge/providers"
	"github.com/stockpulse/paybridge/services"
	"github.com/stockpulse/paybridge/stores"
	"github.com/stockpulse/paybridge/utils"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func printBanner() {
	fmt.Printf("%s%spaybridge - PayPal billing gateway%s\n\n", colorCyan, colorBold, colorReset)
}

func printStep(step, message string) {
	fmt.Printf("%s[%s]%s %s\n", colorBlue, step, colorReset, message)
}

func printSuccess(message string) {
	fmt.Printf("%s✓%s %s\n", colorGreen, colorReset, message)
}

func printWarning(message string) {
	fmt.Printf("%s⚠%s %s\n", colorYellow, colorReset, message)
}

func printError(message string) {
	fmt.Printf("%s✗%s %s\n", colorRed, colorReset, message)
}

func main() {
	printBanner()

	printStep("1/6", "Loading configuration...")
	cfg, err := config.LoadConfig()
	if err != nil {
		printError(fmt.Sprintf("Failed to load configuration: %v", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		printError(fmt.Sprintf("Configuration validation failed: %v", err))
		os.Exit(1)
	}
	utils.InitLogger(cfg.Logging.Level, cfg.Logging.Format)
	printSuccess("Configuration loaded")

	printStep("2/6", "Connecting to database...")
	database, err := db.Open(cfg)
	if err != nil {
		printError(fmt.Sprintf("Failed to connect to database: %v", err))
		os.Exit(1)
	}
	sqlDB, err := database.DB()
	if err != nil {
		printError(fmt.Sprintf("Failed to get database instance: %v", err))
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.Migrate(database); err != nil {
		printError(fmt.Sprintf("Failed to run migrations: %v", err))
		os.Exit(1)
	}
	printSuccess(fmt.Sprintf("Connected to PostgreSQL at %s:%d", cfg.Database.Host, cfg.Database.Port))

	printStep("3/6", "Connecting to Redis...")
	redisCache, err := cache.CreateRedisCache(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		printWarning(fmt.Sprintf("Failed to connect to Redis: %v (continuing without token cache)", err))
		redisCache = nil
	} else {
		defer redisCache.Close()
		printSuccess(fmt.Sprintf("Connected to Redis at %s:%d", cfg.Redis.Host, cfg.Redis.Port))
	}

	printStep("4/6", "Initializing PayPal provider...")
	var paypal *providers.PayPalProvider
	if redisCache != nil {
		paypal = providers.CreatePayPalProviderWithCache(
			cfg.PayPal.ClientID, cfg.PayPal.ClientSecret, cfg.PayPal.WebhookID, cfg.PayPal.BaseURL, redisCache)
	} else {
		paypal = providers.CreatePayPalProvider(
			cfg.PayPal.ClientID, cfg.PayPal.ClientSecret, cfg.PayPal.WebhookID, cfg.PayPal.BaseURL)
	}
	if cfg.PayPal.VerifyTimeout > 0 {
		paypal.SetVerifyTimeout(cfg.PayPal.VerifyTimeout)
	}
	printSuccess(fmt.Sprintf("PayPal provider ready (%s)", cfg.PayPal.BaseURL))

	printStep("5/6", "Initializing stores and services...")
	subscriptionStore := stores.CreateSubscriptionStore(database)
	planStore := stores.CreatePlanStore(database)
	paymentStore := stores.CreatePaymentStore(database)
	eventStore := stores.CreateProcessedEventStore(database)

	webhookService := services.CreateWebhookService(paypal, subscriptionStore, paymentStore, eventStore)
	billingService := services.CreateBillingService(paypal, planStore, subscriptionStore, paymentStore)
	printSuccess("Stores and services initialized")

	printStep("6/6", "Setting up HTTP server...")
	webhookHandler := api.CreateWebhookHandler(webhookService)
	billingHandler := api.CreateBillingHandler(billingService)
	healthHandler := api.CreateHealthHandler(database, redisCache)

	router := mux.NewRouter()
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.LoggingMiddleware)
	router.Use(middleware.RecoveryMiddleware)
	router.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))

	router.HandleFunc("/api/v1/health", healthHandler.HandleHealth).Methods(http.MethodGet)

	apiRouter := router.PathPrefix("/api").Subrouter()
	webhookHandler.RegisterRoutes(apiRouter)

	billingRouter := router.PathPrefix("/api").Subrouter()
	billingRouter.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	billingHandler.RegisterRoutes(billingRouter)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	printSuccess("HTTP server configured")

	fmt.Println()
	fmt.Printf("%sEnvironment:%s %s\n", colorBold, colorReset, cfg.Environment)
	fmt.Printf("%sWebhook endpoint:%s http://localhost:%s/api/paypal/webhook\n", colorBold, colorReset, cfg.Server.Port)
	fmt.Println()

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	printWarning("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		printError(fmt.Sprintf("Server forced to shutdown: %v", err))
		os.Exit(1)
	}

	printSuccess("Server stopped gracefully")
}
