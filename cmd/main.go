package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/random"

	"fleetrent/internal/caching"
	"fleetrent/internal/events"
	"fleetrent/internal/handlers"
	"fleetrent/internal/jobs/background"
	"fleetrent/internal/middleware"
	"fleetrent/internal/repositories"
	"fleetrent/internal/services"
	"fleetrent/pkg/database"
)

const version = "1.0.0"

func envBool(name string, fallback bool) bool {
	value := os.Getenv(name)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Invalid %s value %q, using default %v", name, value, fallback)
		return fallback
	}
	return parsed
}

func envInt(name string, fallback int) int {
	value := os.Getenv(name)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid %s value %q, using default %d", name, value, fallback)
		return fallback
	}
	return parsed
}

func main() {
	// Database connection
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := database.NewPool(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// JWT configuration
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = random.String(32) // Generate random secret for development
		log.Printf("WARNING: Using generated JWT secret")
	}

	// Redis configuration
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := envInt("REDIS_DB", 0)

	// MinIO configuration
	minioEndpoint := os.Getenv("MINIO_ENDPOINT")
	if minioEndpoint == "" {
		minioEndpoint = "localhost:9000"
	}
	minioAccessKey := os.Getenv("MINIO_ACCESS_KEY")
	if minioAccessKey == "" {
		minioAccessKey = "minioadmin"
	}
	minioSecretKey := os.Getenv("MINIO_SECRET_KEY")
	if minioSecretKey == "" {
		minioSecretKey = "minioadmin"
	}
	agreementBucket := os.Getenv("AGREEMENT_BUCKET")
	if agreementBucket == "" {
		agreementBucket = "rental-agreements"
	}

	// Billing policy
	releasePromoOnCancel := envBool("RELEASE_PROMO_ON_CANCEL", true)
	revertOverdueOnDueChange := envBool("REVERT_OVERDUE_ON_DUE_CHANGE", false)
	invoiceTermDays := envInt("INVOICE_TERM_DAYS", 14)

	// Object storage
	documentSvc, err := services.NewDocumentService(minioEndpoint, minioAccessKey, minioSecretKey, envBool("MINIO_USE_SSL", false))
	if err != nil {
		log.Fatalf("Failed to initialize document service: %v", err)
	}
	if err := documentSvc.EnsureBucketExists(context.Background(), agreementBucket); err != nil {
		log.Printf("WARNING: agreement bucket check failed: %v", err)
	}

	// Repositories
	orderRepo := repositories.NewRentalOrderRepo(pool)
	historyRepo := repositories.NewRentalStatusHistoryRepo(pool)
	promoRepo := repositories.NewPromotionRepo(pool)
	invoiceRepo := repositories.NewInvoiceRepo(pool)
	paymentRepo := repositories.NewPaymentRepo(pool)
	vehicleRepo := repositories.NewVehicleRepo(pool)
	customerRepo := repositories.NewCustomerRepo(pool)

	// Cache and events
	cacheSvc := caching.NewRedisCacheService(redisAddr, redisPassword, redisDB)
	publisher := events.NewRedisPublisher(redisAddr, redisPassword, redisDB)

	// Services
	promoSvc := services.NewPromotionService(promoRepo, cacheSvc)
	pricingSvc := services.NewPricingService(promoSvc)
	vehicleSvc := services.NewVehicleService(vehicleRepo, cacheSvc)
	rentalSvc := services.NewRentalService(pool, orderRepo, historyRepo, customerRepo, vehicleSvc, pricingSvc, promoSvc, publisher, releasePromoOnCancel)
	invoiceSvc := services.NewInvoiceService(pool, invoiceRepo, paymentRepo, orderRepo, historyRepo, invoiceTermDays, revertOverdueOnDueChange)
	paymentSvc := services.NewPaymentService(pool, paymentRepo, invoiceRepo)

	// Background jobs
	scheduler := background.NewJobScheduler(invoiceSvc, rentalSvc, cacheSvc)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Printf("Failed to stop scheduler: %v", err)
		}
	}()

	// Handlers
	rentalHandlers := handlers.NewRentalOrderHandlers(rentalSvc, documentSvc, agreementBucket)
	quoteHandlers := handlers.NewQuoteHandlers(pricingSvc, vehicleSvc)
	invoiceHandlers := handlers.NewInvoiceHandlers(invoiceSvc)
	paymentHandlers := handlers.NewPaymentHandlers(paymentSvc)
	promotionHandlers := handlers.NewPromotionHandlers(promoSvc)
	vehicleHandlers := handlers.NewVehicleHandlers(vehicleSvc)
	customerHandlers := handlers.NewCustomerHandlers(customerRepo)
	healthHandlers := handlers.NewHealthHandlers(pool, cacheSvc, scheduler)

	// Echo instance
	e := echo.New()

	// Global middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())

	// Health endpoints (no auth required)
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)
	e.GET("/health/live", healthHandlers.LivenessCheck)

	// API routes
	versionMiddleware := middleware.NewVersionMiddleware()
	v1 := versionMiddleware.VersionRoute(e, "v1")

	// Protected routes (require JWT)
	protected := v1.Group("")
	protected.Use(middleware.JWTMiddleware(jwtSecret))

	// Quote routes
	protected.POST("/quotes", quoteHandlers.CreateQuote)

	// Rental order routes
	protected.GET("/rental-orders", rentalHandlers.ListRentalOrders)
	protected.POST("/rental-orders", rentalHandlers.CreateRentalOrder)
	protected.GET("/rental-orders/search", rentalHandlers.SearchRentalOrders)
	protected.GET("/rental-orders/:id", rentalHandlers.GetRentalOrder)
	protected.PUT("/rental-orders/:id", rentalHandlers.UpdateRentalOrder)
	protected.DELETE("/rental-orders/:id", rentalHandlers.DeleteRentalOrder)
	protected.POST("/rental-orders/:id/confirm", rentalHandlers.ConfirmRentalOrder)
	protected.POST("/rental-orders/:id/pickup", rentalHandlers.PickupRentalOrder)
	protected.POST("/rental-orders/:id/return", rentalHandlers.ReturnRentalOrder)
	protected.POST("/rental-orders/:id/cancel", rentalHandlers.CancelRentalOrder)
	protected.GET("/rental-orders/:id/history", rentalHandlers.GetRentalOrderHistory)
	protected.POST("/rental-orders/:id/agreement", rentalHandlers.UploadAgreement)
	protected.GET("/rental-orders/:id/agreement", rentalHandlers.GetAgreementURL)
	protected.POST("/rental-orders/:id/invoice", invoiceHandlers.GenerateInvoice)
	protected.GET("/rental-orders/:id/invoice", invoiceHandlers.GetInvoiceForOrder)

	// Invoice routes
	protected.GET("/invoices", invoiceHandlers.ListInvoices)
	protected.GET("/invoices/:id", invoiceHandlers.GetInvoice)
	protected.POST("/invoices/:id/cancel", invoiceHandlers.CancelInvoice)
	protected.PUT("/invoices/:id/due-date", invoiceHandlers.AmendDueDate)
	protected.POST("/invoices/refresh-overdue", invoiceHandlers.RefreshOverdue)

	// Payment routes
	protected.POST("/invoices/:id/payments", paymentHandlers.CreatePayment)
	protected.GET("/invoices/:id/payments", paymentHandlers.ListPayments)
	protected.GET("/payments/:id", paymentHandlers.GetPayment)
	protected.POST("/payments/:id/void", paymentHandlers.VoidPayment)

	// Promotion routes
	protected.GET("/promotions", promotionHandlers.ListPromotions)
	protected.POST("/promotions", promotionHandlers.CreatePromotion)
	protected.POST("/promotions/validate", promotionHandlers.ValidatePromotion)
	protected.GET("/promotions/:id", promotionHandlers.GetPromotion)
	protected.PUT("/promotions/:id", promotionHandlers.UpdatePromotion)

	// Vehicle routes
	protected.GET("/vehicles", vehicleHandlers.ListVehicles)
	protected.GET("/vehicles/:id", vehicleHandlers.GetVehicle)
	protected.GET("/vehicles/:id/history", vehicleHandlers.GetVehicleHistory)

	// Customer routes
	protected.GET("/customers", customerHandlers.ListCustomers)
	protected.POST("/customers", customerHandlers.CreateCustomer)
	protected.GET("/customers/:id", customerHandlers.GetCustomer)

	// Reports
	protected.GET("/reports/receivables", invoiceHandlers.GetReceivablesSummary)

	// Start server
	port := envInt("PORT", 8080)
	log.Printf("Fleetrent server v%s (API %s) starting on port %d", version, versionMiddleware.GetCurrentVersion(), port)

	e.Logger.Fatal(e.Start(fmt.Sprintf(":%d", port)))
}
