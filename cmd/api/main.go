package main

import (
	"context"
	"os"

	_ "github.com/SpaceKap/zervtek-crm-sub003/api/swagger" // swagger docs
	"github.com/SpaceKap/zervtek-crm-sub003/internal/cache"
	"github.com/SpaceKap/zervtek-crm-sub003/internal/database"
	"github.com/SpaceKap/zervtek-crm-sub003/internal/handler"
	"github.com/SpaceKap/zervtek-crm-sub003/internal/logger"
	"github.com/SpaceKap/zervtek-crm-sub003/internal/middleware"
	"github.com/SpaceKap/zervtek-crm-sub003/internal/repository"
	"github.com/SpaceKap/zervtek-crm-sub003/internal/service"
	"github.com/SpaceKap/zervtek-crm-sub003/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Vehicle Export Ledger API
// @version         1.0
// @description     Financial ledger and cost-allocation API for a vehicle export CRM.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Setup reads LOG_LEVEL/LOG_FORMAT, so the env file loads first and the
	// load outcome is logged only once the logger is configured.
	envErr := godotenv.Load("configs/.env")
	logger.Setup()
	if envErr != nil {
		log.Info().Msg("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	log.Info().Msg("Connected to PostgreSQL successfully")

	middleware.InitPermissionMiddleware(db)

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	cacheStore := cache.NewStore()

	// Set up dependencies (Repository -> Service -> Handler)
	userRepo := repository.NewUserRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	vehicleRepo := repository.NewVehicleRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	costRepo := repository.NewCostRepository(db)
	sharedRepo := repository.NewSharedInvoiceRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	txManager := repository.NewTransactionManager(db)

	userService := service.NewUserService(userRepo)
	roleService := service.NewRoleService(db)
	auditService := service.NewAuditService(db)
	customerService := service.NewCustomerService(customerRepo, txManager)
	vehicleService := service.NewVehicleService(vehicleRepo, customerRepo)
	costingService := service.NewCostingService(invoiceRepo, costRepo, sharedRepo, transactionRepo, auditRepo, txManager)
	invoiceService := service.NewInvoiceService(invoiceRepo, customerRepo, vehicleRepo, auditRepo, txManager, costingService)
	allocationService := service.NewAllocationService(sharedRepo, vehicleRepo, invoiceRepo, auditRepo, txManager, costingService, wsHub)
	walletService := service.NewWalletService(transactionRepo, customerRepo, cacheStore)
	paymentService := service.NewPaymentService(invoiceRepo, transactionRepo, customerRepo, auditRepo, txManager, walletService, wsHub)
	reportingService := service.NewReportingService(db)

	// Seed RBAC roles and permissions
	if err := roleService.SeedDefaultRolesAndPermissions(context.Background()); err != nil {
		log.Warn().Err(err).Msg("Failed to seed roles and permissions")
	}

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	roleHandler := handler.NewRoleHandler(roleService)
	auditHandler := handler.NewAuditHandler(auditService)
	customerHandler := handler.NewCustomerHandler(customerService)
	vehicleHandler := handler.NewVehicleHandler(vehicleService)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService)
	costHandler := handler.NewCostHandler(costingService)
	sharedInvoiceHandler := handler.NewSharedInvoiceHandler(allocationService)
	paymentHandler := handler.NewPaymentHandler(paymentService, walletService, os.Getenv("PAYMENT_WEBHOOK_SECRET"))
	reportHandler := handler.NewReportHandler(reportingService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	root := router.Group("")
	userHandler.RegisterRoutes(root)
	roleHandler.RegisterRoutes(root)
	auditHandler.RegisterRoutes(root)
	customerHandler.RegisterRoutes(root)
	vehicleHandler.RegisterRoutes(root)
	invoiceHandler.RegisterRoutes(root)
	invoiceHandler.RegisterPublicRoutes(root)
	costHandler.RegisterRoutes(root)
	sharedInvoiceHandler.RegisterRoutes(root)
	paymentHandler.RegisterRoutes(root)
	paymentHandler.RegisterWebhookRoutes(root)
	reportHandler.RegisterRoutes(root)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Info().Str("port", port).Msg("Server listening")
	if err := router.Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
