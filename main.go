package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/tailoring-orders-api/config"
	"github.com/kendall-kelly/tailoring-orders-api/controllers"
	"github.com/kendall-kelly/tailoring-orders-api/middleware"
	"github.com/kendall-kelly/tailoring-orders-api/services"
	"github.com/kendall-kelly/tailoring-orders-api/utils"
)

func main() {
	// Basic logging
	log.Println("Starting Tailoring Orders API server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto-migrate database models
	db := config.GetDB()
	if err := config.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	blobs, err := newBlobStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize blob storage: %v", err)
	}
	services.SetBlobStore(blobs)

	events := newEventPublisher(cfg)
	if closer, ok := events.(*services.RabbitPublisher); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				log.Printf("warning: failed to close event publisher: %v", err)
			}
		}()
	}

	store := services.NewGormWorkflowStore(db)
	workflow := services.InitWorkflowService(store, services.NewFabricPhotoService(blobs), events)
	services.InitStaffService(store, events)
	services.InitDashboardService(store)
	services.InitImportService(workflow, events, cfg.MaxImportRows)

	var auth gin.HandlerFunc
	if cfg.AuthEnabled() {
		auth = middleware.EnsureValidToken(cfg)
	} else {
		log.Println("warning: AUTH0_DOMAIN/AUTH0_AUDIENCE not set, API routes are unauthenticated")
	}
	router := setupRouter(cfg, auth)

	// Start server
	port := ":" + cfg.Port
	log.Printf("Server is running on http://localhost%s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// newBlobStore picks S3 when a bucket is configured and local disk otherwise
func newBlobStore(cfg *config.Config) (services.BlobStore, error) {
	if cfg.UsesS3() {
		store, err := services.InitS3BlobStore(cfg)
		if err != nil {
			return nil, err
		}
		log.Printf("Fabric photos stored in S3 bucket %s", cfg.AWSS3Bucket)
		return store, nil
	}

	utils.UploadDir = cfg.UploadDir
	log.Printf("Fabric photos stored on local disk in %s", cfg.UploadDir)
	return services.NewLocalBlobStore(cfg.UploadDir), nil
}

// newEventPublisher connects to RabbitMQ when configured. Events are best-effort,
// so an unreachable broker downgrades to a no-op publisher.
func newEventPublisher(cfg *config.Config) services.EventPublisher {
	if cfg.RabbitMQURL == "" {
		return services.NoopPublisher{}
	}

	publisher, err := services.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
	if err != nil {
		log.Printf("warning: failed to connect to RabbitMQ, workflow events disabled: %v", err)
		return services.NoopPublisher{}
	}
	log.Printf("Publishing workflow events to exchange %s", cfg.RabbitMQExchange)
	return publisher
}

// setupRouter registers every route. With a nil auth handler the API is open and
// role gates are skipped.
func setupRouter(cfg *config.Config, auth gin.HandlerFunc) *gin.Engine {
	router := gin.Default()

	if len(cfg.CORSAllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSAllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	gate := func(roles ...middleware.CallerRole) gin.HandlerFunc {
		if auth == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RequireRole(roles...)
	}
	office := []middleware.CallerRole{middleware.CallerAdmin, middleware.CallerConsultant}
	anyone := []middleware.CallerRole{
		middleware.CallerAdmin, middleware.CallerConsultant,
		middleware.CallerTailor, middleware.CallerBeader, middleware.CallerFitter, middleware.CallerQC,
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Health check endpoint
		v1.GET("/health", healthCheck)

		// Database status endpoint
		v1.GET("/database/status", databaseStatus)

		// Fabric photos kept on local disk; S3 photos use presigned URLs instead
		v1.GET("/uploads/:filename", controllers.GetUploadedImage)

		api := v1.Group("")
		if auth != nil {
			api.Use(auth)
		}

		staff := api.Group("/staff")
		{
			staff.GET("", gate(anyone...), controllers.ListStaff)
			staff.POST("", gate(middleware.CallerAdmin), controllers.CreateStaff)
			staff.GET("/:id", gate(anyone...), controllers.GetStaff)
			staff.PUT("/:id", gate(middleware.CallerAdmin), controllers.UpdateStaff)
			staff.DELETE("/:id", gate(middleware.CallerAdmin), controllers.DeleteStaff)
			staff.GET("/:id/assignments", gate(anyone...), controllers.ListStaffAssignments)
		}

		orders := api.Group("/orders")
		{
			orders.GET("", gate(anyone...), controllers.ListOrders)
			orders.POST("", gate(office...), controllers.CreateOrder)
			orders.POST("/import", gate(office...), controllers.ImportOrders)
			orders.GET("/:id", gate(anyone...), controllers.GetOrder)
			orders.PUT("/:id", gate(office...), controllers.UpdateOrder)
			orders.DELETE("/:id", gate(middleware.CallerAdmin), controllers.DeleteOrder)
			orders.GET("/:id/history", gate(anyone...), controllers.GetOrderHistory)
			orders.PUT("/:id/fabric-photo", gate(office...), controllers.ReplaceFabricPhoto)

			orders.POST("/:id/assign", gate(office...), controllers.AssignStaff)
			orders.POST("/:id/complete-stage", gate(anyone...), controllers.CompleteStage)
			orders.POST("/:id/rework", gate(middleware.CallerAdmin, middleware.CallerConsultant, middleware.CallerQC), controllers.RequestRework)
			orders.POST("/:id/collect", gate(office...), controllers.MarkCollected)
		}

		api.GET("/dashboard/stats", gate(anyone...), controllers.GetDashboardStats)
	}

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Tailoring Orders API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	// Get the underlying SQL database to check connection
	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	// Ping the database to verify connection
	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	tables, err := db.Migrator().GetTables()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
