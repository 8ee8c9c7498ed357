package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"carteirinha/internal/api/middleware"
	"carteirinha/internal/auth"
	"carteirinha/internal/config"
	"carteirinha/internal/database"
	"carteirinha/internal/storage"
)

// RegisterRoutes wires the API routes, without an /api prefix.
func RegisterRoutes(
	router *gin.Engine,
	cfg *config.Config,
	db *gorm.DB,
	asynqClient *asynq.Client,
	authService *auth.AuthService,
	redisClient *redis.Client,
	logger *slog.Logger,
	storageClient *storage.Client,
) {
	layoutStore := database.NewLayoutStore(db)

	authHandler := NewAuthHandler(
		db, authService, redisClient, logger,
		cfg.Auth.LoginRateLimitPerHour,
		cfg.Auth.LoginLockThreshold,
		time.Duration(cfg.Auth.LoginLockTTLMinutes)*time.Minute,
		cfg.Auth.CookieDomain,
	)
	associateHandler := NewAssociateHandler(db)
	layoutHandler := NewLayoutHandler(layoutStore, storageClient, logger)
	printHandler := NewPrintHandler(db, layoutStore, asynqClient, storageClient, logger)
	assetHandler := NewAssetHandler(storageClient, logger, cfg.Upload.ClamdAddr, cfg.Upload.MaxUploadBytes)
	wsHandler := NewWsHandler(redisClient, authService, logger, cfg.API.AllowedOriginList())

	authMiddleware := middleware.AuthMiddleware(authService)
	passwordGate := middleware.RequirePasswordChangeCompletedMiddleware()
	adminGate := middleware.RequireAdminMiddleware()

	v1 := router.Group("/v1")
	v1.Use(middleware.SlogLoggerMiddleware(logger))
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authMiddleware, authHandler.Logout)
			authGroup.POST("/change-password", authMiddleware, authHandler.ChangePassword)
		}

		associateGroup := v1.Group("/associates")
		associateGroup.Use(authMiddleware, passwordGate)
		{
			associateGroup.GET("", associateHandler.ListAssociates)
			associateGroup.POST("", associateHandler.CreateAssociate)
			associateGroup.GET("/:id", associateHandler.GetAssociate)
			associateGroup.PUT("/:id", associateHandler.UpdateAssociate)
			associateGroup.DELETE("/:id", associateHandler.DeleteAssociate)

			associateGroup.POST("/:id/dependents", associateHandler.CreateDependent)
			associateGroup.PUT("/:id/dependents/:dependentID", associateHandler.UpdateDependent)
			associateGroup.DELETE("/:id/dependents/:dependentID", associateHandler.DeleteDependent)
		}

		layoutGroup := v1.Group("/layouts")
		layoutGroup.Use(authMiddleware, passwordGate)
		{
			layoutGroup.GET("", layoutHandler.ListLayouts)
			layoutGroup.GET("/:id", layoutHandler.GetLayout)
			layoutGroup.GET("/:id/preview", layoutHandler.PreviewLayout)

			// Editing layouts is the administrative area.
			layoutGroup.POST("", adminGate, layoutHandler.CreateLayout)
			layoutGroup.PUT("/:id", adminGate, layoutHandler.SaveLayout)
			layoutGroup.POST("/:id/duplicate", adminGate, layoutHandler.DuplicateLayout)
			layoutGroup.DELETE("/:id", adminGate, layoutHandler.DeleteLayout)
		}

		printGroup := v1.Group("/print-jobs")
		printGroup.Use(authMiddleware, passwordGate)
		{
			printGroup.POST("", printHandler.CreatePrintJob)
			printGroup.GET("/:id", printHandler.GetPrintJob)
			printGroup.GET("/:id/download", printHandler.GetPrintJobDownload)
		}

		assetGroup := v1.Group("/assets")
		assetGroup.Use(authMiddleware, passwordGate)
		{
			assetGroup.POST("/photos", assetHandler.UploadPhoto)
			assetGroup.POST("/backgrounds", assetHandler.UploadBackground)
			assetGroup.GET("/backgrounds", assetHandler.ListBackgrounds)
			assetGroup.GET("/view", assetHandler.GetAssetURL)
		}
	}
}
