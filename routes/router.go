package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/blogicum/config"
	"github.com/cppla/blogicum/controllers"
	"github.com/cppla/blogicum/messaging"
	"github.com/cppla/blogicum/middleware"
	"github.com/cppla/blogicum/storage"
	"github.com/cppla/blogicum/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, store storage.Storage, events messaging.Publisher) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Access log goes to its own rolling file, or to the application logger when none is configured
	accessLog := utils.Logger
	if cfg.GinPath != "" {
		gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
		if err != nil {
			utils.Logger.Warn("gin access log unavailable, using application logger", zap.Error(err))
		} else {
			accessLog = gl
		}
	}
	r.Use(ginzap.Ginzap(accessLog, time.RFC3339, true))
	r.Use(ginzap.CustomRecoveryWithZap(accessLog, false, utils.RecoverJSON))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Location"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		// browsers refuse credentials with a wildcard origin
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}

	r.Use(cors.New(corsCfg))
	r.Use(middleware.CurrentUser())

	if strings.EqualFold(cfg.StorageDriver, "local") && cfg.StoragePublicURL != "" && strings.HasPrefix(cfg.StoragePublicURL, "/") {
		r.Static(cfg.StoragePublicURL, cfg.StorageLocalPath)
	}

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	postController := controllers.NewPostController(db, store, events)
	profileController := controllers.NewProfileController(db)
	categoryController := controllers.NewCategoryController(db)
	adminController := controllers.NewAdminController(db)

	r.GET("/", postController.Index)
	r.GET("/category/:slug/", categoryController.Category)
	r.GET("/profile/:username/", profileController.Profile)
	r.GET("/posts/:id/", postController.Detail)

	authGroup := r.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/registration/", authController.Register)
	authGroup.GET("/login/", authController.Login)
	authGroup.POST("/login/", authController.Login)
	authGroup.POST("/logout/", authController.Logout)

	protected := r.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	getPost(protected, "/posts/create/", postController.Create)
	getPost(protected, "/posts/:id/edit/", postController.Edit)
	getPost(protected, "/posts/:id/delete/", postController.Delete)
	protected.POST("/posts/:id/comment/", postController.AddComment)
	getPost(protected, "/posts/:id/comment/:cid/edit/", postController.EditComment)
	getPost(protected, "/posts/:id/comment/:cid/delete/", postController.DeleteComment)
	getPost(protected, "/profile/edit/", profileController.EditProfile)

	admin := r.Group("/admin")
	admin.Use(middleware.AuthRequired(), middleware.AdminRequired(db))
	admin.GET("/categories/", adminController.ListCategories)
	admin.POST("/categories/", adminController.CreateCategory)
	admin.PUT("/categories/:id/", adminController.UpdateCategory)
	admin.DELETE("/categories/:id/", adminController.DeleteCategory)
	admin.GET("/locations/", adminController.ListLocations)
	admin.POST("/locations/", adminController.CreateLocation)
	admin.PUT("/locations/:id/", adminController.UpdateLocation)
	admin.DELETE("/locations/:id/", adminController.DeleteLocation)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}

// getPost registers a form page: GET renders it, POST submits it.
func getPost(g *gin.RouterGroup, path string, h gin.HandlerFunc) {
	g.GET(path, h)
	g.POST(path, h)
}
