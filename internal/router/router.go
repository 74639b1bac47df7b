package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kilo-studio/kilo-backend/internal/config"
	"github.com/kilo-studio/kilo-backend/internal/handler"
	"github.com/kilo-studio/kilo-backend/internal/middleware"
	"github.com/kilo-studio/kilo-backend/internal/response"
	"github.com/kilo-studio/kilo-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Lesson *handler.LessonHandler
	Member *handler.MemberHandler
	System *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// limiter may be nil, which disables rate limiting.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	limiter *middleware.RateLimiter,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware(log))

	// Month listings grow with the number of classes.
	router.Use(middleware.Brotli())

	router.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	})

	if handlers.System != nil {
		router.GET("/health", handlers.System.Health)
	}

	api := router.Group("/api/v1")
	api.Use(middleware.RequireJWT(authService))

	enroll := []gin.HandlerFunc{}
	if limiter != nil {
		enroll = append(enroll, limiter.Middleware())
	}

	// ─── 1. Lessons (any member) ───────────────────────────────────────
	lessons := api.Group("/lessons")
	{
		lessons.GET("", handlers.Lesson.ListLessons)
		lessons.POST("/:id/join", append(enroll, handlers.Lesson.JoinLesson)...)
		lessons.DELETE("/:id/leave", append(enroll, handlers.Lesson.LeaveLesson)...)
	}

	// ─── 2. Lessons (admin) ────────────────────────────────────────────
	adminLessons := api.Group("/lessons")
	adminLessons.Use(middleware.RequireAdmin())
	{
		adminLessons.POST("/generate", handlers.Lesson.GenerateLessons)
		adminLessons.DELETE("/:id", handlers.Lesson.DeleteLesson)
	}

	// ─── 3. Own views ──────────────────────────────────────────────────
	me := api.Group("/me")
	{
		me.GET("/lessons", handlers.Member.MyLessons)
		me.GET("/quota", handlers.Member.MyQuota)
	}

	return router
}
