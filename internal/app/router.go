package app

import (
	"elearn_backend/docs"
	"elearn_backend/internal/config"
	"elearn_backend/internal/middleware"
	"elearn_backend/internal/model"
	"elearn_backend/pkg/monitoring"
	"elearn_backend/pkg/security"
	"elearn_backend/pkg/tracing"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	a.cors = security.NewOriginAllowlist(cfg.CORS.AllowedOrigins)
	router.Use(a.cors.Middleware())
	router.Use(security.Secure())

	maxRequests, window := rateLimitParams(cfg)
	a.limiter = security.NewIPRateLimiter(maxRequests, window)
	router.Use(a.limiter.Middleware())

	// CORS 白名单和限流配额在构造时拷贝了配置值，热更新走回调
	a.RegisterConfigCallback(func(c *config.Config) {
		a.cors.Update(c.CORS.AllowedOrigins)
		maxRequests, window := rateLimitParams(c)
		a.limiter.Update(maxRequests, window)
	})

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func rateLimitParams(cfg *config.Config) (int, time.Duration) {
	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 1000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	return maxRequests, window
}

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		// 管理端：测验的增删改查
		admin := authGroup.Group("/")
		admin.Use(middleware.RoleMiddleware(model.Admin))
		{
			admin.POST("/quiz", c.quiz.CreateQuiz)
			admin.GET("/quizzes", c.quiz.ListQuizzes)
			admin.GET("/quiz/:id", c.quiz.GetQuiz)
			admin.PUT("/quiz/:id", c.quiz.UpdateQuiz)
			admin.DELETE("/quiz/:id", c.quiz.DeleteQuiz)
		}

		// 学生端：作答流程
		authGroup.GET("/course/:courseId/quizzes", c.attempt.GetCourseQuizzes)
		authGroup.POST("/quiz/:id/start", c.attempt.StartQuiz)
		authGroup.POST("/quiz/attempt/:attemptId/submit", c.attempt.SubmitQuiz)
		authGroup.GET("/quiz/attempt/:attemptId/result", c.attempt.GetQuizResult)
	}
}
