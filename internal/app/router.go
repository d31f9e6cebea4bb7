package app

import (
	"lesson_gate/internal/config"
	"lesson_gate/internal/middleware"
	"lesson_gate/internal/model"
	"lesson_gate/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerLearnerRoutes(authGroup, c, repos, cfg)
	}

	// 3. 管理员相关接口
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/progress", c.progress.ListLearnerProgress)
	}
}

func (a *App) registerLearnerRoutes(rg *gin.RouterGroup, c *controllers, repos *repositories, cfg *config.Config) {
	// 提交类接口按 Idempotency-Key 去重
	var dedupe []gin.HandlerFunc
	if repos.idempotency != nil {
		dedupe = append(dedupe, middleware.Idempotency(repos.idempotency, cfg.Grading.IdempotencyTTL()))
	}

	lessons := rg.Group("/lessons")
	{
		lessons.GET("/:id", c.lesson.GetLesson)
		lessons.GET("/:id/unlock", c.lesson.GetUnlockStatus)
		lessons.POST("/:id/complete", append(dedupe, c.lesson.CompleteLesson)...)
		lessons.POST("/:id/submit", append(dedupe, c.lesson.SubmitLesson)...)
	}

	rg.POST("/exercises/:id/check", c.lesson.CheckAnswer)

	rg.GET("/dashboard", c.lesson.GetDashboard)
	rg.GET("/grades", c.progress.GetGrades)
	rg.GET("/certificate", c.progress.GetCertificate)
	rg.GET("/stats", c.progress.GetStats)
}
