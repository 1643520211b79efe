package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ziyi127/SCS/config"
	"github.com/ziyi127/SCS/internal/api/handler"
	"github.com/ziyi127/SCS/internal/api/middleware"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 课表查询
		timetable := v1.Group("/timetable")
		{
			timetable.GET("/today", h.Timetable.Today)
			timetable.GET("/week-type", h.Timetable.WeekType)
		}

		// 课程模板
		courses := v1.Group("/courses")
		{
			courses.GET("", h.Course.List)
			courses.POST("", h.Course.Create)
			courses.PUT("", h.Course.Update)
			courses.DELETE("", h.Course.Delete)
			courses.POST("/conflict", h.Course.CheckConflict)
			courses.POST("/swap", h.Course.Swap)
		}

		// 科目库
		subjects := v1.Group("/subjects")
		{
			subjects.GET("", h.Subject.List)
			subjects.POST("", h.Subject.Create)
			subjects.GET("/:name", h.Subject.Get)
			subjects.DELETE("/:name", h.Subject.Delete)
		}

		// 学期起始日期与按日期覆盖
		overrides := v1.Group("/overrides")
		{
			overrides.GET("", h.Override.Get)
			overrides.PUT("/semester-start", h.Override.SetSemesterStart)
			overrides.PUT("/special-dates/:date", h.Override.SetSpecialDate)
			overrides.DELETE("/special-dates/:date", h.Override.ClearSpecialDate)
			overrides.PUT("/temp-week-types/:date", h.Override.SetTempWeekType)
			overrides.DELETE("/temp-week-types/:date", h.Override.ClearTempWeekType)
			overrides.PUT("/temp-schedules/:date", h.Override.SetTempSchedule)
			overrides.DELETE("/temp-schedules/:date", h.Override.ClearTempSchedule)
		}

		// 天气
		v1.GET("/weather", h.Weather.Current)
		v1.POST("/weather/refresh", h.Weather.Refresh)

		// 提醒
		reminders := v1.Group("/reminders")
		{
			reminders.GET("", h.Reminder.Recent)
			reminders.POST("/check", h.Reminder.Check)
			reminders.GET("/stream", h.Reminder.Stream)
		}

		// 导入导出
		v1.POST("/import/:format", h.Transfer.Import)
		v1.GET("/export/:format", h.Transfer.Export)
	}

	return r
}
