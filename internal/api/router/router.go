package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"project-tracker/config"
	"project-tracker/internal/api/handler"
	"project-tracker/internal/api/middleware"
	"project-tracker/internal/model"
	"project-tracker/pkg/redis"
)

// Session 路由所需的会话能力（*service.SessionStore 实现）
type Session interface {
	middleware.TokenValidator
	middleware.ProfileSource
}

const defaultBodyLimit = 1 << 20

// Setup 初始化并返回 Gin 路由引擎；rdb 为 nil 时登录限流关闭
func Setup(cfg *config.Config, h *handler.Handler, session Session, connected func() bool, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// ── 健康检查 / 指标 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "connected": connected()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	staff := model.StaffRoles()
	admins := model.AdminRoles()
	limited := middleware.RateLimit(rdb, 10, time.Minute)
	jsonLimit := middleware.BodyLimit(defaultBodyLimit)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 会话模块（无需认证）
		sess := v1.Group("/session")
		{
			sess.POST("/sign-in", limited, jsonLimit, h.Session.SignIn)
			sess.POST("/sign-up", limited, jsonLimit, h.Session.SignUp)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.SessionAuth(session))
		{
			authorized.GET("/session", h.Session.Me)
			authorized.POST("/session/sign-out", h.Session.SignOut)
		}

		// 以下路由要求会话档案已就绪且属于当前 Token 用户
		bound := authorized.Group("")
		bound.Use(middleware.ActiveProfile(session))
		{
			bound.GET("/state", h.State.GetState)
			bound.GET("/notifications", h.State.ListNotifications)
			bound.POST("/notifications/dismiss", jsonLimit, h.State.DismissNotifications)

			// 学期 / 项目 / 日程
			bound.PUT("/semesters/current", jsonLimit, h.Semester.SelectSemester)
			bound.POST("/semesters", middleware.RoleAuth(session, admins...), jsonLimit, h.Semester.CreateSemester)
			bound.POST("/projects", middleware.RoleAuth(session, admins...), jsonLimit, h.Semester.CreateProject)
			bound.PUT("/projects/:id/published", middleware.RoleAuth(session, admins...), jsonLimit, h.Semester.SetPublished)
			bound.POST("/schedule-items", middleware.RoleAuth(session, staff...), jsonLimit, h.Semester.CreateScheduleItem)
			bound.DELETE("/schedule-items/:id", middleware.RoleAuth(session, staff...), h.Semester.DeleteScheduleItem)

			// 选课 / 角色
			bound.POST("/enrollments", middleware.RoleAuth(session, staff...), jsonLimit, h.Enrollment.EnrollStudent)
			bound.POST("/enrollments/join", jsonLimit, h.Enrollment.JoinByCourseCode)
			bound.PUT("/profiles/:id/role", middleware.RoleAuth(session, admins...), jsonLimit, h.Enrollment.ChangeRole)

			// 进度
			bound.POST("/check-ins", jsonLimit, h.Progress.PostCheckIn)
			bound.POST("/attachments", middleware.BodyLimit(cfg.Storage.MaxUploadBytes), h.Progress.UploadAttachment)
			bound.PUT("/project-states/status", jsonLimit, h.Progress.UpdateStatus)
			bound.PUT("/project-states/notes", middleware.RoleAuth(session, staff...), jsonLimit, h.Progress.UpdateNotes)
			bound.GET("/progress", middleware.RoleAuth(session, staff...), h.Progress.GetProgress)

			// 导出
			export := bound.Group("/export")
			{
				export.GET("/roster.csv", middleware.RoleAuth(session, staff...), h.Export.RosterCSV)
				export.GET("/roster.xlsx", middleware.RoleAuth(session, staff...), h.Export.RosterXLSX)
				export.GET("/schedule.ics", h.Export.ScheduleICS)
			}
		}
	}

	return r
}
