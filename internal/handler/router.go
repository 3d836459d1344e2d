package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/edubridge/edubridge-api/internal/access"
	"github.com/edubridge/edubridge-api/internal/middleware"
	"github.com/edubridge/edubridge-api/internal/models"
	"github.com/edubridge/edubridge-api/internal/service"
	"github.com/edubridge/edubridge-api/pkg/config"
	"github.com/edubridge/edubridge-api/pkg/logger"
	corsmiddleware "github.com/edubridge/edubridge-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edubridge/edubridge-api/pkg/middleware/requestid"
)

// Dependencies carries everything the router wires together.
type Dependencies struct {
	Cfg    *config.Config
	Logger *zap.Logger

	AuthService *service.AuthService
	Policy      *access.Policy
	Metrics     *service.MetricsService

	Auth          *AuthHandler
	Users         *UserHandler
	Students      *StudentHandler
	Teachers      *TeacherHandler
	Parents       *ParentHandler
	Classrooms    *ClassroomHandler
	Grades        *GradeHandler
	Attendance    *AttendanceHandler
	Fees          *FeeHandler
	Assignments   *AssignmentHandler
	Messages      *MessageHandler
	Polls         *PollHandler
	Announcements *AnnouncementHandler
	Notifications *NotificationHandler
	Reports       *ReportHandler
}

// NewRouter assembles the gin engine with all routes and middleware.
func NewRouter(deps Dependencies) *gin.Engine {
	if deps.Cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(deps.Cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}
	if deps.Cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(deps.Cfg.APIPrefix)

	api.POST("/auth/login", deps.Auth.Login)
	api.POST("/auth/refresh", deps.Auth.Refresh)

	authed := api.Group("", middleware.JWT(deps.AuthService))

	authed.POST("/auth/logout", deps.Auth.Logout)
	authed.POST("/auth/change-password", deps.Auth.ChangePassword)
	authed.GET("/auth/me", deps.Auth.Me)

	admin := middleware.RequireRoles(models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)

	users := authed.Group("/users", admin)
	{
		users.GET("", deps.Users.List)
		users.GET("/:id", deps.Users.Get)
		users.POST("", deps.Users.Create)
		users.PUT("/:id", deps.Users.Update)
	}

	students := authed.Group("/students")
	{
		students.GET("", staff, deps.Students.List)
		students.GET("/:id", middleware.ResourceAccess(deps.Policy, models.ResourceStudent, deps.Metrics), deps.Students.Get)
		students.POST("", admin, deps.Students.Create)
		students.PUT("/:id", admin, deps.Students.Update)
		students.DELETE("/:id", admin, deps.Students.Delete)
	}

	teachers := authed.Group("/teachers")
	{
		teachers.GET("", staff, deps.Teachers.List)
		teachers.GET("/:id", middleware.ResourceAccess(deps.Policy, models.ResourceTeacher, deps.Metrics), deps.Teachers.Get)
		teachers.POST("", admin, deps.Teachers.Create)
		teachers.PUT("/:id", admin, deps.Teachers.Update)
		teachers.DELETE("/:id", admin, deps.Teachers.Delete)
	}

	parents := authed.Group("/parents", admin)
	{
		parents.GET("", deps.Parents.List)
		parents.GET("/:id", deps.Parents.Get)
		parents.POST("", deps.Parents.Create)
		parents.PUT("/:id", deps.Parents.Update)
	}

	classrooms := authed.Group("/classrooms")
	{
		classrooms.GET("", deps.Classrooms.List)
		classrooms.GET("/:id", deps.Classrooms.Get)
		classrooms.POST("", admin, deps.Classrooms.Create)
		classrooms.PUT("/:id", admin, deps.Classrooms.Update)
		classrooms.DELETE("/:id", admin, deps.Classrooms.Delete)
	}

	grades := authed.Group("/grades")
	{
		grades.GET("", staff, deps.Grades.List)
		grades.GET("/:id", middleware.ResourceAccess(deps.Policy, models.ResourceGrade, deps.Metrics), deps.Grades.Get)
		grades.POST("", staff, deps.Grades.Create)
		grades.PUT("/:id", staff, deps.Grades.Update)
		grades.DELETE("/:id", staff, deps.Grades.Delete)
	}

	attendance := authed.Group("/attendance")
	{
		attendance.GET("", staff, deps.Attendance.List)
		attendance.GET("/:id", middleware.ResourceAccess(deps.Policy, models.ResourceAttendance, deps.Metrics), deps.Attendance.Get)
		attendance.POST("", staff, deps.Attendance.Record)
		attendance.PUT("/:id", staff, deps.Attendance.Update)
	}

	fees := authed.Group("/fees")
	{
		fees.GET("", staff, deps.Fees.List)
		fees.GET("/:id", middleware.ResourceAccess(deps.Policy, models.ResourceFee, deps.Metrics), deps.Fees.Get)
		fees.POST("", admin, deps.Fees.Create)
		fees.POST("/:id/pay", admin, deps.Fees.Pay)
		fees.GET("/:id/receipt", middleware.ResourceAccess(deps.Policy, models.ResourceFee, deps.Metrics), deps.Fees.Receipt)
		fees.DELETE("/:id", admin, deps.Fees.Delete)
	}

	assignments := authed.Group("/assignments")
	{
		assignments.GET("", deps.Assignments.List)
		assignments.GET("/:id", deps.Assignments.Get)
		assignments.POST("", staff, deps.Assignments.Create)
		assignments.PUT("/:id", staff, deps.Assignments.Update)
		assignments.DELETE("/:id", staff, deps.Assignments.Delete)
	}

	messages := authed.Group("/messages")
	{
		messages.GET("", deps.Messages.List)
		messages.GET("/:id", deps.Messages.Get)
		messages.POST("", deps.Messages.Send)
		messages.POST("/:id/read", deps.Messages.MarkRead)
	}

	polls := authed.Group("/polls")
	{
		polls.GET("", deps.Polls.List)
		polls.GET("/:id", deps.Polls.Get)
		polls.GET("/:id/results", deps.Polls.Results)
		polls.POST("", staff, deps.Polls.Create)
		polls.POST("/:id/vote", deps.Polls.Vote)
		polls.DELETE("/:id", staff, deps.Polls.Delete)
	}

	announcements := authed.Group("/announcements")
	{
		announcements.GET("", deps.Announcements.List)
		announcements.GET("/:id", deps.Announcements.Get)
		announcements.POST("", staff, deps.Announcements.Create)
		announcements.DELETE("/:id", staff, deps.Announcements.Delete)
	}

	notifications := authed.Group("/notifications")
	{
		notifications.GET("", deps.Notifications.List)
		notifications.GET("/unread-count", deps.Notifications.UnreadCount)
		notifications.GET("/stream", deps.Notifications.Stream)
		notifications.POST("/:id/read", deps.Notifications.MarkRead)
		notifications.POST("/read-all", deps.Notifications.MarkAllRead)
	}

	if deps.Cfg.Exports.Enabled {
		reports := authed.Group("/reports")
		{
			reports.GET("/students/:id/grades", middleware.ResourceAccess(deps.Policy, models.ResourceStudent, deps.Metrics), deps.Reports.Grades)
			reports.GET("/students/:id/attendance", middleware.ResourceAccess(deps.Policy, models.ResourceStudent, deps.Metrics), deps.Reports.Attendance)
		}
	}

	return r
}
