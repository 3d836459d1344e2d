package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	_ "github.com/edubridge/edubridge-api/api/swagger"
	"github.com/edubridge/edubridge-api/internal/access"
	"github.com/edubridge/edubridge-api/internal/handler"
	"github.com/edubridge/edubridge-api/internal/mailer"
	"github.com/edubridge/edubridge-api/internal/realtime"
	"github.com/edubridge/edubridge-api/internal/repository"
	"github.com/edubridge/edubridge-api/internal/service"
	"github.com/edubridge/edubridge-api/pkg/cache"
	"github.com/edubridge/edubridge-api/pkg/config"
	"github.com/edubridge/edubridge-api/pkg/database"
	"github.com/edubridge/edubridge-api/pkg/export"
	"github.com/edubridge/edubridge-api/pkg/jobs"
	"github.com/edubridge/edubridge-api/pkg/logger"
)

// @title EduBridge API
// @version 1.0.0
// @description School administration backend with role-scoped access and realtime notifications
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			logr.Sugar().Fatalw("failed to run migrations", "error", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var hub *realtime.Hub
	if cfg.Realtime.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close()
		hub = realtime.NewHub(redisClient, cfg.Realtime.PresenceTTL, logr)
	}

	var mail service.Mailer
	if cfg.Mail.Enabled {
		mail = mailer.NewSendgrid(cfg.Mail)
	}

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	parentRepo := repository.NewParentRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	feeRepo := repository.NewFeeRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	pollRepo := repository.NewPollRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	resourceRepo := repository.NewResourceRepository(db)
	profileRepo := repository.NewProfileRepository(teacherRepo, parentRepo, studentRepo)

	validate := validator.New()
	metrics := service.NewMetricsService()
	policy := access.NewPolicy(profileRepo, resourceRepo, logr)

	var pusher service.Pusher
	if hub != nil {
		pusher = hub
	}

	notificationSvc := service.NewNotificationService(notificationRepo, userRepo, pusher, mail, metrics, cfg.Notifications, validate, logr)
	notificationSvc.StartPurgeLoop(ctx, cfg.Notifications.PurgeInterval)

	authSvc := service.NewAuthService(userRepo, validate, logr, cfg.JWT)
	userSvc := service.NewUserService(userRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, validate, logr)
	parentSvc := service.NewParentService(parentRepo, validate, logr)
	classroomSvc := service.NewClassroomService(classroomRepo, validate, logr)
	gradeSvc := service.NewGradeService(gradeRepo, studentRepo, parentRepo, notificationSvc, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, studentRepo, parentRepo, notificationSvc, validate, logr)
	feeSvc := service.NewFeeService(feeRepo, studentRepo, parentRepo, notificationSvc, export.NewPDFExporter(), validate, logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, studentRepo, notificationSvc, validate, logr)
	messageSvc := service.NewMessageService(messageRepo, userRepo, notificationSvc, validate, logr)
	pollSvc := service.NewPollService(pollRepo, validate, logr)
	announcementSvc := service.NewAnnouncementService(announcementRepo, notificationSvc, validate, logr)
	reportSvc := service.NewReportService(gradeRepo, attendanceRepo, studentRepo, export.NewCSVExporter(), export.NewPDFExporter(), logr)

	fanoutQueue := jobs.NewQueue("announcement_fanout", announcementSvc.FanoutHandler(), jobs.QueueConfig{
		Workers:    cfg.Notifications.FanoutWorkers,
		BufferSize: cfg.Notifications.FanoutBuffer,
		Logger:     logr,
	})
	fanoutQueue.Start(ctx)
	defer fanoutQueue.Stop()
	announcementSvc.AttachQueue(fanoutQueue)

	router := handler.NewRouter(handler.Dependencies{
		Cfg:         cfg,
		Logger:      logr,
		AuthService: authSvc,
		Policy:      policy,
		Metrics:     metrics,

		Auth:          handler.NewAuthHandler(authSvc),
		Users:         handler.NewUserHandler(userSvc),
		Students:      handler.NewStudentHandler(studentSvc),
		Teachers:      handler.NewTeacherHandler(teacherSvc),
		Parents:       handler.NewParentHandler(parentSvc),
		Classrooms:    handler.NewClassroomHandler(classroomSvc),
		Grades:        handler.NewGradeHandler(gradeSvc),
		Attendance:    handler.NewAttendanceHandler(attendanceSvc),
		Fees:          handler.NewFeeHandler(feeSvc),
		Assignments:   handler.NewAssignmentHandler(assignmentSvc),
		Messages:      handler.NewMessageHandler(messageSvc),
		Polls:         handler.NewPollHandler(pollSvc),
		Announcements: handler.NewAnnouncementHandler(announcementSvc),
		Notifications: handler.NewNotificationHandler(notificationSvc, hub, metrics),
		Reports:       handler.NewReportHandler(reportSvc),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("forced shutdown", "error", err)
	}
}
