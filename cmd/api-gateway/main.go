package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/school-admin-api/api/swagger"
	"github.com/noah-isme/school-admin-api/internal/handler"
	internalmiddleware "github.com/noah-isme/school-admin-api/internal/middleware"
	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/repository"
	"github.com/noah-isme/school-admin-api/internal/service"
	"github.com/noah-isme/school-admin-api/pkg/cache"
	"github.com/noah-isme/school-admin-api/pkg/config"
	"github.com/noah-isme/school-admin-api/pkg/database"
	"github.com/noah-isme/school-admin-api/pkg/export"
	"github.com/noah-isme/school-admin-api/pkg/jobs"
	"github.com/noah-isme/school-admin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/school-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/school-admin-api/pkg/middleware/requestid"
	"github.com/noah-isme/school-admin-api/pkg/storage"
)

// @title School Administration API
// @version 1.0.0
// @description Fee ledger, staff roles, work submissions, HR and academics for a single school.
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	// repositories
	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	yearRepo := repository.NewAcademicYearRepository(db)
	feeRepo := repository.NewFeeRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)
	leaveRepo := repository.NewLeaveRepository(db)
	performanceRepo := repository.NewPerformanceRepository(db)
	staffAttendanceRepo := repository.NewStaffAttendanceRepository(db)
	academicRepo := repository.NewAcademicRepository(db)
	reportRepo := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, "school", logr)

	// storage
	uploadStore, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("upload storage init failed", "error", err)
	}
	exportStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("report storage init failed", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	csvExporter := export.NewCSVExporter()
	pdfExporter := export.NewPDFExporter()

	// services
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled && redisClient != nil)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	authSvc.SetMetrics(metricsSvc)
	profileSvc := service.NewProfileService(profileRepo, userRepo, validate, logr)
	userSvc := service.NewUserService(userRepo, profileRepo, profileSvc, validate, logr)
	uploadSvc := service.NewUploadService(uploadStore, service.UploadConfig{
		MaxFileSize:       cfg.Uploads.MaxFileSizeBytes,
		AllowedExtensions: cfg.Uploads.AllowedExtensions,
	}, logr)
	ledgerSvc := service.NewLedgerService(ledgerRepo, feeRepo, validate, logr, service.LedgerConfig{DefaultDueDays: cfg.Fees.DefaultDueDays})
	ledgerSvc.SetMetrics(metricsSvc)
	studentSvc := service.NewStudentService(studentRepo, feeRepo, ledgerSvc, uploadSvc, validate, logr)
	feeSvc := service.NewFeeService(yearRepo, feeRepo, pdfExporter, cfg.Fees.Currency, validate, logr)
	submissionSvc := service.NewSubmissionService(submissionRepo, profileRepo, uploadSvc, validate, logr)
	submissionSvc.SetMetrics(metricsSvc)
	employeeSvc := service.NewEmployeeService(employeeRepo, validate, logr)
	leaveSvc := service.NewLeaveService(leaveRepo, employeeRepo, validate, logr)
	performanceSvc := service.NewPerformanceService(performanceRepo, employeeRepo, validate, logr)
	staffAttendanceSvc := service.NewStaffAttendanceService(staffAttendanceRepo, employeeRepo, cfg.Staff.WorkdayStart, validate, logr)
	academicSvc := service.NewAcademicService(academicRepo, studentRepo, pdfExporter, validate, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Profiles:    profileRepo,
		Submissions: submissionRepo,
		Users:       userRepo,
		Students:    studentRepo,
		Employees:   employeeRepo,
		Leaves:      leaveRepo,
		Fees:        feeRepo,
		Years:       yearRepo,
		Attendance:  staffAttendanceRepo,
		Cache:       cacheSvc,
		Logger:      logr,
		Config:      service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})

	exportSvc := service.NewExportService(feeRepo, exportStore, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Reports.SignedURLTTL,
		Currency:  cfg.Fees.Currency,
	}, logr, csvExporter, pdfExporter)
	reportWorker := service.NewReportWorker(reportRepo, exportSvc, metricsSvc, cfg.Reports.WorkerRetries, logr)
	reportQueue := jobs.NewQueue("reports", reportWorker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
	})
	reportQueue.Start(ctx)
	defer reportQueue.Stop()
	reportSvc := service.NewReportService(reportRepo, reportQueue, exportSvc, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
		MaxRetries:      cfg.Reports.WorkerRetries,
	})
	reportSvc.RecoverPendingJobs(ctx)
	reportSvc.StartCleanup(ctx)

	// handlers
	authHandler := handler.NewAuthHandler(authSvc)
	profileHandler := handler.NewProfileHandler(profileSvc)
	userHandler := handler.NewUserHandler(userSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	feeHandler := handler.NewFeeHandler(feeSvc)
	ledgerHandler := handler.NewLedgerHandler(ledgerSvc)
	submissionHandler := handler.NewSubmissionHandler(submissionSvc)
	employeeHandler := handler.NewEmployeeHandler(employeeSvc)
	hrHandler := handler.NewHRHandler(leaveSvc, performanceSvc, staffAttendanceSvc)
	academicHandler := handler.NewAcademicHandler(academicSvc)
	reportHandler := handler.NewReportHandler(reportSvc, logr)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.GET("/export/:token", reportHandler.DownloadReport)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(authSvc))
	secured.POST("/auth/logout", authHandler.Logout)
	secured.POST("/auth/change-password", authHandler.ChangePassword)

	staff := secured.Group("")
	staff.Use(internalmiddleware.LoadProfile(profileSvc))
	registerRoutes(staff, routeHandlers{
		profile:    profileHandler,
		users:      userHandler,
		students:   studentHandler,
		fees:       feeHandler,
		ledger:     ledgerHandler,
		submission: submissionHandler,
		employees:  employeeHandler,
		hr:         hrHandler,
		academics:  academicHandler,
		reports:    reportHandler,
		dashboard:  dashboardHandler,
		metrics:    metricsHandler,
	}, userRepo, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

type routeHandlers struct {
	profile    *handler.ProfileHandler
	users      *handler.UserHandler
	students   *handler.StudentHandler
	fees       *handler.FeeHandler
	ledger     *handler.LedgerHandler
	submission *handler.SubmissionHandler
	employees  *handler.EmployeeHandler
	hr         *handler.HRHandler
	academics  *handler.AcademicHandler
	reports    *handler.ReportHandler
	dashboard  *handler.DashboardHandler
	metrics    *handler.MetricsHandler
}

type auditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

func registerRoutes(rg *gin.RouterGroup, h routeHandlers, audits auditRepository, logr *zap.Logger) {
	audit := func(action, resource string) gin.HandlerFunc {
		return internalmiddleware.Audit(audits, logr, action, resource)
	}
	academicStaff := internalmiddleware.RequireProfileRoles(models.RoleAdmin, models.RoleDirector, models.RoleTeacher, models.RoleHeadOfClass)
	attendanceDesk := internalmiddleware.RequireProfile(func(p models.UserProfile) bool {
		return p.Role == models.RoleSecurity || p.Role.CanManageEmployees()
	})

	rg.GET("/profile", h.profile.Me)
	rg.PUT("/profile", h.profile.Update)

	dashboards := rg.Group("/dashboard")
	dashboards.GET("", h.dashboard.Main)
	dashboards.GET("/teacher", internalmiddleware.RequireTeacher(), h.dashboard.Teacher)
	dashboards.GET("/director", internalmiddleware.RequireDirector(), h.dashboard.Director)
	dashboards.GET("/head-of-class", internalmiddleware.RequireProfileRoles(models.RoleAdmin, models.RoleDirector, models.RoleHeadOfClass), h.dashboard.HeadOfClass)
	dashboards.GET("/security", internalmiddleware.RequireSecurity(), h.dashboard.Security)
	dashboards.GET("/bursar", internalmiddleware.RequireFeeManager(), h.dashboard.Bursar)
	dashboards.GET("/hr", internalmiddleware.RequireEmployeeManager(), h.dashboard.HR)

	// UserService writes its own audit rows with old and new values.
	users := rg.Group("/users")
	users.Use(internalmiddleware.RequireEmployeeManager())
	users.GET("", h.users.List)
	users.POST("", h.users.Create)
	users.GET("/:id/roles", h.users.Roles)
	users.PUT("/:id/role", h.users.ChangeRole)
	users.DELETE("/:id", h.users.Delete)

	students := rg.Group("/students")
	students.GET("", h.students.List)
	students.GET("/:id", h.students.Get)
	students.GET("/:id/marks", h.academics.Marks)
	students.GET("/:id/report-card", h.academics.ReportCard)
	students.POST("", internalmiddleware.RequireFeeManager(), h.students.Create)
	students.PUT("/:id", internalmiddleware.RequireFeeManager(), h.students.Update)
	students.PUT("/:id/scholarship", internalmiddleware.RequireFeeManager(), audit("student.scholarship", "student"), h.students.UpdateScholarship)
	students.POST("/:id/documents", internalmiddleware.RequireFeeManager(), h.students.UploadDocument)
	students.POST("/:id/balances/recalculate", internalmiddleware.RequireFeeManager(), h.ledger.RecalculateStudent)

	fees := rg.Group("/fees")
	fees.Use(internalmiddleware.RequireFeeManager())
	fees.GET("/academic-years", h.fees.ListYears)
	fees.POST("/academic-years", h.fees.CreateYear)
	fees.POST("/academic-years/:id/current", h.fees.SetCurrentYear)
	fees.GET("/grades", h.fees.ListGrades)
	fees.POST("/grades", h.fees.CreateGrade)
	fees.GET("/structures", h.fees.ListStructures)
	fees.GET("/structures/:id", h.fees.GetStructure)
	fees.POST("/structures", h.fees.CreateStructure)
	fees.PUT("/structures/:id", h.fees.UpdateStructure)

	payments := rg.Group("/payments")
	payments.Use(internalmiddleware.RequireFeeManager())
	payments.GET("", h.fees.ListPayments)
	payments.POST("", audit("payment.record", "fee_payment"), h.ledger.RecordPayment)
	payments.GET("/:id", h.fees.GetPayment)
	payments.GET("/:id/receipt", h.fees.Receipt)
	payments.PUT("/:id/status", audit("payment.status", "fee_payment"), h.ledger.UpdatePaymentStatus)

	balances := rg.Group("/balances")
	balances.Use(internalmiddleware.RequireFeeManager())
	balances.GET("", h.fees.ListBalances)
	balances.GET("/defaulters", h.fees.Defaulters)
	balances.POST("/:id/recalculate", h.ledger.RecalculateBalance)
	balances.POST("/:id/sync-total", h.ledger.SyncBalanceTotal)

	submissions := rg.Group("/submissions")
	canSubmit := internalmiddleware.RequireProfile(func(p models.UserProfile) bool { return p.Role.CanSubmitWork() })
	canReview := internalmiddleware.RequireProfile(func(p models.UserProfile) bool { return p.Role.CanReviewWork() })
	submissions.POST("", canSubmit, h.submission.Create)
	submissions.GET("/mine", canSubmit, h.submission.Mine)
	submissions.GET("/review", canReview, h.submission.Inbox)
	submissions.GET("/:id", h.submission.Get)
	submissions.POST("/:id/review", canReview, h.submission.Review)

	employees := rg.Group("")
	employees.Use(internalmiddleware.RequireEmployeeManager())
	employees.GET("/employees", h.employees.List)
	employees.GET("/employees/search", h.employees.Search)
	employees.GET("/employees/:id", h.employees.Get)
	employees.POST("/employees", h.employees.Create)
	employees.PUT("/employees/:id", h.employees.Update)
	employees.GET("/employees/:id/attendance", h.hr.MonthlyAttendance)
	employees.GET("/departments", h.employees.Departments)
	employees.POST("/departments", h.employees.CreateDepartment)
	employees.GET("/positions", h.employees.Positions)
	employees.POST("/positions", h.employees.CreatePosition)
	employees.GET("/leave/types", h.hr.LeaveTypes)
	employees.POST("/leave/types", h.hr.CreateLeaveType)
	employees.GET("/leave", h.hr.ListLeave)
	employees.POST("/leave/:id/decision", h.hr.DecideLeave)
	employees.GET("/performance-reviews", h.hr.ListReviews)
	employees.POST("/performance-reviews", h.hr.CreateReview)

	// Any staff member with an employee record may apply for leave.
	rg.POST("/leave", h.hr.ApplyLeave)
	rg.POST("/attendance", attendanceDesk, h.hr.RecordAttendance)
	rg.GET("/attendance", attendanceDesk, h.hr.DayAttendance)

	academics := rg.Group("/academics")
	academics.GET("/subjects", h.academics.Subjects)
	academics.GET("/class-subjects", h.academics.ClassSubjects)
	academics.GET("/exams", h.academics.Exams)
	academics.POST("/subjects", internalmiddleware.RequireDirector(), h.academics.CreateSubject)
	academics.POST("/class-subjects", internalmiddleware.RequireDirector(), h.academics.AssignClassSubject)
	academics.POST("/exams", academicStaff, h.academics.CreateExam)
	academics.POST("/marks", academicStaff, h.academics.RecordMark)
	academics.POST("/report-cards", academicStaff, h.academics.GenerateReportCard)

	reports := rg.Group("/reports")
	reports.Use(internalmiddleware.RequireReportViewer())
	reports.GET("", h.reports.ListReports)
	reports.POST("/generate", h.reports.GenerateReport)
	reports.GET("/status/:id", h.reports.ReportStatus)

	rg.GET("/system/metrics", internalmiddleware.RequireDirector(), h.metrics.System)
}
