package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/config"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/overdue"
	appHTTP "github.com/cmlabs-hris/timeclock-backend-go/internal/handler/http"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/cron"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/lock"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/messaging"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/migrations"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/repository/postgresql"
	approvalService "github.com/cmlabs-hris/timeclock-backend-go/internal/service/approval"
	breakService "github.com/cmlabs-hris/timeclock-backend-go/internal/service/breaks"
	identityService "github.com/cmlabs-hris/timeclock-backend-go/internal/service/identity"
	overdueService "github.com/cmlabs-hris/timeclock-backend-go/internal/service/overdue"
	overtimeService "github.com/cmlabs-hris/timeclock-backend-go/internal/service/overtime"
	punchService "github.com/cmlabs-hris/timeclock-backend-go/internal/service/punch"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL(), database.PoolConfig{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		slog.Error("Error connecting to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.MigrateOnStart {
		if err := migrations.Up(ctx, db); err != nil {
			slog.Error("Error applying migrations", "error", err)
			os.Exit(1)
		}
	}

	txManager := postgresql.NewTxManager(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	dealershipRepo := postgresql.NewDealershipRepository(db)
	assignmentRepo := postgresql.NewAssignmentRepository(db)
	timeEntryRepo := postgresql.NewTimeEntryRepository(db)
	breakRepo := postgresql.NewBreakRepository(db)
	reminderRepo := postgresql.NewReminderRepository(db)
	aggregateRepo := postgresql.NewWeeklyAggregateRepository(db)
	auditRepo := postgresql.NewAuditRepository(db)

	var locker overdue.Locker
	if cfg.Redis.Addr != "" {
		redisClient, err := lock.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			slog.Error("Error connecting to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		locker = lock.NewRedisLocker(redisClient)
	} else {
		slog.Warn("REDIS_ADDR not set, overdue sweeps run without a cross-process lease")
	}

	var dispatcher overdue.Dispatcher
	if len(cfg.Kafka.Brokers) > 0 {
		writer := messaging.NewKafkaWriter(cfg.Kafka.Brokers)
		defer writer.Close()
		dispatcher = messaging.NewKafkaDispatcher(writer, cfg.Kafka.ReminderTopic)
	} else {
		slog.Warn("KAFKA_BROKERS not set, overdue notices are only logged")
		dispatcher = messaging.NewLogDispatcher()
	}

	JWTService := jwt.NewJWTService(cfg.JWT.Secret)
	authorizer := identityService.NewAuthorizer(employeeRepo, assignmentRepo)
	overtimeSvc := overtimeService.NewOvertimeService(txManager, aggregateRepo, dealershipRepo, authorizer, overtimeService.Config{
		WeeklyThresholdHours: cfg.Overtime.WeeklyThresholdHours,
		WeekStartDay:         cfg.Overtime.WeekStartDay,
	})
	breakSvc := breakService.NewBreakService(txManager, timeEntryRepo, breakRepo, assignmentRepo, authorizer, overtimeSvc)
	punchSvc := punchService.NewPunchService(txManager, timeEntryRepo, breakRepo, assignmentRepo, reminderRepo, breakSvc, overtimeSvc, authorizer)
	approvalSvc := approvalService.NewApprovalService(txManager, timeEntryRepo, auditRepo, authorizer)
	overdueSvc := overdueService.NewOverdueService(txManager, reminderRepo, timeEntryRepo, dealershipRepo, breakSvc, overtimeSvc, authorizer, dispatcher, locker, overdueService.Config{
		Concurrency: cfg.Sweep.Concurrency,
		LeaseTTL:    cfg.Sweep.LeaseTTL,
	})

	scheduler := cron.NewScheduler()
	cron.NewOverdueJobs(overdueSvc, cfg.Sweep.Interval).RegisterJobs(scheduler)
	scheduler.Start()
	defer scheduler.Stop()

	router := appHTTP.NewRouter(JWTService, appHTTP.Handlers{
		Punch:     appHTTP.NewPunchHandler(punchSvc),
		Break:     appHTTP.NewBreakHandler(breakSvc),
		TimeEntry: appHTTP.NewTimeEntryHandler(punchSvc, approvalSvc),
		Overdue:   appHTTP.NewOverdueHandler(overdueSvc),
		Overtime:  appHTTP.NewOvertimeHandler(overtimeSvc),
	}, appHTTP.RouterOptions{
		AllowedOrigins: cfg.App.AllowedOrigins,
		Env:            cfg.App.Env,
		LogLevel:       cfg.SlogLevel(),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", "error", err)
	}
}
