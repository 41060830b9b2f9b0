// Command backfill recomputes the weekly overtime aggregate of every employee-week that
// has a closed time entry. It is safe to run repeatedly.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/config"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/repository/postgresql"
	identityService "github.com/cmlabs-hris/timeclock-backend-go/internal/service/identity"
	overtimeService "github.com/cmlabs-hris/timeclock-backend-go/internal/service/overtime"
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

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL(), database.PoolConfig{MaxConns: 4, MinConns: 1})
	if err != nil {
		slog.Error("Error connecting to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	authorizer := identityService.NewAuthorizer(postgresql.NewEmployeeRepository(db), postgresql.NewAssignmentRepository(db))
	svc := overtimeService.NewOvertimeService(
		postgresql.NewTxManager(db),
		postgresql.NewWeeklyAggregateRepository(db),
		postgresql.NewDealershipRepository(db),
		authorizer,
		overtimeService.Config{
			WeeklyThresholdHours: cfg.Overtime.WeeklyThresholdHours,
			WeekStartDay:         cfg.Overtime.WeekStartDay,
		},
	)

	result, err := svc.Backfill(ctx)
	if err != nil {
		slog.Error("Backfill failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Backfill finished", "processed", result.Processed, "failed", result.Failed)
	if result.Failed > 0 {
		os.Exit(2)
	}
}
