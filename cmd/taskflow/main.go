package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"taskflow/internal/api"
	"taskflow/internal/bot"
	"taskflow/internal/config"
	"taskflow/internal/repository"
	"taskflow/internal/service"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "taskflow",
		Short: "Task management API with status history",
	}
	rootCmd.AddCommand(serveCmd(), migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, scheduler and notifier",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := repository.NewDB(cfg.DBDriver, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			closeDB(db)
			log.Println("[info] schema is up to date")
			return nil
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := repository.NewDB(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer closeDB(db)

	clock := service.SystemClock{}
	tx := repository.NewTransactor(db)
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	statusRepo := repository.NewStatusRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	subtaskRepo := repository.NewSubtaskRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	activitySvc := service.NewActivityService(activityRepo, clock)
	authSvc := service.NewAuthService(tx, userRepo, tokenRepo, statusRepo, categoryRepo, cfg.TokenTTL, clock)
	taskSvc := service.NewTaskService(tx, taskRepo, statusRepo, categoryRepo, activitySvc, cfg.ActivityLogMode, clock)
	subtaskSvc := service.NewSubtaskService(tx, taskRepo, subtaskRepo, statusRepo, activitySvc, cfg.ActivityLogMode, clock)

	scheduler := service.NewSchedulerService(time.Local)
	if _, err := scheduler.ScheduleInterval("purge-tokens", cfg.TokenPurgeInterval, func(ctx context.Context) error {
		n, err := authSvc.PurgeExpired(ctx)
		if err == nil && n > 0 {
			log.Printf("[info] purged %d expired tokens", n)
		}
		return err
	}); err != nil {
		return err
	}

	if cfg.NotificationsEnabled() {
		telegramBot, err := bot.New(cfg.TelegramToken, userRepo, service.NewDigestService(taskRepo))
		if err != nil {
			return err
		}
		taskSvc.SetNotifier(telegramBot)
		subtaskSvc.SetNotifier(telegramBot)
		if _, err := scheduler.ScheduleDaily("daily-digest", cfg.DigestTime, telegramBot.SendDailyDigests); err != nil {
			return err
		}
		go func() {
			if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("[warn] bot stopped with error: %v", err)
			}
		}()
	} else {
		log.Println("[info] TELEGRAM_TOKEN not set, notifications disabled")
	}

	scheduler.Start(ctx)
	defer scheduler.Stop()

	var accessLogs *repository.AccessLogRepository
	if cfg.AuditEnabled {
		accessLogs = repository.NewAccessLogRepository(db)
	}

	gin.SetMode(cfg.GinMode)
	router := api.NewRouter(api.Services{
		Auth:       authSvc,
		Users:      service.NewUserService(tx, userRepo, tokenRepo, clock),
		Statuses:   service.NewStatusService(statusRepo),
		Categories: service.NewCategoryService(categoryRepo),
		Tasks:      taskSvc,
		Subtasks:   subtaskSvc,
		AccessLogs: accessLogs,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[info] listening on %s (activity log mode: %s)", cfg.HTTPAddr, cfg.ActivityLogMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Println("[info] shutdown complete")
	return nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
