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

	"github.com/cmlabs-hris/presence-backend-go/internal/config"
	appHTTP "github.com/cmlabs-hris/presence-backend-go/internal/handler/http"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/cron"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/storage"
	"github.com/cmlabs-hris/presence-backend-go/internal/repository/postgresql"
	"github.com/cmlabs-hris/presence-backend-go/internal/service/file"
	presenceService "github.com/cmlabs-hris/presence-backend-go/internal/service/presence"
	reportService "github.com/cmlabs-hris/presence-backend-go/internal/service/report"
	"github.com/go-chi/httplog/v3"
)

const version = "v1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	logFormat := httplog.SchemaECS.Concise(!cfg.IsProduction())
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       cfg.LogLevel(),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "presence-ledger"),
		slog.String("version", version),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolOptions{})
	if err != nil {
		logger.Error("Error connecting to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	configRepo := postgresql.NewEmployeeConfigRepository(db)
	holidayRepo := postgresql.NewHolidayRepository(db)
	leavePeriodRepo := postgresql.NewLeavePeriodRepository(db)
	reportRepo := postgresql.NewReportRepository(db)
	modificationRepo := postgresql.NewModificationRepository(db)

	fileStorage, err := storage.NewLocalStorage(cfg.Storage.BasePath)
	if err != nil {
		logger.Error("Failed to initialize local storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	upload := file.DefaultPunchUpload
	upload.MaxSize = cfg.Storage.MaxUploadSize
	fileService := file.NewFileService(fileStorage, upload)

	hub := sse.NewHub(10)
	builder := presenceService.NewBuilder(cfg.Rules, cfg.Report.Workers, logger)
	presenceSvc := presenceService.NewPresenceService(configRepo, holidayRepo, leavePeriodRepo)
	reportSvc := reportService.NewReportService(db, reportRepo, modificationRepo, presenceSvc, fileService, builder, hub, logger)

	scheduler := cron.NewScheduler(logger)
	cron.NewRetentionJobs(reportSvc, cfg.Report.Retention, cfg.Report.PurgeInterval, logger).RegisterJobs(scheduler)
	scheduler.Start()
	defer scheduler.Stop()

	reportHandler := appHTTP.NewReportHandler(reportSvc, fileService, cfg.Storage.MaxUploadSize)
	presenceHandler := appHTTP.NewPresenceHandler(presenceSvc)
	eventHandler := appHTTP.NewEventHandler(hub)

	requestLevel := slog.LevelInfo
	if !cfg.IsProduction() {
		requestLevel = slog.LevelDebug
	}
	router := appHTTP.NewRouter(appHTTP.RouterOptions{
		Logger:          logger,
		AllowedOrigins:  cfg.App.CORSOrigins,
		RequestLogLevel: requestLevel,
	}, reportHandler, presenceHandler, eventHandler)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server running", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", slog.String("error", err.Error()))
	}
}
