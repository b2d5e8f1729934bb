package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/duckieducksrgood/winchpoint/configs"
	"github.com/duckieducksrgood/winchpoint/pkg/logging"
	"github.com/duckieducksrgood/winchpoint/pkg/mailer"
	"github.com/duckieducksrgood/winchpoint/pkg/storage"
	"github.com/duckieducksrgood/winchpoint/routes"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	cfg := configs.LoadConfig()

	log, closeLog, err := logging.New(logging.Options{
		Service: "winchpoint", Env: cfg.AppEnv, Level: cfg.LogLevel, File: cfg.LogFile,
	})
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = log.Sync()
		_ = closeLog()
	}()
	zap.ReplaceGlobals(log)

	if err := run(cfg, log); err != nil {
		log.Fatal("server_exit", zap.Error(err))
	}
}

func run(cfg *configs.Config, log *zap.Logger) error {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// DB
	if err := configs.ConnectionDB(cfg); err != nil {
		return err
	}
	if err := configs.SetupDatabase(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := configs.SeedAdmin(log); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if err := configs.SeedLookups(log); err != nil {
		return fmt.Errorf("seed lookups: %w", err)
	}

	// Outside world
	var mail mailer.Sender = mailer.LogSender{Log: log}
	if cfg.SMTPUser != "" && cfg.SMTPPassword != "" {
		mail = mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)
	} else {
		log.Warn("smtp_disabled", zap.String("reason", "SMTP_USER or SMTP_PASSWORD not set"))
	}
	store, err := storage.NewS3(storage.Options{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		UseSSL:    cfg.S3UseSSL,
		TTL:       cfg.S3UploadTTL,
		MaxBytes:  cfg.S3MaxUpload,
	})
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app, err := routes.Build(configs.DB(), cfg, log, routes.Deps{Mail: mail, Store: store, Registry: reg})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app.Bus.Start(ctx)
	go app.Hub.Run(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("server_started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("server_shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_failed", zap.Error(err))
	}
	app.Bus.Stop(shutdownCtx)
	return nil
}
