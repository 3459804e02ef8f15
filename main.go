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

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"taller-ocr/pkg/engine"
	"taller-ocr/pkg/ocr"
)

func main() {
	// A local .env is optional; variables already set take precedence.
	_ = godotenv.Load()

	log := newLogger(os.Getenv("LOG_LEVEL"))
	if err := run(log, os.Args[1:]); err != nil {
		log.WithError(err).Fatal("taller-ocr stopped")
	}
}

// run wires the server and blocks until a signal or a listener failure. Deferred cleanup always
// runs before it returns.
func run(log *logrus.Logger, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// `taller-ocr migrate` runs AutoMigrate and exits.
	if len(args) > 0 && args[0] == "migrate" {
		cfg.AutoMigrate = true
		if cfg.DBDSN == "" {
			return errors.New("migrate requires DB_DSN")
		}
		if _, err := openDB(cfg, log); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		log.Info("migration completed")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec, closer, err := engine.New(ctx, cfg.Engine, os.LookupEnv)
	if err != nil {
		return fmt.Errorf("OCR engine init failed: %w", err)
	}
	defer closer.Close()
	log.WithField("engine", rec.Name()).Info("OCR engine ready")

	db, err := openDB(cfg, log)
	if err != nil {
		return fmt.Errorf("database init failed: %w", err)
	}
	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET not set; endpoints are open")
	}

	svc := ocr.NewService(rec, log)
	svc.Searcher.Parallelism = cfg.Parallelism
	svc.Searcher.LanguageHints = []string{cfg.Language}

	if mode := os.Getenv("GIN_MODE"); mode != "" {
		gin.SetMode(mode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := newRouter(&server{cfg: cfg, svc: svc, engine: rec.Name(), db: db, log: log})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return serve(ctx, srv, log)
}

// serve runs srv until ctx is done, then shuts it down gracefully. A listener failure is
// returned instead of exiting the process.
func serve(ctx context.Context, srv *http.Server, log logrus.FieldLogger) error {
	serveErr := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("server listening")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown failed")
	}
	log.Info("server stopped")
	return nil
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	log.SetOutput(os.Stdout)
	if lvl, err := logrus.ParseLevel(level); err == nil {
		log.SetLevel(lvl)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}
