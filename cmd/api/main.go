package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joshu-sajeev/hrqueue/internal/config"
	"github.com/joshu-sajeev/hrqueue/internal/job"
	"github.com/joshu-sajeev/hrqueue/internal/registry"
	"github.com/joshu-sajeev/hrqueue/internal/storage/postgres"
	"github.com/joshu-sajeev/hrqueue/internal/worker"
	"github.com/joshu-sajeev/hrqueue/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("api exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIConfig(ctx)
	if err != nil {
		return err
	}

	db, err := postgres.ConnectDB(ctx, nil)
	if err != nil {
		return err
	}
	if err := postgres.RunMigrations(ctx, db); err != nil {
		return err
	}

	// The API only validates against the registry; handlers run in the worker.
	kinds := registry.New()
	worker.RegisterHandlers(kinds, logger)

	service := job.NewJobService(postgres.NewJobRepository(db), kinds, cfg.DefaultJobDelay)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestLogger(logger),
		middleware.TimeoutMiddleware(cfg.RequestTimeout),
		middleware.ErrorHandler(),
	)
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	job.RegisterRoutes(router, job.NewJobHandler(service))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           otelhttp.NewHandler(router, "hrqueue-api"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening", "addr", cfg.Addr)
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

	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}
