package entrypoint

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"hiyori/internal/auth"
	"hiyori/internal/config"
	"hiyori/internal/database"
	"hiyori/internal/database/blobs"
	"hiyori/internal/database/books"
	"hiyori/internal/database/collections"
	http_controllers "hiyori/internal/http"
	"hiyori/internal/ingest"
	"hiyori/internal/scheduler"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Run wires the whole server together and blocks until shutdown.
func Run(cfg *config.Config, version string) {
	logrus.Infof("starting hiyori v%s", version)

	db, err := database.Connect(cfg.Database.URL)
	if err != nil {
		logrus.Fatalf("failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logrus.Errorf("error closing database: %v", err)
		}
	}()

	blobRepo := blobs.NewRepository(db.DB)
	bookRepo := books.NewRepository(db.DB, blobRepo)
	collectionRepo := collections.NewRepository(db.DB, blobRepo, bookRepo)
	ingestService := ingest.NewService(collectionRepo, bookRepo)

	var sweep *scheduler.SweepScheduler
	if cfg.Sweep.Enabled {
		sweep = scheduler.NewSweepScheduler(blobRepo, cfg.Sweep.Schedule)
		if err := sweep.Start(); err != nil {
			logrus.Fatalf("failed to start sweep scheduler: %v", err)
		}
	} else {
		logrus.Info("orphan blob sweep disabled")
	}

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Collections:    collectionRepo,
		Books:          bookRepo,
		Ingest:         ingestService,
		AuthMiddleware: auth.NewMiddleware(cfg.Auth.SharedSecret),
	})

	onShutdown := func(ctx context.Context) {
		if sweep != nil {
			sweep.Stop()
		}
	}

	Serve(router, cfg, onShutdown)
}

// Serve runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully within the configured timeout.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	srv := &http.Server{
		Addr:    cfg.HTTP.BindURL,
		Handler: router,
	}

	go func() {
		logrus.Infof("listening on %s", cfg.HTTP.BindURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Infof("shutting down, waiting up to %v", cfg.Global.ShutdownTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Global.ShutdownTimeout)
	defer cancel()

	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Fatalf("server shutdown: %v", err)
	}

	logrus.Info("server exiting")
}
