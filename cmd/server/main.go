package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ChristopherDuggan/django-rest-framework/internal/admin"
	"github.com/ChristopherDuggan/django-rest-framework/internal/config"
	"github.com/ChristopherDuggan/django-rest-framework/internal/database"
	"github.com/ChristopherDuggan/django-rest-framework/internal/handler"
	"github.com/ChristopherDuggan/django-rest-framework/internal/logger"
	"github.com/ChristopherDuggan/django-rest-framework/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(cfg)

	// Initialize database
	db, err := database.Open(cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to the database")
	}
	if err = database.Migrate(db); err != nil {
		log.WithError(err).Fatal("failed to migrate the database")
	}

	// Initialize services
	cohortService := service.NewCohortService(db)
	studentService := service.NewStudentService(db)
	adminService := service.NewAdminService(db)
	importService := service.NewImportService(db, log, cfg.Import)

	adminSite, err := admin.New(cohortService, studentService, adminService, cfg.AdminRealm, log)
	if err != nil {
		log.WithError(err).Fatal("failed to build the admin site")
	}

	router := handler.NewRouter(handler.Deps{
		Cohorts:  cohortService,
		Students: studentService,
		Imports:  importService,
		Admin:    adminSite,
		Health: func(ctx context.Context) error {
			return database.Ping(ctx, db)
		},
		Log:            log,
		BaseURL:        cfg.HTTP.BaseURL,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		MaxUploadBytes: cfg.Import.MaxUploadBytes,
	})

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		log.WithField("addr", cfg.HTTP.Addr).Info("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err = srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("server shutdown failed")
	}

	// let running imports finish within the same deadline
	done := make(chan struct{})
	go func() {
		importService.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Warn("import jobs still running at shutdown")
	}

	if err = database.Close(db); err != nil {
		log.WithError(err).Error("failed to close the database")
	}
	log.Info("server exited properly")
}
