package app

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"editorial-cache/internal/common/logging"
	"editorial-cache/internal/handlers"
	"editorial-cache/internal/scheduler"
	"editorial-cache/internal/server"
)

// RunServer builds the HTTP server and the maintenance scheduler
func (app *App) RunServer(addr string) (*server.Server, *scheduler.Scheduler, http.Handler, error) {
	h := handlers.New(app.Store, app.Cache)

	router := mux.NewRouter()
	SetupRoutes(router, h)

	sched, err := scheduler.New(scheduler.Config{
		SweepSchedule: app.Config.SweepSchedule,
		PurgeSchedule: app.Config.PurgeSchedule,
		PurgeAfter:    app.Config.PurgeAfterDuration(),
	}, app.Cache, app.Store)
	if err != nil {
		return nil, nil, nil, err
	}

	if addr == "" {
		addr = app.Config.HTTPAddr
	}
	srv := server.New(router, addr)

	return srv, sched, router, nil
}

// Shutdown gracefully shuts down the application
func (app *App) Shutdown(ctx context.Context, srv *server.Server, sched *scheduler.Scheduler) error {
	if sched != nil {
		sched.Stop(ctx)
		app.Logger.Info("Scheduler stopped")
	}

	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			app.Logger.Warn("Error stopping HTTP server", logging.Err(err))
			return err
		}
		app.Logger.Info("HTTP server stopped")
	}
	return nil
}
