package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"editorial-cache/internal/common/logging"
)

// Serve runs the HTTP API and the maintenance scheduler until ctx is done or
// the process receives SIGINT/SIGTERM.
func (app *App) Serve(ctx context.Context, addr string) error {
	srv, sched, _, err := app.RunServer(addr)
	if err != nil {
		logging.Error("Failed to build server", err)
		return err
	}

	// Start server
	errCh := srv.Start()
	sched.Start()
	logging.Info("Editorial cache API listening", logging.String("addr", srv.Addr()))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	var serveErr error
	select {
	case <-quit:
	case <-ctx.Done():
	case serveErr = <-errCh:
		logging.Error("HTTP server failed", serveErr)
	}

	logging.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.Shutdown(shutdownCtx, srv, sched); err != nil && serveErr == nil {
		serveErr = err
	}

	logging.Info("Server exited")
	return serveErr
}
