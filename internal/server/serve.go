package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/atelierhq/easel/internal/logging"
)

const shutdownTimeout = 5 * time.Second

// Serve runs an HTTP server on addr until ctx is cancelled, then shuts
// it down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errChan := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logging.FromContext(ctx).InfoContext(ctx, "Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
