package bus

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/BioHazard786/Warpdraw/internal/observability"
)

const shutdownTimeout = 5 * time.Second

// Serve runs a bus on addr until ctx is cancelled. ready, when non-nil, is
// called with the bound address once the listener is up.
func Serve(ctx context.Context, addr, version string, logger *slog.Logger, ready func(net.Addr)) error {
	if logger == nil {
		logger = slog.Default()
	}
	observability.RegisterMetrics()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()

	hub := NewHub(logger)
	go hub.Run(hubCtx)

	srv := &http.Server{
		Handler:           NewRouter(hub, version, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	logger.Info("bus listening", "addr", ln.Addr().String())
	if ready != nil {
		ready(ln.Addr())
	}

	select {
	case err := <-errCh:
		stopHub()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown; stopping the
	// hub closes them.
	stopHub()
	<-hub.Done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("bus stopped")
	return nil
}
