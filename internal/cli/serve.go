package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alwitt/goutils"
	"github.com/alwitt/karte/api"
	"github.com/apex/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

// shutdownGracePeriod time allowed for in-flight requests when stopping
const shutdownGracePeriod = 10 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the visit record HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, rootOpts)
		},
	}
}

func serve(ctx context.Context, opts *RootOptions) error {
	logTags := log.Fields{"module": "cli", "component": "serve"}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	records, persistence, err := openRecordService(ctx, opts, registry)
	if err != nil {
		return err
	}
	defer func() { _ = persistence.Close() }()

	handler, err := api.NewRecordHandler(
		records,
		opts.Config.API.RequestIDHeader,
		goutils.HTTPRequestLogLevel(opts.Config.API.RequestLogLevel),
	)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              opts.Config.API.ListenAddress,
		Handler:           api.NewRouter(handler, registry),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.WithFields(logTags).
			WithField("listen_address", server.Addr).
			Info("Serving visit record API")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed [%w]", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.WithFields(logTags).Info("Stopping visit record API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown failed [%w]", err)
	}
	return nil
}
