package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/waypoint"
	"github.com/vango-dev/waypoint/internal/catalog"
	werrors "github.com/vango-dev/waypoint/internal/errors"
	"github.com/vango-dev/waypoint/pkg/host"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		addr    string
		user    string
		roles   []string
		metrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the navigation API over HTTP",
		Long: `Serve a single navigation session over HTTP.

Endpoints: /navigate, /render, /back, /current, /routes, /events (WebSocket),
/metrics and /healthz.

Examples:
  waypoint serve
  waypoint serve --addr=:9000 --as=1 --role=admin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Host.Addr = addr
			}
			if cmd.Flags().Changed("metrics") {
				cfg.Metrics.Enabled = metrics
			}

			session := catalog.NewSession()
			if user != "" {
				session.SignIn(user, roles...)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := buildApp(ctx, cfg, session, waypoint.Config{Metrics: cfg.Metrics.Enabled})
			if err != nil {
				return err
			}
			return serve(ctx, cfg.Host.Addr, app.Handler(host.WithTimeout(cfg.NavigationTimeout())))
		},
	}

	f := cmd.Flags()
	f.StringVarP(&addr, "addr", "a", "", "Listen address (default from config)")
	f.StringVar(&user, "as", "", "Sign the session in as this user id")
	f.StringSliceVar(&roles, "role", nil, "Roles of the signed-in user")
	f.BoolVar(&metrics, "metrics", true, "Expose /metrics")
	return cmd
}

func serve(ctx context.Context, addr string, handler *host.Server) error {
	defer handler.Close()

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	success("Listening on http://%s", addr)
	info("Press Ctrl+C to stop")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return werrors.New("W400").WithDetail(err.Error()).Wrap(err)
	case <-ctx.Done():
	}

	info("Shutting down...")
	handler.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
