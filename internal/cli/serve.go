package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/evcraddock/smartrent/internal/app"
	"github.com/evcraddock/smartrent/internal/config"
	"github.com/evcraddock/smartrent/internal/logging"
	"github.com/evcraddock/smartrent/internal/notify"
	"github.com/evcraddock/smartrent/internal/web"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Long:  "Serve the SmartRent JSON API over HTTP until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "address to listen on (default: server.addr, :8080)")

	return cmd
}

func runServe(cmd *cobra.Command, addr string) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.Server.Addr
	}

	logging.Setup(cfg.DevMode)
	log := slog.Default()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{
		ConfigPath: path,
		Sink:       notify.LogSink{Logger: log},
		Log:        log,
	})
	if err != nil {
		return fmt.Errorf("opening backend: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("closing backend", "error", err)
		}
	}()

	fmt.Fprintf(cmd.ErrOrStderr(), "Serving SmartRent API on %s\n", addr)
	return web.NewServer(a, log).ListenAndServe(ctx, addr)
}
