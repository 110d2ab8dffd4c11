package cli

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/zkclaim/internal/server"
)

// NewServeCommand starts the HTTP API.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		addr           string
		requestTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the claim HTTP API and /metrics",
		Long: "Serves the claim endpoints under /api and Prometheus metrics under /metrics\n" +
			"until interrupted. --timeout, when set, stops the server after that long.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)

			a, err := rootOpts.openApp()
			if err != nil {
				return reportError(f, "server not started", err)
			}
			defer a.Close()

			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			srv := server.New(server.Config{
				Addr:            addr,
				ProofsDir:       a.cfg.Artifacts.ProofsDir,
				AggregationRole: a.cfg.Claim.AggregationRole,
				RequestTimeout:  requestTimeout,
			}, a.orch, a.store, a.registry, a.log)

			ctx, cancel := rootOpts.commandContext(cmd)
			defer cancel()

			f.VerboseLog("Listening on %s", addr)
			if err := srv.Run(ctx); err != nil {
				a.log.Error("server stopped", zap.Error(err))
				return WrapExitError(ExitCommandError, "server error", err)
			}
			a.log.Info("server stopped gracefully")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr or :$PORT)")
	cmd.Flags().DurationVar(&requestTimeout, "request-timeout", 0, "deadline for one claim request (0 = none)")
	return cmd
}
