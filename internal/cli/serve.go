package cli

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vtprint/vtp/internal/server"
	"github.com/vtprint/vtp/pkg/observability"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		project projectFlags
		cache   cacheFlags
		addr    string
		maxBody int64
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the transform API over HTTP",
		Long: `Serve the transform API over HTTP.

The project is loaded once at startup. Endpoints:
  GET  /healthz
  GET  /metrics
  GET  /v1/regions
  POST /v1/classify   {"x":..,"y":..,"z":..}
  POST /v1/transform  G-code body, transformed G-code response`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := project.load(cmd)
			if err != nil {
				return err
			}
			table, err := c.compileRegions(ctx, cfg)
			if err != nil {
				return err
			}
			runner, err := c.newRunner(ctx, cache)
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			defer runner.Close()

			hooks := observability.NewPromHooks(prometheus.DefaultRegisterer)
			observability.SetTransformHooks(hooks)
			observability.SetCacheHooks(hooks)
			observability.SetHTTPHooks(hooks)
			defer observability.Reset()

			srv := server.New(server.Options{
				Config:  cfg,
				Table:   table,
				Runner:  runner,
				Logger:  loggerFromContext(ctx),
				MaxBody: maxBody,
			})
			return srv.ListenAndServe(ctx, addr)
		},
	}

	project.register(cmd, true)
	cache.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().Int64Var(&maxBody, "max-body", server.DefaultMaxBody, "largest accepted program in bytes")

	return cmd
}
