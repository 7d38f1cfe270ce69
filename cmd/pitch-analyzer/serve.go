package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"pitch-analyzer/internal/server"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := opts.setup(ctx, "")
			if err != nil {
				return err
			}
			defer rt.close()

			if port > 0 {
				rt.cfg.Server.Port = port
			}

			router := server.NewRouter(server.Deps{
				Analyzer:    rt.orch,
				HealthCheck: rt.stores.Ping,
				Gatherer:    prometheus.DefaultGatherer,
				Logger:      rt.log,
			})
			return server.New(rt.cfg.Server, router, rt.log).ListenAndServe(ctx)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides server.port)")
	return cmd
}
