// cmd/stackharmony/admin.go
package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/julianshen/stackharmony/internal/heuristic"
	"github.com/julianshen/stackharmony/internal/output"
	"github.com/julianshen/stackharmony/internal/runner"
	"github.com/julianshen/stackharmony/internal/seed"
	"github.com/julianshen/stackharmony/internal/server"
)

func (c *cli) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed [file.yaml]",
		Short: "Load categories, tools and compatibility edges into the store",
		Long: `Apply a YAML seed document to the configured store. Tools and edges
are matched by name and pair, so seeding twice updates instead of duplicating.
Without a file the built-in sample catalog is applied.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			doc, err := seed.Load(path)
			if err != nil {
				return err
			}
			return c.run(cmd, "seed", false, func(ctx context.Context, a *app) (*output.Report, error) {
				res, err := seed.Apply(ctx, a.backend, doc, a.log.Named("seed"))
				return &output.Report{Seeded: &res}, err
			})
		},
	}
}

func (c *cli) generateCmd() *cobra.Command {
	var fileFlag string
	cmd := &cobra.Command{
		Use:   "generate [tool-id...]",
		Short: "Estimate and store compatibility for pairs with no edge",
		Long: `Fill gaps in the compatibility graph with heuristic estimates. Only
pairs with no edge are written; curated edges are never touched. Without ids
every tool in the catalog is considered.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var ids []int64
			if len(args) > 0 || fileFlag != "" {
				var err error
				if ids, err = runner.ResolveIDs(args, fileFlag, nil); err != nil {
					return err
				}
			}
			return c.run(cmd, "generate", false, func(ctx context.Context, a *app) (*output.Report, error) {
				if len(ids) == 0 {
					all, err := a.allToolIDs(ctx)
					if err != nil {
						return nil, err
					}
					ids = all
				}
				gen := heuristic.NewGenerator(a.backend.Tools(), a.backend.Compatibilities(),
					heuristic.WithLogger(a.log.Named("heuristic")),
					heuristic.WithMetrics(a.metrics),
					heuristic.WithParallelism(a.cfg.Engine.Parallelism))
				res, err := gen.Fill(ctx, ids)
				return &output.Report{Generated: &res}, err
			})
		},
	}
	cmd.Flags().StringVar(&fileFlag, "file", "", "read tool ids from file")
	return cmd
}

func (c *cli) serveCmd() *cobra.Command {
	var addrFlag string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addrFlag != "" {
				c.cfg.Server.Addr = addrFlag
			}
			return c.withApp(cmd.Context(), func(a *app) error {
				srv := server.New(server.Deps{
					Backend:  a.backend,
					Engine:   a.engine,
					Logger:   a.log.Named("http"),
					Metrics:  a.metrics,
					Gatherer: a.registry,
					Config:   a.cfg.Server,
				})
				a.log.Info("starting server",
					zap.String("addr", a.cfg.Server.Addr),
					zap.String("store", a.cfg.Store.Driver),
					zap.String("version", version))
				return srv.Run(cmd.Context())
			})
		},
	}
	cmd.Flags().StringVar(&addrFlag, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
