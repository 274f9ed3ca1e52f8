package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/0x0BSoD/newsPipeline/internal/api"
	"github.com/0x0BSoD/newsPipeline/internal/pipeline"
	"github.com/0x0BSoD/newsPipeline/internal/storage"
)

func serveCmd() *cobra.Command {
	var noScheduler bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the pipeline scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := storage.Migrate(ctx, a.db); err != nil {
				return err
			}

			server := api.New(a.news, a.pipeline)
			g, ctx := errgroup.WithContext(ctx)

			g.Go(func() error {
				return server.Start(a.cfg.HTTPAddr)
			})
			g.Go(func() error {
				<-ctx.Done()
				return server.Shutdown(context.Background())
			})
			if !noScheduler {
				g.Go(func() error {
					err := pipeline.NewScheduler(a.pipeline, a.cfg.PipelineInterval).Start(ctx)
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				})
			}

			err = g.Wait()
			slog.Info("shutting down")
			return err
		},
	}
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "serve the API without running the pipeline on a timer")

	return cmd
}
