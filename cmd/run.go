package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/0x0BSoD/newsPipeline/internal/pipeline"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "run [collector|summarizer|tagger|publisher|pipeline]",
		Short:     "Run one stage, or the whole pipeline, once",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{pipeline.StageCollector, pipeline.StageSummarizer, pipeline.StageTagger, pipeline.StagePublisher, pipeline.StagePipeline},
		RunE: func(cmd *cobra.Command, args []string) error {
			stage := pipeline.StagePipeline
			if len(args) == 1 {
				stage = args[0]
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.pipeline.RunStage(ctx, stage)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}
