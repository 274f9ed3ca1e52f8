package main

import (
	"context"
	"fmt"
	"sync"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/0x0BSoD/newsPipeline/internal/config"
	"github.com/0x0BSoD/newsPipeline/internal/logging"
)

func feedsCmd() *cobra.Command {
	var probe bool

	cmd := &cobra.Command{
		Use:   "feeds",
		Short: "List configured feeds",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			logging.Setup(cfg.LogLevel, cfg.LogFormat)

			feeds, err := loadFeeds(cfg)
			if err != nil {
				return err
			}

			status := make([]string, len(feeds))
			if probe {
				var wg sync.WaitGroup
				for i, src := range sources(feeds) {
					wg.Add(1)
					go func() {
						defer wg.Done()

						ctx, cancel := context.WithTimeout(cmd.Context(), cfg.FetchTimeout)
						defer cancel()

						items, err := src.Fetch(ctx)
						if err != nil {
							status[i] = "error: " + err.Error()
							return
						}
						status[i] = fmt.Sprintf("%d items", len(items))
					}()
				}
				wg.Wait()
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for i, f := range feeds {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.Name, f.Kind, f.URL, status[i])
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&probe, "probe", false, "fetch every feed and report how many items it returns")

	return cmd
}
