package main

import (
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/0x0BSoD/newsPipeline/internal/config"
	"github.com/0x0BSoD/newsPipeline/internal/logging"
	"github.com/0x0BSoD/newsPipeline/internal/storage"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the news_items table and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			logging.Setup(cfg.LogLevel, cfg.LogFormat)

			db, err := sqlx.Connect("postgres", cfg.DatabaseDSN)
			if err != nil {
				return fmt.Errorf("connect to db: %w", err)
			}
			defer db.Close()

			if err := storage.Migrate(cmd.Context(), db); err != nil {
				return err
			}

			slog.Info("schema is up to date")
			return nil
		},
	}
}
