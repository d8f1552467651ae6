package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long: `Applies the idempotent schema to DATABASE_URL. The chunk embedding
column is sized from EMBEDDING_DIMENSIONS.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	db, err := postgres.Connect(ctx, postgres.Config{
		URL:          cfg.Database.URL,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if err := db.InitSchema(ctx, cfg.Embedding.Dimensions); err != nil {
		return err
	}

	logger.Info("schema up to date", "dimensions", cfg.Embedding.Dimensions)
	return nil
}
