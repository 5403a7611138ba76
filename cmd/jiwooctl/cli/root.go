package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/jiwoo-ai/jiwoo/internal/config"
	"github.com/jiwoo-ai/jiwoo/internal/database"
	"github.com/jiwoo-ai/jiwoo/internal/index"
	"github.com/jiwoo-ai/jiwoo/internal/logging"
)

// RootCmd is the admin tool for the similarity index.
var RootCmd = &cobra.Command{
	Use:   "jiwooctl",
	Short: "Manage the jiwoo similarity index",
	Long: `jiwooctl creates and drops the vector collection, applies database
migrations and loads text documents into the index. It reads the same
environment and .env settings as the API server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logging.Setup(cfg.Log)
		cmd.SetContext(withConfig(cmd.Context(), cfg))
		return nil
	},
}

func Execute() {
	if err := RootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type configKey struct{}

func withConfig(ctx context.Context, cfg *config.Config) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, configKey{}, cfg)
}

func configFrom(cmd *cobra.Command) *config.Config {
	cfg, _ := cmd.Context().Value(configKey{}).(*config.Config)
	return cfg
}

// openIndex connects to Postgres, running migrations first.
func openIndex(cmd *cobra.Command) (*index.PostgresIndex, *pgxpool.Pool, error) {
	cfg := configFrom(cmd)
	if cfg.Index.Backend != "postgres" {
		return nil, nil, fmt.Errorf("INDEX_BACKEND is %q, jiwooctl only manages the postgres index", cfg.Index.Backend)
	}

	pool, err := database.Open(cmd.Context(), cfg.DB)
	if err != nil {
		return nil, nil, err
	}
	return index.NewPostgresIndex(pool, collectionTable(cfg), cfg.Index.Dimension), pool, nil
}

// collectionTable picks the documents or company table per --companies.
func collectionTable(cfg *config.Config) string {
	if companiesCollection {
		return cfg.Index.CompanyTable
	}
	return cfg.Index.Table
}
