package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jiwoo-ai/jiwoo/internal/database"
)

var (
	dropConfirmed       bool
	companiesCollection bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := configFrom(cmd)
		if err := database.RunMigrations(cfg.DB.DSN(), cfg.DB.MigrationsPath); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}

var createCollectionCmd = &cobra.Command{
	Use:   "create-collection",
	Short: "Create the vector collection, or verify its dimension if it exists",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		idx, pool, err := openIndex(cmd)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := idx.EnsureCollection(cmd.Context()); err != nil {
			return err
		}
		n, err := idx.Count(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "collection %s ready: dimension %d, %d records\n", collectionTable(configFrom(cmd)), idx.Dimension(), n)
		return nil
	},
}

var dropCollectionCmd = &cobra.Command{
	Use:   "drop-collection",
	Short: "Drop the vector collection and every record in it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !dropConfirmed {
			return errors.New("refusing to drop without --yes")
		}

		idx, pool, err := openIndex(cmd)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := idx.DropCollection(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "collection dropped")
		return nil
	},
}

func init() {
	RootCmd.AddCommand(migrateCmd)
	RootCmd.AddCommand(createCollectionCmd)
	RootCmd.AddCommand(dropCollectionCmd)
	dropCollectionCmd.Flags().BoolVar(&dropConfirmed, "yes", false, "Confirm dropping the collection")
	for _, c := range []*cobra.Command{createCollectionCmd, dropCollectionCmd} {
		c.Flags().BoolVar(&companiesCollection, "companies", false, "Manage the company profile collection")
	}
}
