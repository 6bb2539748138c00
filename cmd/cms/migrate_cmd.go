package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tendant/simple-cms/pkg/simplecms/migrate"
)

var flagModules []string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Read data from a legacy site database",
}

var migrateRowsCmd = &cobra.Command{
	Use:   "rows <migration.yml>",
	Short: "Print the source rows a migration would import",
	Long: `Rows reads the legacy database named by MIGRATE_DB_DRIVER and
MIGRATE_DB_DSN through the migration's source plugin and prints one JSON
object per row.

Example:
  CMS_MIGRATE_DB_DSN=d6.sqlite cms migrate rows migrations/d6_user_picture.yml`,
	Args: cobra.ExactArgs(1),
	RunE: runMigrateRows,
}

var migrateSourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the available source plugins",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, id := range migrate.DefaultRegistry().IDs() {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

func init() {
	migrateRowsCmd.Flags().StringSliceVar(&flagModules, "modules", []string{"system", "user"}, "modules enabled on the legacy site")
	migrateCmd.AddCommand(migrateRowsCmd)
	migrateCmd.AddCommand(migrateSourcesCmd)
}

type rowOutput struct {
	IDs    map[string]any `json:"ids"`
	Source map[string]any `json:"source"`
}

func runMigrateRows(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	m, err := migrate.LoadMigrationFile(args[0])
	if err != nil {
		return err
	}

	db, err := serverCfg.OpenMigrationDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	exec, err := migrate.NewExecutable(m, migrate.DefaultRegistry(), db,
		migrate.StaticModules(flagModules), migrate.WithLogger(logger))
	if err != nil {
		return err
	}
	rows, err := exec.Rows(ctx)
	if err != nil {
		return fmt.Errorf("read rows for %s: %w", m.ID, err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, row := range rows {
		if err := enc.Encode(rowOutput{IDs: row.IDs(), Source: row.Source()}); err != nil {
			return err
		}
	}
	logger.Info("Read migration rows", "migration", m.ID, "rows", len(rows))
	return nil
}
