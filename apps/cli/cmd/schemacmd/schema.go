package schemacmd

import (
	"fmt"

	"github.com/spf13/cobra"

	sqlassets "github.com/toke-hq/toke-backend/database"
	"github.com/toke-hq/toke-backend/platform/go/persistence"
)

// Command groups schema bootstrap helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Schema bootstrap helpers",
	}

	cmd.AddCommand(applyCommand())
	return cmd
}

func applyCommand() *cobra.Command {
	var (
		databaseURL string
		target      string
	)

	c := &cobra.Command{
		Use:   "apply",
		Short: "Apply the master or tenant schema to a database",
		RunE: func(cmd *cobra.Command, args []string) error {
			var ddl string
			switch target {
			case "master":
				ddl = sqlassets.TenantsSQL
			case "tenant":
				ddl = sqlassets.TimeEntriesSQL
			default:
				return fmt.Errorf("unknown schema target %q (use master or tenant)", target)
			}

			ctx := cmd.Context()
			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			if _, err := pool.Exec(ctx, ddl); err != nil {
				return fmt.Errorf("apply %s schema: %w", target, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s schema applied\n", target)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "postgres connection string")
	c.Flags().StringVar(&target, "target", "", "schema to apply: master or tenant")
	_ = c.MarkFlagRequired("database-url")
	_ = c.MarkFlagRequired("target")

	return c
}
