package cli

import (
	"context"
	"fmt"

	"github.com/alwitt/karte/db"
	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dialector, err := rootOpts.Config.Database.Dialector()
			if err != nil {
				return err
			}
			persistence, err := db.NewConnection(dialector, rootOpts.Config.Database.SQLLogLevel())
			if err != nil {
				return err
			}
			defer func() { _ = persistence.Close() }()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := persistence.RunSQLInTransaction(ctx, db.DefineTables); err != nil {
				return fmt.Errorf("failed to define tables [%w]", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "tables ready")
			return nil
		},
	}
}
