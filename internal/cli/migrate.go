package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Leganyst/table-booking/internal/model"
)

func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gdb, closeDB, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB()

			if err := model.AutoMigrate(gdb); err != nil {
				return fmt.Errorf("auto migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}
