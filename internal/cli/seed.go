package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Leganyst/table-booking/internal/config"
	"github.com/Leganyst/table-booking/internal/model"
	"github.com/Leganyst/table-booking/internal/repository"
	"github.com/Leganyst/table-booking/internal/seed"
)

func NewSeedCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the restaurant dataset",
		Long: `Upsert restaurants from a YAML file. Without --file the built-in
dataset is used. Running it again updates existing rows by id and drops
cached availability of every seeded restaurant.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				restaurants []model.Restaurant
				err         error
			)
			if file != "" {
				restaurants, err = seed.Load(file)
			} else {
				restaurants, err = seed.Default()
			}
			if err != nil {
				return err
			}

			gdb, closeDB, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB()

			if err := model.AutoMigrate(gdb); err != nil {
				return fmt.Errorf("auto migrate: %w", err)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			availability, closeCache := openCache(cmd.Context(), cfg, newLogger(cmd.ErrOrStderr(), cfg))
			defer closeCache()

			n, err := seed.Apply(cmd.Context(), repository.NewGormRestaurantRepository(gdb), availability, restaurants)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d restaurants\n", n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with restaurants")
	return cmd
}
