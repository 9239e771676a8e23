package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Leganyst/table-booking/internal/calendar"
)

// NewSlotsCommand печатает сетку слотов для часов работы без обращения к БД.
func NewSlotsCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		opening string
		closing string
		step    int
	)

	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Print bookable slots for the given opening hours",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			hours, err := calendar.ResolveHours(opening, closing)
			if err != nil {
				return err
			}
			slots, err := hours.Slots(step)
			if err != nil {
				return err
			}
			return writeSlots(cmd.OutOrStdout(), rootOpts.Format, calendar.FormatSlots(slots))
		},
	}

	cmd.Flags().StringVar(&opening, "opening", "", "opening time HH:MM (default 12:00)")
	cmd.Flags().StringVar(&closing, "closing", "", "closing time HH:MM (default 23:00)")
	cmd.Flags().IntVar(&step, "step", calendar.DefaultStepMinutes, "slot step in minutes")
	return cmd
}

func writeSlots(w io.Writer, format string, slots []string) error {
	if format == "json" {
		return json.NewEncoder(w).Encode(slots)
	}
	for _, s := range slots {
		if _, err := fmt.Fprintln(w, s); err != nil {
			return err
		}
	}
	return nil
}
