package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Leganyst/table-booking/internal/auth"
	"github.com/Leganyst/table-booking/internal/config"
)

// NewTokenCommand выпускает токен для локальной отладки API.
func NewTokenCommand() *cobra.Command {
	var (
		user string
		role string
		ttl  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed JWT for local testing (uses JWT_SECRET)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			s, err := auth.NewSession(user, auth.Role(role))
			if err != nil {
				return err
			}
			tok, err := auth.IssueToken([]byte(cfg.JWTSecret), s, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "user id (token subject)")
	cmd.Flags().StringVar(&role, "role", string(auth.RoleCustomer), "role: customer|restaurant")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
