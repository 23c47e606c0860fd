package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cruisesync/internal/auth"
)

func newTokenCmd(a *app) *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an API token with the configured secret",
		Long: "Sign an API token. Operator tokens drive sessions; extractor tokens only open\n" +
			"the extractor websocket (pass them as ?token= on /extractor/ws).",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if role != auth.RoleOperator && role != auth.RoleExtractor {
				return fmt.Errorf("role must be %s or %s", auth.RoleOperator, auth.RoleExtractor)
			}
			ts := tokenService(a.cfg.Auth)
			if ttl > 0 {
				ts.Duration = ttl
			}
			tok, exp, err := ts.Sign(subject, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			fmt.Fprintf(cmd.ErrOrStderr(), "%s token for %s, expires %s\n", role, subject, exp.UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "operator", "token subject")
	cmd.Flags().StringVar(&role, "role", auth.RoleOperator, "operator or extractor")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "lifetime; defaults to the configured JWT TTL")

	cmd.AddCommand(&cobra.Command{
		Use:   "hash PASSWORD",
		Short: "Print the bcrypt hash to list under auth.operators",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := auth.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	})
	return cmd
}
