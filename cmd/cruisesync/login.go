package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

func newLoginCmd(_ *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in as an operator and save the token",
	}
	client := clientFlags(cmd)
	cmd.Flags().StringVar(&username, "username", "", "operator username")
	cmd.Flags().StringVar(&password, "password", "", "operator password")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		if username == "" || password == "" {
			return errors.New("username and password are required")
		}
		var resp struct {
			Token     string `json:"token"`
			ExpiresAt string `json:"expires_at"`
		}
		payload := map[string]string{"username": username, "password": password}
		if err := client().do(cmd.Context(), http.MethodPost, "/auth/login", payload, &resp); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		path, _ := cmd.Flags().GetString("token-file")
		if err := saveToken(path, resp.Token); err != nil {
			return fmt.Errorf("save token: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "logged in, token valid until %s\n", resp.ExpiresAt)
		return nil
	}
	return cmd
}
