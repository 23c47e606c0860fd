package main

import (
	"net/http"

	"github.com/spf13/cobra"

	"cruisesync/internal/pipeline"
	"cruisesync/internal/session"
)

func newSessionCmd(_ *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect and drive the ingestion session of a running server",
	}

	var logs int
	status := &cobra.Command{Use: "status", Short: "Show the session state and recent log lines"}
	statusClient := clientFlags(status)
	status.Flags().IntVar(&logs, "logs", 20, "log lines to show (-1 for all)")
	status.RunE = func(cmd *cobra.Command, _ []string) error {
		var snap session.Snapshot
		if err := statusClient().do(cmd.Context(), http.MethodGet, "/session", nil, &snap); err != nil {
			return err
		}
		renderSnapshot(cmd.OutOrStdout(), snap, logs)
		return nil
	}

	cmd.AddCommand(
		status,
		sessionAction("start", "Start a session; returns once the extractor reports a login"),
		sessionAction("confirm", "Commit the prepared changes"),
		sessionAction("cancel", "Abort the running session and discard its buffers"),
	)
	return cmd
}

func sessionAction(name, short string) *cobra.Command {
	cmd := &cobra.Command{Use: name, Short: short}
	client := clientFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		var snap session.Snapshot
		if err := client().do(cmd.Context(), http.MethodPost, "/session/"+name, nil, &snap); err != nil {
			return err
		}
		renderSnapshot(cmd.OutOrStdout(), snap, 5)
		return nil
	}
	return cmd
}

func newPreviewCmd(_ *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show what confirming the current session would write",
	}
	client := clientFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		var prep pipeline.Prepared
		if err := client().do(cmd.Context(), http.MethodGet, "/session/preview", nil, &prep); err != nil {
			return err
		}
		renderPreview(cmd.OutOrStdout(), &prep)
		return nil
	}
	return cmd
}
