// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command managerctl is a terminal client for the popup-store manager API.
//
// It keeps the same session as the dashboard (access token, refresh token,
// user snapshot and selections) in a local file, Redis or PostgreSQL, and
// sends every call through the same refresh-and-replay pipeline.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	app := &app{}

	cmd := &cobra.Command{
		Use:           "managerctl",
		Short:         "Manage popup stores from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.open(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.close()
		},
	}

	cmd.AddCommand(
		newLoginCommand(app),
		newSignupCommand(app),
		newLogoutCommand(app),
		newWhoamiCommand(app),
		newRefreshCommand(app),
		newRequestCommand(app),
		newStoresCommand(app),
		newPopupsCommand(app),
		newSelectCommand(app),
	)
	return cmd
}
