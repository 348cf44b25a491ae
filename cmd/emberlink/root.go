// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Emberlink Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/emberlink/emberlink/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Emberlink CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emberlink",
		Short: "Emberlink - account and session service for game servers",
		Long: `Emberlink bridges game-server plugins, moderation tooling, and a
Discord bot to a shared PostgreSQL account store. It handles
registration, login, session tokens, legacy account migration,
external verification, and punishments.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewStatusCmd())

	return cmd
}

// resolveConfigFile returns the --config value, falling back to
// config.yaml in the XDG config directory when the flag was not set.
func resolveConfigFile() string {
	if configFile != "" {
		return configFile
	}
	return xdg.DefaultConfigFile()
}
