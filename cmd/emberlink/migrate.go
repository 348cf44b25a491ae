// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Emberlink Contributors

package main

import (
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/emberlink/emberlink/internal/store"
)

// databaseURL resolves the connection string from the flag, falling
// back to the DATABASE_URL environment variable.
func databaseURL(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env := os.Getenv("DATABASE_URL"); env != "" {
		return env, nil
	}
	return "", oops.Code("CONFIG_INVALID").Errorf("--database-url or DATABASE_URL is required")
}

// NewMigrateCmd creates the migrate subcommand with up, down, and
// status operations.
func NewMigrateCmd() *cobra.Command {
	var dbURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long:  `Apply, roll back, or inspect schema migrations on the PostgreSQL database.`,
	}
	cmd.PersistentFlags().StringVar(&dbURL, "database-url", "", "PostgreSQL connection URL (default: DATABASE_URL env)")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			url, err := databaseURL(dbURL)
			if err != nil {
				return err
			}
			return migrateUp(url, cmd)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations, dropping every table and its data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			url, err := databaseURL(dbURL)
			if err != nil {
				return err
			}
			m, err := store.NewMigrator(url)
			if err != nil {
				return err
			}
			defer closeMigrator(m, cmd)

			cmd.Println("Rolling back migrations...")
			if err := m.Down(); err != nil {
				return err
			}
			cmd.Println("Rollback completed")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the current migration version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			url, err := databaseURL(dbURL)
			if err != nil {
				return err
			}
			m, err := store.NewMigrator(url)
			if err != nil {
				return err
			}
			defer closeMigrator(m, cmd)

			version, dirty, err := m.Version()
			if err != nil {
				return err
			}
			if version == 0 {
				cmd.Println("No migrations applied")
				return nil
			}
			cmd.Printf("Version: %d (dirty: %v)\n", version, dirty)
			return nil
		},
	})

	return cmd
}

func migrateUp(url string, cmd *cobra.Command) error {
	m, err := store.NewMigrator(url)
	if err != nil {
		return err
	}
	defer closeMigrator(m, cmd)

	cmd.Println("Running migrations...")
	if err := m.Up(); err != nil {
		return err
	}
	cmd.Println("Migrations completed successfully")
	return nil
}

func closeMigrator(m *store.Migrator, cmd *cobra.Command) {
	if err := m.Close(); err != nil {
		cmd.PrintErrf("warning: closing migrator: %v\n", err)
	}
}
