// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Emberlink Contributors

package main

import (
	"context"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/emberlink/emberlink/internal/store"
)

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	var dbURL string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check database connectivity and schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			url, err := databaseURL(dbURL)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			pool, err := store.NewPool(ctx, url)
			if err != nil {
				return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
			}
			defer pool.Close()
			cmd.Println("Database: reachable")

			m, err := store.NewMigrator(url)
			if err != nil {
				return err
			}
			defer closeMigrator(m, cmd)

			version, dirty, err := m.Version()
			if err != nil {
				return err
			}
			switch {
			case version == 0:
				cmd.Println("Schema: no migrations applied")
			case dirty:
				cmd.Printf("Schema: version %d (dirty)\n", version)
			default:
				cmd.Printf("Schema: version %d\n", version)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbURL, "database-url", "", "PostgreSQL connection URL (default: DATABASE_URL env)")

	return cmd
}
