// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Emberlink Contributors

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateCommand_Help(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"migrate", "--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "up", "Migrate missing up subcommand")
	assert.Contains(t, output, "down", "Migrate missing down subcommand")
	assert.Contains(t, output, "status", "Migrate missing status subcommand")
	assert.Contains(t, output, "--database-url", "Migrate missing --database-url flag")
}

func TestMigrateCommand_Properties(t *testing.T) {
	cmd := NewMigrateCmd()

	assert.Equal(t, "migrate", cmd.Use)
	assert.Contains(t, cmd.Short, "migration", "Short description should mention migrations")
	assert.Contains(t, cmd.Long, "PostgreSQL", "Long description should mention PostgreSQL")
}

func TestMigrateCommand_NoDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"migrate", "up"})

	err := cmd.Execute()
	require.Error(t, err, "Expected error when DATABASE_URL is not set")
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestMigrateCommand_InvalidDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "invalid://not-a-real-db")

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"migrate", "up"})

	require.Error(t, cmd.Execute())
}

func TestDatabaseURL_FlagBeatsEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/db")

	url, err := databaseURL("postgres://flag/db")
	require.NoError(t, err)
	assert.Equal(t, "postgres://flag/db", url)

	url, err = databaseURL("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/db", url)
}
