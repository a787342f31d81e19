package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSuccess(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	stdin := new(bytes.Buffer)

	args := []string{"-user", "testuser", "-password", "secret", "-db", dbPath}
	require.NoError(t, run(args, stdin, stdout, stderr))
	assert.Contains(t, stdout.String(), "User testuser created successfully")
}

func TestRunDuplicateUser(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	stdin := new(bytes.Buffer)

	args := []string{"-user", "testuser", "-password", "secret", "-db", dbPath}
	require.NoError(t, run(args, stdin, stdout, stderr))

	stdout.Reset()
	err := run(args, stdin, stdout, stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestRunMissingUserFlag(t *testing.T) {
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	stdin := new(bytes.Buffer)

	err := run([]string{"-password", "secret"}, stdin, stdout, stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required flags: user")
	assert.Contains(t, stdout.String(), "Usage:")
}

func TestRunInteractivePassword(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	stdin := bytes.NewBufferString("interactive_secret\n")

	args := []string{"-user", "interactive_user", "-db", dbPath}
	require.NoError(t, run(args, stdin, stdout, stderr))
	assert.Contains(t, stdout.String(), "Password: ")
	assert.Contains(t, stdout.String(), "User interactive_user created successfully")
}

func TestRunEmptyInteractivePassword(t *testing.T) {
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	stdin := bytes.NewBufferString("\n")

	err := run([]string{"-user", "empty_pass_user"}, stdin, stdout, stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password cannot be empty")
}

func TestRunEnvVarOverride(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "env.db")
	t.Setenv("SQLITE_DB_PATH", dbPath)

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	stdin := new(bytes.Buffer)

	args := []string{"-user", "envuser", "-password", "secret"}
	require.NoError(t, run(args, stdin, stdout, stderr))
	assert.FileExists(t, dbPath)
}

func TestRunInvalidFlag(t *testing.T) {
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	stdin := new(bytes.Buffer)

	err := run([]string{"-invalid"}, stdin, stdout, stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flag provided but not defined")
}
