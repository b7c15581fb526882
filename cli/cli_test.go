package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return strings.TrimSpace(out.String()), err
}

func TestCommands_ProvisionApplyAndRead(t *testing.T) {
	// GIVEN: An empty sqlite file
	// WHEN: Provisioning the sample and booking a day from the command line
	// THEN: The balance and history commands see the booking

	dir := t.TempDir()
	t.Setenv("CONFIG_ENV", "test")
	t.Setenv("LEAVE_STORAGE_DRIVER", "sqlite")
	t.Setenv("LEAVE_STORAGE_DSN", filepath.Join(dir, "leave.db"))
	t.Setenv("LEAVE_LOG_LEVEL", "error")

	out, err := executeCommand(t, "provision", "--sample", "--config-dir", dir)
	require.NoError(t, err)
	assert.Equal(t, "Provisioned 2 employee(s).", out)

	out, err = executeCommand(t, "provision", "--sample", "--config-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "nothing written")

	out, err = executeCommand(t, "apply", "E001", "2999-06-10", "--config-dir", dir)
	require.NoError(t, err)
	assert.Equal(t, "Leave applied successfully for 1 day(s) for E001. New balance: 17.", out)

	out, err = executeCommand(t, "balance", "E001", "--config-dir", dir)
	require.NoError(t, err)
	assert.Equal(t, "Employee E001 has 17 leave days remaining.", out)

	out, err = executeCommand(t, "history", "E001", "--config-dir", dir)
	require.NoError(t, err)
	assert.Equal(t, "Leave history for employee E001: 2024-12-25, 2025-01-01, 2999-06-10.", out)

	out, err = executeCommand(t, "apply", "E001", "--config-dir", dir)
	require.NoError(t, err)
	assert.Equal(t, "No leave dates provided. Please specify the dates you want to apply for.", out)
}

func TestCommands_UnknownDriver(t *testing.T) {
	t.Setenv("CONFIG_ENV", "test")
	t.Setenv("LEAVE_STORAGE_DRIVER", "mongo")

	_, err := executeCommand(t, "balance", "E001", "--config-dir", t.TempDir())
	assert.ErrorContains(t, err, "unknown storage.driver")
}

func TestVersion(t *testing.T) {
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "Version: 1.0.0 Initial", out)
}
