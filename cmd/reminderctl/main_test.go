package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"health-reminders/internal/common/logger"
	"health-reminders/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
database:
  postgres:
    host: localhost
    database: health
    user: reminders
  redis:
    address: localhost:6379
dispatch:
  mode: http
  base_url: http://localhost:8080
notifications:
  provider: smtp
reminders:
  timezone: UTC
  meal_window_minutes: 20
  meal_slots:
    meal3: "12:30"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSlotsCommand(t *testing.T) {
	out, err := run(t, "--config", writeConfig(t, testConfig), "slots")
	require.NoError(t, err)

	assert.Contains(t, out, "meal1")
	assert.Contains(t, out, "Breakfast")
	assert.Contains(t, out, "12:30")
	assert.NotContains(t, out, "13:00")
	assert.Contains(t, out, "meal window ±20m0s")
	assert.Contains(t, out, "timezone UTC")
}

func TestConfigCheck(t *testing.T) {
	out, err := run(t, "--config", writeConfig(t, testConfig), "config", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "configuration OK (dispatch=http, provider=smtp")
}

func TestConfigCheck_RejectsUnknownSlot(t *testing.T) {
	body := testConfig + "    brunch: \"11:00\"\n"

	_, err := run(t, "--config", writeConfig(t, body), "config", "check")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "brunch")
}

func TestSweepRequiresUser(t *testing.T) {
	_, err := run(t, "--config", writeConfig(t, testConfig), "sweep")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user")
}

func TestSweepRejectsBadInstant(t *testing.T) {
	_, err := run(t, "--config", writeConfig(t, testConfig), "sweep", "--user", "u-1", "--at", "tomorrow")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RFC3339")
}

func TestRaiseAlerts(t *testing.T) {
	events := []models.ReminderEvent{
		{UserID: "u-1", Severity: models.SeverityError, Message: "Aspirin has expired"},
		{UserID: "u-1", Severity: models.SeverityInfo, Message: "Time for Lunch"},
	}

	raised := raiseAlerts(context.Background(), logger.NewTestLogger(t), events)
	require.Len(t, raised, 2)
	assert.Equal(t, models.SeverityError, raised[0].Severity)
	assert.Equal(t, "Time for Lunch", raised[1].Message)
}
