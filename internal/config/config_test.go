package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFileAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "jwt:\n  secret: test-secret\n")

	cfg, err := LoadFile(path)

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 33, cfg.Rules.ServiceEditWindowDays)
	assert.Equal(t, "Asia/Ho_Chi_Minh", cfg.Rules.Timezone)
	assert.Equal(t, 10*time.Minute, cfg.Cache.CatalogTTL)
	assert.Empty(t, cfg.Rules.Stages.Transitions)
}

func TestLoadFileReadsStageTable(t *testing.T) {
	path := writeConfig(t, `
jwt:
  secret: test-secret
rules:
  timezone: UTC
  service_edit_window_days: 14
  stages:
    initial: NEW_CONTACT
    lost: LOST
    transitions:
      - from: NEW_CONTACT
        to: [WON, LOST]
      - from: WON
      - from: LOST
`)

	cfg, err := LoadFile(path)

	require.NoError(t, err)
	assert.Equal(t, 14, cfg.Rules.ServiceEditWindowDays)
	require.Len(t, cfg.Rules.Stages.Transitions, 3)
	assert.Equal(t, "NEW_CONTACT", cfg.Rules.Stages.Transitions[0].From)
	assert.Equal(t, []string{"WON", "LOST"}, cfg.Rules.Stages.Transitions[0].To)

	loc, err := cfg.Rules.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadFileOverlaysSecrets(t *testing.T) {
	t.Setenv("CLINIC_DB_PASSWORD", "from-env")
	t.Setenv("CLINIC_JWT_SECRET", "env-secret")
	path := writeConfig(t, "database:\n  password: from-file\n")

	cfg, err := LoadFile(path)

	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Database.Password)
	assert.Equal(t, "env-secret", cfg.JWT.Secret)
	assert.Contains(t, cfg.Database.DSN(), "password=from-env")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing jwt secret", "rules:\n  timezone: UTC\n"},
		{"bad timezone", "jwt:\n  secret: s\nrules:\n  timezone: Mars/Olympus\n"},
		{"non positive window", "jwt:\n  secret: s\nrules:\n  service_edit_window_days: -1\n"},
		{"custom table without lost", "jwt:\n  secret: s\nrules:\n  stages:\n    initial: A\n    transitions:\n      - from: A\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
