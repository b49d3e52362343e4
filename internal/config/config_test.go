package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MJE43/maze-duel/internal/match"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultsValid(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, match.DefaultConfig(), cfg.Match)
	assert.Equal(t, 10*time.Millisecond, cfg.Match.StartRoundLimit)
}

func TestLoadFileKeepsUnsetDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "mazeduel.yaml", `
server:
  addr: "0.0.0.0:9000"
match:
  turns_per_round: 250
  turn_grant: 2ms
  interrupt_slack: 1s
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.Equal(t, 250, cfg.Match.TurnsPerRound)
	assert.Equal(t, 2*time.Millisecond, cfg.Match.TurnGrant)
	assert.Equal(t, time.Second, cfg.Match.InterruptSlack)
	assert.Equal(t, 1000, cfg.Match.MazeBonus)
	assert.Equal(t, "mazeduel.db", cfg.Store.Path)
}

func TestEnvOverridesFileAndDotenv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "mazeduel.yaml", "log:\n  level: warn\n")
	writeFile(t, dir, ".env", EnvDBPath+"=from-dotenv.db\n"+EnvLogFormat+"=json\n")
	t.Setenv(EnvLogLevel, "debug")
	// godotenv.Load writes the process environment; t.Setenv restores it afterwards.
	for _, key := range []string{EnvDBPath, EnvLogFormat} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "from-dotenv.db", cfg.Store.Path)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
		{"bad addr", func(c *Config) { c.Server.Addr = "nowhere" }},
		{"no db", func(c *Config) { c.Store.Path = "" }},
		{"tiny maze", func(c *Config) { c.Match.InitialSize = 1 }},
		{"no turns", func(c *Config) { c.Match.TurnsPerRound = 0 }},
		{"zero grant", func(c *Config) { c.Match.TurnGrant = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
