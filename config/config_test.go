package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("empty path gives defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		require.Equal(t, Default(), cfg)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "eval.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
clients: ["10.0.0.1:10000", "10.0.0.2:10000"]
agents:
  100k: http://localhost:8100
  500k: http://localhost:8500
ready_timeout: 30s
log:
  level: debug
`), 0644))

		cfg, err := Load(path)
		require.NoError(t, err)
		require.Equal(t, []string{"10.0.0.1:10000", "10.0.0.2:10000"}, cfg.Clients)
		require.Equal(t, "http://localhost:8100", cfg.Agents.Agent100k)
		require.Equal(t, "http://localhost:8500", cfg.Agents.Agent500k)
		require.Equal(t, 30*time.Second, cfg.ReadyTimeout)
		require.Equal(t, "debug", cfg.Log.Level)
		require.Equal(t, Default().StopTimeout, cfg.StopTimeout, "Unset fields keep their default")
		require.NoError(t, cfg.Validate())
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("clients: [unterminated"), 0644))
		_, err := Load(path)
		require.Error(t, err)
	})
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PIGCHASE_CLIENTS", "a:1,b:2,c:3")
	t.Setenv("PIGCHASE_AGENT_100K", "http://x:1")
	t.Setenv("PIGCHASE_AGENT_500K", "")
	t.Setenv("PIGCHASE_OUTPUT", "out/r.json")

	cfg := Default()
	cfg.Agents.Agent500k = "http://kept:2"
	cfg.ApplyEnv()

	require.Equal(t, []string{"a:1", "b:2", "c:3"}, cfg.Clients)
	require.Equal(t, "http://x:1", cfg.Agents.Agent100k)
	require.Equal(t, "http://kept:2", cfg.Agents.Agent500k, "Empty variables do not override")
	require.Equal(t, "out/r.json", cfg.Output)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Clients = cfg.Clients[:1]
	err := cfg.Validate()
	require.ErrorContains(t, err, "need at least 2 clients")
	require.ErrorContains(t, err, "agents.100k is required")
	require.ErrorContains(t, err, "agents.500k is required")
}
