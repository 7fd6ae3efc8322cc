package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/ttystep/internal/config"
	"github.com/aretw0/ttystep/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.Program)
	assert.Equal(t, string(domain.StrategyIsolated), cfg.Strategy)
	assert.Equal(t, "ttystep.ttyrec", cfg.Recording)
	assert.Zero(t, cfg.Settle)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, "ttystep.yaml", `
program: echo
strategy: inplace
settle: 150ms
image_args: "-a,-b"
record_actions: true
log_level: debug
`)
	t.Setenv("TTYSTEP_PROGRAM", "demo")
	t.Setenv("TTYSTEP_REDIS_URL", "redis://localhost:6379/1")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.Program, "environment wins over the file")
	assert.Equal(t, "inplace", cfg.Strategy)
	assert.Equal(t, 150*time.Millisecond, cfg.Settle)
	assert.Equal(t, []string{"-a", "-b"}, cfg.ImageArgs)
	assert.True(t, cfg.RecordActions)
	assert.Equal(t, "redis://localhost:6379/1", cfg.RedisURL)
	assert.Equal(t, "DEBUG", cfg.Level().String())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"Unknown Key", "programme: demo\n"},
		{"Bad Strategy", "strategy: fork\n"},
		{"Bad Level", "log_level: loud\n"},
		{"Bad Duration", "settle: soon\n"},
		{"Negative Settle", "settle: -1s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeFile(t, "c.yaml", tt.content))
			assert.Error(t, err)
		})
	}

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "an explicit file must exist")
}

func TestSessionOptions_ImagesFile(t *testing.T) {
	images := writeFile(t, "images.yaml", `
images:
  - name: rogue
    command: /usr/games/rogue
    args: ["-s"]
`)
	cfg := config.Default()
	cfg.Program = "rogue"
	cfg.Strategy = "relay"
	cfg.Images = images

	opts, err := cfg.SessionOptions()
	require.NoError(t, err)
	assert.Len(t, opts, 7)

	// The images travel with every program; sessions pick their own entry.
	cfg.Program = "demo"
	opts, err = cfg.SessionOptions()
	require.NoError(t, err)
	assert.Len(t, opts, 7)

	cfg.Images = filepath.Join(t.TempDir(), "none.yaml")
	opts, err = cfg.SessionOptions()
	require.NoError(t, err)
	assert.Len(t, opts, 6)
}
