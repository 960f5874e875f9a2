package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/assetsync/internal/engine"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "assetsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	require.NoError(t, Defaults().Validate())

	opts, err := Defaults().Sync.WalkOptions()
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultWalkOptions(), opts)
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
source:
  kind: rest
  url: https://source.example.com
  token: s3cret
  timeout: 5s
  cache_bytes: 1048576
sync:
  policy: lenient
  follow_references: true
logging:
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, KindREST, cfg.Source.Kind)
	assert.Equal(t, "https://source.example.com", cfg.Source.URL)
	assert.Equal(t, 5*time.Second, cfg.Source.Timeout)
	assert.Equal(t, int64(1048576), cfg.Source.CacheBytes)
	assert.Equal(t, "lenient", cfg.Sync.Policy)
	assert.True(t, cfg.Sync.FollowReferences)
	assert.True(t, cfg.Sync.SyncDependencies, "untouched keys keep their default")
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "target.db", cfg.Target.DSN)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "sync:\n  policy: lenient\n")
	t.Setenv("ASSETSYNC_POLICY", "strict")
	t.Setenv("ASSETSYNC_TARGET_DSN", "/var/lib/assetsync/target.db")
	t.Setenv("ASSETSYNC_STRIP_PHANTOMS", "true")
	t.Setenv("ASSETSYNC_INSPECT_CONCURRENCY", "not-a-number")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "strict", cfg.Sync.Policy)
	assert.Equal(t, "/var/lib/assetsync/target.db", cfg.Target.DSN)
	assert.True(t, cfg.Sync.StripPhantoms)
	assert.Equal(t, 4, cfg.Inspect.Concurrency, "unparseable values are ignored")
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "sync:\n  polcy: lenient\n")

	_, err := Load(path)
	assert.ErrorContains(t, err, "polcy")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown kind", func(c *Config) { c.Source.Kind = "ftp" }, "source.kind"},
		{"sqlite without dsn", func(c *Config) { c.Target.DSN = "" }, "target.dsn"},
		{"rest without url", func(c *Config) { c.Source.Kind = KindREST }, "source.url"},
		{"bad policy", func(c *Config) { c.Sync.Policy = "relaxed" }, "sync.policy"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"zero concurrency", func(c *Config) { c.Inspect.Concurrency = 0 }, "inspect.concurrency"},
		{"negative timeout", func(c *Config) { c.Target.Timeout = -time.Second }, "target.timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestWalkOptions(t *testing.T) {
	opts, err := SyncConfig{Policy: "lenient", SkipRoot: true, StripPhantoms: true}.WalkOptions()
	require.NoError(t, err)
	assert.Equal(t, engine.WalkOptions{Policy: engine.Lenient, SkipRoot: true, StripPhantoms: true}, opts)

	_, err = SyncConfig{Policy: "relaxed"}.WalkOptions()
	assert.Error(t, err)
}
