package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/nearmatch/internal/errors"
)

// isolate points user config at an empty directory and clears env overrides.
func isolate(t *testing.T) string {
	t.Helper()
	configDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)
	for _, k := range []string{
		"PORT", "USE_DB",
		"NEARMATCH_HTTP_ADDR", "NEARMATCH_TRANSPORT", "NEARMATCH_LOG_LEVEL",
		"NEARMATCH_STORE_BACKEND", "NEARMATCH_STORE_PATH",
		"NEARMATCH_RECORD_QUEUE", "NEARMATCH_RECORD_WORKERS", "NEARMATCH_SOCKET_PATH",
	} {
		t.Setenv(k, "")
	}
	return configDir
}

func writeUserConfig(t *testing.T, configDir, content string) {
	t.Helper()
	dir := filepath.Join(configDir, "nearmatch")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
}

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	cfg := NewConfig()

	require.NotNil(t, cfg)
	assert.Equal(t, 1, cfg.Version)

	assert.Equal(t, ":8888", cfg.Server.HTTPAddr)
	assert.Equal(t, "http", cfg.Server.Transport)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.ShutdownGraceDuration())
	assert.Equal(t, 15*time.Second, cfg.ReadTimeoutDuration())

	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Contains(t, cfg.Store.Path, ".nearmatch")
	assert.Equal(t, 64, cfg.Store.CacheMB)

	assert.Equal(t, 1024, cfg.Cache.RecordQueue)
	assert.Equal(t, 2, cfg.Cache.RecordWorkers)
	assert.Equal(t, 4096, cfg.Cache.CodecCacheSize)

	assert.Contains(t, cfg.Daemon.SocketPath, "daemon.sock")
	assert.Contains(t, cfg.Daemon.PIDPath, "daemon.pid")
	assert.Equal(t, 5*time.Second, cfg.DaemonTimeoutDuration())

	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoConfigFile_ReturnsDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}

func TestLoad_YamlFile_OverridesDefaults(t *testing.T) {
	isolate(t)
	tmpDir := t.TempDir()
	content := `
version: 1
server:
  http_addr: 127.0.0.1:9000
  shutdown_grace: 3s
store:
  backend: badger
  path: /var/lib/nearmatch
cache:
  record_workers: 4
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".nearmatch.yaml"), []byte(content), 0o644))

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.HTTPAddr)
	assert.Equal(t, 3*time.Second, cfg.ShutdownGraceDuration())
	assert.Equal(t, "badger", cfg.Store.Backend)
	assert.Equal(t, "/var/lib/nearmatch", cfg.Store.Path)
	assert.Equal(t, 4, cfg.Cache.RecordWorkers)
	// Unset fields keep their defaults.
	assert.Equal(t, 1024, cfg.Cache.RecordQueue)
}

func TestLoad_YamlPreferredOverYml(t *testing.T) {
	isolate(t)
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".nearmatch.yaml"), []byte("store:\n  backend: memory\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".nearmatch.yml"), []byte("store:\n  backend: badger\n"), 0o644))

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Backend)
}

func TestLoad_YmlExtension_IsRecognized(t *testing.T) {
	isolate(t)
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".nearmatch.yml"), []byte("server:\n  log_level: debug\n"), 0o644))

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
}

func TestLoad_InvalidYaml_ReturnsError(t *testing.T) {
	isolate(t)
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".nearmatch.yaml"), []byte("server: [broken"), 0o644))

	cfg, err := Load(tmpDir)

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetCode(err))
}

func TestLoad_InvalidValues_ReturnsError(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"unknown backend", "store:\n  backend: postgres\n", "store.backend"},
		{"unknown transport", "server:\n  transport: grpc\n", "server.transport"},
		{"unknown level", "server:\n  log_level: trace\n", "server.log_level"},
		{"bad duration", "server:\n  shutdown_grace: soon\n", "server.shutdown_grace"},
		{"negative workers", "cache:\n  record_workers: -1\n", "cache.record_workers"},
		{"negative cache", "store:\n  cache_mb: -5\n", "store.cache_mb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			tmpDir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".nearmatch.yaml"), []byte(tt.content), 0o644))

			_, err := Load(tmpDir)

			require.Error(t, err)
			assert.True(t, errors.IsFatal(err))
			assert.Contains(t, errors.FormatForCLI(err), "invalid configuration")
			var ae *errors.AppError
			require.ErrorAs(t, err, &ae)
			assert.Contains(t, ae.Cause.Error(), tt.wantMsg)
		})
	}
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("NEARMATCH_HTTP_ADDR", ":7000")
	t.Setenv("NEARMATCH_TRANSPORT", "stdio")
	t.Setenv("NEARMATCH_LOG_LEVEL", "warn")
	t.Setenv("NEARMATCH_STORE_BACKEND", "badger")
	t.Setenv("NEARMATCH_STORE_PATH", "/tmp/nm")
	t.Setenv("NEARMATCH_RECORD_QUEUE", "10")
	t.Setenv("NEARMATCH_RECORD_WORKERS", "3")
	t.Setenv("NEARMATCH_SOCKET_PATH", "/tmp/nm.sock")

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.HTTPAddr)
	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.Equal(t, "warn", cfg.Server.LogLevel)
	assert.Equal(t, "badger", cfg.Store.Backend)
	assert.Equal(t, "/tmp/nm", cfg.Store.Path)
	assert.Equal(t, 10, cfg.Cache.RecordQueue)
	assert.Equal(t, 3, cfg.Cache.RecordWorkers)
	assert.Equal(t, "/tmp/nm.sock", cfg.Daemon.SocketPath)
}

func TestLoad_PortAndUseDB(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "9999")
	t.Setenv("USE_DB", "false")

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.HTTPAddr)
	assert.Equal(t, "memory", cfg.Store.Backend)
}

func TestLoad_UseDBTrueKeepsBackend(t *testing.T) {
	isolate(t)
	t.Setenv("USE_DB", "true")
	t.Setenv("PORT", "not-a-port")

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, ":8888", cfg.Server.HTTPAddr)
}

func TestLoad_NearmatchAddrBeatsPort(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "9999")
	t.Setenv("NEARMATCH_HTTP_ADDR", "127.0.0.1:1234")

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:1234", cfg.Server.HTTPAddr)
}

func TestGetUserConfigPath_RespectsXDGConfigHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	assert.Equal(t, "/custom/config/nearmatch/config.yaml", GetUserConfigPath())
	assert.Equal(t, "/custom/config/nearmatch", GetUserConfigDir())
}

func TestGetUserConfigPath_DefaultsToXDGLocation(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".config", "nearmatch", "config.yaml"), GetUserConfigPath())
}

func TestLoad_UserConfigOverridesDefaults(t *testing.T) {
	configDir := isolate(t)
	writeUserConfig(t, configDir, "store:\n  backend: memory\n")

	assert.True(t, UserConfigExists())
	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Backend)
}

func TestLoad_ProjectConfigOverridesUserConfig(t *testing.T) {
	configDir := isolate(t)
	projectDir := t.TempDir()
	writeUserConfig(t, configDir, "store:\n  backend: memory\n  cache_mb: 8\n")
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, ".nearmatch.yaml"), []byte("store:\n  backend: badger\n"), 0o644))

	cfg, err := Load(projectDir)

	require.NoError(t, err)
	assert.Equal(t, "badger", cfg.Store.Backend)
	// The user's other values survive.
	assert.Equal(t, 8, cfg.Store.CacheMB)
}

func TestLoad_EnvVarOverridesUserAndProjectConfig(t *testing.T) {
	configDir := isolate(t)
	projectDir := t.TempDir()
	writeUserConfig(t, configDir, "server:\n  log_level: error\n")
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, ".nearmatch.yaml"), []byte("server:\n  log_level: warn\n"), 0o644))
	t.Setenv("NEARMATCH_LOG_LEVEL", "debug")

	cfg, err := Load(projectDir)

	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
}

func TestLoad_InvalidUserConfig_ReturnsError(t *testing.T) {
	configDir := isolate(t)
	writeUserConfig(t, configDir, "store: [invalid yaml\n")

	cfg, err := Load(t.TempDir())

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "user config")
}

func TestWriteYAML_RoundTripsThroughLoad(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	cfg := NewConfig()
	cfg.Store.Backend = "memory"
	cfg.Server.HTTPAddr = ":1111"

	require.NoError(t, cfg.WriteYAML(filepath.Join(dir, ".nearmatch.yaml")))
	loaded, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestFindProjectRoot(t *testing.T) {
	t.Run("config file marks root", func(t *testing.T) {
		root := t.TempDir()
		nested := filepath.Join(root, "a", "b")
		require.NoError(t, os.MkdirAll(nested, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(root, ".nearmatch.yml"), []byte("version: 1\n"), 0o644))

		got, err := FindProjectRoot(nested)
		require.NoError(t, err)
		assert.Equal(t, root, got)
	})

	t.Run("git dir marks root", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
		nested := filepath.Join(root, "x")
		require.NoError(t, os.MkdirAll(nested, 0o755))

		got, err := FindProjectRoot(nested)
		require.NoError(t, err)
		assert.Equal(t, root, got)
	})
}
