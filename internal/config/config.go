package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/nearmatch/internal/errors"
)

// Project config file names, in order of precedence.
const (
	ProjectConfigYAML = ".nearmatch.yaml"
	ProjectConfigYML  = ".nearmatch.yml"
)

// Config represents the complete nearmatch configuration.
type Config struct {
	Version int          `yaml:"version" json:"version"`
	Server  ServerConfig `yaml:"server" json:"server"`
	Store   StoreConfig  `yaml:"store" json:"store"`
	Cache   CacheConfig  `yaml:"cache" json:"cache"`
	Daemon  DaemonConfig `yaml:"daemon" json:"daemon"`
}

// ServerConfig configures the serving transports.
type ServerConfig struct {
	// HTTPAddr is the listen address for the HTTP transport.
	HTTPAddr string `yaml:"http_addr" json:"http_addr"`
	// Transport selects what `serve` exposes: "http" or "stdio" (MCP).
	Transport string `yaml:"transport" json:"transport"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
	// ShutdownGrace bounds how long in-flight requests may finish.
	ShutdownGrace string `yaml:"shutdown_grace" json:"shutdown_grace"`
	ReadTimeout   string `yaml:"read_timeout" json:"read_timeout"`
}

// StoreConfig configures the durable store.
type StoreConfig struct {
	// Backend is one of "sqlite" (default), "badger" or "memory".
	Backend string `yaml:"backend" json:"backend"`
	// Path is the data directory. Defaults to ~/.nearmatch/data.
	Path    string `yaml:"path" json:"path"`
	CacheMB int    `yaml:"cache_mb" json:"cache_mb"`
}

// CacheConfig configures the in-memory cache and its background recorder.
type CacheConfig struct {
	RecordQueue    int `yaml:"record_queue" json:"record_queue"`
	RecordWorkers  int `yaml:"record_workers" json:"record_workers"`
	CodecCacheSize int `yaml:"codec_cache_size" json:"codec_cache_size"`
}

// DaemonConfig configures the background daemon.
type DaemonConfig struct {
	SocketPath string `yaml:"socket_path" json:"socket_path"`
	PIDPath    string `yaml:"pid_path" json:"pid_path"`
	// Timeout bounds client calls to the daemon.
	Timeout string `yaml:"timeout" json:"timeout"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	base := baseDir()
	return &Config{
		Version: 1,
		Server: ServerConfig{
			HTTPAddr:      ":8888",
			Transport:     "http",
			LogLevel:      "info",
			ShutdownGrace: "10s",
			ReadTimeout:   "15s",
		},
		Store: StoreConfig{
			Backend: "sqlite",
			Path:    filepath.Join(base, "data"),
			CacheMB: 64,
		},
		Cache: CacheConfig{
			RecordQueue:    1024,
			RecordWorkers:  2,
			CodecCacheSize: 4096,
		},
		Daemon: DaemonConfig{
			SocketPath: filepath.Join(base, "daemon.sock"),
			PIDPath:    filepath.Join(base, "daemon.pid"),
			Timeout:    "5s",
		},
	}
}

// baseDir returns ~/.nearmatch, falling back to the temp directory.
func baseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".nearmatch")
	}
	return filepath.Join(home, ".nearmatch")
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/nearmatch/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/nearmatch/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "nearmatch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "nearmatch", "config.yaml")
	}
	return filepath.Join(home, ".config", "nearmatch", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// LoadUserConfig loads the user configuration file.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}
	return cfg, nil
}

// Load loads configuration for the project in dir.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/nearmatch/config.yaml)
//  3. Project config (.nearmatch.yaml in dir)
//  4. Environment variables (PORT, USE_DB, NEARMATCH_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := LoadUserConfig(); err != nil {
		return nil, errors.ConfigError("failed to load user config", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, errors.ConfigError("failed to load project config", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, errors.ConfigError("invalid configuration", err).
			WithSuggestion("Run 'nearmatch config show' to inspect the effective configuration")
	}

	return cfg, nil
}

// ProjectConfigPath returns the project config file in dir, or "" if none.
func ProjectConfigPath(dir string) string {
	for _, name := range []string{ProjectConfigYAML, ProjectConfigYML} {
		if p := filepath.Join(dir, name); fileExists(p) {
			return p
		}
	}
	return ""
}

func (c *Config) loadFromFile(dir string) error {
	path := ProjectConfigPath(dir)
	if path == "" {
		return nil
	}
	return c.loadYAML(path)
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	mergeString(&c.Server.HTTPAddr, other.Server.HTTPAddr)
	mergeString(&c.Server.Transport, other.Server.Transport)
	mergeString(&c.Server.LogLevel, other.Server.LogLevel)
	mergeString(&c.Server.ShutdownGrace, other.Server.ShutdownGrace)
	mergeString(&c.Server.ReadTimeout, other.Server.ReadTimeout)

	mergeString(&c.Store.Backend, other.Store.Backend)
	mergeString(&c.Store.Path, other.Store.Path)
	mergeInt(&c.Store.CacheMB, other.Store.CacheMB)

	mergeInt(&c.Cache.RecordQueue, other.Cache.RecordQueue)
	mergeInt(&c.Cache.RecordWorkers, other.Cache.RecordWorkers)
	mergeInt(&c.Cache.CodecCacheSize, other.Cache.CodecCacheSize)

	mergeString(&c.Daemon.SocketPath, other.Daemon.SocketPath)
	mergeString(&c.Daemon.PIDPath, other.Daemon.PIDPath)
	mergeString(&c.Daemon.Timeout, other.Daemon.Timeout)
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func mergeInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

// applyEnvOverrides applies environment variable overrides.
// PORT and USE_DB are honoured for compatibility with container deployments;
// the NEARMATCH_* variables win over them.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PORT"); v != "" {
		if _, err := strconv.Atoi(v); err == nil {
			c.Server.HTTPAddr = ":" + v
		}
	}
	if v := os.Getenv("USE_DB"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil && !b {
			c.Store.Backend = "memory"
		}
	}

	if v := os.Getenv("NEARMATCH_HTTP_ADDR"); v != "" {
		c.Server.HTTPAddr = v
	}
	if v := os.Getenv("NEARMATCH_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
	if v := os.Getenv("NEARMATCH_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("NEARMATCH_STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("NEARMATCH_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("NEARMATCH_RECORD_QUEUE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Cache.RecordQueue = n
		}
	}
	if v := os.Getenv("NEARMATCH_RECORD_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Cache.RecordWorkers = n
		}
	}
	if v := os.Getenv("NEARMATCH_SOCKET_PATH"); v != "" {
		c.Daemon.SocketPath = v
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	validTransports := map[string]bool{"http": true, "stdio": true}
	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return fmt.Errorf("server.transport must be 'http' or 'stdio', got %s", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	validBackends := map[string]bool{"sqlite": true, "badger": true, "memory": true}
	if !validBackends[strings.ToLower(c.Store.Backend)] {
		return fmt.Errorf("store.backend must be 'sqlite', 'badger', or 'memory', got %s", c.Store.Backend)
	}

	durations := map[string]string{
		"server.shutdown_grace": c.Server.ShutdownGrace,
		"server.read_timeout":   c.Server.ReadTimeout,
		"daemon.timeout":        c.Daemon.Timeout,
	}
	for name, v := range durations {
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			return fmt.Errorf("%s must be a positive duration, got %q", name, v)
		}
	}

	positives := map[string]int{
		"cache.record_queue":     c.Cache.RecordQueue,
		"cache.record_workers":   c.Cache.RecordWorkers,
		"cache.codec_cache_size": c.Cache.CodecCacheSize,
	}
	for name, v := range positives {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}
	if c.Store.CacheMB < 0 {
		return fmt.Errorf("store.cache_mb must be non-negative, got %d", c.Store.CacheMB)
	}

	return nil
}

// ShutdownGraceDuration returns server.shutdown_grace, assuming Validate passed.
func (c *Config) ShutdownGraceDuration() time.Duration {
	return mustDuration(c.Server.ShutdownGrace, 10*time.Second)
}

// ReadTimeoutDuration returns server.read_timeout, assuming Validate passed.
func (c *Config) ReadTimeoutDuration() time.Duration {
	return mustDuration(c.Server.ReadTimeout, 15*time.Second)
}

// DaemonTimeoutDuration returns daemon.timeout, assuming Validate passed.
func (c *Config) DaemonTimeoutDuration() time.Duration {
	return mustDuration(c.Daemon.Timeout, 5*time.Second)
}

func mustDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// FindProjectRoot walks up from startDir looking for a .git directory or a
// project config file. It returns startDir (absolute) when neither is found.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) || ProjectConfigPath(currentDir) != "" {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// dirExists checks if a directory exists.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
