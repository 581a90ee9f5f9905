// Package daemon keeps a warmed-up cache resident in a background process.
// CLI analyze commands talk to it over a Unix socket with JSON-RPC 2.0
// instead of loading the whole store on every invocation.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds configuration for the daemon service.
type Config struct {
	// SocketPath is the Unix domain socket path for IPC.
	// Default: ~/.nearmatch/daemon.sock
	SocketPath string

	// PIDPath is the file path for storing the daemon's process ID.
	// Default: ~/.nearmatch/daemon.pid
	PIDPath string

	// Timeout bounds one client request, connect to response.
	// Default: 5s
	Timeout time.Duration

	// ShutdownGracePeriod is how long open connections may finish after
	// the daemon is asked to stop.
	// Default: 10s
	ShutdownGracePeriod time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	dir := filepath.Join(home, ".nearmatch")

	return Config{
		SocketPath:          filepath.Join(dir, "daemon.sock"),
		PIDPath:             filepath.Join(dir, "daemon.pid"),
		Timeout:             5 * time.Second,
		ShutdownGracePeriod: 10 * time.Second,
	}
}

// Validate checks that the configuration is valid.
func (c Config) Validate() error {
	if c.SocketPath == "" {
		return fmt.Errorf("socket path cannot be empty")
	}
	if c.PIDPath == "" {
		return fmt.Errorf("PID path cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.ShutdownGracePeriod <= 0 {
		return fmt.Errorf("shutdown grace period must be positive")
	}
	return nil
}

// EnsureDir creates the directories holding the socket and PID files.
func (c Config) EnsureDir() error {
	for _, dir := range []string{filepath.Dir(c.SocketPath), filepath.Dir(c.PIDPath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}
