package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "dg-core"

// DefaultPipeName is the Windows named pipe endpoint.
const DefaultPipeName = `\\.\pipe\dg-core`

// RuntimeDir returns the per-user directory for the daemon socket,
// preferring XDG_RUNTIME_DIR.
func RuntimeDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, appName)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, appName)
	}
	return filepath.Join(os.TempDir(), appName)
}

// DefaultSocketPath returns the Unix socket the daemon binds by default.
func DefaultSocketPath() string {
	return filepath.Join(RuntimeDir(), "daemon.sock")
}

// DefaultConfigPath returns the per-user config file location.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, appName, "config.yml")
}

// DefaultEndpointAddr picks the native endpoint address for this OS.
func DefaultEndpointAddr() string {
	if runtime.GOOS == "windows" {
		return DefaultPipeName
	}
	return DefaultSocketPath()
}
