// Package paths locates the ssoconfig configuration and data directories.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppDirName is the directory created under the platform config and data
// roots.
const AppDirName = "ssoconfig"

// ConfigFileName is the configuration file inside the config directory.
const ConfigFileName = "config.yaml"

// Environment variables overriding the platform defaults.
const (
	EnvConfigDir = "SSOCONFIG_CONFIG_DIR"
	EnvDataDir   = "SSOCONFIG_DATA_DIR"
)

// platform is swapped out in tests.
var platform = struct {
	goos          string
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	goos:          runtime.GOOS,
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform configuration directory:
// $XDG_CONFIG_HOME/ssoconfig or ~/.config/ssoconfig on Linux, and
// os.UserConfigDir()/ssoconfig elsewhere.
func DefaultConfigDir() (string, error) {
	return platformDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform data directory:
// $XDG_DATA_HOME/ssoconfig or ~/.local/share/ssoconfig on Linux, and the
// same directory as DefaultConfigDir elsewhere.
func DefaultDataDir() (string, error) {
	return platformDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func platformDir(xdgVar, homeRel string) (string, error) {
	if platform.goos != "linux" {
		dir, err := platform.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppDirName), nil
	}
	if xdg := os.Getenv(xdgVar); xdg != "" {
		return filepath.Join(xdg, AppDirName), nil
	}
	home, err := platform.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, homeRel, AppDirName), nil
}

// ResolveConfigDir picks the configuration directory: flag, then
// SSOCONFIG_CONFIG_DIR, then DefaultConfigDir. The result is absolute.
func ResolveConfigDir(flag string) (string, error) {
	return firstAbs(DefaultConfigDir, flag, os.Getenv(EnvConfigDir))
}

// ResolveDataDir picks the data directory: flag, then the data_dir value
// of config.yaml, then SSOCONFIG_DATA_DIR, then DefaultDataDir. The result
// is absolute.
func ResolveDataDir(flag, configValue string) (string, error) {
	return firstAbs(DefaultDataDir, flag, configValue, os.Getenv(EnvDataDir))
}

// ConfigFile returns the path of config.yaml inside configDir.
func ConfigFile(configDir string) string {
	return filepath.Join(configDir, ConfigFileName)
}

func firstAbs(fallback func() (string, error), candidates ...string) (string, error) {
	for _, c := range candidates {
		if c != "" {
			return filepath.Abs(c)
		}
	}
	return fallback()
}
