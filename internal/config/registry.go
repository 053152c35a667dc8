package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	appName        = "goveectl"
	configFile     = "config.yaml"
	currentVersion = 1

	// ConfigDirEnvVar overrides the configuration directory
	ConfigDirEnvVar = "GOVEECTL_CONFIG_DIR"
)

const fileHeader = `# goveectl Configuration File
# Named Govee lights and connection preferences, managed by 'goveectl device'.
#
# The cloud API key is not stored here, it is read from GOVEE_API_KEY.
#
# Location: %s

`

var (
	globalRegistry *Registry
	globalErr      error
	globalOnce     sync.Once

	// Serializes writes from this process
	writeMu sync.Mutex
)

// GetConfigDir returns the configuration directory:
//   - $GOVEECTL_CONFIG_DIR when set
//   - Windows: %LOCALAPPDATA%\goveectl, else the roaming config dir
//   - Linux and other Unix: $XDG_CONFIG_HOME/goveectl or $HOME/.config/goveectl
//   - macOS: $HOME/.config/goveectl
func GetConfigDir() (string, error) {
	if dir := os.Getenv(ConfigDirEnvVar); dir != "" {
		return dir, nil
	}

	if runtime.GOOS == "windows" {
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, appName), nil
		}
		base, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine config directory: %w", err)
		}
		return filepath.Join(base, appName), nil
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" && runtime.GOOS != "darwin" {
		return filepath.Join(xdg, appName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// GetConfigPath returns the full path to the configuration file.
func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// GetGlobalRegistry returns the process-wide registry, loading it from the
// config file on first use. A missing file yields an empty registry.
func GetGlobalRegistry() (*Registry, error) {
	globalOnce.Do(func() {
		path, err := GetConfigPath()
		if err != nil {
			globalErr = fmt.Errorf("failed to get config path: %w", err)
			return
		}
		globalRegistry, globalErr = LoadFile(path)
	})
	return globalRegistry, globalErr
}

// ReloadRegistry discards the in-memory registry and reads the file again,
// picking up changes made by another process.
func ReloadRegistry() (*Registry, error) {
	writeMu.Lock()
	globalOnce = sync.Once{}
	writeMu.Unlock()
	return GetGlobalRegistry()
}

// LoadFile loads a registry from an explicit path.
// If the file doesn't exist, returns a new default registry.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewRegistry(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	reg := &Registry{}
	if err := yaml.Unmarshal(data, reg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if reg.Version != currentVersion {
		return nil, fmt.Errorf("unsupported config version %d in %s (expected %d)", reg.Version, path, currentVersion)
	}

	reg.normalize()
	return reg, nil
}

// normalize lowercases aliases, drops empty entries and fills in defaults
// for hand-edited files
func (r *Registry) normalize() {
	devices := make(map[string]*Device, len(r.Devices))
	for alias, d := range r.Devices {
		if d == nil {
			continue
		}
		devices[normalizeAlias(alias)] = d
	}
	r.Devices = devices

	if r.Preferences == nil {
		r.Preferences = defaultPreferences()
	}
}

// Save writes the registry to the config file, creating the directory
// with user-only permissions if needed.
func (r *Registry) Save() error {
	path, err := GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return r.SaveFile(path)
}

// SaveFile writes the registry to an explicit path. The file is replaced
// atomically so a crash never leaves a truncated config.
func (r *Registry) SaveFile(path string) error {
	body, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, fileHeader, path)
	buf.Write(body)

	writeMu.Lock()
	defer writeMu.Unlock()
	return writeAtomic(path, buf.Bytes())
}

// writeAtomic writes data to a temporary file next to path and renames it
// into place. Temporary files are created 0600.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary config file: %w", err)
	}
	tmpPath := tmp.Name()

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}
