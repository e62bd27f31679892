// Package config is the settings layer spec.md treats as an opaque
// key-value collaborator: it holds the configured project root, the
// client's identity, and its credentials. Modelled directly on
// internal/client/config.Config (Validate/Save/LoadFromFile, an
// slog.LogValue that redacts secrets), but persisted with the
// write-temp-fsync-rename discipline this module uses everywhere rather
// than the reference client's plain os.WriteFile.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/codeexpert/syncengine/internal/fsutil"
)

var ErrProjectDirUnset = errors.New("config: project directory is not set")

// Config is the client's persisted settings file.
type Config struct {
	Path string `json:"-"`

	ProjectDir     string `json:"project_dir"`
	ServerURL      string `json:"server_url"`
	ClientID       string `json:"client_id,omitempty"`
	AccessToken    string `json:"access_token,omitempty"`
	PrivateKeyPath string `json:"private_key_path,omitempty"`
}

// LogValue redacts secret-bearing fields, logging only their presence —
// the same pattern internal/client/config.Config.LogValue uses.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("path", c.Path),
		slog.String("project_dir", c.ProjectDir),
		slog.String("server_url", c.ServerURL),
		slog.String("client_id", c.ClientID),
		slog.Bool("access_token", c.AccessToken != ""),
		slog.Bool("private_key", c.PrivateKeyPath != ""),
	)
}

// RequireProjectDir returns ProjectDir or ErrProjectDirUnset when absent,
// the setup-phase check C7 performs before deriving a project's directory.
func (c *Config) RequireProjectDir() (string, error) {
	if c.ProjectDir == "" {
		return "", ErrProjectDirUnset
	}
	return c.ProjectDir, nil
}

// Save flushes the config atomically to Path.
func (c *Config) Save() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return fsutil.WriteFile(c.Path, data, false)
}

// LoadFromFile reads and decodes path. A missing file yields a zero-value
// Config (not an error) so first-run callers can populate it and Save.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{Path: path}, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	cfg.Path = path
	return &cfg, nil
}
