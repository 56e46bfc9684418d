// Package config loads and validates the vaults YAML configuration.
// It applies defaults so the server can rely on fully populated values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// DBConfig holds token store settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds HTTP server and expiry tunables.
type ServerConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`

	InactiveSessionExpireDays int `yaml:"inactive_session_expire_days"`
	DownloadExpireDays        int `yaml:"download_expire_days"`
	UploadExpireHours         int `yaml:"upload_expire_hours"`

	MaxChunkMB int `yaml:"max_chunk_mb"`
	MaxJSONKB  int `yaml:"max_json_kb"`

	LoginMaxAttempts   int `yaml:"login_max_attempts"`
	LoginWindowMinutes int `yaml:"login_window_minutes"`
}

// User is a login account with a pre-hashed password.
type User struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
}

// Vault is a named shared root directory and its member usernames.
type Vault struct {
	Name  string   `yaml:"name"`
	Path  string   `yaml:"path"`
	Users []string `yaml:"users"`
}

// Config mirrors the vaults.yaml schema.
type Config struct {
	Log    LogConfig    `yaml:"log"`
	DB     DBConfig     `yaml:"db"`
	Server ServerConfig `yaml:"server"`
	Users  []User       `yaml:"users"`
	Vaults []Vault      `yaml:"vaults"`
}

// Load reads a YAML config file, applies defaults, and validates it.
// It returns a fully populated Config or a descriptive error.
func Load(path string) (Config, error) {
	var c Config
	if path == "" {
		return c, errors.New("config path is required")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, err
	}
	applyDefaults(&c)
	if err := validate(&c); err != nil {
		return Config{}, err
	}
	c.DB.Path = strings.TrimSpace(c.DB.Path)
	for i := range c.Vaults {
		c.Vaults[i].Path = filepath.Clean(strings.TrimSpace(c.Vaults[i].Path))
	}
	return c, nil
}

// applyDefaults populates zero-values with sane defaults.
func applyDefaults(c *Config) {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.DB.Path == "" {
		c.DB.Path = "./state.db"
	}
	if c.Server.Bind == "" {
		c.Server.Bind = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.InactiveSessionExpireDays == 0 {
		c.Server.InactiveSessionExpireDays = 30
	}
	if c.Server.DownloadExpireDays == 0 {
		c.Server.DownloadExpireDays = 7
	}
	if c.Server.UploadExpireHours == 0 {
		c.Server.UploadExpireHours = 24
	}
	if c.Server.MaxChunkMB == 0 {
		c.Server.MaxChunkMB = 16
	}
	if c.Server.MaxJSONKB == 0 {
		c.Server.MaxJSONKB = 1024
	}
	if c.Server.LoginMaxAttempts == 0 {
		c.Server.LoginMaxAttempts = 10
	}
	if c.Server.LoginWindowMinutes == 0 {
		c.Server.LoginWindowMinutes = 5
	}
}

// validate performs basic sanity checks for required fields and ranges.
// It does not mutate the config.
func validate(c *Config) error {
	if strings.TrimSpace(c.Log.Level) == "" {
		return errors.New("log.level is required")
	}
	if c.DB.Path == "" {
		return errors.New("db.path is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("server.port is invalid")
	}
	if c.Server.MaxChunkMB < 1 || c.Server.MaxChunkMB > 1024 {
		return errors.New("server.max_chunk_mb is invalid")
	}
	if c.Server.InactiveSessionExpireDays < 1 {
		return errors.New("server.inactive_session_expire_days is invalid")
	}
	if c.Server.DownloadExpireDays < 1 {
		return errors.New("server.download_expire_days is invalid")
	}
	if c.Server.UploadExpireHours < 1 {
		return errors.New("server.upload_expire_hours is invalid")
	}
	if c.Server.LoginMaxAttempts < 1 {
		return errors.New("server.login_max_attempts is invalid")
	}
	if c.Server.LoginWindowMinutes < 1 {
		return errors.New("server.login_window_minutes is invalid")
	}

	seenUsers := make(map[string]bool, len(c.Users))
	for _, u := range c.Users {
		name := strings.ToLower(strings.TrimSpace(u.Username))
		if name == "" {
			return errors.New("users: username is required")
		}
		if u.PasswordHash == "" {
			return fmt.Errorf("users: %s: password_hash is required", u.Username)
		}
		if seenUsers[name] {
			return fmt.Errorf("users: duplicate username %s", u.Username)
		}
		seenUsers[name] = true
	}

	seenVaults := make(map[string]bool, len(c.Vaults))
	for _, v := range c.Vaults {
		if strings.TrimSpace(v.Name) == "" {
			return errors.New("vaults: name is required")
		}
		if seenVaults[v.Name] {
			return fmt.Errorf("vaults: duplicate name %s", v.Name)
		}
		seenVaults[v.Name] = true
		p := filepath.Clean(strings.TrimSpace(v.Path))
		if p == "" || !filepath.IsAbs(p) {
			return fmt.Errorf("vaults: %s: path must be absolute", v.Name)
		}
		// Reject the filesystem root itself as a vault root.
		if filepath.Dir(p) == p {
			return fmt.Errorf("vaults: %s: path cannot be filesystem root", v.Name)
		}
	}
	return nil
}
