// Package config handles TOML-based configuration loading and validation.
// Precedence is defaults < config file < environment < CLI flags; the
// environment layer also picks up a .env file in the working directory.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// appName names the XDG subdirectories.
const appName = "reelwatch"

// Config holds all application configuration.
type Config struct {
	TMDBAPIKey string `toml:"tmdb_api_key"`
	TMDBBase   string `toml:"tmdb_base"`
	Language   string `toml:"language"`
	Source     string `toml:"source"`
	Browser    string `toml:"browser"`
	History    bool   `toml:"history"`
	Backend    string `toml:"backend"`
	DataDir    string `toml:"data_dir"`
	Listen     string `toml:"listen"`
	LogFile    string `toml:"log_file"`
	Debug      bool   `toml:"debug"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		TMDBBase: "api.themoviedb.org/3",
		Language: "en-US",
		Source:   "vidsrc",
		History:  true,
		DataDir:  "~/.local/share/reelwatch",
		Listen:   "127.0.0.1:8787",
	}
}

// configDir returns the XDG-compliant config directory.
func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file and merges with defaults and the environment.
// If the config file doesn't exist, defaults are used.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err == nil {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// A missing .env is the common case.
	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyEnv overlays REELWATCH_* variables. TMDB_API_KEY is accepted as well
// since that is what most TMDB tooling exports.
func (c *Config) applyEnv() {
	if v := os.Getenv("TMDB_API_KEY"); v != "" {
		c.TMDBAPIKey = v
	}
	if v := os.Getenv("REELWATCH_TMDB_API_KEY"); v != "" {
		c.TMDBAPIKey = v
	}
	if v := os.Getenv("REELWATCH_BACKEND"); v != "" {
		c.Backend = v
	}
	if v := os.Getenv("REELWATCH_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("REELWATCH_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("REELWATCH_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Debug = b
		}
	}
}

// Validate checks config values are within acceptable bounds.
func (c *Config) Validate() error {
	validSources := map[string]bool{
		"vidsrc": true, "vidlink": true, "superembed": true,
	}
	if !validSources[strings.ToLower(c.Source)] {
		return fmt.Errorf("unsupported source %q (valid: vidsrc, vidlink, superembed)", c.Source)
	}

	if c.TMDBBase == "" {
		return fmt.Errorf("tmdb_base cannot be empty")
	}

	if c.Backend != "" {
		u, err := url.Parse(c.Backend)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("backend must be an http(s) URL, got %q", c.Backend)
		}
	}

	if c.DataDir == "" {
		return fmt.Errorf("data_dir cannot be empty")
	}

	return nil
}

// Remote reports whether a remote reelwatch server is configured as backend.
func (c *Config) Remote() bool {
	return c.Backend != ""
}

// ExpandDataDir resolves ~ in the data directory path.
func (c *Config) ExpandDataDir() (string, error) {
	return expandHome(c.DataDir)
}

// DatabasePath returns the path of the local backend database.
func (c *Config) DatabasePath() (string, error) {
	dir, err := c.ExpandDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "reelwatch.db"), nil
}

func expandHome(dir string) (string, error) {
	if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expanding home dir: %w", err)
		}
		dir = filepath.Join(home, dir[2:])
	}
	return filepath.Abs(dir)
}

// StateDir returns the XDG state directory that holds session storage.
func StateDir() (string, error) {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		stateDir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateDir, appName), nil
}

// SessionPath returns the path to the session storage file.
func SessionPath() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "session.tsv"), nil
}

// CredentialsPath returns the path to the stored auth token.
func CredentialsPath() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "credentials.tsv"), nil
}
