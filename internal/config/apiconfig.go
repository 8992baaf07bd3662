// Package config provides configuration management for loginweb-cli.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"
)

// Config is the merged configuration used by every command.
//
// Config file location:
//   - Windows: %USERPROFILE%\.config\loginweb\apiconfig
//   - Unix: ~/.config/loginweb/apiconfig
//
// INI format:
//
//	[loginweb]
//	platform_url = https://api.loginweb.events
//	api_key = <token>
//	event_id = <default event>
//
//	[proxy]
//	mode = no-proxy | system | basic | ntlm
//	host = proxy.corp.example.com
//	port = 8080
//	user =
//	no_proxy = localhost,127.0.0.1
//
// Environment variables LOGINWEB_API_KEY, LOGINWEB_API_URL and
// LOGINWEB_EVENT_ID override file values; a .env file in the working
// directory is loaded first for local development.
type Config struct {
	// Platform connection settings
	PlatformURL string `ini:"platform_url"`
	APIKey      string `ini:"api_key"`

	// EventID is the default event commands operate on when --event is
	// not given.
	EventID string `ini:"event_id"`

	// Proxy settings
	ProxyMode     string `ini:"mode"` // "no-proxy", "system", "basic", "ntlm"
	ProxyHost     string `ini:"host"`
	ProxyPort     int    `ini:"port"`
	ProxyUser     string `ini:"user"`
	ProxyPassword string `ini:"-"` // never persisted; prompted or from env
	NoProxy       string `ini:"no_proxy"`
}

// Validation errors
var (
	ErrMissingPlatformURL = errors.New("platform_url is required")
	ErrMissingAPIKey      = errors.New("api_key is required (set via config, LOGINWEB_API_KEY, or --api-key)")
	ErrMissingEventID     = errors.New("event id is required (set via config, LOGINWEB_EVENT_ID, or --event)")
)

// DefaultConfigPath returns the default path for the apiconfig file.
func DefaultConfigPath() (string, error) {
	var configDir string

	if runtime.GOOS == "windows" {
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", errors.New("USERPROFILE environment variable not set")
		}
		configDir = filepath.Join(userProfile, ".config", "loginweb")
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config", "loginweb")
	}

	return filepath.Join(configDir, "apiconfig"), nil
}

// New returns a Config with default values.
func New() *Config {
	return &Config{
		PlatformURL: "https://api.loginweb.events",
		ProxyMode:   "no-proxy",
	}
}

// Load reads configuration from an INI file and applies the environment
// overlay. A missing file is not an error; defaults are returned.
func Load(path string) (*Config, error) {
	cfg := New()

	// Local development convenience: a .env next to the invocation wins
	// over nothing, loses to real environment variables.
	_ = godotenv.Load()

	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			path = "" // fall through to env-only config
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			iniFile, err := ini.Load(path)
			if err != nil {
				return nil, fmt.Errorf("failed to load config %s: %w", path, err)
			}

			main := iniFile.Section("loginweb")
			cfg.PlatformURL = main.Key("platform_url").MustString(cfg.PlatformURL)
			cfg.APIKey = main.Key("api_key").String()
			cfg.EventID = main.Key("event_id").String()

			proxy := iniFile.Section("proxy")
			cfg.ProxyMode = proxy.Key("mode").MustString(cfg.ProxyMode)
			cfg.ProxyHost = proxy.Key("host").String()
			cfg.ProxyPort = proxy.Key("port").MustInt(0)
			cfg.ProxyUser = proxy.Key("user").String()
			cfg.NoProxy = proxy.Key("no_proxy").String()
		}
	}

	// Environment overrides
	if v := os.Getenv("LOGINWEB_API_URL"); v != "" {
		cfg.PlatformURL = v
	}
	if v := os.Getenv("LOGINWEB_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("LOGINWEB_EVENT_ID"); v != "" {
		cfg.EventID = v
	}
	if v := os.Getenv("LOGINWEB_PROXY_PASSWORD"); v != "" {
		cfg.ProxyPassword = v
	}

	return cfg, nil
}

// Save writes the configuration to an INI file, creating parent directories
// as needed. The API key is stored in the file, so permissions are
// restricted and the write is atomic via temp file + rename.
func Save(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	main, err := iniFile.NewSection("loginweb")
	if err != nil {
		return fmt.Errorf("failed to create loginweb section: %w", err)
	}
	main.Key("platform_url").SetValue(cfg.PlatformURL)
	main.Key("api_key").SetValue(cfg.APIKey)
	main.Key("event_id").SetValue(cfg.EventID)

	proxy, err := iniFile.NewSection("proxy")
	if err != nil {
		return fmt.Errorf("failed to create proxy section: %w", err)
	}
	proxy.Key("mode").SetValue(cfg.ProxyMode)
	proxy.Key("host").SetValue(cfg.ProxyHost)
	proxy.Key("port").SetValue(fmt.Sprintf("%d", cfg.ProxyPort))
	proxy.Key("user").SetValue(cfg.ProxyUser)
	proxy.Key("no_proxy").SetValue(cfg.NoProxy)

	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set config permissions: %w", err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// ValidateForConnection checks the settings every API call needs.
func (cfg *Config) ValidateForConnection() error {
	if strings.TrimSpace(cfg.PlatformURL) == "" {
		return ErrMissingPlatformURL
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return ErrMissingAPIKey
	}
	return nil
}
