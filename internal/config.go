package internal

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultBaseURL is the fixed remote API endpoint. Not environment-specific
// wiring: the wire contract is tied to this service.
const DefaultBaseURL = "https://webshare.cz/api"

// Config holds application configuration.
type Config struct {
	BaseURL     string `yaml:"base_url"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	DownloadDir string `yaml:"download_dir"`
	ListenAddr  string `yaml:"listen_addr"`
	ProxyURL    string `yaml:"proxy_url"`
	TimeoutSecs int    `yaml:"timeout_seconds"` // API calls only, not streams

	// Logging configuration
	LogLevel    string `yaml:"log_level"`
	EnableDebug bool   `yaml:"debug"`
	QuietMode   bool   `yaml:"quiet"`
	LogFile     string `yaml:"log_file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     DefaultBaseURL,
		DownloadDir: "/downloads",
		ListenAddr:  ":5000",
		TimeoutSecs: 30,

		LogLevel:    "info",
		EnableDebug: false,
		QuietMode:   false,
		LogFile:     "", // Empty means stderr
	}
}

// LoadFromFile overlays configuration from a YAML file. Zero values in the
// file leave the current setting untouched.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc Config
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if fc.BaseURL != "" {
		c.BaseURL = fc.BaseURL
	}
	if fc.Username != "" {
		c.Username = fc.Username
	}
	if fc.Password != "" {
		c.Password = fc.Password
	}
	if fc.DownloadDir != "" {
		c.DownloadDir = fc.DownloadDir
	}
	if fc.ListenAddr != "" {
		c.ListenAddr = fc.ListenAddr
	}
	if fc.ProxyURL != "" {
		c.ProxyURL = fc.ProxyURL
	}
	if fc.TimeoutSecs != 0 {
		c.TimeoutSecs = fc.TimeoutSecs
	}
	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}
	if fc.EnableDebug {
		c.EnableDebug = true
	}
	if fc.QuietMode {
		c.QuietMode = true
	}
	if fc.LogFile != "" {
		c.LogFile = fc.LogFile
	}

	return nil
}

// LoadFromEnv loads configuration from environment variables. The credential
// and download-path variables keep the names the deployment already uses;
// everything else is WSFETCH_-prefixed.
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("WEBSHARE_USERNAME"); v != "" {
		c.Username = v
	}
	if v := os.Getenv("WEBSHARE_PASSWORD"); v != "" {
		c.Password = v
	}
	if v := os.Getenv("DOWNLOAD_PATH"); v != "" {
		c.DownloadDir = v
	}
	if v := os.Getenv("WSFETCH_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("WSFETCH_PROXY"); v != "" {
		c.ProxyURL = v
	}
	if v := os.Getenv("WSFETCH_TIMEOUT"); v != "" {
		if t, err := strconv.Atoi(v); err == nil && t > 0 {
			c.TimeoutSecs = t
		}
	}

	if v := os.Getenv("WSFETCH_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("WSFETCH_DEBUG"); v != "" {
		c.EnableDebug = v == "true" || v == "1"
	}
	if v := os.Getenv("WSFETCH_QUIET"); v != "" {
		c.QuietMode = v == "true" || v == "1"
	}
	if v := os.Getenv("WSFETCH_LOG_FILE"); v != "" {
		c.LogFile = v
	}
}

// CredentialsConfigured reports whether both username and password are set.
func (c *Config) CredentialsConfigured() bool {
	return c.Username != "" && c.Password != ""
}

// ValidateConfig validates the configuration values.
func (c *Config) ValidateConfig() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	if c.DownloadDir == "" {
		return fmt.Errorf("download directory cannot be empty")
	}
	if c.TimeoutSecs < 1 {
		return fmt.Errorf("invalid timeout: %d (must be > 0)", c.TimeoutSecs)
	}
	return nil
}
