package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/anatolykoptev/go-kit/env"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Database    DatabaseConfig    `toml:"database"`
	Session     SessionConfig     `toml:"session"`
	Credentials CredentialsConfig `toml:"credentials"`
	Limits      LimitsConfig      `toml:"limits"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	BaseURL      string `toml:"base_url"`
	ReadTimeout  string `toml:"read_timeout"`
	WriteTimeout string `toml:"write_timeout"`
}

// DatabaseConfig selects the session backend.
//
// Driver is "sqlite" (Path is used) or "postgres" (URL is used).
type DatabaseConfig struct {
	Driver       string `toml:"driver"`
	Path         string `toml:"path"`
	URL          string `toml:"url"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// SessionConfig controls session token signing and cookies.
type SessionConfig struct {
	Secret       string `toml:"secret"`
	TTL          string `toml:"ttl"`
	CookieName   string `toml:"cookie_name"`
	SecureCookie bool   `toml:"secure_cookie"`
}

// CredentialsConfig contains external service credentials.
type CredentialsConfig struct {
	Google     GoogleConfig     `toml:"google"`
	Completion CompletionConfig `toml:"completion"`
}

// GoogleConfig contains the identity provider OAuth2 client.
//
// RedirectURI is the sign-in callback, YouTubeRedirectURI the channel-connect callback.
type GoogleConfig struct {
	ClientID           string `toml:"client_id"`
	ClientSecret       string `toml:"client_secret"`
	RedirectURI        string `toml:"redirect_uri"`
	YouTubeRedirectURI string `toml:"youtube_redirect_uri"`
}

// CompletionConfig contains the hosted text-completion API settings.
type CompletionConfig struct {
	APIBase     string  `toml:"api_base"`
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`
	Timeout     string  `toml:"timeout"`
}

// LimitsConfig holds per-user request limits.
type LimitsConfig struct {
	GeneratePerMinute int `toml:"generate_per_minute"`
	GenerateBurst     int `toml:"generate_burst"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ResolveConfig loads path when it exists and falls back to [DefaultConfig] otherwise.
// Environment overrides are applied in both cases.
func ResolveConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		config = loaded
	}
	config.ApplyEnv()
	return config, nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, ErrInvalidArgument)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadDotEnv loads variables from .env files into the process environment, defaulting to ".env".
// Missing files are skipped; unreadable or malformed files are returned as errors.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

// ApplyEnv overrides secrets and deployment settings from YTDASH_* environment variables.
func (c *Config) ApplyEnv() {
	c.Server.BaseURL = env.Str("YTDASH_BASE_URL", c.Server.BaseURL)
	c.Server.Port = env.Int("YTDASH_PORT", c.Server.Port)

	c.Database.Driver = env.Str("YTDASH_DATABASE_DRIVER", c.Database.Driver)
	c.Database.Path = env.Str("YTDASH_DATABASE_PATH", c.Database.Path)
	c.Database.URL = env.Str("YTDASH_DATABASE_URL", c.Database.URL)

	c.Session.Secret = env.Str("YTDASH_SESSION_SECRET", c.Session.Secret)

	c.Credentials.Google.ClientID = env.Str("YTDASH_GOOGLE_CLIENT_ID", c.Credentials.Google.ClientID)
	c.Credentials.Google.ClientSecret = env.Str("YTDASH_GOOGLE_CLIENT_SECRET", c.Credentials.Google.ClientSecret)

	c.Credentials.Completion.APIBase = env.Str("YTDASH_COMPLETION_API_BASE", c.Credentials.Completion.APIBase)
	c.Credentials.Completion.APIKey = env.Str("YTDASH_COMPLETION_API_KEY", c.Credentials.Completion.APIKey)
	c.Credentials.Completion.Model = env.Str("YTDASH_COMPLETION_MODEL", c.Credentials.Completion.Model)
}

// placeholderPrefix marks sample values such as "your_google_client_id" left in a copied config.
const placeholderPrefix = "your_"

// Validate checks the settings the HTTP server cannot run without.
func (c *Config) Validate() error {
	if c.Session.Secret == "" {
		return fmt.Errorf("%w: session.secret is empty", ErrInvalidConfig)
	}
	for name, value := range map[string]string{
		"client_id":     c.Credentials.Google.ClientID,
		"client_secret": c.Credentials.Google.ClientSecret,
	} {
		if value == "" || strings.HasPrefix(value, placeholderPrefix) {
			return fmt.Errorf("%w: google %s is not set", ErrMissingCredentials, name)
		}
	}
	switch c.Database.Driver {
	case "sqlite", "":
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("%w: database.url is required for postgres", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown database driver %q", ErrInvalidConfig, c.Database.Driver)
	}
	for name, value := range map[string]string{
		"session.ttl":          c.Session.TTL,
		"server.read_timeout":  c.Server.ReadTimeout,
		"server.write_timeout": c.Server.WriteTimeout,
		"completion.timeout":   c.Credentials.Completion.Timeout,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, name, err)
		}
	}
	return nil
}

// Addr returns the host:port the HTTP server listens on.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SessionTTL returns the parsed session lifetime, defaulting to seven days.
func (c SessionConfig) SessionTTL() time.Duration {
	return parseDuration(c.TTL, 7*24*time.Hour)
}

// Timeouts returns the parsed server read and write timeouts.
func (c ServerConfig) Timeouts() (read, write time.Duration) {
	return parseDuration(c.ReadTimeout, 10*time.Second), parseDuration(c.WriteTimeout, 60*time.Second)
}

// RequestTimeout returns the completion HTTP client timeout.
func (c CompletionConfig) RequestTimeout() time.Duration {
	return parseDuration(c.Timeout, 60*time.Second)
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
