// Package config loads quickmark settings from, in increasing precedence:
// defaults, an optional YAML file, a .env file and QUICKMARK_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. QUICKMARK_LOG_LEVEL.
const EnvPrefix = "QUICKMARK"

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

var ErrRemoteNotConfigured = errors.New("cloud sync is not configured: set QUICKMARK_PROJECT_ID and QUICKMARK_API_KEY")

type Config struct {
	ListenAddr      string        // ex: "127.0.0.1:7777"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel      string // "debug" | "info" | "warn" | "error"
	PrettyLog     bool   // true => zap dev (color), false => zap prod (JSON)
	LogFile       string // optional rotated JSON log file
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	DataDir      string // ex: ~/.quickmark
	StoreBackend string // "sqlite" | "redis" | "memory"
	SQLitePath   string // defaults to DataDir/quickmark.db

	// Remote document store and identity
	ProjectID        string        // Firestore project
	APIKey           string        // identity toolkit web API key
	FirestoreURL     string        // optional override of the documents root (emulator)
	OAuthClientID    string        // client id for the browser sign-in
	AuthURL          string        // authorization endpoint for the browser sign-in
	CredentialHelper []string      // command printing an upstream access token
	SignInTimeout    time.Duration // how long to wait for the browser round trip
	OpenBrowser      bool          // open the authorization URL automatically
	HTTPTimeout      time.Duration // per-request timeout for remote calls

	// Background work
	SyncDelay              time.Duration // first scheduled sync check after start
	SyncInterval           time.Duration // period of scheduled sync checks
	GCInterval             time.Duration // tombstone purge period
	HomepageFile           string        // optional Homepage bookmarks.yaml/services.yaml to import
	HomepageReloadInterval time.Duration // 0 = import once at start

	// Redis
	RedisAddr           string        // ex: "localhost:6379"
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisPrefix         string        // key prefix, ex: "quickmark:"
	RedisDT             time.Duration // Redis dial timeout (ex: 5s)
	RedisRT             time.Duration // Redis read timeout (ex: 3s)
	RedisWT             time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize       int           // Redis connection pool size
	RedisConnectTimeout time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold  int           // warn after this many attempts

	// HTTP access
	AllowedHosts    []string // optional, restrict access to specific Host headers
	AllowedCIDRS    []string // optional, restrict access to specific IPs
	AllowedOrigins  []string // optional, CORS origins (new-tab page, extension)
	TrustProxy      bool     // true => trust X-Forwarded-For headers
	RateLimitBurst  int
	RateLimitPerMin int
}

func setDefaults(v *viper.Viper, home string) {
	v.SetDefault("listen_addr", "127.0.0.1:7777")
	v.SetDefault("shutdown_timeout", 5*time.Second)

	v.SetDefault("log_level", "info")
	v.SetDefault("pretty_log", true)
	v.SetDefault("log_file", "")
	v.SetDefault("log_max_size_mb", 10)
	v.SetDefault("log_max_backups", 3)
	v.SetDefault("log_max_age_days", 28)

	v.SetDefault("data_dir", filepath.Join(home, ".quickmark"))
	v.SetDefault("store", BackendSQLite)
	v.SetDefault("sqlite_path", "")

	v.SetDefault("project_id", "")
	v.SetDefault("api_key", "")
	v.SetDefault("firestore_url", "")
	v.SetDefault("oauth_client_id", "")
	v.SetDefault("auth_url", "https://accounts.google.com/o/oauth2/v2/auth")
	v.SetDefault("credential_helper", "")
	v.SetDefault("signin_timeout", 3*time.Minute)
	v.SetDefault("open_browser", true)
	v.SetDefault("http_timeout", 30*time.Second)

	v.SetDefault("sync_delay", time.Minute)
	v.SetDefault("sync_interval", 12*time.Hour)
	v.SetDefault("gc_interval", 24*time.Hour)
	v.SetDefault("homepage_file", "")
	v.SetDefault("homepage_reload_interval", time.Duration(0))

	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_username", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_prefix", "quickmark:")
	v.SetDefault("redis_dial_timeout", 5*time.Second)
	v.SetDefault("redis_read_timeout", 3*time.Second)
	v.SetDefault("redis_write_timeout", 3*time.Second)
	v.SetDefault("redis_max_wait", 10*time.Second)
	v.SetDefault("redis_ping_timeout", 5*time.Second)
	v.SetDefault("redis_pool_size", 10)
	v.SetDefault("redis_connect_timeout", 30*time.Second)
	v.SetDefault("redis_retry_interval", 2*time.Second)
	v.SetDefault("redis_warn_threshold", 3)

	v.SetDefault("allowed_hosts", "")
	v.SetDefault("allowed_cidrs", "127.0.0.1/32, ::1/128")
	v.SetDefault("allowed_origins", "")
	v.SetDefault("trust_proxy", false)
	v.SetDefault("rate_limit_burst", 60)
	v.SetDefault("rate_limit_per_min", 600)
}

// Load reads the configuration. configFile may be empty, in which case
// DataDir/config.yaml is used when it exists.
func Load(configFile string) (*Config, error) {
	// A missing .env is fine; the environment alone is enough.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	v := viper.New()
	setDefaults(v, home)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile == "" {
		candidate := filepath.Join(expandHome(v.GetString("data_dir"), home), "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
		}
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	return fromViper(v, home)
}

func fromViper(v *viper.Viper, home string) (*Config, error) {
	cfg := &Config{
		// Server settings
		ListenAddr:      v.GetString("listen_addr"),
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),

		// Logging
		LogLevel:      strings.ToLower(v.GetString("log_level")),
		PrettyLog:     v.GetBool("pretty_log"),
		LogFile:       expandHome(v.GetString("log_file"), home),
		LogMaxSizeMB:  v.GetInt("log_max_size_mb"),
		LogMaxBackups: v.GetInt("log_max_backups"),
		LogMaxAgeDays: v.GetInt("log_max_age_days"),

		// Local persistence
		DataDir:      expandHome(v.GetString("data_dir"), home),
		StoreBackend: strings.ToLower(v.GetString("store")),
		SQLitePath:   expandHome(v.GetString("sqlite_path"), home),

		// Remote
		ProjectID:        v.GetString("project_id"),
		APIKey:           v.GetString("api_key"),
		FirestoreURL:     v.GetString("firestore_url"),
		OAuthClientID:    v.GetString("oauth_client_id"),
		AuthURL:          v.GetString("auth_url"),
		CredentialHelper: strings.Fields(v.GetString("credential_helper")),
		SignInTimeout:    v.GetDuration("signin_timeout"),
		OpenBrowser:      v.GetBool("open_browser"),
		HTTPTimeout:      v.GetDuration("http_timeout"),

		// Background work
		SyncDelay:              v.GetDuration("sync_delay"),
		SyncInterval:           v.GetDuration("sync_interval"),
		GCInterval:             v.GetDuration("gc_interval"),
		HomepageFile:           expandHome(v.GetString("homepage_file"), home),
		HomepageReloadInterval: v.GetDuration("homepage_reload_interval"),

		// Redis settings
		RedisAddr:           v.GetString("redis_addr"),
		RedisUser:           v.GetString("redis_username"),
		RedisPassword:       v.GetString("redis_password"),
		RedisDB:             v.GetInt("redis_db"),
		RedisPrefix:         v.GetString("redis_prefix"),
		RedisDT:             v.GetDuration("redis_dial_timeout"),
		RedisRT:             v.GetDuration("redis_read_timeout"),
		RedisWT:             v.GetDuration("redis_write_timeout"),
		RedisMaxWait:        v.GetDuration("redis_max_wait"),
		RedisPingTimeout:    v.GetDuration("redis_ping_timeout"),
		RedisPoolSize:       v.GetInt("redis_pool_size"),
		RedisConnectTimeout: v.GetDuration("redis_connect_timeout"),
		RedisRetryInterval:  v.GetDuration("redis_retry_interval"),
		RedisWarnThreshold:  v.GetInt("redis_warn_threshold"),

		// Access restrictions
		AllowedHosts:    stringList(v, "allowed_hosts"),
		AllowedCIDRS:    stringList(v, "allowed_cidrs"),
		AllowedOrigins:  stringList(v, "allowed_origins"),
		TrustProxy:      v.GetBool("trust_proxy"),
		RateLimitBurst:  v.GetInt("rate_limit_burst"),
		RateLimitPerMin: v.GetInt("rate_limit_per_min"),
	}

	if cfg.SQLitePath == "" {
		cfg.SQLitePath = filepath.Join(cfg.DataDir, "quickmark.db")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendSQLite, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("invalid store backend %q (want sqlite, redis or memory)", c.StoreBackend)
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("sync interval must be positive, got %s", c.SyncInterval)
	}
	if c.StoreBackend == BackendRedis && c.RedisAddr == "" {
		return errors.New("redis store selected but QUICKMARK_REDIS_ADDR is empty")
	}
	return nil
}

// ValidateRemote checks the settings needed to talk to the remote store.
// Only commands that sync call it, so the collection works offline without
// any cloud configuration.
func (c *Config) ValidateRemote() error {
	if c.ProjectID == "" || c.APIKey == "" {
		return ErrRemoteNotConfigured
	}
	return nil
}

// RemoteConfigured reports whether cloud sync settings are present.
func (c *Config) RemoteConfigured() bool {
	return c.ValidateRemote() == nil
}

// Redacted returns a copy safe to log.
func (c *Config) Redacted() Config {
	cp := *c
	if cp.RedisPassword != "" {
		cp.RedisPassword = "***REDACTED***"
	}
	if cp.RedisUser != "" {
		cp.RedisUser = "***REDACTED***"
	}
	if cp.APIKey != "" {
		cp.APIKey = "***REDACTED***"
	}
	return cp
}

// helpers

// stringList accepts a comma-separated string (env, .env) or a YAML list.
func stringList(v *viper.Viper, key string) []string {
	if s, ok := v.Get(key).(string); ok {
		return splitAndTrim(s)
	}
	var out []string
	for _, item := range v.GetStringSlice(key) {
		out = append(out, splitAndTrim(item)...)
	}
	return out
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
