// Package config loads runtime settings from flags, the environment, an
// optional .env file and built-in defaults, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"git.sr.ht/~jakintosh/yourauth/pkg/tokens"
)

// Keys. Each is bound to the upper-cased environment variable of the same
// name.
const (
	KeyPort           = "port"
	KeyDBPath         = "db_path"
	KeyKeysDir        = "keys_dir"
	KeyPrivateKey     = "jwt_private_key"
	KeyPublicKey      = "jwt_public_key"
	KeyIssuer         = "jwt_issuer"
	KeyAudience       = "jwt_audience"
	KeyAccessTTL      = "jwt_access_ttl"
	KeyRefreshTTL     = "jwt_refresh_ttl"
	KeyPlansDir       = "plans_dir"
	KeyCORSOrigins    = "cors_origins"
	KeyRedisAddr      = "redis_addr"
	KeyRedisPassword  = "redis_password"
	KeyRateLimit      = "rate_limit"
	KeyRateWindow     = "rate_window"
	KeyLogLevel       = "log_level"
	KeyLogFormat      = "log_format"
	defaultCORSOrigin = "http://localhost:5173,http://localhost:5174,https://yourauth-dashboard.vercel.app,https://yourauth.vercel.app"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Port    int
	DBPath  string
	KeysDir string

	// PrivateKeyPEM and PublicKeyPEM supply the signing keys inline. When
	// both are set KeysDir is not used.
	PrivateKeyPEM string
	PublicKeyPEM  string

	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	PlansDir    string
	CORSOrigins []string

	RedisAddr     string
	RedisPassword string
	RateLimit     int
	RateWindow    time.Duration

	LogLevel  string
	LogFormat string
}

// New returns a viper instance with defaults set and every key bound to its
// environment variable.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault(KeyPort, 5000)
	v.SetDefault(KeyDBPath, "yourauth.db")
	v.SetDefault(KeyKeysDir, "keys")
	v.SetDefault(KeyIssuer, tokens.DefaultIssuer)
	v.SetDefault(KeyAudience, tokens.DefaultAudience)
	v.SetDefault(KeyAccessTTL, tokens.DefaultAccessTTL)
	v.SetDefault(KeyRefreshTTL, tokens.DefaultRefreshTTL)
	v.SetDefault(KeyCORSOrigins, defaultCORSOrigin)
	v.SetDefault(KeyRateLimit, 100)
	v.SetDefault(KeyRateWindow, time.Minute)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "json")

	for _, key := range []string{
		KeyPort, KeyDBPath, KeyKeysDir, KeyPrivateKey, KeyPublicKey,
		KeyIssuer, KeyAudience, KeyAccessTTL, KeyRefreshTTL, KeyPlansDir,
		KeyCORSOrigins, KeyRedisAddr, KeyRedisPassword, KeyRateLimit,
		KeyRateWindow, KeyLogLevel, KeyLogFormat,
	} {
		_ = v.BindEnv(key, strings.ToUpper(key))
	}
	return v
}

// LoadEnvFile reads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load reads a Config out of v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:          v.GetInt(KeyPort),
		DBPath:        v.GetString(KeyDBPath),
		KeysDir:       v.GetString(KeyKeysDir),
		PrivateKeyPEM: unescapeNewlines(v.GetString(KeyPrivateKey)),
		PublicKeyPEM:  unescapeNewlines(v.GetString(KeyPublicKey)),
		Issuer:        v.GetString(KeyIssuer),
		Audience:      v.GetString(KeyAudience),
		AccessTTL:     v.GetDuration(KeyAccessTTL),
		RefreshTTL:    v.GetDuration(KeyRefreshTTL),
		PlansDir:      v.GetString(KeyPlansDir),
		CORSOrigins:   splitList(v.GetString(KeyCORSOrigins)),
		RedisAddr:     v.GetString(KeyRedisAddr),
		RedisPassword: v.GetString(KeyRedisPassword),
		RateLimit:     v.GetInt(KeyRateLimit),
		RateWindow:    v.GetDuration(KeyRateWindow),
		LogLevel:      v.GetString(KeyLogLevel),
		LogFormat:     v.GetString(KeyLogFormat),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the token core cannot run without.
func (c *Config) Validate() error {
	var problems []string
	if c.Port <= 0 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("port %d out of range", c.Port))
	}
	if strings.TrimSpace(c.Issuer) == "" {
		problems = append(problems, "issuer is empty")
	}
	if strings.TrimSpace(c.Audience) == "" {
		problems = append(problems, "audience is empty")
	}
	if c.AccessTTL <= 0 {
		problems = append(problems, "access token ttl must be positive")
	}
	if c.RefreshTTL <= 0 {
		problems = append(problems, "refresh token ttl must be positive")
	}
	if (c.PrivateKeyPEM == "") != (c.PublicKeyPEM == "") {
		problems = append(problems, "inline keys need both JWT_PRIVATE_KEY and JWT_PUBLIC_KEY")
	}
	if c.PrivateKeyPEM == "" && c.KeysDir == "" {
		problems = append(problems, "no key source: set KEYS_DIR or inline keys")
	}
	if c.RedisAddr != "" && (c.RateLimit <= 0 || c.RateWindow <= 0) {
		problems = append(problems, "rate limit and window must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// LoadKeys returns the signing keys from the inline PEMs when present,
// otherwise from KeysDir, creating them there on first run.
func (c *Config) LoadKeys() (*tokens.KeyPair, error) {
	if c.PrivateKeyPEM != "" {
		return tokens.LoadKeyPair([]byte(c.PrivateKeyPEM), []byte(c.PublicKeyPEM))
	}
	return tokens.EnsureKeys(c.KeysDir)
}

func (c *Config) TokenOptions() tokens.Options {
	return tokens.Options{
		Issuer:     c.Issuer,
		Audience:   c.Audience,
		AccessTTL:  c.AccessTTL,
		RefreshTTL: c.RefreshTTL,
	}
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// unescapeNewlines lets PEM blocks be passed in single-line env vars.
func unescapeNewlines(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
