// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Emberlink Contributors

// Package config loads Emberlink configuration from a YAML file and
// command-line flags, flags taking precedence.
package config

import (
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config is the full server configuration.
type Config struct {
	Database      DatabaseConfig      `koanf:"database"`
	Observability ObservabilityConfig `koanf:"observability"`
	Session       SessionConfig       `koanf:"session"`
	RateLimit     RateLimitConfig     `koanf:"ratelimit"`
	Argon2        Argon2Config        `koanf:"argon2"`
	Username      UsernameConfig      `koanf:"username"`
	Verification  VerificationConfig  `koanf:"verification"`
	Log           LogConfig           `koanf:"log"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// ObservabilityConfig configures the metrics/health HTTP server.
type ObservabilityConfig struct {
	Addr string `koanf:"addr"`
}

// SessionConfig configures session issuance.
type SessionConfig struct {
	TTL time.Duration `koanf:"ttl"`

	// Pepper keys the HMAC session-token derivation. Required; rotating
	// it invalidates every outstanding session.
	Pepper string `koanf:"pepper"`
}

// RateLimitConfig configures the account operation rate limiter.
type RateLimitConfig struct {
	Max    int           `koanf:"max"`
	Window time.Duration `koanf:"window"`
}

// Argon2Config tunes password hashing.
type Argon2Config struct {
	Time    uint32 `koanf:"time"`
	Memory  uint32 `koanf:"memory"`
	Threads uint8  `koanf:"threads"`
	SaltLen int    `koanf:"salt_len"`
}

// UsernameConfig configures username policy.
type UsernameConfig struct {
	// Reserved is the glob-pattern blacklist. Nil falls back to the
	// built-in defaults.
	Reserved []string `koanf:"reserved"`
}

// VerificationConfig configures the Discord verification flow.
type VerificationConfig struct {
	CodeTTL time.Duration `koanf:"code_ttl"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json or text
}

// Default returns the configuration defaults. Database URL and session
// pepper have no defaults and must be provided.
func Default() Config {
	return Config{
		Observability: ObservabilityConfig{Addr: ":9090"},
		Session:       SessionConfig{TTL: 7 * 24 * time.Hour},
		RateLimit:     RateLimitConfig{Max: 5, Window: 5 * time.Minute},
		Argon2: Argon2Config{
			Time:    1,
			Memory:  64 * 1024,
			Threads: 4,
			SaltLen: 16,
		},
		Verification: VerificationConfig{CodeTTL: 10 * time.Minute},
		Log:          LogConfig{Level: "info", Format: "json"},
	}
}

// Load builds the configuration from defaults, an optional YAML file,
// and optional command-line flags, in increasing precedence.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_FILE_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks required fields and value ranges.
func (c Config) Validate() error {
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url is required")
	}
	if c.Session.Pepper == "" {
		return oops.Code("CONFIG_INVALID").Errorf("session.pepper is required")
	}
	if c.Session.TTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("session.ttl must be positive")
	}
	if c.RateLimit.Max <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("ratelimit.max must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("ratelimit.window must be positive")
	}
	if c.Verification.CodeTTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("verification.code_ttl must be positive")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return oops.Code("CONFIG_INVALID").Errorf("log.format must be json or text, got %q", c.Log.Format)
	}
	return nil
}
