// Package config holds the configuration for the tracker CLI.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/kalverra/tracker-client/session"
)

// Defaults applied by Validate and used as flag defaults.
const (
	DefaultHost          = session.DefaultHost
	DefaultSchema        = session.DefaultSchema
	DefaultVersion       = session.DefaultVersion
	DefaultEncoding      = session.DefaultEncoding
	DefaultRetryInterval = session.DefaultRetryInterval
	DefaultTimeout       = session.DefaultTimeout
	DefaultLogLevel      = "info"
	DefaultOutput        = "yaml"

	EnvPrefix = "TRACKER"
)

// Keys shared by flags, environment variables (TRACKER_ORG_ID, ...) and
// config files.
const (
	KeyConfig        = "config"
	KeyToken         = "token"
	KeyOrgID         = "org-id"
	KeyHost          = "host"
	KeySchema        = "schema"
	KeyVersion       = "api-version"
	KeyHeaders       = "headers"
	KeyEncoding      = "encoding"
	KeyRetries       = "retries"
	KeyRetryInterval = "retry-interval"
	KeyTimeout       = "timeout"
	KeyLogLevel      = "log-level"
	KeyOutput        = "output"
)

// Config holds everything needed to talk to the tracker API.
type Config struct {
	Token   string
	OrgID   string
	Host    string
	Schema  string
	Version string
	// Headers are sent with every request. They cannot replace Host,
	// Authorization or X-Org-Id.
	Headers       map[string]string
	Encoding      string
	Retries       int
	RetryInterval time.Duration
	Timeout       time.Duration
	LogLevel      string
	Output        string
}

type loader struct {
	flags   *pflag.FlagSet
	file    string
	envFile string
}

// Option customizes Load.
type Option func(*loader)

// WithFlags binds a flag set. Flags that were set win over the environment
// and the config file.
func WithFlags(flags *pflag.FlagSet) Option {
	return func(l *loader) { l.flags = flags }
}

// WithConfigFile reads a config file (yaml, json or toml, by extension).
func WithConfigFile(path string) Option {
	return func(l *loader) { l.file = path }
}

// WithEnvFile loads a dotenv file other than ".env".
func WithEnvFile(path string) Option {
	return func(l *loader) { l.envFile = path }
}

// Load reads the configuration from a dotenv file, TRACKER_* environment
// variables, an optional config file and flags. It does not validate.
func Load(opts ...Option) (*Config, error) {
	l := &loader{envFile: ".env"}
	for _, opt := range opts {
		opt(l)
	}

	if err := godotenv.Load(l.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", l.envFile, err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if l.flags != nil {
		if err := v.BindPFlags(l.flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	file := l.file
	if file == "" {
		file = v.GetString(KeyConfig)
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	return &Config{
		Token:         v.GetString(KeyToken),
		OrgID:         v.GetString(KeyOrgID),
		Host:          v.GetString(KeyHost),
		Schema:        v.GetString(KeySchema),
		Version:       v.GetString(KeyVersion),
		Headers:       v.GetStringMapString(KeyHeaders),
		Encoding:      v.GetString(KeyEncoding),
		Retries:       v.GetInt(KeyRetries),
		RetryInterval: v.GetDuration(KeyRetryInterval),
		Timeout:       v.GetDuration(KeyTimeout),
		LogLevel:      v.GetString(KeyLogLevel),
		Output:        v.GetString(KeyOutput),
	}, nil
}

// Validate checks that all required configuration values are present and
// valid, filling in defaults for the optional ones.
func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("token is required")
	}
	if c.OrgID == "" {
		return fmt.Errorf("org_id is required")
	}

	if c.Host == "" {
		c.Host = DefaultHost
	}
	c.Host = strings.TrimRight(c.Host, "/")

	c.Schema = strings.ToLower(c.Schema)
	switch c.Schema {
	case "":
		c.Schema = DefaultSchema
	case "http", "https":
	default:
		return fmt.Errorf("schema must be http or https, got %q", c.Schema)
	}

	if c.Version == "" {
		c.Version = DefaultVersion
	}
	c.Version = strings.Trim(c.Version, "/")

	if c.Encoding == "" {
		c.Encoding = DefaultEncoding
	}
	if _, err := htmlindex.Get(c.Encoding); err != nil {
		return fmt.Errorf("unknown encoding %q: %w", c.Encoding, err)
	}

	if c.Retries < 0 {
		return fmt.Errorf("retries must not be negative, got %d", c.Retries)
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = DefaultRetryInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}

	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}

	c.Output = strings.ToLower(c.Output)
	switch c.Output {
	case "":
		c.Output = DefaultOutput
	case "yaml", "json":
	default:
		return fmt.Errorf("output must be yaml or json, got %q", c.Output)
	}
	return nil
}

// SessionOptions converts the configuration to transport options.
func (c *Config) SessionOptions() session.Options {
	return session.Options{
		Token:         c.Token,
		OrgID:         c.OrgID,
		Host:          c.Host,
		Schema:        c.Schema,
		Version:       c.Version,
		Headers:       c.Headers,
		Encoding:      c.Encoding,
		Retries:       c.Retries,
		RetryInterval: c.RetryInterval,
		Timeout:       c.Timeout,
	}
}
