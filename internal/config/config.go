// Package config loads the settings for relay-demo.
package config

import (
	"io"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. RELAY_LISTEN.
const EnvPrefix = "relay"

const (
	defaultListen          = "localhost:3029"
	defaultLogLevel        = "info"
	defaultMaxBodyBytes    = 2 << 20
	defaultMetricsPath     = "/metrics"
	defaultTracerName      = "relay-demo"
	defaultShutdownTimeout = 10 * time.Second
)

// Config holds the demo server settings. Values come from the YAML file
// first, then from RELAY_* environment variables, then from defaults for
// anything still unset.
type Config struct {
	Listen          string        `yaml:"listen" envconfig:"listen"`
	Verbose         bool          `yaml:"verbose" envconfig:"verbose"`
	Production      *bool         `yaml:"production" envconfig:"production"`
	LogLevel        string        `yaml:"log_level" envconfig:"log_level"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" envconfig:"max_body_bytes"`
	MetricsPath     string        `yaml:"metrics_path" envconfig:"metrics_path"`
	TracerName      string        `yaml:"tracer_name" envconfig:"tracer_name"`
	SentryDSN       string        `yaml:"sentry_dsn" envconfig:"sentry_dsn"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"shutdown_timeout"`
}

// Read loads the config file at path. An empty path skips the file and uses
// only the environment and defaults.
func Read(path string) (Config, error) {
	if path == "" {
		return parse(nil)
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "opening config file")
	}
	defer f.Close()
	return parse(f)
}

func parse(r io.Reader) (c Config, err error) {
	if r != nil {
		bts, err := io.ReadAll(r)
		if err != nil {
			return c, errors.Wrap(err, "reading config")
		}
		if err := yaml.Unmarshal(bts, &c); err != nil {
			return c, errors.Wrap(err, "parsing config")
		}
	}

	if err := envconfig.Process(EnvPrefix, &c); err != nil {
		return c, errors.Wrap(err, "applying environment overrides")
	}

	c.applyDefaults()
	return c, c.validate()
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Production == nil {
		production := true
		c.Production = &production
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = defaultMaxBodyBytes
	}
	if c.MetricsPath == "" {
		c.MetricsPath = defaultMetricsPath
	}
	if c.TracerName == "" {
		c.TracerName = defaultTracerName
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
}

func (c *Config) validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "log_level")
	}
	if c.MaxBodyBytes < 0 {
		return errors.Errorf("max_body_bytes must not be negative, got %d", c.MaxBodyBytes)
	}
	return nil
}

// IsProduction reports whether fault details should be hidden from clients.
func (c Config) IsProduction() bool {
	return c.Production == nil || *c.Production
}

// Level returns the parsed log level.
func (c Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
