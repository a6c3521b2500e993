package pkg

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Host and Port locate the inspector backend.
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// Listen is the address the inspector server binds.
	Listen          string        `yaml:"listen"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	LogLevel        string        `yaml:"log_level"`
	LogJSON         bool          `yaml:"log_json"`
}

func NewConfig() *Config {
	return &Config{
		Host:            "localhost",
		Port:            8080,
		Listen:          ":8080",
		RequestTimeout:  10 * time.Second,
		RefreshInterval: 5 * time.Second,
		LogLevel:        "info",
	}
}

// LoadConfig layers defaults, the YAML file at path (optional when empty),
// a .env file in the working directory and PSDASH_* environment variables.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warningln("ignore unreadable .env file")
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PSDASH_HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("PSDASH_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PSDASH_PORT: %w", err)
		}
		c.Port = port
	}
	if v := os.Getenv("PSDASH_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("PSDASH_REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PSDASH_REQUEST_TIMEOUT: %w", err)
		}
		c.RequestTimeout = d
	}
	if v := os.Getenv("PSDASH_REFRESH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PSDASH_REFRESH_INTERVAL: %w", err)
		}
		c.RefreshInterval = d
	}
	if v := os.Getenv("PSDASH_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: empty backend host", ErrInvalidInput)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: backend port %d out of range", ErrInvalidInput, c.Port)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request timeout must be positive", ErrInvalidInput)
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("%w: refresh interval must be positive", ErrInvalidInput)
	}
	return nil
}

// BaseURL is the inspector root, e.g. http://localhost:8080.
func (c *Config) BaseURL() string {
	return "http://" + net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SetupLogging applies the log level and format to the standard logrus logger.
func (c *Config) SetupLogging() error {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	if c.LogJSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	return nil
}

func (c *Config) WriteTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
