package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/docker/go-units"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"ragdesk/pkg/logging"
)

type Config struct {
	Backend Backend `json:"backend" yaml:"backend" toml:"backend"`
	Auth    Auth    `json:"auth" yaml:"auth" toml:"auth"`
	Storage Storage `json:"storage" yaml:"storage" toml:"storage"`
	Upload  Upload  `json:"upload" yaml:"upload" toml:"upload"`
	Admin   Admin   `json:"admin" yaml:"admin" toml:"admin"`
	Logging Logging `json:"logging" yaml:"logging" toml:"logging"`
	Metrics Metrics `json:"metrics" yaml:"metrics" toml:"metrics"`
	Server  Server  `json:"server" yaml:"server" toml:"server"`
}

type Backend struct {
	URL string `json:"url" yaml:"url" toml:"url"`
	// Timeout bounds each request; empty means no bound.
	Timeout         string `json:"timeout" yaml:"timeout" toml:"timeout"`
	SupportsDelete  bool   `json:"supports_delete" yaml:"supports_delete" toml:"supports_delete"`
	SupportsPreview bool   `json:"supports_preview" yaml:"supports_preview" toml:"supports_preview"`
}

type Auth struct {
	AttachToken bool `json:"attach_token" yaml:"attach_token" toml:"attach_token"`
}

type Storage struct {
	Path string `json:"path" yaml:"path" toml:"path"`
}

type Upload struct {
	AllowedExtensions []string `json:"allowed_extensions" yaml:"allowed_extensions" toml:"allowed_extensions"`
	MaxSize           string   `json:"max_size" yaml:"max_size" toml:"max_size"`
	VerifyPDF         bool     `json:"verify_pdf" yaml:"verify_pdf" toml:"verify_pdf"`
}

type Admin struct {
	DeleteDelay string `json:"delete_delay" yaml:"delete_delay" toml:"delete_delay"`
}

type Logging struct {
	Level  logging.Level  `json:"level" yaml:"level" toml:"level"`
	Format logging.Format `json:"format" yaml:"format" toml:"format"`
}

type Metrics struct {
	Addr string `json:"addr" yaml:"addr" toml:"addr"`
}

type Server struct {
	Host string `json:"host" yaml:"host" toml:"host"`
	Port int    `json:"port" yaml:"port" toml:"port"`
}

func Default() *Config {
	return &Config{
		Backend: Backend{
			URL: "http://localhost:8000",
		},
		Storage: Storage{
			Path: "ragdesk.db",
		},
		Upload: Upload{
			AllowedExtensions: []string{"pdf", "txt", "md"},
			MaxSize:           "16MiB",
		},
		Admin: Admin{
			DeleteDelay: "1s",
		},
		Logging: Logging{
			Level:  logging.LevelWarn,
			Format: logging.FormatText,
		},
		Server: Server{
			Host: "localhost",
			Port: 8000,
		},
	}
}

func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	ext := filepath.Ext(path)

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return config, nil
}

func (c *Config) Save(path string) error {
	ext := filepath.Ext(path)
	var data []byte
	var err error

	switch ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal config to YAML: %w", err)
		}
	case ".json":
		data, err = json.MarshalIndent(c, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}
	case ".toml":
		data, err = toml.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal config to TOML: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the values a command would otherwise trip over late.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid backend.url %q", c.Backend.URL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend.url must be http or https, got %q", u.Scheme)
	}

	if _, err := c.RequestTimeout(); err != nil {
		return err
	}
	if _, err := c.DeleteDelay(); err != nil {
		return err
	}

	size, err := units.RAMInBytes(c.Upload.MaxSize)
	if err != nil {
		return fmt.Errorf("invalid upload.max_size %q: %w", c.Upload.MaxSize, err)
	}
	if size <= 0 {
		return fmt.Errorf("upload.max_size must be positive")
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		return fmt.Errorf("upload.allowed_extensions must not be empty")
	}

	if err := c.Logging.Level.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Format.Validate(); err != nil {
		return err
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	return nil
}

// RequestTimeout returns backend.timeout, or zero when unset.
func (c *Config) RequestTimeout() (time.Duration, error) {
	return parseDuration("backend.timeout", c.Backend.Timeout)
}

// DeleteDelay returns admin.delete_delay, or zero when unset.
func (c *Config) DeleteDelay() (time.Duration, error) {
	return parseDuration("admin.delete_delay", c.Admin.DeleteDelay)
}

func parseDuration(key, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}
