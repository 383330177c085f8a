package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"ragdesk/pkg/logging"
)

const profileDirName = ".ragdesk"

// ProfileDir returns ~/.ragdesk, creating it if needed.
func ProfileDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	dir := filepath.Join(homeDir, profileDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

func ProfilePath() (string, error) {
	dir, err := ProfileDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DefaultProfile is Default with the session store kept under ~/.ragdesk.
func DefaultProfile() *Config {
	c := Default()
	if dir, err := ProfileDir(); err == nil {
		c.Storage.Path = filepath.Join(dir, "session.db")
	}
	return c
}

// LoadProfile reads the profile config, writing the defaults on first use.
func LoadProfile() (*Config, error) {
	path, err := ProfilePath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		c := DefaultProfile()
		if err := c.Save(path); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return c, nil
	}

	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if c.Storage.Path != "" {
		if err := os.MkdirAll(filepath.Dir(c.Storage.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}
	return c, nil
}

// SaveProfile writes c to the profile path.
func (c *Config) SaveProfile() error {
	path, err := ProfilePath()
	if err != nil {
		return err
	}
	return c.Save(path)
}

type setter func(c *Config, value string) error

func setString(field func(*Config) *string) setter {
	return func(c *Config, value string) error {
		*field(c) = value
		return nil
	}
}

func setBool(field func(*Config) *bool) setter {
	return func(c *Config, value string) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("expected true or false, got %q", value)
		}
		*field(c) = b
		return nil
	}
}

var setters = map[string]setter{
	"backend.url":              setString(func(c *Config) *string { return &c.Backend.URL }),
	"backend.timeout":          setString(func(c *Config) *string { return &c.Backend.Timeout }),
	"backend.supports_delete":  setBool(func(c *Config) *bool { return &c.Backend.SupportsDelete }),
	"backend.supports_preview": setBool(func(c *Config) *bool { return &c.Backend.SupportsPreview }),
	"auth.attach_token":        setBool(func(c *Config) *bool { return &c.Auth.AttachToken }),
	"storage.path":             setString(func(c *Config) *string { return &c.Storage.Path }),
	"upload.max_size":          setString(func(c *Config) *string { return &c.Upload.MaxSize }),
	"upload.verify_pdf":        setBool(func(c *Config) *bool { return &c.Upload.VerifyPDF }),
	"admin.delete_delay":       setString(func(c *Config) *string { return &c.Admin.DeleteDelay }),
	"metrics.addr":             setString(func(c *Config) *string { return &c.Metrics.Addr }),
	"server.host":              setString(func(c *Config) *string { return &c.Server.Host }),
	"upload.allowed_extensions": func(c *Config, value string) error {
		var exts []string
		for _, ext := range strings.Split(value, ",") {
			if ext = strings.TrimSpace(ext); ext != "" {
				exts = append(exts, ext)
			}
		}
		c.Upload.AllowedExtensions = exts
		return nil
	},
	"logging.level": func(c *Config, value string) error {
		c.Logging.Level = logging.Level(value)
		return nil
	},
	"logging.format": func(c *Config, value string) error {
		c.Logging.Format = logging.Format(value)
		return nil
	},
	"server.port": func(c *Config, value string) error {
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("expected a port number, got %q", value)
		}
		c.Server.Port = port
		return nil
	},
}

// Keys lists the dotted keys Set accepts.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set assigns a dotted key such as "backend.url" and validates the result.
// On error c is left unchanged.
func (c *Config) Set(key, value string) error {
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("unknown config key: %s", key)
	}

	next := *c
	next.Upload.AllowedExtensions = append([]string(nil), c.Upload.AllowedExtensions...)
	if err := set(&next, value); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}

	*c = next
	return nil
}
