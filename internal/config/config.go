// Serve-time configuration: defaults, optional testserver.yaml, flags.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFile is looked up in the working directory; missing is fine.
const ConfigFile = "testserver.yaml"

const defaultPort = 8080

// Config is immutable once Load returns; the server never mutates it.
type Config struct {
	Host string `yaml:"host"` // empty = all interfaces
	Port int    `yaml:"port"`
	Root string `yaml:"root"` // empty = directory of the executable

	Watch            bool          `yaml:"watch"`
	DebounceDuration time.Duration `yaml:"debounceDuration"`
	ShutdownTimeout  time.Duration `yaml:"shutdownTimeout"`
}

// Default returns the configuration used when nothing overrides it.
// The zero-flag invocation matches the historical behavior: port 8080,
// serving the directory the binary lives in.
func Default() *Config {
	return &Config{
		Host:             "",
		Port:             defaultPort,
		Root:             "",
		Watch:            true,
		DebounceDuration: 300 * time.Millisecond,
		ShutdownTimeout:  5 * time.Second,
	}
}

// Load builds the configuration from defaults, an optional
// testserver.yaml in the working directory, and flags, in that order.
func Load(args []string) (*Config, error) {
	cfg := Default()

	if data, err := os.ReadFile(ConfigFile); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", ConfigFile, err)
		}
	}

	fs := flag.NewFlagSet("testserver", flag.ContinueOnError)
	host := fs.String("host", cfg.Host, "host/IP to bind to (empty = all interfaces)")
	port := fs.Int("port", cfg.Port, "port to listen on")
	root := fs.String("root", cfg.Root, "document root (default: directory of the executable)")
	watch := fs.Bool("watch", cfg.Watch, "watch the root and push live-reload events")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.Host = *host
	cfg.Port = *port
	cfg.Root = *root
	cfg.Watch = *watch

	if cfg.Root == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locate executable: %w", err)
		}
		cfg.Root = filepath.Dir(exe)
	}
	absRoot, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", cfg.Root, err)
	}
	cfg.Root = absRoot

	cfg.validate()
	return cfg, nil
}

// validate clamps values to sane bounds instead of erroring out.
func (c *Config) validate() {
	if c.Port < 1 || c.Port > 65535 {
		c.Port = defaultPort
	}
	if c.DebounceDuration < 50*time.Millisecond {
		c.DebounceDuration = 50 * time.Millisecond
	}
	if c.DebounceDuration > 5*time.Second {
		c.DebounceDuration = 5 * time.Second
	}
	if c.ShutdownTimeout < time.Second {
		c.ShutdownTimeout = time.Second
	}
	if c.ShutdownTimeout > 30*time.Second {
		c.ShutdownTimeout = 30 * time.Second
	}
}

// Addr is the listen address passed to the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// BaseURL is the URL printed at startup. The bind host may be empty or
// 0.0.0.0; localhost is what the user should open either way.
func (c *Config) BaseURL() string {
	host := c.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d/", host, c.Port)
}
