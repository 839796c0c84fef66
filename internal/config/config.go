// Package config handles configuration loading from TOML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/CWBudde/go-ada-lsp/internal/session"
	"github.com/CWBudde/go-ada-lsp/internal/symbols"
	"github.com/CWBudde/go-ada-lsp/internal/transport"
)

// Config is the root configuration structure.
type Config struct {
	Server ServerConfig `toml:"server"`
	Log    LogConfig    `toml:"log"`

	// Symbols are declarations loaded into the table at startup.
	Symbols []symbols.Declaration `toml:"symbols"`
}

// ServerConfig holds transport and capability settings.
type ServerConfig struct {
	Host              string   `toml:"host"`
	Port              int      `toml:"port"`
	Framing           string   `toml:"framing"`
	TriggerCharacters []string `toml:"trigger_characters"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`

	// File is the log file path; empty means stderr.
	File string `toml:"file"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "127.0.0.1",
			Port:              8765,
			Framing:           string(transport.FramingHeader),
			TriggerCharacters: session.DefaultOptions().TriggerCharacters,
		},
		Log: LogConfig{
			Level: "error",
		},
	}
}

// Load reads configuration from a TOML file over the defaults and applies
// environment variable overrides. An empty path loads only the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file not found: %s", path)
		}

		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}

		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, key := range undecoded {
				keys[i] = key.String()
			}

			return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) normalize() {
	for i := range c.Symbols {
		if c.Symbols[i].Scope == "" {
			c.Symbols[i].Scope = symbols.ScopeGlobal
		}
	}
}

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port=%d must be between 1 and 65535", c.Server.Port))
	}

	if _, err := transport.ParseFraming(c.Server.Framing); err != nil {
		errs = append(errs, fmt.Errorf("server.framing: %w", err))
	}

	for _, trigger := range c.Server.TriggerCharacters {
		if trigger == "" {
			errs = append(errs, errors.New("server.trigger_characters: empty trigger character"))
		}
	}

	if _, ok := verbosities[c.Log.Level]; !ok {
		errs = append(errs, fmt.Errorf("log.level=%q must be one of debug, info, warn, error", c.Log.Level))
	}

	for i, decl := range c.Symbols {
		if decl.Name == "" {
			errs = append(errs, fmt.Errorf("symbols[%d].name is required", i))
		}

		if decl.Category == "" {
			errs = append(errs, fmt.Errorf("symbols[%d].category is required", i))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Address returns the TCP listen address.
func (s ServerConfig) Address() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

// SessionOptions returns the options each session advertises.
func (s ServerConfig) SessionOptions() session.Options {
	opts := session.DefaultOptions()
	opts.TriggerCharacters = append([]string{}, s.TriggerCharacters...)

	return opts
}

// commonlog verbosity per level name.
var verbosities = map[string]int{
	"error": -2,
	"warn":  -1,
	"info":  1,
	"debug": 2,
}

// Verbosity returns the commonlog verbosity for the configured level.
func (l LogConfig) Verbosity() int {
	if v, ok := verbosities[l.Level]; ok {
		return v
	}

	return verbosities["error"]
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) error {
	var errs []error

	for _, setter := range []struct {
		env   string
		apply func(string)
	}{
		{"ADA_LSP_LOG_LEVEL", func(v string) { cfg.Log.Level = v }},
		{"ADA_LSP_LOG_FILE", func(v string) { cfg.Log.File = v }},
		{"ADA_LSP_HOST", func(v string) { cfg.Server.Host = v }},
		{"ADA_LSP_PORT", func(v string) {
			port, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("ADA_LSP_PORT=%q is not a number", v))
				return
			}

			cfg.Server.Port = port
		}},
	} {
		if v := os.Getenv(setter.env); v != "" {
			setter.apply(v)
		}
	}

	return errors.Join(errs...)
}
