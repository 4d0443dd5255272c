// Package config loads keypad-calc settings from YAML, the environment and
// command-line overrides, in that order.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/lemonberrylabs/keypad-calc/pkg/calc"
	"github.com/lemonberrylabs/keypad-calc/pkg/editor"
	"github.com/lemonberrylabs/keypad-calc/pkg/store"
)

// Server holds listener settings.
type Server struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	GRPCPort int    `yaml:"grpc_port"`
}

// Calculator holds engine and display settings.
type Calculator struct {
	MaxExpressionLength int    `yaml:"max_expression_length"`
	Precision           int    `yaml:"precision"`
	ErrorText           string `yaml:"error_text"`
	HistoryLimit        int    `yaml:"history_limit"`
}

// Config is the full configuration file.
type Config struct {
	Server     Server     `yaml:"server"`
	Calculator Calculator `yaml:"calculator"`
	TapesDir   string     `yaml:"tapes_dir"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: Server{
			Host:     "0.0.0.0",
			Port:     8787,
			GRPCPort: 8788,
		},
		Calculator: Calculator{
			MaxExpressionLength: calc.MaxExpressionLength,
			Precision:           editor.DefaultPrecision,
			ErrorText:           editor.DefaultErrorText,
			HistoryLimit:        store.DefaultHistoryLimit,
		},
	}
}

// Load reads the YAML file at path over the defaults and then applies
// environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		if err := Parse(data, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Parse decodes YAML into cfg, keeping fields the document does not set.
// Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// applyEnv overrides settings from HOST, PORT, GRPC_PORT and TAPES_DIR.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("HOST"); ok && v != "" {
		c.Server.Host = v
	}
	for _, p := range []struct {
		key string
		dst *int
	}{
		{"PORT", &c.Server.Port},
		{"GRPC_PORT", &c.Server.GRPCPort},
	} {
		v, ok := lookup(p.key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid port %q", p.key, v)
		}
		*p.dst = n
	}
	if v, ok := lookup("TAPES_DIR"); ok && v != "" {
		c.TapesDir = v
	}
	return nil
}

// Validate checks ranges.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("server.grpc_port %d out of range", c.Server.GRPCPort)
	}
	if c.Server.GRPCPort != 0 && c.Server.GRPCPort == c.Server.Port {
		return fmt.Errorf("server.grpc_port must differ from server.port")
	}
	calcCfg := c.Calculator
	if calcCfg.MaxExpressionLength <= 0 || calcCfg.MaxExpressionLength > calc.MaxExpressionLength {
		return fmt.Errorf("calculator.max_expression_length must be between 1 and %d", calc.MaxExpressionLength)
	}
	if calcCfg.Precision < 1 || calcCfg.Precision > 17 {
		return fmt.Errorf("calculator.precision must be between 1 and 17")
	}
	if calcCfg.HistoryLimit <= 0 {
		return fmt.Errorf("calculator.history_limit must be positive")
	}
	return nil
}

// Editor returns the editor configured by c.
func (c Config) Editor() editor.Editor {
	return editor.Editor{MaxLength: c.Calculator.MaxExpressionLength}
}

// Formatter returns the display formatter configured by c.
func (c Config) Formatter() editor.Formatter {
	return editor.Formatter{Precision: c.Calculator.Precision, ErrorText: c.Calculator.ErrorText}
}

// StoreOptions returns the session store options configured by c.
func (c Config) StoreOptions() []store.Option {
	return []store.Option{
		store.WithEditor(c.Editor()),
		store.WithHistoryLimit(c.Calculator.HistoryLimit),
	}
}

// Addr returns host:port for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GRPCAddr returns host:port for the gRPC server.
func (c Config) GRPCAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}
