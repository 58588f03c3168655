/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/EarthScope/sac2mseed/pkg/codec"
	"github.com/EarthScope/sac2mseed/pkg/reader"
	"github.com/EarthScope/sac2mseed/pkg/trace"
)

// Tolerance values with a special meaning. Any other negative value also
// selects the default.
const (
	ToleranceDefault  = -1.0
	ToleranceDisabled = -2.0
)

// Config represents the mstrace configuration
type Config struct {
	Reader  Reader  `yaml:"reader"`
	Trace   Trace   `yaml:"trace"`
	Pack    Pack    `yaml:"pack"`
	Archive Archive `yaml:"archive"`
	Logging Logging `yaml:"logging"`
	Metrics Metrics `yaml:"metrics"`
}

// Reader controls how records are read
type Reader struct {
	// RecordLength is 0 to detect once, -1 to detect every record, or a
	// fixed length in bytes.
	RecordLength int  `yaml:"record_length"`
	SkipNotData  bool `yaml:"skip_not_data"`
	Unpack       bool `yaml:"unpack"`
	Verbose      int  `yaml:"verbose"`
}

// Trace controls how records are assembled into segments
type Trace struct {
	// TimeTolerance is in seconds, RateTolerance in Hz.
	TimeTolerance float64 `yaml:"time_tolerance"`
	RateTolerance float64 `yaml:"rate_tolerance"`
	Quality       bool    `yaml:"quality"`
	TimeFormat    string  `yaml:"time_format"`
}

// Pack controls how segments are packed into records
type Pack struct {
	RecordLength int `yaml:"record_length"`
	// Encoding is a name such as INT32 or empty to follow the samples.
	Encoding     string `yaml:"encoding"`
	ByteOrder    string `yaml:"byte_order"`
	Flush        bool   `yaml:"flush"`
	ChunkSamples int    `yaml:"chunk_samples"`
}

// Archive configures the record archive
type Archive struct {
	Dir  string `yaml:"dir"`
	Sync bool   `yaml:"sync"`
}

// Logging contains logging configuration
type Logging struct {
	Level string `yaml:"level"`
}

// Metrics configures the prometheus endpoint
type Metrics struct {
	// Addr serves /metrics when set, e.g. ":9090".
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Trace: Trace{
			TimeTolerance: ToleranceDefault,
			RateTolerance: ToleranceDefault,
			TimeFormat:    "seed",
		},
		Pack: Pack{
			RecordLength: 4096,
			ByteOrder:    "big",
			Flush:        true,
		},
		Archive: Archive{
			Dir: "./archive",
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from the specified path. Fields missing
// from the file keep their defaults.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return config, nil
}

// SaveConfig saves the configuration to the specified path
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks every section
func (c *Config) Validate() error {
	if l := c.Reader.RecordLength; l > 0 && (l < codec.FixedHeaderLen || l > codec.MaxRecordLen) {
		return fmt.Errorf("reader.record_length %d is out of range", l)
	}
	if _, err := trace.ParseTimeFormat(c.Trace.TimeFormat); err != nil {
		return fmt.Errorf("trace.time_format: %w", err)
	}
	if _, err := c.Pack.Options(); err != nil {
		return err
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// Options returns the reader options.
func (r Reader) Options() reader.Options {
	return reader.Options{
		RecordLength: r.RecordLength,
		SkipNotData:  r.SkipNotData,
		Unpack:       r.Unpack,
		Verbose:      r.Verbose,
	}
}

// Tolerance converts a configured tolerance value.
func Tolerance(v float64) trace.Tolerance {
	switch {
	case v == ToleranceDisabled:
		return trace.Disabled
	case v < 0:
		return trace.Tolerance{}
	}
	return trace.Explicit(v)
}

// MatchOptions returns the matching options.
func (t Trace) MatchOptions() trace.MatchOptions {
	return trace.MatchOptions{
		Quality: t.Quality,
		Time:    Tolerance(t.TimeTolerance),
		Rate:    Tolerance(t.RateTolerance),
	}
}

// Format returns the listing time format.
func (t Trace) Format() trace.TimeFormat {
	f, _ := trace.ParseTimeFormat(t.TimeFormat)
	return f
}

// Options returns the packing options.
func (p Pack) Options() (trace.PackOptions, error) {
	l := p.RecordLength
	if l < codec.MinRecordLen || l > codec.MaxRecordLen || l&(l-1) != 0 {
		return trace.PackOptions{}, fmt.Errorf("pack.record_length %d is not a power of two between %d and %d",
			l, codec.MinRecordLen, codec.MaxRecordLen)
	}

	opts := trace.PackOptions{
		RecordLength: l,
		Flush:        p.Flush,
		ChunkSamples: p.ChunkSamples,
	}
	if p.Encoding != "" {
		enc, err := codec.ParseEncoding(strings.ToUpper(p.Encoding))
		if err != nil {
			return trace.PackOptions{}, fmt.Errorf("pack.encoding: %w", err)
		}
		opts.Encoding = &enc
	}

	switch strings.ToLower(p.ByteOrder) {
	case "big", "":
		opts.ByteOrder = codec.OrderBig
	case "little":
		opts.ByteOrder = codec.OrderLittle
	default:
		return trace.PackOptions{}, fmt.Errorf("pack.byte_order %q is neither big nor little", p.ByteOrder)
	}
	return opts, nil
}

// BootstrapConfig writes the default configuration to configPath
func BootstrapConfig(configPath string) (*Config, error) {
	config := DefaultConfig()
	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}
	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./mstrace.yaml"
	}
	return filepath.Join(homeDir, ".config", "mstrace", "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
