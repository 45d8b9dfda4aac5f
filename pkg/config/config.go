package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/sysattr/sysattr-go/pkg/attr"
)

// Defaults reproducing the reference module layout.
const (
	DefaultParent   = "/sys/module/simple_sysfs_mod"
	DefaultBaseName = "simple_sysfs"
	DefaultMax      = 1000
	DefaultAddress  = ":8377"
	DefaultTTL      = 120 * time.Second
)

// Config describes a namespace and how it is served.
type Config struct {
	// Parent is the absolute path of the scope the directory is created in.
	Parent string `yaml:"parent" toml:"parent"`

	// BaseName is the directory name.
	BaseName string `yaml:"base_name" toml:"base_name"`

	// Attributes are published in this order.
	Attributes []attr.Definition `yaml:"attributes" toml:"attributes"`

	// NodeLimit caps the in-memory tree size (0 = unlimited).
	NodeLimit int `yaml:"node_limit,omitempty" toml:"node_limit,omitempty"`

	HTTP HTTPConfig `yaml:"http" toml:"http"`
	MDNS MDNSConfig `yaml:"mdns" toml:"mdns"`
	Log  LogConfig  `yaml:"log" toml:"log"`
}

// HTTPConfig configures the HTTP host.
type HTTPConfig struct {
	Enabled     bool   `yaml:"enabled" toml:"enabled"`
	Address     string `yaml:"address" toml:"address"`
	MaxBodySize int64  `yaml:"max_body_size,omitempty" toml:"max_body_size,omitempty"`
}

// MDNSConfig configures mDNS advertisement of the HTTP host.
type MDNSConfig struct {
	Enabled   bool          `yaml:"enabled" toml:"enabled"`
	Instance  string        `yaml:"instance,omitempty" toml:"instance,omitempty"`
	Interface string        `yaml:"interface,omitempty" toml:"interface,omitempty"`
	TTL       time.Duration `yaml:"ttl,omitempty" toml:"ttl,omitempty"`
}

// LogConfig configures diagnostics.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" toml:"level"`

	// Format is text or json.
	Format string `yaml:"format" toml:"format"`

	// ProtocolLog is a file path for the CBOR access log (optional).
	ProtocolLog string `yaml:"protocol_log,omitempty" toml:"protocol_log,omitempty"`
}

// Default returns the configuration of the reference module: two attributes
// bounded to [0, 1000], starting at 0, HTTP enabled and mDNS disabled.
func Default() *Config {
	return &Config{
		Parent:   DefaultParent,
		BaseName: DefaultBaseName,
		Attributes: []attr.Definition{
			{Name: DefaultBaseName + "_data_1", Min: 0, Max: DefaultMax},
			{Name: DefaultBaseName + "_data_2", Min: 0, Max: DefaultMax},
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Address: DefaultAddress,
		},
		MDNS: MDNSConfig{
			TTL: DefaultTTL,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Format is a configuration file syntax.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFor picks the format from a file extension. Anything other than
// .toml is read as YAML.
func FormatFor(file string) Format {
	if strings.EqualFold(filepath.Ext(file), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Parse decodes YAML over Default and validates the result.
func Parse(data []byte) (*Config, error) {
	return ParseFormat(data, FormatYAML)
}

// ParseFormat decodes data in the given format over Default and validates
// the result. Unknown keys are rejected in both formats.
func ParseFormat(data []byte, format Format) (*Config, error) {
	cfg := Default()

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, &LoadError{
				Message: "failed to parse YAML",
				Cause:   err,
			}
		}
	case FormatTOML:
		// toml reuses slice elements, so defaults would leak into listed attributes
		defaults := cfg.Attributes
		cfg.Attributes = nil
		md, err := toml.Decode(string(data), cfg)
		if !md.IsDefined("attributes") {
			cfg.Attributes = defaults
		}
		if err != nil {
			return nil, &LoadError{
				Message: "failed to parse TOML",
				Cause:   err,
			}
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, &LoadError{
				Message: fmt.Sprintf("unknown key %q", undecoded[0].String()),
			}
		}
	default:
		return nil, &LoadError{Message: fmt.Sprintf("unsupported format %q", format)}
	}

	if err := cfg.Validate(); err != nil {
		return nil, &LoadError{
			Message: "invalid configuration",
			Cause:   err,
		}
	}
	return cfg, nil
}

// Load reads and parses the file at path. Files ending in .toml are TOML,
// everything else YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{
			File:    path,
			Message: "failed to read file",
			Cause:   err,
		}
	}

	cfg, err := ParseFormat(data, FormatFor(path))
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.File = path
			return nil, le
		}
		return nil, &LoadError{File: path, Message: err.Error()}
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if !path.IsAbs(c.Parent) || path.Clean(c.Parent) != c.Parent {
		return fmt.Errorf("parent %q must be a clean absolute path", c.Parent)
	}
	if err := attr.ValidateName(c.BaseName); err != nil {
		return fmt.Errorf("base_name: %w", err)
	}

	seen := make(map[string]bool, len(c.Attributes))
	for i, def := range c.Attributes {
		if err := def.Validate(); err != nil {
			return fmt.Errorf("attributes[%d]: %w", i, err)
		}
		if seen[def.Name] {
			return fmt.Errorf("attributes[%d]: %w: %s", i, attr.ErrDuplicateName, def.Name)
		}
		seen[def.Name] = true
	}

	if c.NodeLimit < 0 {
		return fmt.Errorf("node_limit must not be negative, got %d", c.NodeLimit)
	}
	if c.HTTP.Enabled && c.HTTP.Address == "" {
		return fmt.Errorf("http.address is required when http is enabled")
	}
	if c.HTTP.MaxBodySize < 0 {
		return fmt.Errorf("http.max_body_size must not be negative")
	}
	if c.MDNS.Enabled && !c.HTTP.Enabled {
		return fmt.Errorf("mdns requires http to be enabled")
	}
	if c.MDNS.TTL < 0 {
		return fmt.Errorf("mdns.ttl must not be negative")
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// Root returns the absolute path the namespace directory will have.
func (c *Config) Root() string {
	return path.Join(c.Parent, c.BaseName)
}

// ParseLevel converts a level name to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log.level must be debug, info, warn or error, got %q", level)
	}
}

// LoadError describes a configuration that could not be loaded.
type LoadError struct {
	// File is the path to the file that failed to load.
	File string

	// Message describes the error.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *LoadError) Error() string {
	var sb strings.Builder
	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}
