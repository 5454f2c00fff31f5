// Package config loads ccdb settings from defaults, a YAML file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/roach88/ccdb/internal/model"
)

// File names searched in the working directory when no file is given.
const (
	FileName    = "ccdb.yaml"
	FileNameAlt = "ccdb.yml"
)

// EnvPrefix prefixes environment overrides: CCDB_CONNECTION -> connection.
const EnvPrefix = "CCDB_"

// Defaults.
const (
	DefaultConnection = "sqlite://ccdb.db"
	DefaultLogLevel   = "info"
)

// Config holds every ccdb setting.
type Config struct {
	// Connection is the database connection string, e.g. sqlite://ccdb.db.
	Connection string `koanf:"connection"`

	// Variation is used when a command or request names none.
	Variation string `koanf:"variation"`

	// Run is used when a request names no run.
	Run int64 `koanf:"run"`

	// CComments treats "//" lines in ingested text as comments.
	CComments bool `koanf:"c_comments"`

	// PropagateFileComments appends file comment lines to assignment comments.
	PropagateFileComments bool `koanf:"propagate_file_comments"`

	// StrictCellTypes rejects cells that do not parse as their column type.
	StrictCellTypes bool `koanf:"strict_cell_types"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// File is the config file that was loaded, if any.
	File string `koanf:"-"`
}

// Load reads configuration. cfgFile may be empty, in which case ccdb.yaml or
// ccdb.yml in the working directory is used when present. Only flags that
// were explicitly set override lower layers; flag names map to keys by
// replacing '-' with '_'.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]any{
		"connection":              DefaultConnection,
		"variation":               model.DefaultVariationName,
		"run":                     0,
		"c_comments":              false,
		"propagate_file_comments": true,
		"strict_cell_types":       false,
		"log_level":               DefaultLogLevel,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used := findConfigFile(cfgFile)
	if cfgFile != "" && used == "" {
		return nil, fmt.Errorf("config file %s not found", cfgFile)
	}
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. Environment: CCDB_LOG_LEVEL -> log_level
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if key == "no_comments" {
				on, _ := flags.GetBool(f.Name)
				return "propagate_file_comments", !on
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be fixed by defaults.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Connection) == "" {
		return fmt.Errorf("config: connection must not be empty")
	}
	if c.Run < 0 || c.Run > model.InfiniteRun {
		return fmt.Errorf("config: run %d out of range", c.Run)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel converts LogLevel to a slog.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

func findConfigFile(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}
	for _, name := range []string{FileName, FileNameAlt} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}
