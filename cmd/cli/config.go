package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/himanishpuri/StreamDNA/pkg/logger"
	"github.com/himanishpuri/StreamDNA/pkg/streamdna"
	"github.com/himanishpuri/StreamDNA/pkg/streamdna/evaluate"
)

const (
	envPrefix = "STREAMDNA_"
	// ConfigPathEnvVar names the YAML config file when --config is not given.
	ConfigPathEnvVar = envPrefix + "CONFIG"
)

// Config is the merged CLI configuration. Keys match the long flag names
// with dashes turned into underscores.
type Config struct {
	DB        string `koanf:"db"`
	LogLevel  string `koanf:"log_level"`
	Workers   int    `koanf:"workers"`
	Videos    int    `koanf:"videos"`
	Start     int    `koanf:"start"`
	End       int    `koanf:"end"`
	Loose     bool   `koanf:"loose"`
	Verbose   bool   `koanf:"verbose"`
	KeepGoing bool   `koanf:"keep_going"`
}

func defaultConfig() *Config {
	return &Config{
		DB:       "fingerprints.txt",
		LogLevel: "info",
		Workers:  runtime.NumCPU(),
		Videos:   streamdna.DefaultVideos,
		Start:    evaluate.DefaultStart,
		End:      evaluate.DefaultEnd,
	}
}

// loadConfig merges, from lowest to highest priority: defaults, the YAML
// file at path (or $STREAMDNA_CONFIG), STREAMDNA_* environment variables
// and the flags set on the command line.
func loadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(ConfigPathEnvVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if flags != nil {
		var setErr error
		flags.Visit(func(f *pflag.Flag) {
			key := flagKey(f.Name)
			if key == "" || setErr != nil {
				return
			}
			setErr = k.Set(key, f.Value.String())
		})
		if setErr != nil {
			return nil, fmt.Errorf("failed to apply flags: %w", setErr)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// envTransformFunc maps STREAMDNA_KEEP_GOING to keep_going. The config file
// variable is not a setting and is dropped.
func envTransformFunc(key string) string {
	if key == ConfigPathEnvVar {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(key, envPrefix))
}

func flagKey(name string) string {
	if name == "config" || name == "help" {
		return ""
	}
	return strings.ReplaceAll(name, "-", "_")
}

func (c *Config) Validate() error {
	var errs []error
	if c.DB == "" {
		errs = append(errs, errors.New("db path is empty"))
	}
	if _, ok := logger.ParseLevel(c.LogLevel); !ok {
		errs = append(errs, fmt.Errorf("unknown log level %q", c.LogLevel))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.Videos < 1 {
		errs = append(errs, fmt.Errorf("videos must be positive, got %d", c.Videos))
	}
	if c.Start <= c.End {
		errs = append(errs, fmt.Errorf("start (%d) must be greater than end (%d)", c.Start, c.End))
	}
	if c.End < 0 {
		errs = append(errs, fmt.Errorf("end must not be negative, got %d", c.End))
	}
	return errors.Join(errs...)
}
