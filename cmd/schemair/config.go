package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/reoring/schemair"
)

// config is the resolved CLI configuration: defaults, then schemair.yaml,
// then SCHEMAIR_* environment variables, then flags.
type config struct {
	LogLevel        string
	Components      []string
	ImplicitMapping bool
	Format          string
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("log.level", "warn")
	v.SetDefault("implicit_mapping", true)
	v.SetDefault("output.format", "json")
	v.SetConfigName("schemair")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Enable environment variable overrides: SCHEMAIR_LOG_LEVEL, SCHEMAIR_OUTPUT_FORMAT, ...
	v.SetEnvPrefix("SCHEMAIR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// loadConfig reads the config file, if any. An explicit path must exist.
func loadConfig(v *viper.Viper, path string) (*config, error) {
	if path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	cfg := &config{
		LogLevel:        v.GetString("log.level"),
		Components:      v.GetStringSlice("components"),
		ImplicitMapping: v.GetBool("implicit_mapping"),
		Format:          strings.ToLower(v.GetString("output.format")),
	}
	if cfg.Format != "json" && cfg.Format != "yaml" {
		return nil, fmt.Errorf("output.format must be json or yaml, got %q", cfg.Format)
	}
	return cfg, nil
}

func (c *config) logger() (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

func (c *config) options() (schemair.Options, error) {
	log, err := c.logger()
	if err != nil {
		return schemair.Options{}, err
	}
	return schemair.Options{
		Logger:          log,
		Components:      c.Components,
		ImplicitMapping: c.ImplicitMapping,
	}, nil
}
