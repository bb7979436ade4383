// Package config loads the daemon's runtime configuration (via viper,
// layering a bundled default, an optional user file, and environment
// overrides) and the boss/effect/timer/challenge definition documents
// that drive detection (via yaml.v3, merging a bundled document with a
// user's custom override document).
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// AppConfig holds the daemon's runtime settings.
type AppConfig struct {
	// LogDirectory is watched for combat_*.txt files; the newest is
	// loaded on startup and then tailed.
	LogDirectory string `mapstructure:"log_directory"`

	// DefinitionsDir holds the user's custom boss/effect/timer/
	// challenge YAML documents, merged over the bundled ones.
	DefinitionsDir string `mapstructure:"definitions_dir"`

	// SessionStorePath is the sqlite file backing window-position and
	// display-preference persistence.
	SessionStorePath string `mapstructure:"session_store_path"`

	OverlayAddr string `mapstructure:"overlay_addr"`

	CliLevel string `mapstructure:"cli_level"`
	Debug    bool   `mapstructure:"debug"`
}

func defaults() AppConfig {
	return AppConfig{
		LogDirectory:     ".",
		DefinitionsDir:   "",
		SessionStorePath: "baras.db",
		OverlayAddr:      ":7834",
		CliLevel:         "normal",
		Debug:            false,
	}
}

// Load reads configuration from (in ascending priority) the bundled
// defaults, a config file named "baras" (parsed as YAML whatever its
// extension, searched in configDir and the working directory), and BARAS_-prefixed
// environment variables.
func Load(configDir string) (*AppConfig, error) {
	v := viper.New()

	def := defaults()
	v.SetDefault("log_directory", def.LogDirectory)
	v.SetDefault("definitions_dir", def.DefinitionsDir)
	v.SetDefault("session_store_path", def.SessionStorePath)
	v.SetDefault("overlay_addr", def.OverlayAddr)
	v.SetDefault("cli_level", def.CliLevel)
	v.SetDefault("debug", def.Debug)

	v.SetConfigName("baras")
	v.SetConfigType("yaml")
	if configDir != "" {
		v.AddConfigPath(configDir)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("BARAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}
	return &cfg, nil
}
