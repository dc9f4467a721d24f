// Package config defines the top-level configuration for the sync subsystem
// and its loading from file and environment.
package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/rallyscore/go-rallysync/reconciler"
	"github.com/rallyscore/go-rallysync/syncer"
)

const defaultConfigFileName = "./rallysync.json"

// Config is the union of all per-package configurations. Zero sections fall
// back to that package's defaults.
type Config struct {
	BaseConfig `mapstructure:"main"`
	Sync       syncer.Config     `mapstructure:"sync"`
	Reconciler reconciler.Config `mapstructure:"reconciler"`
	Logging    LoggerConfig      `mapstructure:"logging"`
}

// BaseConfig holds settings that do not belong to any one package.
type BaseConfig struct {
	ConfigFile string `mapstructure:"config"`

	CollectMetrics bool `mapstructure:"metrics"`
	MetricsPort    int  `mapstructure:"metrics-port"`
}

// LoggerConfig holds the logging level for each module.
type LoggerConfig struct {
	SyncLoggerLevel       string `mapstructure:"sync"`
	ReconcilerLoggerLevel string `mapstructure:"reconciler"`
	RosterLoggerLevel     string `mapstructure:"roster"`
	TransportLoggerLevel  string `mapstructure:"transport"`
}

// DefaultConfig returns the default configuration for the sync subsystem.
func DefaultConfig() Config {
	return Config{
		BaseConfig: defaultBaseConfig(),
		Sync:       syncer.DefaultConfig(),
		Reconciler: reconciler.DefaultConfig(),
		Logging:    defaultLoggingConfig(),
	}
}

func defaultBaseConfig() BaseConfig {
	return BaseConfig{
		ConfigFile:     defaultConfigFileName,
		CollectMetrics: false,
		MetricsPort:    1010,
	}
}

func defaultLoggingConfig() LoggerConfig {
	return LoggerConfig{
		SyncLoggerLevel:       "info",
		ReconcilerLoggerLevel: "info",
		RosterLoggerLevel:     "info",
		TransportLoggerLevel:  "info",
	}
}

// LoadConfig reads the file at fileLocation into vip, falling back to the
// default location when the given one cannot be read.
func LoadConfig(fileLocation string, vip *viper.Viper) error {
	if fileLocation == "" {
		fileLocation = defaultConfigFileName
	}

	vip.SetConfigFile(fileLocation)
	err := vip.ReadInConfig()
	if err != nil && fileLocation != defaultConfigFileName {
		vip.SetConfigFile(defaultConfigFileName)
		err = vip.ReadInConfig()
	}
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	return nil
}

// FromViper unmarshals the loaded viper state on top of the defaults, so a
// partial file only overrides what it names.
func FromViper(vip *viper.Viper) (Config, error) {
	cfg := DefaultConfig()
	vip.SetEnvPrefix("rallysync")
	vip.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	vip.AutomaticEnv()

	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	)
	if err := vip.Unmarshal(&cfg, viper.DecodeHook(hook)); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// SetConfigFile overrides the default config file path.
func (cfg *BaseConfig) SetConfigFile(file string) {
	cfg.ConfigFile = file
}
