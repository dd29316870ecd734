// Package config defines the data structures related to configuration and
// simulation documents, and includes functions for loading and normalizing
// them.
package config

import (
	"fmt"
	"strings"

	"github.com/iwvelando/cashout-forecast/pkg/constants"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding configuration
// keys, e.g. CASHOUT_STORE_BACKEND.
const EnvPrefix = "CASHOUT"

// Configuration holds all application configuration for cashout-forecast.
type Configuration struct {
	Logging LoggingConfig `yaml:"logging,omitempty"`
	Output  OutputConfig  `yaml:"output,omitempty"`
	Store   StoreConfig   `yaml:"store,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv, json
}

// StoreConfig selects and configures the record store backend.
type StoreConfig struct {
	Backend string      `yaml:"backend,omitempty"` // memory, redis, sqlite, postgres
	Path    string      `yaml:"path,omitempty"`    // sqlite database file
	DSN     string      `yaml:"dsn,omitempty"`     // postgres connection string
	Key     string      `yaml:"key,omitempty"`     // document key, defaults to the db key
	Redis   RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig holds the connection settings of the redis backend.
type RedisConfig struct {
	Address  string `yaml:"address,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// envKeys are bound explicitly so environment variables apply to keys the
// file leaves out; AutomaticEnv alone only overrides keys viper already knows.
var envKeys = []string{
	"logging.level",
	"logging.format",
	"logging.outputFile",
	"output.format",
	"store.backend",
	"store.path",
	"store.dsn",
	"store.key",
	"store.redis.address",
	"store.redis.password",
	"store.redis.db",
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. Environment variables prefixed with CASHOUT override
// file values.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("unable to bind environment for %s, %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %w", err)
	}

	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}

	configuration.ApplyDefaults()
	return &configuration, nil
}

// ApplyDefaults fills unset fields with their defaults.
func (c *Configuration) ApplyDefaults() {
	if c.Output.Format == "" {
		c.Output.Format = constants.OutputFormatPretty
	}
	c.Store.ApplyDefaults()
}

// ApplyDefaults fills unset store fields with their defaults.
func (s *StoreConfig) ApplyDefaults() {
	if s.Backend == "" {
		s.Backend = constants.StoreBackendMemory
	}
	if s.Key == "" {
		s.Key = constants.DBKey
	}
}
