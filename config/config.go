/*
Package config loads and validates application configuration.

PURPOSE:
  One YAML file (plus environment overrides via viper) configures the
  server, the database, logging, and the engine's policy constants. The
  engine itself never reads configuration - it receives engine.Params so
  the policy values stay injected, not ambient.

EXAMPLE (config.yml):
  server:
    port: 8080
  database:
    path: ./cost-engine.db
  engine:
    burdenRate: 0.28
    rateWindowWeeks: 8
  logging:
    level: info
    format: json
*/
package config

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/gantry/cost-engine/engine"
)

// Configuration holds all settings for the cost-engine server.
type Configuration struct {
	Server   ServerConfig
	Database DatabaseConfig
	Engine   EngineConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port int
}

type DatabaseConfig struct {
	Path string
}

// EngineConfig carries the forecasting policy constants.
type EngineConfig struct {
	// BurdenRate is the overhead loading fraction applied to raw wages
	// (0.28 = 28%).
	BurdenRate float64

	// RateWindowWeeks is the trailing window for running rate derivation.
	RateWindowWeeks int
}

// LoggingConfig holds logging configuration options.
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

// Load reads the YAML configuration at path. A missing path loads pure
// defaults.
func Load(path string) (*Configuration, error) {
	v := viper.New()
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.path", "cost-engine.db")
	v.SetDefault("engine.burdenRate", 0.28)
	v.SetDefault("engine.rateWindowWeeks", 8)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var conf Configuration
	if err := v.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

// Validate rejects values the engine would silently misbehave on.
func (c *Configuration) Validate() error {
	if c.Engine.BurdenRate < 0 {
		return fmt.Errorf("engine.burdenRate must be >= 0, got %v", c.Engine.BurdenRate)
	}
	if c.Engine.RateWindowWeeks <= 0 {
		return fmt.Errorf("engine.rateWindowWeeks must be > 0, got %d", c.Engine.RateWindowWeeks)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// Params converts the config into injected engine policy.
func (c *Configuration) Params() engine.Params {
	return engine.Params{
		BurdenRate:      decimal.NewFromFloat(c.Engine.BurdenRate),
		RateWindowWeeks: c.Engine.RateWindowWeeks,
	}
}
