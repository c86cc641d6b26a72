package config

import (
	"time"

	"github.com/spf13/viper"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

// Config holds the main configuration for the application.
type Config struct {
	Server    Server         `mapstructure:"server"`
	Mongo     Mongo          `mapstructure:"mongo"`
	Redis     Redis          `mapstructure:"redis"`
	Poller    Poller         `mapstructure:"poller"`
	Stats     Stats          `mapstructure:"stats"`
	WebSocket WebSocket      `mapstructure:"websocket"`
	Retry     retry.Strategy `mapstructure:"retry"`
}

// Server holds HTTP server-related configuration.
type Server struct {
	HTTPPort string `mapstructure:"http_port"` // HTTP port to listen on
}

// Mongo holds MongoDB connection parameters.
type Mongo struct {
	URI      string        `mapstructure:"uri"`
	Database string        `mapstructure:"database"`
	Timeout  time.Duration `mapstructure:"timeout"` // per-attempt connect timeout
}

// Redis holds Redis connection parameters.
type Redis struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// Poller holds the due-notification poll cycle configuration.
type Poller struct {
	Interval   time.Duration `mapstructure:"interval"`    // cadence between poll cycles
	BatchLimit int64         `mapstructure:"batch_limit"` // max records dispatched per cycle
}

// Stats holds the delivery statistics reporter configuration.
type Stats struct {
	Interval time.Duration `mapstructure:"interval"` // cadence between reports
}

// WebSocket holds the connection endpoint configuration.
type WebSocket struct {
	Welcome string `mapstructure:"welcome"` // greeting pushed right after the handshake
}

// mustBindEnv binds critical environment variables to Viper keys.
//
// It panics if any environment variable cannot be bound.
func mustBindEnv() {
	bindings := map[string]string{
		"server.http_port": "HTTP_PORT",

		"mongo.uri":      "MONGODB_URI",
		"mongo.database": "MONGODB_DATABASE",

		"redis.address":  "REDIS_ADDRESS",
		"redis.password": "REDIS_PASSWORD",
		"redis.database": "REDIS_DATABASE",
	}

	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			zlog.Logger.Panic().Err(err).Msgf("failed to bind env %s", env)
		}
	}
}

// setDefaults fixes the engine defaults so a minimal config file still
// yields a working poller and reporter.
func setDefaults() {
	viper.SetDefault("server.http_port", ":3000")
	viper.SetDefault("mongo.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongo.database", "notify")
	viper.SetDefault("mongo.timeout", 10*time.Second)
	viper.SetDefault("poller.interval", 100*time.Millisecond)
	viper.SetDefault("poller.batch_limit", 1000)
	viper.SetDefault("stats.interval", 10*time.Second)
	viper.SetDefault("websocket.welcome", "connected to notification stream")
}

// Must loads and validates the configuration from file and environment variables.
//
// It panics if configuration cannot be read or unmarshalled.
func Must() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to read config")
	}

	mustBindEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		zlog.Logger.Panic().Err(err).Msgf("failed to unmarshal config: %v", err)
	}

	return &cfg
}
