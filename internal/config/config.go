package config

import "time"

// Config holds all application configuration.
// The broker and worker binaries share one schema and read the groups they need.
type Config struct {
	Server ServerConfig `mapstructure:"server" validate:"required"`
	Broker BrokerConfig `mapstructure:"broker" validate:"required"`
	Worker WorkerConfig `mapstructure:"worker" validate:"required"`
}

// ServerConfig contains settings for the broker's HTTP listener and logging.
type ServerConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// BrokerConfig contains job scheduling settings.
type BrokerConfig struct {
	// JobTimeout is the default wait applied by the HTTP job API.
	JobTimeout time.Duration `mapstructure:"job_timeout"    validate:"gt=0"`
	// ResultTTL bounds how long an unclaimed result stays cached.
	ResultTTL time.Duration `mapstructure:"result_ttl"     validate:"gt=0"`
	// SweepInterval is how often expired results are removed.
	SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"gt=0"`
	// SharedSecret enables worker authentication when non-empty.
	SharedSecret string `mapstructure:"shared_secret" validate:"omitempty,min=32"`
}

// WorkerConfig contains settings for a worker process.
type WorkerConfig struct {
	BrokerURL      string        `mapstructure:"broker_url"      validate:"required,url"`
	Name           string        `mapstructure:"name"            validate:"required"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay" validate:"gt=0"`
	AssetDir       string        `mapstructure:"asset_dir"       validate:"required"`
	SharedSecret   string        `mapstructure:"shared_secret"   validate:"omitempty,min=32"`
}
