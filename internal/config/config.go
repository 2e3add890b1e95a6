package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	DBPath            string        `mapstructure:"db_path" yaml:"db_path"`
	SnapshotInterval  time.Duration `mapstructure:"snapshot_interval" yaml:"snapshot_interval"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxUsers          int           `mapstructure:"max_users" yaml:"max_users"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
}

// Default returns configuration with reasonable starter defaults.
// MaxUsers of 0 means unlimited.
func Default() Config {
	return Config{
		Addr:              ":8080",
		DBPath:            "chatbois.db",
		SnapshotInterval:  30 * time.Second,
		IdleTimeout:       2 * time.Minute,
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		MaxUsers:          0,
		LogLevel:          "info",
	}
}
