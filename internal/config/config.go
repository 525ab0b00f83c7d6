package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Env          string             `mapstructure:"env"`
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Registration RegistrationConfig `mapstructure:"registration"`
	Sweeper      SweeperConfig      `mapstructure:"sweeper"`
	Events       EventsConfig       `mapstructure:"events"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port               string   `mapstructure:"port"`
	ReadTimeout        int      `mapstructure:"read_timeout_seconds"`
	WriteTimeout       int      `mapstructure:"write_timeout_seconds"`
	IdleTimeout        int      `mapstructure:"idle_timeout_seconds"`
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`

	// sqlite
	Path string `mapstructure:"path"`

	// postgres
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"name"`
	SSLMode  string `mapstructure:"ssl_mode"`

	MaxOpenConns    int `mapstructure:"max_open_conns"`
	MaxIdleConns    int `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTime int `mapstructure:"conn_max_idle_time_seconds"`
}

type AuthConfig struct {
	JWTSecret   string `mapstructure:"jwt_secret"`
	TokenTTLMin int    `mapstructure:"token_ttl_minutes"`
}

type RegistrationConfig struct {
	TeacherEmailSuffix string `mapstructure:"teacher_email_suffix"`
	TeacherSecret      string `mapstructure:"teacher_secret"`
}

type SweeperConfig struct {
	IntervalMin int `mapstructure:"interval_minutes"`
}

type EventsConfig struct {
	Driver string      `mapstructure:"driver"`
	NATS   NATSConfig  `mapstructure:"nats"`
	Kafka  KafkaConfig `mapstructure:"kafka"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type MetricsConfig struct {
	// OTLPEndpoint is the collector to export metrics to. Empty disables
	// export; OTEL_EXPORTER_OTLP_ENDPOINT also works.
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

func Load() (*Config, error) {
	// Get environment from ENV, default to "local"
	env := os.Getenv("ENV")
	if env == "" {
		env = "local"
	}

	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/configs")      // Kubernetes mount
	viper.AddConfigPath("./configs")     // run from repo root
	viper.AddConfigPath("../../configs") // run from cmd/server

	setDefaults()

	// Config file is optional - defaults plus ENV variables are enough
	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf("No config file found (will use defaults and ENV variables): %v\n", err)
	}

	// Environment variable overrides take precedence over the config file
	viper.AutomaticEnv()

	viper.BindEnv("database.user", "DB_USER")
	viper.BindEnv("database.password", "DB_PASSWORD")
	viper.BindEnv("auth.jwt_secret", "JWT_SECRET")
	viper.BindEnv("registration.teacher_secret", "TEACHER_SECRET")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout_seconds", 15)
	viper.SetDefault("server.write_timeout_seconds", 15)
	viper.SetDefault("server.idle_timeout_seconds", 60)

	viper.SetDefault("database.driver", DriverSQLite)
	viper.SetDefault("database.path", "university.db")

	viper.SetDefault("auth.token_ttl_minutes", 60)

	// The institutional defaults the system has always shipped with.
	viper.SetDefault("registration.teacher_email_suffix", "ustc.ac.bd")
	viper.SetDefault("registration.teacher_secret", "UsTc1989@05102004")

	viper.SetDefault("sweeper.interval_minutes", 5)

	viper.SetDefault("events.driver", "none")
	viper.SetDefault("events.nats.subject", "class.events")
	viper.SetDefault("events.kafka.topic", "class.events")

	viper.SetDefault("metrics.otlp_endpoint", "")
}
