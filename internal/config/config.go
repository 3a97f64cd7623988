package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// defaultSessionSecret signs session cookies in development only.
const defaultSessionSecret = "default-secret-key-change-me"

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	JWT        JWTConfig        `yaml:"jwt"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Logging    LoggingConfig    `yaml:"logging"`
	SoftDelete SoftDeleteConfig `yaml:"soft_delete"`
	Admin      AdminConfig      `yaml:"admin"`

	SessionSecret string `yaml:"session_secret"`
	OpenAIAPIKey  string `yaml:"openai_api_key"`
}

type ServerConfig struct {
	Port    string `yaml:"port"`
	GinMode string `yaml:"gin_mode"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // mysql, postgres or sqlite
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
	// Path is the sqlite file; ":memory:" is accepted.
	Path string `yaml:"path"`
	// ConnectTimeout bounds the retry loop around the first connection.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	Secret     string        `yaml:"secret"`
	Issuer     string        `yaml:"issuer"`
	AccessTTL  time.Duration `yaml:"access_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type LoggingConfig struct {
	Development bool `yaml:"development"`
}

type SoftDeleteConfig struct {
	// Cascade soft-deletes children together with their parent.
	Cascade bool `yaml:"cascade"`
}

type AdminConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	FullName string `yaml:"full_name"`
}

const defaultConfigPath = "config.yaml"

// Load reads the optional YAML file named by CONFIG_PATH and applies
// environment overrides on top of it.
func Load() (*Config, error) {
	cfg := defaults()

	path := getEnv("CONFIG_PATH", defaultConfigPath)
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:    "8080",
			GinMode: "debug",
		},
		Database: DatabaseConfig{
			Driver:         "mysql",
			Host:           "localhost",
			Port:           "3306",
			User:           "taskuser",
			Password:       "taskpassword",
			Name:           "project_tracker",
			SSLMode:        "disable",
			Path:           "project_tracker.db",
			ConnectTimeout: 30 * time.Second,
		},
		Redis: RedisConfig{
			Port: "6379",
		},
		JWT: JWTConfig{
			Issuer:     "project-tracker",
			AccessTTL:  30 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Kafka: KafkaConfig{
			Topic: "project-tracker.events",
		},
		Logging: LoggingConfig{
			Development: true,
		},
		Admin: AdminConfig{
			FullName: "Administrator",
		},
		SessionSecret: defaultSessionSecret,
	}
}

func (c *Config) loadFile(path string) error {
	file, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(file, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("SERVER_PORT", c.Server.Port)
	c.Server.GinMode = getEnv("GIN_MODE", c.Server.GinMode)

	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnv("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)
	c.Database.Path = getEnv("DB_PATH", c.Database.Path)

	c.Redis.Host = getEnv("REDIS_HOST", c.Redis.Host)
	c.Redis.Port = getEnv("REDIS_PORT", c.Redis.Port)

	c.JWT.Secret = getEnv("JWT_SECRET", c.JWT.Secret)
	c.JWT.AccessTTL = getEnvDuration("JWT_ACCESS_TTL", c.JWT.AccessTTL)
	c.JWT.RefreshTTL = getEnvDuration("JWT_REFRESH_TTL", c.JWT.RefreshTTL)

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		c.Kafka.Brokers = splitList(brokers)
	}
	c.Kafka.Topic = getEnv("KAFKA_TOPIC", c.Kafka.Topic)

	c.Logging.Development = getEnvBool("LOG_DEVELOPMENT", c.Logging.Development)
	c.SoftDelete.Cascade = getEnvBool("SOFT_DELETE_CASCADE", c.SoftDelete.Cascade)

	c.Admin.Email = getEnv("ADMIN_EMAIL", c.Admin.Email)
	c.Admin.Password = getEnv("ADMIN_PASSWORD", c.Admin.Password)

	c.SessionSecret = getEnv("SESSION_SECRET", c.SessionSecret)
	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.JWT.Secret == "" {
		if c.IsProduction() {
			return errors.New("JWT secret is required in release mode")
		}
		c.JWT.Secret = "insecure-development-secret"
	}

	if c.SessionSecret == "" || c.SessionSecret == defaultSessionSecret {
		if c.IsProduction() {
			return errors.New("session secret must be set in release mode")
		}
		c.SessionSecret = defaultSessionSecret
	}

	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT token lifetimes must be positive")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT refresh lifetime must not be shorter than access lifetime")
	}

	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		return errors.New("kafka topic is required when brokers are configured")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.GinMode == "release"
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}
