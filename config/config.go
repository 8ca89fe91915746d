// Package config provides configuration management for the signup service.
// Values come from the process environment and, when present, a `.env` file,
// read through viper. Every key has a default, so a bare `go run .` talks to a
// local Postgres on the usual port. Parsing and validation errors are collected
// and reported together instead of failing on the first bad key.
// In Nest.js, the `@nestjs/config` module serves a similar purpose.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/user/signup-go/apperror"
)

// Storage drivers.
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Notifier drivers.
const (
	NotifierDriverSimulated = "simulated"
	NotifierDriverAMQP      = "amqp"
	NotifierDriverKafka     = "kafka"
)

// PoolConfig represents configuration for a single database connection pool.
type PoolConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	MaxSize  int
}

// StorageConfig selects where accounts are kept.
type StorageConfig struct {
	Driver      string // postgres or memory
	AutoMigrate bool   // apply the embedded schema at startup
}

// NotifierConfig selects how verification notifications are delivered.
type NotifierConfig struct {
	Driver    string
	Delay     time.Duration // latency of the simulated mailer
	Workers   int           // dispatcher goroutines
	QueueSize int           // dispatcher buffer

	RabbitMQURL      string
	RabbitMQExchange string

	KafkaBrokers []string
	KafkaTopic   string
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port            string // Port for the HTTP server
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string
}

// AppConfig is the top-level configuration structure for the application.
type AppConfig struct {
	DB       *PoolConfig
	Storage  *StorageConfig
	Notifier *NotifierConfig
	Server   *ServerConfig
	Log      *LogConfig
}

var defaults = map[string]string{
	"DB_HOST":               "localhost",
	"DB_PORT":               "5432",
	"DB_USER":               "postgres",
	"DB_PASSWORD":           "postgres",
	"DB_NAME":               "userdb",
	"DB_POOL_SIZE":          "10",
	"DB_AUTO_MIGRATE":       "true",
	"STORAGE_DRIVER":        StorageDriverPostgres,
	"PORT":                  "3000",
	"HTTP_REQUEST_TIMEOUT":  "30s",
	"HTTP_SHUTDOWN_TIMEOUT": "30s",
	"CORS_ALLOWED_ORIGINS":  "*",
	"NOTIFIER_DRIVER":       NotifierDriverSimulated,
	"NOTIFIER_DELAY":        "100ms",
	"NOTIFIER_WORKERS":      "3",
	"NOTIFIER_QUEUE_SIZE":   "10",
	"RABBITMQ_URL":          "",
	"RABBITMQ_EXCHANGE":     "user_events",
	"KAFKA_BROKERS":         "",
	"KAFKA_TOPIC":           "user.verification",
	"LOG_LEVEL":             "info",
}

// loader wraps a viper instance and collects every problem it finds.
type loader struct {
	v      *viper.Viper
	errors []string
}

func (l *loader) addError(format string, args ...any) {
	l.errors = append(l.errors, fmt.Sprintf(format, args...))
}

func (l *loader) getString(key string) string {
	return strings.TrimSpace(l.v.GetString(key))
}

// getInt parses an integer value. On failure the default is returned and an error is collected.
func (l *loader) getInt(key string) int {
	valueStr := l.getString(key)
	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		l.addError("invalid value for %s: expected integer, got '%s': %v", key, valueStr, err)
		fallback, _ := strconv.Atoi(defaults[key])
		return fallback
	}
	return valueInt
}

// getDuration parses a value such as "15m" or "1h30s".
func (l *loader) getDuration(key string) time.Duration {
	valueStr := l.getString(key)
	valueDuration, err := time.ParseDuration(valueStr)
	if err != nil {
		l.addError("invalid value for %s: expected duration string, got '%s': %v", key, valueStr, err)
		fallback, _ := time.ParseDuration(defaults[key])
		return fallback
	}
	return valueDuration
}

func (l *loader) getBool(key string) bool {
	valueStr := l.getString(key)
	valueBool, err := strconv.ParseBool(valueStr)
	if err != nil {
		l.addError("invalid value for %s: expected boolean, got '%s': %v", key, valueStr, err)
		fallback, _ := strconv.ParseBool(defaults[key])
		return fallback
	}
	return valueBool
}

// getList splits a comma separated value and drops empty items.
func (l *loader) getList(key string) []string {
	var out []string
	for _, item := range strings.Split(l.getString(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getOneOf returns the lower-cased value if it is one of allowed.
func (l *loader) getOneOf(key string, allowed ...string) string {
	value := strings.ToLower(l.getString(key))
	for _, a := range allowed {
		if value == a {
			return value
		}
	}
	l.addError("invalid value for %s: expected one of [%s], got '%s'", key, strings.Join(allowed, ", "), value)
	return defaults[key]
}

// validatePoolSize checks that the pool size is within 1..100.
func (l *loader) validatePoolSize(size int, varName string) {
	if size < 1 {
		l.addError("pool size for %s (%d) is less than minimum 1", varName, size)
	}
	if size > 100 {
		l.addError("pool size for %s (%d) is greater than maximum 100", varName, size)
	}
}

// LoadConfig builds an AppConfig from `<configPath>/.env` (optional) and the
// environment. Environment variables win over the file. All problems are
// returned as a single ConfigError.
func LoadConfig(configPath string) (*AppConfig, error) {
	v := viper.New()
	v.AddConfigPath(configPath)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, apperror.NewConfigError("failed to read config file", err)
		}
	}

	l := &loader{v: v}

	// Database Configuration
	db := &PoolConfig{
		Host:     l.getString("DB_HOST"),
		Port:     l.getInt("DB_PORT"),
		User:     l.getString("DB_USER"),
		Password: l.v.GetString("DB_PASSWORD"),
		DBName:   l.getString("DB_NAME"),
		MaxSize:  l.getInt("DB_POOL_SIZE"),
	}
	l.validatePoolSize(db.MaxSize, "DB_POOL_SIZE")

	storage := &StorageConfig{
		Driver:      l.getOneOf("STORAGE_DRIVER", StorageDriverPostgres, StorageDriverMemory),
		AutoMigrate: l.getBool("DB_AUTO_MIGRATE"),
	}

	// Notifier Configuration
	notifier := &NotifierConfig{
		Driver:           l.getOneOf("NOTIFIER_DRIVER", NotifierDriverSimulated, NotifierDriverAMQP, NotifierDriverKafka),
		Delay:            l.getDuration("NOTIFIER_DELAY"),
		Workers:          l.getInt("NOTIFIER_WORKERS"),
		QueueSize:        l.getInt("NOTIFIER_QUEUE_SIZE"),
		RabbitMQURL:      l.getString("RABBITMQ_URL"),
		RabbitMQExchange: l.getString("RABBITMQ_EXCHANGE"),
		KafkaBrokers:     l.getList("KAFKA_BROKERS"),
		KafkaTopic:       l.getString("KAFKA_TOPIC"),
	}
	if notifier.Workers < 1 {
		l.addError("NOTIFIER_WORKERS must be at least 1, got %d", notifier.Workers)
	}
	if notifier.QueueSize < 0 {
		l.addError("NOTIFIER_QUEUE_SIZE must not be negative, got %d", notifier.QueueSize)
	}
	switch notifier.Driver {
	case NotifierDriverAMQP:
		if notifier.RabbitMQURL == "" {
			l.addError("missing required environment variable: RABBITMQ_URL (NOTIFIER_DRIVER=amqp)")
		}
	case NotifierDriverKafka:
		if len(notifier.KafkaBrokers) == 0 {
			l.addError("missing required environment variable: KAFKA_BROKERS (NOTIFIER_DRIVER=kafka)")
		}
	}

	// Server Configuration
	server := &ServerConfig{
		// The port stays a string because it's used directly in the listen address (":3000").
		Port:            l.getString("PORT"),
		RequestTimeout:  l.getDuration("HTTP_REQUEST_TIMEOUT"),
		ShutdownTimeout: l.getDuration("HTTP_SHUTDOWN_TIMEOUT"),
		AllowedOrigins:  l.getList("CORS_ALLOWED_ORIGINS"),
	}
	if _, err := strconv.Atoi(server.Port); err != nil {
		l.addError("invalid value for PORT: expected integer, got '%s'", server.Port)
	}

	logCfg := &LogConfig{Level: strings.ToLower(l.getString("LOG_LEVEL"))}

	if len(l.errors) > 0 {
		return nil, apperror.NewConfigError(
			fmt.Sprintf("configuration errors:\n- %s", strings.Join(l.errors, "\n- ")), nil)
	}

	return &AppConfig{
		DB:       db,
		Storage:  storage,
		Notifier: notifier,
		Server:   server,
		Log:      logCfg,
	}, nil
}
