package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // Timezone lookups work in minimal containers

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	NewRelic NewRelicConfig `yaml:"newrelic"`
	Tracking TrackingConfig `yaml:"tracking"`
	GPS      GPSConfig      `yaml:"gps"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string `yaml:"app_name"`
	LicenseKey string `yaml:"license_key"`
	Enabled    bool   `yaml:"enabled"`
}

// TrackingConfig holds live ride tracking settings.
type TrackingConfig struct {
	RideLockTTL time.Duration `yaml:"ride_lock_ttl"` // How long a rider's session lock lives without fixes
	Timezone    string        `yaml:"timezone"`      // IANA zone used for time-of-day achievements
}

// Location resolves Timezone, falling back to UTC.
func (c TrackingConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("[config] unknown timezone %q, using UTC: %v", c.Timezone, err)
		return time.UTC
	}
	return loc
}

// GPSConfig holds the serial GPS settings used by the recorder.
type GPSConfig struct {
	PortPath string `yaml:"port_path"`
	BaudRate int    `yaml:"baud_rate"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5432",
			User:     "postgres",
			Password: "postgres",
			DBName:   "biketrail",
			SSLMode:  "disable",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		NewRelic: NewRelicConfig{
			AppName: "biketrail-service",
		},
		Tracking: TrackingConfig{
			RideLockTTL: 12 * time.Hour,
			Timezone:    "UTC",
		},
		GPS: GPSConfig{
			PortPath: "/dev/ttyGPS",
			BaudRate: 9600,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() *Config {
	return load(os.Getenv("CONFIG_FILE"), os.Getenv)
}

func load(path string, getenv func(string) string) *Config {
	cfg := Default()

	if path != "" {
		if err := readFile(path, cfg); err != nil {
			log.Printf("[config] %v, using defaults", err)
			cfg = Default()
		} else {
			log.Printf("[config] loaded from %s", path)
		}
	}

	env := envReader(getenv)
	cfg.Server.Port = env.getEnv("SERVER_PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = env.getDurationEnv("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = env.getDurationEnv("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)

	cfg.Database.Host = env.getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = env.getEnv("DB_PORT", cfg.Database.Port)
	cfg.Database.User = env.getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = env.getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.DBName = env.getEnv("DB_NAME", cfg.Database.DBName)
	cfg.Database.SSLMode = env.getEnv("DB_SSLMODE", cfg.Database.SSLMode)

	cfg.Redis.Addr = env.getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = env.getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = env.getIntEnv("REDIS_DB", cfg.Redis.DB)

	cfg.NewRelic.AppName = env.getEnv("NEW_RELIC_APP_NAME", cfg.NewRelic.AppName)
	cfg.NewRelic.LicenseKey = env.getEnv("NEW_RELIC_LICENSE_KEY", cfg.NewRelic.LicenseKey)
	cfg.NewRelic.Enabled = env.getBoolEnv("NEW_RELIC_ENABLED", cfg.NewRelic.Enabled)

	cfg.Tracking.RideLockTTL = env.getDurationEnv("RIDE_LOCK_TTL", cfg.Tracking.RideLockTTL)
	cfg.Tracking.Timezone = env.getEnv("TRACKING_TIMEZONE", cfg.Tracking.Timezone)

	cfg.GPS.PortPath = env.getEnv("GPS_PORT", cfg.GPS.PortPath)
	cfg.GPS.BaudRate = env.getIntEnv("GPS_BAUD_RATE", cfg.GPS.BaudRate)

	return cfg
}

func readFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// envReader reads typed values, keeping the default when a variable is unset or malformed.
type envReader func(string) string

func (e envReader) getEnv(key, defaultValue string) string {
	if value := e(key); value != "" {
		return value
	}
	return defaultValue
}

func (e envReader) getIntEnv(key string, defaultValue int) int {
	if value := e(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func (e envReader) getBoolEnv(key string, defaultValue bool) bool {
	if value := e(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func (e envReader) getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := e(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
