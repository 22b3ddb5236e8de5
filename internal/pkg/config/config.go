package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// QueueConfig holds asynq/redis settings for the ingest worker
type QueueConfig struct {
	RedisHost      string
	RedisPort      int
	RedisPassword  string
	RedisDB        int
	DialTimeout    int
	ReadTimeout    int
	WriteTimeout   int
	Concurrency    int
	StrictPriority bool
}

// ProgressConfig holds settings for the redis progress publisher
type ProgressConfig struct {
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int
	Channel       string
}

// DatabaseConfig holds postgres settings for fault-log persistence
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// StorageConfig holds local upload storage settings
type StorageConfig struct {
	BasePath    string
	MaxFileSize int64 // MB
}

type Config struct {
	// Environment
	Environment string

	Queue    QueueConfig
	Progress ProgressConfig
	Database DatabaseConfig
	Storage  StorageConfig
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Load .env file if exists
	if err := godotenv.Load(".env"); err != nil {
		if err := godotenv.Load("../.env"); err != nil {
			log.Println("No .env file found, using environment variables only")
		}
	}

	// Set defaults
	viper.SetDefault("ENV", "development")

	// Redis defaults (shared by queue and progress publisher)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", 6379)
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_DIAL_TIMEOUT", 5)
	viper.SetDefault("REDIS_READ_TIMEOUT", 3)
	viper.SetDefault("REDIS_WRITE_TIMEOUT", 3)

	// Worker defaults
	viper.SetDefault("WORKER_CONCURRENCY", 10)
	viper.SetDefault("WORKER_STRICT_PRIORITY", false)

	// Progress defaults
	viper.SetDefault("PROGRESS_CHANNEL", "fuse-sheets:progress")

	// Database defaults
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_NAME", "fusesheets")
	viper.SetDefault("DB_SSLMODE", "disable")

	// Storage defaults
	viper.SetDefault("STORAGE_DIR", "/tmp/fuse-sheets")
	viper.SetDefault("MAX_FILE_SIZE_MB", 100)

	// Bind environment variables
	viper.AutomaticEnv()

	config := &Config{
		Environment: viper.GetString("ENV"),
		Queue: QueueConfig{
			RedisHost:      viper.GetString("REDIS_HOST"),
			RedisPort:      viper.GetInt("REDIS_PORT"),
			RedisPassword:  viper.GetString("REDIS_PASSWORD"),
			RedisDB:        viper.GetInt("REDIS_DB"),
			DialTimeout:    viper.GetInt("REDIS_DIAL_TIMEOUT"),
			ReadTimeout:    viper.GetInt("REDIS_READ_TIMEOUT"),
			WriteTimeout:   viper.GetInt("REDIS_WRITE_TIMEOUT"),
			Concurrency:    viper.GetInt("WORKER_CONCURRENCY"),
			StrictPriority: viper.GetBool("WORKER_STRICT_PRIORITY"),
		},
		Progress: ProgressConfig{
			RedisHost:     viper.GetString("REDIS_HOST"),
			RedisPort:     viper.GetInt("REDIS_PORT"),
			RedisPassword: viper.GetString("REDIS_PASSWORD"),
			RedisDB:       viper.GetInt("REDIS_DB"),
			Channel:       viper.GetString("PROGRESS_CHANNEL"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Name:     viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		Storage: StorageConfig{
			BasePath:    viper.GetString("STORAGE_DIR"),
			MaxFileSize: viper.GetInt64("MAX_FILE_SIZE_MB"),
		},
	}

	// Validate required fields
	if config.Database.User == "" {
		return nil, fmt.Errorf("DB_USER is required")
	}
	if config.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	return config, nil
}

// GetDatabaseURL constructs the PostgreSQL connection string
func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.Name, c.Database.SSLMode)
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
