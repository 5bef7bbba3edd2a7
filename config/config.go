package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Persistence backend: "memory" or "mongo".
	PersistenceBackend string `mapstructure:"PERSISTENCE_BACKEND"`
	DatabaseURL        string `mapstructure:"DATABASE_URL"`
	DatabaseName       string `mapstructure:"DATABASE_NAME"`

	// Redis configuration. The cache DB holds per-thread conversation state,
	// the queue DB backs the approval reminder queue.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Admin API access token.
	AdminAPIToken string `mapstructure:"ADMIN_API_TOKEN"`

	// External reservation recorder endpoint; empty disables the side channel.
	RecorderEndpoint string `mapstructure:"RECORDER_ENDPOINT"`
	RecorderAPIToken string `mapstructure:"RECORDER_API_TOKEN"`

	// Facility defaults served by the info source.
	WorkingHours string `mapstructure:"WORKING_HOURS"`
	Pricing      string `mapstructure:"PRICING"`
	TotalSpots   int    `mapstructure:"TOTAL_SPOTS"`

	// Conversation behavior.
	ThreadStateTTLMin     int  `mapstructure:"THREAD_STATE_TTL_MIN"`
	ApprovalReminderMin   int  `mapstructure:"APPROVAL_REMINDER_MIN"`
	RestartRequiresCancel bool `mapstructure:"RESTART_REQUIRES_CANCEL"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("PERSISTENCE_BACKEND", "memory")
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "parkwise")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_QUEUE_DB", 1)
	viper.SetDefault("ADMIN_API_TOKEN", "")
	viper.SetDefault("RECORDER_ENDPOINT", "")
	viper.SetDefault("RECORDER_API_TOKEN", "")
	viper.SetDefault("WORKING_HOURS", "Mon-Sun 06:00-23:00")
	viper.SetDefault("PRICING", "$2/hour or $15/day")
	viper.SetDefault("TOTAL_SPOTS", 42)
	viper.SetDefault("THREAD_STATE_TTL_MIN", 120)
	viper.SetDefault("APPROVAL_REMINDER_MIN", 15)
	viper.SetDefault("RESTART_REQUIRES_CANCEL", false)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
