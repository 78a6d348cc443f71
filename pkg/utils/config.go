package utils

import (
	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Feed     FeedConfig
	Booking  BookingConfig
	Store    StoreConfig
	Database DatabaseConfig
	Redis    RedisConfig
}

type AppConfig struct {
	Name    string
	Port    string
	Debug   bool
	LogPath string
}

type FeedConfig struct {
	BaseURL        string
	TimeoutSeconds int
	RetryAttempts  int
}

type BookingConfig struct {
	// VenueTimezone is the single IANA zone all venues are assumed to
	// share. The feed carries no per-venue zone information, so this
	// stays a system-wide setting.
	VenueTimezone     string
	SessionTTLMinutes int
}

type StoreConfig struct {
	// Backend selects the preference store: "memory", "postgres" or "redis".
	Backend string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("FEED_TIMEOUT_SECONDS", 15)
	viper.SetDefault("FEED_RETRY_ATTEMPTS", 3)
	viper.SetDefault("VENUE_TIMEZONE", "Asia/Jerusalem")
	viper.SetDefault("SESSION_TTL_MINUTES", 30)
	viper.SetDefault("PREFERENCE_BACKEND", "memory")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:    viper.GetString("APP_NAME"),
			Port:    viper.GetString("PORT"),
			Debug:   viper.GetBool("DEBUG"),
			LogPath: viper.GetString("LOG_PATH"),
		},
		Feed: FeedConfig{
			BaseURL:        viper.GetString("FEED_BASE_URL"),
			TimeoutSeconds: viper.GetInt("FEED_TIMEOUT_SECONDS"),
			RetryAttempts:  viper.GetInt("FEED_RETRY_ATTEMPTS"),
		},
		Booking: BookingConfig{
			VenueTimezone:     viper.GetString("VENUE_TIMEZONE"),
			SessionTTLMinutes: viper.GetInt("SESSION_TTL_MINUTES"),
		},
		Store: StoreConfig{
			Backend: viper.GetString("PREFERENCE_BACKEND"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
	}

	return config, nil
}
