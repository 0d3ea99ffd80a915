package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/greenbasket/orderapi/internal/domain"
)

type Config struct {
	Port        string
	Environment string
	Database    DatabaseConfig
	Redis       RedisConfig
	Razorpay    RazorpayConfig
	Geocoder    GeocoderConfig
	Delivery    domain.DeliveryConfig
	CORSOrigins []string
	LogLevel    string
}

type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RazorpayConfig struct {
	KeyID     string
	KeySecret string
	BaseURL   string
}

type GeocoderConfig struct {
	BaseURL   string
	UserAgent string
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("LOG_LEVEL", "info")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read .env file (optional)
	if err := viper.ReadInConfig(); err != nil {
		// It's okay if .env doesn't exist, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{
		Port:        getEnvOrViper("PORT", "8080"),
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		Database: DatabaseConfig{
			Host:           getEnvOrViper("DB_HOST", "localhost"),
			Port:           getEnvOrViper("DB_PORT", "5432"),
			User:           getEnvOrViper("DB_USER", "postgres"),
			Password:       getEnvOrViper("DB_PASSWORD", "postgres"),
			DBName:         getEnvOrViper("DB_NAME", "orderapi"),
			SSLMode:        getEnvOrViper("DB_SSLMODE", "disable"),
			MigrationsPath: getEnvOrViper("MIGRATIONS_PATH", "./migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrViper("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnvOrViper("REDIS_PASSWORD", ""),
			DB:       0,
		},
		Razorpay: RazorpayConfig{
			KeyID:     getEnvOrViper("RAZORPAY_KEY_ID", ""),
			KeySecret: getEnvOrViper("RAZORPAY_KEY_SECRET", ""),
			BaseURL:   getEnvOrViper("RAZORPAY_BASE_URL", "https://api.razorpay.com"),
		},
		Geocoder: GeocoderConfig{
			BaseURL:   getEnvOrViper("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org"),
			UserAgent: getEnvOrViper("GEOCODER_USER_AGENT", "greenbasket-orderapi"),
		},
		Delivery: domain.DeliveryConfig{
			FlatFee:               viper.GetFloat64("DELIVERY_FLAT_FEE"),
			FreeDeliveryThreshold: viper.GetFloat64("DELIVERY_FREE_THRESHOLD"),
			GiftWrapCharge:        viper.GetFloat64("DELIVERY_GIFT_WRAP_CHARGE"),
		},
		LogLevel: getEnvOrViper("LOG_LEVEL", "info"),
	}

	// Hard-coded fallback when delivery pricing is not configured
	if cfg.Delivery == (domain.DeliveryConfig{}) {
		cfg.Delivery = domain.DefaultDeliveryConfig()
	}

	if origins := getEnvOrViper("CORS_ORIGINS", ""); origins != "" {
		cfg.CORSOrigins = strings.Split(origins, ",")
	}

	// Validate required fields
	if cfg.Razorpay.KeyID == "" {
		return nil, fmt.Errorf("RAZORPAY_KEY_ID is required")
	}
	if cfg.Razorpay.KeySecret == "" {
		return nil, fmt.Errorf("RAZORPAY_KEY_SECRET is required")
	}

	return cfg, nil
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}
