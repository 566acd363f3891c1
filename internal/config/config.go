/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the wallet-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort               string `mapstructure:"SERVER_PORT"`
	DatabaseURL              string `mapstructure:"DATABASE_URL"`
	RedisURL                 string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix     string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL              string `mapstructure:"RABBITMQ_URL"`
	ChargeEventExchange      string `mapstructure:"CHARGE_EVENT_EXCHANGE"`
	ChargeEventQueue         string `mapstructure:"CHARGE_EVENT_QUEUE"`
	StripeAPIBaseURL         string `mapstructure:"STRIPE_API_BASE_URL"`
	StripeAPIKey             string `mapstructure:"STRIPE_API_KEY"`
	JWTSecret                string `mapstructure:"JWT_SECRET"`
	RefundWindowHours        int    `mapstructure:"REFUND_WINDOW_HOURS"`
	MinTopUpPaise            int64  `mapstructure:"MIN_TOPUP_PAISE"`
	RefundRateLimitPerMinute int    `mapstructure:"REFUND_RATE_LIMIT_PER_MINUTE"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("CHARGE_EVENT_EXCHANGE", "paywave.events")
	viper.SetDefault("CHARGE_EVENT_QUEUE", "wallet_service.charge_updates")
	viper.SetDefault("STRIPE_API_BASE_URL", "https://api.stripe.com")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "paywave:rate_limit")
	viper.SetDefault("REFUND_WINDOW_HOURS", 3)
	viper.SetDefault("MIN_TOPUP_PAISE", 4500)
	viper.SetDefault("REFUND_RATE_LIMIT_PER_MINUTE", 10)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "WALLET_REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("CHARGE_EVENT_EXCHANGE")
	_ = viper.BindEnv("CHARGE_EVENT_QUEUE")
	_ = viper.BindEnv("STRIPE_API_BASE_URL")
	_ = viper.BindEnv("STRIPE_API_KEY")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("REFUND_WINDOW_HOURS")
	_ = viper.BindEnv("MIN_TOPUP_PAISE")
	_ = viper.BindEnv("REFUND_RATE_LIMIT_PER_MINUTE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "paywave:rate_limit"
	}

	if config.RefundWindowHours <= 0 {
		log.Printf("level=warn component=config msg=\"non-positive refund window configured; using default\" hours=%d", config.RefundWindowHours)
		config.RefundWindowHours = 3
	}
	if config.MinTopUpPaise < 0 {
		log.Printf("level=warn component=config msg=\"negative minimum topup configured; coercing to zero\" min_paise=%d", config.MinTopUpPaise)
		config.MinTopUpPaise = 0
	}
	if config.RefundRateLimitPerMinute < 0 {
		config.RefundRateLimitPerMinute = 0
	}

	return
}
