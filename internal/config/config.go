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

// Config holds all the configuration variables for the tip-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort            string `mapstructure:"SERVER_PORT"`
	DatabaseURL           string `mapstructure:"DATABASE_URL"`
	RedisURL              string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix  string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL           string `mapstructure:"RABBITMQ_URL"`
	TipEventExchange      string `mapstructure:"TIP_EVENT_EXCHANGE"`
	TipEventQueue         string `mapstructure:"TIP_EVENT_QUEUE"`
	GatewayAPIBaseURL     string `mapstructure:"GATEWAY_API_BASE_URL"`
	GatewayKeyID          string `mapstructure:"GATEWAY_KEY_ID"`
	GatewayKeySecret      string `mapstructure:"GATEWAY_KEY_SECRET"`
	GatewayWebhookSecret  string `mapstructure:"GATEWAY_WEBHOOK_SECRET"`
	AlertServiceBaseURL   string `mapstructure:"ALERT_SERVICE_BASE_URL"`
	JWTSecret             string `mapstructure:"JWT_SECRET"`
	CommissionBps         int64  `mapstructure:"COMMISSION_BPS"`
	OrderRateLimitPerMin  int    `mapstructure:"ORDER_RATE_LIMIT_PER_MINUTE"`
	AllowedOrigins        string `mapstructure:"ALLOWED_ORIGINS"`
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
	viper.SetDefault("SERVER_PORT", "5000")
	viper.SetDefault("TIP_EVENT_EXCHANGE", "tippay.events")
	viper.SetDefault("TIP_EVENT_QUEUE", "tip_service.tip_completed")
	viper.SetDefault("GATEWAY_API_BASE_URL", "https://api.razorpay.com")
	viper.SetDefault("ALERT_SERVICE_BASE_URL", "https://streamlabs.com")
	viper.SetDefault("COMMISSION_BPS", 500)
	viper.SetDefault("ORDER_RATE_LIMIT_PER_MINUTE", 30)
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "tippay:rate_limit")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("TIP_EVENT_EXCHANGE")
	_ = viper.BindEnv("TIP_EVENT_QUEUE")
	_ = viper.BindEnv("GATEWAY_API_BASE_URL")
	_ = viper.BindEnv("GATEWAY_KEY_ID", "GATEWAY_KEY_ID", "RAZORPAY_KEY_ID")
	_ = viper.BindEnv("GATEWAY_KEY_SECRET", "GATEWAY_KEY_SECRET", "RAZORPAY_KEY_SECRET")
	_ = viper.BindEnv("GATEWAY_WEBHOOK_SECRET", "GATEWAY_WEBHOOK_SECRET", "RAZORPAY_WEBHOOK_SECRET")
	_ = viper.BindEnv("ALERT_SERVICE_BASE_URL")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("COMMISSION_BPS")
	_ = viper.BindEnv("ORDER_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("ALLOWED_ORIGINS")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	// Platform conventions: PORT wins over SERVER_PORT when set.
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}

	if config.CommissionBps < 0 {
		log.Printf("level=warn component=config msg=\"negative commission configured; coercing to zero\" commission_bps=%d", config.CommissionBps)
		config.CommissionBps = 0
	}
	if config.CommissionBps > 10000 {
		log.Printf("level=warn component=config msg=\"commission above 100%%; capping\" commission_bps=%d", config.CommissionBps)
		config.CommissionBps = 10000
	}
	if config.OrderRateLimitPerMin < 0 {
		config.OrderRateLimitPerMin = 0
	}

	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "tippay:rate_limit"
	}

	return
}
