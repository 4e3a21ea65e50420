/**
 * @description
 * This file handles configuration management for the billing service. It
 * uses the 'viper' library to load configuration from environment variables,
 * with a local .env file picked up via godotenv when present.
 */
package config

import (
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	ServerPort  string `mapstructure:"SERVER_PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	StripeSecretKey     string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`

	OpenAIAPIKey string `mapstructure:"OPENAI_API_KEY"`
	OpenAIModel  string `mapstructure:"OPENAI_MODEL"`

	AppBaseURL         string  `mapstructure:"APP_BASE_URL"`
	CreatorPriceCents  int64   `mapstructure:"CREATOR_PRICE_CENTS"`
	PlatformFeePercent float64 `mapstructure:"PLATFORM_FEE_PERCENT"`

	SupabaseJWTSecret string `mapstructure:"SUPABASE_JWT_SECRET"`

	RabbitMQURL string `mapstructure:"RABBITMQ_URL"`

	RedisURL              string `mapstructure:"REDIS_URL"`
	ChatRateLimit         int    `mapstructure:"CHAT_RATE_LIMIT"`
	ChatRateWindowSeconds int    `mapstructure:"CHAT_RATE_WINDOW_SECONDS"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (config Config, err error) {
	// A local .env is a development convenience, never a requirement.
	_ = godotenv.Load()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	viper.SetDefault("APP_BASE_URL", "http://localhost:3000")
	viper.SetDefault("CREATOR_PRICE_CENTS", 1900)
	viper.SetDefault("PLATFORM_FEE_PERCENT", 30)
	viper.SetDefault("CHAT_RATE_WINDOW_SECONDS", 60)
	viper.AutomaticEnv()

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("STRIPE_SECRET_KEY")
	_ = viper.BindEnv("STRIPE_WEBHOOK_SECRET")
	_ = viper.BindEnv("OPENAI_API_KEY")
	_ = viper.BindEnv("OPENAI_MODEL")
	_ = viper.BindEnv("APP_BASE_URL")
	_ = viper.BindEnv("CREATOR_PRICE_CENTS")
	_ = viper.BindEnv("PLATFORM_FEE_PERCENT")
	_ = viper.BindEnv("SUPABASE_JWT_SECRET")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("CHAT_RATE_LIMIT")
	_ = viper.BindEnv("CHAT_RATE_WINDOW_SECONDS")

	err = viper.Unmarshal(&config)
	return
}
