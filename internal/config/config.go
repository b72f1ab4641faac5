/**
 * @description
 * This package handles the configuration management for the service. It uses
 * the Viper library to read configuration from environment variables,
 * providing a centralized and straightforward way to manage application
 * settings.
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

// Config holds all the configuration variables for the momo-service.
// These values are loaded from environment variables. The MoMo defaults are
// placeholder values that only function against the provider's sandbox.
type Config struct {
	ServerPort            string `mapstructure:"SERVER_PORT"`
	MomoBaseURL           string `mapstructure:"MOMO_BASE_URL"`
	MomoConsumerKey       string `mapstructure:"MOMO_CONSUMER_KEY"`
	MomoConsumerSecret    string `mapstructure:"MOMO_CONSUMER_SECRET"`
	MomoSubscriptionKey   string `mapstructure:"MOMO_SUBSCRIPTION_KEY"`
	MomoTargetEnvironment string `mapstructure:"MOMO_TARGET_ENVIRONMENT"`
	MomoCurrency          string `mapstructure:"MOMO_CURRENCY"`
	PlatformPhone         string `mapstructure:"PLATFORM_PHONE"`
	DatabaseURL           string `mapstructure:"DATABASE_URL"`
	RabbitMQURL           string `mapstructure:"RABBITMQ_URL"`
	TransferEventExchange string `mapstructure:"TRANSFER_EVENT_EXCHANGE"`
}

// LoadConfig reads configuration from environment variables and an optional
// .env file at the given path.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Defaults only function against the provider sandbox.
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("MOMO_BASE_URL", "https://sandbox.momodeveloper.mtn.com")
	viper.SetDefault("MOMO_TARGET_ENVIRONMENT", "sandbox")
	viper.SetDefault("MOMO_CURRENCY", "EUR")
	viper.SetDefault("PLATFORM_PHONE", "231880000000")
	viper.SetDefault("TRANSFER_EVENT_EXCHANGE", "susupay.events")

	// Bind environment variables explicitly to ensure they appear in Unmarshal.
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("MOMO_BASE_URL")
	_ = viper.BindEnv("MOMO_CONSUMER_KEY")
	_ = viper.BindEnv("MOMO_CONSUMER_SECRET")
	_ = viper.BindEnv("MOMO_SUBSCRIPTION_KEY")
	_ = viper.BindEnv("MOMO_TARGET_ENVIRONMENT")
	_ = viper.BindEnv("MOMO_CURRENCY")
	_ = viper.BindEnv("PLATFORM_PHONE")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("TRANSFER_EVENT_EXCHANGE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
		err = nil
	}

	if err = viper.Unmarshal(&config); err != nil {
		return
	}

	// Platform hosts (Heroku et al.) inject the port via PORT.
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.MomoBaseURL = strings.TrimRight(strings.TrimSpace(config.MomoBaseURL), "/")
	config.PlatformPhone = strings.TrimSpace(config.PlatformPhone)

	return
}
