package utils

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Booking  BookingConfig
	Gateway  GatewayConfig
}

type AppConfig struct {
	Name    string
	Port    string
	Debug   bool
	LogPath string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

type BookingConfig struct {
	HoldMinutes           int
	PaymentTimeoutMinutes int
	SweepIntervalSeconds  int
}

func (b BookingConfig) SweepInterval() time.Duration {
	return time.Duration(b.SweepIntervalSeconds) * time.Second
}

type GatewayConfig struct {
	BaseURL        string
	APIKey         string
	ChecksumKey    string
	TimeoutSeconds int
	MaxRetries     int
	ReturnURL      string
	CancelURL      string
}

func (g GatewayConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("HOLD_MINUTES", 15)
	viper.SetDefault("PAYMENT_TIMEOUT_MINUTES", 15)
	viper.SetDefault("SWEEP_INTERVAL_SECONDS", 60)
	viper.SetDefault("GATEWAY_TIMEOUT_SECONDS", 10)
	viper.SetDefault("GATEWAY_MAX_RETRIES", 3)

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
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		Booking: BookingConfig{
			HoldMinutes:           viper.GetInt("HOLD_MINUTES"),
			PaymentTimeoutMinutes: viper.GetInt("PAYMENT_TIMEOUT_MINUTES"),
			SweepIntervalSeconds:  viper.GetInt("SWEEP_INTERVAL_SECONDS"),
		},
		Gateway: GatewayConfig{
			BaseURL:        viper.GetString("GATEWAY_BASE_URL"),
			APIKey:         viper.GetString("GATEWAY_API_KEY"),
			ChecksumKey:    viper.GetString("GATEWAY_CHECKSUM_KEY"),
			TimeoutSeconds: viper.GetInt("GATEWAY_TIMEOUT_SECONDS"),
			MaxRetries:     viper.GetInt("GATEWAY_MAX_RETRIES"),
			ReturnURL:      viper.GetString("CHECKOUT_RETURN_URL"),
			CancelURL:      viper.GetString("CHECKOUT_CANCEL_URL"),
		},
	}

	return config, nil
}
