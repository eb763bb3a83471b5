package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	Gateway  GatewayConfig
	Sweep    SweepConfig
}

type ServerConfig struct {
	Port      string
	JWTSecret string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Addr string
}

type RabbitMQConfig struct {
	URL      string
	Exchange string
}

type GatewayConfig struct {
	BaseURL   string
	SecretKey string
}

type SweepConfig struct {
	Interval time.Duration
	Overdue  time.Duration
}

func Load() *Config {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	sweepEvery, _ := time.ParseDuration(getEnv("SWEEP_INTERVAL", "5m"))
	overdueAfter, _ := time.ParseDuration(getEnv("PAYMENT_OVERDUE_AFTER", "24h"))

	return &Config{
		Server: ServerConfig{
			Port:      getEnv("PORT", "8080"),
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "marketpay"),
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      getEnv("RABBIT_URL", ""),
			Exchange: getEnv("RABBIT_EXCHANGE", "marketpay.events"),
		},
		Gateway: GatewayConfig{
			BaseURL:   getEnv("MONEROO_BASE_URL", "https://api.moneroo.io/v1"),
			SecretKey: getEnv("MONEROO_SECRET_KEY", ""),
		},
		Sweep: SweepConfig{
			Interval: sweepEvery,
			Overdue:  overdueAfter,
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
