package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Billing  BillingConfig
	Imaging  ImagingConfig
	Credits  CreditsConfig
	Token    TokenConfig
}

type ServerConfig struct {
	Port        string
	Environment string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type BillingConfig struct {
	StripeSecret string
}

type ImagingConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type CreditsConfig struct {
	FreeGrant int
}

type TokenConfig struct {
	Secret     string
	Expiration time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	freeGrant, _ := strconv.Atoi(getEnv("FREE_CREDIT_GRANT", "3"))
	tokenExp, _ := strconv.Atoi(getEnv("DEVICE_TOKEN_EXPIRATION", "31536000"))
	imagingTimeout, _ := strconv.Atoi(getEnv("IMAGING_TIMEOUT_SECONDS", "60"))

	return &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "inkmirror"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Billing: BillingConfig{
			StripeSecret: getEnv("STRIPE_SECRET", ""),
		},
		Imaging: ImagingConfig{
			APIKey:  getEnv("IMAGING_API_KEY", ""),
			BaseURL: getEnv("IMAGING_BASE_URL", "https://api.getimg.ai/v1"),
			Timeout: time.Duration(imagingTimeout) * time.Second,
		},
		Credits: CreditsConfig{
			FreeGrant: freeGrant,
		},
		Token: TokenConfig{
			Secret:     getEnv("DEVICE_TOKEN_SECRET", "d3v*ceT0kenSEcret!"),
			Expiration: time.Duration(tokenExp) * time.Second,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
