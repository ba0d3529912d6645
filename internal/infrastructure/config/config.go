package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	S3       S3Config
	OTLP     OTLPConfig
}

type ServerConfig struct {
	Port string
	Host string
}

type DatabaseConfig struct {
	DSN string
}

// S3Config is static configuration for the image blob store; the bucket and
// region are not runtime-negotiable. Endpoint is optional and only used for
// S3-compatible local stacks.
type S3Config struct {
	Region   string
	Bucket   string
	Endpoint string
}

type OTLPConfig struct {
	Endpoint    string
	ServiceName string
	Environment string
}

// LoadConfig loads configuration from environment variables, first merging
// in a .env file when one is present.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			DSN: getEnv("DB_DSN", "host=localhost user=postgres password=postgres dbname=products port=5432 sslmode=disable"),
		},
		S3: S3Config{
			Region:   getEnv("S3_REGION", "us-east-1"),
			Bucket:   getEnv("S3_BUCKET", "shoppy-backend-products"),
			Endpoint: getEnv("S3_ENDPOINT", ""),
		},
		OTLP: OTLPConfig{
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "products-api"),
			Environment: getEnv("OTEL_ENVIRONMENT", "development"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
