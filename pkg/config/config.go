package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Storage  StorageConfig
	OCR      OCRConfig
	GigaChat GigaChatConfig
	Fallback FallbackConfig
	Seed     SeedConfig
	Logger   LoggerConfig
}

type LoggerConfig struct {
	Level string
}

type ServerConfig struct {
	Port         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BodyLimit    int
}

// Production reports whether the service runs with APP_ENV=production.
func (s ServerConfig) Production() bool {
	return strings.EqualFold(s.Environment, "production")
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
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	SecretKey  string
	Expiration time.Duration
}

type StorageConfig struct {
	UploadDir     string
	PublicBaseURL string
}

type OCRConfig struct {
	Provider string // tesseract or gigachat
	Language string
	Refine   bool
}

type GigaChatConfig struct {
	APIKey             string
	Scope              string
	Model              string
	InsecureSkipVerify bool
}

// FallbackConfig controls the offline development mode that keeps identities
// and documents in a local key-value file when the backend is unreachable.
type FallbackConfig struct {
	Enabled       bool
	StorePath     string
	AdminUsername string
	AdminPassword string
}

type SeedConfig struct {
	AdminUsername string
	AdminPassword string
	Welcome       bool
}

func Load() (*Config, error) {
	// .env is optional; plain environment variables work the same way
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	readTimeout, _ := strconv.Atoi(getEnv("SERVER_READ_TIMEOUT", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("SERVER_WRITE_TIMEOUT", "30"))
	bodyLimitMB, _ := strconv.Atoi(getEnv("SERVER_BODY_LIMIT_MB", "16"))
	jwtExp, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	env := getEnv("APP_ENV", "development")
	server := ServerConfig{
		Port:         getEnv("SERVER_PORT", "8080"),
		Environment:  env,
		ReadTimeout:  time.Duration(readTimeout) * time.Second,
		WriteTimeout: time.Duration(writeTimeout) * time.Second,
		BodyLimit:    bodyLimitMB * 1024 * 1024,
	}

	// fallback is on by default outside production and can never be enabled in production
	fallbackEnabled := getEnv("FALLBACK_ENABLED", strconv.FormatBool(!server.Production())) == "true"
	if server.Production() {
		fallbackEnabled = false
	}

	return &Config{
		Server: server,
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "proofchest"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			SecretKey:  getEnv("JWT_SECRET_KEY", "your-secret-key-change-in-production"),
			Expiration: time.Duration(jwtExp) * time.Hour,
		},
		Storage: StorageConfig{
			UploadDir:     getEnv("UPLOAD_DIR", "uploads"),
			PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:"+server.Port), "/"),
		},
		OCR: OCRConfig{
			Provider: getEnv("OCR_PROVIDER", "tesseract"),
			Language: getEnv("OCR_LANGUAGE", "por"),
			Refine:   getEnv("OCR_REFINE", "false") == "true",
		},
		GigaChat: GigaChatConfig{
			APIKey:             getEnv("GIGACHAT_API_KEY", ""),
			Scope:              getEnv("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
			Model:              getEnv("GIGACHAT_MODEL", "GigaChat"),
			InsecureSkipVerify: getEnv("GIGACHAT_INSECURE_SKIP_VERIFY", "false") == "true",
		},
		Fallback: FallbackConfig{
			Enabled:       fallbackEnabled,
			StorePath:     getEnv("FALLBACK_STORE_PATH", "proofchest-local.db"),
			AdminUsername: getEnv("FALLBACK_ADMIN_USERNAME", ""),
			AdminPassword: getEnv("FALLBACK_ADMIN_PASSWORD", ""),
		},
		Seed: SeedConfig{
			AdminUsername: getEnv("SEED_ADMIN_USERNAME", "admin"),
			AdminPassword: getEnv("SEED_ADMIN_PASSWORD", ""),
			Welcome:       getEnv("SEED_WELCOME_ANNOUNCEMENT", "true") == "true",
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
