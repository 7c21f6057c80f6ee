package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultAPIBaseURL  = "https://graph.facebook.com"
	DefaultAPIVersion  = "v19.0"
	DefaultHTTPTimeout = 30 * time.Second
)

type Config struct {
	Port     string
	GinMode  string
	LogLevel string

	DBDriver   string
	DBPath     string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	MediaDir         string
	HTTPTimeout      time.Duration
	EncryptionSecret string

	// Provider defaults; values stored in system_settings take precedence.
	Settings Settings
}

// Settings is the administrative surface of the integration: credentials,
// endpoint and feature flags.
type Settings struct {
	Enabled            bool
	AccessToken        string
	APIBaseURL         string
	APIVersion         string
	PhoneNumberID      string
	VerifyToken        string
	AutoDownloadImages bool
	AutoDownloadAudio  bool
}

// APIBase is the versioned Graph API root, e.g. https://graph.facebook.com/v19.0.
func (s Settings) APIBase() string {
	base := strings.TrimRight(s.APIBaseURL, "/")
	if base == "" {
		base = DefaultAPIBaseURL
	}
	version := s.APIVersion
	if version == "" {
		version = DefaultAPIVersion
	}
	return base + "/" + version
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: Error loading .env file")
	}

	return &Config{
		Port:             getEnv("PORT", "8080"),
		GinMode:          getEnv("GIN_MODE", "release"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DBDriver:         getEnv("DB_DRIVER", "sqlite"),
		DBPath:           getEnv("DB_PATH", "./waba.db"),
		DBHost:           getEnv("DB_HOST", "localhost"),
		DBPort:           getEnv("DB_PORT", "5432"),
		DBUser:           getEnv("DB_USER", "waba"),
		DBPassword:       getEnv("DB_PASSWORD", ""),
		DBName:           getEnv("DB_NAME", "waba"),
		DBSSLMode:        getEnv("DB_SSLMODE", "disable"),
		MediaDir:         getEnv("MEDIA_DIR", "./files"),
		HTTPTimeout:      getEnvDuration("HTTP_TIMEOUT", DefaultHTTPTimeout),
		EncryptionSecret: getEnv("WABA_ENCRYPTION_SECRET", ""),
		Settings: Settings{
			Enabled:            getEnvBool("WABA_ENABLED", true),
			AccessToken:        getEnv("WHATSAPP_TOKEN", ""),
			APIBaseURL:         getEnv("API_BASE_URL", DefaultAPIBaseURL),
			APIVersion:         getEnv("API_VERSION", DefaultAPIVersion),
			PhoneNumberID:      getEnv("PHONE_NUMBER_ID", ""),
			VerifyToken:        getEnv("VERIFY_TOKEN", ""),
			AutoDownloadImages: getEnvBool("AUTO_DOWNLOAD_IMAGES", false),
			AutoDownloadAudio:  getEnvBool("AUTO_DOWNLOAD_AUDIO", false),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: invalid boolean for %s: %q, using %v", key, value, fallback)
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		log.Printf("Warning: invalid duration for %s: %q, using %s", key, value, fallback)
		return fallback
	}
	return parsed
}
