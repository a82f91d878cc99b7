package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Media drivers supported by the storage package.
const (
	MediaDriverMinio      = "minio"
	MediaDriverCloudinary = "cloudinary"
)

// Config stores the application configuration.
// It is loaded once at startup and passed to every component that needs it.
type Config struct {
	Port           string
	CORSOrigin     string // "*" or a comma-separated list of allowed origins
	TrustProxy     bool   // Take the client address from X-Forwarded-For
	UploadTempDir  string // Where multipart files are staged before upload
	MaxUploadBytes int64

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	MediaDriver    string // "minio" or "cloudinary"
	MediaFolder    string // Key prefix / folder for uploaded profile images
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool
	MinioPublicURL string // Base URL clients use to reach objects, e.g. https://cdn.example.com

	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenSecret string
	RefreshTokenExpiry time.Duration
	BcryptCost         int

	RegisterRateLimit  int // Requests per window per client, 0 disables limiting
	RegisterRateWindow time.Duration

	LogLevel string
	LogFile  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("15m") and whole days ("7d").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := ParseExpiry(value); err == nil {
			return d
		}
	}
	return fallback
}

// ParseExpiry parses an expiry such as "15m", "1h30m" or "7d".
func ParseExpiry(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if strings.HasSuffix(value, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(value, "d"))
		if err != nil {
			return 0, fmt.Errorf("invalid day expiry %q: %w", value, err)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid expiry %q: %w", value, err)
	}
	return d, nil
}

// Load loads configuration from environment variables (via the given dotenv files) or defaults.
func Load(envFiles ...string) *Config {
	// godotenv.Load never overrides variables that are already set.
	if err := godotenv.Load(envFiles...); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	return &Config{
		Port:           getEnv("PORT", "8080"),
		CORSOrigin:     getEnv("CORS_ORIGIN", "*"),
		TrustProxy:     getEnvBool("TRUST_PROXY", false),
		UploadTempDir:  getEnv("UPLOAD_TEMP_DIR", filepath.Join("public", "temp")),
		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 10<<20),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "vtube"),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MediaDriver:    strings.ToLower(getEnv("MEDIA_DRIVER", MediaDriverMinio)),
		MediaFolder:    getEnv("MEDIA_FOLDER", "avatars"),
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "vtube"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		MinioPublicURL: getEnv("MINIO_PUBLIC_URL", ""),

		CloudinaryName:      os.Getenv("CLOUDINARY_NAME"),
		CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),

		AccessTokenSecret:  os.Getenv("ACCESS_TOKEN_SECRET"),
		AccessTokenExpiry:  getEnvDuration("ACCESS_TOKEN_EXPIRY", 15*time.Minute),
		RefreshTokenSecret: os.Getenv("REFRESH_TOKEN_SECRET"),
		RefreshTokenExpiry: getEnvDuration("REFRESH_TOKEN_EXPIRY", 7*24*time.Hour),
		BcryptCost:         getEnvInt("BCRYPT_COST", 12),

		RegisterRateLimit:  getEnvInt("REGISTER_RATE_LIMIT", 10),
		RegisterRateWindow: getEnvDuration("REGISTER_RATE_WINDOW", time.Minute),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", filepath.Join("logs", "vtube.log")),
	}
}

// Validate reports configuration that would make the server unusable.
func (c *Config) Validate() error {
	var errs []error
	if c.AccessTokenSecret == "" {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET is required"))
	}
	if c.RefreshTokenSecret == "" {
		errs = append(errs, errors.New("REFRESH_TOKEN_SECRET is required"))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 14 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 14, got %d", c.BcryptCost))
	}
	switch c.MediaDriver {
	case MediaDriverMinio:
		if c.MinioAccessKey == "" || c.MinioSecretKey == "" {
			errs = append(errs, errors.New("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required for the minio media driver"))
		}
	case MediaDriverCloudinary:
		if c.CloudinaryName == "" || c.CloudinaryAPIKey == "" || c.CloudinaryAPISecret == "" {
			errs = append(errs, errors.New("CLOUDINARY_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET are required for the cloudinary media driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown MEDIA_DRIVER %q", c.MediaDriver))
	}
	return errors.Join(errs...)
}

// DSN returns the MySQL data source name.
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// RedisAddr returns host:port for the Redis client.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}
