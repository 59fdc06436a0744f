package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Recommender RecommenderConfig
	Profile     ProfileConfig
	ObjectStore ObjectStoreConfig
	Gemini      GeminiConfig
	Upload      UploadConfig
	Worker      WorkerConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// RecommenderConfig points at the externally hosted inference services
// (skill extraction, job matching, title catalog, title tech stacks).
type RecommenderConfig struct {
	BaseURL string
	Timeout time.Duration
}

// ProfileConfig points at the profile-CRUD backend that owns user state.
type ProfileConfig struct {
	BaseURL      string
	ServiceToken string
	Timeout      time.Duration
}

// ObjectStoreConfig holds the pre-shared credential for the fallback direct
// upload path. All fields empty means the fallback is unconfigured.
type ObjectStoreConfig struct {
	AccountID     string
	AccessKey     string
	SecretKey     string
	Bucket        string
	PublicBaseURL string
}

func (c ObjectStoreConfig) Configured() bool {
	return c.AccountID != "" && c.AccessKey != "" && c.SecretKey != "" && c.Bucket != ""
}

type GeminiConfig struct {
	APIKey string
}

type UploadConfig struct {
	MaxFileSize       int64
	AllowedExtensions []string
	PersistResume     bool
}

type WorkerConfig struct {
	Concurrency int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using default values.")
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3000"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "skillbridge"),
		},
		Recommender: RecommenderConfig{
			BaseURL: getEnv("RECOMMENDER_BASE_URL", "http://localhost:7860"),
			Timeout: getEnvAsDuration("RECOMMENDER_TIMEOUT", "30s"),
		},
		Profile: ProfileConfig{
			BaseURL:      getEnv("PROFILE_API_BASE_URL", "http://localhost:5000"),
			ServiceToken: getEnv("PROFILE_API_TOKEN", ""),
			Timeout:      getEnvAsDuration("PROFILE_API_TIMEOUT", "15s"),
		},
		ObjectStore: ObjectStoreConfig{
			AccountID:     getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:     getEnv("R2_ACCESS_KEY", ""),
			SecretKey:     getEnv("R2_SECRET_KEY", ""),
			Bucket:        getEnv("R2_BUCKET", ""),
			PublicBaseURL: getEnv("R2_PUBLIC_BASE_URL", ""),
		},
		Gemini: GeminiConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
		},
		Upload: UploadConfig{
			MaxFileSize:       getEnvAsInt64("MAX_FILE_SIZE", 10000000),
			AllowedExtensions: getEnvAsList("ALLOWED_EXTENSIONS", ".pdf,.doc,.docx"),
			PersistResume:     getEnvAsBool("PERSIST_RESUME", true),
		},
		Worker: WorkerConfig{
			Concurrency: getEnvAsInt("WORKER_CONCURRENCY", 3),
		},
	}
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

func getEnvAsList(key string, defaultValue string) []string {
	valueStr := getEnv(key, defaultValue)
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
