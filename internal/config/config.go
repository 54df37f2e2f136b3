// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverS3     = "s3"
	DriverMinio  = "minio"
	DriverMemory = "memory"
)

type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Backup   BackupConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CacheConfig struct {
	Enabled            bool
	RedisURL           string
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int
	ProductsTTLSeconds int
}

// StorageConfig describes the object store the catalog writes images to.
// Values are read once at start-up and never mutated afterwards.
type StorageConfig struct {
	Driver         string
	Bucket         string
	BackupBucket   string
	Region         string
	AccessKey      string
	SecretKey      string
	Endpoint       string
	UseSSL         bool
	ForcePathStyle bool
	PublicBaseURL  string
	CopyACL        string
	RequestTimeout time.Duration
	MaxRetries     int
}

// HasCredentials reports whether both halves of the credential pair are set.
func (s StorageConfig) HasCredentials() bool {
	return strings.TrimSpace(s.AccessKey) != "" && strings.TrimSpace(s.SecretKey) != ""
}

type BackupConfig struct {
	Workers  int
	PageSize int
	LockTTL  time.Duration
}

// Load reads configuration from the environment (and a .env file when
// present) into a fresh Config and validates it.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	// Read from environment variables
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Database: DatabaseConfig{
			URL:      v.GetString("DATABASE_URL"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Cache: CacheConfig{
			Enabled:            v.GetBool("CACHE_ENABLED"),
			RedisURL:           v.GetString("REDIS_URL"),
			RedisHost:          v.GetString("REDIS_HOST"),
			RedisPort:          v.GetString("REDIS_PORT"),
			RedisPassword:      v.GetString("REDIS_PASSWORD"),
			RedisDB:            v.GetInt("REDIS_DB"),
			ProductsTTLSeconds: v.GetInt("CACHE_PRODUCTS_TTL_SECONDS"),
		},
		Storage: StorageConfig{
			Driver:         strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_DRIVER"))),
			Bucket:         NormalizeBucketName(v.GetString("AWS_S3_BUCKET")),
			BackupBucket:   NormalizeBucketName(v.GetString("AWS_S3_BACKUP_BUCKET")),
			Region:         v.GetString("AWS_REGION"),
			AccessKey:      v.GetString("AWS_ACCESS_KEY_ID"),
			SecretKey:      v.GetString("AWS_SECRET_ACCESS_KEY"),
			Endpoint:       v.GetString("STORAGE_ENDPOINT"),
			UseSSL:         v.GetBool("STORAGE_USE_SSL"),
			ForcePathStyle: v.GetBool("STORAGE_FORCE_PATH_STYLE"),
			PublicBaseURL:  strings.TrimSuffix(v.GetString("STORAGE_PUBLIC_BASE_URL"), "/"),
			CopyACL:        strings.TrimSpace(v.GetString("STORAGE_COPY_ACL")),
			RequestTimeout: v.GetDuration("STORAGE_REQUEST_TIMEOUT"),
			MaxRetries:     v.GetInt("STORAGE_MAX_RETRIES"),
		},
		Backup: BackupConfig{
			Workers:  v.GetInt("REPLICATION_WORKERS"),
			PageSize: v.GetInt("REPLICATION_PAGE_SIZE"),
			LockTTL:  v.GetDuration("BACKUP_LOCK_TTL"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 0)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "catalog")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_PRODUCTS_TTL_SECONDS", 60)
	v.SetDefault("STORAGE_DRIVER", DriverS3)
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("AWS_S3_BUCKET", "jfm02")
	v.SetDefault("AWS_S3_BACKUP_BUCKET", "")
	v.SetDefault("STORAGE_ENDPOINT", "")
	v.SetDefault("STORAGE_USE_SSL", true)
	v.SetDefault("STORAGE_FORCE_PATH_STYLE", false)
	v.SetDefault("STORAGE_PUBLIC_BASE_URL", "")
	v.SetDefault("STORAGE_COPY_ACL", "public-read")
	v.SetDefault("STORAGE_REQUEST_TIMEOUT", 30*time.Second)
	v.SetDefault("STORAGE_MAX_RETRIES", 3)
	v.SetDefault("REPLICATION_WORKERS", 1)
	v.SetDefault("REPLICATION_PAGE_SIZE", 1000)
	v.SetDefault("BACKUP_LOCK_TTL", 30*time.Minute)
}

// Validate checks the parts of the configuration that must hold before any
// component is constructed. Credentials are checked by the storage client
// itself so that a missing pair surfaces as a storage configuration error.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverS3, DriverMinio, DriverMemory:
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver)
	}

	if err := ValidateBucketName(c.Storage.Bucket); err != nil {
		return fmt.Errorf("AWS_S3_BUCKET: %w", err)
	}
	if c.Storage.BackupBucket != "" {
		if err := ValidateBucketPair(c.Storage.Bucket, c.Storage.BackupBucket); err != nil {
			return fmt.Errorf("AWS_S3_BACKUP_BUCKET: %w", err)
		}
	}

	if c.Storage.Driver == DriverMinio && c.Storage.Endpoint == "" {
		return fmt.Errorf("STORAGE_ENDPOINT is required for the minio driver")
	}

	if c.Storage.RequestTimeout <= 0 {
		c.Storage.RequestTimeout = 30 * time.Second
	}
	if c.Storage.MaxRetries < 1 {
		c.Storage.MaxRetries = 1
	}
	if c.Backup.Workers < 1 {
		c.Backup.Workers = 1
	}
	if c.Backup.PageSize <= 0 || c.Backup.PageSize > 1000 {
		c.Backup.PageSize = 1000
	}
	if c.Backup.LockTTL <= 0 {
		c.Backup.LockTTL = 30 * time.Minute
	}

	return nil
}

// DSN builds a lib/pq connection string unless DATABASE_URL is set.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}
