package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/yukikurage/taskdesk-api/internal/constants"
)

// Config is built once at startup and shared read-only afterwards.
type Config struct {
	Port       string
	GinMode    string
	CORSOrigin string

	LogLevel  string
	LogFormat string

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	MongoURI   string

	RedisAddr     string
	RedisPassword string
	StatsCacheTTL time.Duration

	JWTSecret            string
	TokenTTL             time.Duration
	DefaultAdminEmail    string
	DefaultAdminPassword string

	Storage StorageConfig

	OpenAIAPIKey string
}

// StorageConfig selects and configures the remote attachment provider.
type StorageConfig struct {
	Provider string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// IsProduction reports whether cookies should carry the Secure flag.
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// Load reads configuration from the environment and, when CONFIG_FILE is
// set, from that file. Environment variables win over file values.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	cfg := &Config{
		Port:       v.GetString("PORT"),
		GinMode:    v.GetString("GIN_MODE"),
		CORSOrigin: v.GetString("CORS_ORIGIN"),

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),

		DBDriver:   strings.ToLower(v.GetString("DB_DRIVER")),
		DBHost:     v.GetString("DB_HOST"),
		DBPort:     v.GetString("DB_PORT"),
		DBUser:     v.GetString("DB_USER"),
		DBPassword: v.GetString("DB_PASSWORD"),
		DBName:     v.GetString("DB_NAME"),
		MongoURI:   v.GetString("MONGO_URI"),

		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		StatsCacheTTL: v.GetDuration("STATS_CACHE_TTL"),

		JWTSecret:            v.GetString("JWT_SECRET"),
		TokenTTL:             v.GetDuration("TOKEN_TTL"),
		DefaultAdminEmail:    v.GetString("DEFAULT_ADMIN_EMAIL"),
		DefaultAdminPassword: v.GetString("DEFAULT_ADMIN_PASSWORD"),

		Storage: StorageConfig{
			Provider:            strings.ToLower(v.GetString("STORAGE_PROVIDER")),
			CloudinaryCloudName: v.GetString("CLOUDINARY_CLOUD_NAME"),
			CloudinaryAPIKey:    v.GetString("CLOUDINARY_API_KEY"),
			CloudinaryAPISecret: v.GetString("CLOUDINARY_API_SECRET"),
			Bucket:              v.GetString("STORAGE_BUCKET"),
			Region:              v.GetString("STORAGE_REGION"),
			Endpoint:            v.GetString("STORAGE_ENDPOINT"),
			AccessKey:           v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey:           v.GetString("STORAGE_SECRET_KEY"),
			UseSSL:              v.GetBool("STORAGE_USE_SSL"),
		},

		OpenAIAPIKey: v.GetString("OPENAI_API_KEY"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	switch c.DBDriver {
	case "mysql", "postgres", "sqlite", "mongodb":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.Storage.Provider {
	case "cloudinary", "s3", "minio", "none":
	default:
		return fmt.Errorf("unsupported STORAGE_PROVIDER %q", c.Storage.Provider)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("CORS_ORIGIN", "http://localhost:3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_USER", "taskuser")
	v.SetDefault("DB_PASSWORD", "taskpassword")
	v.SetDefault("DB_NAME", "task_management")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("STATS_CACHE_TTL", 30*time.Second)
	v.SetDefault("JWT_SECRET", "default-secret-key-change-me")
	v.SetDefault("TOKEN_TTL", constants.DefaultTokenTTL)
	v.SetDefault("DEFAULT_ADMIN_EMAIL", "admin@example.com")
	v.SetDefault("DEFAULT_ADMIN_PASSWORD", "admin123")
	v.SetDefault("STORAGE_PROVIDER", "none")
	v.SetDefault("STORAGE_REGION", "us-east-1")
	v.SetDefault("STORAGE_USE_SSL", true)
}
