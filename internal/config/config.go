package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds everything the server reads from the environment.
type Config struct {
	AppPort  string
	LogLevel string

	DatabaseDriver string
	DatabaseDSN    string

	JWTSecret string
	TokenTTL  time.Duration

	PageSize int

	RabbitMQURL string

	RedisURL string
	CacheTTL time.Duration

	MediaRoot     string
	MediaURL      string
	ImageMaxWidth int

	S3 S3Config

	PDFFontPath string

	LoginRatePerMinute int
}

// S3Config selects S3-compatible image storage when Bucket is set.
type S3Config struct {
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	PublicURL string
}

// Enabled reports whether images should go to S3 instead of local disk.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// Load reads an optional dotenv file, then the environment, into a Config.
// A missing env file is not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		AppPort:            v.GetString("APP_PORT"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		DatabaseDriver:     v.GetString("DATABASE_DRIVER"),
		DatabaseDSN:        v.GetString("DATABASE_DSN"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		TokenTTL:           v.GetDuration("TOKEN_TTL"),
		PageSize:           v.GetInt("PAGE_SIZE"),
		RabbitMQURL:        v.GetString("RABBITMQ_URL"),
		RedisURL:           v.GetString("REDIS_URL"),
		CacheTTL:           v.GetDuration("CACHE_TTL"),
		MediaRoot:          v.GetString("MEDIA_ROOT"),
		MediaURL:           v.GetString("MEDIA_URL"),
		ImageMaxWidth:      v.GetInt("IMAGE_MAX_WIDTH"),
		PDFFontPath:        v.GetString("PDF_FONT_PATH"),
		LoginRatePerMinute: v.GetInt("LOGIN_RATE_PER_MINUTE"),
		S3: S3Config{
			Bucket:    v.GetString("S3_BUCKET"),
			Endpoint:  v.GetString("S3_ENDPOINT"),
			Region:    v.GetString("S3_REGION"),
			AccessKey: v.GetString("S3_ACCESS_KEY"),
			SecretKey: v.GetString("S3_SECRET_KEY"),
			PublicURL: v.GetString("S3_PUBLIC_URL"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "foodgram.db")
	v.SetDefault("JWT_SECRET", "change-me")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("PAGE_SIZE", 6)
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("CACHE_TTL", "10m")
	v.SetDefault("MEDIA_ROOT", "./media")
	v.SetDefault("MEDIA_URL", "/media")
	v.SetDefault("IMAGE_MAX_WIDTH", 1280)
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("PDF_FONT_PATH", "")
	v.SetDefault("LOGIN_RATE_PER_MINUTE", 10)
}

func (c *Config) validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q (want sqlite or postgres)", c.DatabaseDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("PAGE_SIZE must be positive, got %d", c.PageSize)
	}
	if c.S3.Enabled() && c.S3.PublicURL == "" {
		return errors.New("S3_PUBLIC_URL is required when S3_BUCKET is set")
	}
	return nil
}
