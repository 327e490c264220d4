package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr    string `yaml:"addr"`
	DBDriver    string `yaml:"db_driver"`
	DatabaseURL string `yaml:"database_url"`
	PoolSize    int    `yaml:"pool_size"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	JWTSecret  string `yaml:"jwt_secret"`
	AdminEmail string `yaml:"admin_email"`
	AdminPass  string `yaml:"admin_pass"`

	StrapiURL   string `yaml:"strapi_url"`
	StrapiToken string `yaml:"strapi_token"`
	BackendURL  string `yaml:"backend_url"`

	Tilopay TilopayConfig `yaml:"tilopay"`

	StorageDriver string `yaml:"storage_driver"`
	StorageDir    string `yaml:"storage_dir"`
	S3Bucket      string `yaml:"s3_bucket"`
	S3Region      string `yaml:"s3_region"`
	S3Endpoint    string `yaml:"s3_endpoint"`

	GelfAddr string `yaml:"gelf_addr"`
	LogLevel string `yaml:"log_level"`

	RateLimitRPS   int `yaml:"rate_limit_rps"`
	RateLimitBurst int `yaml:"rate_limit_burst"`

	CheckoutTTL time.Duration `yaml:"checkout_ttl"`
}

// TilopayConfig holds gateway credentials. RedirectURL is where the
// gateway sends the browser after a payment attempt.
type TilopayConfig struct {
	APIURL      string `yaml:"api_url"`
	APIUser     string `yaml:"api_user"`
	APIPassword string `yaml:"api_password"`
	APIKey      string `yaml:"api_key"`
	RedirectURL string `yaml:"redirect_url"`
}

func defaults() *Config {
	return &Config{
		HTTPAddr:       ":8080",
		DBDriver:       "sqlite",
		DatabaseURL:    "sangha.db",
		PoolSize:       5,
		JWTSecret:      "sangha-dev-secret-change-me",
		AdminEmail:     "admin@sangha.local",
		AdminPass:      "admin123",
		StrapiURL:      "http://localhost:1337",
		BackendURL:     "http://localhost:8000",
		StorageDriver:  "local",
		StorageDir:     "uploads",
		S3Region:       "us-east-1",
		LogLevel:       "info",
		RateLimitRPS:   10,
		RateLimitBurst: 20,
		CheckoutTTL:    2 * time.Hour,
		Tilopay: TilopayConfig{
			APIURL:      "https://app.tilopay.com",
			RedirectURL: "http://localhost:3000/checkout/complete",
		},
	}
}

// Load reads the optional YAML file named by SANGHA_CONFIG and then applies
// environment overrides.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("SANGHA_CONFIG"))
}

// LoadFile is Load with an explicit file path. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(c *Config) {
	c.HTTPAddr = getEnv("SANGHA_ADDR", c.HTTPAddr)
	c.DBDriver = getEnv("DB_DRIVER", c.DBDriver)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.PoolSize = getEnvInt("DB_POOL_SIZE", c.PoolSize)

	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getEnvInt("REDIS_DB", c.RedisDB)

	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.AdminEmail = getEnv("ADMIN_EMAIL", c.AdminEmail)
	c.AdminPass = getEnv("ADMIN_PASS", c.AdminPass)

	c.StrapiURL = getEnv("STRAPI_API_URL", c.StrapiURL)
	c.StrapiToken = getEnv("STRAPI_API_TOKEN", c.StrapiToken)
	c.BackendURL = getEnv("BACKEND_API_URL", c.BackendURL)

	c.Tilopay.APIURL = getEnv("TILOPAY_API_URL", c.Tilopay.APIURL)
	c.Tilopay.APIUser = getEnv("TILOPAY_API_USER", c.Tilopay.APIUser)
	c.Tilopay.APIPassword = getEnv("TILOPAY_API_PASSWORD", c.Tilopay.APIPassword)
	c.Tilopay.APIKey = getEnv("TILOPAY_API_KEY", c.Tilopay.APIKey)
	c.Tilopay.RedirectURL = getEnv("CHECKOUT_REDIRECT_URL", c.Tilopay.RedirectURL)

	c.StorageDriver = getEnv("STORAGE_DRIVER", c.StorageDriver)
	c.StorageDir = getEnv("STORAGE_DIR", c.StorageDir)
	c.S3Bucket = getEnv("S3_BUCKET", c.S3Bucket)
	c.S3Region = getEnv("S3_REGION", c.S3Region)
	c.S3Endpoint = getEnv("S3_ENDPOINT", c.S3Endpoint)

	c.GelfAddr = getEnv("GELF_ADDR", c.GelfAddr)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.RateLimitRPS = getEnvInt("RATE_LIMIT_RPS", c.RateLimitRPS)
	c.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", c.RateLimitBurst)

	if v := os.Getenv("CHECKOUT_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.CheckoutTTL = d
		}
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n := 0
	for _, c := range v {
		if c < '0' || c > '9' {
			return fallback
		}
		n = n*10 + int(c-'0')
	}
	return n
}
