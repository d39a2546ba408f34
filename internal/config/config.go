package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"socialsellers/internal/db"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "default-secret-key-change-in-production"

type Config struct {
	Env  string
	Port string

	DBDriver string
	DBUrl    string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	DefaultTokenTTL time.Duration

	LogLevel  string
	LogFormat string
	LogFile   string

	RateLimitRPS   float64
	RateLimitBurst int
	CORSOrigins    []string

	KafkaBrokers []string
	KafkaTopic   string

	LowStockThreshold int
	AdminAlertEmail   string

	Seed SeedConfig
}

// SeedConfig holds the credentials of the demo accounts created by the seeding routine.
type SeedConfig struct {
	AdminName      string
	AdminEmail     string
	AdminPassword  string
	SellerName     string
	SellerEmail    string
	SellerPassword string
}

// UsingDefaultSecret reports whether the token signing secret was not supplied.
func (c Config) UsingDefaultSecret() bool {
	return c.JWTSecret == defaultJWTSecret
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func LoadConfig() (Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println(".env file not found, using environment and defaults")
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := Config{
		Env:               v.GetString("app_env"),
		Port:              v.GetString("port"),
		DBDriver:          strings.ToLower(v.GetString("db_driver")),
		DBUrl:             v.GetString("db_url"),
		JWTSecret:         v.GetString("jwt_secret"),
		AccessTokenTTL:    v.GetDuration("access_token_ttl"),
		DefaultTokenTTL:   v.GetDuration("default_token_ttl"),
		LogLevel:          v.GetString("log_level"),
		LogFormat:         v.GetString("log_format"),
		LogFile:           v.GetString("log_file"),
		RateLimitRPS:      v.GetFloat64("rate_limit_rps"),
		RateLimitBurst:    v.GetInt("rate_limit_burst"),
		CORSOrigins:       splitList(v.GetString("cors_origins")),
		KafkaBrokers:      splitList(v.GetString("kafka_brokers")),
		KafkaTopic:        v.GetString("kafka_topic"),
		LowStockThreshold: v.GetInt("low_stock_threshold"),
		AdminAlertEmail:   v.GetString("admin_alert_email"),
		Seed: SeedConfig{
			AdminName:      v.GetString("seed_admin_name"),
			AdminEmail:     v.GetString("seed_admin_email"),
			AdminPassword:  v.GetString("seed_admin_password"),
			SellerName:     v.GetString("seed_seller_name"),
			SellerEmail:    v.GetString("seed_seller_email"),
			SellerPassword: v.GetString("seed_seller_password"),
		},
	}

	if dialect, err := db.DialectFor(cfg.DBDriver); err == nil {
		cfg.DBDriver = string(dialect)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := db.DialectFor(c.DBDriver); err != nil {
		return fmt.Errorf("invalid DB_DRIVER: %w", err)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.IsProduction() && c.UsingDefaultSecret() {
		return errors.New("JWT_SECRET must be set in production")
	}
	if c.AccessTokenTTL <= 0 || c.DefaultTokenTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return errors.New("rate limit settings must be positive")
	}
	if c.LowStockThreshold < 0 {
		return errors.New("LOW_STOCK_THRESHOLD must not be negative")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "development")
	v.SetDefault("port", "8080")
	v.SetDefault("db_driver", "mysql")
	v.SetDefault("db_url", "")
	v.SetDefault("jwt_secret", defaultJWTSecret)
	v.SetDefault("access_token_ttl", 30*time.Minute)
	v.SetDefault("default_token_ttl", 15*time.Minute)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("log_file", "")
	v.SetDefault("rate_limit_rps", 10)
	v.SetDefault("rate_limit_burst", 20)
	v.SetDefault("cors_origins", "*")
	v.SetDefault("kafka_brokers", "")
	v.SetDefault("kafka_topic", "socialsellers.notifications")
	v.SetDefault("low_stock_threshold", 5)
	v.SetDefault("admin_alert_email", "admin@socialsellers.com")

	v.SetDefault("seed_admin_name", "Admin Demo")
	v.SetDefault("seed_admin_email", "admin@socialsellers.com")
	v.SetDefault("seed_admin_password", "admin123")
	v.SetDefault("seed_seller_name", "Carlos Vendedor")
	v.SetDefault("seed_seller_email", "vendedor@socialsellers.com")
	v.SetDefault("seed_seller_password", "vendedor123")
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
