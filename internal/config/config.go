package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/phenrril/storefront/internal/domain"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string
	SessionKey  string
	AdminToken  string
	RateLimit   int
	Database    DatabaseConfig
	Redis       RedisConfig
	Delivery    domain.DeliverySettings
	Loyalty     LoyaltyConfig
	OrderAPI    OrderAPIConfig
}

type DatabaseConfig struct {
	DSN      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// ConnString returns DSN when set, otherwise a keyword/value string built from the parts.
func (d DatabaseConfig) ConnString() string {
	if strings.TrimSpace(d.DSN) != "" {
		return d.DSN
	}
	return "host=" + d.Host + " user=" + d.User + " password=" + d.Password +
		" dbname=" + d.DBName + " port=" + d.Port + " sslmode=" + d.SSLMode
}

// RedisConfig with an empty Addr disables the catalog cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Prefix   string
}

type LoyaltyConfig struct {
	domain.LoyaltySettings
	CoinValue float64
}

// OrderAPIConfig with an empty BaseURL keeps orders in the local database.
type OrderAPIConfig struct {
	BaseURL string
	Secret  string
	Timeout time.Duration
}

func (c *Config) IsProduction() bool {
	e := strings.ToLower(c.Environment)
	return e == "production" || e == "prod"
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("env")
	v.SetConfigName(".env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")

	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	get := func(key, def string) string { return getEnvOrViper(v, key, def) }

	cfg := &Config{
		Port:        get("PORT", "8080"),
		Environment: get("APP_ENV", "development"),
		LogLevel:    strings.ToLower(get("LOG_LEVEL", "info")),
		SessionKey:  strings.TrimSpace(get("SESSION_KEY", "")),
		AdminToken:  strings.TrimSpace(get("ADMIN_TOKEN", "")),
		Database: DatabaseConfig{
			DSN:      strings.TrimSpace(get("DB_DSN", "")),
			Host:     get("DB_HOST", "localhost"),
			Port:     get("DB_PORT", "5432"),
			User:     get("DB_USER", "postgres"),
			Password: get("DB_PASSWORD", "postgres"),
			DBName:   get("DB_NAME", "storefront"),
			SSLMode:  get("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(get("REDIS_ADDR", "")),
			Password: get("REDIS_PASSWORD", ""),
			Prefix:   get("REDIS_PREFIX", "storefront:"),
		},
		OrderAPI: OrderAPIConfig{
			BaseURL: strings.TrimRight(strings.TrimSpace(get("ORDER_SERVICE_URL", "")), "/"),
			Secret:  strings.TrimSpace(get("ORDER_SERVICE_SECRET", "")),
		},
	}

	var err error
	if cfg.Redis.DB, err = parseInt(get, "REDIS_DB", "0"); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = parseInt(get, "RATE_LIMIT_PER_MINUTE", "60"); err != nil {
		return nil, err
	}
	if cfg.Redis.TTL, err = parseDuration(get, "REDIS_TTL", "5m"); err != nil {
		return nil, err
	}
	if cfg.OrderAPI.Timeout, err = parseDuration(get, "ORDER_SERVICE_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	floats := []struct {
		key, def string
		dst      *float64
	}{
		{"FREE_SHIPPING_THRESHOLD", "0", &cfg.Delivery.FreeShippingThreshold},
		{"DELIVERY_INSIDE_DHAKA", "60", &cfg.Delivery.InsideDhaka},
		{"DELIVERY_SUB_DHAKA", "100", &cfg.Delivery.SubDhaka},
		{"DELIVERY_OUTSIDE_DHAKA", "120", &cfg.Delivery.OutsideDhaka},
		{"LOYALTY_MIN_REDEEM_AMOUNT", "0", &cfg.Loyalty.MinRedeemAmount},
		{"LOYALTY_COIN_VALUE", "1", &cfg.Loyalty.CoinValue},
	}
	for _, f := range floats {
		n, err := strconv.ParseFloat(get(f.key, f.def), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.key, err)
		}
		if n < 0 {
			return nil, fmt.Errorf("%s must not be negative", f.key)
		}
		*f.dst = n
	}

	waive, err := strconv.ParseBool(get("LOYALTY_WAIVE_SHIPPING", "true"))
	if err != nil {
		return nil, fmt.Errorf("LOYALTY_WAIVE_SHIPPING: %w", err)
	}
	cfg.Loyalty.WaiveShippingOnRedemption = waive

	if cfg.Loyalty.CoinValue == 0 {
		return nil, fmt.Errorf("LOYALTY_COIN_VALUE must be greater than zero")
	}
	if cfg.IsProduction() && cfg.SessionKey == "" {
		return nil, fmt.Errorf("SESSION_KEY is required in production")
	}
	return cfg, nil
}

func parseInt(get func(string, string) string, key, def string) (int, error) {
	n, err := strconv.Atoi(get(key, def))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func parseDuration(get func(string, string) string, key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(get(key, def))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getEnvOrViper(v *viper.Viper, key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return defaultValue
}
