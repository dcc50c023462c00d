package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	PayFast  PayFastConfig
	API      APIConfig
	Alert    AlertConfig
	Audit    AuditConfig
}

type ServerConfig struct {
	Port int
	Env  string // "development", "production"
	// PublicURL is the externally reachable base URL of this service,
	// used to build the return/cancel/notify callback URLs.
	PublicURL string
}

type DatabaseConfig struct {
	Host    string
	Port    string
	Name    string
	User    string
	Pass    string
	Charset string
}

type RedisConfig struct {
	Addr string
	Pass string
	DB   int
}

// PayFastConfig holds the merchant credentials and gateway endpoints.
// Built once at startup and injected; nothing reads these from the
// environment after Load returns.
type PayFastConfig struct {
	MerchantID  string
	MerchantKey string
	Passphrase  string
	Sandbox     bool
	// BaseURL overrides the live/sandbox gateway host when set.
	BaseURL string
	// Validate enables the synchronous server-to-server re-validation
	// of inbound notifications against the gateway.
	Validate bool
}

type APIConfig struct {
	Key string
}

// AlertConfig configures the optional Telegram payment-report channel.
type AlertConfig struct {
	BotToken string
	ChatID   string
}

type AuditConfig struct {
	// StaleAfter is how long an order may sit in pending_payment before
	// the audit job reports it.
	StaleAfter time.Duration
}

// Load reads configuration from .env file and environment variables.
func Load() (*Config, error) {
	// Load .env file (ignore error if missing)
	_ = godotenv.Load()

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("APP_PORT", 8080)
	viper.SetDefault("APP_ENV", "production")
	viper.SetDefault("APP_PUBLIC_URL", "http://localhost:8080")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "3306")
	viper.SetDefault("DB_CHARSET", "utf8mb4")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("PAYFAST_SANDBOX", false)
	viper.SetDefault("PAYFAST_VALIDATE", true)
	viper.SetDefault("AUDIT_STALE_AFTER", "2h")

	staleAfter, err := time.ParseDuration(viper.GetString("AUDIT_STALE_AFTER"))
	if err != nil {
		staleAfter = 2 * time.Hour
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:      viper.GetInt("APP_PORT"),
			Env:       viper.GetString("APP_ENV"),
			PublicURL: strings.TrimRight(viper.GetString("APP_PUBLIC_URL"), "/"),
		},
		Database: DatabaseConfig{
			Host:    viper.GetString("DB_HOST"),
			Port:    viper.GetString("DB_PORT"),
			Name:    viper.GetString("DB_NAME"),
			User:    viper.GetString("DB_USER"),
			Pass:    viper.GetString("DB_PASS"),
			Charset: viper.GetString("DB_CHARSET"),
		},
		Redis: RedisConfig{
			Addr: viper.GetString("REDIS_ADDR"),
			Pass: viper.GetString("REDIS_PASS"),
			DB:   viper.GetInt("REDIS_DB"),
		},
		PayFast: PayFastConfig{
			MerchantID:  viper.GetString("PAYFAST_MERCHANT_ID"),
			MerchantKey: viper.GetString("PAYFAST_MERCHANT_KEY"),
			Passphrase:  viper.GetString("PAYFAST_PASSPHRASE"),
			Sandbox:     viper.GetBool("PAYFAST_SANDBOX"),
			BaseURL:     viper.GetString("PAYFAST_BASE_URL"),
			Validate:    viper.GetBool("PAYFAST_VALIDATE"),
		},
		API: APIConfig{
			Key: viper.GetString("API_KEY"),
		},
		Alert: AlertConfig{
			BotToken: viper.GetString("ALERT_BOT_TOKEN"),
			ChatID:   viper.GetString("ALERT_CHAT_ID"),
		},
		Audit: AuditConfig{
			StaleAfter: staleAfter,
		},
	}

	if cfg.Database.Name == "" {
		log.Println("WARNING: DB_NAME is not set")
	}
	if cfg.PayFast.MerchantID == "" {
		log.Println("WARNING: PAYFAST_MERCHANT_ID is not set")
	}

	return cfg, nil
}

// DSN returns the MySQL DSN string for GORM.
func (d *DatabaseConfig) DSN() string {
	return d.User + ":" + d.Pass + "@tcp(" + d.Host + ":" + d.Port + ")/" + d.Name + "?charset=" + d.Charset + "&parseTime=True&loc=Local"
}
