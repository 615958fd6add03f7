// Package config loads application settings from a .env file and environment variables.
// Environment variables always take precedence over .env file values.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	// PostgreSQL – either set DatabaseURL directly, or the individual fields.
	DatabaseURL string
	DBUser      string
	DBPass      string
	DBHost      string
	DBPort      string
	DBName      string
	DBSSLMode   string

	// Admin gate. PasscodeHash (bcrypt) wins over the plain Passcode.
	AdminPasscode     string
	AdminPasscodeHash string
	SessionSecret     string
	SessionTTL        time.Duration

	// Server
	Debug          bool
	Port           string
	TLSDomains     []string
	CORSOrigins    []string
	PublicBaseURL  string
	IntakeRateRPS  float64
	TracingBackend string

	Blob    BlobConfig
	Mail    MailConfig
	AI      AIConfig
	Scraper ScraperConfig
}

// BlobConfig selects and configures the object storage driver.
type BlobConfig struct {
	Driver       string
	Directory    string
	BaseURL      string
	Bucket       string
	Region       string
	AccessKey    string
	SecretKey    string
	Endpoint     string
	SignedURLTTL time.Duration
}

// MailConfig configures outbound transactional email.
type MailConfig struct {
	APIKey  string
	From    string
	AdminTo string
}

// AIConfig configures the content rewriter.
type AIConfig struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// ScraperConfig configures the scraping API used for Linktree imports.
type ScraperConfig struct {
	APIKey  string
	BaseURL string
	RPS     float64
}

// Load reads configuration from a .env file (if present) and then from
// environment variables. Environment variables always win.
func Load() *Config {
	cfg := FromViper(newViper())
	cfg.validate()
	return cfg
}

// Read is Load for tools that report a bad configuration instead of exiting.
func Read() (*Config, error) {
	cfg := FromViper(newViper())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromViper maps a viper instance onto Config, applying defaults. It does not validate.
func FromViper(v *viper.Viper) *Config {
	// Defaults
	v.SetDefault("DB_USER", "trainerpages")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "trainerpages")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("PORT", ":9000")
	v.SetDefault("TLS_DOMAINS", "")
	v.SetDefault("DEBUG", false)
	v.SetDefault("SESSION_TTL", "12h")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:9000")
	v.SetDefault("INTAKE_RATE_LIMIT", 2.0)
	v.SetDefault("TRACING", "none")
	v.SetDefault("BLOB_DRIVER", "filesystem")
	v.SetDefault("BLOB_DIR", "./.data/blobs")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_SIGNED_URL_TTL", "0s")
	v.SetDefault("MAIL_FROM", "Trainer Pages <hello@trainerpages.app>")
	v.SetDefault("AI_PROVIDER", "none")
	v.SetDefault("SCRAPER_BASE_URL", "https://api.firecrawl.dev")
	v.SetDefault("SCRAPER_RPS", 1.0)

	cfg := &Config{
		DatabaseURL:       v.GetString("DATABASE_URL"),
		DBUser:            v.GetString("DB_USER"),
		DBPass:            v.GetString("DB_PASS"),
		DBHost:            v.GetString("DB_HOST"),
		DBPort:            v.GetString("DB_PORT"),
		DBName:            v.GetString("DB_NAME"),
		DBSSLMode:         v.GetString("DB_SSLMODE"),
		AdminPasscode:     v.GetString("ADMIN_PASSCODE"),
		AdminPasscodeHash: v.GetString("ADMIN_PASSCODE_HASH"),
		SessionSecret:     v.GetString("SESSION_SECRET"),
		SessionTTL:        v.GetDuration("SESSION_TTL"),
		Debug:             v.GetBool("DEBUG"),
		Port:              v.GetString("PORT"),
		TLSDomains:        splitTrimmed(v.GetString("TLS_DOMAINS")),
		CORSOrigins:       splitTrimmed(v.GetString("CORS_ORIGINS")),
		PublicBaseURL:     strings.TrimSuffix(v.GetString("PUBLIC_BASE_URL"), "/"),
		IntakeRateRPS:     v.GetFloat64("INTAKE_RATE_LIMIT"),
		TracingBackend:    v.GetString("TRACING"),
		Blob: BlobConfig{
			Driver:       v.GetString("BLOB_DRIVER"),
			Directory:    v.GetString("BLOB_DIR"),
			BaseURL:      strings.TrimSuffix(v.GetString("BLOB_BASE_URL"), "/"),
			Bucket:       v.GetString("S3_BUCKET"),
			Region:       v.GetString("S3_REGION"),
			AccessKey:    v.GetString("S3_ACCESS_KEY"),
			SecretKey:    v.GetString("S3_SECRET_KEY"),
			Endpoint:     v.GetString("S3_ENDPOINT"),
			SignedURLTTL: v.GetDuration("S3_SIGNED_URL_TTL"),
		},
		Mail: MailConfig{
			APIKey:  v.GetString("MAIL_API_KEY"),
			From:    v.GetString("MAIL_FROM"),
			AdminTo: v.GetString("MAIL_ADMIN_TO"),
		},
		AI: AIConfig{
			Provider: strings.ToLower(v.GetString("AI_PROVIDER")),
			APIKey:   v.GetString("AI_API_KEY"),
			Model:    v.GetString("AI_MODEL"),
			BaseURL:  v.GetString("AI_BASE_URL"),
		},
		Scraper: ScraperConfig{
			APIKey:  v.GetString("SCRAPER_API_KEY"),
			BaseURL: strings.TrimSuffix(v.GetString("SCRAPER_BASE_URL"), "/"),
			RPS:     v.GetFloat64("SCRAPER_RPS"),
		},
	}

	if cfg.SessionSecret == "" {
		cfg.SessionSecret = derivedSecret(cfg.AdminPasscodeHash + cfg.AdminPasscode)
	}
	if cfg.Blob.BaseURL == "" && cfg.Blob.Driver == "filesystem" {
		cfg.Blob.BaseURL = cfg.PublicBaseURL + "/files"
	}
	return cfg
}

// DSN returns the database connection string.
// DATABASE_URL takes precedence over individual fields.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser,
		c.DBPass,
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}

// SessionKey returns the session token signing key as a byte slice.
func (c *Config) SessionKey() []byte {
	return []byte(c.SessionSecret)
}

// Validate reports the first missing required setting.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" && c.DBPass == "" {
		return fmt.Errorf("DATABASE_URL or DB_PASS must be set")
	}
	if c.AdminPasscode == "" && c.AdminPasscodeHash == "" {
		return fmt.Errorf("ADMIN_PASSCODE or ADMIN_PASSCODE_HASH must be set")
	}
	if c.Blob.Driver == "s3" && c.Blob.Bucket == "" {
		return fmt.Errorf("S3_BUCKET must be set when BLOB_DRIVER=s3")
	}
	return nil
}

func (c *Config) validate() {
	if err := c.Validate(); err != nil {
		log.Fatal("config: ", err)
	}
}

func newViper() *viper.Viper {
	// Silently load .env – OK if the file doesn't exist (production uses real env vars).
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, using environment variables only")
	}

	v := viper.New()
	v.AutomaticEnv()
	return v
}

func derivedSecret(material string) string {
	sum := sha256.Sum256([]byte("trainerpages-session:" + material))
	return hex.EncodeToString(sum[:])
}

func splitTrimmed(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
