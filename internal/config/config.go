package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type SMTPConfig struct {
	Host          string
	Port          string
	User          string
	Pass          string
	TLSMode       string // "", "starttls", "tls"
	SkipVerifyTLS bool
	FromAddr      string
	FromName      string
}

type RazorpayConfig struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
}

// Enabled reports whether processor credentials are present. Order creation
// returns 503 when they are not.
func (c RazorpayConfig) Enabled() bool {
	return c.KeyID != "" && c.KeySecret != ""
}

type JWTConfig struct {
	Secret            string
	AccessTTL         time.Duration
	RefreshTTL        time.Duration
	MaxRefreshPerUser int
}

type AdminConfig struct {
	Email        string
	PasswordHash string // bcrypt, provisioned via env
}

type Config struct {
	Env        string // development|production
	ListenAddr string
	DBDSN      string

	Razorpay RazorpayConfig
	SMTP     SMTPConfig
	JWT      JWTConfig
	Admin    AdminConfig

	// Membership price in minor currency units (paise). Client-supplied
	// amounts for membership orders are ignored in favor of this value.
	MembershipAmount int
	Currency         string

	AppBaseURL string
}

func Load() (Config, error) {
	cfg := Config{
		Env:        envOr("ENVIRONMENT", "development"),
		ListenAddr: envOr("LISTEN_ADDR", ":8080"),
		DBDSN:      os.Getenv("DB_DSN"),
		Razorpay: RazorpayConfig{
			KeyID:         os.Getenv("RZP_KEY_ID"),
			KeySecret:     os.Getenv("RZP_KEY_SECRET"),
			WebhookSecret: os.Getenv("RZP_WEBHOOK_SECRET"),
		},
		SMTP: SMTPConfig{
			Host:          os.Getenv("SMTP_HOST"),
			Port:          envOr("SMTP_PORT", "1025"),
			User:          os.Getenv("SMTP_USER"),
			Pass:          os.Getenv("SMTP_PASS"),
			TLSMode:       os.Getenv("SMTP_TLS_MODE"),
			SkipVerifyTLS: envBool("SMTP_SKIP_VERIFY_TLS"),
			FromAddr:      envOr("SMTP_FROM_ADDR", "no-reply@alumni.local"),
			FromName:      envOr("SMTP_FROM_NAME", "Alumni Portal"),
		},
		JWT: JWTConfig{
			Secret:            os.Getenv("JWT_SECRET"),
			AccessTTL:         envDuration("JWT_ACCESS_TTL", 15*time.Minute),
			RefreshTTL:        envDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
			MaxRefreshPerUser: envInt("JWT_MAX_REFRESH_PER_USER", 3),
		},
		Admin: AdminConfig{
			Email:        envOr("ADMIN_EMAIL", "admin@college.edu"),
			PasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		},
		MembershipAmount: envInt("MEMBERSHIP_AMOUNT", 50000),
		Currency:         envOr("CURRENCY", "INR"),
		AppBaseURL:       envOr("APP_BASE_URL", "http://localhost:8080"),
	}

	if cfg.DBDSN == "" {
		return Config{}, fmt.Errorf("config: DB_DSN is required")
	}
	if cfg.JWT.Secret == "" {
		return Config{}, fmt.Errorf("config: JWT_SECRET is required")
	}
	return cfg, nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(k string) bool {
	v, _ := strconv.ParseBool(os.Getenv(k))
	return v
}

func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
