// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; used with JWT_PUBLIC_KEY for RS256/ES256.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim (e.g. "crewdesk-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "crewdesk-api").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "168h" for 7 days).
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// VerificationTTL is the email verification token lifetime (e.g. "24h").
	VerificationTTL string `mapstructure:"VERIFICATION_TTL"`
	// InviteCodeLength is the length of generated team invite codes.
	InviteCodeLength int `mapstructure:"INVITE_CODE_LENGTH"`
	// SMTPAddr is the SMTP relay address (host:port); empty disables real email sending.
	SMTPAddr string `mapstructure:"SMTP_ADDR"`
	// SMTPFrom is the From address on outgoing email.
	SMTPFrom string `mapstructure:"SMTP_FROM"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_ISSUER", "crewdesk-auth")
	v.SetDefault("JWT_AUDIENCE", "crewdesk-api")
	v.SetDefault("JWT_ACCESS_TTL", "168h") // 7d
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("VERIFICATION_TTL", "24h")
	v.SetDefault("INVITE_CODE_LENGTH", 12)
	v.SetDefault("SMTP_ADDR", "")
	v.SetDefault("SMTP_FROM", "no-reply@crewdesk.local")
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if cfg.InviteCodeLength < 6 || cfg.InviteCodeLength > 32 {
		return nil, errors.New("config: INVITE_CODE_LENGTH must be between 6 and 32")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 168 * time.Hour
	}
	return d
}

// VerificationWindow parses VerificationTTL as a time.Duration. Returns 24h if unset or invalid.
func (c *Config) VerificationWindow() time.Duration {
	d, err := time.ParseDuration(c.VerificationTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}
