package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const minCarrySecretLen = 32

type Config struct {
	AppPort string `env:"APP_PORT" envDefault:"8080"`

	DiscordClientID     string        `env:"DISCORD_CLIENT_ID,required,notEmpty"`
	DiscordClientSecret string        `env:"DISCORD_CLIENT_SECRET,required,notEmpty"`
	DiscordAPIBase      string        `env:"DISCORD_API_BASE" envDefault:"https://discord.com/api/v10"`
	DiscordBotToken     string        `env:"DISCORD_BOT_TOKEN,required,notEmpty"`
	DiscordGuildID      string        `env:"DISCORD_GUILD_ID,required,notEmpty"`
	DiscordRoleID       string        `env:"DISCORD_ROLE_ID,required,notEmpty"`
	DiscordWebhookURL   string        `env:"DISCORD_NOTIFICATION_WEBHOOK"`
	DiscordTimeout      time.Duration `env:"DISCORD_TIMEOUT" envDefault:"5s"`

	GoogleClientID     string   `env:"GOOGLE_CLIENT_ID,required,notEmpty"`
	GoogleClientSecret string   `env:"GOOGLE_CLIENT_SECRET,required,notEmpty"`
	GoogleAuthURL      string   `env:"GOOGLE_AUTH_URL" envDefault:"https://accounts.google.com/o/oauth2/auth"`
	GoogleTokenURL     string   `env:"GOOGLE_TOKEN_URL" envDefault:"https://oauth2.googleapis.com/token"`
	GoogleJWKSURL      string   `env:"GOOGLE_JWKS_URL" envDefault:"https://www.googleapis.com/oauth2/v3/certs"`
	GoogleIssuers      []string `env:"GOOGLE_ISSUERS" envSeparator:"," envDefault:"https://accounts.google.com,accounts.google.com"`

	// CallbackURL is the public base URL; callback paths are appended to it.
	CallbackURL string `env:"CALLBACK_URL,required,notEmpty"`

	CarryTokenSecret    string        `env:"CARRY_TOKEN_SECRET,required,notEmpty"`
	FlowTTL             time.Duration `env:"FLOW_TTL" envDefault:"10m"`
	CookieSecure        bool          `env:"COOKIE_SECURE" envDefault:"true"`
	AllowedEmailDomains []string      `env:"ALLOWED_EMAIL_DOMAINS" envSeparator:"," envDefault:"nnn.ed.jp,n-jr.jp,nnn.ac.jp"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.CallbackURL = strings.TrimRight(cfg.CallbackURL, "/")
	cfg.DiscordAPIBase = strings.TrimRight(cfg.DiscordAPIBase, "/")
	cfg.AllowedEmailDomains = trimCSV(cfg.AllowedEmailDomains)
	cfg.GoogleIssuers = trimCSV(cfg.GoogleIssuers)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if len(c.CarryTokenSecret) < minCarrySecretLen {
		return fmt.Errorf("CARRY_TOKEN_SECRET must be at least %d bytes", minCarrySecretLen)
	}
	if len(c.AllowedEmailDomains) == 0 {
		return errors.New("ALLOWED_EMAIL_DOMAINS must not be empty")
	}
	if len(c.GoogleIssuers) == 0 {
		return errors.New("GOOGLE_ISSUERS must not be empty")
	}
	if c.DiscordTimeout <= 0 || c.FlowTTL <= 0 {
		return errors.New("DISCORD_TIMEOUT and FLOW_TTL must be positive")
	}
	return nil
}

// DiscordRedirectURL is where Discord sends the user back after consent.
func (c Config) DiscordRedirectURL() string {
	return c.CallbackURL + "/auth/discord/callback"
}

// GoogleRedirectURL is where Google sends the user back after consent.
func (c Config) GoogleRedirectURL() string {
	return c.CallbackURL + "/auth/google/callback"
}

// trimCSV removes empty entries from a string slice.
func trimCSV(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
