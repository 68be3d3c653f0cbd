// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"fmt"
	"strings"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	Site     SiteConfig
	SMTP     SMTPConfig
	Email    EmailConfig
	Auth     AuthConfig
	Redis    RedisConfig
	Throttle ThrottleConfig
	Media    MediaConfig
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host        string
	Port        int
	BaseURL     string
	MaxBodySize int // in MB
	CORSOrigins []string
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	Driver string // sqlite, pgx
	DSN    string
}

// SiteConfig describes the frontend the emails link to.
type SiteConfig struct {
	Name         string
	URL          string
	SupportEmail string
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
	Timeout  time.Duration
}

type EmailConfig struct {
	Backend      string // smtp, console; empty selects smtp when a host is set
	TemplatesDir string // overrides the embedded templates when set
	FailSilently bool
}

type AuthConfig struct { //nolint:govet // fieldalignment not critical for config structs
	SecretKey                string // signs password reset tokens
	PasswordResetTimeout     time.Duration
	RequireEmailVerification bool
}

type RedisConfig struct {
	URL string
}

type ThrottleConfig struct {
	Limit  int
	Window time.Duration
}

type MediaConfig struct {
	Dir string
	URL string // URL prefix the media dir is served under
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        int(cmd.Int("port")),
			BaseURL:     cmd.String("base-url"),
			MaxBodySize: int(cmd.Int("max-body-size")),
			CORSOrigins: cmd.StringSlice("cors-origins"),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			Driver: cmd.String("database-driver"),
			DSN:    cmd.String("database-dsn"),
		},
		Site: SiteConfig{
			Name:         cmd.String("site-name"),
			URL:          cmd.String("site-url"),
			SupportEmail: cmd.String("support-email"),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			TLS:      cmd.Bool("smtp-tls"),
			Timeout:  cmd.Duration("smtp-timeout"),
		},
		Email: EmailConfig{
			Backend:      cmd.String("email-backend"),
			TemplatesDir: cmd.String("email-templates-dir"),
			FailSilently: cmd.Bool("email-fail-silently"),
		},
		Auth: AuthConfig{
			SecretKey:                cmd.String("secret-key"),
			PasswordResetTimeout:     cmd.Duration("password-reset-timeout"),
			RequireEmailVerification: cmd.Bool("require-email-verification"),
		},
		Redis: RedisConfig{
			URL: cmd.String("redis-url"),
		},
		Throttle: ThrottleConfig{
			Limit:  int(cmd.Int("throttle-limit")),
			Window: cmd.Duration("throttle-window"),
		},
		Media: MediaConfig{
			Dir: cmd.String("media-dir"),
			URL: cmd.String("media-url"),
		},
	}

	applyDefaults(cfg)

	return cfg
}

// applyDefaults fills values derived from other settings.
func applyDefaults(cfg *Config) {
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = buildBaseURL(cfg)
	}
	cfg.Server.BaseURL = strings.TrimSuffix(cfg.Server.BaseURL, "/")

	if cfg.Site.URL == "" {
		cfg.Site.URL = cfg.Server.BaseURL
	}
	cfg.Site.URL = strings.TrimSuffix(cfg.Site.URL, "/")

	if cfg.Site.SupportEmail == "" {
		cfg.Site.SupportEmail = cfg.SMTP.From
	}

	if cfg.Email.Backend == "" {
		cfg.Email.Backend = "console"
		if cfg.SMTP.Host != "" {
			cfg.Email.Backend = "smtp"
		}
	}

	if !strings.HasSuffix(cfg.Media.URL, "/") {
		cfg.Media.URL += "/"
	}
}

// MediaBaseURL is the absolute URL media files are served under.
func (c *Config) MediaBaseURL() string {
	if strings.HasPrefix(c.Media.URL, "http://") || strings.HasPrefix(c.Media.URL, "https://") {
		return c.Media.URL
	}
	return c.Server.BaseURL + c.Media.URL
}

func buildBaseURL(cfg *Config) string {
	host := cfg.Server.Host
	port := cfg.Server.Port

	// Hide default ports in URL
	if port == 80 {
		return fmt.Sprintf("http://%s", host)
	}
	return fmt.Sprintf("http://%s:%d", host, port)
}

// IsLocalhost checks if the host is a localhost address.
func IsLocalhost(host string) bool {
	switch host {
	case "", "localhost", "127.0.0.1", "::1":
		return true
	}
	// Check for *.localhost subdomains (e.g., app.localhost)
	return strings.HasSuffix(host, ".localhost")
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8000,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Public base URL of the API",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BASE_URL"), toml.TOML("server.base_url", configFile)),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   5,
			Usage:   "Maximum request body size in MB",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAX_BODY_SIZE"), toml.TOML("server.max_body_size", configFile)),
		},
		&cli.StringSliceFlag{
			Name:    "cors-origins",
			Value:   []string{"http://localhost:3000"},
			Usage:   "Origins allowed to call the API",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CORS_ORIGINS"), toml.TOML("server.cors_origins", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-driver",
			Value:   "sqlite",
			Usage:   "Database driver (sqlite, pgx)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DRIVER"), toml.TOML("database.driver", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/ticketing.db",
			Usage:   "Database DSN",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), toml.TOML("database.dsn", configFile)),
		},
		// Site flags
		&cli.StringFlag{
			Name:    "site-name",
			Value:   "Ticketing",
			Usage:   "Site name used in emails",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SITE_NAME"), toml.TOML("site.name", configFile)),
		},
		&cli.StringFlag{
			Name:    "site-url",
			Usage:   "Frontend URL used in email links (defaults to base_url)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SITE_URL"), toml.TOML("site.url", configFile)),
		},
		&cli.StringFlag{
			Name:    "support-email",
			Usage:   "Support address shown in emails (defaults to smtp_from)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SUPPORT_EMAIL"), toml.TOML("site.support_email", configFile)),
		},
		// SMTP flags
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP server host (console backend when empty)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_HOST"), toml.TOML("smtp.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP server port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PORT"), toml.TOML("smtp.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_USERNAME"), toml.TOML("smtp.username", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PASSWORD"), toml.TOML("smtp.password", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Value:   "noreply@localhost",
			Usage:   "Sender address",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM"), toml.TOML("smtp.from", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Value:   "Ticketing",
			Usage:   "Sender display name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM_NAME"), toml.TOML("smtp.from_name", configFile)),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS (implicit TLS on port 465, STARTTLS otherwise)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TLS"), toml.TOML("smtp.tls", configFile)),
		},
		&cli.DurationFlag{
			Name:    "smtp-timeout",
			Value:   10 * time.Second,
			Usage:   "SMTP connection timeout",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TIMEOUT"), toml.TOML("smtp.timeout", configFile)),
		},
		// Email flags
		&cli.StringFlag{
			Name:    "email-backend",
			Usage:   "Email backend (smtp, console; defaults to smtp when smtp_host is set)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("EMAIL_BACKEND"), toml.TOML("email.backend", configFile)),
		},
		&cli.StringFlag{
			Name:    "email-templates-dir",
			Usage:   "Directory with email templates overriding the built-in ones",
			Sources: cli.NewValueSourceChain(cli.EnvVar("EMAIL_TEMPLATES_DIR"), toml.TOML("email.templates_dir", configFile)),
		},
		&cli.BoolFlag{
			Name:    "email-fail-silently",
			Usage:   "Log email send failures instead of returning them",
			Sources: cli.NewValueSourceChain(cli.EnvVar("EMAIL_FAIL_SILENTLY"), toml.TOML("email.fail_silently", configFile)),
		},
		// Auth flags
		&cli.StringFlag{
			Name:    "secret-key",
			Usage:   "Secret key for signing tokens (32+ bytes, random per process if empty)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SECRET_KEY"), toml.TOML("auth.secret_key", configFile)),
		},
		&cli.DurationFlag{
			Name:    "password-reset-timeout",
			Value:   72 * time.Hour,
			Usage:   "How long password reset links stay valid",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PASSWORD_RESET_TIMEOUT"), toml.TOML("auth.password_reset_timeout", configFile)),
		},
		&cli.BoolFlag{
			Name:    "require-email-verification",
			Value:   true,
			Usage:   "Reject logins until the email address is verified",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REQUIRE_EMAIL_VERIFICATION"), toml.TOML("auth.require_email_verification", configFile)),
		},
		// Throttling
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "Redis URL for throttling (disabled when empty)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REDIS_URL"), toml.TOML("redis.url", configFile)),
		},
		&cli.IntFlag{
			Name:    "throttle-limit",
			Value:   5,
			Usage:   "Verification and reset emails allowed per address and window",
			Sources: cli.NewValueSourceChain(cli.EnvVar("THROTTLE_LIMIT"), toml.TOML("throttle.limit", configFile)),
		},
		&cli.DurationFlag{
			Name:    "throttle-window",
			Value:   15 * time.Minute,
			Usage:   "Throttle window",
			Sources: cli.NewValueSourceChain(cli.EnvVar("THROTTLE_WINDOW"), toml.TOML("throttle.window", configFile)),
		},
		// Media
		&cli.StringFlag{
			Name:    "media-dir",
			Value:   "./data/media",
			Usage:   "Directory for uploaded files",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MEDIA_DIR"), toml.TOML("media.dir", configFile)),
		},
		&cli.StringFlag{
			Name:    "media-url",
			Value:   "/media/",
			Usage:   "URL prefix for uploaded files",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MEDIA_URL"), toml.TOML("media.url", configFile)),
		},
	}
}
