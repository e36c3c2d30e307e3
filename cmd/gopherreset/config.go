package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/gopherreset/internal/logger"
)

const (
	defaultListenAddr    = "localhost:8000"
	defaultLoggingLevel  = logger.LevelInfo
	defaultEnvironment   = logger.EnvProduction
	defaultFrontURL      = "http://localhost:3000"
	defaultMailFrom      = "noreply@gopherreset.local"
	defaultSMTPPort      = 587
	defaultResetTokenTTL = "1d"
	defaultAuthTokenTTL  = "7d"
)

type Config struct {
	// Default logging level
	LogLevel string `validate:"oneof=debug info warn error"`

	// Environment
	Environment string `validate:"oneof=dev prod"`

	// Address on which the service will be run
	ListenAddr string `validate:"required,hostname_port"`

	// Database to connect to
	DatabaseDSN string `validate:"required"`

	// Front-end base url. Links sent to users point to it
	FrontURL string `validate:"required,url"`

	// Sender address of emails
	MailFrom string `validate:"required,email"`

	// SMTP server. If host is empty emails are only logged
	SMTPHost     string
	SMTPPort     int `validate:"min=1,max=65535"`
	SMTPUsername string
	SMTPPassword string

	// Fail sending if server does not support STARTTLS
	SMTPRequireTLS bool

	// Token lifetimes: Go duration with optional days, e.g. "1d", "36h"
	ResetTokenTTL string `validate:"required"`
	AuthTokenTTL  string `validate:"required"`
}

func NewConfig() *Config {
	return &Config{
		LogLevel:      defaultLoggingLevel,
		Environment:   defaultEnvironment,
		ListenAddr:    defaultListenAddr,
		FrontURL:      defaultFrontURL,
		MailFrom:      defaultMailFrom,
		SMTPPort:      defaultSMTPPort,
		ResetTokenTTL: defaultResetTokenTTL,
		AuthTokenTTL:  defaultAuthTokenTTL,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}
	setInt := func(o *int) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			v, err := strconv.Atoi(value)
			if err != nil {
				return err
			}
			*o = v
			return nil
		}
	}

	setBool := func(o *bool) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			v, err := strconv.ParseBool(value)
			if err != nil {
				return err
			}
			*o = v
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":      setString(&c.ListenAddr),
		"DATABASE_URI":     setString(&c.DatabaseDSN),
		"LOG_LEVEL":        setString(&c.LogLevel),
		"ENVIRONMENT":      setString(&c.Environment),
		"FRONT_URL":        setString(&c.FrontURL),
		"MAIL_FROM":        setString(&c.MailFrom),
		"SMTP_HOST":        setString(&c.SMTPHost),
		"SMTP_PORT":        setInt(&c.SMTPPort),
		"SMTP_USERNAME":    setString(&c.SMTPUsername),
		"SMTP_PASSWORD":    setString(&c.SMTPPassword),
		"SMTP_REQUIRE_TLS": setBool(&c.SMTPRequireTLS),
		"RESET_TOKEN_TTL":  setString(&c.ResetTokenTTL),
		"AUTH_TOKEN_TTL":   setString(&c.AuthTokenTTL),
	}

	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			return fmt.Errorf("invalid %s. Err: %w", key, err)
		}
	}

	return nil
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("gopherreset", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVarP(&c.FrontURL, "front-url", "f", c.FrontURL, "Front-end base url used in emailed links")
	fs.StringVar(&c.MailFrom, "mail-from", c.MailFrom, "Sender address of emails")
	fs.StringVar(&c.SMTPHost, "smtp-host", c.SMTPHost, "SMTP host. Emails are only logged if empty")
	fs.IntVar(&c.SMTPPort, "smtp-port", c.SMTPPort, "SMTP port")
	fs.StringVar(&c.SMTPUsername, "smtp-username", c.SMTPUsername, "SMTP username")
	fs.StringVar(&c.SMTPPassword, "smtp-password", c.SMTPPassword, "SMTP password")
	fs.BoolVar(&c.SMTPRequireTLS, "smtp-require-tls", c.SMTPRequireTLS, "Fail if SMTP server does not support STARTTLS")
	fs.StringVar(&c.ResetTokenTTL, "reset-token-ttl", c.ResetTokenTTL, "Password reset token lifetime, e.g. 1d, 12h")
	fs.StringVar(&c.AuthTokenTTL, "auth-token-ttl", c.AuthTokenTTL, "Authentication token lifetime, e.g. 7d")

	return fs.Parse(args)
}

func (c *Config) Validate() error {
	return validator.New().Struct(c)
}
