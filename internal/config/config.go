package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type AppConfig struct {
	Name string `yaml:"name" env:"APP_NAME" env-default:"To-Do Planner"`
	URL  string `yaml:"url" env:"APP_URL" env-default:"http://localhost:8080"`
}

type HTTPConfig struct {
	Address string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	Timeout time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT" env-default:"10s"`
}

type DBConfig struct {
	Driver string `yaml:"driver" env:"DB_DRIVER" env-default:"sqlite"`
	DSN    string `yaml:"dsn" env:"DATABASE_URL" env-default:"data/todo.db"`
}

type StorageConfig struct {
	Dir string `yaml:"dir" env:"STORAGE_DIR" env-default:"data/public"`
}

type AuthConfig struct {
	Secret   string `yaml:"secret" env:"JWT_SECRET_KEY"`
	Required bool   `yaml:"required" env:"AUTH_REQUIRED" env-default:"true"`
}

type ReminderConfig struct {
	At          string        `yaml:"at" env:"REMINDER_AT" env-default:"08:00"`
	Timezone    string        `yaml:"timezone" env:"REMINDER_TIMEZONE" env-default:"Local"`
	SendTimeout time.Duration `yaml:"send_timeout" env:"REMINDER_SEND_TIMEOUT" env-default:"15s"`
	Workers     int           `yaml:"workers" env:"REMINDER_WORKERS" env-default:"4"`
}

type MailConfig struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username string `yaml:"username" env:"SMTP_USERNAME"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
	From     string `yaml:"from" env:"MAIL_FROM"`
	Attempts uint   `yaml:"attempts" env:"MAIL_ATTEMPTS" env-default:"2"`
}

type RedisConfig struct {
	URL string        `yaml:"url" env:"REDIS_URL"`
	TTL time.Duration `yaml:"ttl" env:"REMINDER_DEDUP_TTL" env-default:"48h"`
}

type TelegramConfig struct {
	Token        string `yaml:"token" env:"TELEGRAM_TOKEN"`
	ReportChatID int64  `yaml:"report_chat_id" env:"TELEGRAM_REPORT_CHAT_ID"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	File  string `yaml:"file" env:"LOG_FILE"`
}

// Config keeps runtime settings for the API server and the reminder job.
type Config struct {
	App      AppConfig      `yaml:"app"`
	HTTP     HTTPConfig     `yaml:"http"`
	DB       DBConfig       `yaml:"db"`
	Storage  StorageConfig  `yaml:"storage"`
	Auth     AuthConfig     `yaml:"auth"`
	Reminder ReminderConfig `yaml:"reminder"`
	Mail     MailConfig     `yaml:"mail"`
	Redis    RedisConfig    `yaml:"redis"`
	Telegram TelegramConfig `yaml:"telegram"`
	Log      LogConfig      `yaml:"log"`
}

// Load reads an optional .env file, then the YAML file at path (when it exists),
// then environment variables, which win over the file.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return cfg, fmt.Errorf("read env: %w", err)
		}
	} else if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		var pe *os.PathError
		if !errors.As(err, &pe) {
			return cfg, fmt.Errorf("read config %q: %w", path, err)
		}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return cfg, fmt.Errorf("read env: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks settings every command needs. API-only settings are
// checked by CheckAPI.
func (c Config) Validate() error {
	switch c.DB.Driver {
	case "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	if strings.TrimSpace(c.DB.DSN) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if _, err := ParseClock(c.Reminder.At); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Reminder.Workers <= 0 {
		return fmt.Errorf("REMINDER_WORKERS must be positive")
	}
	return nil
}

// CheckAPI checks settings only the HTTP API depends on.
func (c Config) CheckAPI() error {
	if c.Auth.Required && c.Auth.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required when AUTH_REQUIRED is set")
	}
	return nil
}

// Location resolves the reminder timezone. "Local" is the server's zone.
func (c Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Reminder.Timezone)
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid REMINDER_TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

// MailFrom is the envelope sender, falling back to the SMTP username.
func (c Config) MailFrom() string {
	if c.Mail.From != "" {
		return c.Mail.From
	}
	return c.Mail.Username
}

// Clock is a time of day in 24h form.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM".
func ParseClock(raw string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 {
		return Clock{}, fmt.Errorf("invalid time %q, expected HH:MM", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return Clock{}, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return Clock{}, fmt.Errorf("invalid minute in %q", raw)
	}
	return Clock{Hour: hour, Minute: minute}, nil
}
