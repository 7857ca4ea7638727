package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Venue      VenueConfig     `yaml:"venue"`
	Timezone   string          `yaml:"timezone"`
	Schedule   string          `yaml:"schedule"`
	RunOnStart bool            `yaml:"run_on_start"`
	Mailout    MailoutConfig   `yaml:"mailout"`
	Source     SourceConfig    `yaml:"source"`
	Publisher  PublisherConfig `yaml:"publisher"`

	location *time.Location
}

type VenueConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type MailoutConfig struct {
	ListingsDaysAhead int `yaml:"listings_days_ahead"`
	DetailsDaysAhead  int `yaml:"details_days_ahead"`
}

type SourceConfig struct {
	Type string `yaml:"type"`
	Path string `yaml:"path"`
	URL  string `yaml:"url"`
}

type PublisherConfig struct {
	Type    string        `yaml:"type"`
	Email   EmailConfig   `yaml:"email"`
	Web     WebConfig     `yaml:"web"`
	Discord DiscordConfig `yaml:"discord"`
}

type DiscordConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

type EmailConfig struct {
	SMTPHost string   `yaml:"smtp_host"`
	SMTPPort int      `yaml:"smtp_port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

type WebConfig struct {
	Addr string `yaml:"addr"`
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

func setDefaults(cfg *Config) {
	if cfg.Timezone == "" {
		cfg.Timezone = "Europe/London"
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "0 8 * * 1"
	}
	if cfg.Mailout.ListingsDaysAhead == 0 {
		cfg.Mailout.ListingsDaysAhead = 21
	}
	if cfg.Mailout.DetailsDaysAhead == 0 {
		cfg.Mailout.DetailsDaysAhead = 9
	}
	if cfg.Source.Type == "" {
		cfg.Source.Type = "file"
	}
	if cfg.Source.Path == "" {
		switch cfg.Source.Type {
		case "sqlite":
			cfg.Source.Path = "diary.db"
		case "file":
			cfg.Source.Path = "diary.yaml"
		}
	}
	if cfg.Publisher.Type == "" {
		cfg.Publisher.Type = "stdout"
	}
	if cfg.Publisher.Web.Addr == "" {
		cfg.Publisher.Web.Addr = ":8080"
	}
	if cfg.Publisher.Email.SMTPPort == 0 {
		cfg.Publisher.Email.SMTPPort = 587
	}
}

func validate(cfg *Config) error {
	if cfg.Venue.Name == "" {
		return fmt.Errorf("config: venue.name is required")
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("config: invalid timezone %q: %w", cfg.Timezone, err)
	}
	cfg.location = loc
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return fmt.Errorf("config: invalid schedule %q: %w", cfg.Schedule, err)
	}
	if cfg.Mailout.ListingsDaysAhead < 0 || cfg.Mailout.DetailsDaysAhead < 0 {
		return fmt.Errorf("config: mailout days ahead must not be negative")
	}
	if cfg.Mailout.DetailsDaysAhead > cfg.Mailout.ListingsDaysAhead {
		return fmt.Errorf("config: mailout.details_days_ahead (%d) must not exceed mailout.listings_days_ahead (%d)",
			cfg.Mailout.DetailsDaysAhead, cfg.Mailout.ListingsDaysAhead)
	}
	switch cfg.Source.Type {
	case "file", "sqlite":
	case "url":
		if cfg.Source.URL == "" {
			return fmt.Errorf("config: source.url is required for url source")
		}
	default:
		return fmt.Errorf("config: unsupported source type %q (supported: file, sqlite, url)", cfg.Source.Type)
	}
	switch cfg.Publisher.Type {
	case "stdout", "email", "web", "discord":
	default:
		return fmt.Errorf("config: unsupported publisher type %q (supported: stdout, email, web, discord)", cfg.Publisher.Type)
	}
	if cfg.Publisher.Type == "discord" {
		if cfg.Publisher.Discord.WebhookURL == "" {
			return fmt.Errorf("config: publisher.discord.webhook_url is required for discord publisher")
		}
	}
	if cfg.Publisher.Type == "email" {
		if cfg.Publisher.Email.SMTPHost == "" {
			return fmt.Errorf("config: publisher.email.smtp_host is required for email publisher")
		}
		if len(cfg.Publisher.Email.To) == 0 {
			return fmt.Errorf("config: publisher.email.to is required for email publisher")
		}
		if cfg.Publisher.Email.From == "" {
			return fmt.Errorf("config: publisher.email.from is required for email publisher")
		}
	}
	return nil
}

// Location returns the venue's time zone. It is only valid on a loaded config.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// Load reads the config file, expands environment variables, applies defaults,
// and validates the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
