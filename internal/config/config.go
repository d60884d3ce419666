package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"quizsphere/internal/app"
	"quizsphere/internal/domain"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Assessment struct {
		QuestionCount  int           `yaml:"question_count"`
		MinQuestions   int           `yaml:"min_questions"`
		TimeBudget     string        `yaml:"time_budget"`
		TickInterval   string        `yaml:"tick_interval"`
		LowTimeWarning string        `yaml:"low_time_warning"`
		Tiers          []domain.Tier `yaml:"tiers"`
	} `yaml:"assessment"`
	Provider struct {
		Source     string `yaml:"source"`
		BaseURL    string `yaml:"base_url"`
		Type       string `yaml:"type"`
		Category   string `yaml:"category"`
		Difficulty string `yaml:"difficulty"`
		Timeout    string `yaml:"timeout"`
		UseToken   bool   `yaml:"use_token"`
		File       string `yaml:"file"`
	} `yaml:"provider"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Archive struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"archive"`
	Events struct {
		AMQPURL  string `yaml:"amqp_url"`
		Exchange string `yaml:"exchange"`
	} `yaml:"events"`
	Report struct {
		Format string `yaml:"format"`
		Dir    string `yaml:"dir"`
	} `yaml:"report"`
}

const (
	SourceOpenTDB = "opentdb"
	SourceStatic  = "static"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Load reads YAML config from path and fills in defaults. A missing file
// yields the defaults so the binary runs without any config.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"REDIS_ADDR":       &c.Redis.Addr,
		"REDIS_PASSWORD":   &c.Redis.Password,
		"ARCHIVE_DRIVER":   &c.Archive.Driver,
		"ARCHIVE_DSN":      &c.Archive.DSN,
		"AMQP_URL":         &c.Events.AMQPURL,
		"PROVIDER_SOURCE":  &c.Provider.Source,
		"OPENTDB_BASE_URL": &c.Provider.BaseURL,
	}
	for key, field := range overrides {
		if v, ok := os.LookupEnv(key); ok {
			*field = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Assessment.QuestionCount == 0 {
		c.Assessment.QuestionCount = 15
	}
	if c.Assessment.MinQuestions == 0 {
		c.Assessment.MinQuestions = c.Assessment.QuestionCount
	}
	if c.Provider.Source == "" {
		c.Provider.Source = SourceOpenTDB
	}
	if c.Provider.Type == "" {
		c.Provider.Type = "multiple"
	}
	if c.Report.Format == "" {
		c.Report.Format = "json"
	}
	if c.Report.Dir == "" {
		c.Report.Dir = "."
	}
}

// Settings converts the assessment section into service settings.
func (c Config) Settings() (app.Settings, error) {
	budget, err := parseSeconds(c.Assessment.TimeBudget, 30*time.Minute)
	if err != nil {
		return app.Settings{}, fmt.Errorf("%w: time_budget: %w", domain.ErrInvalidConfiguration, err)
	}
	lowTime, err := parseSeconds(c.Assessment.LowTimeWarning, 5*time.Minute)
	if err != nil {
		return app.Settings{}, fmt.Errorf("%w: low_time_warning: %w", domain.ErrInvalidConfiguration, err)
	}
	return app.Settings{
		QuestionCount:  c.Assessment.QuestionCount,
		MinQuestions:   c.Assessment.MinQuestions,
		BudgetSeconds:  budget,
		LowTimeSeconds: lowTime,
		TickInterval:   TTLDuration(c.Assessment.TickInterval, time.Second),
		Tiers:          c.Assessment.Tiers,

		// unreported sessions live as long as their handoff record
		ReportRetention: TTLDuration(c.Redis.TTL, 24*time.Hour),
	}, nil
}

func parseSeconds(raw string, fallback time.Duration) (int, error) {
	if raw == "" {
		return int(fallback / time.Second), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	return int(d / time.Second), nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
