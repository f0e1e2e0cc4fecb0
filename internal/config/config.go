package config

import (
	"time"

	"github.com/pkg/errors"

	"github.com/bigredeye/essaycheck/pkg/conf"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Server struct {
		ListenAddress   string
		MaxBodySize     string
		ShutdownTimeout time.Duration
	}

	Completion struct {
		Provider        string
		APIKey          string
		Model           string
		BaseURL         string
		Timeout         time.Duration
		Temperature     float64
		MaxOutputTokens int
	}

	Prompts struct {
		// Path is a local YAML file overriding the embedded templates.
		Path string
		// URL is polled every ReloadInterval for further overrides.
		URL            string
		ReloadInterval time.Duration
	}

	DataBase struct {
		Driver string
		DSN    string
		// UTCOffset is the fixed civil offset used for created_at, e.g. "+03:00".
		UTCOffset string
	}

	History struct {
		CacheTTL  time.Duration
		CacheSize int64
	}

	Log struct {
		Production bool
		Level      string
		File       string
	}

	Telegram struct {
		BotToken string
	}
}

var defaults = map[string]interface{}{
	"Server.ListenAddress":   ":8000",
	"Server.MaxBodySize":     "1MiB",
	"Server.ShutdownTimeout": 10 * time.Second,

	"Completion.Provider":        ProviderGemini,
	"Completion.Model":           "gemini-1.5-pro-latest",
	"Completion.BaseURL":         "https://api.openai.com/v1",
	"Completion.Timeout":         120 * time.Second,
	"Completion.Temperature":     0.2,
	"Completion.MaxOutputTokens": 4096,

	"Prompts.ReloadInterval": 5 * time.Minute,

	"DataBase.Driver":    DriverSQLite,
	"DataBase.DSN":       "feedbacks.db",
	"DataBase.UTCOffset": "+03:00",

	"History.CacheTTL":  time.Minute,
	"History.CacheSize": int64(1000),

	"Log.Level": "info",
}

func ParseConfig(path string) (*Config, error) {
	config := &Config{}
	err := conf.ParseConfig(config,
		conf.EnvPrefix("ESSAY"),
		conf.ConfigFile(path),
		conf.Defaults(defaults),
	)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to parse config")
	}
	if err := config.validate(); err != nil {
		return nil, errors.Wrap(err, "Invalid config")
	}
	return config, nil
}

func (c *Config) validate() error {
	switch c.Completion.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return errors.Errorf("unknown completion provider %q", c.Completion.Provider)
	}
	switch c.DataBase.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return errors.Errorf("unknown database driver %q", c.DataBase.Driver)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location returns the fixed zone described by DataBase.UTCOffset.
func (c *Config) Location() (*time.Location, error) {
	return ParseOffset(c.DataBase.UTCOffset)
}

// ParseOffset turns "+03:00", "-0530" or "Z" into a fixed zone named like "UTC+03:00".
func ParseOffset(offset string) (*time.Location, error) {
	if offset == "" || offset == "Z" {
		return time.UTC, nil
	}
	var t time.Time
	var err error
	for _, layout := range []string{"-07:00", "-0700", "-07"} {
		t, err = time.Parse(layout, offset)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, errors.Errorf("bad utc offset %q", offset)
	}
	_, seconds := t.Zone()
	return time.FixedZone("UTC"+offset, seconds), nil
}
