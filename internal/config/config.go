// Package config loads jobluu settings from a YAML file and JOBLUU_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/fr4nk3nst1ner/jobluu/internal/apperror"
	"github.com/fr4nk3nst1ner/jobluu/internal/models"
)

// Environment is a deployment the client can talk to
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

const (
	ProductionAPIURL  = "https://jobluubackend.onrender.com/api"
	DevelopmentAPIURL = "http://localhost:8080/api"
)

// Storage backends
const (
	StorageFile   = "file"
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// Config is the complete client configuration
type Config struct {
	// Environment, when set, overrides the hostname rule
	Environment Environment `yaml:"environment"`
	// Host is the hostname the client considers itself served from
	Host string `yaml:"host"`
	// APIURL, when set, overrides the per-environment URL
	APIURL  string                 `yaml:"api_url"`
	APIURLs map[Environment]string `yaml:"api_urls"`
	HTTP    HTTPConfig             `yaml:"http"`
	Storage StorageConfig          `yaml:"storage"`
	Google  GoogleConfig           `yaml:"google"`
	Log     LogConfig              `yaml:"log"`
	Guard   GuardConfig            `yaml:"guard"`
	Watch   WatchConfig            `yaml:"watch"`

	path string
}

type HTTPConfig struct {
	Proxy   string        `yaml:"proxy"`
	Timeout time.Duration `yaml:"timeout"`
}

type StorageConfig struct {
	Backend     string `yaml:"backend"`
	File        string `yaml:"file"`
	RedisURL    string `yaml:"redis_url"`
	RedisPrefix string `yaml:"redis_prefix"`
}

type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"` // prefer JOBLUU_GOOGLE_CLIENT_SECRET
	RedirectURL  string `yaml:"redirect_url"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type GuardConfig struct {
	LoginRoute        string `yaml:"login_route"`
	ProfileSetupRoute string `yaml:"profile_setup_route"`
	RequireProfile    *bool  `yaml:"require_profile"`
}

// WatchConfig is the saved search polled by `jobluu watch`
type WatchConfig struct {
	Schedule string            `yaml:"schedule"`
	Sort     string            `yaml:"sort"`
	Search   models.FilterSpec `yaml:"search"`
	Telegram TelegramConfig    `yaml:"telegram"`
}

// TelegramConfig sends watch alerts to a Telegram chat. Alerts are off
// unless both fields are set.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"` // prefer JOBLUU_TELEGRAM_BOT_TOKEN
	ChatID   string `yaml:"chat_id"`
}

// Enabled reports whether alerts can be sent
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		APIURLs: map[Environment]string{
			Development: DevelopmentAPIURL,
			Staging:     ProductionAPIURL,
			Production:  ProductionAPIURL,
		},
		HTTP: HTTPConfig{Timeout: 30 * time.Second},
		Storage: StorageConfig{
			Backend:     StorageFile,
			File:        defaultStateFile(),
			RedisPrefix: "jobluu:",
		},
		Google: GoogleConfig{RedirectURL: "urn:ietf:wg:oauth:2.0:oob"},
		Log:    LogConfig{Level: "info"},
		Watch:  WatchConfig{Schedule: "@every 15m", Sort: string(models.SortMostRecent)},
	}
}

func defaultStateFile() string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "jobluu-state.json"
		}
		dir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(dir, "jobluu", "state.json")
}

// FindConfigPath returns the first existing config file among explicit,
// $JOBLUU_CONFIG, ./jobluu.yaml and $XDG_CONFIG_HOME/jobluu/config.yaml.
// An explicit path is returned even when it does not exist so that Load
// can report it; otherwise "" means no file was found.
func FindConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	paths := []string{os.Getenv("JOBLUU_CONFIG"), "jobluu.yaml"}
	xdg := os.Getenv("XDG_CONFIG_HOME")
	if xdg == "" {
		if home, err := os.UserHomeDir(); err == nil {
			xdg = filepath.Join(home, ".config")
		}
	}
	if xdg != "" {
		paths = append(paths, filepath.Join(xdg, "jobluu", "config.yaml"))
	}

	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Load reads the configuration. A missing file means defaults, except when
// explicit names a file that does not exist. Environment variables are
// applied on top and the result is validated; every problem is reported
// in one Config error.
func Load(explicit string) (*Config, error) {
	cfg := Default()

	path := FindConfigPath(explicit)
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, apperror.NewConfig(fmt.Sprintf("invalid config file %s", path), err)
			}
			cfg.path = path
		case explicit != "" || !errors.Is(err, os.ErrNotExist):
			return nil, apperror.NewConfig(fmt.Sprintf("cannot read config file %s", path), err)
		}
	}

	var problems []string
	cfg.applyEnv(&problems)
	problems = append(problems, cfg.problems()...)
	if len(problems) > 0 {
		return nil, apperror.NewConfig("configuration errors:\n  - "+strings.Join(problems, "\n  - "), nil)
	}
	return cfg, nil
}

// Path is the file the configuration was read from, if any
func (c *Config) Path() string { return c.path }

func lookup(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func (c *Config) applyEnv(problems *[]string) {
	var env string
	lookup("JOBLUU_ENV", &env)
	if env != "" {
		c.Environment = Environment(strings.ToLower(env))
	}
	lookup("JOBLUU_HOST", &c.Host)
	lookup("JOBLUU_API_URL", &c.APIURL)
	lookup("JOBLUU_STORAGE", &c.Storage.Backend)
	lookup("JOBLUU_STATE_FILE", &c.Storage.File)
	lookup("JOBLUU_REDIS_URL", &c.Storage.RedisURL)
	lookup("JOBLUU_GOOGLE_CLIENT_ID", &c.Google.ClientID)
	lookup("JOBLUU_GOOGLE_CLIENT_SECRET", &c.Google.ClientSecret)
	lookup("JOBLUU_LOG_LEVEL", &c.Log.Level)
	lookup("JOBLUU_PROXY", &c.HTTP.Proxy)
	lookup("JOBLUU_TELEGRAM_BOT_TOKEN", &c.Watch.Telegram.BotToken)
	lookup("JOBLUU_TELEGRAM_CHAT_ID", &c.Watch.Telegram.ChatID)

	if v, ok := os.LookupEnv("JOBLUU_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			*problems = append(*problems, fmt.Sprintf("invalid value for JOBLUU_TIMEOUT: expected duration string, got '%s'", v))
		} else {
			c.HTTP.Timeout = d
		}
	}
	if v, ok := os.LookupEnv("JOBLUU_REQUIRE_PROFILE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			*problems = append(*problems, fmt.Sprintf("invalid value for JOBLUU_REQUIRE_PROFILE: expected boolean, got '%s'", v))
		} else {
			c.Guard.RequireProfile = &b
		}
	}
}

// ResolveEnvironment applies the hostname rule: localhost and 127.0.0.1
// are development, hosts mentioning staging or dev are staging and
// everything else is production.
func ResolveEnvironment(hostname string) Environment {
	h := strings.ToLower(strings.TrimSpace(hostname))
	switch {
	case h == "localhost" || h == "127.0.0.1":
		return Development
	case strings.Contains(h, "staging") || strings.Contains(h, "dev"):
		return Staging
	default:
		return Production
	}
}

// Env is the effective environment
func (c *Config) Env() Environment {
	if c.Environment != "" {
		return c.Environment
	}
	return ResolveEnvironment(c.Host)
}

// BaseURL is the effective backend base URL
func (c *Config) BaseURL() string {
	if c.APIURL != "" {
		return strings.TrimRight(c.APIURL, "/")
	}
	if u := c.APIURLs[c.Env()]; u != "" {
		return strings.TrimRight(u, "/")
	}
	return ProductionAPIURL
}

// RequireProfile reports whether protected commands need a loaded profile
func (c *Config) RequireProfile() bool {
	return c.Guard.RequireProfile == nil || *c.Guard.RequireProfile
}

var logLevels = map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}

// Validate reports every problem with c in a single Config error
func (c *Config) Validate() error {
	if problems := c.problems(); len(problems) > 0 {
		return apperror.NewConfig("configuration errors:\n  - "+strings.Join(problems, "\n  - "), nil)
	}
	return nil
}

func (c *Config) problems() []string {
	var problems []string

	switch c.Environment {
	case "", Development, Staging, Production:
	default:
		problems = append(problems, fmt.Sprintf("unknown environment %q", c.Environment))
	}

	if u, err := url.Parse(c.BaseURL()); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		problems = append(problems, fmt.Sprintf("api url %q must be an absolute http(s) URL", c.BaseURL()))
	}

	if c.HTTP.Proxy != "" {
		if _, err := url.Parse(c.HTTP.Proxy); err != nil {
			problems = append(problems, fmt.Sprintf("invalid proxy URL %q", c.HTTP.Proxy))
		}
	}
	if c.HTTP.Timeout <= 0 {
		problems = append(problems, "http timeout must be positive")
	}

	switch c.Storage.Backend {
	case StorageMemory:
	case StorageFile:
		if c.Storage.File == "" {
			problems = append(problems, "storage file is required for the file backend")
		}
	case StorageRedis:
		if c.Storage.RedisURL == "" {
			problems = append(problems, "redis_url is required for the redis backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown storage backend %q (want file, memory or redis)", c.Storage.Backend))
	}

	if !logLevels[strings.ToLower(c.Log.Level)] {
		problems = append(problems, fmt.Sprintf("unknown log level %q", c.Log.Level))
	}

	if c.Watch.Schedule != "" {
		if _, err := cron.ParseStandard(c.Watch.Schedule); err != nil {
			problems = append(problems, fmt.Sprintf("invalid watch schedule %q: %v", c.Watch.Schedule, err))
		}
	}
	if tg := c.Watch.Telegram; (tg.BotToken == "") != (tg.ChatID == "") {
		problems = append(problems, "telegram alerts need both bot_token and chat_id")
	}
	return problems
}
