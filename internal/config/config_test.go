package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fr4nk3nst1ner/jobluu/internal/apperror"
	"github.com/fr4nk3nst1ner/jobluu/internal/config"
	"github.com/fr4nk3nst1ner/jobluu/internal/models"
)

// isolate points every lookup location at an empty temp dir
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("XDG_STATE_HOME", dir)
	t.Setenv("JOBLUU_CONFIG", "")
	for _, k := range []string{
		"JOBLUU_ENV", "JOBLUU_HOST", "JOBLUU_API_URL", "JOBLUU_STORAGE", "JOBLUU_STATE_FILE",
		"JOBLUU_REDIS_URL", "JOBLUU_GOOGLE_CLIENT_ID", "JOBLUU_GOOGLE_CLIENT_SECRET",
		"JOBLUU_LOG_LEVEL", "JOBLUU_PROXY", "JOBLUU_TIMEOUT", "JOBLUU_REQUIRE_PROFILE",
		"JOBLUU_TELEGRAM_BOT_TOKEN", "JOBLUU_TELEGRAM_CHAT_ID",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	wd, _ := os.Getwd()
	_ = os.Chdir(dir)
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestResolveEnvironment(t *testing.T) {
	tests := []struct {
		host string
		want config.Environment
	}{
		{"localhost", config.Development},
		{"127.0.0.1", config.Development},
		{"staging.jobluu.in", config.Staging},
		{"dev-box", config.Staging},
		{"jobluu.in", config.Production},
		{"", config.Production},
	}
	for _, tt := range tests {
		if got := config.ResolveEnvironment(tt.host); got != tt.want {
			t.Errorf("ResolveEnvironment(%q) = %q, want %q", tt.host, got, tt.want)
		}
	}
}

func TestDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Path() != "" {
		t.Errorf("path = %q", cfg.Path())
	}
	if cfg.BaseURL() != config.ProductionAPIURL {
		t.Errorf("base url = %q", cfg.BaseURL())
	}
	if cfg.Storage.Backend != config.StorageFile || cfg.Storage.File != filepath.Join(dir, "jobluu", "state.json") {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if !cfg.RequireProfile() || cfg.HTTP.Timeout != 30*time.Second {
		t.Errorf("guard/http = %+v %+v", cfg.Guard, cfg.HTTP)
	}
}

func TestFileThenEnvironment(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "jobluu", "config.yaml")
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	_ = os.WriteFile(path, []byte(`
host: localhost
http:
  timeout: 5s
storage:
  backend: memory
guard:
  require_profile: false
watch:
  schedule: "*/10 * * * *"
  search:
    search: golang
    salaryRange: {min: 10, max: 30}
`), 0o600)

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Path() != path {
		t.Errorf("path = %q", cfg.Path())
	}
	if cfg.Env() != config.Development || cfg.BaseURL() != config.DevelopmentAPIURL {
		t.Errorf("env %q url %q", cfg.Env(), cfg.BaseURL())
	}
	if cfg.HTTP.Timeout != 5*time.Second || cfg.RequireProfile() {
		t.Errorf("timeout %v requireProfile %v", cfg.HTTP.Timeout, cfg.RequireProfile())
	}
	want := models.SalaryRange{Min: 10, Max: 30}
	if cfg.Watch.Search.SearchQuery != "golang" || cfg.Watch.Search.SalaryRange == nil || *cfg.Watch.Search.SalaryRange != want {
		t.Errorf("watch search = %+v", cfg.Watch.Search)
	}

	t.Setenv("JOBLUU_ENV", "production")
	t.Setenv("JOBLUU_API_URL", "https://api.example.com/api/")
	cfg, err = config.Load("")
	if err != nil {
		t.Fatalf("Load with env: %v", err)
	}
	if cfg.Env() != config.Production || cfg.BaseURL() != "https://api.example.com/api" {
		t.Errorf("env %q url %q", cfg.Env(), cfg.BaseURL())
	}
}

func TestExplicitMissingFileIsAnError(t *testing.T) {
	dir := isolate(t)
	_, err := config.Load(filepath.Join(dir, "nope.yaml"))
	if !apperror.IsConfig(err) {
		t.Errorf("err = %v", err)
	}
}

func TestProblemsAreCollected(t *testing.T) {
	isolate(t)
	t.Setenv("JOBLUU_STORAGE", "redis")
	t.Setenv("JOBLUU_LOG_LEVEL", "loud")
	t.Setenv("JOBLUU_TIMEOUT", "soon")
	t.Setenv("JOBLUU_ENV", "qa")

	_, err := config.Load("")
	if !apperror.IsConfig(err) {
		t.Fatalf("err = %v", err)
	}
	msg := apperror.Message(err)
	for _, want := range []string{"JOBLUU_TIMEOUT", "redis_url", "log level", "environment"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestValidateSchedule(t *testing.T) {
	cfg := config.Default()
	cfg.Watch.Schedule = "every so often"
	if err := cfg.Validate(); !apperror.IsConfig(err) {
		t.Errorf("err = %v", err)
	}
	cfg.Watch.Schedule = "@hourly"
	if err := cfg.Validate(); err != nil {
		t.Errorf("err = %v", err)
	}
}

func TestTelegramNeedsBothFields(t *testing.T) {
	isolate(t)
	t.Setenv("JOBLUU_TELEGRAM_BOT_TOKEN", "123:abc")

	_, err := config.Load("")
	if !strings.Contains(apperror.Message(err), "chat_id") {
		t.Fatalf("err = %v", err)
	}

	t.Setenv("JOBLUU_TELEGRAM_CHAT_ID", "-10042")
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Watch.Telegram.Enabled() {
		t.Errorf("telegram not enabled: %+v", cfg.Watch.Telegram)
	}
}
