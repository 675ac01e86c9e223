package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("driver = %q, want postgres", cfg.Database.Driver)
	}
	if cfg.Tasks.MaxSnoozeDays != 7 {
		t.Errorf("max_snooze_days = %d, want 7", cfg.Tasks.MaxSnoozeDays)
	}
	if cfg.Calendar.WorkStartHour != 9 || cfg.Calendar.WorkEndHour != 17 {
		t.Errorf("work hours = %d-%d", cfg.Calendar.WorkStartHour, cfg.Calendar.WorkEndHour)
	}
	if cfg.Workers.SweepInterval != time.Minute {
		t.Errorf("sweep interval = %s", cfg.Workers.SweepInterval)
	}
	if cfg.Kafka.Topics.Signals != "renubu.signals" {
		t.Errorf("signals topic = %q", cfg.Kafka.Topics.Signals)
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "http:\n  addr: \":9999\"\ntasks:\n  max_snooze_days: 3\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RENUBU_DATABASE_DRIVER", "mysql")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":9999" {
		t.Errorf("addr = %q", cfg.HTTP.Addr)
	}
	if cfg.Tasks.MaxSnoozeDays != 3 {
		t.Errorf("max_snooze_days = %d", cfg.Tasks.MaxSnoozeDays)
	}
	if cfg.Database.Driver != "mysql" {
		t.Errorf("driver = %q, want env override mysql", cfg.Database.Driver)
	}
}

func TestDemoModeForcesSQLite(t *testing.T) {
	t.Setenv("RENUBU_APP_DEMO_MODE", "true")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN != "renubu-demo.db" {
		t.Errorf("database = %+v", cfg.Database)
	}
	if cfg.ClickHouse.Enabled {
		t.Error("clickhouse should be disabled in demo mode")
	}
}

func TestValidate(t *testing.T) {
	base, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }},
		{"zero snooze cap", func(c *Config) { c.Tasks.MaxSnoozeDays = 0 }},
		{"inverted hours", func(c *Config) { c.Calendar.WorkStartHour = 18 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("RENUBU_TEST_FROM_FILE=hello\nRENUBU_TEST_PRESET=file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RENUBU_TEST_PRESET", "shell")
	t.Cleanup(func() { _ = os.Unsetenv("RENUBU_TEST_FROM_FILE") })

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("RENUBU_TEST_FROM_FILE"); got != "hello" {
		t.Errorf("from file = %q", got)
	}
	if got := os.Getenv("RENUBU_TEST_PRESET"); got != "shell" {
		t.Errorf("preset = %q, want shell", got)
	}

	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("missing file should be ignored: %v", err)
	}
}
