package config

import "testing"

func validConfig() Config {
	return Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Addrs: []string{"localhost:6379"},
		},
		Outbox:   OutboxConfig{BaseURL: "http://localhost:9090"},
		Contacts: ContactsConfig{BaseURL: "http://localhost:9091"},
		Pacing: PacingConfig{
			WindowOpenHour:  8,
			WindowCloseHour: 21,
		},
	}
}

func TestValidate_InvalidOverLimitMode(t *testing.T) {
	cfg := validConfig()
	cfg.Budget.OverLimitMode = "reject"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid over limit mode")
	}

	expected := `budget.over_limit_mode must be "degrade" or "block", got "reject"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_ValidOverLimitModes(t *testing.T) {
	for _, mode := range []string{"", "degrade", "block"} {
		t.Run("mode="+mode, func(t *testing.T) {
			cfg := validConfig()
			cfg.Budget.OverLimitMode = mode

			if err := cfg.Validate(); err != nil {
				t.Fatalf("unexpected error for valid mode %q: %v", mode, err)
			}
		})
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingDatabaseAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_InvalidPacingWindow(t *testing.T) {
	cfg := validConfig()
	cfg.Pacing.WindowOpenHour = 21
	cfg.Pacing.WindowCloseHour = 8

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for inverted pacing window")
	}
}

func TestValidate_InvalidProfile(t *testing.T) {
	cfg := validConfig()
	cfg.Pacing.Profiles = map[string]ProfileConfig{
		"broken": {DelaySec: 0, JitterPct: 0.2},
	}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive profile delay")
	}

	cfg.Pacing.Profiles = map[string]ProfileConfig{
		"broken": {DelaySec: 30, JitterPct: 1.5},
	}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for jitter out of range")
	}
}

func TestValidate_MissingServiceURLs(t *testing.T) {
	cfg := validConfig()
	cfg.Outbox.BaseURL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing outbox base url")
	}

	cfg = validConfig()
	cfg.Contacts.BaseURL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing contacts base url")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 10 {
		t.Errorf("expected WriteTimeoutSec=10, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Database.ReadinessTimeout)
	}
	if cfg.Budget.OverLimitMode != "degrade" {
		t.Errorf("expected OverLimitMode='degrade', got %q", cfg.Budget.OverLimitMode)
	}
	if cfg.Quota.Timezone != "UTC" {
		t.Errorf("expected Quota.Timezone='UTC', got %q", cfg.Quota.Timezone)
	}
	if cfg.Pacing.WindowOpenHour != 8 || cfg.Pacing.WindowCloseHour != 21 {
		t.Errorf("expected window [8, 21), got [%d, %d)", cfg.Pacing.WindowOpenHour, cfg.Pacing.WindowCloseHour)
	}
	if len(cfg.Pacing.Profiles) != 3 {
		t.Fatalf("expected 3 default profiles, got %d", len(cfg.Pacing.Profiles))
	}
	if p := cfg.Pacing.Profiles["safe"]; p.DelaySec != 90 || p.JitterPct != 0.2 {
		t.Errorf("unexpected safe profile: %+v", p)
	}
	if cfg.Outbox.RequestsPerSec != 10 {
		t.Errorf("expected RequestsPerSec=10, got %g", cfg.Outbox.RequestsPerSec)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database: DatabaseConfig{ReadinessTimeout: 15},
		Budget:   BudgetConfig{OverLimitMode: "block"},
		Pacing: PacingConfig{
			WindowOpenHour:  9,
			WindowCloseHour: 18,
			Profiles: map[string]ProfileConfig{
				"custom": {DelaySec: 120, JitterPct: 0.3},
			},
		},
		Outbox: OutboxConfig{RequestsPerSec: 2},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Budget.OverLimitMode != "block" {
		t.Errorf("expected OverLimitMode='block', got %q", cfg.Budget.OverLimitMode)
	}
	if cfg.Pacing.WindowOpenHour != 9 || cfg.Pacing.WindowCloseHour != 18 {
		t.Errorf("expected window [9, 18), got [%d, %d)", cfg.Pacing.WindowOpenHour, cfg.Pacing.WindowCloseHour)
	}
	if len(cfg.Pacing.Profiles) != 1 {
		t.Errorf("expected custom profiles preserved, got %+v", cfg.Pacing.Profiles)
	}
	if cfg.Outbox.RequestsPerSec != 2 {
		t.Errorf("expected RequestsPerSec=2, got %g", cfg.Outbox.RequestsPerSec)
	}
}
