package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the zapline API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
	Budget   BudgetConfig   `yaml:"budget"`
	Quota    QuotaConfig    `yaml:"quota"`
	Pacing   PacingConfig   `yaml:"pacing"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Outbox   OutboxConfig   `yaml:"outbox"`
	Contacts ContactsConfig `yaml:"contacts"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// BudgetConfig holds the default LLM token budget applied to tenants
// without a stored policy override.
type BudgetConfig struct {
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	OverLimitMode     string `yaml:"over_limit_mode"`     // "degrade" | "block" (default: degrade)
}

// QuotaConfig holds daily send quota settings.
type QuotaConfig struct {
	DailySendLimit  int64             `yaml:"daily_send_limit"` // 0 = unlimited
	Timezone        string            `yaml:"timezone"`
	TenantTimezones map[string]string `yaml:"tenant_timezones"`
}

// PacingConfig holds the sending window and the named pacing profiles.
type PacingConfig struct {
	WindowOpenHour  int                      `yaml:"window_open_hour"`
	WindowCloseHour int                      `yaml:"window_close_hour"`
	Timezone        string                   `yaml:"timezone"`
	Profiles        map[string]ProfileConfig `yaml:"profiles"`
}

// ProfileConfig holds one pacing profile.
type ProfileConfig struct {
	DelaySec  int     `yaml:"delay_sec"`
	JitterPct float64 `yaml:"jitter_pct"`
}

// DispatchConfig holds dispatch pipeline settings.
type DispatchConfig struct {
	MaxPerCampaign int `yaml:"max_per_campaign"` // 0 = uncapped
}

// OutboxConfig holds the outbox service connection settings.
type OutboxConfig struct {
	BaseURL        string  `yaml:"base_url"`
	APIKey         string  `yaml:"api_key"`
	RequestsPerSec float64 `yaml:"requests_per_sec"`
	TimeoutSec     int     `yaml:"timeout_sec"`
}

// ContactsConfig holds the contacts service connection settings.
type ContactsConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Budget.OverLimitMode == "" {
		c.Budget.OverLimitMode = "degrade"
	}
	if c.Quota.Timezone == "" {
		c.Quota.Timezone = "UTC"
	}
	if c.Pacing.WindowOpenHour == 0 && c.Pacing.WindowCloseHour == 0 {
		c.Pacing.WindowOpenHour = 8
		c.Pacing.WindowCloseHour = 21
	}
	if c.Pacing.Timezone == "" {
		c.Pacing.Timezone = "UTC"
	}
	if len(c.Pacing.Profiles) == 0 {
		c.Pacing.Profiles = map[string]ProfileConfig{
			"safe":   {DelaySec: 90, JitterPct: 0.2},
			"normal": {DelaySec: 45, JitterPct: 0.2},
			"fast":   {DelaySec: 15, JitterPct: 0.1},
		}
	}
	if c.Outbox.RequestsPerSec <= 0 {
		c.Outbox.RequestsPerSec = 10
	}
	if c.Outbox.TimeoutSec <= 0 {
		c.Outbox.TimeoutSec = 10
	}
	if c.Contacts.TimeoutSec <= 0 {
		c.Contacts.TimeoutSec = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	switch c.Budget.OverLimitMode {
	case "", "degrade", "block":
		// ok
	default:
		return fmt.Errorf(
			"budget.over_limit_mode must be \"degrade\" or \"block\", got %q",
			c.Budget.OverLimitMode,
		)
	}
	if c.Quota.DailySendLimit < 0 {
		return fmt.Errorf("quota.daily_send_limit must not be negative, got %d", c.Quota.DailySendLimit)
	}
	if c.Pacing.WindowOpenHour < 0 || c.Pacing.WindowCloseHour > 24 ||
		c.Pacing.WindowOpenHour >= c.Pacing.WindowCloseHour {
		return fmt.Errorf(
			"pacing window [%d, %d) is invalid",
			c.Pacing.WindowOpenHour, c.Pacing.WindowCloseHour,
		)
	}
	for name, p := range c.Pacing.Profiles {
		if p.DelaySec <= 0 {
			return fmt.Errorf("pacing.profiles.%s.delay_sec must be positive, got %d", name, p.DelaySec)
		}
		if p.JitterPct < 0 || p.JitterPct >= 1 {
			return fmt.Errorf("pacing.profiles.%s.jitter_pct must be in [0, 1), got %g", name, p.JitterPct)
		}
	}
	if c.Outbox.BaseURL == "" {
		return fmt.Errorf("outbox.base_url is required")
	}
	if c.Contacts.BaseURL == "" {
		return fmt.Errorf("contacts.base_url is required")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
