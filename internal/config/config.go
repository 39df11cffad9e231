// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"

	"github.com/xkilldash9x/formpilot/internal/locator"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Target   TargetConfig   `mapstructure:"target" yaml:"target"`
	Timeouts TimeoutsConfig `mapstructure:"timeouts" yaml:"timeouts"`
	Pacing   PacingConfig   `mapstructure:"pacing" yaml:"pacing"`
	Names    NamesConfig    `mapstructure:"names" yaml:"names"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the browser process backing a session.
type BrowserConfig struct {
	Headless     bool     `mapstructure:"headless" yaml:"headless"`
	ExecPath     string   `mapstructure:"exec_path" yaml:"exec_path"`
	UserDataDir  string   `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	Args         []string `mapstructure:"args" yaml:"args"`
	WindowWidth  int      `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight int      `mapstructure:"window_height" yaml:"window_height"`
}

// TargetConfig describes the sign-up page: where it lives and how to find its parts.
type TargetConfig struct {
	URL            string              `mapstructure:"url" yaml:"url"`
	Fields         FieldsConfig        `mapstructure:"fields" yaml:"fields"`
	NextCandidates []locator.Candidate `mapstructure:"next_candidates" yaml:"next_candidates"`
}

// FieldsConfig locates each input the form driver writes to.
type FieldsConfig struct {
	FirstName       locator.Candidate `mapstructure:"first_name" yaml:"first_name"`
	LastName        locator.Candidate `mapstructure:"last_name" yaml:"last_name"`
	Username        locator.Candidate `mapstructure:"username" yaml:"username"`
	Password        locator.Candidate `mapstructure:"password" yaml:"password"`
	ConfirmPassword locator.Candidate `mapstructure:"confirm_password" yaml:"confirm_password"`
}

// NamedField pairs a field's configuration name with its locator.
type NamedField struct {
	Name    string
	Locator locator.Candidate
}

// All returns every field in form order: names first, then credentials.
func (f FieldsConfig) All() []NamedField {
	return []NamedField{
		{"first_name", f.FirstName},
		{"last_name", f.LastName},
		{"username", f.Username},
		{"password", f.Password},
		{"confirm_password", f.ConfirmPassword},
	}
}

// TimeoutsConfig bounds every blocking wait.
type TimeoutsConfig struct {
	Navigation time.Duration `mapstructure:"navigation" yaml:"navigation"`
	Field      time.Duration `mapstructure:"field" yaml:"field"`
	Candidate  time.Duration `mapstructure:"candidate" yaml:"candidate"`
	Submit     time.Duration `mapstructure:"submit" yaml:"submit"`
	Release    time.Duration `mapstructure:"release" yaml:"release"`
}

// PacingConfig is the range, in whole seconds, of the settle delay applied
// after the page opens and again before the session is released.
type PacingConfig struct {
	MinSeconds int `mapstructure:"min_seconds" yaml:"min_seconds"`
	MaxSeconds int `mapstructure:"max_seconds" yaml:"max_seconds"`
}

// NamesConfig points at the two word lists identities are drawn from.
type NamesConfig struct {
	FirstNamesFile string `mapstructure:"first_names_file" yaml:"first_names_file"`
	LastNamesFile  string `mapstructure:"last_names_file" yaml:"last_names_file"`
}

// OutputConfig points at the append-only credentials log.
type OutputConfig struct {
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "formpilot")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", false)
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.user_data_dir", "")
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.window_width", 1280)
	v.SetDefault("browser.window_height", 900)

	// -- Target --
	// No default URL; it has to be configured.
	v.SetDefault("target.url", "")
	v.SetDefault("target.fields.first_name.strategy", string(locator.ByIdentifier))
	v.SetDefault("target.fields.first_name.expression", "firstName")
	v.SetDefault("target.fields.last_name.strategy", string(locator.ByIdentifier))
	v.SetDefault("target.fields.last_name.expression", "lastName")
	v.SetDefault("target.fields.username.strategy", string(locator.ByIdentifier))
	v.SetDefault("target.fields.username.expression", "username")
	v.SetDefault("target.fields.password.strategy", string(locator.ByAttribute))
	v.SetDefault("target.fields.password.expression", "name=password")
	v.SetDefault("target.fields.confirm_password.strategy", string(locator.ByAttribute))
	v.SetDefault("target.fields.confirm_password.expression", "name=confirmPassword")
	v.SetDefault("target.next_candidates", []map[string]any{
		{"strategy": string(locator.ByIdentifier), "expression": "next"},
		{"strategy": string(locator.ByText), "expression": "Next"},
		{"strategy": string(locator.ByText), "expression": "Continue"},
		{"strategy": string(locator.ByAttribute), "expression": "aria-label=Next"},
		{"strategy": string(locator.ByAttribute), "expression": "aria-label*=Next"},
		{"strategy": string(locator.ByStyleClass), "expression": "next-button"},
		{"strategy": string(locator.ByCSS), "expression": `button[type="submit"]`},
	})

	// -- Timeouts --
	v.SetDefault("timeouts.navigation", "60s")
	v.SetDefault("timeouts.field", "20s")
	v.SetDefault("timeouts.candidate", "20s")
	v.SetDefault("timeouts.submit", "30s")
	v.SetDefault("timeouts.release", "10s")

	// -- Pacing --
	v.SetDefault("pacing.min_seconds", 2)
	v.SetDefault("pacing.max_seconds", 5)

	// -- Names / Output --
	v.SetDefault("names.first_names_file", "firstNames.txt")
	v.SetDefault("names.last_names_file", "lastNames.txt")
	v.SetDefault("output.credentials_file", "account_credentials.txt")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.Target.Validate(); err != nil {
		return fmt.Errorf("target configuration invalid: %w", err)
	}
	if err := c.Timeouts.Validate(); err != nil {
		return fmt.Errorf("timeouts configuration invalid: %w", err)
	}
	if err := c.Pacing.Validate(); err != nil {
		return fmt.Errorf("pacing configuration invalid: %w", err)
	}
	if c.Names.FirstNamesFile == "" || c.Names.LastNamesFile == "" {
		return errors.New("names.first_names_file and names.last_names_file are required")
	}
	if c.Output.CredentialsFile == "" {
		return errors.New("output.credentials_file is required")
	}
	return nil
}

// Validate checks the target page description.
func (t *TargetConfig) Validate() error {
	if t.URL == "" {
		return errors.New("url is required")
	}
	u, err := url.Parse(t.URL)
	if err != nil {
		return fmt.Errorf("url is not parseable: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url must be an absolute http(s) URL, got %q", t.URL)
	}
	for _, f := range t.Fields.All() {
		if err := f.Locator.Validate(); err != nil {
			return fmt.Errorf("fields.%s: %w", f.Name, err)
		}
	}
	if len(t.NextCandidates) == 0 {
		return errors.New("next_candidates must list at least one locator")
	}
	for i, c := range t.NextCandidates {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("next_candidates[%d]: %w", i, err)
		}
	}
	return nil
}

// Validate checks that every wait is bounded.
func (t *TimeoutsConfig) Validate() error {
	if t.Navigation <= 0 || t.Field <= 0 || t.Candidate <= 0 || t.Submit <= 0 || t.Release <= 0 {
		return errors.New("navigation, field, candidate, submit and release must be positive durations")
	}
	return nil
}

// Validate checks the settle delay range.
func (p *PacingConfig) Validate() error {
	if p.MinSeconds < 0 || p.MaxSeconds < 0 {
		return errors.New("min_seconds and max_seconds must not be negative")
	}
	if p.MinSeconds > p.MaxSeconds {
		return fmt.Errorf("min_seconds (%d) must not exceed max_seconds (%d)", p.MinSeconds, p.MaxSeconds)
	}
	return nil
}
