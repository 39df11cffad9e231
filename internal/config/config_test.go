// File: internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/formpilot/internal/locator"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Target.URL = "https://example.test/signup"
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "formpilot", cfg.Logger.ServiceName)
	assert.True(t, cfg.Browser.Headless)
	assert.Empty(t, cfg.Target.URL)

	assert.Equal(t, locator.Candidate{Strategy: locator.ByIdentifier, Expression: "firstName"}, cfg.Target.Fields.FirstName)
	assert.Equal(t, locator.Candidate{Strategy: locator.ByAttribute, Expression: "name=confirmPassword"}, cfg.Target.Fields.ConfirmPassword)

	require.Len(t, cfg.Target.NextCandidates, 7)
	assert.Equal(t, locator.Candidate{Strategy: locator.ByIdentifier, Expression: "next"}, cfg.Target.NextCandidates[0])
	assert.Equal(t, locator.Candidate{Strategy: locator.ByCSS, Expression: `button[type="submit"]`}, cfg.Target.NextCandidates[6])

	assert.Equal(t, TimeoutsConfig{
		Navigation: 60 * time.Second,
		Field:      20 * time.Second,
		Candidate:  20 * time.Second,
		Submit:     30 * time.Second,
		Release:    10 * time.Second,
	}, cfg.Timeouts)
	assert.Equal(t, PacingConfig{MinSeconds: 2, MaxSeconds: 5}, cfg.Pacing)
	assert.Equal(t, "firstNames.txt", cfg.Names.FirstNamesFile)
	assert.Equal(t, "account_credentials.txt", cfg.Output.CredentialsFile)

	assert.ErrorContains(t, cfg.Validate(), "url is required", "a target has to be chosen explicitly")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"relative url", func(c *Config) { c.Target.URL = "/signup" }, "absolute http(s)"},
		{"non-http scheme", func(c *Config) { c.Target.URL = "file:///etc/passwd" }, "absolute http(s)"},
		{"no next candidates", func(c *Config) { c.Target.NextCandidates = nil }, "at least one locator"},
		{"unknown strategy", func(c *Config) {
			c.Target.NextCandidates[2] = locator.Candidate{Strategy: "shadow", Expression: "x"}
		}, "next_candidates[2]"},
		{"empty field expression", func(c *Config) { c.Target.Fields.Username.Expression = "" }, "fields.username"},
		{"zero timeout", func(c *Config) { c.Timeouts.Submit = 0 }, "positive durations"},
		{"negative pacing", func(c *Config) { c.Pacing.MinSeconds = -1 }, "must not be negative"},
		{"inverted pacing", func(c *Config) { c.Pacing = PacingConfig{MinSeconds: 6, MaxSeconds: 3} }, "must not exceed"},
		{"no names file", func(c *Config) { c.Names.LastNamesFile = "" }, "last_names_file"},
		{"no credentials file", func(c *Config) { c.Output.CredentialsFile = "" }, "credentials_file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}

	t.Run("equal pacing bounds", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.Pacing = PacingConfig{MinSeconds: 0, MaxSeconds: 0}
		assert.NoError(t, cfg.Validate())
	})
}

func TestNewConfigFromViper(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
target:
  url: https://example.test/join
  fields:
    username:
      strategy: attribute
      expression: name=login
  next_candidates:
    - strategy: text
      expression: Weiter
    - strategy: xpath
      expression: //button[@data-step="2"]
timeouts:
  submit: 45s
pacing:
  min_seconds: 0
  max_seconds: 1
`), 0o644))

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "https://example.test/join", cfg.Target.URL)
	assert.Equal(t, locator.Candidate{Strategy: locator.ByAttribute, Expression: "name=login"}, cfg.Target.Fields.Username)
	assert.Equal(t, locator.Candidate{Strategy: locator.ByIdentifier, Expression: "firstName"}, cfg.Target.Fields.FirstName, "unset fields keep their defaults")
	wantNext := []locator.Candidate{
		{Strategy: locator.ByText, Expression: "Weiter"},
		{Strategy: locator.ByXPath, Expression: `//button[@data-step="2"]`},
	}
	if diff := cmp.Diff(wantNext, cfg.Target.NextCandidates); diff != "" {
		t.Errorf("next_candidates mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 45*time.Second, cfg.Timeouts.Submit)
	assert.Equal(t, 20*time.Second, cfg.Timeouts.Field)
	assert.Equal(t, PacingConfig{MinSeconds: 0, MaxSeconds: 1}, cfg.Pacing)
}

func TestNewConfigFromViper_Invalid(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("target.url", "https://example.test")
	v.Set("pacing.min_seconds", 9)

	_, err := NewConfigFromViper(v)
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestFieldsConfig_All(t *testing.T) {
	fields := NewDefaultConfig().Target.Fields.All()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"first_name", "last_name", "username", "password", "confirm_password"}, names)
	assert.Equal(t, locator.Candidate{Strategy: locator.ByIdentifier, Expression: "username"}, fields[2].Locator)
}

func TestValidate_ReportsFirstInvalidFieldInFormOrder(t *testing.T) {
	cfg := validConfig(t)
	cfg.Target.Fields.ConfirmPassword.Expression = ""
	cfg.Target.Fields.LastName = locator.Candidate{Strategy: "shadow", Expression: "x"}
	cfg.Target.Fields.Password.Expression = "no-equals-sign"

	for range 20 {
		assert.ErrorContains(t, cfg.Validate(), "fields.last_name")
	}
}
