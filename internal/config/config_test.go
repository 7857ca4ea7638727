package config

import (
	"os"
	"strings"
	"testing"
	_ "time/tzdata"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp("", "config_test_*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	t.Cleanup(func() { os.Remove(tmpfile.Name()) })

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}
	tmpfile.Close()
	return tmpfile.Name()
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t, `
venue:
  name: Star and Shadow
  url: https://starandshadow.org.uk/
timezone: Europe/London
schedule: "30 9 * * 2"
mailout:
  listings_days_ahead: 28
  details_days_ahead: 14
source:
  type: sqlite
  path: /var/lib/programme/diary.db
publisher:
  type: web
  web:
    addr: ":9090"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Venue.Name != "Star and Shadow" {
		t.Errorf("Expected venue name 'Star and Shadow', got '%s'", cfg.Venue.Name)
	}
	if cfg.Schedule != "30 9 * * 2" {
		t.Errorf("Expected schedule '30 9 * * 2', got '%s'", cfg.Schedule)
	}
	if cfg.Mailout.ListingsDaysAhead != 28 || cfg.Mailout.DetailsDaysAhead != 14 {
		t.Errorf("Unexpected mailout config %+v", cfg.Mailout)
	}
	if cfg.Source.Type != "sqlite" || cfg.Source.Path != "/var/lib/programme/diary.db" {
		t.Errorf("Unexpected source config %+v", cfg.Source)
	}
	if cfg.Publisher.Web.Addr != ":9090" {
		t.Errorf("Expected web addr ':9090', got '%s'", cfg.Publisher.Web.Addr)
	}
	if cfg.Location().String() != "Europe/London" {
		t.Errorf("Expected location Europe/London, got %s", cfg.Location())
	}
}

func TestDefaults(t *testing.T) {
	path := writeTempConfig(t, `
venue:
  name: defaults test
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Timezone != "Europe/London" {
		t.Errorf("Expected default timezone 'Europe/London', got '%s'", cfg.Timezone)
	}
	if cfg.Schedule != "0 8 * * 1" {
		t.Errorf("Expected default schedule '0 8 * * 1', got '%s'", cfg.Schedule)
	}
	if cfg.Mailout.ListingsDaysAhead != 21 {
		t.Errorf("Expected default listings_days_ahead 21, got %d", cfg.Mailout.ListingsDaysAhead)
	}
	if cfg.Mailout.DetailsDaysAhead != 9 {
		t.Errorf("Expected default details_days_ahead 9, got %d", cfg.Mailout.DetailsDaysAhead)
	}
	if cfg.Source.Type != "file" || cfg.Source.Path != "diary.yaml" {
		t.Errorf("Expected default file source diary.yaml, got %+v", cfg.Source)
	}
	if cfg.Publisher.Type != "stdout" {
		t.Errorf("Expected default publisher type 'stdout', got '%s'", cfg.Publisher.Type)
	}
	if cfg.Publisher.Web.Addr != ":8080" {
		t.Errorf("Expected default web addr ':8080', got '%s'", cfg.Publisher.Web.Addr)
	}
	if cfg.Publisher.Email.SMTPPort != 587 {
		t.Errorf("Expected default SMTP port 587, got %d", cfg.Publisher.Email.SMTPPort)
	}
}

func TestSQLiteSourceDefaultPath(t *testing.T) {
	path := writeTempConfig(t, `
venue:
  name: test
source:
  type: sqlite
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Source.Path != "diary.db" {
		t.Errorf("Expected default sqlite path 'diary.db', got '%s'", cfg.Source.Path)
	}
}

func TestURLSource(t *testing.T) {
	path := writeTempConfig(t, `
venue:
  name: test
source:
  type: url
  url: "https://example.org/diary.yaml"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Source.URL != "https://example.org/diary.yaml" || cfg.Source.Path != "" {
		t.Errorf("Unexpected source config %+v", cfg.Source)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		wantErr string
	}{
		{
			name:    "missing venue name",
			config:  "publisher:\n  type: stdout\n",
			wantErr: "venue.name is required",
		},
		{
			name:    "bad timezone",
			config:  "venue:\n  name: test\ntimezone: Mars/Olympus\n",
			wantErr: "invalid timezone",
		},
		{
			name:    "bad schedule",
			config:  "venue:\n  name: test\nschedule: every monday\n",
			wantErr: "invalid schedule",
		},
		{
			name:    "negative days",
			config:  "venue:\n  name: test\nmailout:\n  listings_days_ahead: -1\n",
			wantErr: "must not be negative",
		},
		{
			name:    "details beyond listings",
			config:  "venue:\n  name: test\nmailout:\n  listings_days_ahead: 7\n  details_days_ahead: 14\n",
			wantErr: "must not exceed",
		},
		{
			name:    "unknown source",
			config:  "venue:\n  name: test\nsource:\n  type: postgres\n",
			wantErr: "unsupported source type",
		},
		{
			name:    "url source without url",
			config:  "venue:\n  name: test\nsource:\n  type: url\n",
			wantErr: "source.url is required",
		},
		{
			name:    "unknown publisher",
			config:  "venue:\n  name: test\npublisher:\n  type: fax\n",
			wantErr: "unsupported publisher type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeTempConfig(t, tt.config))
			if err == nil {
				t.Fatalf("Expected validation error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestDiscordValidation(t *testing.T) {
	_, err := Load(writeTempConfig(t, `
venue:
  name: test
publisher:
  type: discord
`))
	if err == nil {
		t.Fatal("Expected validation error for missing discord webhook_url")
	}
	if !strings.Contains(err.Error(), "webhook_url is required") {
		t.Errorf("Expected webhook_url error, got: %v", err)
	}
}

func TestEmailValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		wantErr string
	}{
		{
			name: "missing smtp_host",
			config: `
venue:
  name: test
publisher:
  type: email
  email:
    from: sender@example.com
    to: [recipient@example.com]
`,
			wantErr: "smtp_host is required",
		},
		{
			name: "missing to",
			config: `
venue:
  name: test
publisher:
  type: email
  email:
    smtp_host: smtp.example.com
    from: sender@example.com
`,
			wantErr: "to is required",
		},
		{
			name: "missing from",
			config: `
venue:
  name: test
publisher:
  type: email
  email:
    smtp_host: smtp.example.com
    to: [recipient@example.com]
`,
			wantErr: "from is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeTempConfig(t, tt.config))
			if err == nil {
				t.Fatalf("Expected validation error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("Expected error for non-existent file")
	}
	if !strings.Contains(err.Error(), "failed to read") {
		t.Errorf("Expected 'failed to read' error, got: %v", err)
	}
}

func TestEnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_SMTP_PASSWORD", "s3cret")

	path := writeTempConfig(t, `
venue:
  name: test
publisher:
  type: email
  email:
    smtp_host: smtp.example.com
    password: ${TEST_SMTP_PASSWORD}
    from: sender@example.com
    to: [recipient@example.com]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Publisher.Email.Password != "s3cret" {
		t.Errorf("Expected expanded password, got '%s'", cfg.Publisher.Email.Password)
	}
}

func TestEnvVarExpansionUnset(t *testing.T) {
	os.Unsetenv("UNSET_VAR_12345")

	input := "value: ${UNSET_VAR_12345}"
	expanded := expandEnvVars(input)

	if expanded != input {
		t.Errorf("Expected unset var to remain as-is, got '%s'", expanded)
	}
}

func TestLocationBeforeLoad(t *testing.T) {
	var cfg Config
	if cfg.Location().String() != "UTC" {
		t.Errorf("Expected UTC for an unloaded config, got %s", cfg.Location())
	}
}
