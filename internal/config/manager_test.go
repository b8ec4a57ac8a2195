package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAMLWithDefaults(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
telegram:
  token: "123:abc"
  allowed_chat_ids: [42, -100123]
logging:
  level: debug
  console: true
`)
	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("Token = %q", cfg.Telegram.Token)
	}
	if len(cfg.Telegram.AllowedChatIDs) != 2 || cfg.Telegram.AllowedChatIDs[1] != -100123 {
		t.Fatalf("AllowedChatIDs = %v", cfg.Telegram.AllowedChatIDs)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("Level = %q", cfg.Logging.Level)
	}

	// Omitted sections come back with defaults.
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.Path != "./lockbot.db" {
		t.Fatalf("storage defaults not applied: %+v", cfg.Storage)
	}
	if cfg.Alerts.Timezone != "Asia/Seoul" || cfg.Alerts.DailyAt != "09:00" || cfg.Alerts.DefaultEventTime != "09:00" {
		t.Fatalf("alert defaults not applied: %+v", cfg.Alerts)
	}

	if got := m.Get(); got != cfg {
		t.Fatal("Get did not return the committed config")
	}
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{
  "telegram": {"token": "123:abc"},
  "storage": {"driver": "file", "path": "/var/lib/lockbot"},
  "alerts": {"timezone": "UTC", "daily_at": "08:30"}
}`)
	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Driver != "file" || cfg.Storage.Path != "/var/lib/lockbot" {
		t.Fatalf("Storage = %+v", cfg.Storage)
	}
	if cfg.Alerts.Timezone != "UTC" || cfg.Alerts.DailyAt != "08:30" {
		t.Fatalf("Alerts = %+v", cfg.Alerts)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
telegram:
  token: "123:abc"
  tokenn: "typo"
`)
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatal("expected unknown-field error")
	}
}

func TestLoadValidation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
		errPart string
	}{
		{
			name:    "missing token",
			content: "logging:\n  level: info\n",
			errPart: "telegram.token",
		},
		{
			name:    "bad timezone",
			content: "telegram:\n  token: \"123:abc\"\nalerts:\n  timezone: Mars/Olympus\n",
			errPart: "alerts.timezone",
		},
		{
			name:    "bad poll timeout",
			content: "telegram:\n  token: \"123:abc\"\n  poll_timeout: soonish\n",
			errPart: "poll_timeout",
		},
		{
			name:    "bad busy timeout",
			content: "telegram:\n  token: \"123:abc\"\nstorage:\n  busy_timeout: \"10 bananas\"\n",
			errPart: "busy_timeout",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "config.yaml", tt.content)
			_, err := NewManager(path).Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errPart) {
				t.Fatalf("error %q does not mention %q", err, tt.errPart)
			}
		})
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	d, err := ParseDurationField("x", "10s")
	if err != nil || d.Seconds() != 10 {
		t.Fatalf("got %v, %v", d, err)
	}
	d, err = ParseDurationField("x", "")
	if err != nil || d != 0 {
		t.Fatalf("empty: got %v, %v", d, err)
	}
	if _, err := ParseDurationField("x", "nope"); err == nil {
		t.Fatal("expected error")
	}
}
