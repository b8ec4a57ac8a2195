package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`
	Alerts   AlertsConfig   `json:"alerts"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// AllowedChatIDs restricts command handling. Empty means everyone.
	AllowedChatIDs []int64 `json:"allowed_chat_ids,omitempty"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout    string `json:"poll_timeout,omitempty"`
	SendRatePerSec int    `json:"send_rate_per_sec,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type StorageConfig struct {
	// Driver is "sqlite" (default) or "file".
	Driver string `json:"driver,omitempty"`
	Path   string `json:"path,omitempty"`
	// BusyTimeout is a Go duration string (sqlite only).
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// AlertsConfig fixes the single reference zone and the two firing times.
type AlertsConfig struct {
	// Timezone is the IANA reference zone all date comparisons run in.
	Timezone string `json:"timezone,omitempty"`
	// DailyAt is the HH:MM at which the daily lockup pass runs.
	DailyAt string `json:"daily_at,omitempty"`
	// DefaultEventTime is the HH:MM used for event alerts without an
	// explicit time (all pre-day offsets, and day-of when no time is set).
	DefaultEventTime string `json:"default_event_time,omitempty"`
}

const (
	DefaultTimezone  = "Asia/Seoul"
	DefaultDailyAt   = "09:00"
	DefaultEventTime = "09:00"
)

// ApplyDefaults fills zero values in place.
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.Storage.Driver) == "" {
		c.Storage.Driver = "sqlite"
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		c.Storage.Path = "./lockbot.db"
	}
	if strings.TrimSpace(c.Alerts.Timezone) == "" {
		c.Alerts.Timezone = DefaultTimezone
	}
	if strings.TrimSpace(c.Alerts.DailyAt) == "" {
		c.Alerts.DailyAt = DefaultDailyAt
	}
	if strings.TrimSpace(c.Alerts.DefaultEventTime) == "" {
		c.Alerts.DefaultEventTime = DefaultEventTime
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("telegram.token is required")
	}
	if _, err := time.LoadLocation(c.Alerts.Timezone); err != nil {
		return fmt.Errorf("alerts.timezone: %w", err)
	}
	if _, err := ParseDurationField("telegram.poll_timeout", c.Telegram.PollTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		return err
	}
	return nil
}
