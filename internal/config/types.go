package config

import (
	"errors"
	"fmt"
	"strings"
)

type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Broadcast BroadcastConfig `json:"broadcast"`
	Sweep     SweepConfig     `json:"sweep"`
	Storage   StorageConfig   `json:"storage"`
	Logging   LoggingConfig   `json:"logging"`
	Ops       OpsConfig       `json:"ops,omitempty"`
}

type TelegramConfig struct {
	Token           string   `json:"token"`
	AdminIDs        []int64  `json:"admin_ids"`
	Channel         string   `json:"channel,omitempty"`
	SupportContacts []string `json:"support_contacts,omitempty"`

	// DefaultWebhookURL is used when a wizard run has no URL of its own
	// (the delete op, or an empty context fallback).
	DefaultWebhookURL string `json:"default_webhook_url,omitempty"`

	// Mode selects the update source: "longpoll" (default) or "webhook".
	Mode             string `json:"mode,omitempty"`
	WebhookListen    string `json:"webhook_listen,omitempty"`
	WebhookPublicURL string `json:"webhook_public_url,omitempty"`

	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

// BroadcastConfig controls the fan-out engine.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type BroadcastConfig struct {
	BatchSize   int    `json:"batch_size,omitempty"`
	SendTimeout string `json:"send_timeout,omitempty"`
	RatePerSec  int    `json:"rate_per_sec,omitempty"`
}

// SweepConfig controls the scheduled drain of pending jobs. Inbound updates
// sweep anyway; the cron schedule keeps jobs moving through idle periods.
type SweepConfig struct {
	Enabled  bool   `json:"enabled"`
	Spec     string `json:"spec,omitempty"`     // cron spec or "@every 1m" style descriptor
	Timezone string `json:"timezone,omitempty"` // IANA TZ, e.g. "Asia/Jakarta"
}

// StorageConfig selects the persistence driver.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./data" }
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

type LoggingConfig struct {
	Level   string      `json:"level,omitempty"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file,omitempty"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// OpsConfig controls the optional operator HTTP surface.
// Prefer binding to localhost.
type OpsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default: "127.0.0.1:8090"
}

// Validate checks the fields that would otherwise fail deep inside startup.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("telegram.token is required")
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return errors.New("storage.path is required")
	}
	if c.Broadcast.BatchSize < 0 {
		return fmt.Errorf("broadcast.batch_size must be >= 0, got %d", c.Broadcast.BatchSize)
	}
	if _, err := ParseDurationField("broadcast.send_timeout", c.Broadcast.SendTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("telegram.poll_timeout", c.Telegram.PollTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		return err
	}
	if strings.EqualFold(c.Telegram.Mode, "webhook") && strings.TrimSpace(c.Telegram.WebhookPublicURL) == "" {
		return errors.New("telegram.webhook_public_url is required in webhook mode")
	}
	return nil
}
