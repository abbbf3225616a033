package app

import (
	"time"

	"hookbot/internal/config"
	"hookbot/internal/services/broadcast"
	"hookbot/internal/storage"
	telegram "hookbot/internal/transport/telegram"
)

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 0)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, nil
}

func mapTelegramConfig(cfg *config.Config) (telegram.Config, error) {
	poll, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return telegram.Config{}, err
	}
	return telegram.Config{
		Token:            cfg.Telegram.Token,
		Mode:             cfg.Telegram.Mode,
		WebhookListen:    cfg.Telegram.WebhookListen,
		WebhookPublicURL: cfg.Telegram.WebhookPublicURL,
		PollTimeout:      poll,
		RatePerSec:       cfg.Broadcast.RatePerSec,
	}, nil
}

func mapBroadcastConfig(cfg *config.Config) (broadcast.Config, error) {
	sendTimeout, err := config.ParseDurationOrDefault("broadcast.send_timeout", cfg.Broadcast.SendTimeout, 25*time.Second)
	if err != nil {
		return broadcast.Config{}, err
	}
	return broadcast.Config{
		BatchSize:   cfg.Broadcast.BatchSize,
		SendTimeout: sendTimeout,
	}, nil
}
