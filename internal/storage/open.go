package storage

import (
	"context"
	"errors"
	"strings"

	logx "hookbot/pkg/logx"
)

// Store is the persistence API used by the services.
//
// Writers to different job ids must not interfere; concurrent writers to the
// same job id are not expected (the engine serializes per job id).
type Store interface {
	// Broadcast job documents.
	CreateJob(ctx context.Context, job JobRecord) error
	ReadJob(ctx context.Context, id string) (JobRecord, error)
	WriteJob(ctx context.Context, job JobRecord) error
	DeleteJob(ctx context.Context, id string) error
	ListJobIDs(ctx context.Context) ([]string, error)

	// Recipient directory.
	AddRecipient(ctx context.Context, userID int64) error
	ListRecipients(ctx context.Context) ([]int64, error)
	CountRecipients(ctx context.Context) (int, error)
	Verify(ctx context.Context, userID int64) error
	IsVerified(ctx context.Context, userID int64) (bool, error)
	CountVerified(ctx context.Context) (int, error)

	// Conversation state. An empty step means "no wizard in progress".
	Step(ctx context.Context, chatID int64) (string, error)
	SetStep(ctx context.Context, chatID int64, step string) error
	Context(ctx context.Context, chatID int64) (map[string]any, error)
	SaveContext(ctx context.Context, chatID int64, kv map[string]any) error
	ClearContext(ctx context.Context, chatID int64) error

	// Admin panel message id, keyed by chat.
	PanelMessage(ctx context.Context, chatID int64) (int, bool, error)
	SetPanelMessage(ctx context.Context, chatID int64, messageID int) error

	Close() error
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
