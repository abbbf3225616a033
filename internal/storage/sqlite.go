//go:build sqlite
// +build sqlite

package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "hookbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ---- jobs ----

func (s *sqliteStore) CreateJob(ctx context.Context, job JobRecord) error {
	return s.WriteJob(ctx, job)
}

func (s *sqliteStore) WriteJob(ctx context.Context, job JobRecord) error {
	if strings.TrimSpace(job.ID) == "" {
		return errors.New("job id is empty")
	}
	doc, err := json.Marshal(job)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs(id, doc, created_at) VALUES(?,?,?)
		 ON CONFLICT(id) DO UPDATE SET doc=excluded.doc`,
		job.ID, string(doc), job.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteStore) ReadJob(ctx context.Context, id string) (JobRecord, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM jobs WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return JobRecord{}, ErrNotFound
	}
	if err != nil {
		return JobRecord{}, err
	}
	var job JobRecord
	if err := json.Unmarshal([]byte(doc), &job); err != nil {
		return JobRecord{}, fmt.Errorf("decode job %s: %w", id, err)
	}
	return job, nil
}

func (s *sqliteStore) DeleteJob(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	return err
}

func (s *sqliteStore) ListJobIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM jobs ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ---- recipient directory ----

func (s *sqliteStore) AddRecipient(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recipients(user_id, verified, added_at) VALUES(?,0,?)
		 ON CONFLICT(user_id) DO NOTHING`,
		userID, time.Now().Format(time.RFC3339),
	)
	return err
}

func (s *sqliteStore) ListRecipients(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM recipients ORDER BY added_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *sqliteStore) CountRecipients(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipients`).Scan(&n)
	return n, err
}

func (s *sqliteStore) Verify(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recipients(user_id, verified, added_at) VALUES(?,1,?)
		 ON CONFLICT(user_id) DO UPDATE SET verified=1`,
		userID, time.Now().Format(time.RFC3339),
	)
	return err
}

func (s *sqliteStore) IsVerified(ctx context.Context, userID int64) (bool, error) {
	var v int
	err := s.db.QueryRowContext(ctx, `SELECT verified FROM recipients WHERE user_id = ?`, userID).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (s *sqliteStore) CountVerified(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipients WHERE verified = 1`).Scan(&n)
	return n, err
}

// ---- conversation state ----

func (s *sqliteStore) Step(ctx context.Context, chatID int64) (string, error) {
	var step sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT step FROM chat_state WHERE chat_id = ?`, chatID).Scan(&step)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return step.String, nil
}

func (s *sqliteStore) SetStep(ctx context.Context, chatID int64, step string) error {
	var v any
	if strings.TrimSpace(step) != "" {
		v = step
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_state(chat_id, step) VALUES(?,?)
		 ON CONFLICT(chat_id) DO UPDATE SET step=excluded.step`,
		chatID, v,
	)
	return err
}

func (s *sqliteStore) Context(ctx context.Context, chatID int64) (map[string]any, error) {
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT context FROM chat_state WHERE chat_id = ?`, chatID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !raw.Valid) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}
	var kv map[string]any
	if err := json.Unmarshal([]byte(raw.String), &kv); err != nil {
		s.log.Warn("failed to decode chat context", logx.Int64("chat_id", chatID), logx.Err(err))
		return map[string]any{}, nil
	}
	if kv == nil {
		kv = map[string]any{}
	}
	return kv, nil
}

func (s *sqliteStore) SaveContext(ctx context.Context, chatID int64, kv map[string]any) error {
	raw, err := json.Marshal(kv)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO chat_state(chat_id, context) VALUES(?,?)
		 ON CONFLICT(chat_id) DO UPDATE SET context=excluded.context`,
		chatID, string(raw),
	)
	return err
}

func (s *sqliteStore) ClearContext(ctx context.Context, chatID int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE chat_state SET context=NULL WHERE chat_id = ?`, chatID)
	return err
}

// ---- admin panel ----

func (s *sqliteStore) PanelMessage(ctx context.Context, chatID int64) (int, bool, error) {
	var id sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT panel_message_id FROM chat_state WHERE chat_id = ?`, chatID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if !id.Valid {
		return 0, false, nil
	}
	return int(id.Int64), true, nil
}

func (s *sqliteStore) SetPanelMessage(ctx context.Context, chatID int64, messageID int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_state(chat_id, panel_message_id) VALUES(?,?)
		 ON CONFLICT(chat_id) DO UPDATE SET panel_message_id=excluded.panel_message_id`,
		chatID, messageID,
	)
	return err
}
