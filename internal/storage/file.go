package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	logx "hookbot/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Layout under the configured root:
//
//	queue/<job id>.json   one document per broadcast job
//	users.txt             recipient directory (line-delimited ids)
//	verified.txt          verified subset (line-delimited ids)
//	steps/step_<chat>.txt current wizard step per chat
//	context/ctx_<chat>.json wizard context per chat
//	panel/panel_<chat>.txt admin panel message id per chat
//
// Job documents are written to a temp file and renamed into place, so a
// reader never observes a partially-written document.
type fileStore struct {
	log logx.Logger

	mu   sync.Mutex
	root string
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	root := strings.TrimSpace(cfg.Path)
	if root == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	for _, dir := range []string{root, filepath.Join(root, "queue"), filepath.Join(root, "steps"), filepath.Join(root, "context"), filepath.Join(root, "panel")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &fileStore{log: log, root: root}, nil
}

func (s *fileStore) Close() error { return nil }

// ---- jobs ----

func (s *fileStore) jobPath(id string) string {
	return filepath.Join(s.root, "queue", id+".json")
}

func (s *fileStore) CreateJob(ctx context.Context, job JobRecord) error {
	return s.WriteJob(ctx, job)
}

func (s *fileStore) WriteJob(ctx context.Context, job JobRecord) error {
	_ = ctx
	if strings.TrimSpace(job.ID) == "" {
		return errors.New("job id is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeFileAtomic(s.jobPath(job.ID), func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(job)
	})
}

func (s *fileStore) ReadJob(ctx context.Context, id string) (JobRecord, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := os.ReadFile(s.jobPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return JobRecord{}, ErrNotFound
		}
		return JobRecord{}, err
	}
	var job JobRecord
	if err := json.Unmarshal(b, &job); err != nil {
		return JobRecord{}, fmt.Errorf("decode job %s: %w", id, err)
	}
	return job, nil
}

func (s *fileStore) DeleteJob(ctx context.Context, id string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.jobPath(id))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *fileStore) ListJobIDs(ctx context.Context) ([]string, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	matches, err := filepath.Glob(filepath.Join(s.root, "queue", "*.json"))
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, strings.TrimSuffix(filepath.Base(m), ".json"))
	}
	return ids, nil
}

// ---- recipient directory ----

func (s *fileStore) usersPath() string    { return filepath.Join(s.root, "users.txt") }
func (s *fileStore) verifiedPath() string { return filepath.Join(s.root, "verified.txt") }

func (s *fileStore) AddRecipient(ctx context.Context, userID int64) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendIDOnce(s.usersPath(), userID)
}

func (s *fileStore) ListRecipients(ctx context.Context) ([]int64, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return readIDList(s.usersPath())
}

func (s *fileStore) CountRecipients(ctx context.Context) (int, error) {
	ids, err := s.ListRecipients(ctx)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (s *fileStore) Verify(ctx context.Context, userID int64) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendIDOnce(s.verifiedPath(), userID)
}

func (s *fileStore) IsVerified(ctx context.Context, userID int64) (bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	ids, err := readIDList(s.verifiedPath())
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *fileStore) CountVerified(ctx context.Context) (int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	ids, err := readIDList(s.verifiedPath())
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// ---- conversation state ----

func (s *fileStore) stepPath(chatID int64) string {
	return filepath.Join(s.root, "steps", fmt.Sprintf("step_%d.txt", chatID))
}

func (s *fileStore) ctxPath(chatID int64) string {
	return filepath.Join(s.root, "context", fmt.Sprintf("ctx_%d.json", chatID))
}

func (s *fileStore) Step(ctx context.Context, chatID int64) (string, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := os.ReadFile(s.stepPath(chatID))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func (s *fileStore) SetStep(ctx context.Context, chatID int64, step string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.stepPath(chatID)
	if strings.TrimSpace(step) == "" {
		err := os.Remove(path)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	return writeFileAtomic(path, func(f *os.File) error {
		_, err := f.WriteString(step)
		return err
	})
}

func (s *fileStore) Context(ctx context.Context, chatID int64) (map[string]any, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := os.ReadFile(s.ctxPath(chatID))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	var kv map[string]any
	if err := json.Unmarshal(b, &kv); err != nil {
		s.log.Warn("failed to decode chat context", logx.Int64("chat_id", chatID), logx.Err(err))
		return map[string]any{}, nil
	}
	if kv == nil {
		kv = map[string]any{}
	}
	return kv, nil
}

func (s *fileStore) SaveContext(ctx context.Context, chatID int64, kv map[string]any) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeFileAtomic(s.ctxPath(chatID), func(f *os.File) error {
		return json.NewEncoder(f).Encode(kv)
	})
}

func (s *fileStore) ClearContext(ctx context.Context, chatID int64) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.ctxPath(chatID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ---- admin panel ----

func (s *fileStore) panelPath(chatID int64) string {
	return filepath.Join(s.root, "panel", fmt.Sprintf("panel_%d.txt", chatID))
}

func (s *fileStore) PanelMessage(ctx context.Context, chatID int64) (int, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := os.ReadFile(s.panelPath(chatID))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	id, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, false, nil
	}
	return id, true, nil
}

func (s *fileStore) SetPanelMessage(ctx context.Context, chatID int64, messageID int) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeFileAtomic(s.panelPath(chatID), func(f *os.File) error {
		_, err := f.WriteString(strconv.Itoa(messageID))
		return err
	})
}

// ---- helpers ----

// writeFileAtomic writes via a temp file in the same directory and renames it
// into place, so readers see either the old or the new content.
func writeFileAtomic(path string, write func(f *os.File) error) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func readIDList(path string) ([]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var ids []int64
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		id, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, sc.Err()
}

func appendIDOnce(path string, id int64) error {
	existing, err := readIDList(path)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if e == id {
			return nil
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(strconv.FormatInt(id, 10) + "\n"); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
