package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned by ReadJob for unknown job ids.
var ErrNotFound = errors.New("not found")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free flat-file backend (default)
//   - "sqlite": SQLite database file (optional build tag)
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

type JobKind string

const (
	JobText    JobKind = "text"
	JobForward JobKind = "forward"
)

type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobDone    JobStatus = "done"
)

// JobPayload carries the kind-specific part of a job document.
// Text jobs use Text; forward jobs use FromChatID + MessageID.
type JobPayload struct {
	Text       string `json:"text,omitempty"`
	FromChatID int64  `json:"from_chat_id,omitempty"`
	MessageID  int    `json:"message_id,omitempty"`
}

// JobRecord is the persisted broadcast job document.
// Keep it compact and schema-stable; the JSON shape is the on-disk format.
//
// Invariants maintained by the broadcast engine:
//   - Targets never shrinks or reorders after creation
//   - Cursor only increases; SuccessCount+FailureCount == Cursor
//   - Status "done" is terminal; done jobs are deleted, not retained
type JobRecord struct {
	ID           string     `json:"id"`
	Kind         JobKind    `json:"kind"`
	Payload      JobPayload `json:"payload"`
	Targets      []int64    `json:"targets"`
	Cursor       int        `json:"cursor"`
	SuccessCount int        `json:"successCount"`
	FailureCount int        `json:"failureCount"`
	Status       JobStatus  `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
}
