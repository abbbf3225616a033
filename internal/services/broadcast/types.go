package broadcast

import (
	"context"
	"sync"
	"time"

	"hookbot/internal/storage"
	"hookbot/internal/transport"
	logx "hookbot/pkg/logx"
)

type Config struct {
	// BatchSize is the number of targets attempted per ProcessBatch call
	// when the caller does not pass an explicit size.
	BatchSize int
	// SendTimeout bounds a single delivery attempt so a stalled remote
	// endpoint cannot wedge a sweep.
	SendTimeout time.Duration
}

const (
	defaultBatchSize   = 25
	defaultSendTimeout = 25 * time.Second
)

// Summary is the progress report returned by ProcessBatch. Field names are
// the stable shape surfaced to presentation layers.
type Summary struct {
	JobID     string `json:"jobId"`
	Status    string `json:"status"` // "pending" | "done"
	Processed int    `json:"processed"`
	Success   int    `json:"success"`
	Failed    int    `json:"failed"`
	Remaining int    `json:"remaining"`
}

// JobStore is the slice of the storage API the engine needs.
type JobStore interface {
	CreateJob(ctx context.Context, job storage.JobRecord) error
	ReadJob(ctx context.Context, id string) (storage.JobRecord, error)
	WriteJob(ctx context.Context, job storage.JobRecord) error
	DeleteJob(ctx context.Context, id string) error
	ListJobIDs(ctx context.Context) ([]string, error)
}

// Directory supplies the target snapshot for jobs enqueued without an
// explicit target list.
type Directory interface {
	ListRecipients(ctx context.Context) ([]int64, error)
}

type Service struct {
	mu  sync.Mutex
	cfg Config

	store   JobStore
	dir     Directory
	deliver transport.Deliverer
	log     logx.Logger

	// jobLocks serializes ProcessBatch per job id. Without it two
	// overlapping calls would read the same cursor and double-deliver.
	jobLocks keyedMutex
}

// keyedMutex hands out one mutex per key for the key's lifetime.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = map[string]*lockEntry{}
	}
	e := k.locks[key]
	if e == nil {
		e = &lockEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()
	e.mu.Lock()
}

func (k *keyedMutex) unlock(key string) {
	k.mu.Lock()
	e := k.locks[key]
	if e != nil {
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
	}
	k.mu.Unlock()
	if e != nil {
		e.mu.Unlock()
	}
}
