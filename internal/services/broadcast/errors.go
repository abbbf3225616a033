package broadcast

import (
	"errors"
	"fmt"
)

// ErrJobNotFound reports an operation on a stale or deleted job id.
var ErrJobNotFound = errors.New("broadcast: job not found")

// StorageError wraps a persistence failure during an engine operation.
// The operation was aborted with no partial state committed; retrying the
// whole trigger later is safe.
type StorageError struct {
	Op    string // "create", "read", "write", "delete", "list"
	JobID string
	Err   error
}

func (e *StorageError) Error() string {
	if e.JobID == "" {
		return fmt.Sprintf("broadcast: storage %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("broadcast: storage %s failed for job %s: %v", e.Op, e.JobID, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op, jobID string, err error) error {
	return &StorageError{Op: op, JobID: jobID, Err: err}
}
