// Package broadcast implements the durable fan-out queue.
//
// A broadcast is a Job: a fixed snapshot of recipient ids plus a kind-specific
// payload (text or a message to forward), persisted as one document. Work is
// pull-based and chunked: each ProcessBatch call delivers at most one batch of
// the job's remaining targets and persists the advanced cursor, so a job of
// any size survives restarts and drains across many short trigger windows
// without a long-running worker.
//
// Delivery semantics
//
// At-least-once per batch, at most one attempt per target per job. A failed
// delivery is counted and never retried within the job; re-sending requires a
// new job. When the cursor reaches the end, the job emits a terminal log event
// and its document is deleted - the returned Summary is the only record of the
// outcome.
package broadcast
