// Package storage persists everything the bot must not lose across restarts:
//
//   - Broadcast job documents (create / read / overwrite / delete / list)
//   - The recipient directory and verification flags
//   - Per-chat conversation state (step token + context blob)
//   - Per-chat admin panel message ids
//
// Drivers: "file" (flat files, atomic per-job documents) and "sqlite"
// (optional build tag). The store is a passive persistence layer; business
// rules live in the services that own the records.
package storage
