// Package backend selects and constructs the document-store backend
// from configuration.
package backend

import (
	"context"

	"kyat/internal/store"
)

// CleanupFunc releases backend resources at shutdown.
type CleanupFunc func() error

// Refresher re-delivers snapshots for a collection. Backends that hear
// about remote commits through the change relay expose it; others
// leave it nil.
type Refresher interface {
	Refresh(ctx context.Context, coll string)
}

// Result contains the constructed store and optional extras.
type Result struct {
	Store     store.Store
	Refresher Refresher
	Cleanup   CleanupFunc
}

// Type names a store backend.
type Type string

const (
	MemoryBackend Type = "memory"
	SQLiteBackend Type = "sqlite"
	MongoBackend  Type = "mongo"
)

func (t Type) String() string { return string(t) }

func (t Type) IsValid() bool {
	switch t {
	case MemoryBackend, SQLiteBackend, MongoBackend:
		return true
	default:
		return false
	}
}
