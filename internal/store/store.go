// Package store defines the document-store port the tracker core is
// written against: authenticated per-user document collections with
// atomic writes and subscription-based change notification.
//
// Paths are slash-separated. A path with an even number of segments
// names a document ("users/u1/expenses/e1", "users/u1/settings/income"
// counts the user segment pair), an odd number names a collection
// ("users/u1/expenses"). Backends live in the subpackages memory,
// sqlite and mongo.
package store

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned by Read when no document exists at the path.
var ErrNotFound = errors.New("document not found")

// Fields is the schemaless payload of a document. Values survive a
// JSON round trip, so readers must coerce through the typed accessors
// rather than type-assert directly.
type Fields map[string]any

// Document is one stored record. CreatedAt is server-assigned on
// create and drives ledger ordering.
type Document struct {
	ID        string
	Path      string
	Fields    Fields
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Unsubscribe tears down a subscription. Safe to call multiple times.
type Unsubscribe func()

// Store is the remote store adapter contract.
//
// Subscribe delivers an initial snapshot immediately, then a fresh
// snapshot after every commit touching the subscribed path, in commit
// order per collection. There is no cross-collection ordering
// guarantee. The target may be a collection or a single document; a
// document subscription delivers a zero-or-one element snapshot.
type Store interface {
	// Create adds a document to a collection with a server-assigned
	// id and creation timestamp.
	Create(ctx context.Context, coll string, fields Fields) (id string, err error)

	// Set writes a document at an explicit path, creating it if
	// absent. With merge, existing fields not present in fields are
	// kept.
	Set(ctx context.Context, path string, fields Fields, merge bool) error

	// Update applies a partial update to an existing document.
	Update(ctx context.Context, path string, fields Fields) error

	// Delete removes the document. Deleting an absent document is not
	// an error.
	Delete(ctx context.Context, path string) error

	// Read fetches a single document, or ErrNotFound.
	Read(ctx context.Context, path string) (Document, error)

	// List fetches all documents in a collection in insertion order.
	List(ctx context.Context, coll string) ([]Document, error)

	Subscribe(target string, onData func([]Document), onError func(error)) Unsubscribe

	Close() error
}

// IsDocPath reports whether a path names a document rather than a
// collection.
func IsDocPath(path string) bool {
	return strings.Count(path, "/")%2 == 1
}

// Parent returns the collection path containing a document path.
func Parent(path string) string {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return ""
	}
	return path[:i]
}

// Int64 coerces a numeric field. JSON decoding turns int64 into
// float64, so both are accepted.
func (f Fields) Int64(key string) int64 {
	switch v := f[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case float32:
		return int64(v)
	default:
		return 0
	}
}

// String coerces a string field; missing or non-string yields "".
func (f Fields) String(key string) string {
	if v, ok := f[key].(string); ok {
		return v
	}
	return ""
}

// Time coerces a timestamp field stored either natively or as RFC 3339.
func (f Fields) Time(key string) time.Time {
	switch v := f[key].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Clone deep-copies one level of fields. Nested maps are shared;
// documents in this system are flat.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
