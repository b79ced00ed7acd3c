// Package sqlite persists the document store in a single SQLite file.
// Documents keep their schemaless shape as a JSON payload; change
// notification works like the memory backend, with an optional fanout
// hook so other processes can hear about commits.
package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"kyat/internal/log"
	"kyat/internal/store"

	_ "modernc.org/sqlite"
)

// Fanout receives a change event after every committed write. Publish
// failures are logged and swallowed; local subscribers are already
// notified by then.
type Fanout interface {
	PublishChange(ctx context.Context, coll, op string) error
}

type subscriber struct {
	id      int64
	target  string
	onData  func([]store.Document)
	onError func(error)
}

// Store implements the store port over modernc.org/sqlite. Subscription
// callbacks run synchronously in commit order and must not write back
// into the store from the delivering goroutine.
type Store struct {
	db     *sql.DB
	logger *log.Logger
	fanout Fanout

	mu      sync.Mutex
	subs    []*subscriber
	subSeq  int64
	deliver sync.Mutex
}

// New opens (creating if needed) the database at dbPath and runs the
// embedded migrations.
func New(dbPath string, logger *log.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection avoids SQLITE_BUSY between concurrent writes and
	// snapshot reads.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, logger: logger.WithComponent(log.ComponentStore)}, nil
}

// SetFanout installs the cross-process change publisher. Call before
// serving traffic.
func (s *Store) SetFanout(f Fanout) { s.fanout = f }

func (s *Store) Create(ctx context.Context, coll string, fields store.Fields) (string, error) {
	id := newID()
	path := coll + "/" + id
	now := time.Now().UTC()

	payload, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode fields: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (path, coll, doc_id, fields, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		path, coll, id, string(payload), stamp(now), stamp(now))
	if err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}

	s.notify(ctx, path, "create")
	return id, nil
}

func (s *Store) Set(ctx context.Context, path string, fields store.Fields, merge bool) error {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRowContext(ctx, `SELECT fields FROM documents WHERE path = ?`, path).Scan(&existing)
	switch {
	case err == sql.ErrNoRows:
		payload, err := json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("encode fields: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO documents (path, coll, doc_id, fields, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			path, store.Parent(path), docID(path), string(payload), stamp(now), stamp(now))
		if err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read document: %w", err)
	default:
		next := fields
		if merge {
			merged, err := decodeFields(existing)
			if err != nil {
				return err
			}
			for k, v := range fields {
				merged[k] = v
			}
			next = merged
		}
		payload, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode fields: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE documents SET fields = ?, updated_at = ? WHERE path = ?`,
			string(payload), stamp(now), path)
		if err != nil {
			return fmt.Errorf("update document: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.notify(ctx, path, "set")
	return nil
}

func (s *Store) Update(ctx context.Context, path string, fields store.Fields) error {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRowContext(ctx, `SELECT fields FROM documents WHERE path = ?`, path).Scan(&existing)
	if err == sql.ErrNoRows {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	merged, err := decodeFields(existing)
	if err != nil {
		return err
	}
	for k, v := range fields {
		merged[k] = v
	}
	payload, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE documents SET fields = ?, updated_at = ? WHERE path = ?`,
		string(payload), stamp(now), path)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.notify(ctx, path, "update")
	return nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}

	s.notify(ctx, path, "delete")
	return nil
}

func (s *Store) Read(ctx context.Context, path string) (store.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT doc_id, path, fields, created_at, updated_at FROM documents WHERE path = ?`, path)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return store.Document{}, store.ErrNotFound
	}
	if err != nil {
		return store.Document{}, fmt.Errorf("read document: %w", err)
	}
	return doc, nil
}

func (s *Store) List(ctx context.Context, coll string) ([]store.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_id, path, fields, created_at, updated_at FROM documents
		 WHERE coll = ? ORDER BY rowid`, coll)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []store.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return out, nil
}

func (s *Store) Subscribe(target string, onData func([]store.Document), onError func(error)) store.Unsubscribe {
	// Registration, the initial snapshot and its delivery all happen
	// under the delivery lock: a commit landing concurrently either
	// precedes the snapshot or delivers after it, so a fresher snapshot
	// is never overwritten by the initial one.
	s.deliver.Lock()
	s.mu.Lock()
	s.subSeq++
	sub := &subscriber{id: s.subSeq, target: target, onData: onData, onError: onError}
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	initial, err := s.snapshot(context.Background(), target)
	if err != nil {
		if onError != nil {
			onError(err)
		}
	} else {
		onData(initial)
	}
	s.deliver.Unlock()

	id := sub.id
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, existing := range s.subs {
			if existing.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.subs = nil
	s.mu.Unlock()
	return s.db.Close()
}

// Refresh re-delivers the current snapshot to every subscriber watching
// coll or a document inside it. The change relay calls this when
// another process reports a commit.
func (s *Store) Refresh(ctx context.Context, coll string) {
	s.mu.Lock()
	var matched []*subscriber
	for _, sub := range s.subs {
		if sub.target == coll || store.Parent(sub.target) == coll {
			matched = append(matched, sub)
		}
	}
	s.mu.Unlock()

	s.dispatch(ctx, matched)
}

// notify snapshots for every local subscriber covering path, then tells
// the fanout about the commit.
func (s *Store) notify(ctx context.Context, path, op string) {
	coll := store.Parent(path)

	s.mu.Lock()
	var matched []*subscriber
	for _, sub := range s.subs {
		if sub.target == path || sub.target == coll {
			matched = append(matched, sub)
		}
	}
	s.mu.Unlock()

	s.dispatch(ctx, matched)

	if s.fanout != nil {
		if err := s.fanout.PublishChange(ctx, coll, op); err != nil {
			s.logger.WarnContext(ctx, "change fanout failed",
				log.FieldOperation, op,
				log.FieldCollection, coll,
				log.FieldError, err)
		}
	}
}

func (s *Store) dispatch(ctx context.Context, matched []*subscriber) {
	if len(matched) == 0 {
		return
	}
	s.deliver.Lock()
	defer s.deliver.Unlock()
	for _, sub := range matched {
		docs, err := s.snapshot(ctx, sub.target)
		if err != nil {
			if sub.onError != nil {
				sub.onError(err)
			}
			continue
		}
		sub.onData(docs)
	}
}

func (s *Store) snapshot(ctx context.Context, target string) ([]store.Document, error) {
	if store.IsDocPath(target) {
		doc, err := s.Read(ctx, target)
		if err == store.ErrNotFound {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []store.Document{doc}, nil
	}
	return s.List(ctx, target)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(r rowScanner) (store.Document, error) {
	var doc store.Document
	var payload, created, updated string
	if err := r.Scan(&doc.ID, &doc.Path, &payload, &created, &updated); err != nil {
		return store.Document{}, err
	}
	fields, err := decodeFields(payload)
	if err != nil {
		return store.Document{}, err
	}
	doc.Fields = fields
	doc.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	doc.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return doc, nil
}

func decodeFields(payload string) (store.Fields, error) {
	var fields store.Fields
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	return fields, nil
}

func stamp(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func docID(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

func newID() string {
	b := make([]byte, 10)
	if _, err := rand.Read(b); err != nil {
		return hex.EncodeToString([]byte(time.Now().String()))[:20]
	}
	return hex.EncodeToString(b)
}
