// Package memory implements the store port entirely in process. It is
// the default backend and the one the tracker tests run against.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"kyat/internal/store"
)

type document struct {
	doc store.Document
	seq int64
}

type subscriber struct {
	id      int64
	target  string
	onData  func([]store.Document)
	onError func(error)
}

// Store keeps documents in a path-keyed map and notifies subscribers
// synchronously in commit order. Subscription callbacks must not
// mutate the store from the delivering goroutine.
type Store struct {
	// Clock supplies server timestamps; tests may pin it before use.
	Clock func() time.Time

	mu      sync.RWMutex
	docs    map[string]*document
	subs    []*subscriber
	seq     int64
	subSeq  int64
	closed  bool
	deliver sync.Mutex
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		Clock: time.Now,
		docs:  make(map[string]*document),
	}
}

func (s *Store) Create(_ context.Context, coll string, fields store.Fields) (string, error) {
	id := newID()
	path := coll + "/" + id
	now := s.Clock()

	s.mu.Lock()
	s.seq++
	s.docs[path] = &document{
		doc: store.Document{
			ID:        id,
			Path:      path,
			Fields:    fields.Clone(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		seq: s.seq,
	}
	targets := s.snapshotsFor(path)
	s.mu.Unlock()

	s.dispatch(targets)
	return id, nil
}

func (s *Store) Set(_ context.Context, path string, fields store.Fields, merge bool) error {
	now := s.Clock()

	s.mu.Lock()
	existing, ok := s.docs[path]
	if ok {
		if merge {
			for k, v := range fields {
				existing.doc.Fields[k] = v
			}
		} else {
			existing.doc.Fields = fields.Clone()
		}
		existing.doc.UpdatedAt = now
	} else {
		s.seq++
		s.docs[path] = &document{
			doc: store.Document{
				ID:        docID(path),
				Path:      path,
				Fields:    fields.Clone(),
				CreatedAt: now,
				UpdatedAt: now,
			},
			seq: s.seq,
		}
	}
	targets := s.snapshotsFor(path)
	s.mu.Unlock()

	s.dispatch(targets)
	return nil
}

func (s *Store) Update(_ context.Context, path string, fields store.Fields) error {
	s.mu.Lock()
	existing, ok := s.docs[path]
	if !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	for k, v := range fields {
		existing.doc.Fields[k] = v
	}
	existing.doc.UpdatedAt = s.Clock()
	targets := s.snapshotsFor(path)
	s.mu.Unlock()

	s.dispatch(targets)
	return nil
}

func (s *Store) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	if _, ok := s.docs[path]; !ok {
		s.mu.Unlock()
		return nil
	}
	delete(s.docs, path)
	targets := s.snapshotsFor(path)
	s.mu.Unlock()

	s.dispatch(targets)
	return nil
}

func (s *Store) Read(_ context.Context, path string) (store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[path]
	if !ok {
		return store.Document{}, store.ErrNotFound
	}
	return copyDoc(d.doc), nil
}

func (s *Store) List(_ context.Context, coll string) ([]store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectLocked(coll), nil
}

func (s *Store) Subscribe(target string, onData func([]store.Document), onError func(error)) store.Unsubscribe {
	s.mu.Lock()
	s.subSeq++
	sub := &subscriber{id: s.subSeq, target: target, onData: onData, onError: onError}
	s.subs = append(s.subs, sub)
	initial := s.snapshotLocked(target)
	s.mu.Unlock()

	s.deliver.Lock()
	onData(initial)
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
		// Already removed; unsubscribing twice is a no-op.
	}
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subs = nil
	return nil
}

// EmitError delivers err to every subscriber of target. Tests use it
// to exercise the subscription error path.
func (s *Store) EmitError(target string, err error) {
	s.mu.RLock()
	var fns []func(error)
	for _, sub := range s.subs {
		if sub.target == target && sub.onError != nil {
			fns = append(fns, sub.onError)
		}
	}
	s.mu.RUnlock()

	s.deliver.Lock()
	defer s.deliver.Unlock()
	for _, fn := range fns {
		fn(err)
	}
}

type delivery struct {
	onData func([]store.Document)
	docs   []store.Document
}

// snapshotsFor collects pending deliveries for every subscriber whose
// target covers path. Caller holds s.mu.
func (s *Store) snapshotsFor(path string) []delivery {
	coll := store.Parent(path)
	var out []delivery
	for _, sub := range s.subs {
		if sub.target == path || sub.target == coll {
			out = append(out, delivery{onData: sub.onData, docs: s.snapshotLocked(sub.target)})
		}
	}
	return out
}

func (s *Store) snapshotLocked(target string) []store.Document {
	if store.IsDocPath(target) {
		if d, ok := s.docs[target]; ok {
			return []store.Document{copyDoc(d.doc)}
		}
		return nil
	}
	return s.collectLocked(target)
}

func (s *Store) collectLocked(coll string) []store.Document {
	prefix := coll + "/"
	var found []*document
	for path, d := range s.docs {
		if strings.HasPrefix(path, prefix) && !strings.Contains(path[len(prefix):], "/") {
			found = append(found, d)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].seq < found[j].seq })
	out := make([]store.Document, len(found))
	for i, d := range found {
		out[i] = copyDoc(d.doc)
	}
	return out
}

// dispatch runs deliveries under the delivery lock so notifications
// for one collection arrive in commit order.
func (s *Store) dispatch(targets []delivery) {
	if len(targets) == 0 {
		return
	}
	s.deliver.Lock()
	defer s.deliver.Unlock()
	for _, d := range targets {
		d.onData(d.docs)
	}
}

func copyDoc(d store.Document) store.Document {
	d.Fields = d.Fields.Clone()
	return d
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
