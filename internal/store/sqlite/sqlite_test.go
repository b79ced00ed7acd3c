package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"kyat/internal/log"
	"kyat/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "kyat.db"), log.Discard())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, "users/u1/expenses", store.Fields{
		"amount": int64(1500),
		"note":   "dinner",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == "" {
		t.Fatal("expected a server-assigned id")
	}

	doc, err := s.Read(ctx, "users/u1/expenses/"+id)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if doc.ID != id {
		t.Fatalf("expected id %q, got %q", id, doc.ID)
	}
	if got := doc.Fields.Int64("amount"); got != 1500 {
		t.Fatalf("expected amount 1500, got %d", got)
	}
	if doc.CreatedAt.IsZero() || doc.UpdatedAt.IsZero() {
		t.Fatal("expected server timestamps")
	}
}

func TestReadAbsent(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Read(context.Background(), "users/u1/expenses/missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetMergePreservesFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	path := "users/u1/settings/income"

	if err := s.Set(ctx, path, store.Fields{"amount": int64(5000), "currency": "MMK"}, false); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, path, store.Fields{"amount": int64(7000)}, true); err != nil {
		t.Fatalf("merge set: %v", err)
	}

	doc, err := s.Read(ctx, path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := doc.Fields.Int64("amount"); got != 7000 {
		t.Fatalf("expected amount 7000, got %d", got)
	}
	if got := doc.Fields.String("currency"); got != "MMK" {
		t.Fatalf("merge dropped field, currency=%q", got)
	}
}

func TestUpdateAbsentFails(t *testing.T) {
	s := newTestStore(t)
	err := s.Update(context.Background(), "users/u1/settings/income", store.Fields{"amount": int64(1)})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteAbsentIsNoError(t *testing.T) {
	s := newTestStore(t)
	if err := s.Delete(context.Background(), "users/u1/expenses/missing"); err != nil {
		t.Fatalf("delete absent: %v", err)
	}
}

func TestListInsertionOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for _, note := range []string{"first", "second", "third"} {
		id, err := s.Create(ctx, "users/u1/expenses", store.Fields{"note": note})
		if err != nil {
			t.Fatalf("create %s: %v", note, err)
		}
		ids = append(ids, id)
	}

	docs, err := s.List(ctx, "users/u1/expenses")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(docs))
	}
	for i, doc := range docs {
		if doc.ID != ids[i] {
			t.Fatalf("position %d: expected %q, got %q", i, ids[i], doc.ID)
		}
	}
}

func TestSubscribeDeliversCommits(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var snapshots [][]store.Document
	unsub := s.Subscribe("users/u1/expenses", func(docs []store.Document) {
		snapshots = append(snapshots, docs)
	}, nil)
	defer unsub()

	if len(snapshots) != 1 || len(snapshots[0]) != 0 {
		t.Fatalf("expected an immediate empty snapshot, got %v", snapshots)
	}

	id, err := s.Create(ctx, "users/u1/expenses", store.Fields{"amount": int64(100)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(snapshots) != 2 || len(snapshots[1]) != 1 {
		t.Fatalf("expected snapshot after create, got %d snapshots", len(snapshots))
	}

	if err := s.Delete(ctx, "users/u1/expenses/"+id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(snapshots) != 3 || len(snapshots[2]) != 0 {
		t.Fatalf("expected empty snapshot after delete, got %d snapshots", len(snapshots))
	}

	unsub()
	unsub() // idempotent

	if _, err := s.Create(ctx, "users/u1/expenses", store.Fields{"amount": int64(1)}); err != nil {
		t.Fatalf("create after unsubscribe: %v", err)
	}
	if len(snapshots) != 3 {
		t.Fatal("unsubscribed callback still invoked")
	}
}

func TestSubscribeNeverRegresses(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Commits racing the subscription must not leave a stale initial
	// snapshot delivered after a fresher one. Counts only grow here, so
	// any shrinking snapshot is an ordering violation.
	for i := 0; i < 10; i++ {
		done := make(chan struct{})
		go func() {
			defer close(done)
			for j := 0; j < 3; j++ {
				if _, err := s.Create(ctx, "users/u1/expenses", store.Fields{"amount": int64(j)}); err != nil {
					t.Errorf("create: %v", err)
					return
				}
			}
		}()

		var mu sync.Mutex
		maxSeen := -1
		regressed := false
		unsub := s.Subscribe("users/u1/expenses", func(docs []store.Document) {
			mu.Lock()
			if len(docs) < maxSeen {
				regressed = true
			}
			if len(docs) > maxSeen {
				maxSeen = len(docs)
			}
			mu.Unlock()
		}, nil)

		<-done
		unsub()

		mu.Lock()
		bad := regressed
		mu.Unlock()
		if bad {
			t.Fatal("subscriber observed a snapshot older than one already delivered")
		}
	}
}

func TestRefreshConvergesSecondStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "kyat.db")
	writer, err := New(dbPath, log.Discard())
	if err != nil {
		t.Fatalf("open writer store: %v", err)
	}
	defer writer.Close()
	reader, err := New(dbPath, log.Discard())
	if err != nil {
		t.Fatalf("open reader store: %v", err)
	}
	defer reader.Close()
	ctx := context.Background()

	var snapshots [][]store.Document
	unsub := reader.Subscribe("users/u1/expenses", func(docs []store.Document) {
		snapshots = append(snapshots, docs)
	}, nil)
	defer unsub()

	// A commit through the other store is invisible until a relayed
	// change event triggers a refresh.
	if _, err := writer.Create(ctx, "users/u1/expenses", store.Fields{"amount": int64(900)}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(snapshots) != 1 {
		t.Fatalf("expected only the initial snapshot before refresh, got %d", len(snapshots))
	}

	reader.Refresh(ctx, "users/u1/expenses")
	if len(snapshots) != 2 || len(snapshots[1]) != 1 {
		t.Fatalf("expected the refreshed snapshot to carry the remote commit, got %v", snapshots)
	}
	if got := snapshots[1][0].Fields.Int64("amount"); got != 900 {
		t.Fatalf("expected amount 900, got %d", got)
	}
}

func TestRefreshRedelivers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, "users/u1/expenses", store.Fields{"amount": int64(100)}); err != nil {
		t.Fatalf("create: %v", err)
	}

	var calls int
	unsub := s.Subscribe("users/u1/expenses", func(docs []store.Document) { calls++ }, nil)
	defer unsub()

	s.Refresh(ctx, "users/u1/expenses")
	if calls != 2 {
		t.Fatalf("expected initial plus refreshed snapshot, got %d calls", calls)
	}

	s.Refresh(ctx, "users/u2/expenses")
	if calls != 2 {
		t.Fatal("refresh of an unrelated collection must not deliver")
	}
}

type recordingFanout struct {
	colls []string
	ops   []string
}

func (f *recordingFanout) PublishChange(_ context.Context, coll, op string) error {
	f.colls = append(f.colls, coll)
	f.ops = append(f.ops, op)
	return nil
}

func TestFanoutSeesCommits(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	fanout := &recordingFanout{}
	s.SetFanout(fanout)

	id, err := s.Create(ctx, "users/u1/expenses", store.Fields{"amount": int64(100)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Delete(ctx, "users/u1/expenses/"+id); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if len(fanout.colls) != 2 || fanout.colls[0] != "users/u1/expenses" {
		t.Fatalf("unexpected fanout collections: %v", fanout.colls)
	}
	if fanout.ops[0] != "create" || fanout.ops[1] != "delete" {
		t.Fatalf("unexpected fanout ops: %v", fanout.ops)
	}
}
