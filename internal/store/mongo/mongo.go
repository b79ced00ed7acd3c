// Package mongo backs the document store with MongoDB. Every logical
// document lives in one collection keyed by its path, so collection
// snapshots are a single indexed query. When the deployment supports
// change streams the store also hears about commits made by other
// processes and re-delivers snapshots to local subscribers.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"kyat/internal/log"
	"kyat/internal/store"
)

const (
	collDocuments = "documents"
	collCounters  = "counters"
)

type subscriber struct {
	id      int64
	target  string
	onData  func([]store.Document)
	onError func(error)
}

// Store implements the store port over a MongoDB database. Local
// subscribers are notified synchronously after each commit; the
// optional change stream covers commits from other processes.
type Store struct {
	client   *mongo.Client
	docs     *mongo.Collection
	counters *mongo.Collection
	logger   *log.Logger

	mu      sync.Mutex
	subs    []*subscriber
	subSeq  int64
	deliver sync.Mutex

	watchCancel context.CancelFunc
	watchDone   chan struct{}
}

type record struct {
	Path      string    `bson:"_id"`
	Coll      string    `bson:"coll"`
	DocID     string    `bson:"doc_id"`
	Fields    bson.M    `bson:"fields"`
	Seq       int64     `bson:"seq"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// New connects to MongoDB and prepares the documents collection.
func New(ctx context.Context, uri, dbName string, logger *log.Logger) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	db := client.Database(dbName)
	docs := db.Collection(collDocuments)

	indexModel := mongo.IndexModel{Keys: bson.D{{Key: "coll", Value: 1}, {Key: "seq", Value: 1}}}
	if _, err := docs.Indexes().CreateOne(ctx, indexModel); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("create collection index: %w", err)
	}

	return &Store{
		client:   client,
		docs:     docs,
		counters: db.Collection(collCounters),
		logger:   logger.WithComponent(log.ComponentStore),
	}, nil
}

// StartWatch opens a change stream on the documents collection and
// refreshes local subscribers whenever any process commits. Requires a
// replica set; on failure the store logs and continues with local-only
// notification.
func (s *Store) StartWatch(ctx context.Context) {
	stream, err := s.docs.Watch(ctx, mongo.Pipeline{},
		options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		s.logger.WarnContext(ctx, "change stream unavailable, local notification only",
			log.FieldError, err)
		return
	}

	watchCtx, cancel := context.WithCancel(ctx)
	s.watchCancel = cancel
	s.watchDone = make(chan struct{})

	go func() {
		defer close(s.watchDone)
		defer stream.Close(context.Background())
		for stream.Next(watchCtx) {
			var event struct {
				DocumentKey struct {
					Path string `bson:"_id"`
				} `bson:"documentKey"`
			}
			if err := stream.Decode(&event); err != nil {
				s.logger.WarnContext(watchCtx, "decode change event", log.FieldError, err)
				continue
			}
			s.refresh(watchCtx, event.DocumentKey.Path)
		}
		if err := stream.Err(); err != nil && watchCtx.Err() == nil {
			s.logger.ErrorContext(watchCtx, "change stream closed", log.FieldError, err)
			s.broadcastError(fmt.Errorf("change stream: %w", err))
		}
	}()
}

func (s *Store) Create(ctx context.Context, coll string, fields store.Fields) (string, error) {
	id := primitive.NewObjectID().Hex()
	path := coll + "/" + id
	now := time.Now().UTC()

	seq, err := s.nextSeq(ctx, coll)
	if err != nil {
		return "", err
	}

	_, err = s.docs.InsertOne(ctx, record{
		Path:      path,
		Coll:      coll,
		DocID:     id,
		Fields:    toBSON(fields),
		Seq:       seq,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}

	s.refresh(ctx, path)
	return id, nil
}

func (s *Store) Set(ctx context.Context, path string, fields store.Fields, merge bool) error {
	now := time.Now().UTC()

	if merge {
		set := bson.M{"updated_at": now}
		for k, v := range fields {
			set["fields."+k] = v
		}
		res, err := s.docs.UpdateOne(ctx, bson.M{"_id": path}, bson.M{"$set": set})
		if err != nil {
			return fmt.Errorf("merge document: %w", err)
		}
		if res.MatchedCount == 0 {
			if err := s.insertAt(ctx, path, fields, now); err != nil {
				return err
			}
		}
	} else {
		res, err := s.docs.UpdateOne(ctx, bson.M{"_id": path},
			bson.M{"$set": bson.M{"fields": toBSON(fields), "updated_at": now}})
		if err != nil {
			return fmt.Errorf("replace document: %w", err)
		}
		if res.MatchedCount == 0 {
			if err := s.insertAt(ctx, path, fields, now); err != nil {
				return err
			}
		}
	}

	s.refresh(ctx, path)
	return nil
}

func (s *Store) Update(ctx context.Context, path string, fields store.Fields) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range fields {
		set["fields."+k] = v
	}
	res, err := s.docs.UpdateOne(ctx, bson.M{"_id": path}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}

	s.refresh(ctx, path)
	return nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	res, err := s.docs.DeleteOne(ctx, bson.M{"_id": path})
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if res.DeletedCount == 0 {
		return nil
	}

	s.refresh(ctx, path)
	return nil
}

func (s *Store) Read(ctx context.Context, path string) (store.Document, error) {
	var rec record
	err := s.docs.FindOne(ctx, bson.M{"_id": path}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.Document{}, store.ErrNotFound
	}
	if err != nil {
		return store.Document{}, fmt.Errorf("read document: %w", err)
	}
	return rec.document(), nil
}

func (s *Store) List(ctx context.Context, coll string) ([]store.Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	cursor, err := s.docs.Find(ctx, bson.M{"coll": coll}, opts)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer cursor.Close(ctx)

	var out []store.Document
	for cursor.Next(ctx) {
		var rec record
		if err := cursor.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		out = append(out, rec.document())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return out, nil
}

func (s *Store) Subscribe(target string, onData func([]store.Document), onError func(error)) store.Unsubscribe {
	// Registration, the initial snapshot and its delivery all happen
	// under the delivery lock so a concurrent commit cannot deliver a
	// fresher snapshot that the initial one then overwrites.
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
	if s.watchCancel != nil {
		s.watchCancel()
		<-s.watchDone
	}
	s.mu.Lock()
	s.subs = nil
	s.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// refresh re-queries and delivers snapshots to every subscriber whose
// target covers path.
func (s *Store) refresh(ctx context.Context, path string) {
	coll := store.Parent(path)

	s.mu.Lock()
	var matched []*subscriber
	for _, sub := range s.subs {
		if sub.target == path || sub.target == coll {
			matched = append(matched, sub)
		}
	}
	s.mu.Unlock()

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

func (s *Store) broadcastError(err error) {
	s.mu.Lock()
	var fns []func(error)
	for _, sub := range s.subs {
		if sub.onError != nil {
			fns = append(fns, sub.onError)
		}
	}
	s.mu.Unlock()

	s.deliver.Lock()
	defer s.deliver.Unlock()
	for _, fn := range fns {
		fn(err)
	}
}

func (s *Store) snapshot(ctx context.Context, target string) ([]store.Document, error) {
	if store.IsDocPath(target) {
		doc, err := s.Read(ctx, target)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []store.Document{doc}, nil
	}
	return s.List(ctx, target)
}

func (s *Store) insertAt(ctx context.Context, path string, fields store.Fields, now time.Time) error {
	coll := store.Parent(path)
	seq, err := s.nextSeq(ctx, coll)
	if err != nil {
		return err
	}
	_, err = s.docs.InsertOne(ctx, record{
		Path:      path,
		Coll:      coll,
		DocID:     docID(path),
		Fields:    toBSON(fields),
		Seq:       seq,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// nextSeq hands out a monotonic per-collection sequence number so List
// can return insertion order.
func (s *Store) nextSeq(ctx context.Context, coll string) (int64, error) {
	var counter struct {
		Value int64 `bson:"value"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": coll},
		bson.M{"$inc": bson.M{"value": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next sequence for %s: %w", coll, err)
	}
	return counter.Value, nil
}

func (r record) document() store.Document {
	return store.Document{
		ID:        r.DocID,
		Path:      r.Path,
		Fields:    fromBSON(r.Fields),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func toBSON(fields store.Fields) bson.M {
	out := make(bson.M, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// fromBSON undoes the driver's decoding quirks so the typed field
// accessors behave the same as on other backends.
func fromBSON(m bson.M) store.Fields {
	out := make(store.Fields, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case primitive.DateTime:
			out[k] = t.Time().UTC()
		case int32:
			out[k] = int64(t)
		default:
			out[k] = v
		}
	}
	return out
}

func docID(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
