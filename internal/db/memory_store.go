package db

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"clubledger-backend-go/internal/models"
)

type memorySub struct {
	sub        *Subscription
	collection string
	docID      string // set for single-document subscriptions
	query      *Query
	unregister func() bool // detaches the context hook; guarded by the store lock
}

// MemoryStore is a process-local Store. Every write pushes fresh snapshots
// to the subscriptions of the touched collection before returning.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]map[string]map[string]interface{}
	subs        map[int]*memorySub
	nextSub     int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]map[string]interface{}),
		subs:        make(map[int]*memorySub),
	}
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(collection, id)
}

func (s *MemoryStore) getLocked(collection, id string) (*Document, error) {
	data, ok := s.collections[collection][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return &Document{ID: id, Data: copyMap(data)}, nil
}

func (s *MemoryStore) Set(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(collection, id, fields)
	s.notifyLocked(collection)
	return nil
}

func (s *MemoryStore) Create(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[collection][id]; ok {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrAlreadyExists)
	}
	s.putLocked(collection, id, fields)
	s.notifyLocked(collection)
	return nil
}

func (s *MemoryStore) Add(ctx context.Context, collection string, fields map[string]interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(collection, id, fields)
	s.notifyLocked(collection)
	return id, nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.updateLocked(collection, id, fields); err != nil {
		return err
	}
	s.notifyLocked(collection)
	return nil
}

func (s *MemoryStore) Increment(ctx context.Context, collection, id, field string, delta float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.incrementLocked(collection, id, field, delta); err != nil {
		return err
	}
	s.notifyLocked(collection)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections[collection], id)
	s.notifyLocked(collection)
	return nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, q Query) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.subscribe(ctx, &memorySub{collection: q.Collection, query: &q}), nil
}

func (s *MemoryStore) SubscribeDoc(ctx context.Context, collection, id string) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.subscribe(ctx, &memorySub{collection: collection, docID: id}), nil
}

func (s *MemoryStore) subscribe(ctx context.Context, ms *memorySub) *Subscription {
	s.mu.Lock()
	key := s.nextSub
	s.nextSub++
	ms.sub = newSubscription(func() {
		s.mu.Lock()
		delete(s.subs, key)
		if ms.unregister != nil {
			ms.unregister()
		}
		s.mu.Unlock()
		ms.sub.finish(nil)
	})
	s.subs[key] = ms
	ms.sub.publish(s.snapshotLocked(ms))
	s.mu.Unlock()

	unregister := context.AfterFunc(ctx, ms.sub.Close)
	s.mu.Lock()
	ms.unregister = unregister
	s.mu.Unlock()
	return ms.sub
}

type memoryOp struct {
	collection, id string
	fields         map[string]interface{}
	field          string
	delta          float64
	increment      bool
}

type memoryTx struct {
	store *MemoryStore
	ops   []memoryOp
}

func (t *memoryTx) Get(collection, id string) (*Document, error) {
	if len(t.ops) > 0 {
		return nil, fmt.Errorf("memory transaction: read after write")
	}
	return t.store.getLocked(collection, id)
}

func (t *memoryTx) Update(collection, id string, fields map[string]interface{}) error {
	t.ops = append(t.ops, memoryOp{collection: collection, id: id, fields: fields})
	return nil
}

func (t *memoryTx) Increment(collection, id, field string, delta float64) error {
	t.ops = append(t.ops, memoryOp{collection: collection, id: id, field: field, delta: delta, increment: true})
	return nil
}

// RunTransaction holds the store lock for the duration of fn, so transactions
// are serialized. Writes are buffered and applied only if fn and every target
// document check succeed.
func (s *MemoryStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{store: s}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for _, op := range tx.ops {
		data, ok := s.collections[op.collection][op.id]
		if !ok {
			return fmt.Errorf("%s/%s: %w", op.collection, op.id, ErrNotFound)
		}
		if v := data[op.field]; op.increment && v != nil {
			if _, ok := models.ToFloat(v); !ok {
				return fmt.Errorf("%s/%s: field %q is not numeric", op.collection, op.id, op.field)
			}
		}
	}
	touched := make(map[string]bool)
	for _, op := range tx.ops {
		var err error
		if op.increment {
			err = s.incrementLocked(op.collection, op.id, op.field, op.delta)
		} else {
			err = s.updateLocked(op.collection, op.id, op.fields)
		}
		if err != nil {
			return err
		}
		touched[op.collection] = true
	}
	for c := range touched {
		s.notifyLocked(c)
	}
	return nil
}

// Close ends every open subscription.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	subs := make([]*memorySub, 0, len(s.subs))
	for _, ms := range s.subs {
		subs = append(subs, ms)
	}
	s.mu.Unlock()
	for _, ms := range subs {
		ms.sub.Close()
	}
	return nil
}

func (s *MemoryStore) putLocked(collection, id string, fields map[string]interface{}) {
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]map[string]interface{})
	}
	s.collections[collection][id] = copyMap(fields)
}

func (s *MemoryStore) updateLocked(collection, id string, fields map[string]interface{}) error {
	data, ok := s.collections[collection][id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	for k, v := range fields {
		data[k] = copyValue(v)
	}
	return nil
}

func (s *MemoryStore) incrementLocked(collection, id, field string, delta float64) error {
	data, ok := s.collections[collection][id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	current := 0.0
	if v, ok := data[field]; ok && v != nil {
		n, ok := models.ToFloat(v)
		if !ok {
			return fmt.Errorf("%s/%s: field %q is not numeric", collection, id, field)
		}
		current = n
	}
	data[field] = current + delta
	return nil
}

func (s *MemoryStore) notifyLocked(collection string) {
	for _, ms := range s.subs {
		if ms.collection == collection {
			ms.sub.publish(s.snapshotLocked(ms))
		}
	}
}

func (s *MemoryStore) snapshotLocked(ms *memorySub) []Document {
	docs := make([]Document, 0)
	if ms.docID != "" {
		if data, ok := s.collections[ms.collection][ms.docID]; ok {
			docs = append(docs, Document{ID: ms.docID, Data: copyMap(data)})
		}
		return docs
	}
	for id, data := range s.collections[ms.collection] {
		if ms.query.Matches(data) {
			docs = append(docs, Document{ID: id, Data: copyMap(data)})
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		return copyMap(x)
	case time.Time:
		return x
	}
	return v
}
