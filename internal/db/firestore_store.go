package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore implements Store on Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore wraps an initialized Firestore client.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	if client == nil {
		log.Fatal("Firestore client is not initialized for FirestoreStore.")
	}
	return &FirestoreStore{client: client}
}

// mapError translates Firestore gRPC status codes into the package sentinels.
func mapError(collection, id string, err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	case codes.AlreadyExists:
		return fmt.Errorf("%s/%s: %w", collection, id, ErrAlreadyExists)
	}
	return fmt.Errorf("%s/%s: %w", collection, id, err)
}

func toUpdates(fields map[string]interface{}) []firestore.Update {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	updates := make([]firestore.Update, 0, len(keys))
	for _, k := range keys {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{k}, Value: fields[k]})
	}
	return updates
}

func (s *FirestoreStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return nil, mapError(collection, id, err)
	}
	return &Document{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

func (s *FirestoreStore) Set(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	if _, err := s.client.Collection(collection).Doc(id).Set(ctx, fields); err != nil {
		return mapError(collection, id, err)
	}
	return nil
}

func (s *FirestoreStore) Create(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	if _, err := s.client.Collection(collection).Doc(id).Create(ctx, fields); err != nil {
		return mapError(collection, id, err)
	}
	return nil
}

func (s *FirestoreStore) Add(ctx context.Context, collection string, fields map[string]interface{}) (string, error) {
	docRef, _, err := s.client.Collection(collection).Add(ctx, fields)
	if err != nil {
		return "", fmt.Errorf("failed to add document to %s: %w", collection, err)
	}
	return docRef.ID, nil
}

func (s *FirestoreStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	if _, err := s.client.Collection(collection).Doc(id).Update(ctx, toUpdates(fields)); err != nil {
		return mapError(collection, id, err)
	}
	return nil
}

func (s *FirestoreStore) Increment(ctx context.Context, collection, id, field string, delta float64) error {
	updates := []firestore.Update{{FieldPath: firestore.FieldPath{field}, Value: firestore.Increment(delta)}}
	if _, err := s.client.Collection(collection).Doc(id).Update(ctx, updates); err != nil {
		return mapError(collection, id, err)
	}
	return nil
}

func (s *FirestoreStore) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return mapError(collection, id, err)
	}
	return nil
}

// feedError reports nil when the feed ended because it was cancelled.
func feedError(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled {
		return nil
	}
	return err
}

func (s *FirestoreStore) Subscribe(ctx context.Context, q Query) (*Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	it := s.client.Collection(q.Collection).Where(q.Field, string(q.Op), q.Value).Snapshots(ctx)
	sub := newSubscription(cancel)

	go func() {
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				sub.finish(feedError(ctx, err))
				return
			}
			docs, err := snap.Documents.GetAll()
			if err != nil {
				sub.finish(feedError(ctx, err))
				return
			}
			out := make([]Document, 0, len(docs))
			for _, d := range docs {
				out = append(out, Document{ID: d.Ref.ID, Data: d.Data()})
			}
			sub.publish(out)
		}
	}()
	return sub, nil
}

func (s *FirestoreStore) SubscribeDoc(ctx context.Context, collection, id string) (*Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	it := s.client.Collection(collection).Doc(id).Snapshots(ctx)
	sub := newSubscription(cancel)

	go func() {
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				sub.finish(feedError(ctx, err))
				return
			}
			out := make([]Document, 0, 1)
			if snap.Exists() {
				out = append(out, Document{ID: snap.Ref.ID, Data: snap.Data()})
			}
			sub.publish(out)
		}
	}()
	return sub, nil
}

type firestoreTx struct {
	client *firestore.Client
	tx     *firestore.Transaction
}

func (t *firestoreTx) Get(collection, id string) (*Document, error) {
	snap, err := t.tx.Get(t.client.Collection(collection).Doc(id))
	if err != nil {
		return nil, mapError(collection, id, err)
	}
	return &Document{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

func (t *firestoreTx) Update(collection, id string, fields map[string]interface{}) error {
	return t.tx.Update(t.client.Collection(collection).Doc(id), toUpdates(fields))
}

func (t *firestoreTx) Increment(collection, id, field string, delta float64) error {
	updates := []firestore.Update{{FieldPath: firestore.FieldPath{field}, Value: firestore.Increment(delta)}}
	return t.tx.Update(t.client.Collection(collection).Doc(id), updates)
}

func (s *FirestoreStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return s.client.RunTransaction(ctx, func(ctx context.Context, t *firestore.Transaction) error {
		return fn(ctx, &firestoreTx{client: s.client, tx: t})
	})
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
