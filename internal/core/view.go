package core

import (
	"sync"

	"clubledger-backend-go/internal/db"
)

// broadcaster wakes every waiter once per notify. After shutdown every
// wait returns a closed channel.
type broadcaster struct {
	mu     sync.Mutex
	ch     chan struct{}
	closed bool
}

var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// wait returns a channel that is closed on the next notify.
func (b *broadcaster) wait() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return closedChan
	}
	if b.ch == nil {
		b.ch = make(chan struct{})
	}
	return b.ch
}

func (b *broadcaster) notify() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ch != nil {
		close(b.ch)
		b.ch = nil
	}
}

// shutdown wakes the current waiters and every later one.
func (b *broadcaster) shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	if b.ch != nil {
		close(b.ch)
		b.ch = nil
	}
}

// View holds the latest projection of one live subscription.
type View[T any] struct {
	sub     *db.Subscription
	project func([]db.Document) []T
	changed func()
	done    chan struct{}

	mu    sync.RWMutex
	items []T
	ready bool
}

func newView[T any](sub *db.Subscription, project func([]db.Document) []T, changed func()) *View[T] {
	v := &View[T]{
		sub:     sub,
		project: project,
		changed: changed,
		done:    make(chan struct{}),
	}
	go v.run()
	return v
}

func (v *View[T]) run() {
	defer close(v.done)
	for docs := range v.sub.Updates() {
		items := v.project(docs)
		v.mu.Lock()
		v.items = items
		v.ready = true
		v.mu.Unlock()
		if v.changed != nil {
			v.changed()
		}
	}
}

// Snapshot returns a copy of the latest pushed result set.
func (v *View[T]) Snapshot() []T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]T, len(v.items))
	copy(out, v.items)
	return out
}

// Ready reports whether the first snapshot has arrived.
func (v *View[T]) Ready() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.ready
}

// Err returns the error that ended the underlying feed, if any.
func (v *View[T]) Err() error {
	return v.sub.Err()
}

// Close releases the subscription and waits for the view to stop updating.
func (v *View[T]) Close() {
	v.sub.Close()
	<-v.done
}
