package db

import "sync"

// Subscription is a live feed of snapshots. Only the latest snapshot is kept
// for a slow reader; intermediate ones are dropped.
type Subscription struct {
	updates chan []Document
	done    chan struct{}
	stop    func()

	stopOnce   sync.Once
	finishOnce sync.Once

	mu  sync.Mutex
	err error
}

func newSubscription(stop func()) *Subscription {
	return &Subscription{
		updates: make(chan []Document, 1),
		done:    make(chan struct{}),
		stop:    stop,
	}
}

// Updates returns the snapshot channel. It is closed when the feed ends.
func (s *Subscription) Updates() <-chan []Document { return s.updates }

// Done is closed once the feed has ended and no more snapshots will arrive.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Err returns the error that ended the feed, or nil if it was closed normally.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close stops the feed and waits until it has been released.
func (s *Subscription) Close() {
	s.stopOnce.Do(s.stop)
	<-s.done
}

// publish must only be called by the single producer of the subscription.
func (s *Subscription) publish(docs []Document) {
	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- docs:
	default:
	}
}

func (s *Subscription) finish(err error) {
	s.finishOnce.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.updates)
		close(s.done)
	})
}
