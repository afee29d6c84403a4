package eventstore

import (
	"context"
)

const defaultBatchSize = 256

// Subscription is a lazy cursor over a Feed. It is restartable: a new
// subscription created from a saved Position continues exactly after it.
type Subscription struct {
	feed  Feed
	pos   int64
	batch int
	buf   []Event
}

// SubscriptionOption configures a Subscription.
type SubscriptionOption func(*Subscription)

// WithBatchSize bounds how many events one feed read fetches.
func WithBatchSize(n int) SubscriptionOption {
	return func(s *Subscription) {
		if n > 0 {
			s.batch = n
		}
	}
}

// Subscribe starts delivering events with Position > from.
func Subscribe(feed Feed, from int64, opts ...SubscriptionOption) *Subscription {
	s := &Subscription{feed: feed, pos: from, batch: defaultBatchSize}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Next returns the next event, blocking until one is committed or ctx ends.
func (s *Subscription) Next(ctx context.Context) (Event, error) {
	for len(s.buf) == 0 {
		events, err := s.feed.ReadAll(ctx, s.pos, s.batch)
		if err != nil {
			return Event{}, err
		}
		if len(events) > 0 {
			s.buf = events
			break
		}
		if err := s.feed.Wait(ctx, s.pos); err != nil {
			return Event{}, err
		}
	}
	ev := s.buf[0]
	s.buf = s.buf[1:]
	s.pos = ev.Position
	return ev, nil
}

// Position is the position of the last delivered event.
func (s *Subscription) Position() int64 {
	return s.pos
}
