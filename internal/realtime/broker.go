// Package realtime fans out change notifications to users over Redis pub/sub.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	EventMessageCreated = "message.created"
	EventJobPostUpdated = "job_post.updated"
)

// Event is one notification delivered to a user's stream.
type Event struct {
	Type string    `json:"type"`
	Data any       `json:"data"`
	At   time.Time `json:"at"`
}

// Publisher sends events to a user's channel.
type Publisher interface {
	Publish(ctx context.Context, userID uuid.UUID, ev Event) error
}

// Broker publishes and subscribes to per-user channels.
type Broker interface {
	Publisher
	Subscribe(ctx context.Context, userID uuid.UUID) (*Subscription, error)
}

// Subscription delivers raw JSON events until closed.
type Subscription struct {
	ch      chan []byte
	done    chan struct{}
	once    sync.Once
	closeFn func() error
}

// NewSubscription returns a subscription whose producer sends on the returned
// channel until done is closed. closeFn releases the underlying resource.
func NewSubscription(buffer int, closeFn func() error) (*Subscription, chan<- []byte) {
	s := &Subscription{ch: make(chan []byte, buffer), done: make(chan struct{}), closeFn: closeFn}
	return s, s.ch
}

// C returns the event channel.
func (s *Subscription) C() <-chan []byte { return s.ch }

// Done is closed by Close; producers stop sending once it is.
func (s *Subscription) Done() <-chan struct{} { return s.done }

func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		if s.closeFn != nil {
			err = s.closeFn()
		}
	})
	return err
}

// RedisBroker is a Broker on Redis pub/sub.
type RedisBroker struct {
	client redis.UniversalClient
}

func NewRedisBroker(client redis.UniversalClient) *RedisBroker {
	return &RedisBroker{client: client}
}

var _ Broker = (*RedisBroker)(nil)

// Channel is the Redis channel carrying userID's events.
func Channel(userID uuid.UUID) string { return "realtime:user:" + userID.String() }

func (b *RedisBroker) Publish(ctx context.Context, userID uuid.UUID, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, Channel(userID), data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	ps := b.client.Subscribe(ctx, Channel(userID))
	// Wait for the subscription to be confirmed so no publish is missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	sub, out := NewSubscription(16, ps.Close)
	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			select {
			case out <- []byte(msg.Payload):
			case <-sub.Done():
				return
			}
		}
	}()
	return sub, nil
}
